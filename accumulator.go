/*
 * Copyright (C) 2026 Simone Pezzano
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package ollamakit

import (
	"strings"

	"github.com/theirish81/ollamakit/util"
)

type argumentsMode int

const (
	argumentsUnset argumentsMode = iota
	argumentsText
	argumentsObject
)

// pendingCall collects the fragments of one tool call.
type pendingCall struct {
	id     string
	name   string
	mode   argumentsMode
	text   strings.Builder
	object util.ProgMap
}

// turnAccumulator folds the events of one chat stream, in arrival order, into the in-flight assistant message.
type turnAccumulator struct {
	op       string
	role     string
	content  strings.Builder
	thinking strings.Builder
	calls    []*pendingCall
	byIndex  map[int]*pendingCall
	byID     map[string]*pendingCall
	terminal *StreamEvent
}

func newTurnAccumulator(op string) *turnAccumulator {
	return &turnAccumulator{
		op:      op,
		role:    RoleAssistant,
		byIndex: make(map[int]*pendingCall),
		byID:    make(map[string]*pendingCall),
	}
}

// done reports whether the terminal event was folded.
func (a *turnAccumulator) done() bool {
	return a.terminal != nil
}

func (a *turnAccumulator) fold(event StreamEvent) error {
	if a.done() {
		return newError(ProtocolError, a.op, nil, "event received after the terminal event")
	}
	if event.Error != "" {
		return newError(ProtocolError, a.op, nil, "server error: %s", event.Error)
	}
	if msg := event.Message; msg != nil {
		if msg.Role != "" {
			a.role = msg.Role
		}
		a.content.WriteString(msg.Content)
		a.thinking.WriteString(msg.Thinking)
		for _, fragment := range msg.ToolCalls {
			if err := a.foldToolCall(fragment); err != nil {
				return err
			}
		}
	}
	if event.Done {
		a.terminal = &event
	}
	return nil
}

func (a *turnAccumulator) foldToolCall(fragment ToolCallFragment) error {
	call, err := a.callFor(fragment)
	if err != nil {
		return err
	}
	if name := fragment.Function.Name; name != "" {
		if call.name != "" && call.name != name {
			return newError(ProtocolError, a.op, nil, "tool call %q renamed to %q", call.name, name)
		}
		call.name = name
	}
	if call.id == "" {
		call.id = fragment.ID
	}
	args := fragment.Function.Arguments
	switch {
	case args.Text != nil:
		if call.mode == argumentsObject {
			return newError(ProtocolError, a.op, nil, "tool call %q mixes text and object arguments", call.name)
		}
		call.mode = argumentsText
		call.text.WriteString(*args.Text)
	case args.Object != nil:
		if call.mode == argumentsText {
			return newError(ProtocolError, a.op, nil, "tool call %q mixes text and object arguments", call.name)
		}
		call.mode = argumentsObject
		if call.object == nil {
			call.object = util.ProgMap{}
		}
		call.object.Merge(args.Object)
	}
	return nil
}

// callFor finds the call a fragment belongs to: by explicit index, else by id, else a named fragment opens a new
// call and an unnamed one continues the most recent call.
func (a *turnAccumulator) callFor(fragment ToolCallFragment) (*pendingCall, error) {
	if idx := fragment.Function.Index; idx != nil {
		if call, ok := a.byIndex[*idx]; ok {
			return call, nil
		}
		call := a.open()
		a.byIndex[*idx] = call
		return call, nil
	}
	if fragment.ID != "" {
		if call, ok := a.byID[fragment.ID]; ok {
			return call, nil
		}
		call := a.open()
		a.byID[fragment.ID] = call
		return call, nil
	}
	if fragment.Function.Name != "" {
		return a.open(), nil
	}
	if len(a.calls) == 0 {
		return nil, newError(ProtocolError, a.op, nil, "tool-call fragment without a name or key")
	}
	return a.calls[len(a.calls)-1], nil
}

func (a *turnAccumulator) open() *pendingCall {
	call := &pendingCall{}
	a.calls = append(a.calls, call)
	return call
}

// finalize builds the assistant message. It must only be called once the terminal event was folded.
func (a *turnAccumulator) finalize() (Message, error) {
	if !a.done() {
		return Message{}, newError(ProtocolError, a.op, nil, "stream ended before the terminal event")
	}
	msg := Message{Role: a.role, Thinking: a.thinking.String()}
	content := a.content.String()
	if content != "" || len(a.calls) == 0 {
		msg.Content = &content
	}
	for i, call := range a.calls {
		if call.name == "" {
			return Message{}, newError(ProtocolError, a.op, nil, "tool call #%d has no function name", i)
		}
		var args map[string]any
		switch call.mode {
		case argumentsText:
			parsed, err := util.ParseJSONObject([]byte(call.text.String()))
			if err != nil {
				return Message{}, newError(ProtocolError, a.op, err, "malformed arguments for tool call %q", call.name)
			}
			args = parsed
		case argumentsObject:
			args = call.object
		default:
			args = map[string]any{}
		}
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID:       call.id,
			Type:     "function",
			Function: FunctionCall{Index: i, Name: call.name, Arguments: args},
		})
	}
	return msg, nil
}

func (a *turnAccumulator) stats() TurnStats {
	if a.terminal == nil {
		return TurnStats{}
	}
	return statsOf(*a.terminal)
}
