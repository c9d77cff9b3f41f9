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
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/theirish81/ollamakit/log"
	"github.com/theirish81/ollamakit/schema"
)

// CallOptions are the per-call options of Chat, ChatTurn, ChatChan and Complete.
type CallOptions struct {
	tool         *Tool
	toolName     string
	onToken      []func(string)
	format       *schema.Schema
	systemPrompt *string
}

// CallOption is an option for a single call.
type CallOption func(*CallOptions)

// WithTool offers the tool to the model for this turn. Only one tool can be active per turn.
func WithTool(tool Tool) CallOption {
	return func(o *CallOptions) {
		o.tool = &tool
	}
}

// WithToolName activates a tool registered with WithTools.
func WithToolName(name string) CallOption {
	return func(o *CallOptions) {
		o.toolName = name
	}
}

// WithTokenHandler receives every content fragment as soon as it is read from the stream.
func WithTokenHandler(handler func(token string)) CallOption {
	return func(o *CallOptions) {
		o.onToken = append(o.onToken, handler)
	}
}

// WithFormat asks the model for a structured answer matching the schema.
func WithFormat(format *schema.Schema) CallOption {
	return func(o *CallOptions) {
		o.format = format
	}
}

// WithSystemPrompt overrides the configured system prompt for this call.
func WithSystemPrompt(prompt string) CallOption {
	return func(o *CallOptions) {
		o.systemPrompt = &prompt
	}
}

func newCallOptions(options []CallOption) CallOptions {
	opts := CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	return opts
}

func (o CallOptions) token(content string) {
	for _, handler := range o.onToken {
		handler(content)
	}
}

// TurnResult is the outcome of a committed chat turn.
type TurnResult struct {
	TurnID string
	// Message is the finalized assistant message, as appended to the history.
	Message     Message
	ToolResults []string
	Stats       TurnStats
}

// Text is the visible reply: the tool results when a tool ran, the model content otherwise.
func (r TurnResult) Text() string {
	return r.Message.Text()
}

// ChatChunk is an item of the ChatChan channel. The last chunk has Done set and carries the result or the error.
type ChatChunk struct {
	Content string
	Done    bool
	Result  *TurnResult
	Err     error
}

// Chat runs one conversation turn and returns the visible reply.
func (c *Client) Chat(ctx context.Context, text string, options ...CallOption) (string, error) {
	result, err := c.ChatTurn(ctx, text, options...)
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}

// ChatChan runs the turn in a goroutine and forwards the content fragments on the returned channel. The channel is
// closed after the final chunk. Once ctx is done, chunks nobody receives are dropped, the final one included.
func (c *Client) ChatChan(ctx context.Context, text string, options ...CallOption) <-chan ChatChunk {
	ch := make(chan ChatChunk, 16)
	go func() {
		defer close(ch)
		forward := func(token string) {
			select {
			case ch <- ChatChunk{Content: token}:
			case <-ctx.Done():
			}
		}
		result, err := c.ChatTurn(ctx, text, append(options, WithTokenHandler(forward))...)
		select {
		case ch <- ChatChunk{Done: true, Result: result, Err: err}:
		case <-ctx.Done():
		}
	}()
	return ch
}

// ChatTurn runs one conversation turn: it streams the model reply, runs the active tool on the completed tool calls
// and appends the user message and the finalized reply to the history. A failed turn leaves the history untouched.
func (c *Client) ChatTurn(ctx context.Context, text string, options ...CallOption) (*TurnResult, error) {
	opts := newCallOptions(options)
	turn := uuid.NewString()
	newEvent := func(eType log.EventType) log.Event {
		return log.NewEvent(eType, log.SessionComponent).WithTurn(turn).WithModel(c.config.Model)
	}
	c.log.Info(newEvent(log.StartEventType).WithMessage("chat turn started"))

	result, err := c.runTurn(ctx, turn, text, opts)
	if err != nil {
		c.log.Err(newEvent(log.ErrorEventType).WithMessage("chat turn failed").WithErr(err))
		return nil, err
	}
	c.log.Info(newEvent(log.EndEventType).WithMessage("chat turn completed").
		WithArg("done_reason", result.Stats.DoneReason).
		WithArg("eval_count", result.Stats.EvalCount))
	return result, nil
}

func (c *Client) runTurn(ctx context.Context, turn string, text string, opts CallOptions) (*TurnResult, error) {
	tool, err := c.activeTool(opts)
	if err != nil {
		return nil, err
	}
	if c.config.AutoInstall {
		if err := c.EnsureModel(ctx, c.config.Model, nil); err != nil {
			return nil, err
		}
	}
	user := NewMessage(RoleUser, text)
	stream, err := openStream[StreamEvent](ctx, c, opChat, "/api/chat", c.chatRequest(user, tool, opts))
	if err != nil {
		return nil, err
	}
	msg, stats, err := foldStream(stream, opts.token)
	// the connection is released before any tool runs
	_ = stream.Close()
	if err != nil {
		return nil, err
	}
	results, err := c.dispatch(ctx, turn, tool, msg)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		content := strings.Join(results, "\n")
		msg.Content = &content
	}
	c.history.Append(user, msg)
	return &TurnResult{TurnID: turn, Message: msg, ToolResults: results, Stats: stats}, nil
}

// foldStream reads the stream up to the terminal event and returns the finalized message.
func foldStream(stream *eventStream[StreamEvent], onToken func(string)) (Message, TurnStats, error) {
	acc := newTurnAccumulator(stream.op)
	for !acc.done() {
		event, err := stream.Recv()
		if err == io.EOF {
			return Message{}, TurnStats{}, newError(ProtocolError, stream.op, nil, "stream ended before the terminal event")
		}
		if err != nil {
			return Message{}, TurnStats{}, err
		}
		if err := acc.fold(event); err != nil {
			return Message{}, TurnStats{}, err
		}
		if event.Message != nil && event.Message.Content != "" {
			onToken(event.Message.Content)
		}
	}
	msg, err := acc.finalize()
	if err != nil {
		return Message{}, TurnStats{}, err
	}
	return msg, acc.stats(), nil
}

func (c *Client) activeTool(opts CallOptions) (*Tool, error) {
	if opts.tool != nil {
		if err := opts.tool.Validate(); err != nil {
			return nil, newError(ToolInvocationError, opChat, err, "invalid tool")
		}
		return opts.tool, nil
	}
	if opts.toolName != "" {
		tool, ok := c.tools.Get(opts.toolName)
		if !ok {
			return nil, newError(ToolInvocationError, opChat, nil, "tool %s is not registered", opts.toolName)
		}
		return &tool, nil
	}
	return nil, nil
}

func (c *Client) options() Options {
	return Options{
		NumPredict:  c.config.NumPredict,
		Temperature: c.config.Temperature,
		TopK:        c.config.TopK,
		TopP:        c.config.TopP,
	}
}

func (c *Client) systemPrompt(opts CallOptions) string {
	if opts.systemPrompt != nil {
		return *opts.systemPrompt
	}
	return c.config.SystemPrompt
}

func (c *Client) chatRequest(user Message, tool *Tool, opts CallOptions) ChatRequest {
	history := c.history.Snapshot()
	messages := make([]Message, 0, len(history)+2)
	if system := c.systemPrompt(opts); system != "" {
		messages = append(messages, NewMessage(RoleSystem, system))
	}
	messages = append(messages, history...)
	messages = append(messages, user)
	request := ChatRequest{
		Model:    c.config.Model,
		Messages: messages,
		Format:   opts.format,
		Stream:   true,
		Options:  c.options(),
	}
	if tool != nil {
		request.Tools = []ToolDefinition{tool.Definition()}
	}
	return request
}

// dispatch runs the tool once per completed call and returns the stringified results in call order.
func (c *Client) dispatch(ctx context.Context, turn string, tool *Tool, msg Message) ([]string, error) {
	if tool == nil || len(msg.ToolCalls) == 0 {
		return nil, nil
	}
	results := make([]string, 0, len(msg.ToolCalls))
	for _, call := range msg.ToolCalls {
		if ctx.Err() != nil {
			return nil, contextError(ctx, opChat, nil)
		}
		if call.Function.Name != tool.Name {
			return nil, newError(ToolInvocationError, opChat, nil, "model called unknown function %q", call.Function.Name)
		}
		c.log.Info(log.NewEvent(log.StartEventType, log.ToolComponent).WithTurn(turn).WithTool(tool.Name).
			WithArgs(call.Function.Arguments).WithMessage("invoking tool"))
		result, err := tool.invoke(ctx, opChat, call.Function.Arguments)
		if err != nil {
			return nil, err
		}
		c.log.Debug(log.NewEvent(log.ResultEventType, log.ToolComponent).WithTurn(turn).WithTool(tool.Name).
			WithContent(result))
		results = append(results, result)
	}
	return results, nil
}
