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

package log

import (
	"encoding/json"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventType string

const GenericEventType EventType = "generic"
const StartEventType EventType = "start"
const EndEventType EventType = "end"
const ErrorEventType EventType = "error"
const ResultEventType EventType = "result"
const ProgressEventType EventType = "progress"

type EventComponent string

const ClientComponent EventComponent = "client"
const SessionComponent EventComponent = "session"
const StreamComponent EventComponent = "stream"
const ToolComponent EventComponent = "tool"
const ModelsComponent EventComponent = "models"
const PullComponent EventComponent = "pull"

type ChannelLevel string

const DebugChannelLevel ChannelLevel = "debug"
const InfoChannelLevel ChannelLevel = "info"

type Event struct {
	Level     string         `json:"level"`
	Component EventComponent `json:"component"`
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Time      time.Time      `json:"time"`
	Message   string         `json:"message,omitempty"`
	Turn      *string        `json:"turn,omitempty"`
	Model     *string        `json:"model,omitempty"`
	Tool      *string        `json:"tool,omitempty"`
	Endpoint  *string        `json:"endpoint,omitempty"`
	Content   *any           `json:"content,omitempty"`
	Err       *EventError    `json:"error,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
}

type EventError struct {
	Message string
}

func (e EventError) Error() string {
	return e.Message
}

func (e EventError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Message)
}

func NewEvent(eType EventType, component EventComponent) Event {
	return Event{
		Component: component,
		Type:      eType,
		Time:      time.Now(),
		ID:        uuid.NewString(),
	}
}

func (e Event) WithMessage(message string) Event {
	e.Message = message
	return e
}

func (e Event) WithTurn(turn string) Event {
	e.Turn = &turn
	return e
}

func (e Event) WithModel(model string) Event {
	e.Model = &model
	return e
}

func (e Event) WithTool(tool string) Event {
	e.Tool = &tool
	return e
}

func (e Event) WithEndpoint(endpoint string) Event {
	e.Endpoint = &endpoint
	return e
}

func (e Event) WithErr(err error) Event {
	if err == nil {
		return e
	}
	e.Err = &EventError{Message: err.Error()}
	return e
}

func (e Event) WithContent(content any) Event {
	e.Content = &content
	return e
}

func (e Event) WithArgs(args map[string]any) Event {
	e.Args = args
	return e
}

func (e Event) WithArg(key string, value any) Event {
	args := make(map[string]any, len(e.Args)+1)
	for k, v := range e.Args {
		args[k] = v
	}
	args[key] = value
	e.Args = args
	return e
}

// ToArray flattens the event into slog key/value pairs. Nil pointers are skipped.
func (e Event) ToArray() []any {
	result := make([]any, 0)
	v := reflect.ValueOf(e)
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldName := strings.ToLower(field.Name)

		// Skip fields which make no sense in the logging context
		if slices.Contains([]string{"args", "level", "message", "id", "time"}, fieldName) {
			continue
		}
		fieldValue := v.Field(i)
		if (fieldValue.Kind() == reflect.Pointer && !fieldValue.IsNil()) || fieldValue.Kind() != reflect.Pointer {
			var val any
			if fieldValue.Kind() == reflect.Pointer {
				val = fieldValue.Elem().Interface()
			} else {
				val = fieldValue.Interface()
			}
			result = append(result, fieldName, val)
		}
	}
	for k, val := range e.Args {
		result = append(result, k, val)
	}

	return result
}

// StreamerLogger logs events to slog and mirrors them to an optional channel, so that an integrating application can
// follow what the client is doing.
type StreamerLogger struct {
	progressChannel chan Event
	logger          *slog.Logger
	channelLevel    ChannelLevel
}

func NewStreamerLogger(logger *slog.Logger, channel chan Event, channelLevel ChannelLevel) *StreamerLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamerLogger{
		logger:          logger,
		progressChannel: channel,
		channelLevel:    channelLevel,
	}
}

func (l *StreamerLogger) SetChannel(channel chan Event, level ChannelLevel) {
	l.progressChannel = channel
	l.channelLevel = level
}

func (l *StreamerLogger) Close() {
	if l.progressChannel != nil {
		close(l.progressChannel)
		l.progressChannel = nil
	}
}

func (l *StreamerLogger) Channel() chan Event {
	return l.progressChannel
}

func (l *StreamerLogger) Logger() *slog.Logger {
	return l.logger
}

func (l *StreamerLogger) Debug(event Event) {
	event.Level = "debug"
	l.logger.Debug(event.Message, event.ToArray()...)
	if l.channelLevel == DebugChannelLevel {
		l.Send(event)
	}
}

func (l *StreamerLogger) Info(event Event) {
	event.Level = "info"
	l.logger.Info(event.Message, event.ToArray()...)
	l.Send(event)
}

func (l *StreamerLogger) Warn(event Event) {
	event.Level = "warn"
	l.logger.Warn(event.Message, event.ToArray()...)
	l.Send(event)
}

func (l *StreamerLogger) Err(event Event) {
	event.Level = "err"
	l.logger.Error(event.Message, event.ToArray()...)
	l.Send(event)
}

func (l *StreamerLogger) Send(event Event) {
	if l.progressChannel != nil {
		select {
		case l.progressChannel <- event:
		default:
			l.logger.Warn("streamer logger channel full, dropping event")
		}
	}
}
