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

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/theirish81/ollamakit"
)

// server-sent event names
const (
	tokenEvent = "token"
	doneEvent  = "done"
	errorEvent = "error"
)

// Streamer writes server-sent events to the response.
type Streamer struct {
	c       echo.Context
	mx      sync.Mutex
	started bool
}

func NewStreamer(c echo.Context) *Streamer {
	return &Streamer{
		c:  c,
		mx: sync.Mutex{},
	}
}

func (s *Streamer) start() {
	if s.started {
		return
	}
	s.started = true
	header := s.c.Response().Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	s.c.Response().WriteHeader(http.StatusOK)
}

// Send writes one event with a JSON payload.
func (s *Streamer) Send(event string, payload any) error {
	data, err := toData(event, payload)
	if err != nil {
		return err
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	s.start()
	_, err = s.c.Response().Write(data)
	if err == nil {
		s.c.Response().Flush()
	}
	return err
}

// Stream forwards the chunks of a chat turn: one token event per fragment, then a done or an error event. The
// channel is always drained, so that the turn can complete even when the client went away.
func (s *Streamer) Stream(conversation string, chunks <-chan ollamakit.ChatChunk) error {
	var writeErr error
	send := func(event string, payload any) {
		if writeErr == nil {
			writeErr = s.Send(event, payload)
		}
	}
	for chunk := range chunks {
		switch {
		case !chunk.Done:
			send(tokenEvent, echo.Map{"content": chunk.Content})
		case chunk.Err != nil:
			send(errorEvent, echo.Map{
				"conversation": conversation,
				"kind":         ollamakit.KindOf(chunk.Err),
				"error":        chunk.Err.Error(),
			})
		default:
			send(doneEvent, turnPayload(conversation, chunk.Result))
		}
	}
	return writeErr
}

func turnPayload(conversation string, result *ollamakit.TurnResult) echo.Map {
	return echo.Map{
		"conversation": conversation,
		"turn":         result.TurnID,
		"text":         result.Text(),
		"tool_calls":   result.Message.ToolCalls,
		"tool_results": result.ToolResults,
		"done_reason":  result.Stats.DoneReason,
		"eval_count":   result.Stats.EvalCount,
	}
}

func toData(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %s\nevent:%s\ndata:%s\n\n", uuid.NewString(), event, string(data))), nil
}
