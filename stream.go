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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
)

// eventStream is a pull-based sequence of NDJSON events read from a response body. Lines are split on '\n'
// regardless of how the transport chunks the body, blank lines are skipped. Recv returns io.EOF when the body ends
// and an *Error for anything else.
//
// The body is closed as soon as the context is done, which unblocks a pending read.
type eventStream[T any] struct {
	ctx       context.Context
	op        string
	body      io.ReadCloser
	reader    *bufio.Reader
	stop      func() bool
	closeOnce sync.Once
}

func newEventStream[T any](ctx context.Context, op string, body io.ReadCloser) *eventStream[T] {
	s := &eventStream[T]{
		ctx:    ctx,
		op:     op,
		body:   body,
		reader: bufio.NewReader(body),
	}
	s.stop = context.AfterFunc(ctx, func() {
		_ = body.Close()
	})
	return s
}

func (s *eventStream[T]) Recv() (T, error) {
	var zero T
	for {
		if s.ctx.Err() != nil {
			return zero, contextError(s.ctx, s.op, nil)
		}
		line, err := s.reader.ReadBytes('\n')
		if s.ctx.Err() != nil {
			return zero, contextError(s.ctx, s.op, nil)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return zero, newError(TransportError, s.op, err, "stream read failed")
		}
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var event T
			if jsonErr := json.Unmarshal(line, &event); jsonErr != nil {
				return zero, newError(ProtocolError, s.op, jsonErr, "malformed stream line %q", truncate(line, 120))
			}
			return event, nil
		}
		if err != nil {
			return zero, io.EOF
		}
	}
}

// Close releases the connection. It is safe to call more than once.
func (s *eventStream[T]) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.stop()
		err = s.body.Close()
	})
	return err
}

func truncate(data []byte, size int) string {
	if len(data) <= size {
		return string(data)
	}
	return string(data[:size]) + "..."
}
