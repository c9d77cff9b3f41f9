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
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes client errors so that callers can decide whether to retry, re-prompt or give up.
type ErrorKind string

const (
	// TransportError is a connection, timeout or HTTP status failure. The client never retries it while streaming.
	TransportError ErrorKind = "transport"
	// ProtocolError is malformed or unexpected stream content. It is fatal to the current turn.
	ProtocolError ErrorKind = "protocol"
	// ToolInvocationError is a failure raised by (or while locating) a tool handler.
	ToolInvocationError ErrorKind = "tool_invocation"
	// ArgumentBindingError means a declared tool parameter could not be resolved or coerced.
	ArgumentBindingError ErrorKind = "argument_binding"
	// Cancelled means the caller cancelled the context.
	Cancelled ErrorKind = "cancelled"
)

// Error is the error type returned by every Client operation.
type Error struct {
	Kind       ErrorKind
	Op         string
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 4)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	parts = append(parts, string(e.Kind)+" error")
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return "ollamakit: " + strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrCancelled) and friends match on the kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Cause == nil && t.Kind == e.Kind
}

// Sentinel errors for errors.Is checks.
var (
	ErrTransport       = &Error{Kind: TransportError}
	ErrProtocol        = &Error{Kind: ProtocolError}
	ErrToolInvocation  = &Error{Kind: ToolInvocationError}
	ErrArgumentBinding = &Error{Kind: ArgumentBindingError}
	ErrCancelled       = &Error{Kind: Cancelled}
)

func newError(kind ErrorKind, op string, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the kind of the error, or an empty kind if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsTransport(err error) bool { return KindOf(err) == TransportError }

func IsProtocol(err error) bool { return KindOf(err) == ProtocolError }

func IsToolInvocation(err error) bool { return KindOf(err) == ToolInvocationError }

func IsArgumentBinding(err error) bool { return KindOf(err) == ArgumentBindingError }

func IsCancelled(err error) bool { return KindOf(err) == Cancelled }

// contextError turns a failure observed while the context is done into the matching kind: caller cancellation is
// Cancelled, a deadline is a TransportError.
func contextError(ctx context.Context, op string, cause error) *Error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return &Error{Kind: Cancelled, Op: op, Message: "request cancelled", Cause: ctx.Err()}
	}
	if cause == nil {
		cause = ctx.Err()
	}
	return &Error{Kind: TransportError, Op: op, Message: "request timed out", Cause: cause}
}

// transportError classifies an error returned by the HTTP client.
func transportError(ctx context.Context, op string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if ctx.Err() != nil {
		return contextError(ctx, op, err)
	}
	return &Error{Kind: TransportError, Op: op, Message: "request failed", Cause: err}
}

// retryable tells one-shot operations whether another attempt makes sense.
func retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == TransportError && (e.StatusCode == 0 || e.StatusCode >= 500)
}
