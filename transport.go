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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/theirish81/ollamakit/log"
	"github.com/theirish81/ollamakit/util"
)

const retryDelay = time.Second

// Transport adds the bearer token to every outgoing request.
type Transport struct {
	base   http.RoundTripper
	apiKey string
}

func (t Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	return t.base.RoundTrip(req)
}

// NewTransport wraps base, or http.DefaultTransport when nil, with bearer authentication.
func NewTransport(base http.RoundTripper, apiKey string) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, apiKey: apiKey}
}

// newHTTPClient builds the default client. There is no overall client timeout because chat streams can legitimately
// last longer than any fixed value: Timeout bounds the wait for the response headers, the context bounds the rest.
func newHTTPClient(config Config) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.MaxIdleConnsPerHost = 10
	base.ResponseHeaderTimeout = config.Timeout
	client := &http.Client{Transport: base}
	return withAPIKey(client, config.APIKey)
}

// withAPIKey returns a copy of the client that authenticates with the API key. The client is returned as is when
// the key is empty.
func withAPIKey(client *http.Client, apiKey string) *http.Client {
	if apiKey == "" {
		return client
	}
	cpy := *client
	cpy.Transport = NewTransport(client.Transport, apiKey)
	return &cpy
}

func joinURL(base string, path string) string {
	return strings.TrimRight(base, "/") + path
}

func (c *Client) newRequest(ctx context.Context, method string, url string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, application/x-ndjson")
	return req, nil
}

// send performs the request and turns failures and error statuses into *Error. On success the caller owns the
// response body.
func (c *Client) send(ctx context.Context, op string, method string, url string, body any) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, url, body)
	if err != nil {
		return nil, newError(TransportError, op, err, "could not build request")
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(ctx, op, err)
	}
	if res.StatusCode >= 400 {
		defer func() {
			_ = res.Body.Close()
		}()
		return nil, statusError(op, res)
	}
	return res, nil
}

// statusError reads the {"error": "..."} body Ollama sends along with error statuses.
func statusError(op string, res *http.Response) *Error {
	data, _ := io.ReadAll(io.LimitReader(res.Body, 64*1024))
	message := strings.TrimSpace(string(data))
	errResponse := errorResponse{}
	if err := json.Unmarshal(data, &errResponse); err == nil && errResponse.Error != "" {
		message = errResponse.Error
	}
	if message == "" {
		message = http.StatusText(res.StatusCode)
	}
	return &Error{
		Kind:       TransportError,
		Op:         op,
		Message:    fmt.Sprintf("server returned %d: %s", res.StatusCode, message),
		StatusCode: res.StatusCode,
	}
}

// doJSON performs a one-shot call and decodes the JSON response into out. Transport failures are retried up to
// Config.Retries attempts, the whole call is bounded by Config.Timeout.
func (c *Client) doJSON(ctx context.Context, op string, method string, url string, body any, out any) error {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}
	var lastErr error
	attempt := 0
	err := util.Retry(ctx, c.config.Retries, retryDelay, func() error {
		attempt++
		lastErr = c.doJSONOnce(ctx, op, method, url, body, out)
		if lastErr != nil && retryable(lastErr) {
			c.log.Warn(log.NewEvent(log.ErrorEventType, componentOf(op)).WithEndpoint(url).WithErr(lastErr).
				WithMessage(fmt.Sprintf("attempt %d failed", attempt)))
			return lastErr
		}
		return nil
	})
	if lastErr != nil {
		return lastErr
	}
	if err != nil {
		return transportError(ctx, op, err)
	}
	return nil
}

func (c *Client) doJSONOnce(ctx context.Context, op string, method string, url string, body any, out any) error {
	res, err := c.send(ctx, op, method, url, body)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return transportError(ctx, op, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return newError(ProtocolError, op, err, "malformed response")
	}
	return nil
}

// openStream starts a streamed call. The returned stream closes the body as soon as ctx is done.
func openStream[T any](ctx context.Context, c *Client, op string, path string, body any) (*eventStream[T], error) {
	res, err := c.send(ctx, op, http.MethodPost, joinURL(c.config.Host, path), body)
	if err != nil {
		return nil, err
	}
	return newEventStream[T](ctx, op, res.Body), nil
}
