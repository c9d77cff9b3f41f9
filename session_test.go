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
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theirish81/ollamakit/log"
	"github.com/theirish81/ollamakit/schema"
)

var helloStream = []string{
	`{"model":"test-model","message":{"role":"assistant","content":"Hello"},"done":false}`,
	``,
	`{"model":"test-model","message":{"role":"assistant","content":", world"},"done":false}`,
	`{"model":"test-model","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop",` +
		`"prompt_eval_count":12,"eval_count":3,"total_duration":1500000}`,
}

var weatherCallStream = []string{
	`{"message":{"role":"assistant","content":"","tool_calls":[{"function":{"index":0,"name":"weather",` +
		`"arguments":"{\"city\":"}}]},"done":false}`,
	`{"message":{"role":"assistant","content":"","tool_calls":[{"function":{"index":0,` +
		`"arguments":"\"Paris\",\"days\":3}"}}]},"done":false}`,
	`{"message":{"role":"assistant","content":""},"done":true,"done_reason":"stop"}`,
}

type countingHandler struct {
	mu     sync.Mutex
	calls  []Arguments
	result any
	err    error
}

func (h *countingHandler) Invoke(_ context.Context, args Arguments) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, args)
	return h.result, h.err
}

func TestChat_Content(t *testing.T) {
	rec := &recorder{}
	srv := newChatServer(t, rec, helloStream)
	client := newTestClient(t, testConfig(srv.URL))

	tokens := make([]string, 0)
	result, err := client.ChatTurn(t.Context(), "hi", WithTokenHandler(func(token string) {
		tokens = append(tokens, token)
	}))
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", result.Text())
	assert.Equal(t, []string{"Hello", ", world"}, tokens)
	assert.Equal(t, "stop", result.Stats.DoneReason)
	assert.Equal(t, 12, result.Stats.PromptEvalCount)
	assert.Equal(t, 3, result.Stats.EvalCount)
	assert.Equal(t, 1500*time.Microsecond, result.Stats.TotalDuration)
	assert.NotEmpty(t, result.TurnID)

	history := client.History().Snapshot()
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "hi", history[0].Text())
	assert.Equal(t, RoleAssistant, history[1].Role)
	assert.Equal(t, "Hello, world", history[1].Text())
}

func TestChat_Request(t *testing.T) {
	rec := &recorder{}
	srv := newChatServer(t, rec, helloStream)
	cfg := testConfig(srv.URL)
	cfg.SystemPrompt = "be brief"
	client := newTestClient(t, cfg)

	_, err := client.Chat(t.Context(), "first")
	require.NoError(t, err)
	format := schema.NewObject().WithProperty("answer", &schema.Schema{Type: schema.String}, true)
	_, err = client.Chat(t.Context(), "second", WithTool(weatherTool(noopHandler())), WithFormat(format),
		WithSystemPrompt("be verbose"))
	require.NoError(t, err)

	first := rec.chatRequest(t, 0)
	assert.Equal(t, "test-model", first.Model)
	assert.True(t, first.Stream)
	require.Len(t, first.Messages, 2)
	assert.Equal(t, RoleSystem, first.Messages[0].Role)
	assert.Equal(t, "be brief", first.Messages[0].Text())
	assert.Equal(t, "first", first.Messages[1].Text())
	assert.Empty(t, first.Tools)
	assert.InDelta(t, 0.1, first.Options.Temperature, 0.0001)

	second := rec.chatRequest(t, 1)
	require.Len(t, second.Messages, 4)
	assert.Equal(t, "be verbose", second.Messages[0].Text())
	assert.Equal(t, "first", second.Messages[1].Text())
	assert.Equal(t, "Hello, world", second.Messages[2].Text())
	assert.Equal(t, "second", second.Messages[3].Text())
	require.Len(t, second.Tools, 1)
	assert.Equal(t, "weather", second.Tools[0].Function.Name)
	assert.Equal(t, []string{"city", "days"}, second.Tools[0].Function.Parameters.Required)
	require.NotNil(t, second.Format)
	assert.Equal(t, "object{answer}", second.Format.String())
}

func TestChat_NoHistory(t *testing.T) {
	rec := &recorder{}
	srv := newChatServer(t, rec, helloStream)
	cfg := testConfig(srv.URL)
	cfg.KeepHistory = false
	client := newTestClient(t, cfg)

	for _, text := range []string{"one", "two"} {
		_, err := client.Chat(t.Context(), text)
		require.NoError(t, err)
	}
	assert.Len(t, rec.chatRequest(t, 1).Messages, 1)
	assert.Equal(t, 0, client.History().Len())
}

func TestChat_ToolResultReplacesContent(t *testing.T) {
	rec := &recorder{}
	srv := newChatServer(t, rec, weatherCallStream)
	client := newTestClient(t, testConfig(srv.URL))
	handler := &countingHandler{result: "sunny, 21C"}

	text, err := client.Chat(t.Context(), "weather in Paris?", WithTool(weatherTool(handler)))
	require.NoError(t, err)
	assert.Equal(t, "sunny, 21C", text)

	require.Len(t, handler.calls, 1)
	assert.Equal(t, "Paris", handler.calls[0].String("city"))
	assert.Equal(t, int64(3), handler.calls[0].Int("days"))

	history := client.History().Snapshot()
	require.Len(t, history, 2)
	assert.Equal(t, "sunny, 21C", history[1].Text())
	require.Len(t, history[1].ToolCalls, 1)
	assert.Equal(t, "weather", history[1].ToolCalls[0].Function.Name)
	assert.Equal(t, map[string]any{"city": "Paris", "days": float64(3)}, history[1].ToolCalls[0].Function.Arguments)
}

func TestChat_ToolCallWithoutActiveTool(t *testing.T) {
	rec := &recorder{}
	srv := newChatServer(t, rec, weatherCallStream)
	client := newTestClient(t, testConfig(srv.URL))

	result, err := client.ChatTurn(t.Context(), "weather in Paris?")
	require.NoError(t, err)
	assert.Nil(t, result.Message.Content)
	assert.Empty(t, result.ToolResults)
	require.Len(t, result.Message.ToolCalls, 1)
	assert.Equal(t, 2, client.History().Len())
}

func TestChat_ToolInvokedOncePerCall(t *testing.T) {
	twoCalls := []string{
		`{"message":{"role":"assistant","content":"","tool_calls":[` +
			`{"function":{"index":0,"name":"weather","arguments":{"city":"Paris","days":1}}},` +
			`{"function":{"index":1,"name":"weather","arguments":{"city":"Rome"}}}]},"done":false}`,
		`{"message":{"role":"assistant","content":"","tool_calls":[{"function":{"index":1,` +
			`"arguments":{"days":2}}}]},"done":false}`,
		`{"message":{"role":"assistant","content":""},"done":true}`,
	}
	rec := &recorder{}
	srv := newChatServer(t, rec, twoCalls)
	client := newTestClient(t, testConfig(srv.URL))
	var n atomic.Int32
	tool := weatherTool(ToolHandlerFunc(func(ctx context.Context, args Arguments) (any, error) {
		n.Add(1)
		return fmt.Sprintf("%s:%d", args.String("city"), args.Int("days")), nil
	}))

	result, err := client.ChatTurn(t.Context(), "compare", WithTool(tool))
	require.NoError(t, err)
	assert.Equal(t, int32(2), n.Load())
	assert.Equal(t, []string{"Paris:1", "Rome:2"}, result.ToolResults)
	assert.Equal(t, "Paris:1\nRome:2", result.Text())
}

func TestChat_WithToolName(t *testing.T) {
	rec := &recorder{}
	srv := newChatServer(t, rec, weatherCallStream)
	handler := &countingHandler{result: "sunny, 21C"}
	client := newTestClient(t, testConfig(srv.URL), WithTools(weatherTool(handler)))

	text, err := client.Chat(t.Context(), "weather?", WithToolName("weather"))
	require.NoError(t, err)
	assert.Equal(t, "sunny, 21C", text)

	_, err = client.Chat(t.Context(), "weather?", WithToolName("forecast"))
	assert.True(t, IsToolInvocation(err))
	assert.Len(t, rec.requests("/api/chat"), 1)
}

func TestChat_FailedTurnsDoNotTouchHistory(t *testing.T) {
	for _, tc := range []struct {
		name   string
		stream []string
		tool   ToolHandler
		params []Parameter
		kind   ErrorKind
	}{
		{
			name:   "malformed line",
			stream: []string{`{"message":{"role":"assistant","content":"Hel"},"done":false}`, `{"message":`},
			kind:   ProtocolError,
		},
		{
			name:   "end of stream before done",
			stream: []string{`{"message":{"role":"assistant","content":"Hel"},"done":false}`},
			kind:   ProtocolError,
		},
		{
			name:   "server error line",
			stream: []string{`{"error":"model crashed"}`},
			kind:   ProtocolError,
		},
		{
			name: "mixed argument encodings",
			stream: []string{
				`{"message":{"tool_calls":[{"function":{"index":0,"name":"weather","arguments":"{\"city\":"}}]},"done":false}`,
				`{"message":{"tool_calls":[{"function":{"index":0,"arguments":{"days":3}}}]},"done":false}`,
				`{"done":true}`,
			},
			kind: ProtocolError,
		},
		{
			name: "partial tool-call arguments",
			stream: []string{
				`{"message":{"tool_calls":[{"function":{"index":0,"name":"weather","arguments":"{\"city\":"}}]},"done":true}`,
			},
			kind: ProtocolError,
		},
		{
			name:   "tool failure",
			stream: weatherCallStream,
			tool:   &countingHandler{err: io.ErrUnexpectedEOF},
			kind:   ToolInvocationError,
		},
		{
			name: "unknown function",
			stream: []string{
				`{"message":{"tool_calls":[{"function":{"name":"stocks","arguments":{}}}]},"done":true}`,
			},
			tool: &countingHandler{},
			kind: ToolInvocationError,
		},
		{
			name: "binding failure",
			stream: []string{
				`{"message":{"tool_calls":[{"function":{"name":"weather","arguments":{"city":"Paris"}}}]},"done":true}`,
			},
			tool: &countingHandler{},
			kind: ArgumentBindingError,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			srv := newChatServer(t, rec, helloStream, tc.stream)
			client := newTestClient(t, testConfig(srv.URL))
			_, err := client.Chat(t.Context(), "warm up")
			require.NoError(t, err)
			before := client.History().Snapshot()

			var options []CallOption
			if tc.tool != nil {
				options = append(options, WithTool(weatherTool(tc.tool)))
			}
			_, err = client.Chat(t.Context(), "hi", options...)
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err), err.Error())
			assert.Equal(t, before, client.History().Snapshot())
		})
	}
}

func TestChat_HTTPError(t *testing.T) {
	srv := newStatusServer(t, http.StatusNotFound, `{"error":"model 'test-model' not found"}`)
	client := newTestClient(t, testConfig(srv.URL))
	_, err := client.Chat(t.Context(), "hi")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusNotFound, e.StatusCode)
	assert.Contains(t, e.Message, "model 'test-model' not found")
	assert.Equal(t, 0, client.History().Len())
}

func TestChat_ConnectionRefused(t *testing.T) {
	srv := newStatusServer(t, http.StatusOK, "")
	url := srv.URL
	srv.Close()
	client := newTestClient(t, testConfig(url))
	_, err := client.Chat(t.Context(), "hi")
	assert.True(t, IsTransport(err))
}

// trackingBody is a response body backed by a pipe, recording whether it was closed.
type trackingBody struct {
	*io.PipeReader
	closed atomic.Bool
}

func (b *trackingBody) Close() error {
	b.closed.Store(true)
	return b.PipeReader.Close()
}

type pipeTransport struct {
	body *trackingBody
}

func (p pipeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: p.body, Request: req}, nil
}

func TestChat_CancellationClosesConnection(t *testing.T) {
	pr, pw := io.Pipe()
	body := &trackingBody{PipeReader: pr}
	client := newTestClient(t, testConfig("http://ollama.test"),
		WithHTTPClient(&http.Client{Transport: pipeTransport{body: body}}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_, _ = io.WriteString(pw, `{"message":{"role":"assistant","content":"Hel"},"done":false}`+"\n")
	}()

	tokens := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		_, err := client.Chat(ctx, "hi", WithTokenHandler(func(token string) {
			tokens <- token
		}))
		errs <- err
	}()

	select {
	case token := <-tokens:
		assert.Equal(t, "Hel", token)
	case <-time.After(5 * time.Second):
		t.Fatal("no token received")
	}
	cancel()
	select {
	case err := <-errs:
		assert.True(t, IsCancelled(err), err)
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("chat did not return after cancellation")
	}
	assert.True(t, body.closed.Load())
	assert.Equal(t, 0, client.History().Len())
}

func TestChat_DeadlineIsTransportError(t *testing.T) {
	pr, _ := io.Pipe()
	body := &trackingBody{PipeReader: pr}
	client := newTestClient(t, testConfig("http://ollama.test"),
		WithHTTPClient(&http.Client{Transport: pipeTransport{body: body}}))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Chat(ctx, "hi")
	assert.True(t, IsTransport(err), err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, body.closed.Load())
}

func TestChat_SameStreamSameHistory(t *testing.T) {
	handler := &countingHandler{result: "sunny, 21C"}
	histories := make([][]Message, 0, 2)
	for i := 0; i < 2; i++ {
		rec := &recorder{}
		srv := newChatServer(t, rec, weatherCallStream)
		client := newTestClient(t, testConfig(srv.URL))
		_, err := client.Chat(t.Context(), "weather?", WithTool(weatherTool(handler)))
		require.NoError(t, err)
		histories = append(histories, client.History().Snapshot())
	}
	assert.Equal(t, histories[0], histories[1])
}

func TestChatChan(t *testing.T) {
	rec := &recorder{}
	srv := newChatServer(t, rec, helloStream)
	client := newTestClient(t, testConfig(srv.URL))

	contents := make([]string, 0)
	var last ChatChunk
	for chunk := range client.ChatChan(t.Context(), "hi") {
		if chunk.Done {
			last = chunk
			continue
		}
		contents = append(contents, chunk.Content)
	}
	require.True(t, last.Done)
	require.NoError(t, last.Err)
	assert.Equal(t, []string{"Hello", ", world"}, contents)
	assert.Equal(t, "Hello, world", last.Result.Text())
}

func TestChatChan_Error(t *testing.T) {
	srv := newStatusServer(t, http.StatusInternalServerError, `{"error":"boom"}`)
	client := newTestClient(t, testConfig(srv.URL))
	var last ChatChunk
	for chunk := range client.ChatChan(t.Context(), "hi") {
		last = chunk
	}
	assert.True(t, last.Done)
	assert.True(t, IsTransport(last.Err))
	assert.Nil(t, last.Result)
}

func TestChatChan_CancelledWithoutReader(t *testing.T) {
	pr, pw := io.Pipe()
	body := &trackingBody{PipeReader: pr}
	events := make(chan log.Event, 64)
	client := newTestClient(t, testConfig("http://ollama.test"),
		WithHTTPClient(&http.Client{Transport: pipeTransport{body: body}}),
		WithEventChannel(events, log.InfoChannelLevel))
	go func() {
		for i := 0; i < 40; i++ {
			if _, err := io.WriteString(pw, `{"message":{"role":"assistant","content":"x"},"done":false}`+"\n"); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	chunks := client.ChatChan(ctx, "hi")
	require.Eventually(t, func() bool {
		return len(chunks) == cap(chunks)
	}, 5*time.Second, 5*time.Millisecond)
	cancel()

	timeout := time.After(5 * time.Second)
	for failed := false; !failed; {
		select {
		case event := <-events:
			failed = event.Type == log.ErrorEventType && event.Component == log.SessionComponent
		case <-timeout:
			t.Fatal("the turn did not fail after cancellation")
		}
	}
	// the goroutine must now exit without anyone receiving
	time.Sleep(50 * time.Millisecond)

	count := 0
	for chunk := range chunks {
		assert.False(t, chunk.Done)
		count++
	}
	assert.Equal(t, cap(chunks), count)
	assert.True(t, body.closed.Load())
}
