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
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/theirish81/ollamakit"
)

var helloStream = []string{
	`{"model":"test-model","message":{"role":"assistant","content":"Hel"},"done":false}`,
	`{"model":"test-model","message":{"role":"assistant","content":"lo"},"done":true,"done_reason":"stop","eval_count":2}`,
}

// newOllamaServer fakes the Ollama endpoints used by the commands. Chat requests are answered with chatLines.
func newOllamaServer(t *testing.T, chatLines []string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, line := range chatLines {
			_, _ = io.WriteString(w, line+"\n")
			w.(http.Flusher).Flush()
		}
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"models":[
			{"name":"small:latest","size":1000,"details":{"family":"llama","parameter_size":"1B"}},
			{"name":"big:latest","size":5000000000,"details":{"family":"qwen","parameter_size":"8B"}}
		]}`)
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"model":"test-model","response":"forty-two","done":true}`)
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"model":"test-model","embeddings":[[0.5,0.25]]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, host string, options ...ollamakit.ClientOption) *ollamakit.Client {
	t.Helper()
	cfg := ollamakit.DefaultConfig()
	cfg.Host = host
	cfg.Model = "test-model"
	cfg.Retries = 0
	cfg.AutoInstall = false
	options = append([]ollamakit.ClientOption{ollamakit.WithLogger(discardLogger())}, options...)
	client, err := ollamakit.NewClient(cfg, options...)
	require.NoError(t, err)
	return client
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
