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
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleModels() ModelList {
	modified := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return ModelList{
		{Name: "qwen3:latest", Size: 5_200_000_000, ModifiedAt: &modified,
			Details: &ModelDetails{Family: "qwen3", ParameterSize: "8.2B", QuantizationLevel: "Q4_K_M"}},
		{Name: "llama3.2:1b", Size: 1_300_000_000, Details: &ModelDetails{Family: "llama", ParameterSize: "1.2B"}},
		{Name: "nomic-embed-text:latest", Size: 274_000_000},
	}
}

func TestModelList_Lookup(t *testing.T) {
	models := sampleModels()
	assert.Equal(t, []string{"qwen3:latest", "llama3.2:1b", "nomic-embed-text:latest"}, models.Names())
	assert.True(t, models.Contains("qwen3"))
	assert.True(t, models.Contains("qwen3:latest"))
	assert.False(t, models.Contains("llama3.2"))
	assert.True(t, models.Contains("llama3.2:1b"))

	m, ok := models.Find("nomic-embed-text")
	require.True(t, ok)
	assert.Equal(t, int64(274_000_000), m.Size)
	_, ok = models.Find("mistral")
	assert.False(t, ok)
}

func TestModelList_Filters(t *testing.T) {
	models := sampleModels()
	assert.Equal(t, []string{"llama3.2:1b"}, models.FilterByName("LLAMA").Names())

	filtered, err := models.Where(`size > bytes("1GB") && family != "llama"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"qwen3:latest"}, filtered.Names())

	filtered, err = models.Where(`modified_at > date("2025-01-01")`)
	require.NoError(t, err)
	assert.Equal(t, []string{"qwen3:latest"}, filtered.Names())

	filtered, err = models.Where(`parameter_size == ""`)
	require.NoError(t, err)
	assert.Equal(t, []string{"nomic-embed-text:latest"}, filtered.Names())

	_, err = models.Where(`size +`)
	assert.Error(t, err)
	_, err = models.Where(`name`)
	assert.Error(t, err)
}

func TestModelList_Sorting(t *testing.T) {
	models := sampleModels()
	assert.Equal(t, []string{"nomic-embed-text:latest", "llama3.2:1b", "qwen3:latest"},
		models.SortBySize(false).Names())
	assert.Equal(t, []string{"qwen3:latest", "llama3.2:1b", "nomic-embed-text:latest"},
		models.SortBySize(true).Names())
	assert.Equal(t, []string{"llama3.2:1b", "nomic-embed-text:latest", "qwen3:latest"}, models.SortByName().Names())
	assert.Equal(t, "qwen3:latest", models[0].Name)
}

func TestModelList_Sizes(t *testing.T) {
	models := sampleModels()
	assert.Equal(t, int64(6_774_000_000), models.TotalSize())
	assert.Equal(t, int64(1_300_000_000), models.SizeMap()["llama3.2:1b"])
	assert.Equal(t, "5.2 GB", models[0].HumanSize())
	assert.Equal(t, "0 B", ModelInfo{Size: -1}.HumanSize())
	assert.Equal(t, int64(0), ModelList{}.TotalSize())
}

const tagsBody = `{"models":[
	{"name":"qwen3:latest","model":"qwen3:latest","size":5200000000,"digest":"abc",
	 "modified_at":"2025-03-01T10:00:00Z","details":{"family":"qwen3","parameter_size":"8.2B"}},
	{"name":"llama3.2:1b","size":1300000000}
]}`

func TestClient_ListLocalModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(tagsBody))
	}))
	defer srv.Close()
	client := newTestClient(t, testConfig(srv.URL))

	models, err := client.ListLocalModels(t.Context())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "qwen3", models[0].Details.Family)
	require.NotNil(t, models[0].ModifiedAt)
	assert.Equal(t, 2025, models[0].ModifiedAt.Year())
	assert.Nil(t, models[1].ModifiedAt)
}

func TestClient_ListRemoteModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, testConfig("http://localhost:1"))
	_, err := client.ListRemoteModels(t.Context())
	assert.Error(t, err)

	cfg := testConfig("http://localhost:1")
	cfg.RegistryURL = srv.URL
	client = newTestClient(t, cfg)
	models, err := client.ListRemoteModels(t.Context())
	require.NoError(t, err)
	assert.Empty(t, models)
}

func TestClient_ListModels_Retries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(tagsBody))
	}))
	defer srv.Close()
	cfg := testConfig(srv.URL)
	cfg.Retries = 2
	client := newTestClient(t, cfg)

	models, err := client.ListLocalModels(t.Context())
	require.NoError(t, err)
	assert.Len(t, models, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ListModels_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer srv.Close()
	cfg := testConfig(srv.URL)
	cfg.Retries = 3
	client := newTestClient(t, cfg)

	_, err := client.ListLocalModels(t.Context())
	assert.True(t, IsTransport(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ListModels_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":`))
	}))
	defer srv.Close()
	client := newTestClient(t, testConfig(srv.URL))
	_, err := client.ListLocalModels(t.Context())
	assert.True(t, IsProtocol(err))
}
