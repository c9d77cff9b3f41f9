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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryHistory_AppendSnapshot(t *testing.T) {
	h := NewMemoryHistory()
	h.Append(NewMessage(RoleUser, "hi"), NewMessage(RoleAssistant, "hello"))
	assert.Equal(t, 2, h.Len())

	snap := h.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "hi", snap[0].Text())
	assert.Equal(t, RoleAssistant, snap[1].Role)

	*snap[0].Content = "tampered"
	assert.Equal(t, "hi", h.Snapshot()[0].Text())

	h.Reset()
	assert.Equal(t, 0, h.Len())
}

func TestMemoryHistory_DeepCopiesToolCalls(t *testing.T) {
	h := NewMemoryHistory()
	msg := NewMessage(RoleAssistant, "sunny")
	msg.ToolCalls = []ToolCall{{Function: FunctionCall{Name: "weather", Arguments: map[string]any{"city": "Paris"}}}}
	h.Append(msg)

	msg.ToolCalls[0].Function.Arguments["city"] = "Rome"
	snap := h.Snapshot()
	assert.Equal(t, "Paris", snap[0].ToolCalls[0].Function.Arguments["city"])
}

func TestMemoryHistory_ConcurrentAppendsKeepPairs(t *testing.T) {
	h := NewMemoryHistory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Append(NewMessage(RoleUser, "q"), NewMessage(RoleAssistant, "a"))
		}()
	}
	wg.Wait()
	snap := h.Snapshot()
	require.Len(t, snap, 100)
	for i := 0; i < len(snap); i += 2 {
		assert.Equal(t, RoleUser, snap[i].Role)
		assert.Equal(t, RoleAssistant, snap[i+1].Role)
	}
}

func TestNopHistory(t *testing.T) {
	var h History = NopHistory{}
	h.Append(NewMessage(RoleUser, "hi"))
	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.Snapshot())
}
