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

	"github.com/jinzhu/copier"
)

// History is the ordered, append-only record of a conversation.
type History interface {
	// Append adds the messages at the end of the log as a single step. Concurrent appends never interleave.
	Append(msgs ...Message)
	// Snapshot returns a deep copy of the log.
	Snapshot() []Message
	Len() int
	Reset()
}

// MemoryHistory keeps the conversation in memory.
type MemoryHistory struct {
	mu       sync.RWMutex
	messages []Message
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{messages: make([]Message, 0)}
}

func (h *MemoryHistory) Append(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	cpy := cloneMessages(msgs)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, cpy...)
}

func (h *MemoryHistory) Snapshot() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return cloneMessages(h.messages)
}

func (h *MemoryHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

func (h *MemoryHistory) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = make([]Message, 0)
}

// NopHistory retains nothing. It is used when KeepHistory is off.
type NopHistory struct{}

func (NopHistory) Append(...Message) {}

func (NopHistory) Snapshot() []Message { return []Message{} }

func (NopHistory) Len() int { return 0 }

func (NopHistory) Reset() {}

func cloneMessages(msgs []Message) []Message {
	cpy := make([]Message, 0, len(msgs))
	if err := copier.CopyWithOption(&cpy, msgs, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on mismatched kinds, which cannot happen for identical slice types
		panic(err)
	}
	return cpy
}
