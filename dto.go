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
	"time"

	"github.com/theirish81/ollamakit/schema"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a conversation message, as exchanged with the chat endpoint and recorded in the history.
type Message struct {
	Role      string     `json:"role"`
	Content   *string    `json:"content"`
	Thinking  string     `json:"thinking,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	ToolName  string     `json:"tool_name,omitempty"`
}

// NewMessage creates a message with the given role and text.
func NewMessage(role string, text string) Message {
	return Message{Role: role, Content: &text}
}

// Text returns the message content, or an empty string when the message has none.
func (m Message) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

// ToolCall is a completed function invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall represents a function call
type FunctionCall struct {
	Index     int            `json:"index"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Options are the model parameters sent with every request.
type Options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	TopK        float32 `json:"top_k,omitempty"`
	TopP        float32 `json:"top_p,omitempty"`
}

// ChatRequest represents a request to the chat endpoint
type ChatRequest struct {
	Model    string           `json:"model"`
	Messages []Message        `json:"messages"`
	Format   *schema.Schema   `json:"format,omitempty"`
	Stream   bool             `json:"stream"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Options  Options          `json:"options,omitempty"`
}

type ToolDefinition struct {
	Type     string      `json:"type" yaml:"type"`
	Function FunctionDef `json:"function" yaml:"function"`
}

func (t ToolDefinition) String() string {
	return t.Function.Name
}

// FunctionDef represents a function definition
type FunctionDef struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Parameters  *schema.Schema `json:"parameters" yaml:"parameters"`
}

// StreamEvent is one line of the chat stream.
type StreamEvent struct {
	Model              string         `json:"model"`
	CreatedAt          *time.Time     `json:"created_at,omitempty"`
	Message            *StreamMessage `json:"message,omitempty"`
	Done               bool           `json:"done"`
	DoneReason         string         `json:"done_reason,omitempty"`
	Error              string         `json:"error,omitempty"`
	TotalDuration      int64          `json:"total_duration,omitempty"`
	LoadDuration       int64          `json:"load_duration,omitempty"`
	PromptEvalCount    int            `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64          `json:"prompt_eval_duration,omitempty"`
	EvalCount          int            `json:"eval_count,omitempty"`
	EvalDuration       int64          `json:"eval_duration,omitempty"`
}

// StreamMessage is the incremental message fragment carried by a StreamEvent.
type StreamMessage struct {
	Role      string             `json:"role,omitempty"`
	Content   string             `json:"content,omitempty"`
	Thinking  string             `json:"thinking,omitempty"`
	ToolCalls []ToolCallFragment `json:"tool_calls,omitempty"`
}

// ToolCallFragment is a possibly partial tool call.
type ToolCallFragment struct {
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function FunctionFragment `json:"function"`
}

// FunctionFragment carries the call key, the function name and a slice of the arguments.
type FunctionFragment struct {
	Index     *int             `json:"index,omitempty"`
	Name      string           `json:"name,omitempty"`
	Arguments ArgumentFragment `json:"arguments"`
}

// TurnStats are the usage figures reported by the terminal stream event.
type TurnStats struct {
	DoneReason      string
	PromptEvalCount int
	EvalCount       int
	TotalDuration   time.Duration
	LoadDuration    time.Duration
	EvalDuration    time.Duration
}

func statsOf(ev StreamEvent) TurnStats {
	return TurnStats{
		DoneReason:      ev.DoneReason,
		PromptEvalCount: ev.PromptEvalCount,
		EvalCount:       ev.EvalCount,
		TotalDuration:   time.Duration(ev.TotalDuration),
		LoadDuration:    time.Duration(ev.LoadDuration),
		EvalDuration:    time.Duration(ev.EvalDuration),
	}
}

// GenerateRequest represents a request to the generate endpoint
type GenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Format  *schema.Schema `json:"format,omitempty"`
	Stream  bool           `json:"stream"`
	Options Options        `json:"options,omitempty"`
}

// GenerateResponse represents a non-streamed response of the generate endpoint
type GenerateResponse struct {
	Model      string `json:"model"`
	Response   string `json:"response"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`
}

// EmbedRequest represents a request to the embed endpoint
type EmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbedResponse represents a response of the embed endpoint
type EmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// PullRequest represents a request to the pull endpoint
type PullRequest struct {
	Model    string `json:"model"`
	Insecure bool   `json:"insecure,omitempty"`
	Stream   bool   `json:"stream"`
}

// PullProgress is one line of the pull stream.
type PullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Percent returns the completion percentage of the current layer, or -1 when the server did not report a total.
func (p PullProgress) Percent() float64 {
	if p.Total <= 0 {
		return -1
	}
	return float64(p.Completed) * 100 / float64(p.Total)
}

type errorResponse struct {
	Error string `json:"error"`
}
