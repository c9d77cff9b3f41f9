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
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/theirish81/ollamakit/schema"
)

// ParameterType is the JSON type of a tool parameter.
type ParameterType string

const (
	TypeString  ParameterType = schema.String
	TypeInteger ParameterType = schema.Integer
	TypeNumber  ParameterType = schema.Number
	TypeBoolean ParameterType = schema.Boolean
	TypeObject  ParameterType = schema.Object
	TypeArray   ParameterType = schema.Array
)

// Parameter declares one named argument of a tool.
// Default is bound when the model omits the argument. Optional parameters without a default are simply left out.
// Schema refines the parameter (nested properties, items, bounds); Type, Description and Enum override its fields.
type Parameter struct {
	Name        string         `json:"name" yaml:"name"`
	Type        ParameterType  `json:"type" yaml:"type"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Default     any            `json:"default,omitempty" yaml:"default,omitempty"`
	Optional    bool           `json:"optional,omitempty" yaml:"optional,omitempty"`
	Enum        []string       `json:"enum,omitempty" yaml:"enum,omitempty"`
	Schema      *schema.Schema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

func (p Parameter) required() bool {
	return !p.Optional && p.Default == nil
}

// schema returns the JSON schema of the parameter.
func (p Parameter) schema() *schema.Schema {
	s := &schema.Schema{}
	if p.Schema != nil {
		cpy := *p.Schema
		s = &cpy
	}
	s.Type = string(p.Type)
	if p.Description != "" {
		s.Description = p.Description
	}
	if len(p.Enum) > 0 {
		s.Enum = p.Enum
	}
	if p.Default != nil {
		s.Default = p.Default
	}
	return s
}

// ToolHandler is the capability invoked when the model calls a tool.
type ToolHandler interface {
	Invoke(ctx context.Context, args Arguments) (any, error)
}

// ToolHandlerFunc adapts a function to ToolHandler.
type ToolHandlerFunc func(ctx context.Context, args Arguments) (any, error)

func (f ToolHandlerFunc) Invoke(ctx context.Context, args Arguments) (any, error) {
	return f(ctx, args)
}

// Tool pairs a function declaration with its handler.
type Tool struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Parameters  []Parameter `json:"parameters" yaml:"parameters"`
	Handler     ToolHandler `json:"-" yaml:"-"`
}

func (t Tool) String() string {
	names := make([]string, 0, len(t.Parameters))
	for _, p := range t.Parameters {
		names = append(names, p.Name)
	}
	return fmt.Sprintf("%s(%s)", t.Name, strings.Join(names, ", "))
}

// Validate checks that the tool can be offered to the model.
func (t Tool) Validate() error {
	if t.Name == "" {
		return errors.New("tool name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s has no handler", t.Name)
	}
	seen := make([]string, 0, len(t.Parameters))
	for _, p := range t.Parameters {
		if p.Name == "" {
			return fmt.Errorf("tool %s has a parameter without a name", t.Name)
		}
		if slices.Contains(seen, p.Name) {
			return fmt.Errorf("tool %s declares parameter %s twice", t.Name, p.Name)
		}
		if !schema.IsKnownType(string(p.Type)) {
			return fmt.Errorf("tool %s: parameter %s has unknown type %q", t.Name, p.Name, p.Type)
		}
		seen = append(seen, p.Name)
	}
	return nil
}

// Definition translates the tool into the function-calling format of the chat endpoint.
func (t Tool) Definition() ToolDefinition {
	params := schema.NewObject()
	for _, p := range t.Parameters {
		params.WithProperty(p.Name, p.schema(), p.required())
	}
	return ToolDefinition{
		Type: "function",
		Function: FunctionDef{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		},
	}
}

// invoke binds the raw arguments and runs the handler. A panicking handler is reported as a ToolInvocationError.
func (t Tool) invoke(ctx context.Context, op string, raw map[string]any) (result string, err error) {
	args, err := BindArguments(t, raw)
	if err != nil {
		return "", err
	}
	defer func() {
		if r := recover(); r != nil {
			err = newError(ToolInvocationError, op, nil, "tool %s panicked: %v", t.Name, r)
		}
	}()
	out, err := t.Handler.Invoke(ctx, args)
	if err != nil {
		return "", newError(ToolInvocationError, op, err, "tool %s failed", t.Name)
	}
	result, err = stringifyResult(out)
	if err != nil {
		return "", newError(ToolInvocationError, op, err, "tool %s returned an unserializable result", t.Name)
	}
	return result, nil
}

// stringifyResult renders a handler result as the visible message content.
func stringifyResult(out any) (string, error) {
	switch t := out.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case fmt.Stringer:
		return t.String(), nil
	case error:
		return t.Error(), nil
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// ToolRegistry holds the tools a client can activate by name.
type ToolRegistry struct {
	tools *SafeMap[string, Tool]
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: NewSafeMap[string, Tool]()}
}

// Register adds a tool. Names are unique.
func (r *ToolRegistry) Register(tool Tool) error {
	if err := tool.Validate(); err != nil {
		return err
	}
	if !r.tools.StoreIfAbsent(tool.Name, tool) {
		return fmt.Errorf("tool %s is already registered", tool.Name)
	}
	return nil
}

func (r *ToolRegistry) Get(name string) (Tool, bool) {
	return r.tools.Load(name)
}

// List returns the registered tools, sorted by name.
func (r *ToolRegistry) List() []Tool {
	tools := make([]Tool, 0, r.tools.Len())
	for _, t := range r.tools.Iter() {
		tools = append(tools, t)
	}
	slices.SortFunc(tools, func(a, b Tool) int {
		return strings.Compare(a.Name, b.Name)
	})
	return tools
}
