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

package schema

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const Object = "object"
const String = "string"
const Integer = "integer"
const Number = "number"
const Boolean = "boolean"
const Array = "array"

// Schema represents the subset of JSON schema understood by Ollama, both for tool parameters and for the `format`
// field of structured outputs.
type Schema struct {
	AnyOf         []*Schema          `json:"anyOf,omitempty" yaml:"anyOf,omitempty"`
	Default       any                `json:"default,omitempty" yaml:"default,omitempty"`
	Description   string             `json:"description,omitempty" yaml:"description,omitempty"`
	Enum          []string           `json:"enum,omitempty" yaml:"enum,omitempty"`
	Format        string             `json:"format,omitempty" yaml:"format,omitempty"`
	Items         *Schema            `json:"items,omitempty" yaml:"items,omitempty"`
	MaxItems      *int64             `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
	MaxLength     *int64             `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	MaxProperties *int64             `json:"maxProperties,omitempty" yaml:"maxProperties,omitempty"`
	Maximum       *float64           `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	MinItems      *int64             `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MinLength     *int64             `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MinProperties *int64             `json:"minProperties,omitempty" yaml:"minProperties,omitempty"`
	Minimum       *float64           `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Nullable      *bool              `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Pattern       string             `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Properties    map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required      []string           `json:"required,omitempty" yaml:"required,omitempty"`
	Title         string             `json:"title,omitempty" yaml:"title,omitempty"`
	Type          string             `json:"type,omitempty" yaml:"type,omitempty"`
}

// NewObject returns an empty object schema, ready to receive properties.
func NewObject() *Schema {
	return &Schema{
		Type:       Object,
		Properties: make(map[string]*Schema),
		Required:   make([]string, 0),
	}
}

// WithProperty adds a property to an object schema. When required is true, the property name is added to the
// required list (once).
func (s *Schema) WithProperty(name string, property *Schema, required bool) *Schema {
	if s.Properties == nil {
		s.Properties = make(map[string]*Schema)
	}
	s.Properties[name] = property
	if required && !slices.Contains(s.Required, name) {
		s.Required = append(s.Required, name)
	}
	return s
}

// FromYAML unmarshals a YAML document into the Schema.
func (s *Schema) FromYAML(data []byte) error {
	return yaml.Unmarshal(data, s)
}

// FromJSON unmarshals a JSON document into the Schema.
func (s *Schema) FromJSON(data []byte) error {
	return json.Unmarshal(data, s)
}

// IsKnownType returns true if the type is one of the JSON schema primitive types.
func IsKnownType(t string) bool {
	return slices.Contains([]string{Object, String, Integer, Number, Boolean, Array}, t)
}

func (s *Schema) String() string {
	if s == nil {
		return "<nil>"
	}
	if s.Type == Object {
		keys := make([]string, 0, len(s.Properties))
		for k := range s.Properties {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return fmt.Sprintf("object{%s}", strings.Join(keys, ","))
	}
	return s.Type
}
