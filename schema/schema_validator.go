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
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/theirish81/ollamakit/util"
)

type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidatorOptions tunes the validator. With SoftValidation, numbers and booleans encoded as strings are accepted,
// which is what small models tend to produce in tool arguments.
type ValidatorOptions struct {
	SoftValidation bool
}

// Validate validates a decoded JSON value (maps, slices, strings, numbers, booleans, nil) against the schema.
func (s *Schema) Validate(data any, options *ValidatorOptions) error {
	softValidation := options != nil && options.SoftValidation
	return s.validate(data, "", softValidation)
}

func (s *Schema) validate(data any, path string, soft bool) error {
	if data == nil {
		if s.Nullable != nil && *s.Nullable {
			return nil
		}
		return &ValidationError{Path: path, Message: "value is null but schema is not nullable"}
	}
	if len(s.AnyOf) > 0 {
		for _, subSchema := range s.AnyOf {
			if err := subSchema.validate(data, path, soft); err == nil {
				return nil
			}
		}
		return &ValidationError{Path: path, Message: "value does not match any of the schemas in anyOf"}
	}
	switch s.Type {
	case Object:
		return s.validateObject(data, path, soft)
	case Array:
		return s.validateArray(data, path, soft)
	case String:
		return s.validateString(data, path)
	case Number, Integer:
		return s.validateNumber(data, path, soft)
	case Boolean:
		return s.validateBoolean(data, path, soft)
	case "":
		return nil
	default:
		return &ValidationError{Path: path, Message: fmt.Sprintf("unsupported type: %s", s.Type)}
	}
}

func (s *Schema) validateObject(data any, path string, soft bool) error {
	m, ok := data.(map[string]any)
	if !ok {
		return &ValidationError{Path: path, Message: fmt.Sprintf("expected object, got %T", data)}
	}
	if s.MinProperties != nil && int64(len(m)) < *s.MinProperties {
		return &ValidationError{Path: path, Message: fmt.Sprintf("object has %d properties, minimum is %d", len(m), *s.MinProperties)}
	}
	if s.MaxProperties != nil && int64(len(m)) > *s.MaxProperties {
		return &ValidationError{Path: path, Message: fmt.Sprintf("object has %d properties, maximum is %d", len(m), *s.MaxProperties)}
	}
	for _, req := range s.Required {
		if _, exists := m[req]; !exists {
			return &ValidationError{Path: path, Message: fmt.Sprintf("missing required property: %s", req)}
		}
	}
	for key, value := range m {
		propSchema, exists := s.Properties[key]
		if !exists {
			continue
		}
		if err := propSchema.validate(value, joinPath(path, key), soft); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) validateArray(data any, path string, soft bool) error {
	items, ok := data.([]any)
	if !ok {
		return &ValidationError{Path: path, Message: fmt.Sprintf("expected array, got %T", data)}
	}
	length := int64(len(items))
	if s.MinItems != nil && length < *s.MinItems {
		return &ValidationError{Path: path, Message: fmt.Sprintf("array has %d items, minimum is %d", length, *s.MinItems)}
	}
	if s.MaxItems != nil && length > *s.MaxItems {
		return &ValidationError{Path: path, Message: fmt.Sprintf("array has %d items, maximum is %d", length, *s.MaxItems)}
	}
	if s.Items == nil {
		return nil
	}
	for i, item := range items {
		if err := s.Items.validate(item, fmt.Sprintf("%s[%d]", path, i), soft); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) validateString(data any, path string) error {
	str, ok := data.(string)
	if !ok {
		return &ValidationError{Path: path, Message: fmt.Sprintf("expected string, got %T", data)}
	}
	if s.MinLength != nil && int64(len(str)) < *s.MinLength {
		return &ValidationError{Path: path, Message: fmt.Sprintf("string length is %d, minimum is %d", len(str), *s.MinLength)}
	}
	if s.MaxLength != nil && int64(len(str)) > *s.MaxLength {
		return &ValidationError{Path: path, Message: fmt.Sprintf("string length is %d, maximum is %d", len(str), *s.MaxLength)}
	}
	if s.Pattern != "" {
		matched, err := regexp.MatchString(s.Pattern, str)
		if err != nil {
			return &ValidationError{Path: path, Message: fmt.Sprintf("invalid pattern: %v", err)}
		}
		if !matched {
			return &ValidationError{Path: path, Message: fmt.Sprintf("string does not match pattern: %s", s.Pattern)}
		}
	}
	if len(s.Enum) > 0 && !slices.Contains(s.Enum, str) {
		return &ValidationError{Path: path, Message: fmt.Sprintf("value must be one of: %v", s.Enum)}
	}
	return nil
}

func (s *Schema) validateNumber(data any, path string, soft bool) error {
	var num float64
	switch t := data.(type) {
	case float64:
		num = t
	case float32:
		num = float64(t)
	case int:
		num = float64(t)
	case int64:
		num = float64(t)
	case int32:
		num = float64(t)
	case string:
		if !soft {
			return &ValidationError{Path: path, Message: "expected number, got string"}
		}
		f, err := util.StringToFloat64(t)
		if err != nil {
			return &ValidationError{Path: path, Message: fmt.Sprintf("expected number, got %q", t)}
		}
		num = f
	default:
		return &ValidationError{Path: path, Message: fmt.Sprintf("expected number, got %T", data)}
	}
	if s.Type == Integer && (num != math.Trunc(num) || math.IsInf(num, 0)) {
		return &ValidationError{Path: path, Message: "expected integer, got float"}
	}
	if s.Minimum != nil && num < *s.Minimum {
		return &ValidationError{Path: path, Message: fmt.Sprintf("value %v is less than minimum %v", num, *s.Minimum)}
	}
	if s.Maximum != nil && num > *s.Maximum {
		return &ValidationError{Path: path, Message: fmt.Sprintf("value %v is greater than maximum %v", num, *s.Maximum)}
	}
	return nil
}

func (s *Schema) validateBoolean(data any, path string, soft bool) error {
	switch t := data.(type) {
	case bool:
		return nil
	case string:
		if soft {
			if _, err := util.StringToBool(t); err == nil {
				return nil
			}
		}
	}
	return &ValidationError{Path: path, Message: fmt.Sprintf("expected boolean, got %T", data)}
}

func joinPath(path string, key string) string {
	if path == "" {
		return key
	}
	return strings.Join([]string{path, key}, ".")
}
