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
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/theirish81/ollamakit/util"
)

// Arguments are the bound arguments of a tool call. Integers are int64, numbers float64, objects map[string]any and
// arrays []any.
type Arguments map[string]any

func (a Arguments) Has(name string) bool {
	_, ok := a[name]
	return ok
}

func (a Arguments) String(name string) string {
	s, _ := a[name].(string)
	return s
}

func (a Arguments) Int(name string) int64 {
	switch t := a[name].(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	case int:
		return int64(t)
	}
	return 0
}

func (a Arguments) Float(name string) float64 {
	switch t := a[name].(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	}
	return 0
}

func (a Arguments) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

func (a Arguments) Map(name string) map[string]any {
	m, _ := a[name].(map[string]any)
	return m
}

func (a Arguments) Slice(name string) []any {
	s, _ := a[name].([]any)
	return s
}

// Decode decodes the arguments into target, a pointer to a struct or map, using `json` tags. Structs are then
// checked against their `validate` tags.
func (a Arguments) Decode(target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]any(a)); err != nil {
		return err
	}
	v := reflect.ValueOf(target)
	if v.Kind() == reflect.Pointer && v.Elem().Kind() == reflect.Struct {
		if err := validate.Struct(target); err != nil {
			var vErrs validator.ValidationErrors
			if errors.As(err, &vErrs) && len(vErrs) > 0 {
				return fmt.Errorf("argument %s failed on %s", vErrs[0].Field(), vErrs[0].Tag())
			}
			return err
		}
	}
	return nil
}

// BindArguments resolves the declared parameters of the tool from the raw arguments sent by the model. Lookup is by
// exact name and undeclared keys are ignored. A parameter that is missing (or null) takes its default, is skipped
// when optional, and is an ArgumentBindingError otherwise.
func BindArguments(tool Tool, raw map[string]any) (Arguments, error) {
	args := make(Arguments, len(tool.Parameters))
	for _, p := range tool.Parameters {
		value, ok := raw[p.Name]
		if !ok || value == nil {
			switch {
			case p.Default != nil:
				value = p.Default
			case p.Optional:
				continue
			default:
				return nil, bindingError(tool.Name, p.Name, nil, "missing argument")
			}
		}
		coerced, err := coerce(p.Type, value)
		if err != nil {
			return nil, bindingError(tool.Name, p.Name, err, "cannot bind %v as %s", value, p.Type)
		}
		if err := p.schema().Validate(coerced, nil); err != nil {
			return nil, bindingError(tool.Name, p.Name, err, "invalid value")
		}
		args[p.Name] = coerced
	}
	return args, nil
}

func bindingError(tool string, param string, cause error, format string, a ...any) *Error {
	return newError(ArgumentBindingError, "bind "+tool+"."+param, cause, format, a...)
}

func coerce(t ParameterType, value any) (any, error) {
	switch t {
	case TypeString:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case TypeInteger:
		switch v := value.(type) {
		case float64:
			if v != math.Trunc(v) || math.IsInf(v, 0) {
				return nil, errors.New("not a whole number")
			}
			if v < math.MinInt64 || v >= math.MaxInt64 {
				return nil, errors.New("out of range")
			}
			return int64(v), nil
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case string:
			return util.StringToInt64(v)
		}
	case TypeNumber:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			return util.StringToFloat64(v)
		}
	case TypeBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
	case TypeObject:
		if m, ok := value.(map[string]any); ok {
			return m, nil
		}
	case TypeArray:
		if s, ok := value.([]any); ok {
			return s, nil
		}
	default:
		return nil, fmt.Errorf("unknown parameter type %q", t)
	}
	return nil, fmt.Errorf("unexpected %T", value)
}
