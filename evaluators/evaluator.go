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

package evaluators

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// EvalScope is the scope for evaluating expressions and templates.
type EvalScope map[string]any

// With returns a copy of the scope with the given key set.
func (e EvalScope) With(key string, value any) EvalScope {
	out := make(EvalScope, len(e)+1)
	for k, v := range e {
		out[k] = v
	}
	out[key] = value
	return out
}

// EvaluateTemplate evaluates a Golang template with the given scope.
func EvaluateTemplate(text string, scope EvalScope) (string, error) {
	if scope == nil || !strings.Contains(text, "{{") {
		return text, nil
	}
	parsedTmpl, err := template.New("tpl").Funcs(templateFuncs).Parse(text)
	if err != nil {
		return text, err
	}
	writer := bytes.NewBufferString("")
	if err := parsedTmpl.Execute(writer, map[string]any(scope)); err != nil {
		return text, err
	}
	return writer.String(), nil
}

// EvaluateExpression evaluates an expression with the given scope using expr.
func EvaluateExpression(expression string, scope EvalScope) (any, error) {
	c, err := expr.Compile(expression, append(exprFunctions(), expr.Env(map[string]any(scope)))...)
	if err != nil {
		return nil, err
	}
	return expr.Run(c, map[string]any(scope))
}

// CompileBooleanExpression compiles an expression that must evaluate to a boolean. The sample scope defines the
// variables and their types.
func CompileBooleanExpression(expression string, sample EvalScope) (*vm.Program, error) {
	return expr.Compile(expression, append(exprFunctions(), expr.Env(map[string]any(sample)), expr.AsBool())...)
}

// RunBooleanExpression runs a program obtained by CompileBooleanExpression.
func RunBooleanExpression(program *vm.Program, scope EvalScope) (bool, error) {
	res, err := expr.Run(program, map[string]any(scope))
	if err != nil {
		return false, err
	}
	if b, ok := res.(bool); ok {
		return b, nil
	}
	return false, errors.New("return type is not a boolean")
}

// EvaluateBooleanExpression evaluates a boolean expression with the given scope using expr.
func EvaluateBooleanExpression(expression string, scope EvalScope) (bool, error) {
	program, err := CompileBooleanExpression(expression, scope)
	if err != nil {
		return false, err
	}
	return RunBooleanExpression(program, scope)
}

// templateFuncs are the functions available in the templates.
var templateFuncs = template.FuncMap{
	"json": func(v any) string {
		data, _ := json.MarshalIndent(v, "", " ")
		return string(data)
	},
	"bytes": func(size int64) string {
		if size < 0 {
			size = 0
		}
		return humanize.Bytes(uint64(size))
	},
}

func exprFunctions() []expr.Option {
	return []expr.Option{
		// bytes("4GB") turns a human readable size into a number of bytes
		expr.Function("bytes",
			func(params ...any) (any, error) {
				s, ok := params[0].(string)
				if !ok {
					return nil, errors.New("bytes function expects a string as input")
				}
				size, err := humanize.ParseBytes(s)
				if err != nil {
					return nil, err
				}
				return int64(size), nil
			}, new(func(string) int64)),
	}
}
