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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theirish81/ollamakit"
	"github.com/theirish81/ollamakit/evaluators"
	"github.com/theirish81/ollamakit/schema"
	"gopkg.in/yaml.v3"
)

const defaultToolsFile = "tools.yaml"

// toolsConfig is the content of the tools file.
type toolsConfig struct {
	Tools []toolConfig `yaml:"tools"`
}

// toolConfig declares a tool whose handler is either an expr expression or a text template, both evaluated against
// the bound arguments.
type toolConfig struct {
	ollamakit.Tool `yaml:",inline"`
	Expression     string `yaml:"expression,omitempty"`
	Template       string `yaml:"template,omitempty"`
}

func (t toolConfig) build() (ollamakit.Tool, error) {
	tool := t.Tool
	switch {
	case t.Expression != "" && t.Template != "":
		return tool, fmt.Errorf("tool %s declares both an expression and a template", tool.Name)
	case t.Expression != "":
		expression := t.Expression
		tool.Handler = ollamakit.ToolHandlerFunc(func(_ context.Context, args ollamakit.Arguments) (any, error) {
			return evaluators.EvaluateExpression(expression, evaluators.EvalScope(args))
		})
	case t.Template != "":
		template := t.Template
		tool.Handler = ollamakit.ToolHandlerFunc(func(_ context.Context, args ollamakit.Arguments) (any, error) {
			return evaluators.EvaluateTemplate(template, evaluators.EvalScope(args))
		})
	default:
		return tool, fmt.Errorf("tool %s needs an expression or a template", tool.Name)
	}
	return tool, tool.Validate()
}

// builtinTools are always registered.
func builtinTools() []ollamakit.Tool {
	return []ollamakit.Tool{
		{
			Name:        "current_time",
			Description: "returns the current date and time, optionally in the given IANA time zone",
			Parameters: []ollamakit.Parameter{
				{Name: "timezone", Type: ollamakit.TypeString, Description: "IANA time zone, e.g. Europe/Rome", Default: "UTC"},
			},
			Handler: ollamakit.ToolHandlerFunc(func(_ context.Context, args ollamakit.Arguments) (any, error) {
				loc, err := time.LoadLocation(args.String("timezone"))
				if err != nil {
					return nil, err
				}
				return time.Now().In(loc).Format(time.RFC1123), nil
			}),
		},
	}
}

// readToolsFile reads the tools file. A missing default tools file is not an error.
func readToolsFile() ([]ollamakit.Tool, error) {
	path := toolsFile
	if path == "" {
		path = defaultToolsFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if toolsFile == "" && errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return parseTools(data)
}

func parseTools(data []byte) ([]ollamakit.Tool, error) {
	cfg := toolsConfig{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	tools := make([]ollamakit.Tool, 0, len(cfg.Tools))
	for _, t := range cfg.Tools {
		tool, err := t.build()
		if err != nil {
			return nil, err
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

// loadTools returns the builtin tools followed by the tools file ones.
func loadTools() ([]ollamakit.Tool, error) {
	tools, err := readToolsFile()
	if err != nil {
		return nil, err
	}
	return append(builtinTools(), tools...), nil
}

// readSchemaFile reads a JSON schema from a yaml or json file.
func readSchemaFile(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := &schema.Schema{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = s.FromJSON(data)
	} else {
		err = s.FromYAML(data)
	}
	return s, err
}
