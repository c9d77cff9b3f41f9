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
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/theirish81/ollamakit"
)

// newLogger returns a debug logger on stderr when --debug is set, the default logger otherwise.
func newLogger() *slog.Logger {
	if debug {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.Default()
}

// initClient loads the configuration and builds a client with the builtin tools and the tools file registered.
func initClient(cmd *cobra.Command, options ...ollamakit.ClientOption) (*ollamakit.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	tools, err := loadTools()
	if err != nil {
		return nil, err
	}
	options = append([]ollamakit.ClientOption{
		ollamakit.WithLogger(newLogger()),
		ollamakit.WithTools(tools...),
	}, options...)
	return ollamakit.NewClient(cfg, options...)
}

// callOptions turns the --tool, --format-file and --system-prompt flags into call options.
func callOptions() ([]ollamakit.CallOption, error) {
	var options []ollamakit.CallOption
	if toolName != "" {
		options = append(options, ollamakit.WithToolName(toolName))
	}
	if formatFile != "" {
		format, err := readSchemaFile(formatFile)
		if err != nil {
			return nil, err
		}
		options = append(options, ollamakit.WithFormat(format))
	}
	return options, nil
}
