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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	configFile string
	debug      bool
	toolsFile  string
	toolName   string
	formatFile string
	output     string
	port       int
)

// supported output formats
const (
	formatTemplate = "template"
	formatYAML     = "yaml"
	formatJSON     = "json"
)

var rootCmd = cobra.Command{
	Use:   filepath.Base(os.Args[0]),
	Short: "an Ollama client as a CLI",
	Long: `
Chat with a local Ollama server, let the model call tools, run one-shot completions and embeddings, and manage the
installed models. Settings come from flags, OLLAMAKIT_* environment variables and an ollamakit.yaml (or .toml) file.`,
}

// addConfigFlags declares the flags that override the configuration.
func addConfigFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&configFile, "config", "c", "", "configuration file (yaml or toml)")
	flags.BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	flags.String("host", "", "Ollama server URL")
	flags.StringP("model", "m", "", "model name")
	flags.String("api-key", "", "bearer token sent to the server")
	flags.String("timeout", "", "request timeout, e.g. 30s or 5m")
	flags.Bool("auto-install", false, "pull the model when it is not installed")
	flags.Bool("no-history", false, "do not keep the conversation history")
	flags.StringP("system-prompt", "s", "", "system prompt")
}

func init() {
	addConfigFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(webCmd)
}
