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
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const maskedSecret = "********"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Prints the current configuration",
	Long:  "Prints the current configuration. It will additionally print the tools the model can be offered.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		if cfg.APIKey != "" {
			cfg.APIKey = maskedSecret
		}
		out := cmd.OutOrStdout()
		globalConfig, _ := yaml.Marshal(cfg)
		_, _ = fmt.Fprintln(out, "==== GLOBAL CONFIG ====")
		_, _ = fmt.Fprintln(out, string(globalConfig))

		tools, err := loadTools()
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		definitions := make([]any, 0, len(tools))
		for _, tool := range tools {
			definitions = append(definitions, tool.Definition())
		}
		toolsText, _ := yaml.Marshal(definitions)
		_, _ = fmt.Fprintln(out, "==== TOOLS CONFIG ====")
		_, _ = fmt.Fprintln(out, string(toolsText))
	},
}

func init() {
	configCmd.Flags().StringVarP(&toolsFile, "tools-file", "", "", "tools file, defaults to "+defaultToolsFile)
}
