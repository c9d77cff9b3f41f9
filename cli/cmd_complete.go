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
)

var completeCmd = &cobra.Command{
	Use:   "complete <prompt>",
	Short: "Runs a one-shot completion",
	Long:  "Runs a one-shot completion. The conversation history is neither sent nor stored.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := initClient(cmd)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		options, err := callOptions()
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		response, err := client.Complete(cmd.Context(), args[0], options...)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), response)
	},
}

func init() {
	completeCmd.Flags().StringVarP(&formatFile, "format-file", "f", "", "JSON schema file the reply must conform to")
}
