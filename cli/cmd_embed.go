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
	"github.com/spf13/cobra"
)

var embedOutput string

var embedCmd = &cobra.Command{
	Use:   "embed <text>...",
	Short: "Computes the embeddings of the given texts",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := initClient(cmd)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		embeddings, err := client.Embed(cmd.Context(), args...)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		if err := printStructured(cmd.OutOrStdout(), embeddings, embedOutput); err != nil {
			cmd.PrintErrln(err)
		}
	},
}

func init() {
	embedCmd.Flags().StringVarP(&embedOutput, "output", "o", formatJSON, "output format, json or yaml")
}
