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

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/theirish81/ollamakit"
)

var pullCmd = &cobra.Command{
	Use:   "pull <model>",
	Short: "Downloads a model",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := initClient(cmd)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		out := cmd.OutOrStdout()
		observer := ollamakit.PullObserverFunc(func(progress ollamakit.PullProgress) {
			_, _ = fmt.Fprintln(out, formatProgress(progress))
		})
		if err := client.Pull(cmd.Context(), args[0], observer); err != nil {
			cmd.PrintErrln(err)
		}
	},
}

func formatProgress(progress ollamakit.PullProgress) string {
	if progress.Percent() < 0 {
		return progress.Status
	}
	return fmt.Sprintf("%s %s/%s (%.0f%%)", progress.Status, humanize.Bytes(uint64(progress.Completed)),
		humanize.Bytes(uint64(progress.Total)), progress.Percent())
}
