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
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/theirish81/ollamakit"
)

const (
	replPrompt  = ">>> "
	replExit    = "/bye"
	replReset   = "/reset"
	replHistory = "/history"
)

var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Chats with the model",
	Long: `
Chats with the model. With a prompt, runs one turn and exits. Without, starts an interactive session: type /reset to
clear the conversation, /history to print it and /bye to leave.`,
	Args: cobra.MaximumNArgs(1),
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
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			if err := streamTurn(cmd.Context(), out, client, args[0], options); err != nil {
				cmd.PrintErrln(err)
			}
			return
		}
		repl(cmd, client, options)
	},
}

func init() {
	chatCmd.Flags().StringVarP(&toolName, "tool", "t", "", "tool the model may call in each turn")
	chatCmd.Flags().StringVarP(&toolsFile, "tools-file", "", "", "tools file, defaults to "+defaultToolsFile)
	chatCmd.Flags().StringVarP(&formatFile, "format-file", "f", "", "JSON schema file the reply must conform to")
}

func repl(cmd *cobra.Command, client *ollamakit.Client, options []ollamakit.CallOption) {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	_, _ = fmt.Fprint(out, replPrompt)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case replExit:
			return
		case replReset:
			client.History().Reset()
		case replHistory:
			printHistory(out, client.History())
		default:
			if err := streamTurn(cmd.Context(), out, client, line, options); err != nil {
				cmd.PrintErrln(err)
			}
		}
		_, _ = fmt.Fprint(out, replPrompt)
	}
}

// streamTurn prints the reply as it streams. When a tool ran, the tool results are printed after the model output.
func streamTurn(ctx context.Context, out io.Writer, client *ollamakit.Client, prompt string,
	options []ollamakit.CallOption) error {
	for chunk := range client.ChatChan(ctx, prompt, options...) {
		if !chunk.Done {
			_, _ = fmt.Fprint(out, chunk.Content)
			continue
		}
		if chunk.Err != nil {
			_, _ = fmt.Fprintln(out)
			return chunk.Err
		}
		if len(chunk.Result.ToolResults) > 0 {
			_, _ = fmt.Fprint(out, chunk.Result.Text())
		}
		_, _ = fmt.Fprintln(out)
	}
	return nil
}

func printHistory(out io.Writer, history ollamakit.History) {
	for _, msg := range history.Snapshot() {
		_, _ = fmt.Fprintf(out, "[%s] %s\n", msg.Role, msg.Text())
	}
}
