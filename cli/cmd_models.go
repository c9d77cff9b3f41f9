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
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/theirish81/ollamakit"
	"github.com/theirish81/ollamakit/evaluators"
)

const (
	sortBySize = "size"
	sortByName = "name"
)

const defaultModelTemplate = "{{.name}}\t{{.human_size}}\t{{.family}}\t{{.parameter_size}}\t{{.quantization}}"

var (
	remote        bool
	where         string
	nameFilter    string
	sortBy        string
	modelTemplate string
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Lists the installed models",
	Long: `
Lists the installed models, or the remote catalog with --remote. --where filters with an expression evaluated against
each model, for example: size > bytes("4GB") && family == "llama".`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client, err := initClient(cmd)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		var models ollamakit.ModelList
		if remote {
			models, err = client.ListRemoteModels(cmd.Context())
		} else {
			models, err = client.ListLocalModels(cmd.Context())
		}
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		models, err = selectModels(models, nameFilter, where, sortBy)
		if err != nil {
			cmd.PrintErrln(err)
			return
		}
		out := cmd.OutOrStdout()
		if output == formatTemplate {
			err = printModels(out, models, modelTemplate)
		} else {
			err = printStructured(out, models, output)
		}
		if err != nil {
			cmd.PrintErrln(err)
		}
	},
}

func init() {
	modelsCmd.Flags().BoolVarP(&remote, "remote", "r", false, "list the remote catalog")
	modelsCmd.Flags().StringVarP(&where, "where", "w", "", "filter expression")
	modelsCmd.Flags().StringVarP(&nameFilter, "filter", "", "", "keep the models whose name contains the text")
	modelsCmd.Flags().StringVarP(&sortBy, "sort", "", sortByName, "sort by name or size")
	modelsCmd.Flags().StringVarP(&modelTemplate, "template", "", defaultModelTemplate, "row template")
	modelsCmd.Flags().StringVarP(&output, "output", "o", formatTemplate, "output format, template, json or yaml")
}

func selectModels(models ollamakit.ModelList, filter string, expression string, sort string) (ollamakit.ModelList, error) {
	if filter != "" {
		models = models.FilterByName(filter)
	}
	if expression != "" {
		var err error
		if models, err = models.Where(expression); err != nil {
			return nil, err
		}
	}
	switch sort {
	case sortByName:
		return models.SortByName(), nil
	case sortBySize:
		return models.SortBySize(true), nil
	default:
		return nil, fmt.Errorf("unknown sort key: %s", sort)
	}
}

// printModels renders one row per model with the template, aligned in columns, followed by the total size.
func printModels(out io.Writer, models ollamakit.ModelList, template string) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, model := range models {
		row, err := evaluators.EvaluateTemplate(template, model.Scope())
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(tw, row)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d models, %s\n", len(models), humanize.Bytes(uint64(models.TotalSize())))
	return err
}
