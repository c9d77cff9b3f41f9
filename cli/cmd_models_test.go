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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theirish81/ollamakit"
)

var testModels = ollamakit.ModelList{
	{Name: "qwen3:8b", Size: 5_200_000_000, Details: &ollamakit.ModelDetails{Family: "qwen3", ParameterSize: "8.2B"}},
	{Name: "llama3.2:1b", Size: 1_300_000_000, Details: &ollamakit.ModelDetails{Family: "llama", ParameterSize: "1.2B"}},
	{Name: "llama3.1:8b", Size: 4_900_000_000, Details: &ollamakit.ModelDetails{Family: "llama", ParameterSize: "8.0B"}},
}

func TestSelectModels(t *testing.T) {
	models, err := selectModels(testModels, "", "", sortByName)
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.1:8b", "llama3.2:1b", "qwen3:8b"}, models.Names())

	models, err = selectModels(testModels, "llama", "", sortBySize)
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.1:8b", "llama3.2:1b"}, models.Names())

	models, err = selectModels(testModels, "", `size > bytes("2GB")`, sortBySize)
	require.NoError(t, err)
	assert.Equal(t, []string{"qwen3:8b", "llama3.1:8b"}, models.Names())

	_, err = selectModels(testModels, "", "", "age")
	assert.Error(t, err)

	_, err = selectModels(testModels, "", "size >", sortByName)
	assert.Error(t, err)
}

func TestPrintModels(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, printModels(out, testModels.SortByName(), "{{.name}}\t{{.human_size}}"))
	assert.Equal(t, "llama3.1:8b  4.9 GB\nllama3.2:1b  1.3 GB\nqwen3:8b     5.2 GB\n3 models, 11 GB\n", out.String())

	assert.Error(t, printModels(out, testModels, "{{.name"))
}

func TestPrintStructured(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, printStructured(out, map[string]int{"a": 1}, formatJSON))
	assert.JSONEq(t, `{"a":1}`, out.String())

	out.Reset()
	require.NoError(t, printStructured(out, map[string]int{"a": 1}, formatYAML))
	assert.Equal(t, "a: 1\n", out.String())

	assert.Error(t, printStructured(out, 1, "xml"))
}
