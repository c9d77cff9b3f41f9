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

package ollamakit

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/theirish81/ollamakit/evaluators"
)

const defaultTag = ":latest"

type ModelDetails struct {
	Format            string   `json:"format,omitempty"`
	Family            string   `json:"family,omitempty"`
	Families          []string `json:"families,omitempty"`
	ParameterSize     string   `json:"parameter_size,omitempty"`
	QuantizationLevel string   `json:"quantization_level,omitempty"`
}

// ModelInfo describes a model, either installed locally or listed in a catalog.
type ModelInfo struct {
	Name       string        `json:"name"`
	Model      string        `json:"model,omitempty"`
	Size       int64         `json:"size"`
	Digest     string        `json:"digest,omitempty"`
	ModifiedAt *time.Time    `json:"modified_at,omitempty"`
	Details    *ModelDetails `json:"details,omitempty"`
}

// HumanSize returns the size in human readable form, such as "4.7 GB".
func (m ModelInfo) HumanSize() string {
	return humanize.Bytes(uint64(max(m.Size, 0)))
}

// Scope exposes the model to expressions and templates.
func (m ModelInfo) Scope() evaluators.EvalScope {
	scope := evaluators.EvalScope{
		"name":           m.Name,
		"size":           m.Size,
		"human_size":     m.HumanSize(),
		"digest":         m.Digest,
		"family":         "",
		"parameter_size": "",
		"quantization":   "",
		"modified_at":    time.Time{},
	}
	if m.Details != nil {
		scope["family"] = m.Details.Family
		scope["parameter_size"] = m.Details.ParameterSize
		scope["quantization"] = m.Details.QuantizationLevel
	}
	if m.ModifiedAt != nil {
		scope["modified_at"] = *m.ModifiedAt
	}
	return scope
}

// matches tells whether the model is the one named, where a missing tag means ":latest".
func (m ModelInfo) matches(name string) bool {
	name = normalizeModelName(name)
	return normalizeModelName(m.Name) == name || (m.Model != "" && normalizeModelName(m.Model) == name)
}

func normalizeModelName(name string) string {
	name = strings.TrimSpace(name)
	if name != "" && !strings.Contains(name, ":") {
		return name + defaultTag
	}
	return name
}

// ModelList is a list of models with client-side query helpers. None of them modifies the receiver.
type ModelList []ModelInfo

func (l ModelList) Names() []string {
	return lo.Map(l, func(m ModelInfo, _ int) string {
		return m.Name
	})
}

func (l ModelList) Find(name string) (ModelInfo, bool) {
	return lo.Find(l, func(m ModelInfo) bool {
		return m.matches(name)
	})
}

func (l ModelList) Contains(name string) bool {
	_, ok := l.Find(name)
	return ok
}

// FilterByName keeps the models whose name contains the substring, ignoring case.
func (l ModelList) FilterByName(substr string) ModelList {
	substr = strings.ToLower(substr)
	return lo.Filter(l, func(m ModelInfo, _ int) bool {
		return strings.Contains(strings.ToLower(m.Name), substr)
	})
}

// Where keeps the models for which the boolean expression holds. The expression sees name, size, human_size,
// digest, family, parameter_size, quantization and modified_at, for example `family == "llama" && size < bytes("4GB")`.
func (l ModelList) Where(expression string) (ModelList, error) {
	program, err := evaluators.CompileBooleanExpression(expression, ModelInfo{}.Scope())
	if err != nil {
		return nil, fmt.Errorf("invalid model filter: %w", err)
	}
	out := make(ModelList, 0, len(l))
	for _, m := range l {
		ok, err := evaluators.RunBooleanExpression(program, m.Scope())
		if err != nil {
			return nil, fmt.Errorf("model filter failed on %s: %w", m.Name, err)
		}
		if ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// SortBySize returns a copy sorted by size, ties broken by name.
func (l ModelList) SortBySize(desc bool) ModelList {
	out := slices.Clone(l)
	slices.SortStableFunc(out, func(a, b ModelInfo) int {
		c := cmp.Compare(a.Size, b.Size)
		if desc {
			c = -c
		}
		if c == 0 {
			return strings.Compare(a.Name, b.Name)
		}
		return c
	})
	return out
}

// SortByName returns a copy sorted by name.
func (l ModelList) SortByName() ModelList {
	out := slices.Clone(l)
	slices.SortStableFunc(out, func(a, b ModelInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

func (l ModelList) TotalSize() int64 {
	return lo.SumBy(l, func(m ModelInfo) int64 {
		return m.Size
	})
}

// SizeMap maps model names to their size in bytes.
func (l ModelList) SizeMap() map[string]int64 {
	return lo.SliceToMap(l, func(m ModelInfo) (string, int64) {
		return m.Name, m.Size
	})
}

type tagsResponse struct {
	Models ModelList `json:"models"`
}

// ListLocalModels lists the models installed on the server.
func (c *Client) ListLocalModels(ctx context.Context) (ModelList, error) {
	return c.listModels(ctx, opListModels, joinURL(c.config.Host, "/api/tags"))
}

// ListRemoteModels lists the catalog published at Config.RegistryURL.
func (c *Client) ListRemoteModels(ctx context.Context) (ModelList, error) {
	if c.config.RegistryURL == "" {
		return nil, errors.New("no registry URL configured")
	}
	return c.listModels(ctx, opRemoteModels, joinURL(c.config.RegistryURL, "/api/tags"))
}

func (c *Client) listModels(ctx context.Context, op string, url string) (ModelList, error) {
	response := tagsResponse{}
	if err := c.doJSON(ctx, op, http.MethodGet, url, nil, &response); err != nil {
		return nil, err
	}
	if response.Models == nil {
		return ModelList{}, nil
	}
	return response.Models, nil
}
