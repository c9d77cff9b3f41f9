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
	"bytes"
	"encoding/json"
	"errors"
)

// ArgumentFragment is the arguments payload of a tool-call fragment. Some models stream the arguments as slices of
// JSON text, others send whole or partial objects.
type ArgumentFragment struct {
	Text   *string
	Object map[string]any
}

func (a *ArgumentFragment) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	a.Text = nil
	a.Object = nil

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Text = &s
		return nil
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err == nil {
		a.Object = m
		return nil
	}

	return errors.New("tool-call arguments must be a string or an object")
}

func (a ArgumentFragment) MarshalJSON() ([]byte, error) {
	switch {
	case a.Text != nil:
		return json.Marshal(*a.Text)
	case a.Object != nil:
		return json.Marshal(a.Object)
	default:
		return []byte("null"), nil
	}
}

// IsZero reports whether the fragment carries no arguments at all.
func (a ArgumentFragment) IsZero() bool {
	return a.Text == nil && a.Object == nil
}
