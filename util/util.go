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

package util

import (
	"context"
	"time"

	"github.com/avast/retry-go/v5"
)

func Ptr[T any](t T) *T { return &t }

// Retry runs the callback up to `attempts` times, waiting a fixed `delay` between attempts. A non-positive attempts value
// means a single attempt.
func Retry(ctx context.Context, attempts int, delay time.Duration, callback func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	return retry.New(retry.Attempts(uint(attempts)), retry.Delay(delay),
		retry.DelayType(retry.FixedDelay), retry.Context(ctx)).Do(callback)
}
