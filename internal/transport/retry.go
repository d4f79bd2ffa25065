// go-m6e
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-m6e.
//
// go-m6e is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-m6e is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-m6e; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package transport provides the polling and retry loops shared by the driver
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRetriesExhausted is returned when every attempt asked for a retry
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrDeadline is returned when a polling loop runs out of time
	ErrDeadline = errors.New("deadline reached")
)

// RetryOperation represents a function that can be retried
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation should be retried
// - error: any permanent error that should stop retries
type RetryOperation[T any] func() (T, bool, error)

// RetryConfig configures retry behavior
type RetryConfig struct {
	OnRetry     func(attempt int) error
	Description string
	// MaxRetries is the number of retries after the first attempt. A negative
	// value retries until the operation succeeds or the context ends.
	MaxRetries int
	RetryDelay time.Duration
}

// Unbounded reports whether the config never gives up on its own.
func (c RetryConfig) Unbounded() bool {
	return c.MaxRetries < 0
}

// WithRetry runs operation until it stops asking for a retry. With
// MaxRetries n the operation runs at most n+1 times.
func WithRetry[T any](ctx context.Context, config RetryConfig, operation RetryOperation[T]) (T, error) {
	var zero T

	for attempt := 0; config.Unbounded() || attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}

		if !config.Unbounded() && attempt >= config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			if err := config.OnRetry(attempt + 1); err != nil {
				return zero, err
			}
		}

		if config.RetryDelay > 0 {
			if err := sleepContext(ctx, config.RetryDelay); err != nil {
				return zero, err
			}
		}
	}

	if config.Description != "" {
		return zero, fmt.Errorf("%s: %w", config.Description, ErrRetriesExhausted)
	}
	return zero, ErrRetriesExhausted
}

// PollUntil calls operation every interval until it stops asking for a retry
// or the deadline passes. The deadline is also capped by the context; when
// the context deadline is the earlier one, its error is returned instead of
// ErrDeadline.
func PollUntil[T any](
	ctx context.Context, deadline time.Time, interval time.Duration, operation RetryOperation[T],
) (T, error) {
	var zero T
	ctxBound := false
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
		ctxBound = true
	}

	for {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}

		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if !time.Now().Before(deadline) {
			if ctxBound {
				<-ctx.Done()
				return zero, ctx.Err()
			}
			return zero, ErrDeadline
		}

		wait := interval
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		if err := sleepContext(ctx, wait); err != nil {
			return zero, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
