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

package m6e

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Option is a functional option for configuring a Device
type Option func(*Device) error

// WithTimeout sets the default response timeout for commands
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		return d.SetTimeout(timeout)
	}
}

// WithModuleType selects M6E Nano or M7E Hecto parameter handling
func WithModuleType(module ModuleType) Option {
	return func(d *Device) error {
		if module != ModuleM6ENano && module != ModuleM7EHecto {
			return fmt.Errorf("%w: unknown module type %d", ErrInvalidParameter, module)
		}
		d.config.Module = module
		return nil
	}
}

// WithDrainTiming sets the settle delay and drain window used by
// fire-and-forget commands
func WithDrainTiming(settle, window time.Duration) Option {
	return func(d *Device) error {
		if settle < 0 || window < 0 {
			return fmt.Errorf("%w: drain timing must not be negative", ErrInvalidParameter)
		}
		d.config.SettleDelay = settle
		d.config.DrainWindow = window
		return nil
	}
}

// WithPollInterval sets the sleep between stream polls in NextRecord
func WithPollInterval(interval time.Duration) Option {
	return func(d *Device) error {
		if interval <= 0 {
			return fmt.Errorf("%w: poll interval must be positive", ErrInvalidParameter)
		}
		d.config.PollInterval = interval
		return nil
	}
}

// WithLogger routes driver debug output to logger
func WithLogger(logger *zap.Logger) Option {
	return func(_ *Device) error {
		SetLogger(logger)
		return nil
	}
}
