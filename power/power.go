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

// Package power drives the EN pin of an M6E Nano or M7E Hecto carrier.
// Pulling EN low shuts the module down; releasing it high boots it again,
// which is the only way to recover a module that stopped answering.
package power

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const (
	// DefaultOffTime is how long EN is held low during a power cycle
	DefaultOffTime = 100 * time.Millisecond
	// DefaultBootTime is how long the module needs after EN goes high
	// before it answers VERSION
	DefaultBootTime = 250 * time.Millisecond
)

// ErrPinNotFound is returned when the named GPIO does not exist
var ErrPinNotFound = errors.New("power: gpio pin not found")

// Controller switches the module on and off
type Controller struct {
	pin      gpio.PinOut
	offTime  time.Duration
	bootTime time.Duration
	mu       sync.Mutex
	enabled  bool
}

// Open initializes the host drivers and returns a controller for the pin
// called name, e.g. "GPIO17"
func Open(name string) (*Controller, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	return NewController(pin)
}

// NewController takes over pin and enables the module
func NewController(pin gpio.PinOut) (*Controller, error) {
	c := &Controller{pin: pin, offTime: DefaultOffTime, bootTime: DefaultBootTime}
	if err := c.Enable(); err != nil {
		return nil, err
	}
	return c, nil
}

// SetTiming overrides the off and boot delays used by Cycle
func (c *Controller) SetTiming(off, boot time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offTime = off
	c.bootTime = boot
}

// Enable drives EN high
func (c *Controller) Enable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set(gpio.High)
}

// Disable drives EN low
func (c *Controller) Disable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set(gpio.Low)
}

// Enabled reports the last level written
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

func (c *Controller) set(level gpio.Level) error {
	if err := c.pin.Out(level); err != nil {
		return fmt.Errorf("power: drive %s %s: %w", c.pin.Name(), level, err)
	}
	c.enabled = bool(level)
	return nil
}

// Cycle powers the module off and on again and waits for it to boot. The
// module comes back at 115200 baud with default settings.
func (c *Controller) Cycle(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.set(gpio.Low); err != nil {
		return err
	}
	if err := sleep(ctx, c.offTime); err != nil {
		_ = c.set(gpio.High)
		return err
	}
	if err := c.set(gpio.High); err != nil {
		return err
	}
	return sleep(ctx, c.bootTime)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
