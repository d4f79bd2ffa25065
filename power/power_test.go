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

package power

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type recordingPin struct {
	*gpiotest.Pin
	err    error
	levels []gpio.Level
	mu     sync.Mutex
}

func newRecordingPin() *recordingPin {
	return &recordingPin{Pin: &gpiotest.Pin{N: "GPIO17", Num: 17}}
}

func (p *recordingPin) Out(l gpio.Level) error {
	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return p.err
	}
	p.levels = append(p.levels, l)
	p.mu.Unlock()
	return p.Pin.Out(l)
}

func (p *recordingPin) history() []gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]gpio.Level(nil), p.levels...)
}

func TestNewController_EnablesModule(t *testing.T) {
	t.Parallel()

	pin := newRecordingPin()
	c, err := NewController(pin)
	require.NoError(t, err)

	assert.True(t, c.Enabled())
	assert.Equal(t, gpio.High, pin.Read())
	assert.Equal(t, []gpio.Level{gpio.High}, pin.history())
}

func TestController_EnableDisable(t *testing.T) {
	t.Parallel()

	pin := newRecordingPin()
	c, err := NewController(pin)
	require.NoError(t, err)

	require.NoError(t, c.Disable())
	assert.False(t, c.Enabled())
	assert.Equal(t, gpio.Low, pin.Read())

	require.NoError(t, c.Enable())
	assert.True(t, c.Enabled())
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low, gpio.High}, pin.history())
}

func TestController_Cycle(t *testing.T) {
	t.Parallel()

	pin := newRecordingPin()
	c, err := NewController(pin)
	require.NoError(t, err)
	c.SetTiming(20*time.Millisecond, 10*time.Millisecond)

	start := time.Now()
	require.NoError(t, c.Cycle(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low, gpio.High}, pin.history())
	assert.True(t, c.Enabled())
}

func TestController_CycleCancelled(t *testing.T) {
	t.Parallel()

	pin := newRecordingPin()
	c, err := NewController(pin)
	require.NoError(t, err)
	c.SetTiming(time.Second, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err = c.Cycle(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, c.Enabled(), "module is left powered")
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low, gpio.High}, pin.history())
}

func TestController_PinError(t *testing.T) {
	t.Parallel()

	pin := newRecordingPin()
	pin.err = errors.New("permission denied")

	_, err := NewController(pin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GPIO17")
	assert.Contains(t, err.Error(), "permission denied")
}
