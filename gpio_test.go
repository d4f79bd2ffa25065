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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevice_SetGPIO(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	require.NoError(t, device.SetGPIO(2, true))

	cmd, ok := mock.LastCommand(opSetUserGPIOOutputs)
	require.True(t, ok)
	assert.Equal(t, []byte{0x02, 0x01}, cmd.Payload)

	require.NoError(t, device.SetGPIODirection(4, true, false))
	cmd, ok = mock.LastCommand(opSetUserGPIOOutputs)
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x04, 0x01, 0x00}, cmd.Payload)
}

func TestDevice_GPIOStates(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	mock.SetResponse(opGetUserGPIOInputs, StatusOK, []byte{
		0x01,
		0x01, 0x01, 0x00,
		0x02, 0x00, 0x01,
		0x03, 0x00, 0x00,
		0x04, 0x01, 0x01,
	})

	states, err := device.GPIOStates()
	require.NoError(t, err)
	assert.Equal(t, []GPIOState{
		{Pin: 1, Output: true},
		{Pin: 2, High: true},
		{Pin: 3},
		{Pin: 4, Output: true, High: true},
	}, states)

	high, err := device.GetGPIO(2)
	require.NoError(t, err)
	assert.True(t, high)

	cmd, ok := mock.LastCommand(opGetUserGPIOInputs)
	require.True(t, ok)
	assert.Equal(t, []byte{0x01}, cmd.Payload)
}

func TestDevice_GetGPIO_NotReported(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	mock.SetResponse(opGetUserGPIOInputs, StatusOK, []byte{0x01, 0x01, 0x00, 0x00})

	_, err := device.GetGPIO(3)
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestDevice_GetGPIODirection(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	mock.SetResponse(opSetUserGPIOOutputs, StatusOK, []byte{0x03, 0x01})

	output, err := device.GetGPIODirection(3)
	require.NoError(t, err)
	assert.True(t, output)

	cmd, ok := mock.LastCommand(opSetUserGPIOOutputs)
	require.True(t, ok)
	assert.Equal(t, []byte{0x03}, cmd.Payload)
}

func TestDevice_GPIO_InvalidPin(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)

	require.ErrorIs(t, device.SetGPIO(0, true), ErrInvalidParameter)
	require.ErrorIs(t, device.SetGPIODirection(5, true, true), ErrInvalidParameter)
	_, err := device.GetGPIO(9)
	require.ErrorIs(t, err, ErrInvalidParameter)
	_, err = device.GetGPIODirection(0)
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Equal(t, 0, mock.WriteCount())
}
