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
	"errors"
	"testing"
	"time"

	testutil "github.com/ZaparooProject/go-m6e/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.ErrorIs(t, err, ErrInvalidParameter)

	device, err := New(NewMockTransport())
	require.NoError(t, err)
	assert.Equal(t, *DefaultDeviceConfig(), device.Config())
	assert.Equal(t, ModuleM6ENano, device.Module())
	assert.False(t, device.IsReading())
	assert.Nil(t, device.Version())
}

func TestNew_Options(t *testing.T) {
	t.Parallel()

	tests := []struct {
		check   func(*testing.T, *Device)
		name    string
		opts    []Option
		wantErr bool
	}{
		{
			name: "Timeout",
			opts: []Option{WithTimeout(300 * time.Millisecond)},
			check: func(t *testing.T, d *Device) {
				assert.Equal(t, 300*time.Millisecond, d.Config().Timeout)
			},
		},
		{
			name: "Module_Type",
			opts: []Option{WithModuleType(ModuleM7EHecto)},
			check: func(t *testing.T, d *Device) {
				assert.Equal(t, ModuleM7EHecto, d.Module())
			},
		},
		{
			name: "Drain_Timing",
			opts: []Option{WithDrainTiming(time.Millisecond, 2*time.Millisecond)},
			check: func(t *testing.T, d *Device) {
				assert.Equal(t, time.Millisecond, d.Config().SettleDelay)
				assert.Equal(t, 2*time.Millisecond, d.Config().DrainWindow)
			},
		},
		{
			name: "Poll_Interval",
			opts: []Option{WithPollInterval(time.Millisecond)},
			check: func(t *testing.T, d *Device) {
				assert.Equal(t, time.Millisecond, d.Config().PollInterval)
			},
		},
		{name: "Zero_Timeout", opts: []Option{WithTimeout(0)}, wantErr: true},
		{name: "Unknown_Module", opts: []Option{WithModuleType(ModuleType(7))}, wantErr: true},
		{name: "Negative_Drain", opts: []Option{WithDrainTiming(-1, 0)}, wantErr: true},
		{name: "Zero_Poll_Interval", opts: []Option{WithPollInterval(0)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, err := New(NewMockTransport(), tt.opts...)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			tt.check(t, device)
		})
	}
}

func TestDevice_Begin(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	mock.SetResponse(opVersion, StatusOK, testutil.BuildVersionData())

	require.NoError(t, device.Begin())
	require.NotNil(t, device.Version())
	assert.True(t, device.Version().SupportsProtocol(ProtocolGen2))
}

func TestDevice_Begin_NoAnswer(t *testing.T) {
	t.Parallel()

	device, err := New(NewBlockingMockTransport(), WithTimeout(10*time.Millisecond))
	require.NoError(t, err)

	err = device.Begin()
	require.Error(t, err)
	assert.Equal(t, ResultTimeout, KindOf(err))
	assert.Nil(t, device.Version())
}

func TestDevice_Close_StopsReading(t *testing.T) {
	t.Parallel()

	device, mock := startStream(t)
	require.NoError(t, device.Close())

	assert.False(t, device.IsReading())
	assert.False(t, mock.IsConnected())
	assert.Equal(t, 2, mock.GetCallCount(opMultiProtocolTagOp))
}

func TestConnectDevice(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.SetResponse(opVersion, StatusOK, testutil.BuildVersionData())

	device, err := ConnectDevice("/dev/ttyUSB0",
		WithTransportFactory(func(path string) (Transport, error) {
			assert.Equal(t, "/dev/ttyUSB0", path)
			return mock, nil
		}),
		WithDeviceOptions(WithModuleType(ModuleM7EHecto)),
		WithConnectTimeout(100*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, ModuleM7EHecto, device.Module())
	assert.NotNil(t, device.Version())
}

func TestConnectDevice_Failures(t *testing.T) {
	t.Parallel()

	factoryErr := errors.New("no such port")

	t.Run("No_Factory", func(t *testing.T) {
		t.Parallel()
		_, err := ConnectDevice("/dev/ttyUSB0")
		require.Error(t, err)
	})

	t.Run("Factory_Error", func(t *testing.T) {
		t.Parallel()
		_, err := ConnectDevice("/dev/ttyUSB0", WithTransportFactory(func(string) (Transport, error) {
			return nil, factoryErr
		}))
		require.ErrorIs(t, err, factoryErr)
	})

	t.Run("Handshake_Fails_Closes_Transport", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport()
		mock.SetResponse(opVersion, StatusInvalidOpcode, nil)
		_, err := ConnectDevice("/dev/ttyUSB0", WithTransportFactory(func(string) (Transport, error) {
			return mock, nil
		}))
		require.ErrorIs(t, err, ErrCommandFailed)
		assert.False(t, mock.IsConnected())
	})

	t.Run("Skip_Verification", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport()
		device, err := ConnectDevice("/dev/ttyUSB0",
			WithoutBeginVerification(),
			WithTransportFactory(func(string) (Transport, error) { return mock, nil }))
		require.NoError(t, err)
		assert.Nil(t, device.Version())
		assert.Equal(t, 0, mock.WriteCount())
	})

	t.Run("Bad_Connect_Timeout", func(t *testing.T) {
		t.Parallel()
		_, err := ConnectDevice("/dev/ttyUSB0", WithConnectTimeout(0))
		require.ErrorIs(t, err, ErrInvalidParameter)
	})
}

func TestWithLogger(t *testing.T) {
	device, err := New(NewMockTransport(), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	require.NotNil(t, device)
	SetLogger(nil)
}
