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

package detection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		devicePath  string
		ignorePaths []string
		expected    bool
	}{
		{name: "empty ignore list", devicePath: "/dev/ttyUSB0", ignorePaths: []string{}, expected: false},
		{name: "empty device path", devicePath: "", ignorePaths: []string{"/dev/ttyUSB0"}, expected: false},
		{name: "exact match unix path", devicePath: "/dev/ttyUSB0", ignorePaths: []string{"/dev/ttyUSB0"}, expected: true},
		{name: "exact match windows path", devicePath: "COM2", ignorePaths: []string{"COM2"}, expected: true},
		{name: "case insensitive match", devicePath: "/dev/ttyUSB0", ignorePaths: []string{"/DEV/TTYUSB0"}, expected: true},
		{name: "windows case insensitive", devicePath: "com2", ignorePaths: []string{"COM2"}, expected: true},
		{name: "no match", devicePath: "/dev/ttyUSB1", ignorePaths: []string{"/dev/ttyUSB0"}, expected: false},
		{
			name:        "multiple paths with match",
			devicePath:  "/dev/ttyACM1",
			ignorePaths: []string{"/dev/ttyUSB0", "/dev/ttyACM1", "COM2"},
			expected:    true,
		},
		{
			name:        "by-id path",
			devicePath:  "/dev/serial/by-id/usb-FTDI_FT231X_USB_UART_DN05K1AB-if00-port0",
			ignorePaths: []string{"/dev/serial/by-id/usb-FTDI_FT231X_USB_UART_DN05K1AB-if00-port0"},
			expected:    true,
		},
		{
			name:        "path with relative components",
			devicePath:  "/dev/../dev/ttyUSB0",
			ignorePaths: []string{"/dev/ttyUSB0"},
			expected:    true,
		},
		{
			name:        "empty strings in ignore list",
			devicePath:  "/dev/ttyUSB0",
			ignorePaths: []string{"", "/dev/ttyUSB0", ""},
			expected:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsPathIgnored(tt.devicePath, tt.ignorePaths))
		})
	}
}

func TestParseVIDPID(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"VID:0403 PID:6015":              "0403:6015",
		"vendor=1a86 product=7523":       "1A86:7523",
		"USB VID=10C4 PID=EA60 SER=0001": "10C4:EA60",
		"0403:6001":                      "0403:6001",
		"not a descriptor":               "",
		"ZZZZ:0001":                      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseVIDPID(in), in)
	}
}

func TestBlocklistAndAdapters(t *testing.T) {
	t.Parallel()

	assert.True(t, IsBlocked(" 1d50:6089 ", DefaultBlocklist()))
	assert.False(t, IsBlocked("0403:6015", DefaultBlocklist()))
	assert.True(t, IsKnownAdapter("1a86:7523"))
	assert.False(t, IsKnownAdapter("1D50:6089"))
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	assert.Nil(t, opts.IgnorePaths)
	assert.Equal(t, Safe, opts.Mode)
	assert.Equal(t, 115200, opts.BaudRate)
	assert.NotEmpty(t, opts.Blocklist)
}

type fakeDetector struct {
	err       error
	transport string
	devices   []DeviceInfo
}

func (f *fakeDetector) Transport() string { return f.transport }

func (f *fakeDetector) Detect(context.Context, *Options) ([]DeviceInfo, error) {
	return f.devices, f.err
}

func TestDetectWith(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	ctx := context.Background()

	t.Run("no detectors", func(t *testing.T) {
		t.Parallel()
		_, err := detectWith(ctx, &opts, nil)
		require.ErrorIs(t, err, ErrNoDetectors)
	})

	t.Run("sorted by confidence", func(t *testing.T) {
		t.Parallel()
		devices, err := detectWith(ctx, &opts, []Detector{
			&fakeDetector{transport: "a", devices: []DeviceInfo{{Path: "/dev/ttyUSB1", Confidence: Low}}},
			&fakeDetector{transport: "b", err: ErrUnsupportedPlatform},
			&fakeDetector{transport: "c", devices: []DeviceInfo{{Path: "/dev/ttyUSB0", Confidence: High}}},
		})
		require.NoError(t, err)
		require.Len(t, devices, 2)
		assert.Equal(t, "/dev/ttyUSB0", devices[0].Path)
	})

	t.Run("nothing found", func(t *testing.T) {
		t.Parallel()
		_, err := detectWith(ctx, &opts, []Detector{&fakeDetector{transport: "a", err: ErrNoDevicesFound}})
		require.ErrorIs(t, err, ErrNoDevicesFound)
	})

	t.Run("failures reported", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("permission denied")
		_, err := detectWith(ctx, &opts, []Detector{&fakeDetector{transport: "a", err: boom}})
		require.ErrorIs(t, err, boom)
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := detectWith(cctx, &opts, []Detector{&fakeDetector{transport: "a"}})
		require.ErrorIs(t, err, ErrDetectionTimeout)
	})
}

func TestDeviceInfo_String(t *testing.T) {
	t.Parallel()

	d := DeviceInfo{Transport: "uart", Path: "/dev/ttyUSB0", VIDPID: "0403:6015", Confidence: High}
	assert.Equal(t, "uart /dev/ttyUSB0 [0403:6015] (high confidence)", d.String())
}
