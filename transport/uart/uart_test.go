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

package uart

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	m6e "github.com/ZaparooProject/go-m6e"
	testutil "github.com/ZaparooProject/go-m6e/internal/testing"
)

type fakePort struct {
	mode    *serial.Mode
	readErr error
	onWrite func(data []byte) []byte
	rx      bytes.Buffer
	tx      bytes.Buffer
	timeout time.Duration
	resets  int
	mu      sync.Mutex
	closed  bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return 0, p.readErr
	}
	if p.rx.Len() == 0 {
		return 0, nil
	}
	return p.rx.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.onWrite != nil {
		p.rx.Write(p.onWrite(b))
	}
	return p.tx.Write(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) SetMode(mode *serial.Mode) error {
	p.mode = mode
	return nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.timeout = t
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.resets++
	return nil
}

func newFakeTransport(t *testing.T) (*Transport, *fakePort) {
	t.Helper()
	port := &fakePort{}
	tr, err := newTransport(port, "/dev/ttyUSB0", DefaultBaudRate)
	require.NoError(t, err)
	return tr, port
}

func TestTransportCreation(t *testing.T) {
	t.Parallel()

	tr, port := newFakeTransport(t)
	assert.Equal(t, "/dev/ttyUSB0", tr.PortName())
	assert.Equal(t, m6e.TransportUART, tr.Type())
	assert.True(t, tr.IsConnected())
	assert.Equal(t, pollTimeout, port.timeout)
	assert.Equal(t, 1, port.resets)
	assert.Equal(t, DefaultBaudRate, tr.BaudRate())

	var _ m6e.Transport = tr
	var _ m6e.BaudRateSetter = tr
	var _ m6e.PortNamer = tr
}

func TestTransport_ZeroValueIsDisconnected(t *testing.T) {
	t.Parallel()

	tr := &Transport{portName: "/dev/ttyUSB0"}
	assert.False(t, tr.IsConnected())
	_, err := tr.Available()
	require.ErrorIs(t, err, m6e.ErrTransportClosed)
}

func TestTransport_AvailableAndReadByte(t *testing.T) {
	t.Parallel()

	tr, port := newFakeTransport(t)

	n, err := tr.Available()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, err = tr.ReadByte()
	require.ErrorIs(t, err, ErrNoData)

	port.rx.Write([]byte{0xFF, 0x00, 0x22})
	n, err = tr.Available()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, want := range []byte{0xFF, 0x00, 0x22} {
		b, err := tr.ReadByte()
		require.NoError(t, err)
		assert.Equal(t, want, b)
	}
}

func TestTransport_ReadError(t *testing.T) {
	t.Parallel()

	tr, port := newFakeTransport(t)
	port.readErr = errors.New("device disconnected")

	_, err := tr.Available()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/dev/ttyUSB0")
}

func TestTransport_Write(t *testing.T) {
	t.Parallel()

	tr, port := newFakeTransport(t)
	n, err := tr.Write([]byte{0xFF, 0x00, 0x03, 0x1D, 0x0C})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte{0xFF, 0x00, 0x03, 0x1D, 0x0C}, port.tx.Bytes())
}

func TestTransport_SetBaudRate(t *testing.T) {
	t.Parallel()

	tr, port := newFakeTransport(t)
	port.rx.Write([]byte{0x01, 0x02})
	_, err := tr.Available()
	require.NoError(t, err)

	require.NoError(t, tr.SetBaudRate(921600))
	assert.Equal(t, 921600, port.mode.BaudRate)
	assert.Equal(t, serial.NoParity, port.mode.Parity)
	assert.Equal(t, 921600, tr.BaudRate())

	n, err := tr.Available()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestTransport_Close(t *testing.T) {
	t.Parallel()

	tr, port := newFakeTransport(t)
	require.NoError(t, tr.Close())
	assert.True(t, port.closed)
	assert.False(t, tr.IsConnected())
	require.NoError(t, tr.Close())

	_, err := tr.Write([]byte{0x00})
	require.ErrorIs(t, err, m6e.ErrTransportClosed)
	_, err = tr.ReadByte()
	require.ErrorIs(t, err, m6e.ErrTransportClosed)
	require.ErrorIs(t, tr.SetBaudRate(9600), m6e.ErrTransportClosed)
}

func TestTransport_WithDevice(t *testing.T) {
	t.Parallel()

	tr, port := newFakeTransport(t)
	port.onWrite = func(data []byte) []byte {
		if len(data) > 2 && data[2] == 0x03 {
			return testutil.BuildFrame(0x03, 0x0000, testutil.BuildVersionData())
		}
		return nil
	}

	device, err := m6e.New(tr, m6e.WithTimeout(50*time.Millisecond), m6e.WithDrainTiming(0, 0))
	require.NoError(t, err)

	version, err := device.GetVersion()
	require.NoError(t, err)
	assert.Equal(t, [4]byte{0x01, 0x0B, 0x01, 0x02}, version.FirmwareVersion)
	assert.Equal(t, []byte{0xFF, 0x00, 0x03, 0x1D, 0x0C}, port.tx.Bytes())
}

func TestNew_InvalidBaud(t *testing.T) {
	t.Parallel()

	_, err := New("/dev/does-not-exist", WithBaudRate(0))
	require.Error(t, err)
}
