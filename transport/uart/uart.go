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

// Package uart provides the serial transport for M6E Nano and M7E Hecto
// modules.
package uart

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	m6e "github.com/ZaparooProject/go-m6e"
)

// DefaultBaudRate is the rate both modules use after power-up
const DefaultBaudRate = 115200

// pollTimeout bounds the read Available does to refill its buffer
const pollTimeout = time.Millisecond

// ErrNoData is returned by ReadByte when nothing has been received
var ErrNoData = errors.New("uart: no data available")

// serialPort is the part of serial.Port the transport uses
type serialPort interface {
	io.ReadWriteCloser
	SetMode(mode *serial.Mode) error
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Transport implements m6e.Transport over a serial port
type Transport struct {
	port     serialPort
	lock     io.Closer
	pending  []byte
	portName string
	buf      [256]byte
	baud     int
	mu       sync.Mutex
}

// Option configures a Transport
type Option func(*config)

type config struct {
	baud      int
	exclusive bool
}

// WithBaudRate opens the port at baud instead of DefaultBaudRate
func WithBaudRate(baud int) Option {
	return func(c *config) {
		c.baud = baud
	}
}

// WithoutLock skips the advisory lock that keeps two processes from
// driving the same module
func WithoutLock() Option {
	return func(c *config) {
		c.exclusive = false
	}
}

func serialMode(baud int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// New opens portName at 115200 8N1
func New(portName string, opts ...Option) (*Transport, error) {
	cfg := config{baud: DefaultBaudRate, exclusive: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.baud <= 0 {
		return nil, fmt.Errorf("uart: invalid baud rate %d", cfg.baud)
	}

	var lock io.Closer
	if cfg.exclusive {
		l, err := lockPort(portName)
		if err != nil {
			return nil, fmt.Errorf("uart: %s is in use: %w", portName, err)
		}
		lock = l
	}

	port, err := serial.Open(portName, serialMode(cfg.baud))
	if err != nil {
		if lock != nil {
			_ = lock.Close()
		}
		return nil, fmt.Errorf("uart: open %s: %w", portName, err)
	}

	t, err := newTransport(port, portName, cfg.baud)
	if err != nil {
		_ = port.Close()
		if lock != nil {
			_ = lock.Close()
		}
		return nil, err
	}
	t.lock = lock
	return t, nil
}

func newTransport(port serialPort, portName string, baud int) (*Transport, error) {
	if err := port.SetReadTimeout(pollTimeout); err != nil {
		return nil, fmt.Errorf("uart: set read timeout: %w", err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("uart: reset input: %w", err)
	}
	return &Transport{port: port, portName: portName, baud: baud}, nil
}

// Available reads whatever the port has received and reports how many
// bytes ReadByte can return
func (t *Transport) Available() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return 0, m6e.ErrTransportClosed
	}
	if len(t.pending) > 0 {
		return len(t.pending), nil
	}
	n, err := t.port.Read(t.buf[:])
	if err != nil {
		return 0, fmt.Errorf("uart: read %s: %w", t.portName, err)
	}
	t.pending = append(t.pending, t.buf[:n]...)
	return len(t.pending), nil
}

// ReadByte returns the next buffered byte
func (t *Transport) ReadByte() (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return 0, m6e.ErrTransportClosed
	}
	if len(t.pending) == 0 {
		return 0, ErrNoData
	}
	b := t.pending[0]
	t.pending = t.pending[1:]
	return b, nil
}

// Write sends data to the module
func (t *Transport) Write(data []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return 0, m6e.ErrTransportClosed
	}
	n, err := t.port.Write(data)
	if err != nil {
		return n, fmt.Errorf("uart: write %s: %w", t.portName, err)
	}
	return n, nil
}

// SetBaudRate reconfigures the port, dropping anything buffered at the old
// rate
func (t *Transport) SetBaudRate(baud int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return m6e.ErrTransportClosed
	}
	if err := t.port.SetMode(serialMode(baud)); err != nil {
		return fmt.Errorf("uart: set baud %d: %w", baud, err)
	}
	t.pending = t.pending[:0]
	t.baud = baud
	return t.port.ResetInputBuffer()
}

// BaudRate returns the current line rate
func (t *Transport) BaudRate() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.baud
}

// PortName returns the device path
func (t *Transport) PortName() string {
	return t.portName
}

// Close closes the port and releases the lock
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	t.pending = nil
	if t.lock != nil {
		_ = t.lock.Close()
		t.lock = nil
	}
	if err != nil {
		return fmt.Errorf("uart: close %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected returns true until Close
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Type returns m6e.TransportUART
func (*Transport) Type() m6e.TransportType {
	return m6e.TransportUART
}
