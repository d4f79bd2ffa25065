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
	"sync"
	"time"

	"github.com/ZaparooProject/go-m6e/internal/frame"
)

// MockTransport is a scripted module for tests. Every command frame written
// to it is decoded and answered according to the configured responses; bytes
// can also be injected to simulate the continuous-mode stream.
type MockTransport struct {
	responses  map[byte][]byte
	errors     map[byte]error
	silent     map[byte]bool
	callCounts map[byte]int
	responder  func(cmd *frame.Command) [][]byte
	pendingAt  time.Time
	writeErr   error
	commands   []frame.Command
	writes     [][]byte
	rx         []byte
	delay      time.Duration
	baud       int
	mu         sync.Mutex
	closed     bool
}

// NewMockTransport creates a mock that answers every command with an empty
// OK response until told otherwise
func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses:  make(map[byte][]byte),
		errors:     make(map[byte]error),
		silent:     make(map[byte]bool),
		callCounts: make(map[byte]int),
	}
}

// SetResponse makes the mock answer opcode with status and data
func (m *MockTransport) SetResponse(opcode byte, status uint16, data []byte) {
	raw, err := frame.EncodeResponse(opcode, status, data)
	if err != nil {
		panic(err)
	}
	m.SetRawResponse(opcode, raw)
}

// SetRawResponse makes the mock answer opcode with raw bytes, which need
// not be a valid frame
func (m *MockTransport) SetRawResponse(opcode byte, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[opcode] = append([]byte(nil), raw...)
	delete(m.silent, opcode)
}

// SetSilent makes the mock never answer opcode
func (m *MockTransport) SetSilent(opcode byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.silent[opcode] = true
}

// SetResponder routes every command through fn. Frames it returns are
// queued for reading. Fixed responses and errors take precedence.
func (m *MockTransport) SetResponder(fn func(cmd *frame.Command) [][]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = fn
}

// SetError makes Write fail for commands with opcode
func (m *MockTransport) SetError(opcode byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[opcode] = err
}

// SetWriteError makes every Write fail
func (m *MockTransport) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// SetDelay holds back each response for d after the command is written
func (m *MockTransport) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Inject appends raw bytes to the receive stream
func (m *MockTransport) Inject(raw ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range raw {
		m.rx = append(m.rx, r...)
	}
}

// GetCallCount returns how many commands with opcode were written
func (m *MockTransport) GetCallCount(opcode byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCounts[opcode]
}

// WriteCount returns the number of Write calls
func (m *MockTransport) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

// Writes returns a copy of every buffer written
func (m *MockTransport) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	for i, w := range m.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// Commands returns every decoded command in order
func (m *MockTransport) Commands() []frame.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]frame.Command(nil), m.commands...)
}

// LastCommand returns the most recent command with opcode
func (m *MockTransport) LastCommand(opcode byte) (frame.Command, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.commands) - 1; i >= 0; i-- {
		if m.commands[i].Opcode == opcode {
			return m.commands[i], true
		}
	}
	return frame.Command{}, false
}

// Baud returns the rate set through SetBaudRate
func (m *MockTransport) Baud() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baud
}

// Available implements Transport
func (m *MockTransport) Available() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrTransportClosed
	}
	if time.Now().Before(m.pendingAt) {
		return 0, nil
	}
	return len(m.rx), nil
}

// ReadByte implements Transport
func (m *MockTransport) ReadByte() (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrTransportClosed
	}
	if len(m.rx) == 0 {
		return 0, errors.New("mock: no data")
	}
	b := m.rx[0]
	m.rx = m.rx[1:]
	return b, nil
}

// Write implements Transport
func (m *MockTransport) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrTransportClosed
	}
	m.writes = append(m.writes, append([]byte(nil), data...))
	if m.writeErr != nil {
		return 0, m.writeErr
	}

	cmd, err := frame.DecodeCommand(data)
	if err != nil {
		return len(data), nil //nolint:nilerr // the mock accepts garbage like a real UART
	}
	m.commands = append(m.commands, *cmd)
	m.callCounts[cmd.Opcode]++

	if err := m.errors[cmd.Opcode]; err != nil {
		return 0, err
	}
	if m.silent[cmd.Opcode] {
		return len(data), nil
	}

	switch {
	case m.responses[cmd.Opcode] != nil:
		m.rx = append(m.rx, m.responses[cmd.Opcode]...)
	case m.responder != nil:
		for _, r := range m.responder(cmd) {
			m.rx = append(m.rx, r...)
		}
	default:
		raw, _ := frame.EncodeResponse(cmd.Opcode, StatusOK, nil)
		m.rx = append(m.rx, raw...)
	}
	m.pendingAt = time.Now().Add(m.delay)
	return len(data), nil
}

// SetBaudRate implements BaudRateSetter
func (m *MockTransport) SetBaudRate(baud int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baud = baud
	return nil
}

// Close implements Transport
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected implements Transport
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type implements Transport
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// BlockingMockTransport is a module that never answers. It is used for
// timeout and context cancellation tests.
type BlockingMockTransport struct {
	writes int
	mu     sync.Mutex
	closed bool
}

// NewBlockingMockTransport creates a new blocking mock transport
func NewBlockingMockTransport() *BlockingMockTransport {
	return &BlockingMockTransport{}
}

// WriteCount returns the number of Write calls
func (m *BlockingMockTransport) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Available always reports no data
func (m *BlockingMockTransport) Available() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrTransportClosed
	}
	return 0, nil
}

// ReadByte always fails; Available never reports data
func (*BlockingMockTransport) ReadByte() (byte, error) {
	return 0, ErrTransportRead
}

// Write accepts and discards data
func (m *BlockingMockTransport) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrTransportClosed
	}
	m.writes++
	return len(data), nil
}

// Close marks the transport as closed
func (m *BlockingMockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected returns true until Close
func (m *BlockingMockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock
func (*BlockingMockTransport) Type() TransportType {
	return TransportMock
}
