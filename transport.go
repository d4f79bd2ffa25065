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

// Transport is the byte stream between the host and the module. The driver
// does all framing itself; a transport only moves bytes.
type Transport interface {
	// Available returns the number of received bytes that ReadByte can
	// return without blocking
	Available() (int, error)

	// ReadByte returns the next received byte. It is only called after
	// Available has reported data
	ReadByte() (byte, error)

	// Write sends data to the module
	Write(data []byte) (int, error)

	// Close closes the transport connection
	Close() error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// BaudRateSetter is implemented by transports that can follow the module to
// a new line rate after SetBaud.
type BaudRateSetter interface {
	SetBaudRate(baud int) error
}

// PortNamer is implemented by transports bound to a named port. The name is
// used in error messages.
type PortNamer interface {
	PortName() string
}

func portName(t Transport) string {
	if pn, ok := t.(PortNamer); ok {
		return pn.PortName()
	}
	return string(t.Type())
}
