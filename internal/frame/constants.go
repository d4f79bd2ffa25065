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

// Package frame provides the wire format and protocol constants for M6E/M7E communication
package frame

// Frame markers
const (
	Header = 0xFF // Start of every frame in both directions
)

// Frame layout offsets
const (
	OffsetLength = 1 // Payload length byte
	OffsetOpcode = 2 // Opcode byte
	OffsetStatus = 3 // First byte of the response status word
	OffsetData   = 5 // First response data byte after the status word
)

// Frame size limits
const (
	MaxPayload       = 255                          // Largest value the length byte can carry
	CommandOverhead  = 5                            // header + length + opcode + crc(2)
	ResponseOverhead = 7                            // CommandOverhead + status(2)
	MaxFrameSize     = MaxPayload + ResponseOverhead // Largest response frame on the wire
)
