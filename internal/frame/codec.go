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

package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrPayloadTooLarge is returned when a payload does not fit the length byte
	ErrPayloadTooLarge = errors.New("payload exceeds 255 bytes")
	// ErrCorrupt is returned for frames that fail the CRC or are structurally broken
	ErrCorrupt = errors.New("corrupt frame")
)

// Command is a decoded host-to-module frame.
type Command struct {
	Payload []byte
	Opcode  byte
}

// Response is a decoded module-to-host frame. Data excludes the status word.
type Response struct {
	Data   []byte
	Status uint16
	Opcode byte
}

// OK reports whether the module accepted the command.
func (r *Response) OK() bool {
	return r.Status == 0
}

// Encode builds a host-to-module frame for opcode and payload.
func Encode(opcode byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d", ErrPayloadTooLarge, len(payload))
	}

	out := make([]byte, 0, len(payload)+CommandOverhead)
	out = append(out, Header, byte(len(payload)), opcode)
	out = append(out, payload...)
	return binary.BigEndian.AppendUint16(out, CRC16(out[1:])), nil
}

// EncodeResponse builds a module-to-host frame. The length byte counts data
// only; the status word travels outside it.
func EncodeResponse(opcode byte, status uint16, data []byte) ([]byte, error) {
	if len(data) > MaxPayload {
		return nil, fmt.Errorf("%w: %d", ErrPayloadTooLarge, len(data))
	}

	out := make([]byte, 0, len(data)+ResponseOverhead)
	out = append(out, Header, byte(len(data)), opcode)
	out = binary.BigEndian.AppendUint16(out, status)
	out = append(out, data...)
	return binary.BigEndian.AppendUint16(out, CRC16(out[1:])), nil
}

// ResponseLength returns the total wire length announced by a response
// header, or 0 when fewer than two bytes are known.
func ResponseLength(raw []byte) int {
	if len(raw) <= OffsetLength {
		return 0
	}
	return int(raw[OffsetLength]) + ResponseOverhead
}

// Decode validates a complete response frame and copies out its fields.
func Decode(raw []byte) (*Response, error) {
	total := ResponseLength(raw)
	if total == 0 || len(raw) < total {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrCorrupt, len(raw), total)
	}
	if raw[0] != Header {
		return nil, fmt.Errorf("%w: bad header 0x%02X", ErrCorrupt, raw[0])
	}
	if !ValidateCRC(raw[1:total-2], raw[total-2], raw[total-1]) {
		return nil, fmt.Errorf("%w: crc mismatch", ErrCorrupt)
	}

	data := make([]byte, total-ResponseOverhead)
	copy(data, raw[OffsetData:total-2])
	return &Response{
		Opcode: raw[OffsetOpcode],
		Status: binary.BigEndian.Uint16(raw[OffsetStatus:]),
		Data:   data,
	}, nil
}

// DecodeCommand validates a host-to-module frame.
func DecodeCommand(raw []byte) (*Command, error) {
	if len(raw) < CommandOverhead || raw[0] != Header {
		return nil, fmt.Errorf("%w: not a command frame", ErrCorrupt)
	}
	total := int(raw[OffsetLength]) + CommandOverhead
	if len(raw) < total {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrCorrupt, len(raw), total)
	}
	if !ValidateCRC(raw[1:total-2], raw[total-2], raw[total-1]) {
		return nil, fmt.Errorf("%w: crc mismatch", ErrCorrupt)
	}

	payload := make([]byte, total-CommandOverhead)
	copy(payload, raw[3:total-2])
	return &Command{Opcode: raw[OffsetOpcode], Payload: payload}, nil
}
