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

package testing

import (
	"encoding/binary"

	"github.com/ZaparooProject/go-m6e/internal/frame"
)

// Opcodes for reference
const (
	OpVersion                 = 0x03
	OpSetBaudRate             = 0x06
	OpReadTagIDMultiple       = 0x22
	OpWriteTagData            = 0x24
	OpKillTag                 = 0x26
	OpReadTagData             = 0x28
	OpGetTagIDBuffer          = 0x29
	OpClearTagIDBuffer        = 0x2A
	OpMultiProtocolTagOp      = 0x2F
	OpGetReadTxPower          = 0x62
	OpGetUserGPIOInputs       = 0x66
	OpGetTemperature          = 0x72
	OpSetReadTxPower          = 0x92
	OpSetUserGPIOOutputs      = 0x96
	OpSetRegion               = 0x97
	OpSetPowerMode            = 0x98
	OpSetReaderOptionalParams = 0x9A
	OpSetProtocolParam        = 0x9B
)

// Status words used by the builders
const (
	StatusOK            uint16 = 0x0000
	StatusNoTagsFound   uint16 = 0x0400
	StatusTempThrottle  uint16 = 0x0504
	StatusTagBufferFull uint16 = 0x0601
)

// Common EPCs for testing
var (
	// TestEPC is a 96-bit EPC
	TestEPC = []byte{0xE2, 0x00, 0x00, 0x15, 0x86, 0x0E, 0x02, 0x88, 0x15, 0x40, 0x80, 0x29}

	// OtherEPC differs from TestEPC in its first byte
	OtherEPC = []byte{0x30, 0x00, 0x00, 0x15, 0x86, 0x0E, 0x02, 0x88, 0x15, 0x40, 0x80, 0x29}

	// TestTID is a 24-byte TID bank
	TestTID = []byte{
		0xE2, 0x00, 0x34, 0x12, 0x01, 0x56, 0xFF, 0x00, 0x06, 0x2F, 0x80, 0x29,
		0x01, 0x0E, 0x01, 0x53, 0x10, 0x0D, 0x5F, 0xFB, 0xFF, 0xFF, 0xDC, 0x00,
	}
)

// Stream metadata flags: everything up to and including GPIO
const StreamMetadata uint16 = 0x01FF

// BufferMetadata is the flag set requested from the tag buffer
const BufferMetadata uint16 = 0x0FFF

// TagRecord describes one tag for the record builders.
type TagRecord struct {
	EPC       []byte
	Data      []byte
	Timestamp uint32
	Frequency uint32
	PC        uint16
	CRC       uint16
	Phase     uint16
	RSSI      int8
	ReadCount byte
	Antenna   byte
}

// Record encodes t according to meta.
func (t TagRecord) Record(meta uint16) []byte {
	var b []byte
	if meta&0x0001 != 0 {
		b = append(b, t.ReadCount)
	}
	if meta&0x0002 != 0 {
		b = append(b, byte(t.RSSI))
	}
	if meta&0x0004 != 0 {
		b = append(b, t.Antenna)
	}
	if meta&0x0008 != 0 {
		b = append(b, byte(t.Frequency>>16), byte(t.Frequency>>8), byte(t.Frequency))
	}
	if meta&0x0010 != 0 {
		b = binary.BigEndian.AppendUint32(b, t.Timestamp)
	}
	if meta&0x0020 != 0 {
		b = binary.BigEndian.AppendUint16(b, t.Phase)
	}
	if meta&0x0040 != 0 {
		b = append(b, 0x05)
	}
	if meta&0x0080 != 0 {
		b = binary.BigEndian.AppendUint16(b, uint16(len(t.Data)*8))
		b = append(b, t.Data...)
	}
	if meta&0x0100 != 0 {
		b = append(b, 0x80)
	}
	if meta&0x0200 != 0 {
		b = append(b, 0x02)
	}
	if meta&0x0400 != 0 {
		b = append(b, 0x00)
	}
	if meta&0x0800 != 0 {
		b = append(b, 0x00)
	}
	b = binary.BigEndian.AppendUint16(b, uint16((len(t.EPC)+4)*8))
	b = binary.BigEndian.AppendUint16(b, t.PC)
	b = append(b, t.EPC...)
	return binary.BigEndian.AppendUint16(b, t.CRC)
}

// DefaultTag returns a tag record for epc with plausible metadata
func DefaultTag(epc []byte) TagRecord {
	return TagRecord{
		EPC:       epc,
		ReadCount: 1,
		RSSI:      -35,
		Antenna:   0x11,
		Frequency: 0x0E1640,
		Timestamp: 0x127,
		Phase:     0xAE,
		PC:        0x3400,
		CRC:       0x3B72,
	}
}

// BuildStreamTagData builds the payload of a continuous-mode tag frame
func BuildStreamTagData(tag TagRecord) []byte {
	data := []byte{0x10, 0x01, 0x1F}
	data = binary.BigEndian.AppendUint16(data, StreamMetadata)
	data = append(data, 0x01)
	return append(data, tag.Record(StreamMetadata)...)
}

// BuildFrame encodes a module response, panicking on oversized data
func BuildFrame(opcode byte, status uint16, data []byte) []byte {
	raw, err := frame.EncodeResponse(opcode, status, data)
	if err != nil {
		panic(err)
	}
	return raw
}

// BuildStreamTagFrame builds a complete continuous-mode tag frame
func BuildStreamTagFrame(tag TagRecord) []byte {
	return BuildFrame(OpReadTagIDMultiple, StatusOK, BuildStreamTagData(tag))
}

// BuildKeepAliveFrame builds the short keep-alive frame
func BuildKeepAliveFrame() []byte {
	return BuildFrame(OpReadTagIDMultiple, StatusNoTagsFound, nil)
}

// BuildKeepAliveLongFrame builds the 14-byte keep-alive frame
func BuildKeepAliveLongFrame() []byte {
	data := []byte{0x00, 0x01, 0x1F, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x28, 0x00, 0x00, 0x00, 0x00}
	return BuildFrame(OpReadTagIDMultiple, StatusNoTagsFound, data)
}

// BuildThrottleFrame builds the temperature throttle notice
func BuildThrottleFrame() []byte {
	return BuildFrame(OpReadTagIDMultiple, StatusTempThrottle, nil)
}

// BuildTemperatureFrame builds the 10-byte temperature sample
func BuildTemperatureFrame(celsius byte) []byte {
	return BuildFrame(OpReadTagIDMultiple, StatusOK, temperatureData(celsius))
}

// BuildStatsUpdateFrame builds a stats update that carries the temperature
// followed by further statistics
func BuildStatsUpdateFrame(celsius byte) []byte {
	data := append(temperatureData(celsius), 0x84, 0x00, 0x02, 0x00, 0x10)
	return BuildFrame(OpReadTagIDMultiple, StatusOK, data)
}

func temperatureData(celsius byte) []byte {
	return []byte{0x00, 0x01, 0x1F, 0x02, 0x82, 0x00, 0x82, 0x00, 0x01, celsius}
}

// BankBlock encodes one typed bank block of an embedded read
func BankBlock(bank byte, data []byte) []byte {
	return append([]byte{bank << 4, byte(len(data) / 2)}, data...)
}

// EPCBank returns the EPC bank contents: CRC, PC then EPC
func EPCBank(epc []byte) []byte {
	b := []byte{0x3B, 0x72, 0x34, 0x00}
	return append(b, epc...)
}

// BuildMultiSelectData builds a multi-select response payload
func BuildMultiSelectData(tagCount uint32, success, failure uint16, banks []byte) []byte {
	data := []byte{0x88, 0x00, 0x00, 0x17}
	data = binary.BigEndian.AppendUint32(data, tagCount)
	data = append(data, 0x01, OpReadTagData)
	data = binary.BigEndian.AppendUint16(data, success)
	data = binary.BigEndian.AppendUint16(data, failure)
	return append(data, banks...)
}

// BuildTagBufferData builds a GET_TAG_ID_BUFFER payload holding tags
func BuildTagBufferData(tags ...TagRecord) []byte {
	data := binary.BigEndian.AppendUint16(nil, BufferMetadata)
	data = binary.BigEndian.AppendUint16(data, uint16(len(tags)))
	for _, t := range tags {
		data = append(data, t.Record(BufferMetadata)...)
	}
	return data
}

// BuildVersionData builds a VERSION payload
func BuildVersionData() []byte {
	return []byte{
		0x12, 0x08, 0x00, 0x00, // bootloader
		0x18, 0x00, 0x00, 0x00, // hardware
		0x20, 0x19, 0x08, 0x22, // firmware date
		0x01, 0x0B, 0x01, 0x02, // firmware version
		0x00, 0x00, 0x00, 0x10, // protocols: Gen2
	}
}
