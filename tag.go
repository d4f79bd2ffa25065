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
	"encoding/binary"
	"fmt"
)

// Bank is a Gen2 tag memory bank.
type Bank byte

// Memory banks
const (
	BankReserved Bank = 0
	BankEPC      Bank = 1
	BankTID      Bank = 2
	BankUser     Bank = 3
	bankCount         = 4
)

// Bank-enable flags ORed into the embedded read option byte
const (
	bankReservedEnabled byte = 0x04
	bankEPCEnabled      byte = 0x08
	bankTIDEnabled      byte = 0x10
	bankUserEnabled     byte = 0x20
)

func (b Bank) String() string {
	switch b {
	case BankReserved:
		return "reserved"
	case BankEPC:
		return "epc"
	case BankTID:
		return "tid"
	case BankUser:
		return "user"
	default:
		return fmt.Sprintf("bank(%d)", byte(b))
	}
}

// Valid reports whether b names one of the four Gen2 banks.
func (b Bank) Valid() bool {
	return b < bankCount
}

func (b Bank) enableFlag() byte {
	switch b {
	case BankReserved:
		return bankReservedEnabled
	case BankEPC:
		return bankEPCEnabled
	case BankTID:
		return bankTIDEnabled
	case BankUser:
		return bankUserEnabled
	default:
		return 0
	}
}

// Metadata flags select which per-tag fields the module reports.
const (
	MetadataReadCount         uint16 = 0x0001
	MetadataRSSI              uint16 = 0x0002
	MetadataAntennaID         uint16 = 0x0004
	MetadataFrequency         uint16 = 0x0008
	MetadataTimestamp         uint16 = 0x0010
	MetadataPhase             uint16 = 0x0020
	MetadataProtocol          uint16 = 0x0040
	MetadataData              uint16 = 0x0080
	MetadataGPIOStatus        uint16 = 0x0100
	MetadataGen2Q             uint16 = 0x0200
	MetadataGen2LinkFrequency uint16 = 0x0400
	MetadataGen2Target        uint16 = 0x0800
)

const (
	// epcOverhead is the PC word plus the trailing EPC CRC counted in the
	// EPC bit length
	epcOverhead = 4
	// inventoryOption marks a tag record in the continuous stream
	inventoryOption = 0x10
	// streamRecordOffset is where the first record starts in a stream frame:
	// option(1) search flags(2) metadata(2) tag count(1)
	streamRecordOffset = 6
)

// TagRecord is one tag sighting.
type TagRecord struct {
	// EmbeddedData holds the result of an embedded read, if one was requested
	EmbeddedData []byte
	// Banks is filled when the embedded data could be split into banks
	Banks        []BankBlock
	EPC          []byte
	TimestampMs  uint32
	FrequencyKHz uint32
	PC           uint16
	EPCCRC       uint16
	Phase        uint16
	Metadata     uint16
	RSSI         int8
	Antenna      byte
	ReadCount    byte
	Protocol     byte
	GPIO         byte
	Gen2Q        byte
	Gen2LinkFreq byte
	Gen2Target   byte
}

// Bank returns the data of bank b if the record carries it.
func (t *TagRecord) Bank(b Bank) ([]byte, bool) {
	for _, block := range t.Banks {
		if block.Bank == b {
			return block.Value(), true
		}
	}
	return nil, false
}

// EPCString returns the EPC as upper-case hex.
func (t *TagRecord) EPCString() string {
	return fmt.Sprintf("%X", t.EPC)
}

// ParseTagRecord decodes a continuous-mode tag frame. data is the response
// payload after the status word.
func ParseTagRecord(data []byte) (*TagRecord, error) {
	if len(data) <= streamRecordOffset || data[0] != inventoryOption {
		return nil, fmt.Errorf("%w: not a tag record", ErrInvalidResponse)
	}
	meta := binary.BigEndian.Uint16(data[3:5])
	tag, _, err := parseTagRecord(meta, data[streamRecordOffset:])
	return tag, err
}

// parseTagRecord decodes one record laid out according to meta and returns
// the number of bytes it used.
func parseTagRecord(meta uint16, b []byte) (*TagRecord, int, error) {
	r := &cursor{buf: b}
	tag := &TagRecord{Metadata: meta}

	if meta&MetadataReadCount != 0 {
		tag.ReadCount = r.u8()
	}
	if meta&MetadataRSSI != 0 {
		tag.RSSI = int8(r.u8())
	}
	if meta&MetadataAntennaID != 0 {
		tag.Antenna = r.u8()
	}
	if meta&MetadataFrequency != 0 {
		tag.FrequencyKHz = r.u24()
	}
	if meta&MetadataTimestamp != 0 {
		tag.TimestampMs = r.u32()
	}
	if meta&MetadataPhase != 0 {
		tag.Phase = r.u16()
	}
	if meta&MetadataProtocol != 0 {
		tag.Protocol = r.u8()
	}
	if meta&MetadataData != 0 {
		bits := int(r.u16())
		tag.EmbeddedData = r.bytes((bits + 7) / 8)
	}
	if meta&MetadataGPIOStatus != 0 {
		tag.GPIO = r.u8()
	}
	if meta&MetadataGen2Q != 0 {
		tag.Gen2Q = r.u8()
	}
	if meta&MetadataGen2LinkFrequency != 0 {
		tag.Gen2LinkFreq = r.u8()
	}
	if meta&MetadataGen2Target != 0 {
		tag.Gen2Target = r.u8()
	}

	epcBytes := int(r.u16()) / 8
	if r.err == nil && epcBytes < epcOverhead {
		return nil, 0, fmt.Errorf("%w: EPC length %d bytes", ErrInvalidResponse, epcBytes)
	}
	tag.PC = r.u16()
	tag.EPC = r.bytes(epcBytes - epcOverhead)
	tag.EPCCRC = r.u16()

	if r.err != nil {
		return nil, 0, r.err
	}
	return tag, r.off, nil
}

// BankBlock is one bank's worth of data from an embedded read.
type BankBlock struct {
	Data []byte
	Bank Bank
}

// Value returns the usable bank contents. EPC blocks start with the EPC CRC
// and PC word, which are stripped.
func (b BankBlock) Value() []byte {
	if b.Bank == BankEPC {
		if len(b.Data) < epcOverhead {
			return nil
		}
		return b.Data[epcOverhead:]
	}
	return b.Data
}

// ParseBankBlocks splits typed embedded read data into banks. Each block is
// a type byte (bank in the high nibble), a length in words and the data.
func ParseBankBlocks(data []byte) ([]BankBlock, error) {
	var blocks []BankBlock
	for off := 0; off < len(data); {
		if off+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated bank header at %d", ErrInvalidResponse, off)
		}
		bank := Bank(data[off] >> 4 & 0x0F)
		if !bank.Valid() {
			return nil, fmt.Errorf("%w: type 0x%02X at offset %d", ErrInvalidBank, data[off], off)
		}
		n := int(data[off+1]) * 2
		off += 2
		if off+n > len(data) {
			return nil, fmt.Errorf("%w: %s bank needs %d bytes, %d left",
				ErrInvalidResponse, bank, n, len(data)-off)
		}
		block := make([]byte, n)
		copy(block, data[off:off+n])
		blocks = append(blocks, BankBlock{Bank: bank, Data: block})
		off += n
	}
	return blocks, nil
}

// BankSet holds caller-owned destinations for a multi-bank read. The length
// of each slice is its capacity; longer banks are truncated.
type BankSet struct {
	Reserved []byte
	EPC      []byte
	TID      []byte
	User     []byte
}

func (s *BankSet) dest(b Bank) []byte {
	switch b {
	case BankReserved:
		return s.Reserved
	case BankEPC:
		return s.EPC
	case BankTID:
		return s.TID
	case BankUser:
		return s.User
	default:
		return nil
	}
}

// fill copies each block into its destination and returns the clamped
// lengths indexed by bank.
func (s *BankSet) fill(blocks []BankBlock) [bankCount]int {
	var lengths [bankCount]int
	for _, block := range blocks {
		if !block.Bank.Valid() {
			continue
		}
		lengths[block.Bank] = copy(s.dest(block.Bank), block.Value())
	}
	return lengths
}

// cursor reads big-endian fields and records the first overrun.
type cursor struct {
	err error
	buf []byte
	off int
}

func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.off+n > len(c.buf) {
		c.err = fmt.Errorf("%w: record truncated at offset %d (need %d bytes, have %d)",
			ErrInvalidResponse, c.off, n, len(c.buf)-c.off)
		return nil
	}
	out := c.buf[c.off : c.off+n]
	c.off += n
	return out
}

func (c *cursor) u8() byte {
	if b := c.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (c *cursor) u16() uint16 {
	if b := c.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (c *cursor) u24() uint32 {
	if b := c.take(3); b != nil {
		return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	}
	return 0
}

func (c *cursor) u32() uint32 {
	if b := c.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (c *cursor) bytes(n int) []byte {
	b := c.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
