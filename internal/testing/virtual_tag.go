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
	"encoding/hex"
	"strings"
	"sync"

	"github.com/ZaparooProject/go-m6e/internal/frame"
)

// Bank numbers
const (
	BankReserved = 0
	BankEPC      = 1
	BankTID      = 2
	BankUser     = 3
)

// VirtualTag represents a simulated Gen2 tag for testing
type VirtualTag struct {
	Banks   [4][]byte // Reserved, EPC (CRC+PC+EPC), TID, User
	Present bool      // Whether the tag is currently in the field
}

// NewVirtualTag creates a present tag with zeroed passwords, the given EPC
// and TID, and 64 bytes of User memory
func NewVirtualTag(epc, tid []byte) *VirtualTag {
	tag := &VirtualTag{Present: true}
	tag.Banks[BankReserved] = make([]byte, 8)
	tag.Banks[BankEPC] = EPCBank(epc)
	tag.Banks[BankTID] = append([]byte(nil), tid...)
	tag.Banks[BankUser] = make([]byte, 64)
	return tag
}

// EPC returns the EPC without CRC and PC
func (v *VirtualTag) EPC() []byte {
	return v.Banks[BankEPC][4:]
}

// GetEPCString returns the EPC as upper-case hex
func (v *VirtualTag) GetEPCString() string {
	return strings.ToUpper(hex.EncodeToString(v.EPC()))
}

// ReadWords returns words words from bank at word address; 0 reads to the end
func (v *VirtualTag) ReadWords(bank byte, address uint32, words byte) ([]byte, bool) {
	if int(bank) >= len(v.Banks) {
		return nil, false
	}
	mem := v.Banks[bank]
	start := int(address) * 2
	end := len(mem)
	if words != 0 {
		end = start + int(words)*2
	}
	if start > len(mem) || end > len(mem) {
		return nil, false
	}
	return append([]byte(nil), mem[start:end]...), true
}

// WriteWords stores data in bank at word address
func (v *VirtualTag) WriteWords(bank byte, address uint32, data []byte) bool {
	if int(bank) >= len(v.Banks) {
		return false
	}
	start := int(address) * 2
	if start+len(data) > len(v.Banks[bank]) {
		return false
	}
	copy(v.Banks[bank][start:], data)
	return true
}

// Remove simulates removing the tag from the field
func (v *VirtualTag) Remove() {
	v.Present = false
}

// Insert simulates placing the tag back in the field
func (v *VirtualTag) Insert() {
	v.Present = true
}

// VirtualModule is a simulated reader answering commands from virtual tags.
// Handle is meant to be plugged into a scripted transport.
type VirtualModule struct {
	Temperature byte
	tags        []*VirtualTag
	buffer      []*VirtualTag
	mu          sync.Mutex
	// next is the index of the tag the next inventory reports first
	next int
}

// NewVirtualModule creates a module with tags in its field
func NewVirtualModule(tags ...*VirtualTag) *VirtualModule {
	return &VirtualModule{tags: tags, Temperature: 31}
}

// AddTag places another tag in the field
func (m *VirtualModule) AddTag(tag *VirtualTag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags = append(m.tags, tag)
}

func (m *VirtualModule) present() []*VirtualTag {
	var out []*VirtualTag
	for _, t := range m.tags {
		if t.Present {
			out = append(out, t)
		}
	}
	return out
}

// nextTag rotates through present tags so repeated inventories see each in turn
func (m *VirtualModule) nextTag() *VirtualTag {
	tags := m.present()
	if len(tags) == 0 {
		return nil
	}
	tag := tags[m.next%len(tags)]
	m.next++
	return tag
}

// Handle answers one command with zero or more raw response frames.
func (m *VirtualModule) Handle(cmd *frame.Command) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	reply := func(status uint16, data []byte) [][]byte {
		return [][]byte{BuildFrame(cmd.Opcode, status, data)}
	}

	switch cmd.Opcode {
	case OpVersion:
		return reply(StatusOK, BuildVersionData())
	case OpGetTemperature:
		return reply(StatusOK, []byte{m.Temperature})
	case OpClearTagIDBuffer:
		m.buffer = nil
		return reply(StatusOK, nil)
	case OpReadTagData:
		return m.readTagData(cmd.Payload, reply)
	case OpWriteTagData:
		return m.writeTagData(cmd.Payload, reply)
	case OpReadTagIDMultiple:
		return m.multiSelect(cmd.Payload, reply)
	case OpGetTagIDBuffer:
		return m.tagBuffer(reply)
	case OpSetBaudRate:
		return nil
	default:
		return reply(StatusOK, nil)
	}
}

func (m *VirtualModule) readTagData(p []byte, reply func(uint16, []byte) [][]byte) [][]byte {
	if len(p) < 8 {
		return reply(0x0100, nil)
	}
	tags := m.present()
	if len(tags) == 0 {
		return reply(StatusNoTagsFound, nil)
	}
	data, ok := tags[0].ReadWords(p[2], binary.BigEndian.Uint32(p[3:7]), p[7])
	if !ok {
		return reply(0x0105, nil)
	}
	return reply(StatusOK, data)
}

func (m *VirtualModule) writeTagData(p []byte, reply func(uint16, []byte) [][]byte) [][]byte {
	if len(p) < 8 {
		return reply(0x0100, nil)
	}
	tags := m.present()
	if len(tags) == 0 {
		return reply(StatusNoTagsFound, nil)
	}
	if !tags[0].WriteWords(p[7], binary.BigEndian.Uint32(p[3:7]), p[8:]) {
		return reply(0x0406, nil)
	}
	return reply(StatusOK, nil)
}

// multiSelect answers the 0x88 inventory with one tag's embedded read.
func (m *VirtualModule) multiSelect(p []byte, reply func(uint16, []byte) [][]byte) [][]byte {
	if len(p) < 20 || p[0] != 0x88 {
		return reply(StatusOK, nil)
	}
	tag := m.nextTag()
	if tag == nil {
		return reply(StatusNoTagsFound, nil)
	}
	m.buffer = append(m.buffer, tag)

	option := p[14]
	var banks []byte
	switch {
	case option == 0x01:
		banks = append(banks, tag.Banks[BankEPC]...)
	case option&0x3F == 0x3F:
		banks = append(banks, BankBlock(BankUser, tag.Banks[BankUser])...)
		banks = append(banks, BankBlock(BankReserved, tag.Banks[BankReserved])...)
		banks = append(banks, BankBlock(BankEPC, tag.Banks[BankEPC])...)
		banks = append(banks, BankBlock(BankTID, tag.Banks[BankTID])...)
	default:
		banks = append(banks, BankBlock(BankEPC, tag.Banks[BankEPC])...)
		for bank, flag := range []byte{0x04, 0x08, 0x10, 0x20} {
			if bank != BankEPC && option&flag != 0 {
				banks = append(banks, BankBlock(byte(bank), tag.Banks[bank])...)
			}
		}
	}
	return reply(StatusOK, BuildMultiSelectData(1, 1, 0, banks))
}

func (m *VirtualModule) tagBuffer(reply func(uint16, []byte) [][]byte) [][]byte {
	records := make([]TagRecord, 0, len(m.buffer))
	for _, tag := range m.buffer {
		rec := DefaultTag(tag.EPC())
		for _, bank := range []byte{BankUser, BankReserved, BankEPC, BankTID} {
			rec.Data = append(rec.Data, BankBlock(bank, tag.Banks[bank])...)
		}
		records = append(records, rec)
	}
	return reply(StatusOK, BuildTagBufferData(records...))
}

// StreamFrames returns one continuous-mode tag frame per present tag
func (m *VirtualModule) StreamFrames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	var frames [][]byte
	for _, tag := range m.present() {
		frames = append(frames, BuildStreamTagFrame(DefaultTag(tag.EPC())))
	}
	return frames
}
