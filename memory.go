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
	"context"
	"encoding/binary"
	"fmt"
	"time"
)

// Word addresses used by the wrapper helpers
const (
	killPasswordAddress   = 0
	accessPasswordAddress = 2
	pcWordAddress         = 1
	epcWordAddress        = 2
	// minPCWBuffer is PC word plus a 96-bit EPC
	minPCWBuffer = 14
)

// tagOpTimeout encodes timeout as the 16-bit millisecond field that leads
// every tag memory command.
func (d *Device) tagOpTimeout(timeout time.Duration) (time.Duration, []byte) {
	if timeout <= 0 {
		timeout = d.config.Timeout
	}
	ms := timeout.Milliseconds()
	if ms > 0xFFFF {
		ms = 0xFFFF
	}
	return timeout, binary.BigEndian.AppendUint16(nil, uint16(ms))
}

// ReadData reads bank from word address into dst. len(dst)/2 words are
// requested; the User bank is always read whole. It returns the number of
// bytes copied. The command goes to whichever tag answers first.
func (d *Device) ReadData(bank Bank, address uint32, dst []byte, timeout time.Duration) (int, error) {
	words := len(dst) / 2
	if words > 0xFF {
		words = 0xFF
	}
	if bank == BankUser {
		words = 0
	}
	return d.ReadDataRegion(bank, address, uint8(words), dst, timeout)
}

// ReadDataRegion reads words words of bank from word address into dst. A
// word count of 0 reads the rest of the bank.
func (d *Device) ReadDataRegion(bank Bank, address uint32, words uint8, dst []byte, timeout time.Duration) (int, error) {
	return d.ReadDataRegionContext(context.Background(), bank, address, words, dst, timeout)
}

// ReadDataRegionContext is ReadDataRegion with a context
func (d *Device) ReadDataRegionContext(
	ctx context.Context, bank Bank, address uint32, words uint8, dst []byte, timeout time.Duration,
) (int, error) {
	if !bank.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidBank, bank)
	}
	timeout, payload := d.tagOpTimeout(timeout)
	payload = append(payload, byte(bank))
	payload = binary.BigEndian.AppendUint32(payload, address)
	payload = append(payload, words)

	resp, err := d.SendCommandContext(ctx, opReadTagData, payload, timeout)
	if err != nil {
		return 0, fmt.Errorf("read %s bank: %w", bank, err)
	}
	return copy(dst, resp.Data), nil
}

// WriteData writes data to bank at word address. The command goes to
// whichever tag answers first.
func (d *Device) WriteData(bank Bank, address uint32, data []byte, timeout time.Duration) error {
	return d.WriteDataContext(context.Background(), bank, address, data, timeout)
}

// WriteDataContext is WriteData with a context
func (d *Device) WriteDataContext(
	ctx context.Context, bank Bank, address uint32, data []byte, timeout time.Duration,
) error {
	if !bank.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidBank, bank)
	}
	timeout, payload := d.tagOpTimeout(timeout)
	payload = append(payload, 0x00) // option
	payload = binary.BigEndian.AppendUint32(payload, address)
	payload = append(payload, byte(bank))
	payload = append(payload, data...)
	if len(payload) > 0xFF {
		return fmt.Errorf("%w: %d bytes for %s bank", ErrDataTooLarge, len(data), bank)
	}

	if _, err := d.SendCommandContext(ctx, opWriteTagData, payload, timeout); err != nil {
		return fmt.Errorf("write %s bank: %w", bank, err)
	}
	return nil
}

// WriteDataRegion writes whole words: an odd trailing byte is dropped.
func (d *Device) WriteDataRegion(bank Bank, address uint32, data []byte, timeout time.Duration) error {
	return d.WriteData(bank, address, data[:len(data)&^1], timeout)
}

// KillTag permanently disables the tag with the given kill password
func (d *Device) KillTag(password []byte, timeout time.Duration) error {
	timeout, payload := d.tagOpTimeout(timeout)
	payload = append(payload, 0x00)
	payload = append(payload, password...)
	payload = append(payload, 0x00) // RFU
	if _, err := d.SendCommandContext(context.Background(), opKillTag, payload, timeout); err != nil {
		return fmt.Errorf("kill tag: %w", err)
	}
	return nil
}

// ReadTagEPC reads the EPC, skipping the stored CRC and PC words
func (d *Device) ReadTagEPC(dst []byte, timeout time.Duration) (int, error) {
	return d.ReadData(BankEPC, epcWordAddress, dst, timeout)
}

// WriteTagEPC overwrites the EPC of the first tag that answers
func (d *Device) WriteTagEPC(epc []byte, timeout time.Duration) error {
	return d.WriteData(BankEPC, epcWordAddress, epc, timeout)
}

// ReadTagPCW reads the PC word followed by the EPC. dst must hold at least
// 14 bytes.
func (d *Device) ReadTagPCW(dst []byte, timeout time.Duration) (int, error) {
	if len(dst) < minPCWBuffer {
		return 0, fmt.Errorf("%w: PC+EPC needs %d bytes, got %d", ErrInvalidParameter, minPCWBuffer, len(dst))
	}
	return d.ReadData(BankEPC, pcWordAddress, dst, timeout)
}

// WriteTagPCW writes a PC word followed by an EPC
func (d *Device) WriteTagPCW(pcw []byte, timeout time.Duration) error {
	if len(pcw) < 2 {
		return fmt.Errorf("%w: PC word needs 2 bytes", ErrInvalidParameter)
	}
	return d.WriteData(BankEPC, pcWordAddress, pcw, timeout)
}

// ReadTID reads the tag identifier bank
func (d *Device) ReadTID(dst []byte, timeout time.Duration) (int, error) {
	return d.ReadData(BankTID, 0, dst, timeout)
}

// ReadUserData reads the whole User bank into dst
func (d *Device) ReadUserData(dst []byte, timeout time.Duration) (int, error) {
	return d.ReadData(BankUser, 0, dst, timeout)
}

// WriteUserData writes data at the start of the User bank
func (d *Device) WriteUserData(data []byte, timeout time.Duration) error {
	return d.WriteData(BankUser, 0, data, timeout)
}

// ReadKillPW reads the kill password
func (d *Device) ReadKillPW(dst []byte, timeout time.Duration) (int, error) {
	return d.ReadData(BankReserved, killPasswordAddress, dst, timeout)
}

// WriteKillPW writes the kill password
func (d *Device) WriteKillPW(password []byte, timeout time.Duration) error {
	return d.WriteData(BankReserved, killPasswordAddress, password, timeout)
}

// ReadAccessPW reads the access password
func (d *Device) ReadAccessPW(dst []byte, timeout time.Duration) (int, error) {
	return d.ReadData(BankReserved, accessPasswordAddress, dst, timeout)
}

// WriteAccessPW writes the access password
func (d *Device) WriteAccessPW(password []byte, timeout time.Duration) error {
	return d.WriteData(BankReserved, accessPasswordAddress, password, timeout)
}
