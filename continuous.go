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

	"github.com/ZaparooProject/go-m6e/internal/frame"
)

// continuousInventory starts a Gen2 inventory that streams every tag with
// metadata 0x01FF and periodic temperature statistics.
var continuousInventory = []byte{
	0x00, 0x00, // timeout, ignored in continuous mode
	0x01,       // option: continuous
	0x22,       // sub-opcode: read tag id multiple
	0x00, 0x00, // search flags
	0x05,       // protocol: Gen2
	0x09,       // length of the embedded command
	0x22,       // embedded opcode
	0x10,       // option: metadata present
	0x01, 0x1B, // search flags
	0x03, 0xE8, // timeout 1000ms
	0x01, 0xFF, // metadata flags
	0x01, 0x00, // stats: temperature
}

// continuousBankInventory is continuousInventory with an embedded bank read.
// Bytes 24..29 are patched with bank, word address and word count.
var continuousBankInventory = [30]byte{
	0x00, 0x00, 0x01, 0x22, 0x00, 0x00, 0x05, 0x15,
	0x22, 0x10, 0x01, 0x1F, 0x00, 0xFA, 0x01, 0xFF,
	0x01, 0x00, 0x01, 0x09, 0x28, 0x07, 0xD0, 0x00,
	0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
}

var stopContinuous = []byte{0x00, 0x00, 0x02}

// maxEmbeddedWords is the largest embedded read the module returns in one record
const maxEmbeddedWords = 32

// StartReading puts the module into continuous inventory. Records are then
// collected with Check and ParseResponse, or NextRecord.
func (d *Device) StartReading() error {
	return d.StartReadingContext(context.Background())
}

// StartReadingContext puts the module into continuous inventory
func (d *Device) StartReadingContext(ctx context.Context) error {
	if err := d.DisableReadFilterContext(ctx); err != nil {
		return fmt.Errorf("start reading: %w", err)
	}
	if _, err := d.SendCommandContext(ctx, opMultiProtocolTagOp, continuousInventory, 0); err != nil {
		return fmt.Errorf("start reading: %w", err)
	}
	d.enterContinuous(nil)
	return nil
}

// StartReadingBank starts continuous inventory with every record carrying
// length words of bank starting at word address. User reads of 0 or more
// than 32 words are set to 32; other banks are capped at 32 (0 reads the
// whole bank).
func (d *Device) StartReadingBank(bank Bank, address uint32, length byte) error {
	return d.StartReadingBankContext(context.Background(), bank, address, length)
}

// StartReadingBankContext is StartReadingBank with a context
func (d *Device) StartReadingBankContext(ctx context.Context, bank Bank, address uint32, length byte) error {
	if !bank.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidBank, bank)
	}

	blob := continuousBankInventory
	blob[24] = byte(bank)
	binary.BigEndian.PutUint32(blob[25:29], address)
	switch {
	case bank == BankUser && (length == 0 || length > maxEmbeddedWords):
		length = maxEmbeddedWords
	case length > maxEmbeddedWords:
		length = maxEmbeddedWords
	}
	blob[29] = length

	// Same EPC with different bank contents counts as a distinct tag.
	if err := d.SetReaderConfigurationContext(ctx, optionUniqueByData, 0x00); err != nil {
		return fmt.Errorf("start reading bank: %w", err)
	}
	if err := d.DisableReadFilterContext(ctx); err != nil {
		return fmt.Errorf("start reading bank: %w", err)
	}
	if _, err := d.SendCommandContext(ctx, opMultiProtocolTagOp, blob[:], 0); err != nil {
		return fmt.Errorf("start reading bank: %w", err)
	}
	d.enterContinuous(&bank)
	return nil
}

// StopReading ends continuous inventory. The module does not acknowledge,
// so whatever it still streams is drained and dropped.
func (d *Device) StopReading() error {
	d.continuous = false
	d.streamBank = nil
	if err := d.SendNoResponse(opMultiProtocolTagOp, stopContinuous); err != nil {
		return fmt.Errorf("stop reading: %w", err)
	}
	return nil
}

// IsReading reports whether continuous inventory is active
func (d *Device) IsReading() bool {
	return d.continuous
}

func (d *Device) enterContinuous(bank *Bank) {
	d.continuous = true
	d.streamBank = bank
	d.temperature = -1
	d.record = nil
	d.rx.Reset()
}

// Check consumes whatever bytes are available and reports whether a frame
// with a user-visible record has been completed. It never blocks. Corrupt
// frames are dropped and reassembly restarts at the next header byte.
// Stats updates refresh the cached temperature and report false.
func (d *Device) Check() bool {
	for {
		n, err := d.transport.Available()
		if err != nil {
			debugf("stream poll failed: %v", err)
			return false
		}
		if n == 0 {
			return false
		}
		for ; n > 0; n-- {
			b, err := d.transport.ReadByte()
			if err != nil {
				debugf("stream read failed: %v", err)
				return false
			}
			if d.rx.Append(b) && d.completeStreamFrame() {
				return true
			}
		}
	}
}

func (d *Device) completeStreamFrame() bool {
	d.stats.Frames++
	debugFrame("stream", d.rx.Bytes())

	resp, err := d.rx.Decode()
	if err != nil {
		d.stats.Corrupt++
		d.rx.Reset()
		debugln("dropping corrupt stream frame")
		return false
	}

	kind, kindErr := classifyRecord(resp)
	if t, ok := streamTemperature(resp.Data); ok && (kind == RecordStatsUpdate || kind == RecordTemperatureSample) {
		d.temperature = t
	}
	if kind == RecordStatsUpdate {
		d.stats.StatsFrames++
		return false
	}

	d.record = resp
	d.recordKind = kind
	d.recordErr = kindErr
	return true
}

// ParseResponse classifies the frame most recently completed by Check.
func (d *Device) ParseResponse() (Record, error) {
	if d.record == nil {
		return Record{Kind: RecordUnknown}, fmt.Errorf("%w: no stream frame", ErrInvalidResponse)
	}
	if d.recordErr != nil {
		return Record{Kind: RecordUnknown, Status: d.record.Status}, d.recordErr
	}
	rec, err := buildRecord(d.record, d.recordKind)
	if err != nil {
		return rec, err
	}
	if rec.Tag != nil && d.streamBank != nil {
		rec.Tag.Banks = []BankBlock{{Bank: *d.streamBank, Data: rec.Tag.EmbeddedData}}
	}
	return rec, nil
}

// NextRecord polls Check until a record is ready or ctx is done.
func (d *Device) NextRecord(ctx context.Context) (Record, error) {
	if !d.continuous {
		return Record{}, ErrNotContinuous
	}

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()
	for {
		if d.Check() {
			return d.ParseResponse()
		}
		select {
		case <-ctx.Done():
			return Record{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// StreamStats returns frame counters for the current session
func (d *Device) StreamStats() StreamStats {
	return d.stats
}

// LastFrame returns a copy of the last stream frame handed out by Check
func (d *Device) LastFrame() *frame.Response {
	if d.record == nil {
		return nil
	}
	cp := *d.record
	return &cp
}
