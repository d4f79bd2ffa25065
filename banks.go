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
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-m6e/internal/frame"
)

// multiSelect is the sub-opcode of READ_TAG_ID_MULTIPLE that inventories
// and runs one embedded command per tag.
const multiSelect = 0x88

// Offsets in a multi-select response payload, after the status word
const (
	msTagCountOffset = 4
	msEmbeddedOffset = 8
	msSuccessOffset  = 10
	msFailureOffset  = 12
	msBankDataOffset = 14
	// msEmbeddedOptionOffset is the embedded read's bank option byte in the
	// request blob
	msEmbeddedOptionOffset = 14
	msTimeoutOffset        = 4
)

// readAllBanksBlob inventories with a 500ms module timeout and reads every
// bank of each tag it finds.
var readAllBanksBlob = []byte{
	multiSelect,
	0x10,       // option
	0x00, 0x17, // search flags: large population, embedded command, antenna list
	0x01, 0xF4, // timeout 500ms
	0x0F, 0xFF, // metadata flags
	0x01,       // embedded command count
	0x09,       // embedded command length
	opReadTagData,
	0x07, 0xD0,             // embedded timeout
	0x00,                   // option
	0x3F,                   // banks: all
	0x00, 0x00, 0x00, 0x00, // word address
	0x00,                   // words: whole bank
}

// tagBufferRequest asks for every buffered tag with full metadata
var tagBufferRequest = []byte{0x0F, 0xFF, 0x00}

// multiSelectSummary is the header of a multi-select response.
type multiSelectSummary struct {
	TagCount     uint32
	SuccessCount uint16
	FailureCount uint16
}

func parseMultiSelect(data []byte) (multiSelectSummary, []byte, error) {
	if len(data) < msBankDataOffset || data[0] != multiSelect {
		return multiSelectSummary{}, nil, fmt.Errorf("%w: short multi-select response (%d bytes)",
			ErrInvalidResponse, len(data))
	}
	if data[msEmbeddedOffset+1] != opReadTagData {
		return multiSelectSummary{}, nil, fmt.Errorf("%w: embedded opcode 0x%02X",
			ErrInvalidResponse, data[msEmbeddedOffset+1])
	}
	summary := multiSelectSummary{
		TagCount:     binary.BigEndian.Uint32(data[msTagCountOffset:]),
		SuccessCount: binary.BigEndian.Uint16(data[msSuccessOffset:]),
		FailureCount: binary.BigEndian.Uint16(data[msFailureOffset:]),
	}
	return summary, data[msBankDataOffset:], nil
}

// sendTagOp sends an inventory command. A full tag buffer still returns
// valid data and is not treated as a failure.
func (d *Device) sendTagOp(
	ctx context.Context, opcode byte, payload []byte, timeout time.Duration,
) (*frame.Response, error) {
	resp, err := d.SendCommandContext(ctx, opcode, payload, timeout)
	if err != nil {
		if status, ok := StatusOf(err); ok && status == StatusTagBufferFull {
			return resp, nil
		}
		return nil, err
	}
	return resp, nil
}

// AllBanksResult describes a ReadAllBanks call.
type AllBanksResult struct {
	// Tag is the first buffered tag, with its banks split out
	Tag          *TagRecord
	lengths      [bankCount]int
	TagCount     uint32
	SuccessCount uint16
	FailureCount uint16
}

// Len returns how many bytes of bank b were copied into the caller's BankSet
func (r *AllBanksResult) Len(b Bank) int {
	if !b.Valid() {
		return 0
	}
	return r.lengths[b]
}

// ReadAllBanks reads every memory bank of the first tag in the field into
// dst. Each destination slice is filled up to its length.
func (d *Device) ReadAllBanks(dst *BankSet, timeout time.Duration) (*AllBanksResult, error) {
	return d.ReadAllBanksContext(context.Background(), dst, timeout)
}

// ReadAllBanksContext is ReadAllBanks with a context
func (d *Device) ReadAllBanksContext(ctx context.Context, dst *BankSet, timeout time.Duration) (*AllBanksResult, error) {
	if dst == nil {
		return nil, fmt.Errorf("%w: nil bank set", ErrInvalidParameter)
	}
	if err := d.DisableReadFilterContext(ctx); err != nil {
		return nil, fmt.Errorf("read all banks: %w", err)
	}
	if _, err := d.SendCommandContext(ctx, opClearTagIDBuffer, nil, timeout); err != nil {
		return nil, fmt.Errorf("read all banks: clear buffer: %w", err)
	}

	resp, err := d.sendTagOp(ctx, opReadTagIDMultiple, readAllBanksBlob, timeout)
	if err != nil {
		return nil, fmt.Errorf("read all banks: %w", err)
	}
	summary, _, err := parseMultiSelect(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("read all banks: %w", err)
	}
	debugf("all banks: tags=%d success=%d failure=%d",
		summary.TagCount, summary.SuccessCount, summary.FailureCount)
	if summary.SuccessCount == 0 {
		return nil, fmt.Errorf("read all banks: %w", ErrNoTagFound)
	}

	resp, err = d.sendTagOp(ctx, opGetTagIDBuffer, tagBufferRequest, timeout)
	if err != nil {
		return nil, fmt.Errorf("read all banks: tag buffer: %w", err)
	}
	tags, err := ParseTagBuffer(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("read all banks: %w", err)
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("read all banks: %w", ErrNoTagFound)
	}

	tag := tags[0]
	if tag.Banks, err = ParseBankBlocks(tag.EmbeddedData); err != nil {
		return nil, fmt.Errorf("read all banks: %w", err)
	}

	return &AllBanksResult{
		Tag:          tag,
		lengths:      dst.fill(tag.Banks),
		TagCount:     summary.TagCount,
		SuccessCount: summary.SuccessCount,
		FailureCount: summary.FailureCount,
	}, nil
}

// ParseTagBuffer decodes a GET_TAG_ID_BUFFER payload: metadata flags(2),
// record count(2) and the records back to back.
func ParseTagBuffer(data []byte) ([]*TagRecord, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: short tag buffer (%d bytes)", ErrInvalidResponse, len(data))
	}
	meta := binary.BigEndian.Uint16(data[0:2])
	count := int(binary.BigEndian.Uint16(data[2:4]))

	tags := make([]*TagRecord, 0, count)
	rest := data[4:]
	for i := 0; i < count; i++ {
		tag, n, err := parseTagRecord(meta, rest)
		if err != nil {
			if len(tags) > 0 && errors.Is(err, ErrInvalidResponse) {
				debugf("tag buffer truncated after %d of %d records", len(tags), count)
				break
			}
			return nil, err
		}
		tags = append(tags, tag)
		rest = rest[n:]
	}
	return tags, nil
}
