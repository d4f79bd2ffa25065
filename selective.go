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
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-m6e/internal/transport"
)

// maxFilterEPC is the EPC length a select filter is matched against
const maxFilterEPC = 12

// selectiveBlob is the multi-select request used by the selective read. The
// embedded read always includes the EPC bank so the tag can be identified.
var selectiveBlob = [...]byte{
	multiSelect,
	0x10,
	0x00, 0x17,
	0x01, 0xF4, // timeout, patched per call
	0x0F, 0xFF,
	0x01,
	0x09,
	opReadTagData,
	0x07, 0xD0,
	0x00,
	0x01, // banks: EPC, ORed with the requested bank
	0x00, 0x00, 0x00, 0x00,
	0x00,
}

// SelectFilter picks one tag by a slice of its EPC.
type SelectFilter struct {
	// Pattern is compared against EPC[Offset:Offset+len(Pattern)]
	Pattern []byte
	Offset  byte
	// RetryLimit is the number of non-matching inventories tolerated before
	// giving up. Zero retries until the context ends.
	RetryLimit byte
}

// Validate checks the filter fits inside a 96-bit EPC.
func (f SelectFilter) Validate() error {
	if int(f.Offset) >= maxFilterEPC || int(f.Offset)+len(f.Pattern) > maxFilterEPC {
		return fmt.Errorf("%w: offset %d length %d exceeds %d-byte EPC",
			ErrInvalidFilter, f.Offset, len(f.Pattern), maxFilterEPC)
	}
	return nil
}

// matches reports whether epc carries the pattern at the filter offset.
func (f SelectFilter) matches(epc []byte) bool {
	end := int(f.Offset) + len(f.Pattern)
	if end > len(epc) {
		return false
	}
	return bytes.Equal(epc[f.Offset:end], f.Pattern)
}

// selectiveAttempt is one inventory's view of the tag it read.
type selectiveAttempt struct {
	epc  []byte
	bank []byte
}

// SelectiveReadDataRegion inventories until a tag whose EPC matches filter
// is seen, then copies words words of bank starting at word address into
// dst. It returns the number of bytes copied.
//
// Inventories that find no tag or the wrong tag count against
// filter.RetryLimit. Transport and protocol failures end the loop at once.
func (d *Device) SelectiveReadDataRegion(
	ctx context.Context,
	filter SelectFilter,
	bank Bank,
	address uint32,
	words uint8,
	dst []byte,
	timeout time.Duration,
) (int, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}
	if !bank.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidBank, bank)
	}
	if timeout <= 0 {
		timeout = d.config.Timeout
	}

	if err := d.SetReaderConfigurationContext(ctx, optionUniqueByData, 0x00); err != nil {
		return 0, fmt.Errorf("selective read: %w", err)
	}
	if err := d.DisableReadFilterContext(ctx); err != nil {
		return 0, fmt.Errorf("selective read: %w", err)
	}
	if _, err := d.SendCommandContext(ctx, opClearTagIDBuffer, nil, timeout); err != nil {
		return 0, fmt.Errorf("selective read: clear buffer: %w", err)
	}

	blob := selectiveBlob
	ms := timeout.Milliseconds()
	if ms > 0xFFFF {
		ms = 0xFFFF
	}
	blob[msTimeoutOffset] = byte(ms >> 8)
	blob[msTimeoutOffset+1] = byte(ms)
	if bank != BankEPC {
		blob[msEmbeddedOptionOffset] |= bank.enableFlag()
	}

	retries := int(filter.RetryLimit)
	if filter.RetryLimit == 0 {
		retries = -1
	}

	found, err := transport.WithRetry(ctx, transport.RetryConfig{
		MaxRetries:  retries,
		Description: "selective read",
		OnRetry: func(attempt int) error {
			debugf("selective read: no match, attempt %d", attempt+1)
			return nil
		},
	}, func() (selectiveAttempt, bool, error) {
		attempt, err := d.selectiveInventory(ctx, blob[:], bank, timeout)
		switch {
		case errors.Is(err, ErrNoTagFound):
			return selectiveAttempt{}, true, nil
		case err != nil:
			return selectiveAttempt{}, false, err
		case !filter.matches(attempt.epc):
			return selectiveAttempt{}, true, nil
		}
		return attempt, false, nil
	})
	if errors.Is(err, transport.ErrRetriesExhausted) {
		return 0, fmt.Errorf("selective read: %w after %d attempts", ErrRetryExceeded, retries+1)
	}
	if err != nil {
		return 0, fmt.Errorf("selective read: %w", err)
	}

	start := int(address) * 2
	n := int(words) * 2
	if start+n > len(found.bank) {
		return 0, fmt.Errorf("%w: words %d..%d beyond %s bank of %d bytes",
			ErrInvalidRequest, address, int(address)+int(words), bank, len(found.bank))
	}
	return copy(dst, found.bank[start:start+n]), nil
}

// selectiveInventory runs one multi-select and extracts the EPC and the
// requested bank from its embedded read.
func (d *Device) selectiveInventory(
	ctx context.Context, blob []byte, bank Bank, timeout time.Duration,
) (selectiveAttempt, error) {
	resp, err := d.sendTagOp(ctx, opReadTagIDMultiple, blob, timeout)
	if err != nil {
		return selectiveAttempt{}, err
	}
	summary, data, err := parseMultiSelect(resp.Data)
	if err != nil {
		return selectiveAttempt{}, err
	}
	if summary.SuccessCount == 0 {
		return selectiveAttempt{}, ErrNoTagFound
	}

	// An EPC-only read comes back as a bare EPC bank without a block header.
	if bank == BankEPC {
		epc := BankBlock{Bank: BankEPC, Data: data}.Value()
		if epc == nil {
			return selectiveAttempt{}, fmt.Errorf("%w: EPC block of %d bytes", ErrInvalidResponse, len(data))
		}
		return selectiveAttempt{epc: epc, bank: epc}, nil
	}

	blocks, err := ParseBankBlocks(data)
	if err != nil {
		return selectiveAttempt{}, err
	}
	var attempt selectiveAttempt
	var haveBank bool
	for _, block := range blocks {
		if block.Bank == BankEPC {
			attempt.epc = block.Value()
		}
		if block.Bank == bank {
			attempt.bank = block.Value()
			haveBank = true
		}
	}
	if attempt.epc == nil || !haveBank {
		return selectiveAttempt{}, fmt.Errorf("%w: %s bank missing from embedded read", ErrInvalidResponse, bank)
	}
	return attempt, nil
}
