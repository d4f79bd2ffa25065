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

// Package tagops provides tag-level helpers on top of a Device: identifying
// the chip from its TID and storing NDEF messages in User memory.
package tagops

import (
	"errors"
	"fmt"
	"time"

	"github.com/hsanjuan/go-ndef"

	m6e "github.com/ZaparooProject/go-m6e"
)

const (
	// DefaultTimeout is the tag operation timeout passed to the module
	DefaultTimeout = 500 * time.Millisecond
	// tidReadLength covers the longest serialized TID in common chips
	tidReadLength = 24
	// maxUserMemory is the largest User bank read in one command
	maxUserMemory = 128
)

// ErrNoTag is returned when the module found no tag to operate on
var ErrNoTag = errors.New("no tag in field")

// TagOperations runs memory operations against whichever tag answers first
type TagOperations struct {
	device    *m6e.Device
	validated *m6e.ValidatedDevice
	timeout   time.Duration
}

// New returns tag operations for device. Writes are read back and retried
// with the default validation settings.
func New(device *m6e.Device) *TagOperations {
	return &TagOperations{
		device:    device,
		validated: m6e.NewValidatedDevice(device, nil),
		timeout:   DefaultTimeout,
	}
}

// SetTimeout changes the tag operation timeout
func (t *TagOperations) SetTimeout(timeout time.Duration) {
	t.timeout = timeout
}

func noTag(err error) error {
	if errors.Is(err, m6e.ErrNoTagFound) {
		return fmt.Errorf("%w: %w", ErrNoTag, err)
	}
	return err
}

// ReadTID reads the TID bank
func (t *TagOperations) ReadTID() ([]byte, error) {
	buf := make([]byte, tidReadLength)
	n, err := t.device.ReadTID(buf, t.timeout)
	if err != nil {
		return nil, noTag(err)
	}
	return buf[:n], nil
}

// ReadUserMemory reads the whole User bank
func (t *TagOperations) ReadUserMemory() ([]byte, error) {
	buf := make([]byte, maxUserMemory)
	n, err := t.device.ReadUserData(buf, t.timeout)
	if err != nil {
		return nil, noTag(err)
	}
	return buf[:n], nil
}

// ReadNDEF reads User memory and decodes the NDEF message stored there
func (t *TagOperations) ReadNDEF() (*ndef.Message, error) {
	mem, err := t.ReadUserMemory()
	if err != nil {
		return nil, err
	}
	return DecodeNDEF(mem)
}

// WriteNDEF encodes msg and writes it at the start of User memory with
// read-back verification
func (t *TagOperations) WriteNDEF(msg *ndef.Message) error {
	data, err := EncodeNDEF(msg)
	if err != nil {
		return err
	}
	if err := t.validated.WriteDataVerified(m6e.BankUser, 0, data, t.timeout); err != nil {
		return noTag(fmt.Errorf("write NDEF: %w", err))
	}
	return nil
}

// ValidationMetrics returns write verification counters
func (t *TagOperations) ValidationMetrics() m6e.ValidationMetrics {
	return t.validated.GetValidationMetrics()
}
