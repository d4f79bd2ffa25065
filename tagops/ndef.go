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

package tagops

import (
	"errors"
	"fmt"

	"github.com/hsanjuan/go-ndef"
)

// TLV tags used to store an NDEF message in User memory
const (
	tlvNull       = 0x00
	tlvNDEF       = 0x03
	tlvTerminator = 0xFE
	tlvLongLength = 0xFF
)

var (
	// ErrNoNDEF is returned when User memory holds no NDEF message TLV
	ErrNoNDEF = errors.New("no NDEF message in user memory")
	// ErrNDEFTruncated is returned when the TLV length runs past the data
	ErrNDEFTruncated = errors.New("NDEF message truncated")
)

// NewTextMessage builds a single text record message
func NewTextMessage(text, language string) *ndef.Message {
	return ndef.NewTextMessage(text, language)
}

// NewURIMessage builds a single URI record message
func NewURIMessage(uri string) *ndef.Message {
	return ndef.NewURIMessage(uri)
}

// EncodeNDEF wraps msg in an NDEF TLV followed by a terminator, padded to a
// whole number of 16-bit words.
func EncodeNDEF(msg *ndef.Message) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("nil NDEF message")
	}
	payload, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal NDEF message: %w", err)
	}

	out := []byte{tlvNDEF}
	switch {
	case len(payload) < tlvLongLength:
		out = append(out, byte(len(payload)))
	case len(payload) <= 0xFFFE:
		out = append(out, tlvLongLength, byte(len(payload)>>8), byte(len(payload)))
	default:
		return nil, fmt.Errorf("NDEF message of %d bytes is too large", len(payload))
	}
	out = append(out, payload...)
	out = append(out, tlvTerminator)
	if len(out)%2 != 0 {
		out = append(out, tlvNull)
	}
	return out, nil
}

// DecodeNDEF finds the first NDEF TLV in mem and parses its message. Null
// TLVs are skipped and other TLVs are stepped over by their length.
func DecodeNDEF(mem []byte) (*ndef.Message, error) {
	body, err := findNDEF(mem)
	if err != nil {
		return nil, err
	}
	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(body); err != nil {
		return nil, fmt.Errorf("parse NDEF message: %w", err)
	}
	return msg, nil
}

func findNDEF(mem []byte) ([]byte, error) {
	for i := 0; i < len(mem); {
		tag := mem[i]
		switch tag {
		case tlvNull:
			i++
			continue
		case tlvTerminator:
			return nil, ErrNoNDEF
		}

		if i+1 >= len(mem) {
			return nil, ErrNDEFTruncated
		}
		length := int(mem[i+1])
		start := i + 2
		if mem[i+1] == tlvLongLength {
			if i+3 >= len(mem) {
				return nil, ErrNDEFTruncated
			}
			length = int(mem[i+2])<<8 | int(mem[i+3])
			start = i + 4
		}
		if start+length > len(mem) {
			return nil, fmt.Errorf("%w: TLV needs %d bytes, %d left", ErrNDEFTruncated, length, len(mem)-start)
		}
		if tag == tlvNDEF {
			if length == 0 {
				return nil, ErrNoNDEF
			}
			return mem[start : start+length], nil
		}
		i = start + length
	}
	return nil, ErrNoNDEF
}
