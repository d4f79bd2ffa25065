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
)

// Gen2 protocol parameter keys
const (
	gen2Session  = 0x00
	gen2Target   = 0x01
	gen2Encoding = 0x02
	gen2Q        = 0x12
	gen2InitialQ = 0x16
	gen2RFMode   = 0x18
)

const maxInitialQ = 10

// Gen2Session is the inventory session flag set a reader uses.
type Gen2Session byte

// Sessions
const (
	Gen2SessionS0 Gen2Session = iota
	Gen2SessionS1
	Gen2SessionS2
	Gen2SessionS3
)

// Gen2Target selects which inventoried flag state is searched.
type Gen2Target byte

// Targets
const (
	Gen2TargetA Gen2Target = iota
	Gen2TargetB
	Gen2TargetAB
	Gen2TargetBA
)

var gen2TargetWire = map[Gen2Target][2]byte{
	Gen2TargetA:  {0x01, 0x00},
	Gen2TargetB:  {0x01, 0x01},
	Gen2TargetAB: {0x00, 0x00},
	Gen2TargetBA: {0x00, 0x01},
}

// Gen2Encoding is the tag-to-reader Miller encoding.
type Gen2Encoding byte

// Encodings
const (
	Gen2FM0 Gen2Encoding = iota
	Gen2MillerM2
	Gen2MillerM4
	Gen2MillerM8
)

// Gen2QType selects the anti-collision Q algorithm.
type Gen2QType byte

// Q algorithms
const (
	Gen2QDynamic Gen2QType = iota
	Gen2QStatic
)

// Gen2RFMode is a combined link frequency, encoding and Tari setting. Only
// the M7E Hecto accepts it.
type Gen2RFMode uint16

// RF modes
const (
	Gen2RFMode160M8Tari20   Gen2RFMode = 285
	Gen2RFMode250M4Tari20   Gen2RFMode = 244
	Gen2RFMode320M2Tari15   Gen2RFMode = 223
	Gen2RFMode320M2Tari20   Gen2RFMode = 222
	Gen2RFMode320M4Tari20   Gen2RFMode = 241
	Gen2RFMode640FM0Tari7_5 Gen2RFMode = 302
	Gen2RFMode640M2Tari7_5  Gen2RFMode = 323
	Gen2RFMode640M4Tari7_5  Gen2RFMode = 344
)

func (m Gen2RFMode) valid() bool {
	switch m {
	case Gen2RFMode160M8Tari20, Gen2RFMode250M4Tari20, Gen2RFMode320M2Tari15, Gen2RFMode320M2Tari20,
		Gen2RFMode320M4Tari20, Gen2RFMode640FM0Tari7_5, Gen2RFMode640M2Tari7_5, Gen2RFMode640M4Tari7_5:
		return true
	default:
		return false
	}
}

// SetGen2Session sets the Gen2 session
func (d *Device) SetGen2Session(session Gen2Session) error {
	if session > Gen2SessionS3 {
		return fmt.Errorf("%w: session %d", ErrInvalidParameter, session)
	}
	return d.setGen2(gen2Session, byte(session))
}

// GetGen2Session returns the Gen2 session
func (d *Device) GetGen2Session() (Gen2Session, error) {
	v, err := d.getGen2(gen2Session, 1)
	if err != nil {
		return 0, err
	}
	return Gen2Session(v[0]), nil
}

// SetGen2Target sets the Gen2 search target
func (d *Device) SetGen2Target(target Gen2Target) error {
	wire, ok := gen2TargetWire[target]
	if !ok {
		return fmt.Errorf("%w: target %d", ErrInvalidParameter, target)
	}
	return d.setGen2(gen2Target, wire[:]...)
}

// GetGen2Target returns the Gen2 search target
func (d *Device) GetGen2Target() (Gen2Target, error) {
	v, err := d.getGen2(gen2Target, 2)
	if err != nil {
		return 0, err
	}
	for target, wire := range gen2TargetWire {
		if wire[0] == v[0] && wire[1] == v[1] {
			return target, nil
		}
	}
	return 0, fmt.Errorf("%w: target % X", ErrInvalidResponse, v[:2])
}

// SetGen2Encoding sets the Miller encoding. The M7E Hecto only takes
// encodings through SetGen2RFMode.
func (d *Device) SetGen2Encoding(enc Gen2Encoding) error {
	if d.config.Module == ModuleM7EHecto {
		return fmt.Errorf("set gen2 encoding: %w on %s", ErrUnsupported, d.config.Module)
	}
	if enc > Gen2MillerM8 {
		return fmt.Errorf("%w: encoding %d", ErrInvalidParameter, enc)
	}
	return d.setGen2(gen2Encoding, byte(enc))
}

// GetGen2Encoding returns the Miller encoding
func (d *Device) GetGen2Encoding() (Gen2Encoding, error) {
	v, err := d.getGen2(gen2Encoding, 1)
	if err != nil {
		return 0, err
	}
	return Gen2Encoding(v[0]), nil
}

// SetGen2Q selects the Q algorithm. With setInitial the initial Q (0..10)
// is set as well.
func (d *Device) SetGen2Q(qType Gen2QType, initial byte, setInitial bool) error {
	if qType > Gen2QStatic {
		return fmt.Errorf("%w: Q type %d", ErrInvalidParameter, qType)
	}
	if setInitial && initial > maxInitialQ {
		return fmt.Errorf("%w: initial Q %d above %d", ErrInvalidParameter, initial, maxInitialQ)
	}
	if err := d.setGen2(gen2Q, byte(qType)); err != nil {
		return err
	}
	if !setInitial {
		return nil
	}
	return d.setGen2(gen2InitialQ, 0x01, initial)
}

// GetGen2Q returns the Q algorithm and, for static Q, its value
func (d *Device) GetGen2Q() (Gen2QType, byte, error) {
	v, err := d.getGen2(gen2Q, 1)
	if err != nil {
		return 0, 0, err
	}
	var q byte
	if len(v) > 1 {
		q = v[1]
	}
	return Gen2QType(v[0]), q, nil
}

// SetGen2RFMode sets the link profile. M7E Hecto only.
func (d *Device) SetGen2RFMode(mode Gen2RFMode) error {
	if d.config.Module != ModuleM7EHecto {
		return fmt.Errorf("set gen2 rf mode: %w on %s", ErrUnsupported, d.config.Module)
	}
	if !mode.valid() {
		return fmt.Errorf("%w: rf mode %d", ErrInvalidParameter, mode)
	}
	return d.setGen2(gen2RFMode, byte(mode>>8), byte(mode))
}

// GetGen2RFMode returns the link profile. M7E Hecto only.
func (d *Device) GetGen2RFMode() (Gen2RFMode, error) {
	if d.config.Module != ModuleM7EHecto {
		return 0, fmt.Errorf("get gen2 rf mode: %w on %s", ErrUnsupported, d.config.Module)
	}
	v, err := d.getGen2(gen2RFMode, 2)
	if err != nil {
		return 0, err
	}
	return Gen2RFMode(binary.BigEndian.Uint16(v)), nil
}

func (d *Device) setGen2(key byte, value ...byte) error {
	payload := append([]byte{ProtocolGen2, key}, value...)
	return d.simple(context.Background(), fmt.Sprintf("set gen2 param 0x%02X", key), opSetProtocolParam, payload)
}

// getGen2 returns the parameter value, after the protocol and key echo.
func (d *Device) getGen2(key byte, minLen int) ([]byte, error) {
	resp, err := d.SendCommandContext(context.Background(), opGetProtocolParam, []byte{ProtocolGen2, key}, 0)
	if err != nil {
		return nil, fmt.Errorf("get gen2 param 0x%02X: %w", key, err)
	}
	if len(resp.Data) < 2+minLen || resp.Data[0] != ProtocolGen2 || resp.Data[1] != key {
		return nil, fmt.Errorf("%w: gen2 param 0x%02X reply % X", ErrInvalidResponse, key, resp.Data)
	}
	return resp.Data[2:], nil
}
