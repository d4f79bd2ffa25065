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
	"fmt"

	"github.com/ZaparooProject/go-m6e/internal/frame"
)

// RecordKind is the closed set of things a continuous-mode frame can be.
type RecordKind int

// Record kinds
const (
	RecordUnknown RecordKind = iota
	RecordKeepAlive
	RecordTemperatureThrottle
	RecordTemperatureSample
	RecordStatsUpdate
	RecordTagFound
)

func (k RecordKind) String() string {
	switch k {
	case RecordKeepAlive:
		return "keep-alive"
	case RecordTemperatureThrottle:
		return "temperature throttle"
	case RecordTemperatureSample:
		return "temperature sample"
	case RecordStatsUpdate:
		return "stats update"
	case RecordTagFound:
		return "tag found"
	default:
		return "unknown"
	}
}

// Record is one classified continuous-mode frame.
type Record struct {
	// Tag is set for RecordTagFound
	Tag *TagRecord
	// Temperature in °C, set for RecordTemperatureSample
	Temperature int
	Status      uint16
	Kind        RecordKind
}

const (
	keepAliveLongLength = 14
	temperatureLength   = 10
	shortStatusLength   = 8
	statsUpdateMarker   = 0x02
	statsTemperatureTag = 0x82
)

// recordPattern is one variant of the classifier. Patterns are tried in
// order; the first match wins and anything unmatched is RecordUnknown. A
// frame is only a tag if its record actually decodes.
type recordPattern struct {
	match func(r *frame.Response) bool
	name  string
	kind  RecordKind
}

var recordPatterns = []recordPattern{
	{
		name: "keep-alive",
		kind: RecordKeepAlive,
		match: func(r *frame.Response) bool {
			return len(r.Data) == 0 && r.Status == StatusNoTagsFound
		},
	},
	{
		name: "temperature throttle",
		kind: RecordTemperatureThrottle,
		match: func(r *frame.Response) bool {
			return len(r.Data) == 0 && r.Status == StatusTemperatureExceedLimits
		},
	},
	{
		name: "keep-alive long form",
		kind: RecordKeepAlive,
		match: func(r *frame.Response) bool {
			return len(r.Data) == keepAliveLongLength && r.Status == StatusNoTagsFound
		},
	},
	{
		name: "temperature sample",
		kind: RecordTemperatureSample,
		match: func(r *frame.Response) bool {
			_, ok := streamTemperature(r.Data)
			return len(r.Data) == temperatureLength && r.Status == StatusOK && ok
		},
	},
	{
		name: "short status",
		kind: RecordUnknown,
		match: func(r *frame.Response) bool {
			return len(r.Data) == shortStatusLength
		},
	},
	{
		name: "tag found",
		kind: RecordTagFound,
		match: func(r *frame.Response) bool {
			if r.Status != StatusOK {
				return false
			}
			_, err := ParseTagRecord(r.Data)
			return err == nil
		},
	},
	{
		name: "stats update",
		kind: RecordStatsUpdate,
		match: func(r *frame.Response) bool {
			return r.Status == StatusOK && len(r.Data) > 3 && r.Data[3] == statsUpdateMarker
		},
	},
}

// classifyRecord maps a valid frame onto exactly one RecordKind. Frames for
// any opcode other than the inventory opcode are unknown.
func classifyRecord(r *frame.Response) (RecordKind, error) {
	if r.Opcode != opReadTagIDMultiple {
		return RecordUnknown, fmt.Errorf("%w: 0x%02X in stream", ErrUnknownOpcode, r.Opcode)
	}
	for _, p := range recordPatterns {
		if p.match(r) {
			return p.kind, nil
		}
	}
	return RecordUnknown, nil
}

// streamTemperature extracts the module temperature from a stats update.
func streamTemperature(data []byte) (int, bool) {
	if len(data) < temperatureLength {
		return 0, false
	}
	if data[3] != statsUpdateMarker || data[6] != statsTemperatureTag || data[8] != 0x01 {
		return 0, false
	}
	return int(data[9]), true
}

// buildRecord turns a classified frame into a Record.
func buildRecord(r *frame.Response, kind RecordKind) (Record, error) {
	rec := Record{Kind: kind, Status: r.Status}
	switch kind {
	case RecordTemperatureSample, RecordStatsUpdate:
		if t, ok := streamTemperature(r.Data); ok {
			rec.Temperature = t
		}
	case RecordTagFound:
		tag, err := ParseTagRecord(r.Data)
		if err != nil {
			return Record{Kind: RecordUnknown, Status: r.Status}, err
		}
		rec.Tag = tag
	case RecordUnknown, RecordKeepAlive, RecordTemperatureThrottle:
	}
	return rec, nil
}

// ParseFrame validates and classifies a raw continuous-mode frame.
func ParseFrame(raw []byte) (Record, error) {
	resp, err := frame.Decode(raw)
	if err != nil {
		return Record{Kind: RecordUnknown}, fmt.Errorf("%w: %w", ErrFrameCorrupted, err)
	}
	kind, err := classifyRecord(resp)
	if err != nil {
		return Record{Kind: RecordUnknown, Status: resp.Status}, err
	}
	return buildRecord(resp, kind)
}
