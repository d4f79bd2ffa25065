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
	"bytes"
	"errors"
	"fmt"
)

const unknownName = "Unknown"

// tidClassGen2 is the allocation class of EPCglobal Gen2 TIDs
const tidClassGen2 = 0xE2

// ErrShortTID is returned when fewer than four TID bytes are available
var ErrShortTID = errors.New("TID shorter than 4 bytes")

// TagInfo describes a tag chip decoded from its TID
type TagInfo struct {
	Manufacturer string
	Model        string
	// Serial holds the TID bytes after the class header, if any
	Serial []byte
	MDID   uint16
	TMN    uint16
	Class  byte
	// XTID is set when the TID carries an extended header
	XTID bool
}

func (i TagInfo) String() string {
	return fmt.Sprintf("%s %s (MDID 0x%03X, TMN 0x%03X)", i.Manufacturer, i.Model, i.MDID, i.TMN)
}

var manufacturers = map[uint16]string{
	0x001: "Impinj",
	0x003: "Alien",
	0x004: "Atmel",
	0x006: "NXP",
	0x00B: "EM Microelectronic",
}

type chipKey struct {
	mdid uint16
	tmn  uint16
}

var models = map[chipKey]string{
	{0x001, 0x105}: "Monza 4QT",
	{0x001, 0x10C}: "Monza 4E",
	{0x001, 0x130}: "Monza 5",
	{0x001, 0x160}: "Monza R6",
	{0x001, 0x170}: "Monza R6-P",
	{0x001, 0x190}: "M750",
	{0x001, 0x191}: "M730",
	{0x003, 0x412}: "Higgs-3",
	{0x003, 0x414}: "Higgs-4",
	{0x006, 0x890}: "UCODE 7",
	{0x006, 0x894}: "UCODE 8",
}

// DescribeTID decodes the Gen2 class header of tid: the XTID flag, the
// 9-bit mask designer ID and the 12-bit model number.
func DescribeTID(tid []byte) (*TagInfo, error) {
	if len(tid) < 4 {
		return nil, fmt.Errorf("%w: got %d", ErrShortTID, len(tid))
	}

	info := &TagInfo{Class: tid[0], Manufacturer: unknownName, Model: unknownName}
	if info.Class != tidClassGen2 {
		return info, nil
	}

	header := uint32(tid[1])<<16 | uint32(tid[2])<<8 | uint32(tid[3])
	info.XTID = header&0x800000 != 0
	info.MDID = uint16(header>>12) & 0x1FF
	info.TMN = uint16(header & 0xFFF)
	if len(tid) > 4 {
		info.Serial = append([]byte(nil), tid[4:]...)
	}

	if name, ok := manufacturers[info.MDID]; ok {
		info.Manufacturer = name
	}
	if name, ok := models[chipKey{info.MDID, info.TMN}]; ok {
		info.Model = name
	}
	return info, nil
}

// GetTagInfo reads the TID of the tag in the field and decodes it
func (t *TagOperations) GetTagInfo() (*TagInfo, error) {
	tid, err := t.ReadTID()
	if err != nil {
		return nil, err
	}
	return DescribeTID(tid)
}

// CompareEPC compares two EPCs for equality
func CompareEPC(a, b []byte) bool {
	return bytes.Equal(a, b)
}
