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

package frame

// crcTable is indexed by the top nibble of the running CRC.
var crcTable = [16]uint16{
	0x0000, 0x1021, 0x2042, 0x3063,
	0x4084, 0x50a5, 0x60c6, 0x70e7,
	0x8108, 0x9129, 0xa14a, 0xb16b,
	0xc18c, 0xd1ad, 0xe1ce, 0xf1ef,
}

// CRC16 computes the module firmware's CRC over data. Each byte is fed in as
// two nibbles, high first, starting from a 0xFFFF seed. The result goes on
// the wire big-endian.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc = ((crc << 4) | uint16(b>>4)) ^ crcTable[crc>>12]
		crc = ((crc << 4) | uint16(b&0x0F)) ^ crcTable[crc>>12]
	}
	return crc
}

// ValidateCRC reports whether the two bytes following body match its CRC.
func ValidateCRC(body []byte, hi, lo byte) bool {
	return CRC16(body) == uint16(hi)<<8|uint16(lo)
}
