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

package tagops_test

import (
	"fmt"

	"github.com/ZaparooProject/go-m6e/tagops"
)

func ExampleDescribeTID() {
	tid := []byte{0xE2, 0x80, 0x11, 0x60, 0x20, 0x00, 0x51, 0x9C}

	info, err := tagops.DescribeTID(tid)
	if err != nil {
		_, _ = fmt.Println("error:", err)
		return
	}
	_, _ = fmt.Println(info)
	_, _ = fmt.Printf("serial: %X\n", info.Serial)

	// Output:
	// Impinj Monza R6 (MDID 0x001, TMN 0x160)
	// serial: 2000519C
}

func ExampleEncodeNDEF() {
	msg := tagops.NewTextMessage("hi", "en")

	mem, err := tagops.EncodeNDEF(msg)
	if err != nil {
		_, _ = fmt.Println("error:", err)
		return
	}
	_, _ = fmt.Printf("% X\n", mem)

	decoded, err := tagops.DecodeNDEF(mem)
	if err != nil {
		_, _ = fmt.Println("error:", err)
		return
	}
	_, _ = fmt.Println("records:", len(decoded.Records), "type:", decoded.Records[0].Type())

	// Output:
	// 03 09 D1 01 05 54 02 65 6E 68 69 FE
	// records: 1 type: T
}
