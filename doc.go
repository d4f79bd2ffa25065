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

/*
Package m6e provides a pure Go host driver for ThingMagic M6E Nano and M7E
Hecto UHF RFID modules.

The modules speak a length-prefixed, CRC-16 protected binary protocol over a
serial link. The driver handles both of the module's response modes:
single-shot command replies, and the continuous inventory stream that the
module emits unsolicited after StartReading.

Features:
  - Synchronous command exchange with first-byte and full-frame timeouts
  - Continuous inventory with keep-alive, temperature and tag record decoding
  - Multi-bank reads and EPC-filtered selective reads
  - Tag memory read, write and kill
  - Region, power, Gen2 and GPIO configuration
  - Automatic detection of USB serial adapters

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-m6e"
	    "github.com/ZaparooProject/go-m6e/transport/uart"
	)

	transport, err := uart.New("/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}

	device, err := m6e.New(transport, m6e.WithModuleType(m6e.ModuleM6ENano))
	if err != nil {
	    log.Fatal(err)
	}
	defer device.Close()

	if err := device.Begin(); err != nil {
	    log.Fatal(err)
	}
	_ = device.SetRegion(m6e.RegionEurope)
	_ = device.SetReadPower(2000)

	if err := device.StartReading(); err != nil {
	    log.Fatal(err)
	}
	for {
	    rec, err := device.NextRecord(ctx)
	    if err != nil {
	        break
	    }
	    if rec.Kind == m6e.RecordTagFound {
	        fmt.Printf("EPC %s RSSI %d\n", rec.Tag.EPCString(), rec.Tag.RSSI)
	    }
	}

Selective Reads:

SelectiveReadDataRegion repeats inventories until a tag whose EPC carries a
given byte pattern answers, then returns part of one of its banks:

	filter := m6e.SelectFilter{Pattern: []byte{0xE2, 0x00}, RetryLimit: 3}
	buf := make([]byte, 16)
	n, err := device.SelectiveReadDataRegion(ctx, filter, m6e.BankUser, 0, 8, buf, time.Second)

Error Handling:

Every failure maps to exactly one ResultKind:

	switch m6e.KindOf(err) {
	case m6e.ResultTimeout:
	    // module did not answer
	case m6e.ResultNoTagFound:
	    // nothing in the field
	}

Thread Safety:

Device operations are not thread-safe. Command exchanges and stream decoding
share one receive buffer; serialize all calls behind one mutex if several
goroutines need the device.
*/
package m6e
