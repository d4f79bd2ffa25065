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

// Buffer reassembles one response frame at a time from a byte stream. It is
// owned by a single caller; nothing in it is safe for concurrent use.
type Buffer struct {
	data [MaxFrameSize]byte
	n    int
}

// Reset discards any partial or complete frame.
func (b *Buffer) Reset() {
	b.n = 0
}

// Len returns the number of bytes held.
func (b *Buffer) Len() int {
	return b.n
}

// Cap returns the fixed capacity of the buffer.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Bytes returns the held bytes. The slice aliases the buffer and is only
// valid until the next Append or Reset.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

// Expected returns the total frame length once the length byte has arrived.
func (b *Buffer) Expected() int {
	return ResponseLength(b.data[:b.n])
}

// Complete reports whether a whole frame is held.
func (b *Buffer) Complete() bool {
	want := b.Expected()
	return want != 0 && b.n == want
}

// Append adds c to the frame under construction and reports whether the
// frame is now complete. Bytes arriving before a header are dropped, and a
// completed frame is discarded when the next byte arrives.
func (b *Buffer) Append(c byte) bool {
	if b.Complete() {
		b.n = 0
	}
	if b.n == 0 && c != Header {
		return false
	}
	b.data[b.n] = c
	b.n++
	return b.Complete()
}

// Decode validates the held frame.
func (b *Buffer) Decode() (*Response, error) {
	return Decode(b.Bytes())
}
