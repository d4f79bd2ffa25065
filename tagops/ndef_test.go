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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeNDEF(t *testing.T) {
	t.Parallel()

	msg := NewTextMessage("hello", "en")
	raw, err := msg.Marshal()
	require.NoError(t, err)

	encoded, err := EncodeNDEF(msg)
	require.NoError(t, err)

	assert.Equal(t, byte(tlvNDEF), encoded[0])
	assert.Equal(t, byte(len(raw)), encoded[1])
	assert.Equal(t, raw, encoded[2:2+len(raw)])
	assert.Equal(t, byte(tlvTerminator), encoded[2+len(raw)])
	assert.Zero(t, len(encoded)%2, "encoded length is whole words")
}

func TestEncodeNDEF_LongLength(t *testing.T) {
	t.Parallel()

	msg := NewURIMessage("https://example.com/" + strings.Repeat("a", 300))
	raw, err := msg.Marshal()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), 0xFF)

	encoded, err := EncodeNDEF(msg)
	require.NoError(t, err)
	assert.Equal(t, []byte{tlvNDEF, tlvLongLength, byte(len(raw) >> 8), byte(len(raw))}, encoded[:4])

	decoded, err := DecodeNDEF(encoded)
	require.NoError(t, err)
	again, err := decoded.Marshal()
	require.NoError(t, err)
	assert.Equal(t, raw, again)
}

func TestEncodeNDEF_Nil(t *testing.T) {
	t.Parallel()

	_, err := EncodeNDEF(nil)
	require.Error(t, err)
}

func TestDecodeNDEF_RoundTrip(t *testing.T) {
	t.Parallel()

	msg := NewURIMessage("https://zaparoo.org")
	raw, err := msg.Marshal()
	require.NoError(t, err)
	encoded, err := EncodeNDEF(msg)
	require.NoError(t, err)

	mem := make([]byte, 64)
	copy(mem, encoded)

	decoded, err := DecodeNDEF(mem)
	require.NoError(t, err)
	require.Len(t, decoded.Records, 1)
	assert.Equal(t, "U", decoded.Records[0].Type())

	again, err := decoded.Marshal()
	require.NoError(t, err)
	assert.Equal(t, raw, again)
}

func TestDecodeNDEF_SkipsOtherTLVs(t *testing.T) {
	t.Parallel()

	encoded, err := EncodeNDEF(NewTextMessage("uhf", "en"))
	require.NoError(t, err)

	mem := []byte{tlvNull, tlvNull, 0x01, 0x03, 0xAA, 0xBB, 0xCC}
	mem = append(mem, encoded...)

	decoded, err := DecodeNDEF(mem)
	require.NoError(t, err)
	require.Len(t, decoded.Records, 1)
	assert.Equal(t, "T", decoded.Records[0].Type())
}

func TestDecodeNDEF_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		mem     []byte
	}{
		{name: "blank memory", mem: make([]byte, 16), wantErr: ErrNoNDEF},
		{name: "empty", mem: nil, wantErr: ErrNoNDEF},
		{name: "terminator first", mem: []byte{tlvTerminator, tlvNDEF, 0x01, 0xD1}, wantErr: ErrNoNDEF},
		{name: "empty message", mem: []byte{tlvNDEF, 0x00, tlvTerminator, 0x00}, wantErr: ErrNoNDEF},
		{name: "length past end", mem: []byte{tlvNDEF, 0x10, 0xD1, 0x01}, wantErr: ErrNDEFTruncated},
		{name: "missing length", mem: []byte{0x00, tlvNDEF}, wantErr: ErrNDEFTruncated},
		{name: "short long length", mem: []byte{tlvNDEF, tlvLongLength, 0x01}, wantErr: ErrNDEFTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeNDEF(tt.mem)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
