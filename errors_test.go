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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err      error
		name     string
		expected ResultKind
	}{
		{name: "Nil", err: nil, expected: ResultSuccess},
		{name: "Timeout", err: NewTimeoutError("read", "/dev/ttyUSB0"), expected: ResultTimeout},
		{name: "Corrupt", err: NewFrameCorruptedError("read", ""), expected: ResultCorrupt},
		{name: "Wrong_Opcode", err: NewWrongOpcodeError("read", "", 0x03, 0x22), expected: ResultWrongOpcode},
		{name: "Unknown_Opcode", err: fmt.Errorf("stream: %w", ErrUnknownOpcode), expected: ResultUnknownOpcode},
		{
			name:     "Status",
			err:      &StatusError{Op: "x", Status: StatusInvalidRegion},
			expected: ResultStatus,
		},
		{
			name:     "No_Tags_Status",
			err:      &StatusError{Op: "x", Status: StatusNoTagsFound},
			expected: ResultNoTagFound,
		},
		{name: "Invalid_Filter", err: ErrInvalidFilter, expected: ResultInvalidFilter},
		{name: "Invalid_Request", err: ErrInvalidRequest, expected: ResultInvalidRequest},
		{name: "Invalid_Bank", err: ErrInvalidBank, expected: ResultInvalidBank},
		{name: "Retry_Exceeded", err: fmt.Errorf("read: %w", ErrRetryExceeded), expected: ResultRetryExceeded},
		{name: "Invalid_Parameter", err: ErrInvalidParameter, expected: ResultInvalidParameter},
		{name: "Foreign_Error", err: context.Canceled, expected: ResultTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, KindOf(tt.err))
			assert.NotEqual(t, "unknown result", tt.expected.String())
		})
	}
}

func TestStatusError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("read: %w", &StatusError{Op: "command 0x28", Opcode: 0x28, Status: StatusNoTagsFound})

	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.ErrorIs(t, err, ErrNoTagFound)
	assert.NotErrorIs(t, err, ErrInvalidFilter)
	assert.Contains(t, err.Error(), "0x0400 (no tags found)")

	status, ok := StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, StatusNoTagsFound, status)

	_, ok = StatusOf(errors.New("plain"))
	assert.False(t, ok)

	other := &StatusError{Status: StatusAntennaNotConnected}
	assert.NotErrorIs(t, other, ErrNoTagFound)
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err      error
		name     string
		expected bool
	}{
		{name: "Nil", err: nil, expected: false},
		{name: "Timeout", err: NewTimeoutError("read", ""), expected: true},
		{name: "Corrupt", err: NewFrameCorruptedError("read", ""), expected: true},
		{name: "Not_Ready", err: NewTransportNotReadyError("send", ""), expected: false},
		{name: "Bare_Sentinel", err: ErrTransportWrite, expected: true},
		{name: "Status", err: &StatusError{Status: StatusInvalidOpcode}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ErrorTypeTimeout, GetErrorType(NewTimeoutError("read", "")))
	assert.Equal(t, ErrorTypeTransient, GetErrorType(ErrFrameCorrupted))
	assert.Equal(t, ErrorTypePermanent, GetErrorType(ErrInvalidBank))
	assert.Equal(t, ErrorTypePermanent, GetErrorType(nil))
	assert.Equal(t, "timeout", ErrorTypeTimeout.String())
}

func TestTransportError_Message(t *testing.T) {
	t.Parallel()

	err := NewTimeoutError("read response", "/dev/ttyACM0")
	assert.Equal(t, "read response /dev/ttyACM0: transport timeout", err.Error())
	assert.Equal(t, "read response: transport timeout", NewTimeoutError("read response", "").Error())
}
