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
	"testing"
	"time"

	testutil "github.com/ZaparooProject/go-m6e/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevice_ReadDataRegion_Payload(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	mock.SetResponse(opReadTagData, StatusOK, []byte{0xDE, 0xAD, 0xBE, 0xEF})

	dst := make([]byte, 2)
	n, err := device.ReadDataRegion(BankTID, 0x0102, 2, dst, 500*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{0xDE, 0xAD}, dst)

	cmd, ok := mock.LastCommand(opReadTagData)
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, 0xF4, 0x02, 0x00, 0x00, 0x01, 0x02, 0x02}, cmd.Payload)
}

func TestDevice_WriteData_Payload(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	require.NoError(t, device.WriteData(BankUser, 4, []byte{0x11, 0x22}, time.Second))

	cmd, ok := mock.LastCommand(opWriteTagData)
	require.True(t, ok)
	assert.Equal(t, []byte{0x03, 0xE8, 0x00, 0x00, 0x00, 0x00, 0x04, 0x03, 0x11, 0x22}, cmd.Payload)
}

func TestDevice_MemoryRoundTrip(t *testing.T) {
	t.Parallel()

	device, _, _ := newVirtualDevice(t, testutil.NewVirtualTag(testutil.TestEPC, testutil.TestTID))

	epc := make([]byte, 12)
	n, err := device.ReadTagEPC(epc, 0)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, testutil.TestEPC, epc)

	pcw := make([]byte, 14)
	n, err = device.ReadTagPCW(pcw, 0)
	require.NoError(t, err)
	assert.Equal(t, 14, n)
	assert.Equal(t, []byte{0x34, 0x00}, pcw[:2])

	tid := make([]byte, 24)
	n, err = device.ReadTID(tid, 0)
	require.NoError(t, err)
	assert.Equal(t, 24, n)
	assert.Equal(t, testutil.TestTID, tid)

	require.NoError(t, device.WriteUserData([]byte("uhf!"), 0))
	user := make([]byte, 64)
	n, err = device.ReadUserData(user, 0)
	require.NoError(t, err)
	assert.Equal(t, 64, n)
	assert.Equal(t, []byte("uhf!"), user[:4])

	require.NoError(t, device.WriteAccessPW([]byte{0xA1, 0xB2, 0xC3, 0xD4}, 0))
	require.NoError(t, device.WriteKillPW([]byte{0x01, 0x02, 0x03, 0x04}, 0))
	access := make([]byte, 4)
	_, err = device.ReadAccessPW(access, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA1, 0xB2, 0xC3, 0xD4}, access)
	kill := make([]byte, 4)
	_, err = device.ReadKillPW(kill, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, kill)

	newEPC := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	require.NoError(t, device.WriteTagEPC(newEPC, 0))
	_, err = device.ReadTagEPC(epc, 0)
	require.NoError(t, err)
	assert.Equal(t, newEPC, epc)
}

func TestDevice_ReadData_UserReadsWholeBank(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	_, err := device.ReadData(BankUser, 0, make([]byte, 8), 0)
	require.NoError(t, err)

	cmd, ok := mock.LastCommand(opReadTagData)
	require.True(t, ok)
	assert.Equal(t, byte(0), cmd.Payload[7])
}

func TestDevice_MemoryErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expectedErr error
		call        func(*Device) error
		name        string
		writes      int
	}{
		{
			name: "Read_Invalid_Bank",
			call: func(d *Device) error {
				_, err := d.ReadDataRegion(Bank(4), 0, 1, make([]byte, 2), 0)
				return err
			},
			expectedErr: ErrInvalidBank,
		},
		{
			name:        "Write_Invalid_Bank",
			call:        func(d *Device) error { return d.WriteData(Bank(8), 0, []byte{1, 2}, 0) },
			expectedErr: ErrInvalidBank,
		},
		{
			name:        "Write_Too_Large",
			call:        func(d *Device) error { return d.WriteData(BankUser, 0, make([]byte, 250), 0) },
			expectedErr: ErrDataTooLarge,
		},
		{
			name: "PCW_Buffer_Too_Small",
			call: func(d *Device) error {
				_, err := d.ReadTagPCW(make([]byte, 12), 0)
				return err
			},
			expectedErr: ErrInvalidParameter,
		},
		{
			name:        "PCW_Write_Too_Short",
			call:        func(d *Device) error { return d.WriteTagPCW([]byte{0x30}, 0) },
			expectedErr: ErrInvalidParameter,
		},
		{
			name: "No_Tag",
			call: func(d *Device) error {
				_, err := d.ReadTID(make([]byte, 8), 0)
				return err
			},
			expectedErr: ErrNoTagFound,
			writes:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, mock, _ := newVirtualDevice(t)
			require.ErrorIs(t, tt.call(device), tt.expectedErr)
			assert.Equal(t, tt.writes, mock.WriteCount())
		})
	}
}

func TestDevice_WriteDataRegion_DropsOddByte(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	require.NoError(t, device.WriteDataRegion(BankUser, 0, []byte{1, 2, 3}, 0))

	cmd, ok := mock.LastCommand(opWriteTagData)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2}, cmd.Payload[8:])
}

func TestDevice_KillTag(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	require.NoError(t, device.KillTag([]byte{0xDE, 0xAD, 0xBE, 0xEF}, 100*time.Millisecond))

	cmd, ok := mock.LastCommand(opKillTag)
	require.True(t, ok)
	assert.Equal(t, []byte{0x00, 0x64, 0x00, 0xDE, 0xAD, 0xBE, 0xEF, 0x00}, cmd.Payload)
}
