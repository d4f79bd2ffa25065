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
	"testing"
	"time"

	testutil "github.com/ZaparooProject/go-m6e/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startStream(t *testing.T) (*Device, *MockTransport) {
	t.Helper()
	device, mock := newTestDevice(t)
	require.NoError(t, device.StartReading())
	require.True(t, device.IsReading())
	return device, mock
}

func TestDevice_StartReading(t *testing.T) {
	t.Parallel()

	device, mock := startStream(t)

	filter, ok := mock.LastCommand(opSetReaderOptionalParams)
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, optionReadFilter, 0x00}, filter.Payload)

	start, ok := mock.LastCommand(opMultiProtocolTagOp)
	require.True(t, ok)
	assert.Equal(t, continuousInventory, start.Payload)

	temp, err := device.Temperature()
	require.NoError(t, err)
	assert.Equal(t, -1, temp)
}

func TestDevice_StartReading_Rejected(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	mock.SetResponse(opMultiProtocolTagOp, StatusInvalidParameterValue, nil)

	err := device.StartReading()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.False(t, device.IsReading())
}

func TestDevice_Check(t *testing.T) {
	t.Parallel()

	tag := testutil.BuildStreamTagFrame(testutil.DefaultTag(testutil.TestEPC))
	corrupt := testutil.BuildKeepAliveFrame()
	corrupt[len(corrupt)-1] ^= 0x5A

	tests := []struct {
		name          string
		stream        [][]byte
		expectedKinds []RecordKind
		expectedStats StreamStats
		temperature   int
	}{
		{
			name:          "Nothing_Available",
			expectedKinds: nil,
			temperature:   -1,
		},
		{
			name:          "Single_Tag",
			stream:        [][]byte{tag},
			expectedKinds: []RecordKind{RecordTagFound},
			expectedStats: StreamStats{Frames: 1},
			temperature:   -1,
		},
		{
			name:          "Garbage_Before_Header",
			stream:        [][]byte{{0x00, 0x13, 0x42}, testutil.BuildKeepAliveFrame()},
			expectedKinds: []RecordKind{RecordKeepAlive},
			expectedStats: StreamStats{Frames: 1},
			temperature:   -1,
		},
		{
			name:          "Corrupt_Frame_Dropped",
			stream:        [][]byte{corrupt, tag},
			expectedKinds: []RecordKind{RecordTagFound},
			expectedStats: StreamStats{Frames: 2, Corrupt: 1},
			temperature:   -1,
		},
		{
			name:          "Stats_Update_Swallowed",
			stream:        [][]byte{testutil.BuildStatsUpdateFrame(37), testutil.BuildKeepAliveFrame()},
			expectedKinds: []RecordKind{RecordKeepAlive},
			expectedStats: StreamStats{Frames: 2, StatsFrames: 1},
			temperature:   37,
		},
		{
			name:          "Temperature_Sample",
			stream:        [][]byte{testutil.BuildTemperatureFrame(44)},
			expectedKinds: []RecordKind{RecordTemperatureSample},
			expectedStats: StreamStats{Frames: 1},
			temperature:   44,
		},
		{
			name: "Mixed_Stream",
			stream: [][]byte{
				testutil.BuildKeepAliveLongFrame(), testutil.BuildThrottleFrame(), tag,
				testutil.BuildStatsUpdateFrame(30),
			},
			expectedKinds: []RecordKind{RecordKeepAlive, RecordTemperatureThrottle, RecordTagFound},
			expectedStats: StreamStats{Frames: 4, StatsFrames: 1},
			temperature:   30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, mock := startStream(t)
			mock.Inject(tt.stream...)

			var kinds []RecordKind
			for device.Check() {
				rec, err := device.ParseResponse()
				require.NoError(t, err)
				kinds = append(kinds, rec.Kind)
			}

			assert.Equal(t, tt.expectedKinds, kinds)
			assert.Equal(t, tt.expectedStats, device.StreamStats())

			temp, err := device.Temperature()
			require.NoError(t, err)
			assert.Equal(t, tt.temperature, temp)
		})
	}
}

func TestDevice_Check_SplitFrame(t *testing.T) {
	t.Parallel()

	device, mock := startStream(t)
	raw := testutil.BuildStreamTagFrame(testutil.DefaultTag(testutil.TestEPC))

	mock.Inject(raw[:10])
	assert.False(t, device.Check())

	mock.Inject(raw[10:])
	require.True(t, device.Check())

	rec, err := device.ParseResponse()
	require.NoError(t, err)
	require.NotNil(t, rec.Tag)
	assert.Equal(t, testutil.TestEPC, rec.Tag.EPC)
	assert.Equal(t, byte(opReadTagIDMultiple), device.LastFrame().Opcode)
}

func TestDevice_Check_UnknownOpcode(t *testing.T) {
	t.Parallel()

	device, mock := startStream(t)
	mock.Inject(testutil.BuildFrame(testutil.OpGetTemperature, StatusOK, []byte{0x20}))

	require.True(t, device.Check())
	rec, err := device.ParseResponse()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownOpcode)
	assert.Equal(t, RecordUnknown, rec.Kind)
}

func TestDevice_ParseResponse_NoFrame(t *testing.T) {
	t.Parallel()

	device, _ := startStream(t)
	_, err := device.ParseResponse()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Nil(t, device.LastFrame())
}

func TestDevice_NextRecord(t *testing.T) {
	t.Parallel()

	device, mock := startStream(t)

	go func() {
		time.Sleep(20 * time.Millisecond)
		mock.Inject(testutil.BuildStreamTagFrame(testutil.DefaultTag(testutil.OtherEPC)))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rec, err := device.NextRecord(ctx)
	require.NoError(t, err)
	assert.Equal(t, RecordTagFound, rec.Kind)
	assert.Equal(t, testutil.OtherEPC, rec.Tag.EPC)
}

func TestDevice_NextRecord_Errors(t *testing.T) {
	t.Parallel()

	device, _ := newTestDevice(t)
	_, err := device.NextRecord(context.Background())
	require.ErrorIs(t, err, ErrNotContinuous)

	require.NoError(t, device.StartReading())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = device.NextRecord(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDevice_StartReadingBank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		bank           Bank
		address        uint32
		length         byte
		expectedLength byte
	}{
		{name: "User_Zero_Reads_Max", bank: BankUser, length: 0, expectedLength: 32},
		{name: "User_Over_Max_Clamped", bank: BankUser, length: 60, expectedLength: 32},
		{name: "User_In_Range", bank: BankUser, length: 8, expectedLength: 8},
		{name: "TID_Whole_Bank", bank: BankTID, length: 0, expectedLength: 0},
		{name: "TID_Over_Max_Clamped", bank: BankTID, length: 40, expectedLength: 32},
		{name: "EPC_With_Address", bank: BankEPC, address: 0x01020304, length: 6, expectedLength: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, mock := newTestDevice(t)
			require.NoError(t, device.StartReadingBank(tt.bank, tt.address, tt.length))

			cmds := mock.Commands()
			require.NotEmpty(t, cmds)
			assert.Equal(t, byte(opSetReaderOptionalParams), cmds[0].Opcode)
			assert.Equal(t, []byte{0x01, optionUniqueByData, 0x00}, cmds[0].Payload)

			cmd, ok := mock.LastCommand(opMultiProtocolTagOp)
			require.True(t, ok)
			require.Len(t, cmd.Payload, len(continuousBankInventory))
			assert.Equal(t, byte(tt.bank), cmd.Payload[24])
			assert.Equal(t, []byte{
				byte(tt.address >> 24), byte(tt.address >> 16), byte(tt.address >> 8), byte(tt.address),
			}, cmd.Payload[25:29])
			assert.Equal(t, tt.expectedLength, cmd.Payload[29])
			assert.Equal(t, 2, mock.GetCallCount(opSetReaderOptionalParams))
		})
	}
}

func TestDevice_StartReadingBank_RecordsCarryBank(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	require.NoError(t, device.StartReadingBank(BankUser, 0, 2))

	tag := testutil.DefaultTag(testutil.TestEPC)
	tag.Data = []byte{0xCA, 0xFE, 0xBA, 0xBE}
	mock.Inject(testutil.BuildStreamTagFrame(tag))

	require.True(t, device.Check())
	rec, err := device.ParseResponse()
	require.NoError(t, err)

	user, ok := rec.Tag.Bank(BankUser)
	require.True(t, ok)
	assert.Equal(t, tag.Data, user)
}

func TestDevice_StartReadingBank_InvalidBank(t *testing.T) {
	t.Parallel()

	device, mock := newTestDevice(t)
	err := device.StartReadingBank(Bank(5), 0, 4)
	require.ErrorIs(t, err, ErrInvalidBank)
	assert.Equal(t, 0, mock.WriteCount())
}

func TestDevice_StopReading(t *testing.T) {
	t.Parallel()

	device, mock := startStream(t)
	mock.SetSilent(opMultiProtocolTagOp)
	mock.Inject(testutil.BuildKeepAliveFrame())

	require.NoError(t, device.StopReading())
	assert.False(t, device.IsReading())

	cmd, ok := mock.LastCommand(opMultiProtocolTagOp)
	require.True(t, ok)
	assert.Equal(t, stopContinuous, cmd.Payload)

	n, err := mock.Available()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
