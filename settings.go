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
	"encoding/binary"
	"fmt"
)

// VersionInfo is the module's answer to VERSION.
type VersionInfo struct {
	Bootloader      [4]byte
	Hardware        [4]byte
	FirmwareDate    [4]byte
	FirmwareVersion [4]byte
	// Protocols is a bitmask of supported tag protocols
	Protocols uint32
}

const versionLength = 20

// String returns a human-readable representation of the version
func (v *VersionInfo) String() string {
	return fmt.Sprintf("hardware %X, firmware %X (%X), bootloader %X",
		v.Hardware, v.FirmwareVersion, v.FirmwareDate, v.Bootloader)
}

// SupportsProtocol reports whether the firmware lists protocol p
func (v *VersionInfo) SupportsProtocol(p byte) bool {
	if p == 0 || p > 32 {
		return false
	}
	return v.Protocols&(1<<(p-1)) != 0
}

// GetVersion reads the module version
func (d *Device) GetVersion() (*VersionInfo, error) {
	return d.GetVersionContext(context.Background())
}

// GetVersionContext reads the module version
func (d *Device) GetVersionContext(ctx context.Context) (*VersionInfo, error) {
	resp, err := d.SendCommandContext(ctx, opVersion, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	if len(resp.Data) < versionLength {
		return nil, fmt.Errorf("%w: version response is %d bytes", ErrInvalidResponse, len(resp.Data))
	}

	v := &VersionInfo{Protocols: binary.BigEndian.Uint32(resp.Data[16:20])}
	copy(v.Bootloader[:], resp.Data[0:4])
	copy(v.Hardware[:], resp.Data[4:8])
	copy(v.FirmwareDate[:], resp.Data[8:12])
	copy(v.FirmwareVersion[:], resp.Data[12:16])
	return v, nil
}

// SetRegion selects the regulatory frequency plan. The M6E Nano has no
// plain NA plan, so RegionNorthAmerica is sent as NA2 there.
func (d *Device) SetRegion(region Region) error {
	if region == RegionNorthAmerica && d.config.Module == ModuleM6ENano {
		region = RegionNorthAmerica2
	}
	return d.simple(context.Background(), "set region", opSetRegion, []byte{byte(region)})
}

// SetReadPower sets read TX power in centi-dBm (2700 = 27.00 dBm). Values
// above 27 dBm are clamped.
func (d *Device) SetReadPower(centiDBm int16) error {
	return d.simple(context.Background(), "set read power", opSetReadTxPower, powerPayload(centiDBm))
}

// SetWritePower sets write TX power in centi-dBm, clamped like SetReadPower
func (d *Device) SetWritePower(centiDBm int16) error {
	return d.simple(context.Background(), "set write power", opSetWriteTxPower, powerPayload(centiDBm))
}

func powerPayload(centiDBm int16) []byte {
	if centiDBm > maxTxPowerCentiDBm {
		centiDBm = maxTxPowerCentiDBm
	}
	return binary.BigEndian.AppendUint16(nil, uint16(centiDBm))
}

// GetReadPower returns the read TX power in centi-dBm
func (d *Device) GetReadPower() (int16, error) {
	return d.getPower("get read power", opGetReadTxPower)
}

// GetWritePower returns the write TX power in centi-dBm
func (d *Device) GetWritePower() (int16, error) {
	return d.getPower("get write power", opGetWriteTxPower)
}

func (d *Device) getPower(op string, opcode byte) (int16, error) {
	resp, err := d.SendCommandContext(context.Background(), opcode, []byte{0x00}, 0)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	// option byte echo, then the power
	if len(resp.Data) < 3 {
		return 0, fmt.Errorf("%w: %s response is %d bytes", ErrInvalidResponse, op, len(resp.Data))
	}
	return int16(binary.BigEndian.Uint16(resp.Data[1:3])), nil
}

// SetAntennaPort routes TX and RX to port 1, the only port on these modules
func (d *Device) SetAntennaPort() error {
	return d.simple(context.Background(), "set antenna port", opSetAntennaPort, []byte{0x01, 0x01})
}

// SetAntennaSearchList sets the logical antenna list to port 1
func (d *Device) SetAntennaSearchList() error {
	return d.simple(context.Background(), "set antenna search list", opSetAntennaPort, []byte{0x02, 0x01, 0x01})
}

// SetTagProtocol selects the air protocol. Only ProtocolGen2 is supported
// by the firmware of both modules.
func (d *Device) SetTagProtocol(protocol byte) error {
	return d.simple(context.Background(), "set tag protocol", opSetTagProtocol, []byte{0x00, protocol})
}

// SetBaud switches the module line rate. The module answers at the new
// rate, so no reply is awaited; the transport follows if it can.
func (d *Device) SetBaud(baud uint32) error {
	if err := d.SendNoResponse(opSetBaudRate, binary.BigEndian.AppendUint32(nil, baud)); err != nil {
		return fmt.Errorf("set baud: %w", err)
	}
	if setter, ok := d.transport.(BaudRateSetter); ok {
		if err := setter.SetBaudRate(int(baud)); err != nil {
			return fmt.Errorf("set baud: %w", err)
		}
	}
	return nil
}

// SetReaderConfiguration sets one key/value reader option
func (d *Device) SetReaderConfiguration(option, value byte) error {
	return d.SetReaderConfigurationContext(context.Background(), option, value)
}

// SetReaderConfigurationContext sets one key/value reader option
func (d *Device) SetReaderConfigurationContext(ctx context.Context, option, value byte) error {
	return d.simple(ctx, "set reader configuration", opSetReaderOptionalParams, []byte{0x01, option, value})
}

// GetOptionalParameters returns the raw reply to a reader option query
func (d *Device) GetOptionalParameters(option1, option2 byte) ([]byte, error) {
	resp, err := d.SendCommandContext(context.Background(), opGetReaderOptionalParams, []byte{option1, option2}, 0)
	if err != nil {
		return nil, fmt.Errorf("get optional parameters: %w", err)
	}
	return resp.Data, nil
}

// EnableReadFilter makes the module report each tag once per inventory
func (d *Device) EnableReadFilter() error {
	return d.SetReaderConfiguration(optionReadFilter, 0x01)
}

// DisableReadFilter makes the module report every read of every tag
func (d *Device) DisableReadFilter() error {
	return d.DisableReadFilterContext(context.Background())
}

// DisableReadFilterContext makes the module report every read of every tag
func (d *Device) DisableReadFilterContext(ctx context.Context) error {
	return d.SetReaderConfigurationContext(ctx, optionReadFilter, 0x00)
}

// SetPowerMode sets the idle power strategy. The M6E Nano has no sleep mode
// on USB, so PowerModeSleep is sent as PowerModeMedSave there.
func (d *Device) SetPowerMode(mode PowerMode) error {
	if mode > PowerModeSleep {
		return fmt.Errorf("%w: power mode %d", ErrInvalidParameter, mode)
	}
	if mode == PowerModeSleep && d.config.Module == ModuleM6ENano {
		mode = PowerModeMedSave
	}
	return d.simple(context.Background(), "set power mode", opSetPowerMode, []byte{byte(mode)})
}

// GetPowerMode returns the current power mode
func (d *Device) GetPowerMode() (PowerMode, error) {
	resp, err := d.SendCommandContext(context.Background(), opGetPowerMode, nil, 0)
	if err != nil {
		return 0, fmt.Errorf("get power mode: %w", err)
	}
	if len(resp.Data) < 1 {
		return 0, fmt.Errorf("%w: empty power mode response", ErrInvalidResponse)
	}
	return PowerMode(resp.Data[0]), nil
}

// Temperature returns the module temperature in °C. In continuous mode it
// is the value last seen in the stream, or -1 before the first report.
func (d *Device) Temperature() (int, error) {
	return d.TemperatureContext(context.Background())
}

// TemperatureContext is Temperature with a context
func (d *Device) TemperatureContext(ctx context.Context) (int, error) {
	if d.continuous {
		return d.temperature, nil
	}
	resp, err := d.SendCommandContext(ctx, opGetTemperature, nil, 0)
	if err != nil {
		return -1, fmt.Errorf("get temperature: %w", err)
	}
	if len(resp.Data) < 1 {
		return -1, fmt.Errorf("%w: empty temperature response", ErrInvalidResponse)
	}
	return int(int8(resp.Data[0])), nil
}

// simple sends a command whose reply carries nothing but the status word.
func (d *Device) simple(ctx context.Context, op string, opcode byte, payload []byte) error {
	if _, err := d.SendCommandContext(ctx, opcode, payload, 0); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
