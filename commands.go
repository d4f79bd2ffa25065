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

import "time"

// Module opcodes
const (
	opVersion                 = 0x03
	opSetBaudRate             = 0x06
	opReadTagIDSingle         = 0x21
	opReadTagIDMultiple       = 0x22
	opWriteTagID              = 0x23
	opWriteTagData            = 0x24
	opKillTag                 = 0x26
	opReadTagData             = 0x28
	opGetTagIDBuffer          = 0x29
	opClearTagIDBuffer        = 0x2A
	opMultiProtocolTagOp      = 0x2F
	opGetReadTxPower          = 0x62
	opGetWriteTxPower         = 0x64
	opGetUserGPIOInputs       = 0x66
	opGetPowerMode            = 0x68
	opGetReaderOptionalParams = 0x6A
	opGetProtocolParam        = 0x6B
	opGetTemperature          = 0x72
	opSetAntennaPort          = 0x91
	opSetReadTxPower          = 0x92
	opSetTagProtocol          = 0x93
	opSetWriteTxPower         = 0x94
	opSetUserGPIOOutputs      = 0x96
	opSetRegion               = 0x97
	opSetPowerMode            = 0x98
	opSetReaderOptionalParams = 0x9A
	opSetProtocolParam        = 0x9B
)

// Status words reported by the module firmware
const (
	StatusOK                      uint16 = 0x0000
	StatusWrongNumberOfData       uint16 = 0x0100
	StatusInvalidOpcode           uint16 = 0x0101
	StatusUnimplementedOpcode     uint16 = 0x0102
	StatusPowerTooHigh            uint16 = 0x0103
	StatusInvalidFrequency        uint16 = 0x0104
	StatusInvalidParameterValue   uint16 = 0x0105
	StatusPowerTooLow             uint16 = 0x0106
	StatusUnimplementedFeature    uint16 = 0x0109
	StatusInvalidBaudRate         uint16 = 0x010A
	StatusInvalidRegion           uint16 = 0x010B
	StatusNoTagsFound             uint16 = 0x0400
	StatusNoProtocolDefined       uint16 = 0x0401
	StatusInvalidProtocol         uint16 = 0x0402
	StatusWritePassedLockFailed   uint16 = 0x0403
	StatusProtocolNoDataRead      uint16 = 0x0404
	StatusAFENotOn                uint16 = 0x0405
	StatusProtocolWriteFailed     uint16 = 0x0406
	StatusAntennaNotConnected     uint16 = 0x0503
	StatusTemperatureExceedLimits uint16 = 0x0504
	StatusHighReturnLoss          uint16 = 0x0505
	StatusTagBufferNotEnoughTags  uint16 = 0x0600
	StatusTagBufferFull           uint16 = 0x0601
	StatusTagBufferRepeatedTagID  uint16 = 0x0602
	StatusTagBufferNumTagTooLarge uint16 = 0x0603
	StatusSystemUnknownError      uint16 = 0x7F00
)

var statusNames = map[uint16]string{
	StatusOK:                      "ok",
	StatusWrongNumberOfData:       "wrong number of data",
	StatusInvalidOpcode:           "invalid opcode",
	StatusUnimplementedOpcode:     "unimplemented opcode",
	StatusPowerTooHigh:            "power too high",
	StatusInvalidFrequency:        "invalid frequency",
	StatusInvalidParameterValue:   "invalid parameter value",
	StatusPowerTooLow:             "power too low",
	StatusUnimplementedFeature:    "unimplemented feature",
	StatusInvalidBaudRate:         "invalid baud rate",
	StatusInvalidRegion:           "invalid region",
	StatusNoTagsFound:             "no tags found",
	StatusNoProtocolDefined:       "no protocol defined",
	StatusInvalidProtocol:         "invalid protocol specified",
	StatusWritePassedLockFailed:   "write passed, lock failed",
	StatusProtocolNoDataRead:      "no data read",
	StatusAFENotOn:                "AFE not on",
	StatusProtocolWriteFailed:     "protocol write failed",
	StatusAntennaNotConnected:     "antenna not connected",
	StatusTemperatureExceedLimits: "temperature exceeds limits",
	StatusHighReturnLoss:          "high return loss",
	StatusTagBufferNotEnoughTags:  "not enough tags in buffer",
	StatusTagBufferFull:           "tag buffer full",
	StatusTagBufferRepeatedTagID:  "repeated tag id in buffer",
	StatusTagBufferNumTagTooLarge: "tag count too large",
	StatusSystemUnknownError:      "unknown system error",
}

// StatusName returns a readable name for a module status word.
func StatusName(status uint16) string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return "unknown status"
}

// Timing defaults
const (
	DefaultCommandTimeout = 2000 * time.Millisecond
	DefaultSettleDelay    = 50 * time.Millisecond
	DefaultDrainWindow    = 250 * time.Millisecond
	DefaultPollInterval   = 5 * time.Millisecond
	drainPollInterval     = 5 * time.Millisecond
)

// Region selects the regulatory frequency plan.
type Region byte

// Supported regions
const (
	RegionNorthAmerica  Region = 0x01
	RegionIndia         Region = 0x04
	RegionJapan         Region = 0x05
	RegionPRC           Region = 0x06
	RegionEurope        Region = 0x08
	RegionKorea         Region = 0x09
	RegionAustralia     Region = 0x0B
	RegionNewZealand    Region = 0x0C
	RegionNorthAmerica2 Region = 0x0D
	RegionNorthAmerica3 Region = 0x0E
	RegionOpen          Region = 0xFF
)

var regionNames = map[string]Region{
	"na":   RegionNorthAmerica,
	"in":   RegionIndia,
	"jp":   RegionJapan,
	"cn":   RegionPRC,
	"eu":   RegionEurope,
	"kr":   RegionKorea,
	"au":   RegionAustralia,
	"nz":   RegionNewZealand,
	"na2":  RegionNorthAmerica2,
	"na3":  RegionNorthAmerica3,
	"open": RegionOpen,
}

// ParseRegion maps a short region name such as "eu" or "na2" to a Region.
func ParseRegion(name string) (Region, bool) {
	r, ok := regionNames[name]
	return r, ok
}

// ModuleType identifies the reader hardware.
type ModuleType int

// Supported modules
const (
	ModuleM6ENano ModuleType = iota
	ModuleM7EHecto
)

func (m ModuleType) String() string {
	switch m {
	case ModuleM6ENano:
		return "M6E Nano"
	case ModuleM7EHecto:
		return "M7E Hecto"
	default:
		return "unknown module"
	}
}

// Tag protocols
const (
	ProtocolNone       byte = 0x00
	ProtocolISO180006B byte = 0x03
	ProtocolGen2       byte = 0x05
	ProtocolIPX64      byte = 0x07
	ProtocolIPX256     byte = 0x08
	ProtocolATA        byte = 0x1D
)

// Reader option bytes for SetReaderConfiguration
const (
	optionReadFilter   byte = 0x0C
	optionUniqueByData byte = 0x08
)

// PowerMode is the module's idle power strategy.
type PowerMode byte

// Power modes
const (
	PowerModeFull    PowerMode = 0
	PowerModeMinSave PowerMode = 1
	PowerModeMedSave PowerMode = 2
	PowerModeMaxSave PowerMode = 3
	PowerModeSleep   PowerMode = 4
)

const maxTxPowerCentiDBm = 2700
