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

package detection

import (
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// DefaultBlocklist returns USB devices that must not be probed. Writing a
// VERSION frame to them is at best ignored and at worst misread as input.
// Format: VID:PID in hexadecimal (case-insensitive).
func DefaultBlocklist() []string {
	return []string{
		"1D50:6089", // HackRF One
		"0483:DF11", // STM32 DFU bootloader
		"2341:003D", // Arduino Due programming port
	}
}

// KnownAdapters returns the USB serial bridges found on M6E Nano and M7E
// Hecto carrier boards, keyed by VID:PID.
func KnownAdapters() map[string]string {
	return map[string]string{
		"0403:6015": "FTDI FT231X",
		"0403:6001": "FTDI FT232R",
		"1A86:7523": "WCH CH340",
		"10C4:EA60": "Silicon Labs CP210x",
	}
}

func normalizeVIDPID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsKnownAdapter reports whether vidpid is a known module bridge
func IsKnownAdapter(vidpid string) bool {
	_, ok := KnownAdapters()[normalizeVIDPID(vidpid)]
	return ok
}

// IsBlocked reports whether vidpid appears in blocklist
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = normalizeVIDPID(vidpid)
	return slices.ContainsFunc(blocklist, func(entry string) bool {
		return normalizeVIDPID(entry) == vidpid
	})
}

var (
	vidPattern    = regexp.MustCompile(`(?:VID[:=]|VENDOR=)([0-9A-F]+)`)
	pidPattern    = regexp.MustCompile(`(?:PID[:=]|PRODUCT=)([0-9A-F]+)`)
	vidpidPattern = regexp.MustCompile(`^([0-9A-F]+):([0-9A-F]+)$`)
)

// ParseVIDPID normalizes a USB descriptor to VID:PID. It understands
// "VID:0403 PID:6015", "vendor=0403 product=6015" and bare "0403:6015".
// It returns "" when no pair can be found.
func ParseVIDPID(descriptor string) string {
	descriptor = normalizeVIDPID(descriptor)

	vid := vidPattern.FindStringSubmatch(descriptor)
	pid := pidPattern.FindStringSubmatch(descriptor)
	if vid != nil && pid != nil {
		return vid[1] + ":" + pid[1]
	}
	if m := vidpidPattern.FindStringSubmatch(descriptor); m != nil {
		return m[1] + ":" + m[2]
	}
	return ""
}

// IsPathIgnored reports whether devicePath matches an entry of ignorePaths.
// Paths are cleaned and compared case-insensitively so COM2 and com2 match.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	device := comparablePath(devicePath)
	return slices.ContainsFunc(ignorePaths, func(p string) bool {
		return p != "" && comparablePath(p) == device
	})
}

func comparablePath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
