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

// Command readtag performs one-shot operations against an M6E Nano or M7E
// Hecto module: read a tag's EPC, TID, User memory or all banks, select a
// tag by EPC, or query the module itself.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	m6e "github.com/ZaparooProject/go-m6e"
	"github.com/ZaparooProject/go-m6e/detection"
	// Register the serial detector
	_ "github.com/ZaparooProject/go-m6e/detection/uart"
	"github.com/ZaparooProject/go-m6e/inventory"
	"github.com/ZaparooProject/go-m6e/power"
	"github.com/ZaparooProject/go-m6e/tagops"
	"github.com/ZaparooProject/go-m6e/transport/uart"
)

type config struct {
	devicePath *string
	mode       *string
	region     *string
	module     *string
	filter     *string
	writeText  *string
	enPin      *string
	bank       *int
	offset     *int
	words      *int
	retries    *int
	readPower  *int
	baud       *int
	timeout    *time.Duration
	ndef       *bool
	debug      *bool
}

func parseFlags() *config {
	cfg := &config{
		devicePath: flag.String("device", "",
			"Serial device path (e.g., /dev/ttyUSB0 or COM3). Leave empty for auto-detection."),
		mode: flag.String("mode", "epc",
			"Operation: epc, tid, user, banks, select, inventory, temperature, version"),
		region:    flag.String("region", "na2", "Regulatory region (na, na2, na3, eu, in, jp, kr, au, nz, cn, open)"),
		module:    flag.String("module", "nano", "Module type: nano or hecto"),
		filter:    flag.String("filter", "", "Hex EPC pattern for -mode select"),
		writeText: flag.String("write", "", "Text to store as an NDEF record in User memory (-mode user)"),
		enPin:     flag.String("en-pin", "", "GPIO wired to the module EN pin; power cycles before connecting"),
		bank:      flag.Int("bank", int(m6e.BankUser), "Memory bank for -mode select (0-3)"),
		offset:    flag.Int("offset", 0, "EPC byte offset of -filter"),
		words:     flag.Int("words", 8, "Words to read for -mode select"),
		retries:   flag.Int("retries", 3, "Non-matching inventories tolerated in -mode select (0 = until timeout)"),
		readPower: flag.Int("power", 500, "Read power in centi-dBm (max 2700)"),
		baud:      flag.Int("baud", uart.DefaultBaudRate, "Serial baud rate"),
		timeout:   flag.Duration("timeout", 10*time.Second, "Overall timeout"),
		ndef:      flag.Bool("ndef", false, "Decode User memory as NDEF (-mode user)"),
		debug:     flag.Bool("debug", false, "Enable debug output"),
	}
	flag.Parse()

	if *cfg.debug {
		m6e.SetDebugEnabled(true)
	}
	return cfg
}

func (c *config) newTransport(path string) (m6e.Transport, error) {
	if path == "" {
		return nil, errors.New("empty device path")
	}
	transport, err := uart.New(path, uart.WithBaudRate(*c.baud))
	if err != nil {
		return nil, fmt.Errorf("failed to create UART transport: %w", err)
	}
	return transport, nil
}

func (c *config) newTransportFromDevice(device detection.DeviceInfo) (m6e.Transport, error) {
	if !strings.EqualFold(device.Transport, string(m6e.TransportUART)) {
		return nil, fmt.Errorf("unsupported transport type: %s", device.Transport)
	}
	_, _ = fmt.Printf("Found %s\n", device)
	return c.newTransport(device.Path)
}

func buildConnectOptions(cfg *config) ([]m6e.ConnectOption, error) {
	module := m6e.ModuleM6ENano
	switch strings.ToLower(*cfg.module) {
	case "nano", "m6e":
	case "hecto", "m7e":
		module = m6e.ModuleM7EHecto
	default:
		return nil, fmt.Errorf("unknown module %q", *cfg.module)
	}

	opts := []m6e.ConnectOption{
		m6e.WithDeviceOptions(m6e.WithModuleType(module)),
		m6e.WithConnectTimeout(time.Second),
	}
	if *cfg.devicePath == "" {
		detectOpts := detection.DefaultOptions()
		detectOpts.BaudRate = *cfg.baud
		opts = append(opts,
			m6e.WithAutoDetection(),
			m6e.WithDetectionOptions(detectOpts),
			m6e.WithTransportFromDeviceFactory(cfg.newTransportFromDevice))
		_, _ = fmt.Println("Auto-detecting UHF modules...")
	} else {
		opts = append(opts, m6e.WithTransportFactory(cfg.newTransport))
		_, _ = fmt.Printf("Opening device: %s\n", *cfg.devicePath)
	}
	return opts, nil
}

func powerCycle(ctx context.Context, pin string) error {
	if pin == "" {
		return nil
	}
	ctrl, err := power.Open(pin)
	if err != nil {
		return err
	}
	_, _ = fmt.Printf("Power cycling module on %s...\n", pin)
	return ctrl.Cycle(ctx)
}

func configureRadio(device *m6e.Device, cfg *config) error {
	region, ok := m6e.ParseRegion(strings.ToLower(*cfg.region))
	if !ok {
		return fmt.Errorf("unknown region %q", *cfg.region)
	}
	if err := device.SetTagProtocol(m6e.ProtocolGen2); err != nil {
		return err
	}
	if err := device.SetAntennaPort(); err != nil {
		return err
	}
	if err := device.SetRegion(region); err != nil {
		return err
	}
	return device.SetReadPower(int16(*cfg.readPower))
}

func run(ctx context.Context, device *m6e.Device, cfg *config) error {
	timeout := 500 * time.Millisecond
	ops := tagops.New(device)

	switch *cfg.mode {
	case "version":
		return showVersion(device)
	case "temperature":
		t, err := device.Temperature()
		if err != nil {
			return err
		}
		_, _ = fmt.Printf("Module temperature: %d°C\n", t)
		return nil
	case "epc":
		buf := make([]byte, 62)
		n, err := device.ReadTagEPC(buf, timeout)
		if err != nil {
			return err
		}
		_, _ = fmt.Printf("EPC: %X\n", buf[:n])
		return nil
	case "tid":
		info, err := ops.GetTagInfo()
		if err != nil {
			return err
		}
		_, _ = fmt.Printf("Chip: %s\nTID serial: %X\n", info, info.Serial)
		return nil
	case "user":
		return userMemory(ops, cfg)
	case "banks":
		return allBanks(device, timeout)
	case "select":
		return selectiveRead(ctx, device, cfg, timeout)
	case "inventory":
		return runInventory(ctx, device)
	default:
		return fmt.Errorf("unknown mode %q", *cfg.mode)
	}
}

func showVersion(device *m6e.Device) error {
	v, err := device.GetVersion()
	if err != nil {
		return err
	}
	_, _ = fmt.Printf("%s: %s\n", device.Module(), v)
	_, _ = fmt.Printf("Gen2 supported: %t\n", v.SupportsProtocol(m6e.ProtocolGen2))
	return nil
}

func userMemory(ops *tagops.TagOperations, cfg *config) error {
	if *cfg.writeText != "" {
		if err := ops.WriteNDEF(tagops.NewTextMessage(*cfg.writeText, "en")); err != nil {
			return err
		}
		_, _ = fmt.Println("Write successful!")
	}

	mem, err := ops.ReadUserMemory()
	if err != nil {
		return err
	}
	_, _ = fmt.Printf("User memory (%d bytes):\n%s", len(mem), hex.Dump(mem))

	if !*cfg.ndef {
		return nil
	}
	msg, err := tagops.DecodeNDEF(mem)
	if err != nil {
		return err
	}
	_, _ = fmt.Printf("NDEF: %d record(s)\n", len(msg.Records))
	for i, record := range msg.Records {
		payload, err := record.Payload()
		if err != nil {
			_, _ = fmt.Printf("  [%d] %s: %v\n", i, record.Type(), err)
			continue
		}
		_, _ = fmt.Printf("  [%d] %s: %s\n", i, record.Type(), payload)
	}
	return nil
}

func allBanks(device *m6e.Device, timeout time.Duration) error {
	set := &m6e.BankSet{
		Reserved: make([]byte, 8),
		EPC:      make([]byte, 64),
		TID:      make([]byte, 64),
		User:     make([]byte, 128),
	}
	result, err := device.ReadAllBanks(set, timeout)
	if err != nil {
		return err
	}
	_, _ = fmt.Printf("EPC: %s (RSSI %d dBm)\n", result.Tag.EPCString(), result.Tag.RSSI)
	for _, bank := range []m6e.Bank{m6e.BankReserved, m6e.BankEPC, m6e.BankTID, m6e.BankUser} {
		n := result.Len(bank)
		var data []byte
		switch bank {
		case m6e.BankReserved:
			data = set.Reserved[:n]
		case m6e.BankEPC:
			data = set.EPC[:n]
		case m6e.BankTID:
			data = set.TID[:n]
		case m6e.BankUser:
			data = set.User[:n]
		}
		_, _ = fmt.Printf("%-8s %3d bytes  %X\n", bank, n, data)
	}
	return nil
}

func selectiveRead(ctx context.Context, device *m6e.Device, cfg *config, timeout time.Duration) error {
	pattern, err := hex.DecodeString(*cfg.filter)
	if err != nil || len(pattern) == 0 {
		return fmt.Errorf("invalid -filter %q", *cfg.filter)
	}
	if *cfg.offset < 0 || *cfg.offset > 0xFF || *cfg.retries < 0 || *cfg.retries > 0xFF {
		return errors.New("-offset and -retries must be between 0 and 255")
	}
	if *cfg.words <= 0 || *cfg.words > 0xFF {
		return errors.New("-words must be between 1 and 255")
	}

	filter := m6e.SelectFilter{
		Pattern:    pattern,
		Offset:     byte(*cfg.offset),
		RetryLimit: byte(*cfg.retries),
	}
	dst := make([]byte, *cfg.words*2)
	n, err := device.SelectiveReadDataRegion(ctx, filter, m6e.Bank(*cfg.bank), 0, uint8(*cfg.words), dst, timeout)
	if err != nil {
		return err
	}
	_, _ = fmt.Printf("%s bank: %X\n", m6e.Bank(*cfg.bank), dst[:n])
	return nil
}

func runInventory(ctx context.Context, device *m6e.Device) error {
	session, err := inventory.NewSession(device, inventory.DefaultConfig(), inventory.Callbacks{
		OnTag: func(tag *m6e.TagRecord, first bool) {
			if first {
				_, _ = fmt.Printf("+ %s  RSSI %d dBm  antenna %d\n", tag.EPCString(), tag.RSSI, tag.Antenna)
			}
		},
		OnTagRemoved: func(state inventory.TagState) {
			_, _ = fmt.Printf("- %s  (%d reads)\n", state.EPC, state.Reads)
		},
		OnThrottle: func() {
			_, _ = fmt.Println("! module is throttling: too hot")
		},
	})
	if err != nil {
		return err
	}
	if err := session.Start(ctx); err != nil {
		return err
	}
	_, _ = fmt.Println("Reading tags until timeout...")
	<-ctx.Done()
	if err := session.Stop(); err != nil {
		return err
	}
	m := session.Metrics()
	_, _ = fmt.Printf("Session %s: %d reads, %d distinct tags\n", session.ID(), m.Tags, m.UniqueTags)
	return nil
}

func main() {
	cfg := parseFlags()

	ctx, cancel := context.WithTimeout(context.Background(), *cfg.timeout)
	defer cancel()

	if err := powerCycle(ctx, *cfg.enPin); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to power cycle module: %v\n", err)
		os.Exit(1)
	}

	connectOpts, err := buildConnectOptions(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	device, err := m6e.ConnectDevice(*cfg.devicePath, connectOpts...)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to connect to device: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = device.Close() }()

	if err := configureRadio(device, cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to configure radio: %v\n", err)
		return
	}
	if err := run(ctx, device, cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s failed: %v\n", *cfg.mode, err)
	}
}
