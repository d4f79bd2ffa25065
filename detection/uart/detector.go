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

// Package uart registers a serial-port detector for M6E Nano and M7E Hecto
// modules.
package uart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial/enumerator"

	m6e "github.com/ZaparooProject/go-m6e"
	"github.com/ZaparooProject/go-m6e/detection"
	"github.com/ZaparooProject/go-m6e/transport/uart"
)

func init() {
	detection.RegisterDetector(New())
}

// port is one serial port as reported by the OS
type port struct {
	Name    string
	VIDPID  string
	Product string
	Serial  string
}

type (
	lister func() ([]port, error)
	prober func(ctx context.Context, path string, baud int) (*m6e.VersionInfo, error)
)

// Detector finds modules on serial ports
type Detector struct {
	list  lister
	probe prober
}

// New returns a detector backed by the OS port enumerator
func New() *Detector {
	return &Detector{list: listPorts, probe: probeVersion}
}

// Transport returns "uart"
func (*Detector) Transport() string {
	return string(m6e.TransportUART)
}

// Detect lists serial ports and, depending on opts.Mode, confirms each one
// by asking it for its version
func (d *Detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if opts == nil {
		o := detection.DefaultOptions()
		opts = &o
	}

	ports, err := d.list()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}

	var found []detection.DeviceInfo
	for _, p := range ports {
		if err := ctx.Err(); err != nil {
			return found, fmt.Errorf("%w: %w", detection.ErrDetectionTimeout, err)
		}
		if detection.IsPathIgnored(p.Name, opts.IgnorePaths) {
			continue
		}
		if p.VIDPID != "" && detection.IsBlocked(p.VIDPID, opts.Blocklist) {
			continue
		}
		if info, ok := d.examine(ctx, p, opts); ok {
			found = append(found, info)
		}
	}

	if len(found) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return found, nil
}

func (d *Detector) examine(ctx context.Context, p port, opts *detection.Options) (detection.DeviceInfo, bool) {
	known := detection.IsKnownAdapter(p.VIDPID)
	info := detection.DeviceInfo{
		Transport:  d.Transport(),
		Path:       p.Name,
		Name:       p.Product,
		VIDPID:     p.VIDPID,
		Confidence: detection.Low,
		Metadata:   map[string]string{},
	}
	if known {
		info.Confidence = detection.Medium
		info.Metadata["adapter"] = detection.KnownAdapters()[p.VIDPID]
	}
	if p.Serial != "" {
		info.Metadata["serial"] = p.Serial
	}

	switch opts.Mode {
	case detection.Passive:
		return info, true
	case detection.Safe:
		if !known {
			return info, false
		}
	case detection.Full:
	}

	probeCtx := ctx
	if opts.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, opts.ProbeTimeout)
		defer cancel()
	}
	baud := opts.BaudRate
	if baud <= 0 {
		baud = uart.DefaultBaudRate
	}

	version, err := d.probe(probeCtx, p.Name, baud)
	if err != nil {
		return info, false
	}
	info.Confidence = detection.High
	info.Metadata["firmware"] = fmt.Sprintf("%X", version.FirmwareVersion)
	info.Metadata["hardware"] = fmt.Sprintf("%X", version.Hardware)
	info.Metadata["baud"] = fmt.Sprint(baud)
	if info.Name == "" {
		info.Name = "ThingMagic UHF module"
	}
	return info, true
}

func listPorts() ([]port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ports := make([]port, 0, len(details))
	for _, d := range details {
		p := port{Name: d.Name, Product: d.Product, Serial: d.SerialNumber}
		if d.IsUSB {
			p.VIDPID = detection.ParseVIDPID(d.VID + ":" + d.PID)
		}
		ports = append(ports, p)
	}
	return ports, nil
}

// probeVersion opens path and sends VERSION. Ports that are busy or silent
// are reported as errors and skipped by Detect.
func probeVersion(ctx context.Context, path string, baud int) (*m6e.VersionInfo, error) {
	tr, err := uart.New(path, uart.WithBaudRate(baud))
	if err != nil {
		return nil, err
	}
	defer func() { _ = tr.Close() }()

	timeout := time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return nil, errors.New("probe deadline passed")
	}

	device, err := m6e.New(tr, m6e.WithTimeout(timeout))
	if err != nil {
		return nil, err
	}
	return device.GetVersionContext(ctx)
}
