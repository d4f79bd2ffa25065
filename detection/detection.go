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

// Package detection finds UHF reader modules attached to the host.
//
// Transports register a Detector from their init function; importing
// github.com/ZaparooProject/go-m6e/detection/uart enables serial discovery.
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNoDevicesFound is returned when no module was detected
	ErrNoDevicesFound = errors.New("no UHF modules found")
	// ErrDetectionTimeout is returned when detection ran out of time
	ErrDetectionTimeout = errors.New("detection timeout")
	// ErrUnsupportedPlatform is returned by detectors with no support on this OS
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
	// ErrNoDetectors is returned when no transport registered a detector
	ErrNoDetectors = errors.New("no detectors registered")
)

// Confidence rates how sure a detector is that a port hosts a module
type Confidence int

// Confidence levels
const (
	Low Confidence = iota
	Medium
	High
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// Mode controls how intrusive detection is
type Mode int

const (
	// Passive only lists ports; nothing is written to them
	Passive Mode = iota
	// Safe probes ports whose USB adapter is a known module bridge
	Safe
	// Full probes every port that is not blocked or ignored
	Full
)

// DeviceInfo describes one detected module
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  string
	Path       string
	Name       string
	VIDPID     string
	Confidence Confidence
}

func (d DeviceInfo) String() string {
	if d.VIDPID == "" {
		return fmt.Sprintf("%s %s (%s confidence)", d.Transport, d.Path, d.Confidence)
	}
	return fmt.Sprintf("%s %s [%s] (%s confidence)", d.Transport, d.Path, d.VIDPID, d.Confidence)
}

// Options configures detection
type Options struct {
	// Blocklist holds VID:PID pairs that are never probed
	Blocklist []string
	// IgnorePaths holds device paths that are skipped entirely
	IgnorePaths []string
	// Timeout bounds the whole detection run
	Timeout time.Duration
	// ProbeTimeout bounds the VERSION exchange with a single port
	ProbeTimeout time.Duration
	// BaudRate is used when probing
	BaudRate int
	Mode     Mode
}

// DefaultOptions returns safe detection defaults
func DefaultOptions() Options {
	return Options{
		Mode:         Safe,
		Timeout:      5 * time.Second,
		ProbeTimeout: 500 * time.Millisecond,
		BaudRate:     115200,
		Blocklist:    DefaultBlocklist(),
	}
}

// Detector finds modules on one kind of transport
type Detector interface {
	Transport() string
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

var (
	detectorsMu sync.RWMutex
	detectors   = map[string]Detector{}
)

// RegisterDetector makes a detector available to DetectAll. Registering the
// same transport twice replaces the earlier detector.
func RegisterDetector(d Detector) {
	detectorsMu.Lock()
	defer detectorsMu.Unlock()
	detectors[d.Transport()] = d
}

func registered() []Detector {
	detectorsMu.RLock()
	defer detectorsMu.RUnlock()
	out := make([]Detector, 0, len(detectors))
	for _, d := range detectors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Transport() < out[j].Transport() })
	return out
}

// DetectAll runs every registered detector
func DetectAll(opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		o := DefaultOptions()
		opts = &o
	}
	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return DetectAllContext(ctx, opts)
}

// DetectAllContext runs every registered detector and returns the devices
// sorted by confidence, highest first. A detector that fails or finds
// nothing does not stop the others.
func DetectAllContext(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	return detectWith(ctx, opts, registered())
}

func detectWith(ctx context.Context, opts *Options, ds []Detector) ([]DeviceInfo, error) {
	if len(ds) == 0 {
		return nil, ErrNoDetectors
	}

	var devices []DeviceInfo
	var errs []error
	for _, d := range ds {
		if err := ctx.Err(); err != nil {
			return devices, fmt.Errorf("%w: %w", ErrDetectionTimeout, err)
		}
		found, err := d.Detect(ctx, opts)
		switch {
		case errors.Is(err, ErrNoDevicesFound), errors.Is(err, ErrUnsupportedPlatform):
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", d.Transport(), err))
		}
		devices = append(devices, found...)
	}

	if len(devices) == 0 {
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return nil, ErrNoDevicesFound
	}

	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Confidence > devices[j].Confidence
	})
	return devices, nil
}
