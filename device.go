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
	"time"

	"github.com/ZaparooProject/go-m6e/detection"
	"github.com/ZaparooProject/go-m6e/internal/frame"
)

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// Timeout is the default response timeout for commands
	Timeout time.Duration
	// SettleDelay is how long a fire-and-forget command waits before draining
	SettleDelay time.Duration
	// DrainWindow is how long a fire-and-forget command keeps discarding input
	DrainWindow time.Duration
	// PollInterval is the sleep between Check calls in NextRecord
	PollInterval time.Duration
	// Module selects module-specific parameter handling
	Module ModuleType
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Timeout:      DefaultCommandTimeout,
		SettleDelay:  DefaultSettleDelay,
		DrainWindow:  DefaultDrainWindow,
		PollInterval: DefaultPollInterval,
		Module:       ModuleM6ENano,
	}
}

// Device represents an M6E Nano or M7E Hecto UHF RFID module
//
// Thread Safety: Device is NOT thread-safe. Every command exchange and every
// continuous-mode Check reads into the same receive buffer, so all methods
// must be called from a single goroutine or serialized behind one mutex.
type Device struct {
	transport Transport
	config    *DeviceConfig
	rx        *frame.Buffer
	version   *VersionInfo
	// latest completed continuous-mode frame, nil until Check returns true
	record      *frame.Response
	recordErr   error
	streamBank  *Bank
	stats       StreamStats
	recordKind  RecordKind
	temperature int
	continuous  bool
}

// StreamStats counts continuous-mode frames by outcome.
type StreamStats struct {
	Frames      uint64
	Corrupt     uint64
	StatsFrames uint64
}

// New creates a new device with the given transport
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}

	device := &Device{
		transport:   transport,
		config:      DefaultDeviceConfig(),
		rx:          &frame.Buffer{},
		temperature: -1,
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// TransportFactory is a function type for creating transports
type TransportFactory func(path string) (Transport, error)

// TransportFromDeviceFactory is a function type for creating transports from detected devices
type TransportFromDeviceFactory func(device detection.DeviceInfo) (Transport, error)

// ConnectOption represents a functional option for ConnectDevice
type ConnectOption func(*connectConfig) error

type connectConfig struct {
	transportFactory       TransportFactory
	transportDeviceFactory TransportFromDeviceFactory
	detectOptions          *detection.Options
	deviceOptions          []Option
	timeout                time.Duration
	autoDetect             bool
	verify                 bool
}

// WithAutoDetection enables automatic device detection instead of using a specific path
func WithAutoDetection() ConnectOption {
	return func(c *connectConfig) error {
		c.autoDetect = true
		return nil
	}
}

// WithDetectionOptions overrides the options used for auto-detection
func WithDetectionOptions(opts detection.Options) ConnectOption {
	return func(c *connectConfig) error {
		c.detectOptions = &opts
		return nil
	}
}

// WithDeviceOptions adds device-level options
func WithDeviceOptions(opts ...Option) ConnectOption {
	return func(c *connectConfig) error {
		c.deviceOptions = append(c.deviceOptions, opts...)
		return nil
	}
}

// WithConnectTimeout sets the timeout for the initial version handshake
func WithConnectTimeout(timeout time.Duration) ConnectOption {
	return func(c *connectConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: connect timeout must be positive", ErrInvalidParameter)
		}
		c.timeout = timeout
		return nil
	}
}

// WithTransportFactory sets the transport factory function
func WithTransportFactory(factory TransportFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportFactory = factory
		return nil
	}
}

// WithTransportFromDeviceFactory sets the transport from device factory function
func WithTransportFromDeviceFactory(factory TransportFromDeviceFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportDeviceFactory = factory
		return nil
	}
}

// WithoutBeginVerification skips the VERSION handshake on connect
func WithoutBeginVerification() ConnectOption {
	return func(c *connectConfig) error {
		c.verify = false
		return nil
	}
}

func applyConnectOptions(opts []ConnectOption) (*connectConfig, error) {
	config := &connectConfig{
		timeout: DefaultCommandTimeout,
		verify:  true,
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply connect option: %w", err)
		}
	}

	return config, nil
}

// ConnectDevice opens a transport for path (or the first detected module)
// and verifies the module answers VERSION.
//
// Example usage:
//
//	device, err := m6e.ConnectDevice("/dev/ttyUSB0",
//		m6e.WithTransportFactory(func(p string) (m6e.Transport, error) { return uart.New(p) }))
func ConnectDevice(path string, opts ...ConnectOption) (*Device, error) {
	config, err := applyConnectOptions(opts)
	if err != nil {
		return nil, err
	}

	transport, err := createTransport(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	device, err := New(transport, config.deviceOptions...)
	if err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	if config.verify {
		ctx, cancel := context.WithTimeout(context.Background(), 3*config.timeout)
		defer cancel()
		if err := device.BeginContext(ctx); err != nil {
			_ = transport.Close()
			return nil, fmt.Errorf("failed to initialize device: %w", err)
		}
	}

	return device, nil
}

func createTransport(path string, config *connectConfig) (Transport, error) {
	if config.autoDetect || path == "" {
		return createAutoDetectedTransport(config)
	}
	if config.transportFactory == nil {
		return nil, errors.New("transport factory not provided")
	}

	transport, err := config.transportFactory(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport for path %s: %w", path, err)
	}
	return transport, nil
}

func createAutoDetectedTransport(config *connectConfig) (Transport, error) {
	if config.transportDeviceFactory == nil {
		return nil, errors.New("transport device factory not provided")
	}

	opts := detection.DefaultOptions()
	if config.detectOptions != nil {
		opts = *config.detectOptions
	}

	devices, err := detection.DetectAll(&opts)
	if err != nil {
		return nil, fmt.Errorf("failed to detect devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("%w: no UHF modules found", ErrDeviceNotFound)
	}

	return config.transportDeviceFactory(devices[0])
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// Config returns a copy of the device configuration
func (d *Device) Config() DeviceConfig {
	return *d.config
}

// Module returns the configured module type
func (d *Device) Module() ModuleType {
	return d.config.Module
}

// SetTimeout sets the default response timeout
func (d *Device) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidParameter)
	}
	d.config.Timeout = timeout
	return nil
}

// Begin checks that the module answers and caches its version
func (d *Device) Begin() error {
	return d.BeginContext(context.Background())
}

// BeginContext checks that the module answers and caches its version
func (d *Device) BeginContext(ctx context.Context) error {
	version, err := d.GetVersionContext(ctx)
	if err != nil {
		return err
	}
	d.version = version
	debugf("module ready: %s", version)
	return nil
}

// Version returns the version read by Begin, or nil
func (d *Device) Version() *VersionInfo {
	return d.version
}

// Close stops continuous mode if needed and closes the transport
func (d *Device) Close() error {
	if d.continuous {
		_ = d.StopReading()
	}
	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}
