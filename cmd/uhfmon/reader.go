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

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	m6e "github.com/ZaparooProject/go-m6e"
	"github.com/ZaparooProject/go-m6e/detection"
	"github.com/ZaparooProject/go-m6e/inventory"
	"github.com/ZaparooProject/go-m6e/power"
	"github.com/ZaparooProject/go-m6e/transport/uart"
)

var errStale = errors.New("module went silent")

// Reader keeps an inventory session running, reconnecting and power
// cycling the module when it stops talking
type Reader struct {
	cfg       *Config
	log       *zap.Logger
	pub       Publisher
	reg       prometheus.Registerer
	open      func(ctx context.Context) (*m6e.Device, error)
	power     *power.Controller
	session   *inventory.Session
	collector *inventory.Collector
	mu        sync.RWMutex
}

// NewReader wires a reader for cfg. ctrl may be nil when no EN pin is
// configured.
func NewReader(cfg *Config, log *zap.Logger, pub Publisher, reg prometheus.Registerer, ctrl *power.Controller) *Reader {
	r := &Reader{cfg: cfg, log: log, pub: pub, reg: reg, power: ctrl}
	r.open = r.connect
	return r
}

func moduleType(name string) m6e.ModuleType {
	switch strings.ToLower(name) {
	case "hecto", "m7e":
		return m6e.ModuleM7EHecto
	default:
		return m6e.ModuleM6ENano
	}
}

func (r *Reader) connect(_ context.Context) (*m6e.Device, error) {
	dc := r.cfg.Device
	factory := func(path string) (m6e.Transport, error) {
		return uart.New(path, uart.WithBaudRate(dc.Baud))
	}
	opts := []m6e.ConnectOption{
		m6e.WithDeviceOptions(m6e.WithModuleType(moduleType(dc.Module)), m6e.WithLogger(r.log.Named("m6e"))),
	}
	if dc.Path == "" {
		detectOpts := detection.DefaultOptions()
		detectOpts.BaudRate = dc.Baud
		opts = append(opts,
			m6e.WithAutoDetection(),
			m6e.WithDetectionOptions(detectOpts),
			m6e.WithTransportFromDeviceFactory(func(info detection.DeviceInfo) (m6e.Transport, error) {
				r.log.Info("detected module", zap.Stringer("device", info))
				return factory(info.Path)
			}))
	} else {
		opts = append(opts, m6e.WithTransportFactory(factory))
	}
	return m6e.ConnectDevice(dc.Path, opts...)
}

func configureDevice(device *m6e.Device, dc DeviceConfig) error {
	region, ok := m6e.ParseRegion(strings.ToLower(dc.Region))
	if !ok {
		return fmt.Errorf("unknown region %q", dc.Region)
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
	return device.SetReadPower(int16(dc.ReadPower))
}

func (r *Reader) sessionConfig() *inventory.Config {
	ic := r.cfg.Inventory
	cfg := &inventory.Config{RemovalTimeout: ic.RemovalTimeout}
	banks := map[string]m6e.Bank{
		"reserved": m6e.BankReserved,
		"epc":      m6e.BankEPC,
		"tid":      m6e.BankTID,
		"user":     m6e.BankUser,
	}
	if b, ok := banks[strings.ToLower(ic.Bank)]; ok {
		cfg.Bank = &inventory.BankRead{Bank: b, Address: ic.BankAddress, Length: ic.BankWords}
	}
	return cfg
}

func (r *Reader) callbacks(ctx context.Context, session **inventory.Session) inventory.Callbacks {
	return inventory.Callbacks{
		OnTag: func(tag *m6e.TagRecord, first bool) {
			if first {
				r.log.Info("tag arrived",
					zap.String("epc", tag.EPCString()),
					zap.Int8("rssi", tag.RSSI),
					zap.Uint8("antenna", tag.Antenna))
			}
			s := NewSighting((*session).ID(), tag, first, time.Now())
			if err := r.pub.Publish(ctx, s); err != nil {
				r.log.Warn("publish failed", zap.String("epc", s.EPC), zap.Error(err))
			}
		},
		OnTagRemoved: func(state inventory.TagState) {
			r.log.Info("tag left",
				zap.String("epc", state.EPC),
				zap.Uint64("reads", state.Reads),
				zap.Duration("present", state.LastSeen.Sub(state.FirstSeen)))
			if rp, ok := r.pub.(*RedisPublisher); ok {
				rp.Forget(state.EPC)
			}
		},
		OnTemperature: func(celsius int) {
			r.log.Debug("module temperature", zap.Int("celsius", celsius))
		},
		OnThrottle: func() {
			r.log.Warn("module is throttling transmit power: temperature limit reached")
		},
		OnUnknown: func(status uint16) {
			r.log.Debug("unclassified record", zap.String("status", m6e.StatusName(status)))
		},
		OnError: func(err error) {
			r.log.Debug("stream error", zap.Error(err))
		},
	}
}

// Run keeps the reader going until ctx is done
func (r *Reader) Run(ctx context.Context) error {
	for {
		err := r.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		r.log.Warn("reader stopped, restarting", zap.Error(err), zap.Duration("delay", r.cfg.Inventory.RestartDelay))

		if r.power != nil {
			if err := r.power.Cycle(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("power cycle failed", zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(r.cfg.Inventory.RestartDelay):
		}
	}
}

func (r *Reader) runOnce(ctx context.Context) error {
	device, err := r.open(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = device.Close() }()

	if v := device.Version(); v != nil {
		r.log.Info("module connected", zap.Stringer("module", device.Module()), zap.String("version", v.String()))
	}
	if err := configureDevice(device, r.cfg.Device); err != nil {
		return fmt.Errorf("configure: %w", err)
	}

	var session *inventory.Session
	session, err = inventory.NewSession(device, r.sessionConfig(), r.callbacks(ctx, &session))
	if err != nil {
		return err
	}
	if err := session.Start(ctx); err != nil {
		return err
	}
	r.attach(session)
	defer r.detach()

	r.log.Info("inventory started", zap.String("session", session.ID()))
	return r.watch(ctx, session)
}

// watch returns when ctx ends or the module has been silent for StaleAfter
func (r *Reader) watch(ctx context.Context, session *inventory.Session) error {
	stale := r.cfg.Inventory.StaleAfter
	check := stale / 4
	if check <= 0 {
		check = time.Second
	}
	ticker := time.NewTicker(check)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return session.Stop()
		case <-ticker.C:
			if stale <= 0 {
				continue
			}
			m := session.Metrics()
			last := m.LastRecordAt
			if last.IsZero() {
				last = m.Started
			}
			if time.Since(last) > stale {
				_ = session.Stop()
				return fmt.Errorf("%w for %s", errStale, stale)
			}
		}
	}
}

func (r *Reader) attach(session *inventory.Session) {
	collector := inventory.NewCollector(session)
	if r.reg != nil {
		if err := r.reg.Register(collector); err != nil {
			r.log.Warn("metrics registration failed", zap.Error(err))
		}
	}
	r.mu.Lock()
	r.session = session
	r.collector = collector
	r.mu.Unlock()
}

func (r *Reader) detach() {
	r.mu.Lock()
	collector := r.collector
	r.session = nil
	r.collector = nil
	r.mu.Unlock()
	if r.reg != nil && collector != nil {
		r.reg.Unregister(collector)
	}
}

// Tags returns the tags in the field
func (r *Reader) Tags() []inventory.TagState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.session == nil {
		return nil
	}
	return r.session.Tags()
}

// Temperature returns the last module temperature, or -1
func (r *Reader) Temperature() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.session == nil {
		return -1
	}
	return r.session.Temperature()
}

// Running reports whether inventory is active
func (r *Reader) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session != nil && r.session.IsRunning()
}

// SessionID returns the id of the current session, or ""
func (r *Reader) SessionID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.session == nil {
		return ""
	}
	return r.session.ID()
}
