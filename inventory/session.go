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

// Package inventory runs continuous UHF inventory on a device and turns the
// record stream into callbacks, a presence table and counters.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	m6e "github.com/ZaparooProject/go-m6e"
)

// Session errors
var (
	ErrAlreadyRunning = errors.New("inventory session is already running")
	ErrNilDevice      = errors.New("device cannot be nil")
)

// BankRead asks for a memory bank to be embedded in every tag record
type BankRead struct {
	Bank    m6e.Bank
	Address uint32
	Length  byte
}

// Config holds session options
type Config struct {
	// Bank, when set, starts inventory with an embedded bank read
	Bank *BankRead
	// RemovalTimeout is how long a tag may go unreported before OnTagRemoved.
	// Zero disables removal tracking.
	RemovalTimeout time.Duration
}

// DefaultConfig returns the default session configuration
func DefaultConfig() *Config {
	return &Config{RemovalTimeout: 2 * time.Second}
}

// Callbacks receive records as they are decoded. They run on the session
// goroutine, except OnTagRemoved which runs on a timer goroutine.
type Callbacks struct {
	// OnTag is called for every tag record; first is true when the EPC was
	// not already in the field
	OnTag         func(tag *m6e.TagRecord, first bool)
	OnTagRemoved  func(state TagState)
	OnKeepAlive   func()
	OnTemperature func(celsius int)
	OnThrottle    func()
	OnUnknown     func(status uint16)
	OnError       func(err error)
}

// Metrics is a snapshot of session counters
type Metrics struct {
	Started      time.Time
	Records      uint64
	Tags         uint64
	UniqueTags   uint64
	KeepAlives   uint64
	Throttles    uint64
	Unknown      uint64
	Errors       uint64
	Temperature  int
	InField      int
	LastRecordAt time.Time
}

// Session owns a device while continuous inventory runs
type Session struct {
	started    time.Time
	device     *m6e.Device
	config     *Config
	presence   *presence
	cancelFunc context.CancelFunc
	done       chan struct{}
	callbacks  Callbacks
	id         string
	stopMutex  sync.Mutex

	records     atomic.Uint64
	tags        atomic.Uint64
	uniqueTags  atomic.Uint64
	keepAlives  atomic.Uint64
	throttles   atomic.Uint64
	unknown     atomic.Uint64
	errs        atomic.Uint64
	temperature atomic.Int64
	lastRecord  atomic.Int64
	running     atomic.Bool
}

// NewSession creates a session for device
func NewSession(device *m6e.Device, config *Config, callbacks Callbacks) (*Session, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if config == nil {
		config = DefaultConfig()
	}
	s := &Session{
		device:    device,
		config:    config,
		callbacks: callbacks,
		id:        uuid.NewString(),
	}
	s.temperature.Store(-1)
	s.presence = newPresence(config.RemovalTimeout, func(state TagState) {
		if s.callbacks.OnTagRemoved != nil {
			s.callbacks.OnTagRemoved(state)
		}
	})
	return s, nil
}

// ID identifies the session in logs and published events
func (s *Session) ID() string {
	return s.id
}

// Start puts the module into continuous mode and begins dispatching records
// in the background
func (s *Session) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var err error
	if b := s.config.Bank; b != nil {
		err = s.device.StartReadingBankContext(ctx, b.Bank, b.Address, b.Length)
	} else {
		err = s.device.StartReadingContext(ctx)
	}
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("start inventory: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stopMutex.Lock()
	s.cancelFunc = cancel
	s.done = done
	s.started = time.Now()
	s.stopMutex.Unlock()

	go func() {
		defer close(done)
		s.run(runCtx)
	}()
	return nil
}

// Stop ends the loop, sends StopReading and clears the presence table
func (s *Session) Stop() error {
	s.stopMutex.Lock()
	cancel, done := s.cancelFunc, s.done
	s.cancelFunc, s.done = nil, nil
	s.stopMutex.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	s.presence.clear()
	s.running.Store(false)
	if err := s.device.StopReading(); err != nil {
		return fmt.Errorf("stop inventory: %w", err)
	}
	return nil
}

// IsRunning reports whether the record loop is active
func (s *Session) IsRunning() bool {
	return s.running.Load()
}

// Tags returns the tags currently in the field
func (s *Session) Tags() []TagState {
	return s.presence.snapshot()
}

// Temperature returns the last reported module temperature, or -1
func (s *Session) Temperature() int {
	return int(s.temperature.Load())
}

// Metrics returns the session counters
func (s *Session) Metrics() Metrics {
	s.stopMutex.Lock()
	started := s.started
	s.stopMutex.Unlock()

	m := Metrics{
		Started:     started,
		Records:     s.records.Load(),
		Tags:        s.tags.Load(),
		UniqueTags:  s.uniqueTags.Load(),
		KeepAlives:  s.keepAlives.Load(),
		Throttles:   s.throttles.Load(),
		Unknown:     s.unknown.Load(),
		Errors:      s.errs.Load(),
		Temperature: s.Temperature(),
		InField:     len(s.presence.snapshot()),
	}
	if ns := s.lastRecord.Load(); ns != 0 {
		m.LastRecordAt = time.Unix(0, ns)
	}
	return m
}

func (s *Session) run(ctx context.Context) {
	for {
		rec, err := s.device.NextRecord(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.errs.Add(1)
			if s.callbacks.OnError != nil {
				s.callbacks.OnError(err)
			}
		} else {
			s.dispatch(rec)
		}
		s.syncTemperature()
	}
}

// syncTemperature picks up temperatures the device cached from stats
// updates, which never surface as records.
func (s *Session) syncTemperature() {
	if !s.device.IsReading() {
		return
	}
	t, err := s.device.Temperature()
	if err != nil || t < 0 {
		return
	}
	if s.temperature.Swap(int64(t)) == int64(t) {
		return
	}
	if s.callbacks.OnTemperature != nil {
		s.callbacks.OnTemperature(t)
	}
}

func (s *Session) dispatch(rec m6e.Record) {
	s.records.Add(1)
	s.lastRecord.Store(time.Now().UnixNano())

	switch rec.Kind {
	case m6e.RecordTagFound:
		s.tags.Add(1)
		_, first := s.presence.seen(rec.Tag, time.Now())
		if first {
			s.uniqueTags.Add(1)
		}
		if s.callbacks.OnTag != nil {
			s.callbacks.OnTag(rec.Tag, first)
		}
	case m6e.RecordKeepAlive:
		s.keepAlives.Add(1)
		if s.callbacks.OnKeepAlive != nil {
			s.callbacks.OnKeepAlive()
		}
	case m6e.RecordTemperatureSample:
		s.temperature.Store(int64(rec.Temperature))
		if s.callbacks.OnTemperature != nil {
			s.callbacks.OnTemperature(rec.Temperature)
		}
	case m6e.RecordTemperatureThrottle:
		s.throttles.Add(1)
		if s.callbacks.OnThrottle != nil {
			s.callbacks.OnThrottle()
		}
	default:
		s.unknown.Add(1)
		if s.callbacks.OnUnknown != nil {
			s.callbacks.OnUnknown(rec.Status)
		}
	}
}
