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
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrVerificationFailed is returned when read-back data never matched
var ErrVerificationFailed = errors.New("verification failed")

// ValidationConfig holds configuration for verified tag memory access
type ValidationConfig struct {
	// RetryDelay specifies delay between retry attempts
	RetryDelay time.Duration

	// SettleDelay is the wait between a write and its read-back
	SettleDelay time.Duration

	// ReadRetries specifies max number of read retries on validation failure
	ReadRetries int

	// WriteRetries specifies max number of write retries on verification failure
	WriteRetries int
}

// DefaultValidationConfig returns default validation configuration
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		ReadRetries:  3,
		WriteRetries: 3,
		RetryDelay:   50 * time.Millisecond,
		SettleDelay:  10 * time.Millisecond,
	}
}

// ValidationMetrics tracks validation statistics
type ValidationMetrics struct {
	LastValidation    time.Time
	TotalOperations   uint64
	FailedValidations uint64
}

// ValidatedDevice wraps a Device with read-back verification of tag memory
type ValidatedDevice struct {
	*Device
	config  *ValidationConfig
	metrics ValidationMetrics
	mu      sync.RWMutex
}

// NewValidatedDevice wraps device. A nil config uses the defaults.
func NewValidatedDevice(device *Device, config *ValidationConfig) *ValidatedDevice {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &ValidatedDevice{Device: device, config: config}
}

// GetValidationMetrics returns current validation metrics (thread-safe)
func (vd *ValidatedDevice) GetValidationMetrics() ValidationMetrics {
	vd.mu.RLock()
	defer vd.mu.RUnlock()
	return vd.metrics
}

func (vd *ValidatedDevice) record(success bool) {
	vd.mu.Lock()
	defer vd.mu.Unlock()

	vd.metrics.TotalOperations++
	vd.metrics.LastValidation = time.Now()
	if !success {
		vd.metrics.FailedValidations++
	}
}

// WriteDataVerified writes data and reads it back, retrying the write
// until the tag returns the same bytes. An odd trailing byte is dropped,
// as with WriteDataRegion.
func (vd *ValidatedDevice) WriteDataVerified(bank Bank, address uint32, data []byte, timeout time.Duration) error {
	data = data[:len(data)&^1]
	words := len(data) / 2
	if words == 0 || words > 0xFF {
		return fmt.Errorf("%w: verified write of %d bytes", ErrInvalidParameter, len(data))
	}

	err := performValidatedWrite(data, vd.config,
		func() error {
			return vd.WriteData(bank, address, data, timeout)
		},
		func() ([]byte, error) {
			buf := make([]byte, len(data))
			n, err := vd.ReadDataRegion(bank, address, uint8(words), buf, timeout)
			return buf[:n], err
		})
	vd.record(err == nil)
	return err
}

// ReadDataVerified reads words words of bank until two consecutive reads
// agree.
func (vd *ValidatedDevice) ReadDataVerified(bank Bank, address uint32, words uint8, timeout time.Duration) ([]byte, error) {
	read := func() ([]byte, error) {
		buf := make([]byte, int(words)*2)
		n, err := vd.ReadDataRegion(bank, address, words, buf, timeout)
		return buf[:n], err
	}

	data, err := read()
	if err == nil {
		data, err = performReadVerification(data, vd.config, read)
	}
	vd.record(err == nil)
	return data, err
}

func performReadVerification(
	initialData []byte, config *ValidationConfig, readFunc func() ([]byte, error),
) ([]byte, error) {
	var lastErr error
	lastData := initialData

	for retry := 0; retry < config.ReadRetries; retry++ {
		if retry > 0 {
			time.Sleep(config.RetryDelay)
		}

		verifyData, err := readFunc()
		if err != nil {
			lastErr = err
			continue
		}
		if bytes.Equal(lastData, verifyData) {
			return verifyData, nil
		}
		lastData = verifyData
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: read after %d retries: %w", ErrVerificationFailed, config.ReadRetries, lastErr)
	}
	return nil, fmt.Errorf("%w: inconsistent reads after %d retries", ErrVerificationFailed, config.ReadRetries)
}

func performValidatedWrite(
	data []byte,
	config *ValidationConfig,
	writeFunc func() error,
	readFunc func() ([]byte, error),
) error {
	var lastErr error

	for retry := 0; retry <= config.WriteRetries; retry++ {
		if retry > 0 {
			time.Sleep(config.RetryDelay)
		}

		if err := writeFunc(); err != nil {
			lastErr = err
			continue
		}

		time.Sleep(config.SettleDelay)

		readData, err := readFunc()
		if err != nil {
			lastErr = err
			continue
		}
		if bytes.Equal(data, readData) {
			return nil
		}
		lastErr = errors.New("data mismatch")
	}

	return fmt.Errorf("%w: write after %d retries: %w", ErrVerificationFailed, config.WriteRetries, lastErr)
}
