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
	"fmt"
)

// GPIO pin range: GPIO1, GPIO2, LV3 and LV4. The pins are 3.3V only.
const (
	minGPIOPin = 1
	maxGPIOPin = 4
)

// GPIOState is one pin as reported by the module.
type GPIOState struct {
	Pin    byte
	Output bool
	High   bool
}

func checkPin(pin byte) error {
	if pin < minGPIOPin || pin > maxGPIOPin {
		return fmt.Errorf("%w: GPIO pin %d not in %d..%d", ErrInvalidParameter, pin, minGPIOPin, maxGPIOPin)
	}
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// SetGPIO drives an output pin high or low
func (d *Device) SetGPIO(pin byte, high bool) error {
	if err := checkPin(pin); err != nil {
		return err
	}
	return d.simple(context.Background(), "set gpio", opSetUserGPIOOutputs, []byte{pin, boolByte(high)})
}

// GetGPIO reads the level of pin
func (d *Device) GetGPIO(pin byte) (bool, error) {
	if err := checkPin(pin); err != nil {
		return false, err
	}
	pins, err := d.GPIOStates()
	if err != nil {
		return false, err
	}
	for _, p := range pins {
		if p.Pin == pin {
			return p.High, nil
		}
	}
	return false, fmt.Errorf("%w: GPIO pin %d not reported", ErrInvalidResponse, pin)
}

// GPIOStates returns direction and level of every pin
func (d *Device) GPIOStates() ([]GPIOState, error) {
	resp, err := d.SendCommandContext(context.Background(), opGetUserGPIOInputs, []byte{0x01}, 0)
	if err != nil {
		return nil, fmt.Errorf("get gpio: %w", err)
	}
	if len(resp.Data) < 1 {
		return nil, fmt.Errorf("%w: empty gpio response", ErrInvalidResponse)
	}

	// option echo, then pin, direction, level triplets
	triplets := resp.Data[1:]
	states := make([]GPIOState, 0, len(triplets)/3)
	for i := 0; i+3 <= len(triplets); i += 3 {
		states = append(states, GPIOState{
			Pin:    triplets[i],
			Output: triplets[i+1] == 1,
			High:   triplets[i+2] == 1,
		})
	}
	return states, nil
}

// SetGPIODirection makes pin an output (driven to high) or an input
func (d *Device) SetGPIODirection(pin byte, output, high bool) error {
	if err := checkPin(pin); err != nil {
		return err
	}
	payload := []byte{0x01, pin, boolByte(output), boolByte(high)}
	return d.simple(context.Background(), "set gpio direction", opSetUserGPIOOutputs, payload)
}

// GetGPIODirection reports whether pin is an output
func (d *Device) GetGPIODirection(pin byte) (bool, error) {
	if err := checkPin(pin); err != nil {
		return false, err
	}
	resp, err := d.SendCommandContext(context.Background(), opSetUserGPIOOutputs, []byte{pin}, 0)
	if err != nil {
		return false, fmt.Errorf("get gpio direction: %w", err)
	}
	if len(resp.Data) < 2 {
		return false, fmt.Errorf("%w: gpio direction response is %d bytes", ErrInvalidResponse, len(resp.Data))
	}
	return resp.Data[1] == 1, nil
}
