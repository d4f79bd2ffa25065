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

	"github.com/ZaparooProject/go-m6e/internal/frame"
	"github.com/ZaparooProject/go-m6e/internal/transport"
)

const bytePollInterval = time.Millisecond

// SendCommand sends a command frame and waits for the module's response.
// A zero timeout uses the device default. See SendCommandContext.
func (d *Device) SendCommand(opcode byte, payload []byte, timeout time.Duration) (*frame.Response, error) {
	return d.SendCommandContext(context.Background(), opcode, payload, timeout)
}

// SendCommandContext sends a command frame and waits for the response.
//
// The first response byte must arrive within 2×timeout and the rest of the
// frame within timeout of that. A response with a non-zero status word is
// returned together with a *StatusError so callers can still inspect it.
func (d *Device) SendCommandContext(
	ctx context.Context, opcode byte, payload []byte, timeout time.Duration,
) (*frame.Response, error) {
	resp, err := d.exchange(ctx, d.rx, opcode, payload, timeout)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return resp, &StatusError{
			Op:       fmt.Sprintf("command 0x%02X", opcode),
			Opcode:   opcode,
			Status:   resp.Status,
			Response: resp,
		}
	}
	return resp, nil
}

// SendNoResponse sends a command the module may not answer, such as a baud
// change or stopping continuous mode. After a settle delay, anything that
// arrives during the drain window is discarded.
func (d *Device) SendNoResponse(opcode byte, payload []byte) error {
	raw, err := frame.Encode(opcode, payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDataTooLarge, err)
	}

	d.drainInput()
	if err := d.write(raw); err != nil {
		return err
	}

	time.Sleep(d.config.SettleDelay)
	start := time.Now()
	for time.Since(start) < d.config.DrainWindow {
		d.drainInput()
		time.Sleep(drainPollInterval)
	}
	d.rx.Reset()
	return nil
}

// exchange runs one request/response cycle into buf.
func (d *Device) exchange(
	ctx context.Context, buf *frame.Buffer, opcode byte, payload []byte, timeout time.Duration,
) (*frame.Response, error) {
	if timeout <= 0 {
		timeout = d.config.Timeout
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled before sending command: %w", err)
	}
	if !d.transport.IsConnected() {
		return nil, NewTransportNotReadyError("send", portName(d.transport))
	}

	raw, err := frame.Encode(opcode, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataTooLarge, err)
	}

	// Stale bytes from an earlier exchange must not be read as this response.
	d.drainInput()
	if err := d.write(raw); err != nil {
		return nil, err
	}

	buf.Reset()
	if err := d.awaitFirstByte(ctx, timeout); err != nil {
		return nil, err
	}
	if err := d.readFrame(ctx, buf, timeout); err != nil {
		return nil, err
	}
	debugFrame("rx", buf.Bytes())

	resp, err := buf.Decode()
	if err != nil {
		return nil, NewFrameCorruptedError("receive", portName(d.transport))
	}
	if resp.Opcode != opcode {
		return nil, NewWrongOpcodeError("receive", portName(d.transport), opcode, resp.Opcode)
	}
	return resp, nil
}

func (d *Device) write(raw []byte) error {
	debugFrame("tx", raw)
	n, err := d.transport.Write(raw)
	if err != nil {
		return NewTransportError("write", portName(d.transport),
			fmt.Errorf("%w: %w", ErrTransportWrite, err), ErrorTypeTransient)
	}
	if n != len(raw) {
		return NewTransportError("write", portName(d.transport),
			fmt.Errorf("%w: short write %d of %d", ErrTransportWrite, n, len(raw)), ErrorTypeTransient)
	}
	return nil
}

// awaitFirstByte waits up to 2×timeout for the module to start answering.
func (d *Device) awaitFirstByte(ctx context.Context, timeout time.Duration) error {
	_, err := transport.PollUntil(ctx, time.Now().Add(2*timeout), bytePollInterval,
		func() (struct{}, bool, error) {
			n, err := d.transport.Available()
			if err != nil {
				return struct{}{}, false, d.readError(err)
			}
			return struct{}{}, n == 0, nil
		})
	return d.waitError("await response", err)
}

// readFrame accumulates bytes into buf until the frame announced by its
// length byte is complete or timeout passes.
func (d *Device) readFrame(ctx context.Context, buf *frame.Buffer, timeout time.Duration) error {
	_, err := transport.PollUntil(ctx, time.Now().Add(timeout), bytePollInterval,
		func() (struct{}, bool, error) {
			n, err := d.transport.Available()
			if err != nil {
				return struct{}{}, false, d.readError(err)
			}
			for ; n > 0; n-- {
				b, err := d.transport.ReadByte()
				if err != nil {
					return struct{}{}, false, d.readError(err)
				}
				if buf.Append(b) {
					return struct{}{}, false, nil
				}
			}
			return struct{}{}, true, nil
		})
	return d.waitError("read response", err)
}

func (d *Device) readError(err error) error {
	return NewTransportError("read", portName(d.transport),
		fmt.Errorf("%w: %w", ErrTransportRead, err), ErrorTypeTransient)
}

func (d *Device) waitError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, transport.ErrDeadline):
		return NewTimeoutError(op, portName(d.transport))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return err
	}
}

// drainInput discards everything the transport has buffered.
func (d *Device) drainInput() {
	drained := 0
	for {
		n, err := d.transport.Available()
		if err != nil || n == 0 {
			break
		}
		for ; n > 0; n-- {
			if _, err := d.transport.ReadByte(); err != nil {
				return
			}
			drained++
		}
	}
	if drained > 0 {
		debugf("discarded %d stale bytes", drained)
	}
}
