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
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-m6e/internal/frame"
)

// Transport and framing errors
var (
	ErrTransportTimeout = errors.New("transport timeout")
	ErrTransportRead    = errors.New("transport read failed")
	ErrTransportWrite   = errors.New("transport write failed")
	ErrTransportClosed  = errors.New("transport closed")
	ErrFrameCorrupted   = errors.New("corrupt response")
	ErrWrongOpcode      = errors.New("wrong opcode response")
	ErrUnknownOpcode    = errors.New("unknown opcode")
	ErrDeviceNotFound   = errors.New("device not found")
)

// Operation errors
var (
	ErrCommandFailed    = errors.New("command failed")
	ErrNoTagFound       = errors.New("no tag found")
	ErrInvalidFilter    = errors.New("invalid EPC filter")
	ErrInvalidRequest   = errors.New("invalid bank/address/length request")
	ErrInvalidBank      = errors.New("invalid bank")
	ErrRetryExceeded    = errors.New("retry count exceeded")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidResponse  = errors.New("invalid response")
	ErrUnsupported      = errors.New("not supported by module")
	ErrDataTooLarge     = errors.New("data too large")
	ErrNotContinuous    = errors.New("not in continuous mode")
)

// ErrorType classifies transport failures
type ErrorType int

const (
	// ErrorTypePermanent errors will not go away on their own
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed when the command is sent again
	ErrorTypeTransient
	// ErrorTypeTimeout errors mean the module did not answer in time
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// TransportError describes a failure at the link or framing layer
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a TransportError. Retryability follows the type.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError reports that no complete response arrived in time
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewFrameCorruptedError reports a CRC or structure failure on a received frame
func NewFrameCorruptedError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrFrameCorrupted, ErrorTypeTransient)
}

// NewWrongOpcodeError reports a response whose opcode differs from the request
func NewWrongOpcodeError(op, port string, want, got byte) *TransportError {
	return NewTransportError(op, port,
		fmt.Errorf("%w: sent 0x%02X, got 0x%02X", ErrWrongOpcode, want, got), ErrorTypeTransient)
}

// NewTransportNotReadyError reports use of a closed or missing transport
func NewTransportNotReadyError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportClosed, ErrorTypePermanent)
}

// StatusError carries a non-zero status word from an otherwise valid response
type StatusError struct {
	Response *frame.Response
	Op       string
	Status   uint16
	Opcode   byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: opcode 0x%02X returned status 0x%04X (%s)",
		e.Op, e.Opcode, e.Status, StatusName(e.Status))
}

// Is lets errors.Is(err, ErrCommandFailed) match any status failure, and
// ErrNoTagFound match the module's "no tags found" status.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrCommandFailed:
		return true
	case ErrNoTagFound:
		return e.Status == StatusNoTagsFound
	default:
		return false
	}
}

// StatusOf returns the status word carried by err, if any.
func StatusOf(err error) (uint16, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, true
	}
	return 0, false
}

// IsRetryable reports whether sending the same command again might succeed
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch err {
	case ErrTransportTimeout, ErrTransportRead, ErrTransportWrite, ErrFrameCorrupted, ErrWrongOpcode:
		return true
	default:
		return false
	}
}

// GetErrorType returns the ErrorType for err
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch err {
	case ErrTransportTimeout:
		return ErrorTypeTimeout
	case ErrTransportRead, ErrTransportWrite, ErrFrameCorrupted, ErrWrongOpcode:
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}

// ResultKind is the single outcome discriminator for every driver operation.
type ResultKind int

// Result kinds
const (
	ResultSuccess ResultKind = iota
	ResultTimeout
	ResultCorrupt
	ResultWrongOpcode
	ResultUnknownOpcode
	ResultStatus
	ResultNoTagFound
	ResultInvalidFilter
	ResultInvalidRequest
	ResultInvalidBank
	ResultRetryExceeded
	ResultInvalidParameter
	ResultTransport
)

var resultNames = [...]string{
	ResultSuccess:          "success",
	ResultTimeout:          "response timeout",
	ResultCorrupt:          "corrupt response",
	ResultWrongOpcode:      "wrong opcode response",
	ResultUnknownOpcode:    "unknown opcode",
	ResultStatus:           "command failed",
	ResultNoTagFound:       "no tag found",
	ResultInvalidFilter:    "invalid EPC filter",
	ResultInvalidRequest:   "invalid request",
	ResultInvalidBank:      "invalid bank",
	ResultRetryExceeded:    "retry count exceeded",
	ResultInvalidParameter: "invalid parameter",
	ResultTransport:        "transport failure",
}

func (k ResultKind) String() string {
	if int(k) < len(resultNames) {
		return resultNames[k]
	}
	return "unknown result"
}

// kindOrder lists sentinels from most to least specific. No-tag is checked
// before the generic status failure so a 0x0400 status maps to NoTagFound.
var kindOrder = []struct {
	err  error
	kind ResultKind
}{
	{ErrTransportTimeout, ResultTimeout},
	{ErrFrameCorrupted, ResultCorrupt},
	{ErrWrongOpcode, ResultWrongOpcode},
	{ErrUnknownOpcode, ResultUnknownOpcode},
	{ErrNoTagFound, ResultNoTagFound},
	{ErrInvalidFilter, ResultInvalidFilter},
	{ErrInvalidRequest, ResultInvalidRequest},
	{ErrInvalidBank, ResultInvalidBank},
	{ErrRetryExceeded, ResultRetryExceeded},
	{ErrInvalidParameter, ResultInvalidParameter},
	{ErrCommandFailed, ResultStatus},
}

// KindOf maps err onto exactly one ResultKind. nil is ResultSuccess; errors
// outside the driver's taxonomy are ResultTransport.
func KindOf(err error) ResultKind {
	if err == nil {
		return ResultSuccess
	}
	for _, k := range kindOrder {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return ResultTransport
}
