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
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// SetLogger replaces the package logger. A nil logger disables output.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l.Named("m6e"))
}

// SetDebugEnabled switches between a development logger and no output
func SetDebugEnabled(enabled bool) {
	if !enabled {
		SetLogger(nil)
		return
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return
	}
	SetLogger(l)
}

func debugf(format string, args ...any) {
	logger.Load().Sugar().Debugf(format, args...)
}

func debugln(args ...any) {
	logger.Load().Sugar().Debug(args...)
}

// debugFrame logs a raw frame in hex
func debugFrame(direction string, raw []byte) {
	l := logger.Load()
	if ce := l.Check(zap.DebugLevel, "frame"); ce != nil {
		ce.Write(zap.String("dir", direction), zap.String("hex", fmt.Sprintf("% X", raw)))
	}
}
