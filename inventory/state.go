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

package inventory

import (
	"sync"
	"time"

	m6e "github.com/ZaparooProject/go-m6e"
)

// TagState tracks one EPC while it is in the field
type TagState struct {
	FirstSeen time.Time
	LastSeen  time.Time
	timer     *time.Timer
	EPC       string
	Reads     uint64
	RSSI      int8
	Antenna   byte
}

// presence is the table of tags currently in the field. A tag leaves the
// table when it has not been reported for the removal timeout.
type presence struct {
	tags    map[string]*TagState
	onLeave func(TagState)
	timeout time.Duration
	mu      sync.Mutex
}

func newPresence(timeout time.Duration, onLeave func(TagState)) *presence {
	return &presence{
		tags:    make(map[string]*TagState),
		timeout: timeout,
		onLeave: onLeave,
	}
}

// safeTimerStop stops a timer and drains its channel if it already fired
func safeTimerStop(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}

// seen records a sighting and reports whether the tag is new
func (p *presence) seen(tag *m6e.TagRecord, now time.Time) (TagState, bool) {
	epc := tag.EPCString()

	p.mu.Lock()
	defer p.mu.Unlock()

	state, ok := p.tags[epc]
	if !ok {
		state = &TagState{EPC: epc, FirstSeen: now}
		p.tags[epc] = state
	}
	state.LastSeen = now
	state.Reads++
	state.RSSI = tag.RSSI
	state.Antenna = tag.Antenna

	if p.timeout > 0 {
		safeTimerStop(state.timer)
		state.timer = time.AfterFunc(p.timeout, func() { p.expire(epc, now) })
	}
	cp := *state
	cp.timer = nil
	return cp, !ok
}

// expire removes epc unless it was seen again after the timer was armed
func (p *presence) expire(epc string, armed time.Time) {
	p.mu.Lock()
	state, ok := p.tags[epc]
	if !ok || state.LastSeen.After(armed) {
		p.mu.Unlock()
		return
	}
	delete(p.tags, epc)
	snapshot := *state
	p.mu.Unlock()

	if p.onLeave != nil {
		p.onLeave(snapshot)
	}
}

// snapshot returns the tags in the field
func (p *presence) snapshot() []TagState {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]TagState, 0, len(p.tags))
	for _, s := range p.tags {
		cp := *s
		cp.timer = nil
		out = append(out, cp)
	}
	return out
}

// clear empties the table without reporting removals
func (p *presence) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for epc, s := range p.tags {
		safeTimerStop(s.timer)
		delete(p.tags, epc)
	}
}
