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
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	m6e "github.com/ZaparooProject/go-m6e"
)

// Sighting is the event published for a tag read
type Sighting struct {
	Time      time.Time `json:"time"`
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	EPC       string    `json:"epc"`
	Data      string    `json:"data,omitempty"`
	RSSI      int8      `json:"rssi"`
	Antenna   byte      `json:"antenna"`
	Arrived   bool      `json:"arrived"`
}

// NewSighting builds the event for tag
func NewSighting(sessionID string, tag *m6e.TagRecord, arrived bool, now time.Time) Sighting {
	s := Sighting{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		EPC:       tag.EPCString(),
		RSSI:      tag.RSSI,
		Antenna:   tag.Antenna,
		Arrived:   arrived,
		Time:      now,
	}
	if len(tag.EmbeddedData) > 0 {
		s.Data = fmt.Sprintf("%X", tag.EmbeddedData)
	}
	return s
}

// Publisher delivers sightings somewhere outside the process
type Publisher interface {
	Publish(ctx context.Context, s Sighting) error
	Close() error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Sighting) error { return nil }
func (nopPublisher) Close() error                           { return nil }

// redisClient is the part of *redis.Client the publisher uses
type redisClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Close() error
}

// RedisPublisher publishes sightings as JSON on a redis channel. Arrivals
// are always sent; repeat reads of an EPC are rate limited per EPC.
type RedisPublisher struct {
	client   redisClient
	limiters map[string]*rate.Limiter
	channel  string
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	sent     atomic.Uint64
	dropped  atomic.Uint64
}

// NewRedisPublisher connects to redis and checks the connection
func NewRedisPublisher(ctx context.Context, cfg RedisConfig) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return newRedisPublisher(rdb, cfg), nil
}

func newRedisPublisher(client redisClient, cfg RedisConfig) *RedisPublisher {
	limit := rate.Limit(cfg.RatePerSecond)
	if cfg.RatePerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &RedisPublisher{
		client:   client,
		channel:  cfg.Channel,
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (p *RedisPublisher) allow(epc string, arrived bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.limiters[epc]
	if !ok {
		l = rate.NewLimiter(p.limit, p.burst)
		p.limiters[epc] = l
	}
	if arrived {
		// An arrival spends a token so the repeat reads right behind it are
		// held back.
		l.Allow()
		return true
	}
	return l.Allow()
}

// Forget drops the limiter of an EPC that left the field
func (p *RedisPublisher) Forget(epc string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.limiters, epc)
}

// Publish sends s unless its EPC is over the rate limit
func (p *RedisPublisher) Publish(ctx context.Context, s Sighting) error {
	if !p.allow(s.EPC, s.Arrived) {
		p.dropped.Add(1)
		return nil
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode sighting: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish sighting: %w", err)
	}
	p.sent.Add(1)
	return nil
}

// Counts returns how many sightings were sent and rate limited
func (p *RedisPublisher) Counts() (sent, dropped uint64) {
	return p.sent.Load(), p.dropped.Load()
}

// Close closes the redis client
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
