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
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ZaparooProject/go-m6e/inventory"
)

// readerState is what the API reports about the running reader
type readerState interface {
	Tags() []inventory.TagState
	Temperature() int
	Running() bool
	SessionID() string
}

type tagView struct {
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	EPC       string    `json:"epc"`
	Reads     uint64    `json:"reads"`
	RSSI      int8      `json:"rssi"`
	Antenna   byte      `json:"antenna"`
}

// Server is the status API
type Server struct {
	srv *http.Server
}

func newRouter(state readerState, reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if state.Running() {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	r.GET("/tags", func(c *gin.Context) {
		tags := state.Tags()
		sort.Slice(tags, func(i, j int) bool { return tags[i].EPC < tags[j].EPC })
		out := make([]tagView, 0, len(tags))
		for _, t := range tags {
			out = append(out, tagView{
				EPC:       t.EPC,
				FirstSeen: t.FirstSeen.UTC(),
				LastSeen:  t.LastSeen.UTC(),
				Reads:     t.Reads,
				RSSI:      t.RSSI,
				Antenna:   t.Antenna,
			})
		}
		c.JSON(http.StatusOK, gin.H{"session": state.SessionID(), "count": len(out), "tags": out})
	})
	r.GET("/temperature", func(c *gin.Context) {
		t := state.Temperature()
		if t == -1 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no temperature reported yet"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"celsius": t})
	})
	if reg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}
	return r
}

// NewServer builds the HTTP server for cfg
func NewServer(cfg HTTPConfig, state readerState, reg *prometheus.Registry) *Server {
	return &Server{srv: &http.Server{
		Addr:         cfg.Addr,
		Handler:      newRouter(state, reg),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}}
}

// Start serves until Shutdown
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
