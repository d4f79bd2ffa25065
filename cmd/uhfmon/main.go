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

// Command uhfmon runs continuous inventory on an M6E Nano or M7E Hecto
// module, serves the tags in the field over HTTP and optionally publishes
// every sighting to redis.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	m6e "github.com/ZaparooProject/go-m6e"
	// Register the serial detector
	_ "github.com/ZaparooProject/go-m6e/detection/uart"
	"github.com/ZaparooProject/go-m6e/internal/logging"
	"github.com/ZaparooProject/go-m6e/power"
)

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func main() {
	configPath := flag.String("config", "", "Path to uhfmon.yaml (default: ./uhfmon.yaml or /etc/uhfmon/uhfmon.yaml)")
	printConfig := flag.Bool("print-config", false, "Print the effective configuration and exit")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "uhfmon: %v\n", err)
		os.Exit(2)
	}
	if *printConfig {
		if err := cfg.WriteYAML(os.Stdout); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "uhfmon: %v\n", err)
			os.Exit(1)
		}
		return
	}

	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "uhfmon: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	m6e.SetLogger(logger.Named("m6e"))

	if err := run(cfg, logger); err != nil {
		logger.Error("uhfmon exited", zap.Error(err))
	}
}

func run(cfg *Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pub Publisher = nopPublisher{}
	if cfg.Redis.Enable {
		rp, err := NewRedisPublisher(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		pub = rp
		log.Info("publishing sightings", zap.String("addr", cfg.Redis.Addr), zap.String("channel", cfg.Redis.Channel))
	}
	defer func() { _ = pub.Close() }()

	var ctrl *power.Controller
	if cfg.Device.ENPin != "" {
		c, err := power.Open(cfg.Device.ENPin)
		if err != nil {
			return err
		}
		ctrl = c
	}

	reg := newRegistry()
	reader := NewReader(cfg, log, pub, reg, ctrl)

	gin.SetMode(gin.ReleaseMode)
	srv := NewServer(cfg.HTTP, reader, reg)
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", zap.Error(err))
		}
	}()

	err := reader.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	return err
}
