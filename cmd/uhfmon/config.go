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
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ZaparooProject/go-m6e/internal/logging"
)

// DeviceConfig selects and sets up the reader
type DeviceConfig struct {
	// Path is the serial port; empty auto-detects
	Path      string `mapstructure:"path" yaml:"path"`
	Module    string `mapstructure:"module" yaml:"module"`
	Region    string `mapstructure:"region" yaml:"region"`
	ENPin     string `mapstructure:"enPin" yaml:"enPin"`
	Baud      int    `mapstructure:"baud" yaml:"baud"`
	ReadPower int    `mapstructure:"readPower" yaml:"readPower"`
}

// InventoryConfig controls the continuous read
type InventoryConfig struct {
	// Bank embeds a memory bank in every record: "", "tid" or "user"
	Bank           string        `mapstructure:"bank" yaml:"bank"`
	RemovalTimeout time.Duration `mapstructure:"removalTimeout" yaml:"removalTimeout"`
	RestartDelay   time.Duration `mapstructure:"restartDelay" yaml:"restartDelay"`
	// StaleAfter restarts the reader when nothing, not even a keep-alive,
	// has arrived for this long
	StaleAfter  time.Duration `mapstructure:"staleAfter" yaml:"staleAfter"`
	BankAddress uint32        `mapstructure:"bankAddress" yaml:"bankAddress"`
	BankWords   uint8         `mapstructure:"bankWords" yaml:"bankWords"`
}

// HTTPConfig configures the status API
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout" yaml:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout" yaml:"writeTimeout"`
}

// RedisConfig configures the sighting publisher
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	Channel  string `mapstructure:"channel" yaml:"channel"`
	// RatePerSecond caps publishes per EPC
	RatePerSecond float64 `mapstructure:"ratePerSecond" yaml:"ratePerSecond"`
	DB            int     `mapstructure:"db" yaml:"db"`
	Burst         int     `mapstructure:"burst" yaml:"burst"`
	Enable        bool    `mapstructure:"enable" yaml:"enable"`
}

// Config is the daemon configuration
type Config struct {
	Device    DeviceConfig    `mapstructure:"device" yaml:"device"`
	Inventory InventoryConfig `mapstructure:"inventory" yaml:"inventory"`
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	Logging   logging.Config  `mapstructure:"logging" yaml:"logging"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis"`
}

// LoadConfig reads path (if any) then applies UHFMON_* environment
// overrides on top of the defaults
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("UHFMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/uhfmon")
		v.SetConfigName("uhfmon")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.path", "")
	v.SetDefault("device.module", "nano")
	v.SetDefault("device.region", "na2")
	v.SetDefault("device.enPin", "")
	v.SetDefault("device.baud", 115200)
	v.SetDefault("device.readPower", 500)

	v.SetDefault("inventory.bank", "")
	v.SetDefault("inventory.removalTimeout", "2s")
	v.SetDefault("inventory.restartDelay", "5s")
	v.SetDefault("inventory.staleAfter", "10s")
	v.SetDefault("inventory.bankAddress", 0)
	v.SetDefault("inventory.bankWords", 0)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 50)
	v.SetDefault("logging.file.maxBackups", 5)
	v.SetDefault("logging.file.maxAge", 14)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("redis.enable", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "uhf:sightings")
	v.SetDefault("redis.ratePerSecond", 1.0)
	v.SetDefault("redis.burst", 1)
}

// Validate rejects settings the reader cannot use
func (c *Config) Validate() error {
	switch strings.ToLower(c.Device.Module) {
	case "nano", "m6e", "hecto", "m7e":
	default:
		return fmt.Errorf("device.module: unknown module %q", c.Device.Module)
	}
	switch strings.ToLower(c.Inventory.Bank) {
	case "", "reserved", "epc", "tid", "user":
	default:
		return fmt.Errorf("inventory.bank: unknown bank %q", c.Inventory.Bank)
	}
	if c.Device.Baud <= 0 {
		return fmt.Errorf("device.baud: %d is not a baud rate", c.Device.Baud)
	}
	if c.Redis.Enable && c.Redis.Channel == "" {
		return errors.New("redis.channel is required when redis is enabled")
	}
	return nil
}

// WriteYAML dumps the effective configuration
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
