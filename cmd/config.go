// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Thermoquad/spiloop/pkg/spibridge"
	"github.com/Thermoquad/spiloop/pkg/transport"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the settings shared by every command
type Config struct {
	Transport   string        `mapstructure:"transport"`
	Device      string        `mapstructure:"device"`
	Speed       int64         `mapstructure:"speed"`
	SPIMode     int           `mapstructure:"spi-mode"`
	Baud        int           `mapstructure:"baud"`
	Timeout     time.Duration `mapstructure:"timeout"`
	URL         string        `mapstructure:"url"`
	Username    string        `mapstructure:"username"`
	NoSSLVerify bool          `mapstructure:"no-ssl-verify"`

	FrameSize int    `mapstructure:"frame-size"`
	Plan      string `mapstructure:"plan"`

	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
	LogFile   string `mapstructure:"log-file"`
}

// loadConfig merges flags, SPILOOP_* environment variables and an optional
// config file. Explicit flags win over the environment, which wins over the
// file.
func loadConfig(flags *pflag.FlagSet, path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SPILOOP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return Config{}, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks ranges that the transports and generator depend on
func (c Config) Validate() error {
	if !slices.Contains(transport.Kinds, c.Transport) {
		return fmt.Errorf("unknown transport %q (use %s)", c.Transport, strings.Join(transport.Kinds, ", "))
	}
	if c.FrameSize < spibridge.MinFrameSize || c.FrameSize > spibridge.MaxFrameSize {
		return fmt.Errorf("frame size %d out of range (%d-%d)", c.FrameSize, spibridge.MinFrameSize, spibridge.MaxFrameSize)
	}
	if c.SPIMode < 0 || c.SPIMode > 3 {
		return fmt.Errorf("SPI mode %d out of range (0-3)", c.SPIMode)
	}
	if c.Speed <= 0 {
		return fmt.Errorf("SPI speed must be positive, got %d", c.Speed)
	}
	if c.Transport == transport.KindWebSocket && c.URL == "" {
		return fmt.Errorf("--url is required for the websocket transport")
	}
	if (c.Transport == transport.KindSPIDev || c.Transport == transport.KindSerial) && c.Device == "" {
		return fmt.Errorf("--device is required for the %s transport", c.Transport)
	}
	return nil
}

// loadPlan returns the plan file's plan, or the default plan
func loadPlan(c Config) (spibridge.Plan, error) {
	plan := spibridge.DefaultPlan()
	if c.Plan != "" {
		var err error
		plan, err = spibridge.LoadPlan(c.Plan)
		if err != nil {
			return spibridge.Plan{}, err
		}
	}
	if err := plan.Validate(c.FrameSize); err != nil {
		return spibridge.Plan{}, fmt.Errorf("invalid plan: %w", err)
	}
	return plan, nil
}
