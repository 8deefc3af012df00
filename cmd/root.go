// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/Thermoquad/spiloop/pkg/spibridge"
	"github.com/Thermoquad/spiloop/pkg/transport"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	cfgFile string

	// Loaded before every command runs
	cfg Config
)

var rootCmd = &cobra.Command{
	Use:   "spiloop",
	Short: "SPI Bridge Loopback Validation Harness",
	Long: `spiloop - A CLI tool for validating the multi-device SPI bridge.

Every SPI transaction carries one frame addressed to a logical device
(RS485, RS232, CAN, DI/DO). The bridge acknowledges in the same full-duplex
transaction, and spiloop checks that the acknowledgement came from the
expected device, has the right length, and echoes the payload.

Transports:
  spidev:    --transport spidev --device /dev/spidev0.0 [--speed 1000000]
  serial:    --transport serial --device /dev/ttyUSB0 [--baud 115200]
  websocket: --transport websocket --url ws://host/path [--username user]
  loopback:  --transport loopback (in-memory bridge, no hardware)

Every flag can also be set in a config file (--config) or through
SPILOOP_* environment variables, e.g. SPILOOP_DEVICE=/dev/spidev1.0.

For WebSocket authentication, the password is read from the SPILOOP_PASSWORD
environment variable, or prompted interactively if not set.`,
	Version:      "1.0.0",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cmd.Flags(), cfgFile)
		if err != nil {
			return err
		}
		return setupLogging(cfg, false)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (yaml, toml or json)")
	registerFlags(rootCmd.PersistentFlags())
}

// registerFlags adds the flags backing Config
func registerFlags(fs *pflag.FlagSet) {
	// Connection flags
	fs.StringP("transport", "t", transport.KindSPIDev, "Transport: spidev, serial, websocket or loopback")
	fs.StringP("device", "d", "/dev/spidev0.0", "SPI device or serial port")
	fs.Int64("speed", transport.DefaultSpeedHz, "SPI clock in Hz (spidev only)")
	fs.Int("spi-mode", transport.DefaultSPIMode, "SPI mode 0-3 (spidev only)")
	fs.IntP("baud", "b", 115200, "Baud rate (serial only)")
	fs.Duration("timeout", transport.DefaultSerialTimeout, "Response timeout (serial and websocket)")
	fs.StringP("url", "u", "", "WebSocket URL (ws:// or wss://)")
	fs.String("username", "", "Username for HTTP Basic auth")
	fs.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Frame flags
	fs.Int("frame-size", spibridge.DefaultFrameSize, "Frame size in bytes, including the device id")
	fs.String("plan", "", "TOML cycle plan overriding the default pairs")

	// Logging flags
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("log-format", "text", "Log format: text or json")
	fs.String("log-file", "", "Also write logs to a rotating file")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
