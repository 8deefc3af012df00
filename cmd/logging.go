// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log = logrus.New()

// Rotation limits for --log-file
const (
	logMaxSizeMB  = 10
	logMaxBackups = 5
	logMaxAgeDays = 30
)

// setupLogging configures the package logger. In TUI mode the console is
// owned by the terminal UI, so logs only go to the log file, if any.
func setupLogging(c Config, tui bool) error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %s, %w", c.LogLevel, err)
	}
	log.SetLevel(level)

	switch strings.ToLower(c.LogFormat) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "15:04:05.000",
			FullTimestamp:   true,
		})
	default:
		return fmt.Errorf("invalid log format: %s (use text or json)", c.LogFormat)
	}

	var console io.Writer = os.Stderr
	if tui {
		console = io.Discard
	}

	if c.LogFile == "" {
		log.SetOutput(console)
		return nil
	}

	file := &lumberjack.Logger{
		Filename:   c.LogFile,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
		LocalTime:  true,
	}
	log.SetOutput(io.MultiWriter(console, file))
	return nil
}
