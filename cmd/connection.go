// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/Thermoquad/spiloop/pkg/spibridge"
	"github.com/Thermoquad/spiloop/pkg/transport"
	"golang.org/x/term"
)

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("SPILOOP_PASSWORD"); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// OpenConnection opens the transport selected by the configuration. The
// plan is only used by the loopback transport to pick responders.
func OpenConnection(c Config, plan spibridge.Plan) (transport.Conn, error) {
	switch c.Transport {
	case transport.KindSPIDev:
		dev, err := transport.OpenSPIDev(c.Device, c.Speed, c.SPIMode)
		if err != nil {
			return nil, err
		}
		return dev, nil

	case transport.KindSerial:
		port, err := transport.OpenSerial(c.Device, c.Baud, c.Timeout)
		if err != nil {
			return nil, err
		}
		return port, nil

	case transport.KindWebSocket:
		password := ""
		if c.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, err
			}
		}
		ws, err := transport.OpenWebSocket(c.URL, c.Username, password, c.NoSSLVerify)
		if err != nil {
			return nil, err
		}
		ws.SetTimeout(c.Timeout)
		return ws, nil

	case transport.KindLoopback:
		return transport.NewLoopback(plan), nil

	default:
		return nil, fmt.Errorf("unknown transport %q", c.Transport)
	}
}
