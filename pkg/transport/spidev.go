// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"strings"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Default spidev settings
const (
	DefaultSpeedHz = 1000000
	DefaultSPIMode = 0
)

var hostInit = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// SPIDev is a Linux spidev port held open for the life of the harness
type SPIDev struct {
	port spi.PortCloser
	conn spi.Conn
	name string
}

// OpenSPIDev opens a spidev port by path (/dev/spidev0.0) or periph name
// (SPI0.0) and connects with 8 bit words at the given clock and mode
func OpenSPIDev(name string, speedHz int64, mode int) (*SPIDev, error) {
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}

	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", name, err)
	}

	conn, err := port.Connect(physic.Frequency(speedHz)*physic.Hertz, spi.Mode(mode), 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to configure SPI port %s: %w", name, err)
	}

	return &SPIDev{port: port, conn: conn, name: name}, nil
}

// Transfer clocks tx out while clocking rx in. spidev transfers are
// symmetric, so a successful transfer always receives len(tx) bytes.
func (s *SPIDev) Transfer(tx, rx []byte) (int, error) {
	if len(rx) < len(tx) {
		return 0, fmt.Errorf("receive buffer too small: %d < %d", len(rx), len(tx))
	}
	if err := s.conn.Tx(tx, rx[:len(tx)]); err != nil {
		return 0, fmt.Errorf("SPI transfer failed on %s: %w", s.name, err)
	}
	return len(tx), nil
}

// SPIPorts lists the SPI ports the host drivers registered, as
// "NAME (alias, alias)"
func SPIPorts() ([]string, error) {
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}

	var ports []string
	for _, ref := range spireg.All() {
		name := ref.Name
		if len(ref.Aliases) > 0 {
			name = fmt.Sprintf("%s (%s)", ref.Name, strings.Join(ref.Aliases, ", "))
		}
		ports = append(ports, name)
	}
	return ports, nil
}

// String describes the port
func (s *SPIDev) String() string {
	return fmt.Sprintf("SPI: %s", s.name)
}

// Close releases the port
func (s *SPIDev) Close() error {
	return s.port.Close()
}
