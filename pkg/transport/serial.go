// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// DefaultSerialTimeout bounds how long a serial bridge may take to answer
const DefaultSerialTimeout = 500 * time.Millisecond

// Serial talks to a UART-attached bridge that performs the SPI transaction
// and writes back exactly as many bytes as it was sent
type Serial struct {
	port    serial.Port
	name    string
	baud    int
	timeout time.Duration
}

// OpenSerial opens a serial port in 8N1 mode
func OpenSerial(portName string, baudRate int, timeout time.Duration) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", portName, err)
	}

	if timeout <= 0 {
		timeout = DefaultSerialTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %v", portName, err)
	}

	return &Serial{port: port, name: portName, baud: baudRate, timeout: timeout}, nil
}

// Transfer writes tx and reads back up to len(tx) bytes. A short read
// returns the count received so the caller sees the loss; receiving nothing
// at all is an error.
func (s *Serial) Transfer(tx, rx []byte) (int, error) {
	if len(rx) < len(tx) {
		return 0, fmt.Errorf("receive buffer too small: %d < %d", len(rx), len(tx))
	}

	// Drop anything left over from a previous timed out exchange
	if err := s.port.ResetInputBuffer(); err != nil {
		return 0, fmt.Errorf("failed to reset input buffer: %v", err)
	}

	if _, err := s.port.Write(tx); err != nil {
		return 0, fmt.Errorf("serial write failed: %v", err)
	}

	received := 0
	for received < len(tx) {
		n, err := s.port.Read(rx[received:len(tx)])
		if err != nil {
			return received, fmt.Errorf("serial read failed: %v", err)
		}
		if n == 0 {
			break // read timeout
		}
		received += n
	}

	if received == 0 {
		return 0, fmt.Errorf("no response within %v", s.timeout)
	}
	return received, nil
}

// SerialPorts lists the serial ports present on the host
func SerialPorts() ([]*enumerator.PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return ports, nil
}

// String describes the port
func (s *Serial) String() string {
	return fmt.Sprintf("Serial: %s @ %d baud", s.name, s.baud)
}

// Close closes the port
func (s *Serial) Close() error {
	return s.port.Close()
}
