// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"

	"github.com/Thermoquad/spiloop/pkg/spibridge"
)

// Loopback emulates a healthy bridge in memory: every frame is acknowledged
// by the plan's partner device with the payload echoed back unchanged
type Loopback struct {
	plan  spibridge.Plan
	count uint64

	// Fault, when set, may rewrite the response and returns the number of
	// bytes to report as received. Tests use it to model a faulty bus.
	Fault func(tx, rx []byte) int
}

// NewLoopback creates a loopback bridge answering for plan
func NewLoopback(plan spibridge.Plan) *Loopback {
	return &Loopback{plan: plan}
}

// Transfer answers tx into rx
func (l *Loopback) Transfer(tx, rx []byte) (int, error) {
	if len(tx) == 0 {
		return 0, fmt.Errorf("empty transfer")
	}
	if len(rx) < len(tx) {
		return 0, fmt.Errorf("receive buffer too small: %d < %d", len(rx), len(tx))
	}
	l.count++

	to, ok := l.plan.Partner(spibridge.DeviceID(tx[0]))
	if !ok {
		to = spibridge.DeviceUnknown
	}
	rx[0] = byte(to)
	copy(rx[1:], tx[1:])

	if l.Fault != nil {
		return l.Fault(tx, rx), nil
	}
	return len(tx), nil
}

// Transfers returns the number of transfers performed
func (l *Loopback) Transfers() uint64 {
	return l.count
}

// String describes the transport
func (l *Loopback) String() string {
	return "Loopback: in-memory bridge"
}

// Close is a no-op
func (l *Loopback) Close() error {
	return nil
}
