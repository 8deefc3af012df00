// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spibridge

import (
	"fmt"
	"strings"
)

// FormatHex renders bytes as space separated uppercase hex, 16 per line
func FormatHex(data []byte) string {
	var b strings.Builder
	for i, v := range data {
		if i > 0 {
			if i%16 == 0 {
				b.WriteString("\n")
			} else {
				b.WriteString(" ")
			}
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}

// FormatStep returns "FROM -> TO" with the digital state when relevant
func FormatStep(step Step) string {
	if !step.Digital {
		return fmt.Sprintf("%s -> %s", step.From, step.To)
	}
	state := "OFF"
	if step.State == StateAsserted {
		state = "ON"
	}
	return fmt.Sprintf("%s -> %s [%s]", step.From, step.To, state)
}

// FormatDevice returns "NAME (0xNN)"
func FormatDevice(id DeviceID) string {
	return fmt.Sprintf("%s (0x%02X)", Name(id), byte(id))
}

// FormatExchange returns a multi-line summary of an exchange
func FormatExchange(ex Exchange) string {
	result := fmt.Sprintf("iteration %d, device [%s] to [%s]\n", ex.Iteration, ex.Step.From, ex.Step.To)
	result += fmt.Sprintf("  Sent:     %s\n", FormatHex(ex.Sent))
	if ex.Received != nil {
		result += fmt.Sprintf("  Received: %s (%d bytes)\n", FormatHex(ex.Received), ex.ReceivedLen)
	}
	return result
}
