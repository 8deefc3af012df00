// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spibridge

import "fmt"

// Outcome is the categorized result of checking an echoed frame
type Outcome int

const (
	OutcomePass Outcome = iota
	OutcomeInvalidInput
	OutcomeIdentityMismatch
	OutcomeLengthMismatch
	OutcomePayloadMismatch
)

// String returns the outcome name
func (o Outcome) String() string {
	switch o {
	case OutcomePass:
		return "PASS"
	case OutcomeInvalidInput:
		return "INVALID_INPUT"
	case OutcomeIdentityMismatch:
		return "IDENTITY_MISMATCH"
	case OutcomeLengthMismatch:
		return "LENGTH_MISMATCH"
	case OutcomePayloadMismatch:
		return "PAYLOAD_MISMATCH"
	default:
		return fmt.Sprintf("OUTCOME(%d)", int(o))
	}
}

// ValidationError describes why an echoed frame was rejected
type ValidationError struct {
	Outcome Outcome
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// Validate checks an echoed frame and returns only its outcome.
// See Check for the rules.
func Validate(sent, received []byte, receivedLen, expectedLen int, expected DeviceID) Outcome {
	if err := Check(sent, received, receivedLen, expectedLen, expected); err != nil {
		return err.Outcome
	}
	return OutcomePass
}

// Check validates the frame received in response to sent. It returns nil when
// the response passes. Checks run in order and stop at the first failure:
//
//  1. both buffers present, expectedLen > 0 and sent holds expectedLen bytes
//  2. received[0] equals the expected responder id
//  3. receivedLen equals expectedLen
//  4. payload equality, keyed by the sending device's class: CAN devices
//     compare exactly CANPayloadSize bytes after the id, every other device
//     compares expectedLen-1 bytes
func Check(sent, received []byte, receivedLen, expectedLen int, expected DeviceID) *ValidationError {
	if sent == nil || received == nil {
		return &ValidationError{
			Outcome: OutcomeInvalidInput,
			Message: "Invalid buffers: sent or received frame is nil",
			Details: map[string]interface{}{"sent_nil": sent == nil, "received_nil": received == nil},
		}
	}
	if expectedLen <= 0 {
		return &ValidationError{
			Outcome: OutcomeInvalidInput,
			Message: "Expected length is zero",
			Details: map[string]interface{}{"expected": expectedLen},
		}
	}
	if len(sent) < expectedLen || receivedLen < 0 {
		return &ValidationError{
			Outcome: OutcomeInvalidInput,
			Message: fmt.Sprintf("Sent frame shorter than expected length (%d < %d)", len(sent), expectedLen),
			Details: map[string]interface{}{"sent": len(sent), "expected": expectedLen, "received": receivedLen},
		}
	}

	if receivedLen == 0 || len(received) == 0 || DeviceID(received[0]) != expected {
		actual := DeviceUnknown
		if receivedLen > 0 && len(received) > 0 {
			actual = DeviceID(received[0])
		}
		return &ValidationError{
			Outcome: OutcomeIdentityMismatch,
			Message: fmt.Sprintf("Received data from unexpected device. Expected: %02X, but got: %02X", byte(expected), byte(actual)),
			Details: map[string]interface{}{"expected": expected, "actual": actual},
		}
	}

	if receivedLen != expectedLen {
		return &ValidationError{
			Outcome: OutcomeLengthMismatch,
			Message: fmt.Sprintf("Received data length: %d bytes, expected length: %d bytes", receivedLen, expectedLen),
			Details: map[string]interface{}{"received": receivedLen, "expected": expectedLen},
		}
	}

	if len(received) < receivedLen {
		return &ValidationError{
			Outcome: OutcomeInvalidInput,
			Message: fmt.Sprintf("Received buffer holds %d bytes, %d declared", len(received), receivedLen),
			Details: map[string]interface{}{"received_cap": len(received), "received": receivedLen},
		}
	}

	n := comparedBytes(DeviceID(sent[0]), expectedLen)
	for i := 1; i <= n; i++ {
		if sent[i] != received[i] {
			return &ValidationError{
				Outcome: OutcomePayloadMismatch,
				Message: fmt.Sprintf("Data mismatch between sent and received data at byte %d: sent %02X, received %02X",
					i, sent[i], received[i]),
				Details: map[string]interface{}{
					"offset":   i,
					"sent":     sent[i],
					"received": received[i],
					"compared": n,
				},
			}
		}
	}

	return nil
}

// comparedBytes returns how many payload bytes after the id are compared for
// a frame of length n sent by the given device
func comparedBytes(sender DeviceID, n int) int {
	payload := n - 1
	if sender.Class() == ClassCAN && payload > CANPayloadSize {
		return CANPayloadSize
	}
	return payload
}
