// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spibridge

import (
	"fmt"
	"time"
)

// Statistics tracks exchange counts and failure rates for a run
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	Cycles             uint64
	TotalExchanges     uint64
	Passed             uint64
	TransferErrors     uint64
	InvalidInputs      uint64
	IdentityMismatches uint64
	LengthMismatches   uint64
	PayloadMismatches  uint64
	DigitalExchanges   uint64

	// Rates (calculated)
	ExchangeRate float64 // exchanges/sec
	ErrorRate    float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Record updates the counters for one completed exchange. A nil verr is a pass.
func (s *Statistics) Record(step Step, verr *ValidationError) {
	s.TotalExchanges++
	if step.Digital {
		s.DigitalExchanges++
	}

	if verr == nil {
		s.Passed++
	} else {
		switch verr.Outcome {
		case OutcomeInvalidInput:
			s.InvalidInputs++
		case OutcomeIdentityMismatch:
			s.IdentityMismatches++
		case OutcomeLengthMismatch:
			s.LengthMismatches++
		case OutcomePayloadMismatch:
			s.PayloadMismatches++
		}
	}

	s.LastUpdateTime = time.Now()
}

// RecordTransferError counts an exchange the transport could not complete
func (s *Statistics) RecordTransferError() {
	s.TotalExchanges++
	s.TransferErrors++
	s.LastUpdateTime = time.Now()
}

// Failures returns the number of exchanges that did not pass
func (s *Statistics) Failures() uint64 {
	return s.TransferErrors + s.InvalidInputs + s.IdentityMismatches + s.LengthMismatches + s.PayloadMismatches
}

// CalculateRates calculates exchange and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.ExchangeRate = float64(s.TotalExchanges) / elapsed
		s.ErrorRate = float64(s.Failures()) / elapsed
	}
}

// Snapshot returns a copy safe to hand to another goroutine
func (s *Statistics) Snapshot() Statistics {
	s.CalculateRates()
	return *s
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var passPercent, transferPercent float64
	if s.TotalExchanges > 0 {
		passPercent = float64(s.Passed) * 100.0 / float64(s.TotalExchanges)
		transferPercent = float64(s.TransferErrors) * 100.0 / float64(s.TotalExchanges)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Cycles:          %8d\n", s.Cycles)
	result += fmt.Sprintf("Exchanges:       %8d\n", s.TotalExchanges)
	result += fmt.Sprintf("Passed:          %8d (%.1f%%)\n", s.Passed, passPercent)
	if s.DigitalExchanges > 0 {
		result += fmt.Sprintf("  DI/DO:            %5d\n", s.DigitalExchanges)
	}

	if s.TransferErrors > 0 {
		result += fmt.Sprintf("Transfer Errors: %8d (%.1f%%)\n", s.TransferErrors, transferPercent)
	}
	if s.InvalidInputs > 0 {
		result += fmt.Sprintf("Invalid Input:   %8d\n", s.InvalidInputs)
	}
	if s.IdentityMismatches > 0 {
		result += fmt.Sprintf("Identity Errors: %8d\n", s.IdentityMismatches)
	}
	if s.LengthMismatches > 0 {
		result += fmt.Sprintf("Length Errors:   %8d\n", s.LengthMismatches)
	}
	if s.PayloadMismatches > 0 {
		result += fmt.Sprintf("Payload Errors:  %8d\n", s.PayloadMismatches)
	}

	result += fmt.Sprintf("Exchange Rate:   %8.1f xfers/sec\n", s.ExchangeRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
