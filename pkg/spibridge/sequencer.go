// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spibridge

import (
	"context"
	"errors"
	"fmt"
)

// Transport performs one blocking full-duplex exchange. rx has the same
// length as tx; the returned count is the number of bytes actually received.
type Transport interface {
	Transfer(tx, rx []byte) (int, error)
}

// ErrTransport wraps every failure reported by a Transport
var ErrTransport = errors.New("transport failure")

// Phase is the sequencer's run state
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseCycling
	PhaseAborted // terminal, reached only through a validation failure
	PhaseStopped // cycle budget exhausted or context cancelled
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "INITIALIZING"
	case PhaseCycling:
		return "CYCLING"
	case PhaseAborted:
		return "ABORTED"
	case PhaseStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("PHASE(%d)", int(p))
	}
}

// Exchange is a snapshot of one send/receive step, safe to retain
type Exchange struct {
	Iteration   uint64 // 1-based cycle the exchange belongs to
	Step        Step
	Sent        Frame
	Received    []byte
	ReceivedLen int
}

// Observer receives sequencer events. Calls are made synchronously from the
// goroutine running the sequencer.
type Observer interface {
	Sending(ex Exchange)
	Received(ex Exchange)
	TransferFailed(ex Exchange, err error)
	Validated(ex Exchange, verr *ValidationError)
	CycleComplete(iteration uint64, stats Statistics)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) Sending(Exchange)                     {}
func (NopObserver) Received(Exchange)                    {}
func (NopObserver) TransferFailed(Exchange, error)       {}
func (NopObserver) Validated(Exchange, *ValidationError) {}
func (NopObserver) CycleComplete(uint64, Statistics)     {}

// AbortError is returned by Run when a response fails validation
type AbortError struct {
	Exchange Exchange
	Err      *ValidationError
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("data validation failed: %s -> %s (iteration %d): %s",
		e.Exchange.Step.From, e.Exchange.Step.To, e.Exchange.Iteration, e.Err.Message)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// Sequencer drives the test cycle over a transport. It is not safe for
// concurrent use; it assumes exclusive ownership of the bus.
type Sequencer struct {
	transport Transport
	gen       *Generator
	plan      Plan
	pattern   Pattern
	observer  Observer

	phase     Phase
	iteration uint64
	steps     []Step
	frames    map[DeviceID]Frame
	rx        []byte
	stats     *Statistics
}

// NewSequencer creates a sequencer. A nil observer is replaced by NopObserver.
func NewSequencer(t Transport, gen *Generator, plan Plan, pattern Pattern, obs Observer) (*Sequencer, error) {
	if t == nil {
		return nil, fmt.Errorf("transport is nil")
	}
	if gen == nil {
		return nil, fmt.Errorf("generator is nil")
	}
	if err := plan.Validate(gen.FrameSize()); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	if obs == nil {
		obs = NopObserver{}
	}
	return &Sequencer{
		transport: t,
		gen:       gen,
		plan:      plan,
		pattern:   pattern,
		observer:  obs,
		phase:     PhaseInitializing,
		rx:        make([]byte, gen.FrameSize()),
		stats:     NewStatistics(),
	}, nil
}

// Phase returns the current run state
func (s *Sequencer) Phase() Phase {
	return s.phase
}

// Iteration returns the number of completed cycles
func (s *Sequencer) Iteration() uint64 {
	return s.iteration
}

// Statistics returns the live statistics of the run
func (s *Sequencer) Statistics() *Statistics {
	return s.stats
}

// Frame returns the current frame held for a device, or nil
func (s *Sequencer) Frame(id DeviceID) Frame {
	return s.frames[id]
}

// initialize builds every per-device frame for the plan
func (s *Sequencer) initialize() {
	s.steps = s.plan.Steps()
	s.frames = make(map[DeviceID]Frame, len(s.steps))
	for _, pair := range s.plan.Pairs {
		s.frames[pair.From] = s.gen.Build(pair, s.pattern)
	}
	for ch := 1; ch <= s.plan.DigitalChannels; ch++ {
		s.frames[DO(ch)] = s.gen.Fixed(DO(ch), nil)
		s.frames[DI(ch)] = s.gen.Fixed(DI(ch), nil)
	}
}

// Run cycles through the plan until cycles complete (0 means forever), ctx is
// cancelled, or a response fails validation. A validation failure moves the
// sequencer to PhaseAborted and returns an *AbortError; it cannot be resumed.
// Transport failures are reported to the observer and the cycle continues.
func (s *Sequencer) Run(ctx context.Context, cycles uint64) error {
	if s.phase == PhaseAborted {
		return fmt.Errorf("sequencer aborted")
	}
	if s.frames == nil {
		s.initialize()
	}
	s.phase = PhaseCycling

	for target := s.iteration + cycles; cycles == 0 || s.iteration < target; {
		for _, step := range s.steps {
			if err := ctx.Err(); err != nil {
				s.phase = PhaseStopped
				return err
			}

			ex, verr, err := s.SendAndReceive(step)
			if err != nil {
				continue
			}
			if verr != nil {
				s.phase = PhaseAborted
				return &AbortError{Exchange: ex, Err: verr}
			}
		}

		s.iteration++
		s.stats.Cycles = s.iteration
		s.observer.CycleComplete(s.iteration, s.stats.Snapshot())
	}

	s.phase = PhaseStopped
	return nil
}

// SendAndReceive runs one step: it applies the device's mutation rule to the
// held frame, then exchanges and validates it. The returned error is non-nil
// only for transport failures.
func (s *Sequencer) SendAndReceive(step Step) (Exchange, *ValidationError, error) {
	if s.frames == nil {
		s.initialize()
	}
	frame, ok := s.frames[step.From]
	if !ok {
		frame = s.gen.Fixed(step.From, nil)
		s.frames[step.From] = frame
	}

	if step.Digital {
		frame.SetState(step.State)
	} else {
		frame.Mutate()
	}

	return s.Transact(step, frame)
}

// Transact exchanges frame as-is and validates the response against
// step.To. The returned error is non-nil only for transport failures.
func (s *Sequencer) Transact(step Step, frame Frame) (Exchange, *ValidationError, error) {
	if len(s.rx) != len(frame) {
		s.rx = make([]byte, len(frame))
	}

	ex := Exchange{
		Iteration: s.iteration + 1,
		Step:      step,
		Sent:      frame.Clone(),
	}
	s.observer.Sending(ex)

	clear(s.rx)
	n, err := s.transport.Transfer(frame, s.rx)
	if err != nil {
		err = fmt.Errorf("%w: %s -> %s: %v", ErrTransport, step.From, step.To, err)
		s.stats.RecordTransferError()
		s.observer.TransferFailed(ex, err)
		return ex, nil, err
	}
	if n < 0 {
		n = 0
	}

	ex.Received = append([]byte(nil), s.rx...)
	ex.ReceivedLen = n
	s.observer.Received(ex)

	verr := Check(frame, s.rx, n, len(frame), step.To)
	s.stats.Record(step, verr)
	s.observer.Validated(ex, verr)
	return ex, verr, nil
}
