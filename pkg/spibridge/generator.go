// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spibridge

import (
	"fmt"
	"math/rand"
	"time"
)

// Pattern selects how initial payloads are produced
type Pattern int

// Payload patterns
const (
	PatternFixed Pattern = iota
	PatternRandom
)

// String returns the pattern name used on the command line
func (p Pattern) String() string {
	switch p {
	case PatternFixed:
		return "fixed"
	case PatternRandom:
		return "random"
	default:
		return fmt.Sprintf("pattern(%d)", int(p))
	}
}

// ParsePattern parses "fixed" or "random"
func ParsePattern(s string) (Pattern, error) {
	switch s {
	case "fixed":
		return PatternFixed, nil
	case "random":
		return PatternRandom, nil
	default:
		return 0, fmt.Errorf("unknown pattern %q (use fixed or random)", s)
	}
}

// Generator builds test frames. A single random source is seeded once and
// shared by every frame it fills.
type Generator struct {
	rng       *rand.Rand
	seed      int64
	frameSize int
}

// NewGenerator creates a generator for frames of frameSize bytes.
// A seed of 0 selects a time-based seed; Seed reports the one in use.
func NewGenerator(seed int64, frameSize int) (*Generator, error) {
	if frameSize < MinFrameSize || frameSize > MaxFrameSize {
		return nil, fmt.Errorf("frame size %d out of range (%d-%d)", frameSize, MinFrameSize, MaxFrameSize)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng:       rand.New(rand.NewSource(seed)),
		seed:      seed,
		frameSize: frameSize,
	}, nil
}

// Seed returns the seed of the random source
func (g *Generator) Seed() int64 {
	return g.seed
}

// FrameSize returns the size of generated frames
func (g *Generator) FrameSize() int {
	return g.frameSize
}

// Fill overwrites f with a random frame from id: byte 0 is the id and every
// payload byte is uniform in [1, 255]
func (g *Generator) Fill(f Frame, id DeviceID) {
	if len(f) == 0 {
		return
	}
	f[0] = byte(id)
	for i := 1; i < len(f); i++ {
		f[i] = byte(g.rng.Intn(255) + 1)
	}
}

// Random returns a new random frame from id
func (g *Generator) Random(id DeviceID) Frame {
	f := make(Frame, g.frameSize)
	g.Fill(f, id)
	return f
}

// Fixed returns a frame from id carrying the given literal payload
func (g *Generator) Fixed(id DeviceID, payload []byte) Frame {
	f := make(Frame, g.frameSize)
	f[0] = byte(id)
	copy(f[1:], payload)
	return f
}

// Build returns the initial frame for a pair under the given pattern.
// Random frames ignore the pair's literal payload.
func (g *Generator) Build(pair Pair, pattern Pattern) Frame {
	if pattern == PatternRandom {
		return g.Random(pair.From)
	}
	return g.Fixed(pair.From, pair.Payload)
}
