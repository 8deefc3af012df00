// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spibridge

import "fmt"

// Frame is one SPI transaction worth of data: byte 0 is the source device id,
// the rest is payload
type Frame []byte

// NewFrame allocates a zeroed frame of the given size with the source id set
func NewFrame(id DeviceID, size int) (Frame, error) {
	if size < MinFrameSize || size > MaxFrameSize {
		return nil, fmt.Errorf("frame size %d out of range (%d-%d)", size, MinFrameSize, MaxFrameSize)
	}
	f := make(Frame, size)
	f[0] = byte(id)
	return f, nil
}

// NewFrameWithPayload builds a frame of the given size from a payload.
// The payload is truncated to fit; missing bytes stay zero.
func NewFrameWithPayload(id DeviceID, size int, payload []byte) (Frame, error) {
	f, err := NewFrame(id, size)
	if err != nil {
		return nil, err
	}
	copy(f[1:], payload)
	return f, nil
}

// Source returns the device id in byte 0
func (f Frame) Source() DeviceID {
	if len(f) == 0 {
		return DeviceUnknown
	}
	return DeviceID(f[0])
}

// Payload returns the bytes after the device id
func (f Frame) Payload() []byte {
	if len(f) < 2 {
		return nil
	}
	return f[1:]
}

// Clone returns a copy of the frame
func (f Frame) Clone() Frame {
	c := make(Frame, len(f))
	copy(c, f)
	return c
}

// NextCounter returns the successor of a payload counter byte. Values cycle
// through 1..255; zero is never produced.
func NextCounter(v byte) byte {
	if v == 0xFF {
		return 1
	}
	return v + 1
}

// Mutate applies the between-iteration change for the frame's device class.
// Serial and CAN frames advance payload byte 1 with NextCounter. Digital
// frames are left untouched; their state is written with SetState.
func (f Frame) Mutate() {
	if len(f) < 2 || f.Source().Class() == ClassDigital {
		return
	}
	f[1] = NextCounter(f[1])
}

// SetState writes a digital on/off state into every payload byte
func (f Frame) SetState(state byte) {
	for i := 1; i < len(f); i++ {
		f[i] = state
	}
}
