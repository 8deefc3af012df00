// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spibridge

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Pair is one step of the cycle: a frame sent from From is expected to be
// acknowledged by To. Payload is the literal used by the fixed pattern.
type Pair struct {
	From    DeviceID
	To      DeviceID
	Payload []byte
}

// Plan is the ordered list of steps the sequencer runs every cycle
type Plan struct {
	Pairs []Pair

	// DigitalChannels is the number of DO/DI channels in the polarity sweep.
	// Zero disables the sweep.
	DigitalChannels int
}

// DefaultPlan returns the bridge's standard cycle: RS485 1<->2 and 3<->4,
// RS232 1<->2, CAN 1<->2, then the DO/DI sweep over all channels
func DefaultPlan() Plan {
	return Plan{
		Pairs: []Pair{
			{From: DeviceRS485_1, To: DeviceRS485_2, Payload: []byte{0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}},
			{From: DeviceRS485_2, To: DeviceRS485_1, Payload: []byte{0x09, 0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02}},
			{From: DeviceRS485_3, To: DeviceRS485_4, Payload: []byte{0x40, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47}},
			{From: DeviceRS485_4, To: DeviceRS485_3, Payload: []byte{0x47, 0x46, 0x45, 0x44, 0x43, 0x42, 0x41, 0x40}},
			{From: DeviceRS232_1, To: DeviceRS232_2, Payload: []byte{0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27, 0x28}},
			{From: DeviceRS232_2, To: DeviceRS232_1, Payload: []byte{0x28, 0x27, 0x26, 0x25, 0x24, 0x23, 0x22, 0x21}},
			{From: DeviceCAN_1, To: DeviceCAN_2, Payload: []byte{0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18}},
			{From: DeviceCAN_2, To: DeviceCAN_1, Payload: []byte{0x18, 0x17, 0x16, 0x15, 0x14, 0x13, 0x12, 0x11}},
		},
		DigitalChannels: DigitalChannels,
	}
}

// Partner returns the expected responder for frames sent from id. Digital
// devices acknowledge with their own id.
func (p Plan) Partner(id DeviceID) (DeviceID, bool) {
	for _, pair := range p.Pairs {
		if pair.From == id {
			return pair.To, true
		}
	}
	if id.Class() == ClassDigital {
		return id, true
	}
	return DeviceUnknown, false
}

// Validate checks the plan against the registry and a frame size
func (p Plan) Validate(frameSize int) error {
	if len(p.Pairs) == 0 && p.DigitalChannels == 0 {
		return fmt.Errorf("plan has no pairs and no digital sweep")
	}
	for i, pair := range p.Pairs {
		if !pair.From.Valid() {
			return fmt.Errorf("pair %d: invalid sender 0x%02X", i, byte(pair.From))
		}
		if !pair.To.Valid() {
			return fmt.Errorf("pair %d: invalid responder 0x%02X", i, byte(pair.To))
		}
		if pair.From.Class() == ClassDigital {
			return fmt.Errorf("pair %d: digital device %s belongs in the sweep", i, pair.From)
		}
		if len(pair.Payload) > frameSize-1 {
			return fmt.Errorf("pair %d (%s->%s): payload is %d bytes, frame holds %d",
				i, pair.From, pair.To, len(pair.Payload), frameSize-1)
		}
	}
	if p.DigitalChannels < 0 || p.DigitalChannels > DigitalChannels {
		return fmt.Errorf("digital channels %d out of range (0-%d)", p.DigitalChannels, DigitalChannels)
	}
	return nil
}

// Steps expands the plan into one cycle of exchanges. Digital steps carry the
// state to write; the sweep asserts every DO and deasserts every DI, then
// runs again with the polarity reversed.
func (p Plan) Steps() []Step {
	steps := make([]Step, 0, len(p.Pairs)+4*p.DigitalChannels)
	for _, pair := range p.Pairs {
		steps = append(steps, Step{From: pair.From, To: pair.To})
	}
	for _, doState := range []byte{StateAsserted, StateDeasserted} {
		diState := doState ^ StateAsserted
		for ch := 1; ch <= p.DigitalChannels; ch++ {
			steps = append(steps,
				Step{From: DO(ch), To: DO(ch), Digital: true, State: doState},
				Step{From: DI(ch), To: DI(ch), Digital: true, State: diState},
			)
		}
	}
	return steps
}

// Step is one exchange within a cycle
type Step struct {
	From    DeviceID
	To      DeviceID
	Digital bool
	State   byte // digital state written before the transfer
}

// planFile is the on-disk TOML form of a Plan
type planFile struct {
	DigitalChannels *int `toml:"digital_channels"`
	Pairs           []struct {
		From    string `toml:"from"`
		To      string `toml:"to"`
		Payload []int  `toml:"payload"`
	} `toml:"pair"`
}

// LoadPlan reads a TOML plan file. Pairs listed in the file replace the
// default pairs; digital_channels overrides the sweep width when present.
//
//	digital_channels = 4
//
//	[[pair]]
//	from = "RS485_1"
//	to = "RS485_2"
//	payload = [0x02, 0x03, 0x04]
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("plan load failed (%s): %w", path, err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes a TOML plan document
func ParsePlan(data []byte) (Plan, error) {
	var pf planFile
	if _, err := toml.Decode(string(data), &pf); err != nil {
		return Plan{}, fmt.Errorf("plan parse failed: %w", err)
	}

	plan := DefaultPlan()
	if pf.DigitalChannels != nil {
		plan.DigitalChannels = *pf.DigitalChannels
	}
	if len(pf.Pairs) == 0 {
		return plan, nil
	}

	plan.Pairs = make([]Pair, 0, len(pf.Pairs))
	for i, raw := range pf.Pairs {
		from, err := ParseDevice(raw.From)
		if err != nil {
			return Plan{}, fmt.Errorf("pair %d: from: %w", i, err)
		}
		to, err := ParseDevice(raw.To)
		if err != nil {
			return Plan{}, fmt.Errorf("pair %d: to: %w", i, err)
		}
		payload := make([]byte, len(raw.Payload))
		for j, v := range raw.Payload {
			if v < 0 || v > 0xFF {
				return Plan{}, fmt.Errorf("pair %d: payload byte %d out of range: %d", i, j, v)
			}
			payload[j] = byte(v)
		}
		plan.Pairs = append(plan.Pairs, Pair{From: from, To: to, Payload: payload})
	}
	return plan, nil
}
