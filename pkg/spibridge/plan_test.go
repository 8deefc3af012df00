// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spibridge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultPlan_Order(t *testing.T) {
	plan := DefaultPlan()
	want := []struct{ from, to DeviceID }{
		{DeviceRS485_1, DeviceRS485_2},
		{DeviceRS485_2, DeviceRS485_1},
		{DeviceRS485_3, DeviceRS485_4},
		{DeviceRS485_4, DeviceRS485_3},
		{DeviceRS232_1, DeviceRS232_2},
		{DeviceRS232_2, DeviceRS232_1},
		{DeviceCAN_1, DeviceCAN_2},
		{DeviceCAN_2, DeviceCAN_1},
	}

	if len(plan.Pairs) != len(want) {
		t.Fatalf("plan has %d pairs, want %d", len(plan.Pairs), len(want))
	}
	for i, w := range want {
		p := plan.Pairs[i]
		if p.From != w.from || p.To != w.to {
			t.Errorf("pair %d = %s -> %s, want %s -> %s", i, p.From, p.To, w.from, w.to)
		}
		if len(p.Payload) != DefaultFrameSize-1 {
			t.Errorf("pair %d payload is %d bytes", i, len(p.Payload))
		}
	}
	if plan.DigitalChannels != DigitalChannels {
		t.Errorf("DigitalChannels = %d, want %d", plan.DigitalChannels, DigitalChannels)
	}
	if err := plan.Validate(DefaultFrameSize); err != nil {
		t.Errorf("default plan invalid: %v", err)
	}
}

func TestPlan_Steps(t *testing.T) {
	steps := DefaultPlan().Steps()
	if len(steps) != 8+4*DigitalChannels {
		t.Fatalf("got %d steps, want %d", len(steps), 8+4*DigitalChannels)
	}

	for i := 0; i < 8; i++ {
		if steps[i].Digital {
			t.Errorf("step %d should be a serial/CAN pair", i)
		}
	}

	// Pass A asserts DO and deasserts DI; pass B reverses the polarity
	sweep := steps[8:]
	for pass, doState := range []byte{StateAsserted, StateDeasserted} {
		for ch := 1; ch <= DigitalChannels; ch++ {
			idx := pass*2*DigitalChannels + (ch-1)*2
			do, di := sweep[idx], sweep[idx+1]

			if do.From != DO(ch) || do.To != DO(ch) || !do.Digital || do.State != doState {
				t.Errorf("pass %d ch %d: DO step = %+v", pass, ch, do)
			}
			if di.From != DI(ch) || di.To != DI(ch) || !di.Digital || di.State == doState {
				t.Errorf("pass %d ch %d: DI step = %+v", pass, ch, di)
			}
		}
	}
}

func TestPlan_Partner(t *testing.T) {
	plan := DefaultPlan()
	tests := []struct {
		from DeviceID
		want DeviceID
		ok   bool
	}{
		{DeviceRS485_1, DeviceRS485_2, true},
		{DeviceRS232_1, DeviceRS232_2, true},
		{DeviceCAN_2, DeviceCAN_1, true},
		{DO(4), DO(4), true},
		{DI(7), DI(7), true},
		{DeviceUnknown, DeviceUnknown, false},
	}
	for _, tt := range tests {
		got, ok := plan.Partner(tt.from)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Partner(%s) = %s, %v; want %s, %v", tt.from, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPlan_Validate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		size    int
		wantErr string
	}{
		{
			name:    "empty",
			plan:    Plan{},
			size:    DefaultFrameSize,
			wantErr: "no pairs",
		},
		{
			name:    "unknown sender",
			plan:    Plan{Pairs: []Pair{{From: 0x00, To: DeviceRS485_2}}},
			size:    DefaultFrameSize,
			wantErr: "invalid sender",
		},
		{
			name:    "responder out of range",
			plan:    Plan{Pairs: []Pair{{From: DeviceRS485_1, To: 0x40}}},
			size:    DefaultFrameSize,
			wantErr: "invalid responder",
		},
		{
			name:    "digital pair",
			plan:    Plan{Pairs: []Pair{{From: DO(1), To: DI(1)}}},
			size:    DefaultFrameSize,
			wantErr: "sweep",
		},
		{
			name:    "payload too long",
			plan:    DefaultPlan(),
			size:    4,
			wantErr: "payload is 8 bytes",
		},
		{
			name:    "too many channels",
			plan:    Plan{DigitalChannels: 11},
			size:    DefaultFrameSize,
			wantErr: "out of range",
		},
		{
			name: "sweep only",
			plan: Plan{DigitalChannels: 2},
			size: DefaultFrameSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate(tt.size)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParsePlan(t *testing.T) {
	doc := `
digital_channels = 3

[[pair]]
from = "CAN_1"
to = "CAN_2"
payload = [0x11, 0x12, 0x13]

[[pair]]
from = "0x02"
to = "rs485_1"
`
	plan, err := ParsePlan([]byte(doc))
	if err != nil {
		t.Fatalf("ParsePlan failed: %v", err)
	}
	if plan.DigitalChannels != 3 {
		t.Errorf("DigitalChannels = %d, want 3", plan.DigitalChannels)
	}
	if len(plan.Pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(plan.Pairs))
	}
	if p := plan.Pairs[0]; p.From != DeviceCAN_1 || p.To != DeviceCAN_2 || string(p.Payload) != "\x11\x12\x13" {
		t.Errorf("pair 0 = %+v", p)
	}
	if p := plan.Pairs[1]; p.From != DeviceRS485_2 || p.To != DeviceRS485_1 || len(p.Payload) != 0 {
		t.Errorf("pair 1 = %+v", p)
	}
}

func TestParsePlan_KeepsDefaults(t *testing.T) {
	plan, err := ParsePlan([]byte("digital_channels = 0\n"))
	if err != nil {
		t.Fatalf("ParsePlan failed: %v", err)
	}
	if len(plan.Pairs) != len(DefaultPlan().Pairs) {
		t.Errorf("got %d pairs, want the default %d", len(plan.Pairs), len(DefaultPlan().Pairs))
	}
	if plan.DigitalChannels != 0 {
		t.Errorf("DigitalChannels = %d, want 0", plan.DigitalChannels)
	}
}

func TestParsePlan_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"syntax", "[[pair]\n"},
		{"unknown device", "[[pair]]\nfrom = \"SPI_9\"\nto = \"CAN_1\"\n"},
		{"payload range", "[[pair]]\nfrom = \"CAN_1\"\nto = \"CAN_2\"\npayload = [256]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePlan([]byte(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.toml")
	if err := os.WriteFile(path, []byte("[[pair]]\nfrom = \"RS232_1\"\nto = \"RS232_2\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	plan, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan failed: %v", err)
	}
	if len(plan.Pairs) != 1 || plan.Pairs[0].From != DeviceRS232_1 {
		t.Errorf("plan = %+v", plan)
	}

	if _, err := LoadPlan(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file should fail")
	}
}
