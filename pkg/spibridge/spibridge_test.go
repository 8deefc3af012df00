// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package spibridge

import (
	"strings"
	"testing"
)

// ============================================================
// Test Helpers
// ============================================================

// echo returns the bridge's acknowledgement for sent: the responder id
// followed by the sent payload
func echo(sent []byte, responder DeviceID) []byte {
	rx := make([]byte, len(sent))
	copy(rx, sent)
	rx[0] = byte(responder)
	return rx
}

// ============================================================
// Device Registry Tests
// ============================================================

func TestName_Registry(t *testing.T) {
	tests := []struct {
		id   DeviceID
		name string
	}{
		{DeviceUnknown, "Unknown"},
		{DeviceRS485_1, "RS485_1"},
		{DeviceRS485_4, "RS485_4"},
		{DeviceRS232_1, "RS232_1"},
		{DeviceRS232_2, "RS232_2"},
		{DeviceCAN_1, "CAN_1"},
		{DeviceCAN_2, "CAN_2"},
		{DeviceDI, "DI"},
		{DeviceDO, "DO"},
		{DeviceDO_1, "DO_1"},
		{0x14, "DO_10"},
		{DeviceDI_1, "DI_1"},
		{0x1E, "DI_10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Name(tt.id); got != tt.name {
				t.Errorf("Name(0x%02X) = %q, want %q", byte(tt.id), got, tt.name)
			}
		})
	}
}

func TestName_OutOfRange(t *testing.T) {
	for _, id := range []DeviceID{0x1F, 0x20, 0x7F, 0xFF} {
		if got := Name(id); got != "Unknown" {
			t.Errorf("Name(0x%02X) = %q, want Unknown", byte(id), got)
		}
		if id.Valid() {
			t.Errorf("0x%02X should not be valid", byte(id))
		}
	}
}

func TestMaxDeviceID(t *testing.T) {
	if MaxDeviceID != 0x1E {
		t.Errorf("MaxDeviceID = 0x%02X, want 0x1E", byte(MaxDeviceID))
	}
}

func TestDeviceClass(t *testing.T) {
	tests := []struct {
		id    DeviceID
		class Class
	}{
		{DeviceUnknown, ClassUnknown},
		{DeviceRS485_1, ClassRS485},
		{DeviceRS485_4, ClassRS485},
		{DeviceRS232_1, ClassRS232},
		{DeviceRS232_2, ClassRS232},
		{DeviceCAN_1, ClassCAN},
		{DeviceCAN_2, ClassCAN},
		{DeviceDI, ClassDigital},
		{DeviceDO, ClassDigital},
		{DO(5), ClassDigital},
		{DI(10), ClassDigital},
		{0x1F, ClassUnknown},
	}

	for _, tt := range tests {
		if got := tt.id.Class(); got != tt.class {
			t.Errorf("0x%02X.Class() = %s, want %s", byte(tt.id), got, tt.class)
		}
	}
}

func TestDigitalChannelIDs(t *testing.T) {
	for ch := 1; ch <= DigitalChannels; ch++ {
		if got, want := DO(ch), DeviceDO_1+DeviceID(ch-1); got != want {
			t.Errorf("DO(%d) = 0x%02X, want 0x%02X", ch, byte(got), byte(want))
		}
		if got, want := DI(ch), DeviceDI_1+DeviceID(ch-1); got != want {
			t.Errorf("DI(%d) = 0x%02X, want 0x%02X", ch, byte(got), byte(want))
		}
	}
	if DO(DigitalChannels) != 0x14 || DI(DigitalChannels) != 0x1E {
		t.Errorf("channel 10 ids: DO=0x%02X DI=0x%02X", byte(DO(10)), byte(DI(10)))
	}
}

func TestParseDevice(t *testing.T) {
	tests := []struct {
		input   string
		want    DeviceID
		wantErr bool
	}{
		{"RS485_1", DeviceRS485_1, false},
		{"can_2", DeviceCAN_2, false},
		{" DI_10 ", 0x1E, false},
		{"0x07", DeviceCAN_1, false},
		{"11", DeviceDO_1, false},
		{"Unknown", 0, true},
		{"0", 0, true},
		{"0x1F", 0, true},
		{"7abc", 0, true},
		{"", 0, true},
		{"RS485_9", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDevice(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseDevice(%q) = %s, expected error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDevice(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDevice(%q) = 0x%02X, want 0x%02X", tt.input, byte(got), byte(tt.want))
			}
		})
	}
}

func TestDevices(t *testing.T) {
	ids := Devices()
	if len(ids) != int(MaxDeviceID) {
		t.Fatalf("Devices() returned %d ids, want %d", len(ids), MaxDeviceID)
	}
	for i, id := range ids {
		if id != DeviceID(i+1) {
			t.Errorf("Devices()[%d] = 0x%02X, want 0x%02X", i, byte(id), i+1)
		}
	}
}

// ============================================================
// Frame Tests
// ============================================================

func TestNewFrame(t *testing.T) {
	f, err := NewFrame(DeviceCAN_1, DefaultFrameSize)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	if len(f) != DefaultFrameSize {
		t.Errorf("len = %d, want %d", len(f), DefaultFrameSize)
	}
	if f.Source() != DeviceCAN_1 {
		t.Errorf("Source() = %s, want CAN_1", f.Source())
	}
	for i, b := range f.Payload() {
		if b != 0 {
			t.Errorf("payload[%d] = 0x%02X, want 0", i, b)
		}
	}

	for _, size := range []int{0, 1, MaxFrameSize + 1} {
		if _, err := NewFrame(DeviceCAN_1, size); err == nil {
			t.Errorf("NewFrame size %d should fail", size)
		}
	}
}

func TestNewFrameWithPayload_Truncates(t *testing.T) {
	f, err := NewFrameWithPayload(DeviceRS232_1, 4, []byte{0xA1, 0xA2, 0xA3, 0xA4, 0xA5})
	if err != nil {
		t.Fatalf("NewFrameWithPayload failed: %v", err)
	}
	want := []byte{0x05, 0xA1, 0xA2, 0xA3}
	if string(f) != string(want) {
		t.Errorf("frame = %s, want %s", FormatHex(f), FormatHex(want))
	}
}

func TestFrame_Clone(t *testing.T) {
	f := Frame{0x01, 0x02, 0x03}
	c := f.Clone()
	c[1] = 0xFF
	if f[1] != 0x02 {
		t.Error("Clone shares storage with the original")
	}
}

func TestNextCounter(t *testing.T) {
	tests := []struct {
		in, want byte
	}{
		{0x01, 0x02},
		{0x7F, 0x80},
		{0xFE, 0xFF},
		{0xFF, 0x01},
		{0x00, 0x01},
	}
	for _, tt := range tests {
		if got := NextCounter(tt.in); got != tt.want {
			t.Errorf("NextCounter(0x%02X) = 0x%02X, want 0x%02X", tt.in, got, tt.want)
		}
	}
}

func TestFrame_Mutate(t *testing.T) {
	t.Run("serial advances byte 1 only", func(t *testing.T) {
		f := Frame{byte(DeviceRS485_1), 0x02, 0x03, 0x04}
		f.Mutate()
		want := Frame{byte(DeviceRS485_1), 0x03, 0x03, 0x04}
		if string(f) != string(want) {
			t.Errorf("frame = %s, want %s", FormatHex(f), FormatHex(want))
		}
	})

	t.Run("CAN wraps to 1", func(t *testing.T) {
		f := Frame{byte(DeviceCAN_2), 0xFF, 0x17}
		f.Mutate()
		if f[1] != 0x01 {
			t.Errorf("byte 1 = 0x%02X, want 0x01", f[1])
		}
	})

	t.Run("digital untouched", func(t *testing.T) {
		f := Frame{byte(DO(3)), 0x01, 0x01}
		f.Mutate()
		if f[1] != 0x01 || f[2] != 0x01 {
			t.Errorf("digital frame changed: %s", FormatHex(f))
		}
	})

	t.Run("id only", func(t *testing.T) {
		f := Frame{byte(DeviceRS232_1)}
		f.Mutate()
		if len(f) != 1 || f[0] != byte(DeviceRS232_1) {
			t.Errorf("frame changed: %s", FormatHex(f))
		}
	})
}

func TestFrame_SetState(t *testing.T) {
	f := Frame{byte(DI(2)), 0x55, 0x66, 0x77}
	f.SetState(StateAsserted)
	for i := 1; i < len(f); i++ {
		if f[i] != StateAsserted {
			t.Errorf("byte %d = 0x%02X, want 0x01", i, f[i])
		}
	}
	f.SetState(StateDeasserted)
	for i := 1; i < len(f); i++ {
		if f[i] != StateDeasserted {
			t.Errorf("byte %d = 0x%02X, want 0x00", i, f[i])
		}
	}
	if f[0] != byte(DI(2)) {
		t.Errorf("SetState overwrote the id: 0x%02X", f[0])
	}
}

// ============================================================
// Generator Tests
// ============================================================

func TestNewGenerator(t *testing.T) {
	g, err := NewGenerator(42, DefaultFrameSize)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}
	if g.Seed() != 42 {
		t.Errorf("Seed() = %d, want 42", g.Seed())
	}
	if g.FrameSize() != DefaultFrameSize {
		t.Errorf("FrameSize() = %d, want %d", g.FrameSize(), DefaultFrameSize)
	}

	g, err = NewGenerator(0, DefaultFrameSize)
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}
	if g.Seed() == 0 {
		t.Error("zero seed should be replaced with a time based seed")
	}

	if _, err := NewGenerator(1, 1); err == nil {
		t.Error("frame size 1 should be rejected")
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	a, _ := NewGenerator(1234, DefaultFrameSize)
	b, _ := NewGenerator(1234, DefaultFrameSize)
	for i := 0; i < 10; i++ {
		fa, fb := a.Random(DeviceRS485_1), b.Random(DeviceRS485_1)
		if string(fa) != string(fb) {
			t.Fatalf("frame %d differs for equal seeds: %s vs %s", i, FormatHex(fa), FormatHex(fb))
		}
	}
}

func TestGenerator_SingleSource(t *testing.T) {
	g, _ := NewGenerator(99, 32)
	first := g.Random(DeviceCAN_1)
	second := g.Random(DeviceCAN_1)
	if string(first) == string(second) {
		t.Error("consecutive frames are identical; generator appears to reseed per call")
	}
}

func TestGenerator_Fixed(t *testing.T) {
	g, _ := NewGenerator(1, DefaultFrameSize)
	f := g.Fixed(DeviceRS232_2, []byte{0x28, 0x27})
	want := Frame{0x06, 0x28, 0x27, 0, 0, 0, 0, 0, 0}
	if string(f) != string(want) {
		t.Errorf("Fixed = %s, want %s", FormatHex(f), FormatHex(want))
	}
}

func TestGenerator_Build(t *testing.T) {
	g, _ := NewGenerator(1, DefaultFrameSize)
	pair := DefaultPlan().Pairs[0]

	fixed := g.Build(pair, PatternFixed)
	want := Frame{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}
	if string(fixed) != string(want) {
		t.Errorf("fixed = %s, want %s", FormatHex(fixed), FormatHex(want))
	}

	random := g.Build(pair, PatternRandom)
	if random.Source() != pair.From {
		t.Errorf("random source = %s, want %s", random.Source(), pair.From)
	}
	for i, b := range random.Payload() {
		if b == 0 {
			t.Errorf("random payload[%d] is zero", i)
		}
	}
}

func TestParsePattern(t *testing.T) {
	for _, p := range []Pattern{PatternFixed, PatternRandom} {
		got, err := ParsePattern(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePattern(%q) = %v, %v", p.String(), got, err)
		}
	}
	if _, err := ParsePattern("walking"); err == nil {
		t.Error("unknown pattern should be rejected")
	}
}

// ============================================================
// Validator Tests
// ============================================================

func TestValidate_Scenarios(t *testing.T) {
	rs485 := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}
	canSent := []byte{0x07, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x00}
	canEcho := []byte{0x08, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0xAB}

	tests := []struct {
		name        string
		sent        []byte
		received    []byte
		receivedLen int
		expectedLen int
		expected    DeviceID
		want        Outcome
	}{
		{
			name:        "RS485 echo from partner",
			sent:        rs485,
			received:    []byte{0x02, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09},
			receivedLen: 9, expectedLen: 9, expected: DeviceRS485_2,
			want: OutcomePass,
		},
		{
			name:        "RS485 short response",
			sent:        rs485,
			received:    []byte{0x02, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09},
			receivedLen: 8, expectedLen: 9, expected: DeviceRS485_2,
			want: OutcomeLengthMismatch,
		},
		{
			name:        "CAN ignores bytes past 8",
			sent:        canSent,
			received:    canEcho,
			receivedLen: 10, expectedLen: 10, expected: DeviceCAN_2,
			want: OutcomePass,
		},
		{
			name:        "truncated echo with matching prefix",
			sent:        rs485,
			received:    []byte{0x02, 0x02, 0x03, 0x04, 0x05},
			receivedLen: 5, expectedLen: 9, expected: DeviceRS485_2,
			want: OutcomeLengthMismatch,
		},
		{
			name:        "wrong responder with perfect payload",
			sent:        rs485,
			received:    echo(rs485, DeviceRS485_3),
			receivedLen: 9, expectedLen: 9, expected: DeviceRS485_2,
			want: OutcomeIdentityMismatch,
		},
		{
			name:        "wrong responder and wrong length",
			sent:        rs485,
			received:    echo(rs485, DeviceRS485_3),
			receivedLen: 3, expectedLen: 9, expected: DeviceRS485_2,
			want: OutcomeIdentityMismatch,
		},
		{
			name:        "last payload byte differs",
			sent:        rs485,
			received:    []byte{0x02, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x0A},
			receivedLen: 9, expectedLen: 9, expected: DeviceRS485_2,
			want: OutcomePayloadMismatch,
		},
		{
			name:        "CAN difference inside 8 bytes",
			sent:        canSent,
			received:    []byte{0x08, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x19, 0x00},
			receivedLen: 10, expectedLen: 10, expected: DeviceCAN_2,
			want: OutcomePayloadMismatch,
		},
		{
			name:        "nothing received",
			sent:        rs485,
			received:    make([]byte, 9),
			receivedLen: 0, expectedLen: 9, expected: DeviceRS485_2,
			want: OutcomeIdentityMismatch,
		},
		{
			name:        "over long response",
			sent:        rs485,
			received:    echo(rs485, DeviceRS485_2),
			receivedLen: 12, expectedLen: 9, expected: DeviceRS485_2,
			want: OutcomeLengthMismatch,
		},
		{
			name:        "nil sent",
			sent:        nil,
			received:    rs485,
			receivedLen: 9, expectedLen: 9, expected: DeviceRS485_2,
			want: OutcomeInvalidInput,
		},
		{
			name:        "nil received",
			sent:        rs485,
			received:    nil,
			receivedLen: 9, expectedLen: 9, expected: DeviceRS485_2,
			want: OutcomeInvalidInput,
		},
		{
			name:        "zero expected length",
			sent:        rs485,
			received:    echo(rs485, DeviceRS485_2),
			receivedLen: 9, expectedLen: 0, expected: DeviceRS485_2,
			want: OutcomeInvalidInput,
		},
		{
			name:        "sent shorter than expected",
			sent:        rs485[:4],
			received:    echo(rs485, DeviceRS485_2),
			receivedLen: 9, expectedLen: 9, expected: DeviceRS485_2,
			want: OutcomeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.sent, tt.received, tt.receivedLen, tt.expectedLen, tt.expected)
			if got != tt.want {
				t.Errorf("Validate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCheck_Messages(t *testing.T) {
	sent := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}

	verr := Check(sent, echo(sent, DeviceRS485_4), 9, 9, DeviceRS485_2)
	if verr == nil {
		t.Fatal("expected identity mismatch")
	}
	if !strings.Contains(verr.Message, "Expected: 02, but got: 04") {
		t.Errorf("message = %q", verr.Message)
	}

	rx := echo(sent, DeviceRS485_2)
	rx[4] = 0xEE
	verr = Check(sent, rx, 9, 9, DeviceRS485_2)
	if verr == nil || verr.Outcome != OutcomePayloadMismatch {
		t.Fatalf("expected payload mismatch, got %v", verr)
	}
	if verr.Details["offset"] != 4 {
		t.Errorf("offset = %v, want 4", verr.Details["offset"])
	}
	if verr.Error() != verr.Message {
		t.Errorf("Error() = %q, want message", verr.Error())
	}
}

func TestCheck_Pure(t *testing.T) {
	sent := []byte{0x07, 0x11, 0x12, 0x13}
	rx := []byte{0x08, 0x11, 0x12, 0x13}
	sentCopy := append([]byte(nil), sent...)
	rxCopy := append([]byte(nil), rx...)

	for i := 0; i < 3; i++ {
		if got := Validate(sent, rx, 4, 4, DeviceCAN_2); got != OutcomePass {
			t.Fatalf("call %d = %s, want PASS", i, got)
		}
	}
	if string(sent) != string(sentCopy) || string(rx) != string(rxCopy) {
		t.Error("Validate modified its inputs")
	}
}

func TestComparedBytes(t *testing.T) {
	tests := []struct {
		sender DeviceID
		n      int
		want   int
	}{
		{DeviceRS485_1, 9, 8},
		{DeviceRS485_1, 20, 19},
		{DeviceCAN_1, 9, 8},
		{DeviceCAN_1, 20, 8},
		{DeviceCAN_2, 5, 4},
		{DO(1), 9, 8},
	}
	for _, tt := range tests {
		if got := comparedBytes(tt.sender, tt.n); got != tt.want {
			t.Errorf("comparedBytes(%s, %d) = %d, want %d", tt.sender, tt.n, got, tt.want)
		}
	}
}

// ============================================================
// Formatter Tests
// ============================================================

func TestFormatHex(t *testing.T) {
	if got := FormatHex([]byte{0x01, 0xAB, 0x00}); got != "01 AB 00" {
		t.Errorf("FormatHex = %q", got)
	}
	if got := FormatHex(nil); got != "" {
		t.Errorf("FormatHex(nil) = %q", got)
	}

	long := make([]byte, 17)
	if lines := strings.Split(FormatHex(long), "\n"); len(lines) != 2 {
		t.Errorf("17 bytes should wrap to 2 lines, got %d", len(lines))
	}
}

func TestFormatStep(t *testing.T) {
	if got := FormatStep(Step{From: DeviceCAN_1, To: DeviceCAN_2}); got != "CAN_1 -> CAN_2" {
		t.Errorf("FormatStep = %q", got)
	}
	got := FormatStep(Step{From: DO(2), To: DO(2), Digital: true, State: StateAsserted})
	if got != "DO_2 -> DO_2 [ON]" {
		t.Errorf("FormatStep digital = %q", got)
	}
}

func TestFormatDevice(t *testing.T) {
	if got := FormatDevice(DeviceRS232_2); got != "RS232_2 (0x06)" {
		t.Errorf("FormatDevice = %q", got)
	}
}

// ============================================================
// Statistics Tests
// ============================================================

func TestStatistics_Record(t *testing.T) {
	s := NewStatistics()
	serial := Step{From: DeviceRS485_1, To: DeviceRS485_2}
	digital := Step{From: DO(1), To: DO(1), Digital: true}

	s.Record(serial, nil)
	s.Record(digital, nil)
	s.Record(serial, &ValidationError{Outcome: OutcomePayloadMismatch})
	s.Record(serial, &ValidationError{Outcome: OutcomeIdentityMismatch})
	s.Record(serial, &ValidationError{Outcome: OutcomeLengthMismatch})
	s.Record(serial, &ValidationError{Outcome: OutcomeInvalidInput})
	s.RecordTransferError()

	if s.TotalExchanges != 7 {
		t.Errorf("TotalExchanges = %d, want 7", s.TotalExchanges)
	}
	if s.Passed != 2 {
		t.Errorf("Passed = %d, want 2", s.Passed)
	}
	if s.DigitalExchanges != 1 {
		t.Errorf("DigitalExchanges = %d, want 1", s.DigitalExchanges)
	}
	if s.Failures() != 5 {
		t.Errorf("Failures() = %d, want 5", s.Failures())
	}

	out := s.String()
	for _, want := range []string{"=== Statistics", "Transfer Errors:", "Payload Errors:", "Identity Errors:"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}

	s.Reset()
	if s.TotalExchanges != 0 || s.Failures() != 0 {
		t.Error("Reset did not clear counters")
	}
}

func TestStatistics_Snapshot(t *testing.T) {
	s := NewStatistics()
	s.Record(Step{}, nil)
	snap := s.Snapshot()
	s.Record(Step{}, nil)
	if snap.TotalExchanges != 1 {
		t.Errorf("snapshot changed with the live statistics: %d", snap.TotalExchanges)
	}
}
