package usbmidi

import (
	"bytes"
	"testing"

	"gitlab.com/gomidi/midi/v2"
)

// =============================================================================
// CIN Tests
// =============================================================================

func TestCIN_String(t *testing.T) {
	tests := []struct {
		cin      CIN
		expected string
	}{
		{CINMisc, "Misc"},
		{CINSysExStart, "SysExStart"},
		{CINNoteOff, "NoteOff"},
		{CINNoteOn, "NoteOn"},
		{CINControlChange, "ControlChange"},
		{CINPitchBend, "PitchBend"},
		{CINSingleByte, "SingleByte"},
		{CIN(0x10), "Unknown CIN (16)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.cin.String(); got != tt.expected {
				t.Errorf("CIN.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCIN_Size(t *testing.T) {
	expected := [16]int{0, 0, 2, 3, 3, 1, 2, 3, 3, 3, 3, 3, 2, 2, 3, 1}

	for cin, want := range expected {
		if got := CIN(cin).Size(); got != want {
			t.Errorf("CIN(0x%X).Size() = %d, want %d", cin, got, want)
		}
	}
}

// =============================================================================
// Packet Tests
// =============================================================================

func TestPacket_Fields(t *testing.T) {
	p := Packet{0x19, 0x93, 60, 100}

	if got := p.Cable(); got != 1 {
		t.Errorf("Cable() = %d, want 1", got)
	}
	if got := p.CIN(); got != CINNoteOn {
		t.Errorf("CIN() = %v, want NoteOn", got)
	}
	if got := p.Status(); got != 0x93 {
		t.Errorf("Status() = 0x%02X, want 0x93", got)
	}
	if got := p.Channel(); got != 3 {
		t.Errorf("Channel() = %d, want 3", got)
	}
	if got := p.Key(); got != 60 {
		t.Errorf("Key() = %d, want 60", got)
	}
	if got := p.Velocity(); got != 100 {
		t.Errorf("Velocity() = %d, want 100", got)
	}
	if !p.IsNoteOn() {
		t.Error("IsNoteOn() = false, want true")
	}
}

func TestPacket_IsNoteOn(t *testing.T) {
	tests := []struct {
		name     string
		packet   Packet
		expected bool
	}{
		{"NoteOn", Packet{0x09, 0x90, 60, 100}, true},
		{"NoteOnZeroVelocity", Packet{0x09, 0x90, 60, 0}, true},
		{"NoteOnOtherCable", Packet{0xF9, 0x90, 60, 100}, true},
		{"NoteOff", Packet{0x08, 0x80, 60, 0}, false},
		{"ControlChange", Packet{0x0B, 0xB0, 7, 100}, false},
		// Classification is by CIN alone
		{"StatusWithoutCIN", Packet{0x08, 0x90, 60, 100}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.packet.IsNoteOn(); got != tt.expected {
				t.Errorf("IsNoteOn() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPacket_Message(t *testing.T) {
	p := Packet{0x09, 0x91, 69, 90}
	msg := p.Message()

	var ch, key, vel uint8
	if !msg.GetNoteStart(&ch, &key, &vel) {
		t.Fatalf("Message() = %v, not a note start", msg)
	}
	if ch != 1 || key != 69 || vel != 90 {
		t.Errorf("note = ch %d key %d vel %d, want 1 69 90", ch, key, vel)
	}

	if got := (Packet{0x0C, 0xC0, 5, 0}).Message(); !bytes.Equal(got, []byte{0xC0, 5}) {
		t.Errorf("program change Message() = % X, want C0 05", got)
	}
	if got := (Packet{0x00, 0x90, 60, 100}).Message(); got != nil {
		t.Errorf("reserved CIN Message() = % X, want nil", got)
	}
}

func TestParsePacket(t *testing.T) {
	var p Packet
	if !ParsePacket([]byte{0x09, 0x90, 60, 100, 0xFF}, &p) {
		t.Fatal("ParsePacket returned false")
	}
	if p != (Packet{0x09, 0x90, 60, 100}) {
		t.Errorf("ParsePacket() = % X", p[:])
	}
	if ParsePacket([]byte{0x09, 0x90, 60}, &p) {
		t.Error("ParsePacket should return false for short data")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected []Packet
	}{
		{"Empty", nil, nil},
		{"Partial", []byte{0x09, 0x90, 60}, nil},
		{
			"Two",
			[]byte{0x09, 0x90, 60, 100, 0x08, 0x80, 60, 0},
			[]Packet{{0x09, 0x90, 60, 100}, {0x08, 0x80, 60, 0}},
		},
		{
			"TrailingBytes",
			[]byte{0x09, 0x90, 21, 1, 0x09, 0x90, 108, 1, 0x09, 0x90},
			[]Packet{{0x09, 0x90, 21, 1}, {0x09, 0x90, 108, 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []Packet
			n := Decode(tt.data, func(p Packet) { got = append(got, p) })

			if n != len(tt.expected) || len(got) != len(tt.expected) {
				t.Fatalf("Decode() visited %d (n=%d), want %d", len(got), n, len(tt.expected))
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("packet %d = % X, want % X", i, got[i][:], tt.expected[i][:])
				}
			}
		})
	}
}

func TestPacketFromMessage(t *testing.T) {
	tests := []struct {
		name     string
		cable    uint8
		msg      midi.Message
		expected Packet
		ok       bool
	}{
		{"NoteOn", 0, midi.NoteOn(0, 60, 100), Packet{0x09, 0x90, 60, 100}, true},
		{"NoteOnCable2", 2, midi.NoteOn(5, 69, 1), Packet{0x29, 0x95, 69, 1}, true},
		{"NoteOff", 0, midi.Message{0x80, 60, 0}, Packet{0x08, 0x80, 60, 0}, true},
		{"ControlChange", 0, midi.ControlChange(1, 7, 100), Packet{0x0B, 0xB1, 7, 100}, true},
		{"ProgramChange", 0, midi.ProgramChange(0, 5), Packet{0x0C, 0xC0, 5, 0}, true},
		{"SongPosition", 0, midi.Message{0xF2, 0x10, 0x01}, Packet{0x03, 0xF2, 0x10, 0x01}, true},
		{"TuneRequest", 0, midi.Message{0xF6}, Packet{0x05, 0xF6, 0, 0}, true},
		{"Clock", 1, midi.Message{0xF8}, Packet{0x1F, 0xF8, 0, 0}, true},
		{"SysEx", 0, midi.Message{0xF0, 0x7E, 0xF7}, Packet{}, false},
		{"DataByte", 0, midi.Message{60, 100}, Packet{}, false},
		{"Empty", 0, nil, Packet{}, false},
		{"Truncated", 0, midi.Message{0x90, 60}, Packet{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PacketFromMessage(tt.cable, tt.msg)
			if ok != tt.ok {
				t.Fatalf("PacketFromMessage() ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.expected {
				t.Errorf("PacketFromMessage() = % X, want % X", got[:], tt.expected[:])
			}
		})
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkDecode(b *testing.B) {
	data := make([]byte, 64)
	for i := 0; i < len(data); i += PacketSize {
		copy(data[i:], []byte{0x09, 0x90, byte(21 + i/PacketSize), 100})
	}
	count := 0

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Decode(data, func(p Packet) {
			if p.IsNoteOn() {
				count++
			}
		})
	}
}

func BenchmarkPacketFromMessage(b *testing.B) {
	msg := midi.NoteOn(0, 60, 100)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = PacketFromMessage(0, msg)
	}
}
