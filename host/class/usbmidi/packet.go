package usbmidi

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

// PacketSize is the size of a USB-MIDI event packet.
const PacketSize = 4

// CIN is the Code Index Number in the low nibble of a packet header. It
// classifies the MIDI message carried in the remaining three bytes.
type CIN uint8

// Code Index Numbers (USB Device Class Definition for MIDI Devices 1.0,
// table 4-1).
const (
	CINMisc            CIN = 0x0 // Reserved for miscellaneous function codes
	CINCableEvent      CIN = 0x1 // Reserved for cable events
	CINSysCommon2      CIN = 0x2 // Two-byte System Common message
	CINSysCommon3      CIN = 0x3 // Three-byte System Common message
	CINSysExStart      CIN = 0x4 // SysEx starts or continues
	CINSysExEnd1       CIN = 0x5 // Single-byte System Common or SysEx end
	CINSysExEnd2       CIN = 0x6 // SysEx ends with two bytes
	CINSysExEnd3       CIN = 0x7 // SysEx ends with three bytes
	CINNoteOff         CIN = 0x8 // Note-off
	CINNoteOn          CIN = 0x9 // Note-on
	CINPolyKeyPress    CIN = 0xA // Poly key pressure
	CINControlChange   CIN = 0xB // Control change
	CINProgramChange   CIN = 0xC // Program change
	CINChannelPressure CIN = 0xD // Channel pressure
	CINPitchBend       CIN = 0xE // Pitch bend change
	CINSingleByte      CIN = 0xF // Single byte
)

// String returns a human-readable CIN name.
func (c CIN) String() string {
	switch c {
	case CINMisc:
		return "Misc"
	case CINCableEvent:
		return "CableEvent"
	case CINSysCommon2:
		return "SysCommon2"
	case CINSysCommon3:
		return "SysCommon3"
	case CINSysExStart:
		return "SysExStart"
	case CINSysExEnd1:
		return "SysExEnd1"
	case CINSysExEnd2:
		return "SysExEnd2"
	case CINSysExEnd3:
		return "SysExEnd3"
	case CINNoteOff:
		return "NoteOff"
	case CINNoteOn:
		return "NoteOn"
	case CINPolyKeyPress:
		return "PolyKeyPress"
	case CINControlChange:
		return "ControlChange"
	case CINProgramChange:
		return "ProgramChange"
	case CINChannelPressure:
		return "ChannelPressure"
	case CINPitchBend:
		return "PitchBend"
	case CINSingleByte:
		return "SingleByte"
	default:
		return fmt.Sprintf("Unknown CIN (%d)", uint8(c))
	}
}

// Size returns the number of MIDI bytes a packet with this CIN carries.
// Reserved codes carry none.
func (c CIN) Size() int {
	switch c & 0x0F {
	case CINSysExEnd1, CINSingleByte:
		return 1
	case CINSysCommon2, CINSysExEnd2, CINProgramChange, CINChannelPressure:
		return 2
	case CINMisc, CINCableEvent:
		return 0
	default:
		return 3
	}
}

// Packet is a USB-MIDI event packet: a header byte holding the cable number
// and CIN, followed by up to three MIDI bytes.
type Packet [PacketSize]byte

// ParsePacket copies the first packet of data into out.
// Returns false if data is too short.
func ParsePacket(data []byte, out *Packet) bool {
	if len(data) < PacketSize {
		return false
	}
	copy(out[:], data[:PacketSize])
	return true
}

// Cable returns the virtual cable number (high nibble of byte 0).
func (p Packet) Cable() uint8 {
	return p[0] >> 4
}

// CIN returns the Code Index Number (low nibble of byte 0).
func (p Packet) CIN() CIN {
	return CIN(p[0] & 0x0F)
}

// Status returns the MIDI status byte.
func (p Packet) Status() uint8 {
	return p[1]
}

// Channel returns the MIDI channel of a channel voice message.
func (p Packet) Channel() uint8 {
	return p[1] & 0x0F
}

// Key returns the note number of a note message.
func (p Packet) Key() uint8 {
	return p[2]
}

// Velocity returns the velocity of a note message.
func (p Packet) Velocity() uint8 {
	return p[3]
}

// IsNoteOn reports whether the packet is classified as Note-On by its CIN.
func (p Packet) IsNoteOn() bool {
	return p.CIN() == CINNoteOn
}

// Message returns the MIDI bytes carried by the packet, or nil for reserved
// codes.
func (p Packet) Message() midi.Message {
	n := p.CIN().Size()
	if n == 0 {
		return nil
	}
	msg := make(midi.Message, n)
	copy(msg, p[1:1+n])
	return msg
}

// String returns a human-readable packet description.
func (p Packet) String() string {
	if msg := p.Message(); msg != nil {
		return fmt.Sprintf("cable %d %v: %s", p.Cable(), p.CIN(), msg.String())
	}
	return fmt.Sprintf("cable %d %v", p.Cable(), p.CIN())
}

// Decode calls fn for each complete packet in data, in order, and returns the
// number of packets visited. Trailing bytes that do not form a whole packet
// are ignored.
func Decode(data []byte, fn func(Packet)) int {
	n := 0
	var p Packet
	for len(data) >= PacketSize {
		ParsePacket(data, &p)
		fn(p)
		data = data[PacketSize:]
		n++
	}
	return n
}

// PacketFromMessage encodes a single MIDI message for the given cable.
// Channel voice, System Common and System Real-Time messages are supported;
// SysEx spans several packets and is rejected.
func PacketFromMessage(cable uint8, msg midi.Message) (Packet, bool) {
	var p Packet
	if len(msg) == 0 || msg[0] < 0x80 {
		return p, false
	}

	status := msg[0]
	var cin CIN

	switch {
	case status < 0xF0:
		cin = CIN(status >> 4)
	case status == 0xF1, status == 0xF3:
		cin = CINSysCommon2
	case status == 0xF2:
		cin = CINSysCommon3
	case status == 0xF6:
		cin = CINSysExEnd1
	case status >= 0xF8:
		cin = CINSingleByte
	default:
		return p, false
	}

	n := cin.Size()
	if len(msg) < n {
		return p, false
	}

	p[0] = (cable&0x0F)<<4 | uint8(cin)
	copy(p[1:], msg[:n])
	return p, true
}
