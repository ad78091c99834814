package sim

import (
	"sync"

	"gitlab.com/gomidi/midi/v2"

	"github.com/ardnew/softpluck/host"
	"github.com/ardnew/softpluck/host/class/usbmidi"
	"github.com/ardnew/softpluck/host/hal"
	"github.com/ardnew/softpluck/pkg"
)

// Keyboard endpoints and identity.
const (
	KeyboardOut       = 0x01
	KeyboardIn        = 0x81
	KeyboardMPS       = 64
	KeyboardVendorID  = 0x1209
	KeyboardProductID = 0x7B01
)

// String descriptor indexes.
const (
	stringManufacturer = 1
	stringProduct      = 2
)

var keyboardStrings = map[uint8]string{
	stringManufacturer: "softpluck",
	stringProduct:      "Virtual MIDI Keyboard",
}

var keyboardDevice = [host.DeviceDescriptorSize]byte{
	host.DeviceDescriptorSize, host.DescriptorTypeDevice,
	0x00, 0x02, // USB 2.0
	0x00, 0x00, 0x00, // Class defined per interface
	64, // bMaxPacketSize0
	byte(KeyboardVendorID & 0xFF), byte(KeyboardVendorID >> 8),
	byte(KeyboardProductID & 0xFF), byte(KeyboardProductID >> 8),
	0x00, 0x01, // bcdDevice
	stringManufacturer, stringProduct, 0,
	1, // bNumConfigurations
}

// keyboardConfig is a class-compliant USB-MIDI 1.0 configuration: an empty
// AudioControl interface and a MIDI Streaming interface with one embedded
// and one external jack per direction.
var keyboardConfig = func() []byte {
	cfg := []byte{
		// Configuration; wTotalLength patched below
		9, host.DescriptorTypeConfiguration, 0, 0, 2, 1, 0, 0x80, 50,

		// Interface 0: AudioControl
		9, host.DescriptorTypeInterface, 0, 0, 0, host.ClassAudio, host.SubclassAudioControl, 0, 0,
		// CS AC header: ADC 1.0, one streaming interface (1)
		9, 0x24, 0x01, 0x00, 0x01, 9, 0, 1, 1,

		// Interface 1: MIDI Streaming
		9, host.DescriptorTypeInterface, 1, 0, 2, host.ClassAudio, host.SubclassMIDIStreaming, 0, 0,
		// CS MS header: MS 1.0, wTotalLength 65
		7, 0x24, 0x01, 0x00, 0x01, 65, 0,
		// MIDI IN jack (embedded, 1) and (external, 2)
		6, 0x24, 0x02, 0x01, 0x01, 0x00,
		6, 0x24, 0x02, 0x02, 0x02, 0x00,
		// MIDI OUT jack (embedded, 3) from 2 and (external, 4) from 1
		9, 0x24, 0x03, 0x01, 0x03, 0x01, 0x02, 0x01, 0x00,
		9, 0x24, 0x03, 0x02, 0x04, 0x01, 0x01, 0x01, 0x00,

		// Bulk OUT endpoint and CS endpoint (jack 1)
		9, host.DescriptorTypeEndpoint, KeyboardOut, host.EndpointTypeBulk, KeyboardMPS, 0, 0, 0, 0,
		5, 0x25, 0x01, 0x01, 0x01,
		// Bulk IN endpoint and CS endpoint (jack 3)
		9, host.DescriptorTypeEndpoint, KeyboardIn, host.EndpointTypeBulk, KeyboardMPS, 0, 0, 0, 0,
		5, 0x25, 0x01, 0x01, 0x03,
	}
	cfg[2] = byte(len(cfg))
	cfg[3] = byte(len(cfg) >> 8)
	return cfg
}()

// Keyboard is a virtual class-compliant USB-MIDI keyboard. It implements
// [Function]: events queued with Press, Release or Send are delivered on
// the bulk IN endpoint, packed into as few packets as the host's buffer
// allows, and packets the host sends on bulk OUT are recorded.
//
// All methods are safe for concurrent use.
type Keyboard struct {
	mu sync.Mutex

	cable      uint8
	configured uint8

	queue    []usbmidi.Packet
	received []byte
}

// NewKeyboard creates a virtual keyboard on cable 0.
func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

// SetCable sets the virtual cable number used for new events.
func (k *Keyboard) SetCable(cable uint8) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.cable = cable & 0x0F
}

// Press queues a Note-On.
func (k *Keyboard) Press(channel, key, velocity uint8) error {
	return k.Send(midi.NoteOn(channel, key, velocity))
}

// Release queues a Note-Off.
func (k *Keyboard) Release(channel, key uint8) error {
	return k.Send(midi.NoteOff(channel, key))
}

// Send queues any single-packet MIDI message.
func (k *Keyboard) Send(msg midi.Message) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	p, ok := usbmidi.PacketFromMessage(k.cable, msg)
	if !ok {
		return pkg.ErrInvalidParameter
	}
	k.queue = append(k.queue, p)
	pkg.LogDebug(pkg.ComponentSim, "keyboard event", "packet", p)
	return nil
}

// SendPacket queues a raw event packet.
func (k *Keyboard) SendPacket(p usbmidi.Packet) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.queue = append(k.queue, p)
}

// Pending returns the number of queued packets.
func (k *Keyboard) Pending() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.queue)
}

// Received returns the packets the host has sent so far.
func (k *Keyboard) Received() []usbmidi.Packet {
	k.mu.Lock()
	defer k.mu.Unlock()
	var out []usbmidi.Packet
	usbmidi.Decode(k.received, func(p usbmidi.Packet) {
		out = append(out, p)
	})
	return out
}

// Configured reports whether the host has selected a configuration.
func (k *Keyboard) Configured() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.configured != 0
}

// Speed implements [Function].
func (k *Keyboard) Speed() hal.Speed {
	return hal.SpeedFull
}

// Setup implements [Function].
func (k *Keyboard) Setup(setup *hal.SetupPacket, data []byte) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	switch setup.Request {
	case host.RequestGetDescriptor:
		var src []byte
		index := uint8(setup.Value)
		switch uint8(setup.Value >> 8) {
		case host.DescriptorTypeDevice:
			src = keyboardDevice[:]
		case host.DescriptorTypeConfiguration:
			src = keyboardConfig
		case host.DescriptorTypeString:
			if index == 0 {
				src = []byte{4, host.DescriptorTypeString, 0x09, 0x04}
			} else if s, ok := keyboardStrings[index]; ok {
				src = stringDescriptor(s)
			}
		}
		if src == nil {
			return 0, pkg.ErrStall
		}
		n := int(setup.Length)
		if n > len(src) {
			n = len(src)
		}
		return copy(data[:min(n, len(data))], src), nil

	case host.RequestSetConfiguration:
		k.configured = uint8(setup.Value)
		return 0, nil

	case host.RequestGetConfiguration:
		if len(data) == 0 {
			return 0, nil
		}
		data[0] = k.configured
		return 1, nil
	}

	return 0, pkg.ErrStall
}

// Out implements [Function].
func (k *Keyboard) Out(endpoint uint8, data []byte) bool {
	if endpoint != KeyboardOut {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.received = append(k.received, data...)
	return true
}

// In implements [Function].
func (k *Keyboard) In(endpoint uint8, data []byte) (int, bool) {
	if endpoint != KeyboardIn {
		return 0, false
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	if len(k.queue) == 0 {
		return 0, false
	}

	count := min(len(data)/usbmidi.PacketSize, len(k.queue))
	if count == 0 {
		return 0, false
	}
	for i := 0; i < count; i++ {
		copy(data[i*usbmidi.PacketSize:], k.queue[i][:])
	}
	k.queue = k.queue[count:]
	return count * usbmidi.PacketSize, true
}

func stringDescriptor(s string) []byte {
	out := make([]byte, 2, 2+2*len(s))
	out[0] = byte(2 + 2*len(s))
	out[1] = host.DescriptorTypeString
	for i := 0; i < len(s); i++ {
		out = append(out, s[i], 0)
	}
	return out
}
