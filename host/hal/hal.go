package hal

import (
	"context"
)

// Speed represents the USB connection speed.
type Speed uint8

// USB speed constants (USB 2.0 Specification).
const (
	SpeedUnknown Speed = iota // Not connected or unknown
	SpeedLow                  // Low Speed (1.5 Mbit/s)
	SpeedFull                 // Full Speed (12 Mbit/s)
	SpeedHigh                 // High Speed (480 Mbit/s)
)

// String returns a human-readable speed name.
func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "Low Speed"
	case SpeedFull:
		return "Full Speed"
	case SpeedHigh:
		return "High Speed"
	default:
		return "Unknown"
	}
}

// PortStatus represents the status of the root port.
type PortStatus struct {
	Connected bool  // Device is connected
	Enabled   bool  // Port is enabled
	PowerOn   bool  // Port has power applied
	Speed     Speed // Connected device speed
}

// SetupPacket represents a USB SETUP packet in the HAL layer.
type SetupPacket struct {
	RequestType uint8  // Request characteristics
	Request     uint8  // Specific request
	Value       uint16 // Request-specific value
	Index       uint16 // Request-specific index
	Length      uint16 // Number of bytes to transfer
}

// SetupPacketSize is the size of a USB SETUP packet in bytes.
const SetupPacketSize = 8

// ParseSetupPacket parses raw bytes into a SetupPacket.
// Returns false if data is too short.
func ParseSetupPacket(data []byte, out *SetupPacket) bool {
	if len(data) < SetupPacketSize {
		return false
	}
	out.RequestType = data[0]
	out.Request = data[1]
	out.Value = uint16(data[2]) | uint16(data[3])<<8
	out.Index = uint16(data[4]) | uint16(data[5])<<8
	out.Length = uint16(data[6]) | uint16(data[7])<<8
	return true
}

// MarshalTo writes the setup packet to buf.
// Returns the number of bytes written (8), or 0 if buf is too small.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	buf[0] = s.RequestType
	buf[1] = s.Request
	buf[2] = byte(s.Value)
	buf[3] = byte(s.Value >> 8)
	buf[4] = byte(s.Index)
	buf[5] = byte(s.Index >> 8)
	buf[6] = byte(s.Length)
	buf[7] = byte(s.Length >> 8)
	return SetupPacketSize
}

// TransferType indicates the type of USB transfer.
type TransferType uint8

// Transfer type constants.
const (
	TransferControl     TransferType = 0 // Control transfer
	TransferIsochronous TransferType = 1 // Isochronous transfer
	TransferBulk        TransferType = 2 // Bulk transfer
	TransferInterrupt   TransferType = 3 // Interrupt transfer
)

// String returns the transfer type name.
func (t TransferType) String() string {
	switch t {
	case TransferControl:
		return "control"
	case TransferIsochronous:
		return "isochronous"
	case TransferBulk:
		return "bulk"
	case TransferInterrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}

// DeviceAddress represents a USB device address (1-127).
type DeviceAddress uint8

// URBState is the completion status of the last request submitted on a
// channel. Controllers update it from their transfer-complete interrupt; the
// host stack only ever polls it.
type URBState uint8

// URB states.
const (
	URBIdle     URBState = iota // Submitted and in progress, or never submitted
	URBDone                     // Completed; LastTransferSize is valid
	URBNotReady                 // Device NAKed an OUT transfer; resubmit
	URBNYET                     // High-speed NYET handshake
	URBError                    // Unrecoverable transaction error
	URBStall                    // Endpoint returned STALL
)

// String returns the URB state name.
func (s URBState) String() string {
	switch s {
	case URBIdle:
		return "idle"
	case URBDone:
		return "done"
	case URBNotReady:
		return "not-ready"
	case URBNYET:
		return "nyet"
	case URBError:
		return "error"
	case URBStall:
		return "stall"
	default:
		return "unknown"
	}
}

// IsFault reports whether the state is an unrecoverable transfer fault.
func (s URBState) IsFault() bool {
	return s == URBError || s == URBStall
}

// ChannelConfig describes how a host channel is bound to a device endpoint.
type ChannelConfig struct {
	Endpoint      uint8         // Endpoint address including direction bit
	Address       DeviceAddress // Device address
	Speed         Speed         // Device speed
	Type          TransferType  // Endpoint transfer type
	MaxPacketSize uint16        // Endpoint max packet size
}

// IsIn reports whether the channel moves data device-to-host.
func (c *ChannelConfig) IsIn() bool {
	return c.Endpoint&0x80 != 0
}

// Controller defines the Hardware Abstraction Layer for a polled USB host
// controller with a fixed set of channels.
//
// Bulk submissions never block: SubmitBulk queues the request on a channel and
// returns, and completion is observed by polling URBState. Control transfers
// are used only during enumeration and stall recovery, and complete before
// ControlTransfer returns.
//
// A Controller is driven from a single goroutine (the main loop); only
// URBState and LastTransferSize may be updated concurrently by the hardware.
type Controller interface {
	// Initialization and Lifecycle

	// Init initializes the USB host controller hardware.
	Init(ctx context.Context) error

	// Start enables the host controller and applies port power.
	Start() error

	// Stop disables the host controller and removes port power.
	Stop() error

	// Port Operations

	// PortStatus returns the status of the root port.
	PortStatus() PortStatus

	// ResetPort issues a bus reset on the root port.
	// After reset completes, the device answers at address 0.
	ResetPort() error

	// Control Transfers

	// ControlTransfer performs a control transfer on the default pipe.
	// For IN requests, data is filled with received data.
	// Returns the number of bytes transferred in the data phase.
	ControlTransfer(ctx context.Context, addr DeviceAddress, setup *SetupPacket, data []byte) (int, error)

	// Channels

	// NumChannels returns the number of hardware channels.
	NumChannels() int

	// OpenChannel binds a channel to an endpoint.
	OpenChannel(ch uint8, cfg ChannelConfig) error

	// CloseChannel halts a channel and unbinds it.
	CloseChannel(ch uint8) error

	// SetToggle sets the data toggle (0 or 1) a channel uses next.
	SetToggle(ch uint8, toggle uint8) error

	// SubmitBulk queues a bulk transfer of at most one max-packet on a
	// channel. For IN channels data receives the payload; for OUT channels
	// data is sent. The buffer must stay valid until URBState leaves URBIdle.
	SubmitBulk(ch uint8, data []byte) error

	// URBState returns the completion status of the last submission.
	URBState(ch uint8) URBState

	// LastTransferSize returns the byte count of the last completed
	// submission on a channel.
	LastTransferSize(ch uint8) int
}
