package host

import (
	"github.com/ardnew/softpluck/host/hal"
)

// Pipe identifies a host pipe (a hardware channel bound to one endpoint).
type Pipe uint8

// Class is a host class driver. The host invokes these entry points on
// attach, activation, every main-loop tick and detach; all class state stays
// behind this interface.
type Class interface {
	// Name returns a short driver name for logging.
	Name() string

	// ClassCode returns the interface class the driver binds to.
	ClassCode() uint8

	// Init claims the interface and opens the pipes it needs. A non-nil
	// error refuses activation and leaves the device unusable until it is
	// re-attached.
	Init(bus Bus) error

	// DeInit releases the pipes and drops the session. It must be safe to
	// call when Init failed part way or never ran.
	DeInit(bus Bus) error

	// ClassRequest runs the class-specific control phase. Returning
	// [pkg.ErrBusy] asks to be called again on the next tick.
	ClassRequest(bus Bus) error

	// Process advances the driver state machines by one tick.
	Process(bus Bus) error

	// SOFProcess runs on start-of-frame.
	SOFProcess(bus Bus) error
}

// Faulter is implemented by class drivers that recover from transfer faults.
// The host calls TransferFault once when a pipe owned by the active class
// enters [hal.URBError] or [hal.URBStall].
type Faulter interface {
	TransferFault(bus Bus, pipe Pipe, state hal.URBState)
}

// Bus is the host-side service set a class driver consumes. [*Host]
// implements it; tests substitute their own.
type Bus interface {
	// Device returns the attached device, or nil.
	Device() *Device

	// FindInterface returns the index of the first interface of the attached
	// device matching class, subclass and protocol ([AnyValue] wildcards), or
	// [NoInterface].
	FindInterface(class, subclass, protocol uint8) int

	// Interface returns an interface of the attached device by index, or nil.
	Interface(index int) *Interface

	// SelectInterface marks an interface as claimed by the active class.
	SelectInterface(index int) error

	// AllocPipe reserves a free pipe for an endpoint.
	AllocPipe(endpoint uint8) (Pipe, error)

	// FreePipe releases a pipe reserved by AllocPipe.
	FreePipe(p Pipe) error

	// OpenPipe binds a pipe to an endpoint of the attached device.
	OpenPipe(p Pipe, endpoint uint8, typ hal.TransferType, maxPacketSize uint16) error

	// ClosePipe halts a pipe without releasing it.
	ClosePipe(p Pipe) error

	// SetToggle sets the data toggle a pipe uses next.
	SetToggle(p Pipe, toggle uint8) error

	// BulkSendData submits one bulk OUT packet.
	BulkSendData(p Pipe, data []byte) error

	// BulkReceiveData submits one bulk IN packet.
	BulkReceiveData(p Pipe, data []byte) error

	// URBState polls the status of the last submission on a pipe.
	URBState(p Pipe) hal.URBState

	// LastTransferSize returns the byte count of the last completed
	// submission on a pipe.
	LastTransferSize(p Pipe) int

	// ClearEndpointHalt issues CLEAR_FEATURE(ENDPOINT_HALT) to an endpoint.
	ClearEndpointHalt(endpoint uint8) error
}
