package pkg

import "errors"

// USB transport errors.
var (
	// ErrStall indicates an endpoint stall condition.
	ErrStall = errors.New("endpoint stalled")

	// ErrBusy indicates a transfer is already outstanding.
	ErrBusy = errors.New("resource busy")

	// ErrNoDevice indicates no device is attached.
	ErrNoDevice = errors.New("device not present")

	// ErrNoInterface indicates the device lacks the interface a class requires.
	ErrNoInterface = errors.New("interface not found")

	// ErrNotConfigured indicates the class has no active session.
	ErrNotConfigured = errors.New("class not configured")

	// ErrInvalidEndpoint indicates a missing or unusable endpoint.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrInvalidState indicates an operation was attempted in the wrong state.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidRequest indicates an invalid or unsupported control request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNoResources indicates no free pipe or channel is left.
	ErrNoResources = errors.New("no resources available")

	// ErrAlreadyRunning indicates the host is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates the host is not running.
	ErrNotRunning = errors.New("not running")
)

// Instrument errors.
var (
	// ErrNotPowerOfTwo indicates a ring capacity that is not a power of two.
	ErrNotPowerOfTwo = errors.New("capacity not a power of two")

	// ErrKeyOutOfRange indicates a MIDI key outside the 88-key piano range.
	ErrKeyOutOfRange = errors.New("key out of range")

	// ErrInvalidConfig indicates a configuration value failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)
