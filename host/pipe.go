package host

import (
	"github.com/ardnew/softpluck/host/hal"
	"github.com/ardnew/softpluck/pkg"
)

// pipeSlot tracks one host channel. Allocation and binding are separate so
// a class can release a pipe it reserved but never opened.
type pipeSlot struct {
	allocated bool
	open      bool
	endpoint  uint8
	faulted   bool
}

// numPipes returns the number of usable pipes, bounded by the controller.
func (h *Host) numPipes() int {
	n := h.hal.NumChannels()
	if n > MaxPipes {
		n = MaxPipes
	}
	return n
}

// slot returns the slot for a pipe, or nil if out of range.
func (h *Host) slot(p Pipe) *pipeSlot {
	if int(p) >= h.numPipes() {
		return nil
	}
	return &h.pipes[p]
}

// openSlot returns the slot for a bound pipe, or an error.
func (h *Host) openSlot(p Pipe) (*pipeSlot, error) {
	s := h.slot(p)
	if s == nil || !s.allocated {
		return nil, pkg.ErrInvalidParameter
	}
	if !s.open {
		return nil, pkg.ErrInvalidState
	}
	return s, nil
}

// AllocPipe reserves a free pipe for an endpoint. The control pipes are never
// handed out.
func (h *Host) AllocPipe(endpoint uint8) (Pipe, error) {
	for i := int(PipeControlIn) + 1; i < h.numPipes(); i++ {
		s := &h.pipes[i]
		if !s.allocated {
			*s = pipeSlot{allocated: true, endpoint: endpoint}
			pkg.LogDebug(pkg.ComponentHost, "pipe allocated",
				"pipe", i, "endpoint", endpoint)
			return Pipe(i), nil
		}
	}
	return 0, pkg.ErrNoResources
}

// FreePipe releases a pipe, closing it first if still bound.
func (h *Host) FreePipe(p Pipe) error {
	s := h.slot(p)
	if s == nil || p <= PipeControlIn || !s.allocated {
		return pkg.ErrInvalidParameter
	}
	if s.open {
		if err := h.ClosePipe(p); err != nil {
			return err
		}
	}
	*s = pipeSlot{}
	return nil
}

// OpenPipe binds an allocated pipe to an endpoint of the attached device and
// resets its data toggle.
func (h *Host) OpenPipe(p Pipe, endpoint uint8, typ hal.TransferType, maxPacketSize uint16) error {
	if h.dev == nil {
		return pkg.ErrNoDevice
	}
	s := h.slot(p)
	if s == nil || !s.allocated {
		return pkg.ErrInvalidParameter
	}
	if maxPacketSize == 0 {
		return pkg.ErrInvalidParameter
	}

	cfg := hal.ChannelConfig{
		Endpoint:      endpoint,
		Address:       hal.DeviceAddress(h.dev.address),
		Speed:         h.dev.speed,
		Type:          typ,
		MaxPacketSize: maxPacketSize,
	}
	if err := h.hal.OpenChannel(uint8(p), cfg); err != nil {
		return err
	}
	if err := h.hal.SetToggle(uint8(p), 0); err != nil {
		_ = h.hal.CloseChannel(uint8(p))
		return err
	}

	s.open = true
	s.endpoint = endpoint
	s.faulted = false

	pkg.LogDebug(pkg.ComponentHost, "pipe opened",
		"pipe", p, "endpoint", endpoint, "type", typ, "mps", maxPacketSize)
	return nil
}

// ClosePipe halts a bound pipe. Closing an unbound pipe is a no-op.
func (h *Host) ClosePipe(p Pipe) error {
	s := h.slot(p)
	if s == nil || !s.allocated {
		return pkg.ErrInvalidParameter
	}
	if !s.open {
		return nil
	}
	s.open = false
	s.faulted = false
	return h.hal.CloseChannel(uint8(p))
}

// SetToggle sets the data toggle a pipe uses next.
func (h *Host) SetToggle(p Pipe, toggle uint8) error {
	if _, err := h.openSlot(p); err != nil {
		return err
	}
	return h.hal.SetToggle(uint8(p), toggle&1)
}

// BulkSendData submits one bulk OUT packet.
func (h *Host) BulkSendData(p Pipe, data []byte) error {
	if _, err := h.openSlot(p); err != nil {
		return err
	}
	return h.hal.SubmitBulk(uint8(p), data)
}

// BulkReceiveData submits one bulk IN packet.
func (h *Host) BulkReceiveData(p Pipe, data []byte) error {
	if _, err := h.openSlot(p); err != nil {
		return err
	}
	return h.hal.SubmitBulk(uint8(p), data)
}

// URBState polls the status of the last submission on a pipe. Unbound pipes
// report [hal.URBIdle].
func (h *Host) URBState(p Pipe) hal.URBState {
	if _, err := h.openSlot(p); err != nil {
		return hal.URBIdle
	}
	return h.hal.URBState(uint8(p))
}

// LastTransferSize returns the byte count of the last completed submission.
func (h *Host) LastTransferSize(p Pipe) int {
	if _, err := h.openSlot(p); err != nil {
		return 0
	}
	return h.hal.LastTransferSize(uint8(p))
}

// ClearEndpointHalt issues CLEAR_FEATURE(ENDPOINT_HALT) to the attached
// device.
func (h *Host) ClearEndpointHalt(endpoint uint8) error {
	if h.dev == nil {
		return pkg.ErrNoDevice
	}
	return h.dev.ClearEndpointHalt(h.ctx, endpoint)
}

// checkFaults reports each pipe entering a fault state to the active class
// once. The latch clears when the pipe leaves the fault state.
func (h *Host) checkFaults() {
	f, ok := h.active.(Faulter)
	if !ok {
		return
	}

	for i := int(PipeControlIn) + 1; i < h.numPipes(); i++ {
		s := &h.pipes[i]
		if !s.open {
			continue
		}
		state := h.hal.URBState(uint8(i))
		if !state.IsFault() {
			s.faulted = false
			continue
		}
		if s.faulted {
			continue
		}
		s.faulted = true
		pkg.LogWarn(pkg.ComponentHost, "pipe fault",
			"pipe", i, "endpoint", s.endpoint, "state", state)
		f.TransferFault(h, Pipe(i), state)
	}
}

// releasePipes closes and frees every pipe.
func (h *Host) releasePipes() {
	for i := int(PipeControlIn) + 1; i < len(h.pipes); i++ {
		s := &h.pipes[i]
		if s.open {
			_ = h.hal.CloseChannel(uint8(i))
		}
		*s = pipeSlot{}
	}
}
