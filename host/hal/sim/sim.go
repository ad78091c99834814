package sim

import (
	"context"
	"sync"

	"github.com/ardnew/softpluck/host/hal"
	"github.com/ardnew/softpluck/pkg"
)

// DefaultChannels is the channel count of a controller created with zero
// channels, matching a small microcontroller host core.
const DefaultChannels = 8

// Standard requests the controller answers itself.
const (
	requestClearFeature = 0x01
	requestSetAddress   = 0x05
	recipientEndpoint   = 0x02
	featureEndpointHalt = 0x00
)

// Function is the device side of the simulated bus.
type Function interface {
	// Speed returns the speed the function attaches at.
	Speed() hal.Speed

	// Setup answers a control request on the default pipe. For IN requests
	// data receives the reply. SET_ADDRESS and CLEAR_FEATURE(ENDPOINT_HALT)
	// are handled by the controller and never reach the function.
	Setup(setup *hal.SetupPacket, data []byte) (int, error)

	// Out accepts one bulk OUT packet. Returning false NAKs it.
	Out(endpoint uint8, data []byte) bool

	// In fills one bulk IN packet. Returning false NAKs it and the
	// controller retries on the next poll.
	In(endpoint uint8, data []byte) (int, bool)
}

// Stats counts bus traffic.
type Stats struct {
	Controls  uint64 // Control transfers
	OutPkts   uint64 // Bulk OUT packets accepted
	InPkts    uint64 // Bulk IN packets delivered
	NAKs      uint64 // NAKed bulk polls
	Stalls    uint64 // Submissions that stalled
	Errors    uint64 // Submissions that failed with a transaction error
	Clears    uint64 // CLEAR_FEATURE(ENDPOINT_HALT) requests
	Submitted uint64 // Bulk submissions
}

type channel struct {
	open    bool
	cfg     hal.ChannelConfig
	toggle  uint8
	urb     hal.URBState
	size    int
	pending []byte
	active  bool
}

// Controller is a software host controller with one root port. It
// implements [hal.Controller]. Bulk submissions settle lazily when their URB
// state is polled, so a test or main loop observes the same Idle then
// Done/NotReady/Stall sequence a hardware core produces.
//
// Attach, Detach and the Inject methods may be called from any goroutine.
type Controller struct {
	mu sync.Mutex

	fn       Function
	running  bool
	address  hal.DeviceAddress
	channels []channel

	halted   map[uint8]bool
	notReady map[uint8]int
	errs     map[uint8]int

	stats Stats
}

// New creates a simulated controller with n host channels.
func New(n int) *Controller {
	if n <= 0 {
		n = DefaultChannels
	}
	return &Controller{
		channels: make([]channel, n),
		halted:   make(map[uint8]bool),
		notReady: make(map[uint8]int),
		errs:     make(map[uint8]int),
	}
}

// Attach connects a function to the root port. Attaching nil is a no-op.
func (c *Controller) Attach(fn Function) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fn = fn
	c.address = 0
	pkg.LogInfo(pkg.ComponentSim, "function attached", "speed", fn.Speed())
}

// Detach disconnects the function. Outstanding submissions fail.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fn == nil {
		return
	}
	c.fn = nil
	c.address = 0
	for i := range c.channels {
		ch := &c.channels[i]
		if ch.active {
			ch.active = false
			ch.urb = hal.URBError
		}
	}
	clear(c.halted)
	clear(c.notReady)
	clear(c.errs)
	pkg.LogInfo(pkg.ComponentSim, "function detached")
}

// InjectNotReady makes the next n OUT packets to endpoint NAK.
func (c *Controller) InjectNotReady(endpoint uint8, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notReady[endpoint] += n
}

// InjectStall halts an endpoint. Submissions stall until the host clears the
// halt with CLEAR_FEATURE(ENDPOINT_HALT).
func (c *Controller) InjectStall(endpoint uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.halted[endpoint] = true
}

// InjectError makes the next n submissions to endpoint fail with a
// transaction error.
func (c *Controller) InjectError(endpoint uint8, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[endpoint] += n
}

// Halted reports whether an endpoint is halted.
func (c *Controller) Halted(endpoint uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.halted[endpoint]
}

// Toggle returns the data toggle a channel uses next.
func (c *Controller) Toggle(ch uint8) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(ch) >= len(c.channels) {
		return 0
	}
	return c.channels[ch].toggle
}

// Address returns the address assigned by SET_ADDRESS.
func (c *Controller) Address() hal.DeviceAddress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

// Stats returns a snapshot of the traffic counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Init implements [hal.Controller].
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.channels {
		c.channels[i] = channel{}
	}
	return ctx.Err()
}

// Start implements [hal.Controller].
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	return nil
}

// Stop implements [hal.Controller].
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// PortStatus implements [hal.Controller].
func (c *Controller) PortStatus() hal.PortStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := hal.PortStatus{PowerOn: c.running}
	if c.running && c.fn != nil {
		status.Connected = true
		status.Enabled = true
		status.Speed = c.fn.Speed()
	}
	return status
}

// ResetPort implements [hal.Controller].
func (c *Controller) ResetPort() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fn == nil {
		return pkg.ErrNoDevice
	}
	c.address = 0
	return nil
}

// ControlTransfer implements [hal.Controller].
func (c *Controller) ControlTransfer(ctx context.Context, addr hal.DeviceAddress, setup *hal.SetupPacket, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fn == nil || !c.running {
		return 0, pkg.ErrNoDevice
	}
	if addr != c.address {
		return 0, pkg.ErrNoDevice
	}
	c.stats.Controls++

	switch {
	case setup.Request == requestSetAddress && setup.RequestType == 0x00:
		c.address = hal.DeviceAddress(setup.Value & 0x7F)
		pkg.LogDebug(pkg.ComponentSim, "address set", "address", c.address)
		return 0, nil

	case setup.Request == requestClearFeature &&
		setup.RequestType == recipientEndpoint &&
		setup.Value == featureEndpointHalt:
		ep := uint8(setup.Index)
		delete(c.halted, ep)
		for i := range c.channels {
			if ch := &c.channels[i]; ch.open && ch.cfg.Endpoint == ep {
				ch.toggle = 0
			}
		}
		c.stats.Clears++
		pkg.LogDebug(pkg.ComponentSim, "endpoint halt cleared", "endpoint", ep)
		return 0, nil
	}

	return c.fn.Setup(setup, data)
}

// NumChannels implements [hal.Controller].
func (c *Controller) NumChannels() int {
	return len(c.channels)
}

func (c *Controller) lookup(ch uint8) (*channel, error) {
	if int(ch) >= len(c.channels) {
		return nil, pkg.ErrInvalidParameter
	}
	return &c.channels[ch], nil
}

// OpenChannel implements [hal.Controller].
func (c *Controller) OpenChannel(ch uint8, cfg hal.ChannelConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, err := c.lookup(ch)
	if err != nil {
		return err
	}
	*state = channel{open: true, cfg: cfg}
	return nil
}

// CloseChannel implements [hal.Controller].
func (c *Controller) CloseChannel(ch uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, err := c.lookup(ch)
	if err != nil {
		return err
	}
	*state = channel{}
	return nil
}

// SetToggle implements [hal.Controller].
func (c *Controller) SetToggle(ch uint8, toggle uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, err := c.lookup(ch)
	if err != nil {
		return err
	}
	state.toggle = toggle & 1
	return nil
}

// SubmitBulk implements [hal.Controller].
func (c *Controller) SubmitBulk(ch uint8, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, err := c.lookup(ch)
	if err != nil {
		return err
	}
	if !state.open {
		return pkg.ErrInvalidState
	}
	if state.cfg.Type != hal.TransferBulk {
		return pkg.ErrInvalidRequest
	}
	if len(data) > int(state.cfg.MaxPacketSize) {
		return pkg.ErrInvalidParameter
	}

	state.pending = data
	state.active = true
	state.urb = hal.URBIdle
	state.size = 0
	c.stats.Submitted++
	return nil
}

// URBState implements [hal.Controller]. Polling an outstanding submission
// runs it against the attached function.
func (c *Controller) URBState(ch uint8) hal.URBState {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, err := c.lookup(ch)
	if err != nil {
		return hal.URBIdle
	}
	if state.active {
		c.settle(state)
	}
	return state.urb
}

// LastTransferSize implements [hal.Controller].
func (c *Controller) LastTransferSize(ch uint8) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, err := c.lookup(ch)
	if err != nil {
		return 0
	}
	return state.size
}

// settle runs one transaction attempt for an outstanding submission.
func (c *Controller) settle(ch *channel) {
	ep := ch.cfg.Endpoint

	finish := func(urb hal.URBState) {
		ch.active = false
		ch.urb = urb
		ch.pending = nil
	}

	switch {
	case c.fn == nil:
		c.stats.Errors++
		finish(hal.URBError)
		return

	case c.halted[ep]:
		c.stats.Stalls++
		finish(hal.URBStall)
		return

	case c.errs[ep] > 0:
		c.errs[ep]--
		c.stats.Errors++
		finish(hal.URBError)
		return
	}

	if !ch.cfg.IsIn() {
		if c.notReady[ep] > 0 || !c.fn.Out(ep, ch.pending) {
			if c.notReady[ep] > 0 {
				c.notReady[ep]--
			}
			c.stats.NAKs++
			finish(hal.URBNotReady)
			return
		}
		ch.size = len(ch.pending)
		c.stats.OutPkts++
	} else {
		n, ok := c.fn.In(ep, ch.pending)
		if !ok {
			// IN NAKs are retried by the core; the URB stays idle
			c.stats.NAKs++
			return
		}
		ch.size = n
		c.stats.InPkts++
	}

	ch.toggle ^= 1
	finish(hal.URBDone)
}
