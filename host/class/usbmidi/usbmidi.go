package usbmidi

import (
	"github.com/ardnew/softpluck/host"
	"github.com/ardnew/softpluck/host/hal"
	"github.com/ardnew/softpluck/pkg"
)

// Name is the driver name reported to the host.
const Name = "usb-midi"

// stream is one direction of the bulk data path.
type stream struct {
	pipe      host.Pipe
	endpoint  uint8
	mps       int
	allocated bool
	open      bool

	// Set by a transfer fault until the endpoint halt is cleared
	halted bool

	// Caller buffer, bytes completed and bytes outstanding
	data   []byte
	offset int
	length int
}

// chunk returns the window for the next submission.
func (s *stream) chunk() []byte {
	n := s.length
	if n > s.mps {
		n = s.mps
	}
	return s.data[s.offset : s.offset+n]
}

// session is the per-attach state created by Init.
type session struct {
	bus host.Bus

	tx, rx stream

	topology Topology
}

// Transport is the USB-MIDI host class driver. It discovers the MIDI
// Streaming interface, owns one bulk pipe per direction and moves caller
// buffers through them in max-packet chunks.
//
// All methods run on the main-loop goroutine.
type Transport struct {
	s *session

	state   State
	txState TxState
	rxState RxState

	onTransmit func()
	onReceive  func(data []byte)
}

// New creates a transport class driver with no session.
func New() *Transport {
	return &Transport{}
}

// SetOnTransmit sets the callback fired once when a transmission completes.
func (t *Transport) SetOnTransmit(cb func()) {
	t.onTransmit = cb
}

// SetOnReceive sets the callback fired once when a reception completes. data
// aliases the buffer given to Receive and holds only the bytes received.
func (t *Transport) SetOnReceive(cb func(data []byte)) {
	t.onReceive = cb
}

// Name implements [host.Class].
func (t *Transport) Name() string {
	return Name
}

// ClassCode implements [host.Class].
func (t *Transport) ClassCode() uint8 {
	return host.ClassAudio
}

// State returns the transport state.
func (t *Transport) State() State {
	return t.state
}

// TxState returns the send sub-state.
func (t *Transport) TxState() TxState {
	return t.txState
}

// RxState returns the receive sub-state.
func (t *Transport) RxState() RxState {
	return t.rxState
}

// Configured reports whether a session is open.
func (t *Transport) Configured() bool {
	return t.s != nil
}

// Busy reports whether a transfer is outstanding in either direction.
func (t *Transport) Busy() bool {
	return t.state != StateIdle && (t.txState != TxIdle || t.rxState != RxIdle)
}

// Endpoints returns the bound IN and OUT endpoint addresses.
func (t *Transport) Endpoints() (in, out uint8, ok bool) {
	if t.s == nil {
		return 0, 0, false
	}
	return t.s.rx.endpoint, t.s.tx.endpoint, true
}

// Topology returns the jack layout of the bound interface. ok is false
// without a session or when the interface carried no MS header.
func (t *Transport) Topology() (topo Topology, ok bool) {
	if t.s == nil || t.s.topology.Version == 0 {
		return Topology{}, false
	}
	return t.s.topology, true
}

// Init implements [host.Class]. It locates the first MIDI Streaming
// interface, takes its first bulk IN and bulk OUT endpoints, and opens one
// pipe for each with the data toggle reset.
func (t *Transport) Init(bus host.Bus) error {
	idx := bus.FindInterface(host.ClassAudio, host.SubclassMIDIStreaming, host.AnyValue)
	if idx == host.NoInterface {
		pkg.LogWarn(pkg.ComponentMIDI, "no MIDI streaming interface")
		return pkg.ErrNoInterface
	}
	if err := bus.SelectInterface(idx); err != nil {
		return err
	}

	iface := bus.Interface(idx)
	s := &session{bus: bus}

	// Class-compliant devices carry an MS header, but the bulk pipes work
	// without one
	if !ParseTopology(iface.ClassDescriptors, &s.topology) {
		pkg.LogDebug(pkg.ComponentMIDI, "no usable MIDI streaming descriptors", "interface", idx)
		s.topology = Topology{}
	}

	var haveIn, haveOut bool
	for i := range iface.Endpoints {
		ep := &iface.Endpoints[i]
		if !ep.IsBulk() || ep.MaxPacketSize == 0 {
			continue
		}
		switch {
		case ep.IsIn() && !haveIn:
			s.rx.endpoint = ep.EndpointAddress
			s.rx.mps = int(ep.MaxPacketSize)
			haveIn = true
		case ep.IsOut() && !haveOut:
			s.tx.endpoint = ep.EndpointAddress
			s.tx.mps = int(ep.MaxPacketSize)
			haveOut = true
		}
	}
	if !haveIn || !haveOut {
		pkg.LogWarn(pkg.ComponentMIDI, "missing bulk endpoint",
			"interface", idx, "in", haveIn, "out", haveOut)
		return pkg.ErrInvalidEndpoint
	}

	for _, st := range []*stream{&s.tx, &s.rx} {
		if err := openStream(bus, st); err != nil {
			releaseStreams(bus, s)
			return err
		}
	}

	t.s = s
	t.state = StateIdle
	t.txState = TxIdle
	t.rxState = RxIdle

	pkg.LogInfo(pkg.ComponentMIDI, "transport ready",
		"interface", idx,
		"in", s.rx.endpoint, "out", s.tx.endpoint,
		"inMPS", s.rx.mps, "outMPS", s.tx.mps,
		"inCables", s.topology.InCables, "outCables", s.topology.OutCables)
	return nil
}

func openStream(bus host.Bus, st *stream) error {
	p, err := bus.AllocPipe(st.endpoint)
	if err != nil {
		return err
	}
	st.pipe = p
	st.allocated = true

	if err := bus.OpenPipe(p, st.endpoint, hal.TransferBulk, uint16(st.mps)); err != nil {
		return err
	}
	st.open = true

	return bus.SetToggle(p, 0)
}

// releaseStreams closes and frees whatever Init managed to set up.
func releaseStreams(bus host.Bus, s *session) {
	for _, st := range []*stream{&s.tx, &s.rx} {
		if st.open {
			_ = bus.ClosePipe(st.pipe)
			st.open = false
		}
		if st.allocated {
			_ = bus.FreePipe(st.pipe)
			st.allocated = false
		}
	}
}

// DeInit implements [host.Class]. Calling it without a session is a no-op.
func (t *Transport) DeInit(bus host.Bus) error {
	if t.s == nil {
		return nil
	}
	releaseStreams(bus, t.s)
	t.s = nil
	t.state = StateIdle
	t.txState = TxIdle
	t.rxState = RxIdle
	pkg.LogDebug(pkg.ComponentMIDI, "transport released")
	return nil
}

// ClassRequest implements [host.Class]. USB-MIDI has no class requests.
func (t *Transport) ClassRequest(bus host.Bus) error {
	return nil
}

// SOFProcess implements [host.Class].
func (t *Transport) SOFProcess(bus host.Bus) error {
	return nil
}

// TransferFault implements [host.Faulter]. A fault on either data pipe moves
// the transport to Error.
func (t *Transport) TransferFault(bus host.Bus, pipe host.Pipe, state hal.URBState) {
	if t.s == nil {
		return
	}
	var st *stream
	switch {
	case t.s.tx.open && pipe == t.s.tx.pipe:
		st = &t.s.tx
	case t.s.rx.open && pipe == t.s.rx.pipe:
		st = &t.s.rx
	default:
		return
	}
	st.halted = true
	t.setState(StateError)
	pkg.LogWarn(pkg.ComponentMIDI, "transfer fault",
		"endpoint", st.endpoint, "urb", state)
}

// Stop forces the transport idle and closes both pipes. The pipes stay
// allocated until DeInit. Calling it without a session is a no-op.
func (t *Transport) Stop() error {
	if t.s == nil {
		return nil
	}
	t.state = StateIdle
	t.txState = TxIdle
	t.rxState = RxIdle

	var firstErr error
	for _, st := range []*stream{&t.s.tx, &t.s.rx} {
		if !st.open {
			continue
		}
		if err := t.s.bus.ClosePipe(st.pipe); err != nil && firstErr == nil {
			firstErr = err
		}
		st.open = false
		st.halted = false
	}
	pkg.LogDebug(pkg.ComponentMIDI, "transport stopped")
	return firstErr
}

// checkStart validates a Transmit or Receive request.
func (t *Transport) checkStart(st *stream, idle bool, data []byte) error {
	if t.state == StateError || !st.open {
		return pkg.ErrInvalidState
	}
	if !idle {
		return pkg.ErrBusy
	}
	if len(data) == 0 {
		return pkg.ErrInvalidParameter
	}
	return nil
}

// Transmit starts sending data on the bulk OUT pipe. data must stay valid and
// unmodified until the transmit callback fires.
func (t *Transport) Transmit(data []byte) error {
	if t.s == nil {
		return pkg.ErrNotConfigured
	}
	if err := t.checkStart(&t.s.tx, t.txState == TxIdle, data); err != nil {
		return err
	}
	t.s.tx.data = data
	t.s.tx.offset = 0
	t.s.tx.length = len(data)
	t.txState = TxSend
	t.setState(StateTransferData)
	return nil
}

// Receive starts receiving into data on the bulk IN pipe. Reception ends when
// data is full or the device sends a short packet.
func (t *Transport) Receive(data []byte) error {
	if t.s == nil {
		return pkg.ErrNotConfigured
	}
	if err := t.checkStart(&t.s.rx, t.rxState == RxIdle, data); err != nil {
		return err
	}
	t.s.rx.data = data
	t.s.rx.offset = 0
	t.s.rx.length = len(data)
	t.rxState = RxReceive
	t.setState(StateTransferData)
	return nil
}

// Process implements [host.Class]. In TransferData it runs one step of the
// send machine then one step of the receive machine. In Error it clears the
// halt on every faulted endpoint and resumes the transfers they interrupted,
// reissuing each one's current chunk; a transfer that was idle stays idle.
func (t *Transport) Process(bus host.Bus) error {
	if t.s == nil {
		return nil
	}

	switch t.state {
	case StateIdle:

	case StateTransferData:
		t.processTx(bus)
		t.processRx(bus)

	case StateError:
		return t.recover(bus)
	}
	return nil
}

func (t *Transport) processTx(bus host.Bus) {
	st := &t.s.tx

	switch t.txState {
	case TxSend:
		if err := bus.BulkSendData(st.pipe, st.chunk()); err != nil {
			pkg.LogDebug(pkg.ComponentMIDI, "send submit failed", "error", err)
			return
		}
		t.txState = TxSendWait

	case TxSendWait:
		switch bus.URBState(st.pipe) {
		case hal.URBDone:
			if st.length > st.mps {
				st.offset += st.mps
				st.length -= st.mps
				t.txState = TxSend
				return
			}
			st.offset += st.length
			st.length = 0
			st.data = nil
			t.txState = TxIdle
			if t.onTransmit != nil {
				t.onTransmit()
			}

		case hal.URBNotReady:
			t.txState = TxSend
		}
	}
}

func (t *Transport) processRx(bus host.Bus) {
	st := &t.s.rx

	switch t.rxState {
	case RxReceive:
		if err := bus.BulkReceiveData(st.pipe, st.chunk()); err != nil {
			pkg.LogDebug(pkg.ComponentMIDI, "receive submit failed", "error", err)
			return
		}
		t.rxState = RxReceiveWait

	case RxReceiveWait:
		switch bus.URBState(st.pipe) {
		case hal.URBDone:
			want := len(st.chunk())
			n := bus.LastTransferSize(st.pipe)
			if n > want {
				n = want
			}
			if st.length > st.mps && n == st.mps {
				st.offset += st.mps
				st.length -= st.mps
				t.rxState = RxReceive
				return
			}
			st.offset += n
			st.length = 0
			data := st.data[:st.offset]
			st.data = nil
			t.rxState = RxIdle
			if t.onReceive != nil {
				t.onReceive(data)
			}

		case hal.URBNotReady:
			t.rxState = RxReceive
		}
	}
}

// recover clears the halt on every faulted endpoint. Each cleared pipe has
// its toggle reset and a transfer interrupted on it reissues its current
// chunk. A failed clear leaves the transport in Error so the next tick
// retries the endpoints still halted.
func (t *Transport) recover(bus host.Bus) error {
	for _, st := range []*stream{&t.s.tx, &t.s.rx} {
		if !st.open || !st.halted {
			continue
		}
		if err := bus.ClearEndpointHalt(st.endpoint); err != nil {
			pkg.LogWarn(pkg.ComponentMIDI, "clear halt failed",
				"endpoint", st.endpoint, "error", err)
			return err
		}
		_ = bus.SetToggle(st.pipe, 0)
		st.halted = false

		if st == &t.s.tx && t.txState != TxIdle {
			t.txState = TxSend
		}
		if st == &t.s.rx && t.rxState != RxIdle {
			t.rxState = RxReceive
		}
		pkg.LogInfo(pkg.ComponentMIDI, "endpoint halt cleared", "endpoint", st.endpoint)
	}

	if t.txState != TxIdle || t.rxState != RxIdle {
		t.setState(StateTransferData)
	} else {
		t.setState(StateIdle)
	}
	return nil
}

func (t *Transport) setState(s State) {
	if t.state == s {
		return
	}
	pkg.LogDebug(pkg.ComponentMIDI, "state", "from", t.state, "to", s)
	t.state = s
}
