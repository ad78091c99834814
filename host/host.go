package host

import (
	"context"
	"errors"

	"github.com/ardnew/softpluck/host/hal"
	"github.com/ardnew/softpluck/pkg"
)

// Host is a polled USB host for a single root port. All methods run on the
// main-loop goroutine; Process advances the host by one step.
type Host struct {
	hal hal.Controller

	// Registered class drivers
	classes    [MaxClasses]Class
	numClasses int

	// Class bound to the attached device
	active Class

	// Attached device, nil while idle
	dev *Device

	pipes [MaxPipes]pipeSlot

	state   State
	running bool

	ctx context.Context

	onEvent func(*Host, Event)
}

// New creates a new USB host. onEvent, if non-nil, is called from Process on
// each lifecycle event.
func New(ctl hal.Controller, onEvent func(*Host, Event)) *Host {
	return &Host{
		hal:     ctl,
		ctx:     context.Background(),
		onEvent: onEvent,
	}
}

// RegisterClass adds a class driver. Drivers are matched in registration
// order.
func (h *Host) RegisterClass(c Class) error {
	if c == nil {
		return pkg.ErrInvalidParameter
	}
	if h.numClasses >= MaxClasses {
		return pkg.ErrNoResources
	}
	h.classes[h.numClasses] = c
	h.numClasses++
	pkg.LogDebug(pkg.ComponentHost, "class registered",
		"name", c.Name(), "class", c.ClassCode())
	return nil
}

// Start initializes the controller and applies port power.
func (h *Host) Start(ctx context.Context) error {
	if h.running {
		return pkg.ErrAlreadyRunning
	}

	if err := h.hal.Init(ctx); err != nil {
		return err
	}
	if err := h.hal.Start(); err != nil {
		return err
	}

	h.ctx = ctx
	h.state = StateIdle
	h.running = true

	pkg.LogInfo(pkg.ComponentHost, "host started", "channels", h.hal.NumChannels())
	return nil
}

// Stop tears down any attached device and stops the controller.
func (h *Host) Stop() error {
	if !h.running {
		return nil
	}

	if h.state != StateIdle {
		h.detach()
	}
	h.running = false

	if err := h.hal.Stop(); err != nil {
		return err
	}

	pkg.LogInfo(pkg.ComponentHost, "host stopped")
	return nil
}

// IsRunning returns true if the host is running.
func (h *Host) IsRunning() bool {
	return h.running
}

// State returns the current host state.
func (h *Host) State() State {
	return h.state
}

// Device returns the attached device, or nil.
func (h *Host) Device() *Device {
	return h.dev
}

// ActiveClass returns the class bound to the attached device, or nil.
func (h *Host) ActiveClass() Class {
	return h.active
}

// FindInterface returns the index of the first matching interface of the
// attached device, or [NoInterface].
func (h *Host) FindInterface(class, subclass, protocol uint8) int {
	if h.dev == nil {
		return NoInterface
	}
	return h.dev.FindInterface(class, subclass, protocol)
}

// Interface returns an interface of the attached device by index, or nil.
func (h *Host) Interface(index int) *Interface {
	if h.dev == nil {
		return nil
	}
	return h.dev.Interface(index)
}

// SelectInterface marks an interface as claimed by the active class.
func (h *Host) SelectInterface(index int) error {
	if h.dev == nil {
		return pkg.ErrNoDevice
	}
	if index < 0 || index >= len(h.dev.interfaces) {
		return pkg.ErrInvalidParameter
	}
	h.dev.selected = index
	return nil
}

// Process runs one step of the host state machine.
func (h *Host) Process() error {
	if !h.running {
		return pkg.ErrNotRunning
	}

	connected := h.hal.PortStatus().Connected
	if !connected && h.state != StateIdle {
		h.detach()
		return nil
	}

	switch h.state {
	case StateIdle:
		if connected {
			pkg.LogInfo(pkg.ComponentHost, "device connected")
			h.state = StateEnumeration
			h.emit(EventConnection)
		}

	case StateEnumeration:
		dev, err := h.enumerate(h.ctx)
		if err != nil {
			pkg.LogWarn(pkg.ComponentHost, "enumeration failed", "error", err)
			h.abort()
			return err
		}
		h.dev = dev
		h.state = StateClassSelect
		pkg.LogInfo(pkg.ComponentHost, "device enumerated",
			"address", dev.address,
			"vendor", dev.descriptor.VendorID,
			"product", dev.descriptor.ProductID)

	case StateClassSelect:
		c := h.matchClass()
		if c == nil {
			pkg.LogWarn(pkg.ComponentHost, "no class driver for device")
			h.abort()
			return pkg.ErrNoInterface
		}
		h.active = c
		if err := c.Init(h); err != nil {
			pkg.LogWarn(pkg.ComponentHost, "class init failed",
				"class", c.Name(), "error", err)
			h.abort()
			return err
		}
		h.state = StateClassRequest

	case StateClassRequest:
		err := h.active.ClassRequest(h)
		switch {
		case err == nil:
			h.state = StateClass
			pkg.LogInfo(pkg.ComponentHost, "class active", "class", h.active.Name())
			h.emit(EventClassActive)
		case errors.Is(err, pkg.ErrBusy):
		default:
			pkg.LogWarn(pkg.ComponentHost, "class request failed",
				"class", h.active.Name(), "error", err)
			h.abort()
			return err
		}

	case StateClass:
		h.checkFaults()
		return h.active.Process(h)

	case StateAbort:
		// Held until the device is unplugged
	}

	return nil
}

// StartOfFrame forwards a start-of-frame tick to the active class.
func (h *Host) StartOfFrame() error {
	if h.state != StateClass {
		return nil
	}
	return h.active.SOFProcess(h)
}

// matchClass returns the first registered class whose code matches an
// interface of the attached device.
func (h *Host) matchClass() Class {
	for i := 0; i < h.numClasses; i++ {
		c := h.classes[i]
		if h.dev.FindInterface(c.ClassCode(), AnyValue, AnyValue) != NoInterface {
			return c
		}
	}
	return nil
}

// abort parks the host until disconnection.
func (h *Host) abort() {
	h.state = StateAbort
	h.emit(EventUnrecoveredError)
}

// detach releases the class, its pipes and the device, then returns to idle.
func (h *Host) detach() {
	if h.active != nil {
		if err := h.active.DeInit(h); err != nil {
			pkg.LogWarn(pkg.ComponentHost, "class deinit failed",
				"class", h.active.Name(), "error", err)
		}
		h.active = nil
	}

	h.releasePipes()

	if h.dev != nil {
		h.dev.close()
		h.dev = nil
	}

	h.state = StateIdle
	pkg.LogInfo(pkg.ComponentHost, "device disconnected")
	h.emit(EventDisconnection)
}

func (h *Host) emit(e Event) {
	if h.onEvent != nil {
		h.onEvent(h, e)
	}
}
