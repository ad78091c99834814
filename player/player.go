package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardnew/softpluck/audio"
	"github.com/ardnew/softpluck/config"
	"github.com/ardnew/softpluck/host"
	"github.com/ardnew/softpluck/host/class/usbmidi"
	"github.com/ardnew/softpluck/pkg"
	"github.com/ardnew/softpluck/synth"
)

// Stats counts player activity.
type Stats struct {
	Regenerations uint64 // Half buffers refilled
	Packets       uint64 // Event packets decoded
	Notes         uint64 // Note-On events that plucked the string
	Ignored       uint64 // Note-On events for keys outside the piano range
	RearmFailures uint64 // Receive re-arms the transport refused
}

// Player ties the USB-MIDI transport to the synthesis engine and the audio
// output. Every method runs on the main loop except the audio peripheral's
// completion notifications, which only touch the section flag.
type Player struct {
	cfg    config.Config
	tr     *usbmidi.Transport
	periph audio.Peripheral

	engine *synth.Engine
	coord  *audio.Coordinator

	rxBuf []byte

	started bool
	stats   Stats
}

// New creates a player. It builds the engine and the double-buffer
// coordinator and registers itself as the transport's receive handler.
func New(cfg config.Config, tr *usbmidi.Transport, periph audio.Peripheral) (*Player, error) {
	if tr == nil || periph == nil {
		return nil, pkg.ErrInvalidParameter
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine, err := synth.New(cfg.SynthConfig())
	if err != nil {
		return nil, err
	}

	p := &Player{
		cfg:    cfg,
		tr:     tr,
		periph: periph,
		engine: engine,
		coord:  audio.NewCoordinator(periph, engine.Output()),
		rxBuf:  make([]byte, cfg.MIDI.RxBuffer),
	}
	tr.SetOnReceive(p.dispatch)
	return p, nil
}

// Engine returns the synthesis engine.
func (p *Player) Engine() *synth.Engine {
	return p.engine
}

// Coordinator returns the double-buffer coordinator.
func (p *Player) Coordinator() *audio.Coordinator {
	return p.coord
}

// Stats returns a snapshot of the activity counters.
func (p *Player) Stats() Stats {
	return p.stats
}

// Start initializes the audio peripheral and starts streaming the output
// buffer.
func (p *Player) Start() error {
	if p.started {
		return pkg.ErrAlreadyRunning
	}

	a := p.cfg.Audio
	if err := p.periph.Init(p.cfg.OutputDevice(), a.Volume, a.SampleRate); err != nil {
		return fmt.Errorf("player: init audio: %w", err)
	}
	if err := p.coord.Start(); err != nil {
		return fmt.Errorf("player: %w", err)
	}

	p.started = true
	pkg.LogInfo(pkg.ComponentPlayer, "player started",
		"output", a.Output, "volume", a.Volume, "rate", a.SampleRate)
	return nil
}

// Play runs one synthesis tick: it regenerates the half buffer the
// peripheral has just consumed, if any. It returns the frames written.
func (p *Player) Play() int {
	n := p.engine.Process(p.coord.Ready())
	if n > 0 {
		p.stats.Regenerations++
	}
	return n
}

// HandleHostEvent reacts to host lifecycle events. Pass it to [host.New].
func (p *Player) HandleHostEvent(h *host.Host, e host.Event) {
	switch e {
	case host.EventClassActive:
		if h.ActiveClass() != p.tr {
			return
		}
		if err := p.tr.Receive(p.rxBuf); err != nil {
			pkg.LogWarn(pkg.ComponentPlayer, "receive not armed", "error", err)
			p.stats.RearmFailures++
			return
		}
		if dev := h.Device(); dev != nil {
			pkg.LogInfo(pkg.ComponentPlayer, "keyboard ready", "product", dev.Product())
		}

	case host.EventDisconnection:
		if err := p.tr.Stop(); err != nil {
			pkg.LogWarn(pkg.ComponentPlayer, "transport stop failed", "error", err)
		}
		pkg.LogInfo(pkg.ComponentPlayer, "keyboard removed")

	case host.EventUnrecoveredError:
		pkg.LogWarn(pkg.ComponentPlayer, "keyboard unusable until replugged")
	}
}

// dispatch handles a completed reception: every Note-On with a key on the
// piano plucks the string, then reception is re-armed with the same buffer.
func (p *Player) dispatch(data []byte) {
	p.stats.Packets += uint64(usbmidi.Decode(data, func(pkt usbmidi.Packet) {
		if !pkt.IsNoteOn() {
			return
		}
		key := pkt.Key()
		if err := p.engine.Pluck(key); err != nil {
			p.stats.Ignored++
			pkg.LogDebug(pkg.ComponentPlayer, "note ignored", "key", key, "error", err)
			return
		}
		p.stats.Notes++
		pkg.LogDebug(pkg.ComponentPlayer, "note", "packet", pkt, "delay", p.engine.Delay())
	}))

	if err := p.tr.Receive(p.rxBuf); err != nil {
		p.stats.RearmFailures++
		pkg.LogWarn(pkg.ComponentPlayer, "receive re-arm failed", "error", err)
	}
}

// Step runs one main-loop iteration: a host tick, which drives the
// transport, then a synthesis tick.
func (p *Player) Step(h *host.Host) error {
	err := h.Process()
	if err == nil {
		err = h.StartOfFrame()
	}
	p.Play()
	return err
}

// Run drives Step until ctx is done or the host stops. Host errors other
// than a stopped host are logged and the loop continues.
func (p *Player) Run(ctx context.Context, h *host.Host) error {
	interval := p.cfg.Loop.PollInterval
	var timer *time.Timer
	if interval > 0 {
		timer = time.NewTimer(interval)
		defer timer.Stop()
	}

	defer func() {
		s := p.stats
		pkg.LogInfo(pkg.ComponentPlayer, "player stopped",
			"regenerations", s.Regenerations, "notes", s.Notes, "ignored", s.Ignored)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := p.Step(h); err != nil {
			if errors.Is(err, pkg.ErrNotRunning) {
				return err
			}
			pkg.LogWarn(pkg.ComponentPlayer, "host step failed", "error", err)
		}

		if timer != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				timer.Reset(interval)
			}
		}
	}
}
