package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ardnew/softpluck/audio"
	"github.com/ardnew/softpluck/config"
	"github.com/ardnew/softpluck/host"
	"github.com/ardnew/softpluck/host/class/usbmidi"
	"github.com/ardnew/softpluck/host/hal/sim"
	"github.com/ardnew/softpluck/pkg"
	"github.com/ardnew/softpluck/synth"
)

// =============================================================================
// Helpers
// =============================================================================

type rig struct {
	cfg   config.Config
	ctl   *sim.Controller
	kb    *sim.Keyboard
	tr    *usbmidi.Transport
	out   *audio.Headless
	p     *Player
	h     *host.Host
	ticks int
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Audio.Frames = 64
	return cfg
}

func newRig(t *testing.T, cfg config.Config) *rig {
	t.Helper()

	r := &rig{
		cfg: cfg,
		ctl: sim.New(0),
		kb:  sim.NewKeyboard(),
		tr:  usbmidi.New(),
		out: audio.NewHeadless(cfg.Audio.Channels),
	}

	p, err := New(cfg, r.tr, r.out)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r.p = p
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	r.h = host.New(r.ctl, p.HandleHostEvent)
	if err := r.h.RegisterClass(r.tr); err != nil {
		t.Fatalf("RegisterClass() error = %v", err)
	}
	if err := r.h.Start(context.Background()); err != nil {
		t.Fatalf("host Start() error = %v", err)
	}
	r.ctl.Attach(r.kb)

	r.step(8)
	if r.h.State() != host.StateClass {
		t.Fatalf("host state = %v, want Class", r.h.State())
	}
	if r.tr.RxState() == usbmidi.RxIdle {
		t.Fatal("no reception armed after class activation")
	}
	return r
}

func (r *rig) step(n int) {
	for i := 0; i < n; i++ {
		_ = r.p.Step(r.h)
		r.ticks++
	}
}

// =============================================================================
// Construction Tests
// =============================================================================

func TestNew_Errors(t *testing.T) {
	cfg := testConfig()

	if _, err := New(cfg, nil, audio.NewHeadless(2)); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("New(nil transport) error = %v", err)
	}
	if _, err := New(cfg, usbmidi.New(), nil); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("New(nil peripheral) error = %v", err)
	}

	cfg.MIDI.RxBuffer = 3
	if _, err := New(cfg, usbmidi.New(), audio.NewHeadless(2)); !errors.Is(err, pkg.ErrInvalidConfig) {
		t.Errorf("New(bad config) error = %v", err)
	}
}

func TestStart(t *testing.T) {
	out := audio.NewHeadless(2)
	p, err := New(testConfig(), usbmidi.New(), out)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !out.Playing() || out.SampleRate() != config.DefaultSampleRate {
		t.Errorf("peripheral playing=%v rate=%d", out.Playing(), out.SampleRate())
	}
	if err := p.Start(); !errors.Is(err, pkg.ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v", err)
	}

	cfg := testConfig()
	cfg.Audio.Volume = 200
	p, _ = New(config.Default(), usbmidi.New(), audio.NewHeadless(2))
	p.cfg = cfg
	if err := p.Start(); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("Start() with volume 200 error = %v", err)
	}
}

// =============================================================================
// Dispatch Tests
// =============================================================================

func TestDispatch(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		wantDelay int
		notes     uint64
		ignored   uint64
		packets   uint64
	}{
		{
			"NoteOnA4",
			[]byte{0x09, 0x90, 69, 100},
			100, 1, 0, 1,
		},
		{
			"LastNoteWins",
			[]byte{0x09, 0x90, 108, 100, 0x09, 0x93, 21, 1},
			synth.MaxDelay, 2, 0, 2,
		},
		{
			"NoteOffIgnored",
			[]byte{0x08, 0x80, 60, 0},
			0, 0, 0, 1,
		},
		{
			"ControlChangeIgnored",
			[]byte{0x0B, 0xB0, 7, 100},
			0, 0, 0, 1,
		},
		{
			"KeyBelowPiano",
			[]byte{0x09, 0x90, 20, 100},
			0, 0, 1, 1,
		},
		{
			"KeyAbovePiano",
			[]byte{0x09, 0x90, 120, 100},
			0, 0, 1, 1,
		},
		{
			"VelocityZeroPlucks",
			[]byte{0x09, 0x90, 108, 0},
			10, 1, 0, 1,
		},
		{
			"OtherCable",
			[]byte{0x29, 0x90, 69, 64},
			100, 1, 0, 1,
		},
		{
			"PartialPacketDropped",
			[]byte{0x09, 0x90, 69, 100, 0x09, 0x90},
			100, 1, 0, 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(testConfig(), usbmidi.New(), audio.NewHeadless(2))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			p.dispatch(tt.data)

			if got := p.Engine().Delay(); got != tt.wantDelay {
				t.Errorf("Delay() = %d, want %d", got, tt.wantDelay)
			}
			s := p.Stats()
			if s.Notes != tt.notes || s.Ignored != tt.ignored || s.Packets != tt.packets {
				t.Errorf("Stats() = %+v", s)
			}
			// No session, so the re-arm is refused and counted
			if s.RearmFailures != 1 {
				t.Errorf("RearmFailures = %d, want 1", s.RearmFailures)
			}
		})
	}
}

// =============================================================================
// Synthesis Tick Tests
// =============================================================================

func TestPlay_FollowsPeripheral(t *testing.T) {
	p, _ := New(testConfig(), usbmidi.New(), audio.NewHeadless(2))
	out := p.periph.(*audio.Headless)
	_ = p.Start()
	_ = p.Engine().Pluck(69)

	if n := p.Play(); n != 0 {
		t.Fatalf("Play() before any completion = %d", n)
	}

	out.Advance(32)
	if n := p.Play(); n != 32 {
		t.Fatalf("Play() after first half = %d, want 32", n)
	}
	if n := p.Play(); n != 0 {
		t.Errorf("repeated Play() = %d, want 0", n)
	}

	out.Advance(32)
	if n := p.Play(); n != 32 {
		t.Errorf("Play() after second half = %d, want 32", n)
	}
	if p.Stats().Regenerations != 2 {
		t.Errorf("Regenerations = %d, want 2", p.Stats().Regenerations)
	}
	if out.Underruns() != 0 {
		t.Errorf("Underruns() = %d, want 0", out.Underruns())
	}
}

// =============================================================================
// End-to-End Tests
// =============================================================================

func TestEndToEnd_NoteOnPlucks(t *testing.T) {
	r := newRig(t, testConfig())

	if err := r.kb.Press(0, 69, 100); err != nil {
		t.Fatalf("Press() error = %v", err)
	}
	r.step(4)

	if r.p.Engine().Delay() != 100 {
		t.Fatalf("Delay() = %d, want 100", r.p.Engine().Delay())
	}
	if r.tr.RxState() == usbmidi.RxIdle {
		t.Error("reception not re-armed after dispatch")
	}

	// One Process per flag transition regenerates both halves
	var captured []int16
	r.out.SetSink(func(s []int16) { captured = append(captured, s...) })

	r.out.Advance(32)
	r.step(1)
	r.out.Advance(32)
	r.step(1)
	if r.p.Stats().Regenerations != 2 {
		t.Fatalf("Regenerations = %d, want 2", r.p.Stats().Regenerations)
	}

	r.out.Advance(64)
	r.step(1)
	silent := true
	for _, v := range captured[len(captured)-128:] {
		if v != 0 {
			silent = false
			break
		}
	}
	if silent {
		t.Error("second pass after the pluck is silent")
	}
}

func TestEndToEnd_Receive256(t *testing.T) {
	cfg := testConfig()
	cfg.MIDI.RxBuffer = 256
	r := newRig(t, cfg)

	var sizes []int
	r.tr.SetOnReceive(func(data []byte) {
		sizes = append(sizes, len(data))
		r.p.dispatch(data)
	})

	for i := 0; i < 64; i++ {
		_ = r.kb.Press(0, uint8(21+i%88), 90)
	}
	r.step(10)

	if len(sizes) != 1 || sizes[0] != 256 {
		t.Fatalf("receive completions = %v, want [256]", sizes)
	}
	if s := r.p.Stats(); s.Packets != 64 || s.Notes != 64 || s.RearmFailures != 0 {
		t.Errorf("Stats() = %+v", s)
	}
	if r.tr.RxState() == usbmidi.RxIdle {
		t.Error("256-byte reception not re-armed")
	}
	if st := r.ctl.Stats(); st.InPkts != 4 {
		t.Errorf("IN packets = %d, want 4", st.InPkts)
	}
}

func TestEndToEnd_StallTransparent(t *testing.T) {
	r := newRig(t, testConfig())

	r.ctl.InjectStall(sim.KeyboardIn)
	r.step(2)
	_ = r.kb.Press(0, 108, 80)
	r.step(4)

	if r.p.Engine().Delay() != 10 {
		t.Errorf("Delay() after stall = %d, want 10", r.p.Engine().Delay())
	}
	if r.ctl.Halted(sim.KeyboardIn) {
		t.Error("endpoint still halted")
	}
}

func TestEndToEnd_Replug(t *testing.T) {
	r := newRig(t, testConfig())

	r.ctl.Detach()
	r.step(1)
	if r.tr.Configured() {
		t.Fatal("transport configured after unplug")
	}

	// Synthesis carries on without a keyboard
	r.out.Advance(32)
	if n := r.p.Play(); n != 32 {
		t.Errorf("Play() while unplugged = %d", n)
	}

	r.ctl.Attach(r.kb)
	r.step(8)
	_ = r.kb.Press(0, 60, 90)
	r.step(4)

	want, _ := synth.DelayForKey(60)
	if r.p.Engine().Delay() != int(want) {
		t.Errorf("Delay() after replug = %d, want %d", r.p.Engine().Delay(), want)
	}
}

func TestRun(t *testing.T) {
	cfg := testConfig()
	cfg.Loop.PollInterval = 100 * time.Microsecond
	r := newRig(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_ = r.kb.Press(0, 69, 100)
	if err := r.p.Run(ctx, r.h); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want DeadlineExceeded", err)
	}
	if r.p.Engine().Delay() != 100 {
		t.Errorf("Delay() = %d, want 100", r.p.Engine().Delay())
	}

	_ = r.h.Stop()
	if err := r.p.Run(context.Background(), r.h); !errors.Is(err, pkg.ErrNotRunning) {
		t.Errorf("Run() on stopped host error = %v, want ErrNotRunning", err)
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkDispatch(b *testing.B) {
	p, _ := New(config.Default(), usbmidi.New(), audio.NewHeadless(2))
	data := make([]byte, 64)
	for i := 0; i < len(data); i += 4 {
		copy(data[i:], []byte{0x09, 0x90, 69, 100})
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.dispatch(data)
	}
}
