package synth

import (
	"errors"
	"testing"

	"github.com/ardnew/softpluck/audio"
	"github.com/ardnew/softpluck/pkg"
)

// =============================================================================
// Ring Tests
// =============================================================================

func TestNewRing(t *testing.T) {
	tests := []struct {
		capacity int
		wantErr  bool
	}{
		{1, false},
		{2, false},
		{2048, false},
		{0, true},
		{-4, true},
		{3, true},
		{1000, true},
		{2049, true},
	}

	for _, tt := range tests {
		r, err := NewRing(tt.capacity)
		if tt.wantErr {
			if !errors.Is(err, pkg.ErrNotPowerOfTwo) {
				t.Errorf("NewRing(%d) error = %v, want ErrNotPowerOfTwo", tt.capacity, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewRing(%d) error = %v", tt.capacity, err)
			continue
		}
		if r.Cap() != tt.capacity {
			t.Errorf("Cap() = %d, want %d", r.Cap(), tt.capacity)
		}
	}
}

func TestIndex_Wrap(t *testing.T) {
	r, _ := NewRing(8)

	tests := []struct {
		name string
		got  Index
		want int
	}{
		{"IndexWraps", r.Index(11), 3},
		{"IndexNegative", r.Index(-1), 7},
		{"AddWithin", r.Index(2).Add(3), 5},
		{"AddWraps", r.Index(6).Add(3), 1},
		{"AddCapacity", r.Index(4).Add(8), 4},
		{"SubWithin", r.Index(5).Sub(2), 3},
		{"SubWraps", r.Index(1).Sub(3), 6},
		{"SubLarge", r.Index(0).Sub(1603), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.Pos() != tt.want {
				t.Errorf("Pos() = %d, want %d", tt.got.Pos(), tt.want)
			}
		})
	}
}

func TestRing_SetAt(t *testing.T) {
	r, _ := NewRing(4)
	r.Set(r.Index(5), 42)
	if got := r.At(r.Index(1)); got != 42 {
		t.Errorf("At(1) = %d, want 42", got)
	}

	for i := 0; i < 4; i++ {
		r.Set(r.Index(i), 7)
	}
	r.Clear(r.Index(2))
	want := []int16{7, 7, 0, 0}
	for i, w := range want {
		if got := r.At(r.Index(i)); got != w {
			t.Errorf("At(%d) = %d, want %d", i, got, w)
		}
	}
}

// =============================================================================
// Delay Table Tests
// =============================================================================

func TestTableIndex(t *testing.T) {
	tests := []struct {
		key    uint8
		want   int
		wantOK bool
	}{
		{69, 39, true},
		{21, 87, true},
		{108, 0, true},
		{60, 48, true},
		{20, 0, false},
		{109, 0, false},
		{0, 0, false},
		{127, 0, false},
	}

	for _, tt := range tests {
		got, ok := TableIndex(tt.key)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("TableIndex(%d) = %d, %v; want %d, %v", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDelayForKey(t *testing.T) {
	tests := []struct {
		key     uint8
		want    uint16
		wantErr error
	}{
		{69, 100, nil},
		{108, 10, nil},
		{21, MaxDelay, nil},
		{20, 0, pkg.ErrKeyOutOfRange},
		{109, 0, pkg.ErrKeyOutOfRange},
	}

	for _, tt := range tests {
		got, err := DelayForKey(tt.key)
		if !errors.Is(err, tt.wantErr) || got != tt.want {
			t.Errorf("DelayForKey(%d) = %d, %v; want %d, %v", tt.key, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestDelayTable_Monotonic(t *testing.T) {
	for i := 1; i < NumKeys; i++ {
		if DelayAt(i) < DelayAt(i-1) {
			t.Errorf("delay[%d] = %d < delay[%d] = %d", i, DelayAt(i), i-1, DelayAt(i-1))
		}
	}
	if DelayAt(NumKeys-1) != MaxDelay {
		t.Errorf("last entry = %d, want %d", DelayAt(NumKeys-1), MaxDelay)
	}
	if MaxDelay >= DefaultCapacity {
		t.Errorf("MaxDelay %d does not fit default capacity %d", MaxDelay, DefaultCapacity)
	}
}

// =============================================================================
// Engine Tests
// =============================================================================

func newEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestNew(t *testing.T) {
	e := newEngine(t, DefaultConfig())

	if len(e.Output()) != DefaultFrames*DefaultChannels {
		t.Errorf("len(Output()) = %d, want %d", len(e.Output()), DefaultFrames*DefaultChannels)
	}
	if e.Delay() != 0 || e.Position().Pos() != 0 || e.Processed() != audio.SectionNone {
		t.Errorf("initial delay=%d pos=%d done=%v", e.Delay(), e.Position().Pos(), e.Processed())
	}
	if e.Line().Cap() != DefaultCapacity || e.Channels() != DefaultChannels {
		t.Errorf("capacity=%d channels=%d", e.Line().Cap(), e.Channels())
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"OddFrames", func(c *Config) { c.Frames = 4095 }, pkg.ErrInvalidConfig},
		{"ZeroFrames", func(c *Config) { c.Frames = 0 }, pkg.ErrInvalidConfig},
		{"ThreeChannels", func(c *Config) { c.Channels = 3 }, pkg.ErrInvalidConfig},
		{"ZeroPeak", func(c *Config) { c.Peak = 0 }, pkg.ErrInvalidConfig},
		{"Capacity", func(c *Config) { c.Capacity = 2000 }, pkg.ErrNotPowerOfTwo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg); !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEngine_ReconfigureSeeds(t *testing.T) {
	for _, delay := range []uint16{0, 1, 10, 100, MaxDelay} {
		e := newEngine(t, DefaultConfig())

		// Dirty the line so zero-filling is observable
		for i := 0; i < e.Line().Cap(); i++ {
			e.Line().Set(e.Line().Index(i), 1)
		}

		if err := e.Reconfigure(delay); err != nil {
			t.Fatalf("Reconfigure(%d) error = %v", delay, err)
		}
		if e.Delay() != int(delay) || e.Position().Pos() != int(delay) {
			t.Errorf("delay=%d pos=%d, want %d", e.Delay(), e.Position().Pos(), delay)
		}

		nonZero := 0
		for i := 0; i < int(delay); i++ {
			v := e.Line().At(e.Line().Index(i))
			if v < -DefaultPeak || v > DefaultPeak {
				t.Fatalf("seed[%d] = %d outside peak", i, v)
			}
			if v != 0 {
				nonZero++
			}
		}
		if delay >= 10 && nonZero == 0 {
			t.Errorf("delay %d seeded no noise", delay)
		}
		for i := int(delay); i < e.Line().Cap(); i++ {
			if v := e.Line().At(e.Line().Index(i)); v != 0 {
				t.Fatalf("delay %d: line[%d] = %d, want 0", delay, i, v)
			}
		}
	}
}

func TestEngine_ReconfigureRejectsCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 16
	e := newEngine(t, cfg)

	if err := e.Reconfigure(16); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("Reconfigure(capacity) error = %v, want ErrInvalidParameter", err)
	}
	if err := e.Reconfigure(15); err != nil {
		t.Errorf("Reconfigure(capacity-1) error = %v", err)
	}
	if err := e.Pluck(21); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("Pluck(21) on short line error = %v, want ErrInvalidParameter", err)
	}
}

func TestEngine_ReconfigureResetsMarker(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	e.Process(audio.SectionSecondHalf)
	if e.Processed() != audio.SectionSecondHalf {
		t.Fatalf("Processed() = %v", e.Processed())
	}
	_ = e.Pluck(69)
	if e.Processed() != audio.SectionNone {
		t.Errorf("Processed() after pluck = %v, want None", e.Processed())
	}
	if n := e.Process(audio.SectionSecondHalf); n != DefaultFrames/2 {
		t.Errorf("Process() after pluck = %d frames, want %d", n, DefaultFrames/2)
	}
}

func TestEngine_Deterministic(t *testing.T) {
	a := newEngine(t, DefaultConfig())
	b := newEngine(t, DefaultConfig())
	_ = a.Pluck(60)
	_ = b.Pluck(60)
	a.Process(audio.SectionFirstHalf)
	b.Process(audio.SectionFirstHalf)

	for i := range a.Output() {
		if a.Output()[i] != b.Output()[i] {
			t.Fatalf("output[%d] differs: %d vs %d", i, a.Output()[i], b.Output()[i])
		}
	}

	cfg := DefaultConfig()
	cfg.Seed++
	c := newEngine(t, cfg)
	_ = c.Pluck(60)
	same := true
	for i := 0; i < c.Delay(); i++ {
		if c.Line().At(c.Line().Index(i)) != a.Line().At(a.Line().Index(i)) {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical excitation")
	}
}

func TestAverage(t *testing.T) {
	tests := []struct {
		a, b int16
		want int16
	}{
		{0, 0, 0},
		{2, 4, 3},
		{1, 2, 2},
		{-1, -2, -2},
		{-1, 2, 1},
		{1, -2, -1},
		{32767, 32767, 32767},
		{-32768, -32768, -32768},
		{32767, -32768, -1},
	}

	for _, tt := range tests {
		if got := average(tt.a, tt.b); got != tt.want {
			t.Errorf("average(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestEngine_FilterStep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 8
	e := newEngine(t, cfg)

	// Line [0..7] = 10,20,30,...,80; D = 3; idx = 5
	for i := 0; i < 8; i++ {
		e.Line().Set(e.Line().Index(i), int16(10*(i+1)))
	}
	e.delay = 3
	e.idx = e.Line().Index(5)

	frame := make([]int16, 2)
	e.step(frame)

	// Taps at 2 and 1: (30 + 20) / 2
	if frame[0] != 25 || frame[1] != 25 {
		t.Errorf("frame = %v, want [25 25]", frame)
	}
	if got := e.Line().At(e.Line().Index(5)); got != 25 {
		t.Errorf("line[5] = %d, want 25", got)
	}
	if e.Position().Pos() != 6 {
		t.Errorf("Position() = %d, want 6", e.Position().Pos())
	}

	// Wrap: idx 7 to 0, taps at 4 and 3
	e.idx = e.Line().Index(7)
	e.step(frame)
	if frame[0] != 45 || e.Position().Pos() != 0 {
		t.Errorf("wrap step = %d pos %d, want 45 pos 0", frame[0], e.Position().Pos())
	}

	// Taps behind zero wrap to the end of the line
	e.step(frame)
	if want := average(e.Line().At(e.Line().Index(5)), e.Line().At(e.Line().Index(4))); frame[0] != want {
		t.Errorf("step at 0 = %d, want %d", frame[0], want)
	}
}

func TestEngine_Process(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Frames = 16
	e := newEngine(t, cfg)
	_ = e.Pluck(108)

	if n := e.Process(audio.SectionNone); n != 0 {
		t.Errorf("Process(None) = %d, want 0", n)
	}

	if n := e.Process(audio.SectionFirstHalf); n != 8 {
		t.Fatalf("Process(First) = %d, want 8", n)
	}
	out := e.Output()
	for f := 8; f < 16; f++ {
		if out[2*f] != 0 || out[2*f+1] != 0 {
			t.Fatalf("second half written while processing first (frame %d)", f)
		}
	}
	for f := 0; f < 8; f++ {
		if out[2*f] != out[2*f+1] {
			t.Fatalf("frame %d not duplicated: %d %d", f, out[2*f], out[2*f+1])
		}
	}
	if e.Position().Pos() != 10+8 {
		t.Errorf("Position() = %d, want 18", e.Position().Pos())
	}

	if n := e.Process(audio.SectionFirstHalf); n != 0 {
		t.Errorf("repeated Process() = %d frames, want 0", n)
	}
	if e.Position().Pos() != 18 {
		t.Error("repeated Process() advanced the line")
	}

	if n := e.Process(audio.SectionSecondHalf); n != 8 {
		t.Errorf("Process(Second) = %d, want 8", n)
	}
	if e.Processed() != audio.SectionSecondHalf {
		t.Errorf("Processed() = %v", e.Processed())
	}
}

func TestEngine_ProcessMono(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Frames = 8
	cfg.Channels = 1
	e := newEngine(t, cfg)
	_ = e.Pluck(100)

	e.Process(audio.SectionSecondHalf)
	out := e.Output()
	for i := 0; i < 4; i++ {
		if out[i] != 0 {
			t.Fatalf("first half sample %d written", i)
		}
	}
}

// A4 settles into a decaying periodic tone: each period repeats at lower
// amplitude and the output never exceeds the excitation peak.
func TestEngine_Decay(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	_ = e.Pluck(69)

	var first, last int64
	for pass := 0; pass < 20; pass++ {
		e.Process(audio.SectionFirstHalf)
		e.Process(audio.SectionSecondHalf)

		var energy int64
		for _, v := range e.Output() {
			if v < -DefaultPeak || v > DefaultPeak {
				t.Fatalf("sample %d outside peak", v)
			}
			energy += int64(v) * int64(v)
		}
		if pass == 0 {
			first = energy
		}
		last = energy
	}

	if first == 0 {
		t.Fatal("plucked string produced silence")
	}
	if last >= first {
		t.Errorf("energy did not decay: first %d, last %d", first, last)
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkEngine_Process(b *testing.B) {
	e, _ := New(DefaultConfig())
	_ = e.Pluck(69)
	sections := [2]audio.Section{audio.SectionFirstHalf, audio.SectionSecondHalf}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Process(sections[i&1])
	}
}

func BenchmarkEngine_Reconfigure(b *testing.B) {
	e, _ := New(DefaultConfig())

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Reconfigure(MaxDelay)
	}
}
