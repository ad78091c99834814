package synth

import (
	"fmt"
	"math/rand/v2"

	"github.com/ardnew/softpluck/audio"
	"github.com/ardnew/softpluck/pkg"
)

// Engine defaults.
const (
	DefaultFrames    = 4096
	DefaultChannels  = 2
	DefaultCapacity  = 2048
	DefaultPeak      = 32760
	DefaultNoiseSeed = 8675309
)

// Config describes the engine's buffers and excitation.
type Config struct {
	Frames   int    // Frames in the output buffer; must be even
	Channels int    // Interleaved output channels, 1 or 2
	Capacity int    // Delay-line capacity in samples; power of two
	Peak     int16  // Peak excitation amplitude
	Seed     uint64 // Excitation noise seed
}

// DefaultConfig returns the instrument's stock engine configuration.
func DefaultConfig() Config {
	return Config{
		Frames:   DefaultFrames,
		Channels: DefaultChannels,
		Capacity: DefaultCapacity,
		Peak:     DefaultPeak,
		Seed:     DefaultNoiseSeed,
	}
}

// Validate reports whether the configuration can build an engine.
func (c Config) Validate() error {
	switch {
	case c.Frames < 2 || c.Frames%2 != 0:
		return fmt.Errorf("synth: frames %d not a positive even number: %w", c.Frames, pkg.ErrInvalidConfig)
	case c.Channels != 1 && c.Channels != 2:
		return fmt.Errorf("synth: %d channels: %w", c.Channels, pkg.ErrInvalidConfig)
	case c.Peak <= 0:
		return fmt.Errorf("synth: peak %d: %w", c.Peak, pkg.ErrInvalidConfig)
	}
	return nil
}

// Engine is a monophonic Karplus-Strong plucked-string synthesizer. It owns
// the delay line and an interleaved output buffer that an audio peripheral
// streams in halves. Every method runs on the main loop.
type Engine struct {
	out      []int16
	channels int
	frames   int

	line  *Ring
	idx   Index
	delay uint32

	done audio.Section

	peak int
	rng  *rand.Rand
}

// New creates an engine with a zeroed output buffer, a zeroed delay line at
// index 0, delay 0 and no section processed.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	line, err := NewRing(cfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("synth: delay line capacity %d: %w", cfg.Capacity, err)
	}

	e := &Engine{
		out:      make([]int16, cfg.Frames*cfg.Channels),
		channels: cfg.Channels,
		frames:   cfg.Frames,
		line:     line,
		idx:      line.Index(0),
		done:     audio.SectionNone,
		peak:     int(cfg.Peak),
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
	}

	pkg.LogDebug(pkg.ComponentSynth, "engine initialized",
		"frames", cfg.Frames, "channels", cfg.Channels, "capacity", cfg.Capacity)
	return e, nil
}

// Output returns the interleaved output buffer.
func (e *Engine) Output() []int16 {
	return e.out
}

// Channels returns the number of interleaved output channels.
func (e *Engine) Channels() int {
	return e.channels
}

// Delay returns the current delay length in samples.
func (e *Engine) Delay() int {
	return int(e.delay)
}

// Processed returns the section most recently regenerated.
func (e *Engine) Processed() audio.Section {
	return e.done
}

// Line returns the delay line.
func (e *Engine) Line() *Ring {
	return e.line
}

// Position returns the delay line's read/write index.
func (e *Engine) Position() Index {
	return e.idx
}

// Reconfigure plucks the string with a new delay length. It seeds delay
// samples of uniform noise in [-peak, peak] from position 0, zeroes the rest
// of the line, moves the read/write index just past the noise and marks no
// section processed. delay must be less than the line capacity.
func (e *Engine) Reconfigure(delay uint16) error {
	if int(delay) >= e.line.Cap() {
		return pkg.ErrInvalidParameter
	}

	e.delay = uint32(delay)
	e.done = audio.SectionNone

	i := e.line.Index(0)
	for n := 0; n < int(delay); n++ {
		e.line.Set(i, int16(e.rng.IntN(2*e.peak+1)-e.peak))
		i = i.Add(1)
	}
	e.line.Clear(i)
	e.idx = i
	return nil
}

// Pluck reconfigures the engine for a MIDI key.
func (e *Engine) Pluck(key uint8) error {
	delay, err := DelayForKey(key)
	if err != nil {
		return err
	}
	return e.Reconfigure(delay)
}

// Process regenerates the half of the output buffer named by ready if it
// differs from the last one processed. It returns the number of frames
// written.
func (e *Engine) Process(ready audio.Section) int {
	if ready == e.done {
		return 0
	}

	half := e.frames / 2
	start := half
	if ready == audio.SectionFirstHalf {
		start = 0
	}

	out := e.out[start*e.channels : (start+half)*e.channels]
	for f := 0; f < len(out); f += e.channels {
		e.step(out[f : f+e.channels])
	}

	e.done = ready
	return half
}

// step computes one output frame: y[n] = round((y[n-D] + y[n-D-1]) / 2).
func (e *Engine) step(frame []int16) {
	tap := e.idx.Sub(e.delay)
	result := average(e.line.At(tap), e.line.At(tap.Sub(1)))

	for c := range frame {
		frame[c] = result
	}

	e.line.Set(e.idx, result)
	e.idx = e.idx.Add(1)
}

// average returns the mean of a and b rounded half away from zero.
func average(a, b int16) int16 {
	s := int32(a) + int32(b)
	if s >= 0 {
		return int16((s + 1) / 2)
	}
	return int16((s - 1) / 2)
}
