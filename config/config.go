package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ardnew/softpluck/audio"
	"github.com/ardnew/softpluck/host/class/usbmidi"
	"github.com/ardnew/softpluck/pkg"
	"github.com/ardnew/softpluck/synth"
)

// Audio output defaults.
const (
	DefaultSampleRate = 44100
	DefaultVolume     = 70
	DefaultOutput     = "headphone"
)

// DefaultRxBuffer is the size in bytes of the MIDI receive buffer.
const DefaultRxBuffer = 64

// Audio configures the output peripheral and the output buffer.
type Audio struct {
	SampleRate uint32 `yaml:"sample_rate"`
	Volume     uint8  `yaml:"volume"`
	Output     string `yaml:"output"`
	Frames     int    `yaml:"frames"`
	Channels   int    `yaml:"channels"`
}

// Synth configures the string model.
type Synth struct {
	Capacity int    `yaml:"capacity"`
	Peak     int16  `yaml:"peak"`
	Seed     uint64 `yaml:"seed"`
}

// MIDI configures the USB-MIDI receive path.
type MIDI struct {
	RxBuffer int `yaml:"rx_buffer"`
}

// Log configures component logging.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Loop configures the main loop.
type Loop struct {
	// PollInterval is the pause between iterations. Zero spins.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Config is the complete instrument configuration.
type Config struct {
	Audio Audio `yaml:"audio"`
	Synth Synth `yaml:"synth"`
	MIDI  MIDI  `yaml:"midi"`
	Log   Log   `yaml:"log"`
	Loop  Loop  `yaml:"loop"`
}

// Default returns the instrument's stock configuration.
func Default() Config {
	return Config{
		Audio: Audio{
			SampleRate: DefaultSampleRate,
			Volume:     DefaultVolume,
			Output:     DefaultOutput,
			Frames:     synth.DefaultFrames,
			Channels:   synth.DefaultChannels,
		},
		Synth: Synth{
			Capacity: synth.DefaultCapacity,
			Peak:     synth.DefaultPeak,
			Seed:     synth.DefaultNoiseSeed,
		},
		MIDI: MIDI{
			RxBuffer: DefaultRxBuffer,
		},
		Log: Log{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads a YAML file over the defaults. Fields absent from the file keep
// their default; unknown fields are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if err := c.SynthConfig().Validate(); err != nil {
		return err
	}

	invalid := func(format string, args ...any) error {
		return fmt.Errorf("config: "+format+": %w", append(args, pkg.ErrInvalidConfig)...)
	}

	switch {
	case c.Audio.SampleRate == 0:
		return invalid("sample_rate must be positive")
	case c.Audio.Volume > audio.MaxVolume:
		return invalid("volume %d exceeds %d", c.Audio.Volume, audio.MaxVolume)
	case c.Synth.Capacity <= synth.MaxDelay:
		return invalid("capacity %d must exceed the longest delay %d", c.Synth.Capacity, synth.MaxDelay)
	case c.MIDI.RxBuffer <= 0 || c.MIDI.RxBuffer%usbmidi.PacketSize != 0:
		return invalid("rx_buffer %d must be a positive multiple of %d", c.MIDI.RxBuffer, usbmidi.PacketSize)
	case c.Loop.PollInterval < 0:
		return invalid("poll_interval %v is negative", c.Loop.PollInterval)
	}

	if _, ok := audio.ParseOutputDevice(c.Audio.Output); !ok {
		return invalid("unknown output %q", c.Audio.Output)
	}
	if _, ok := pkg.ParseLogLevel(c.Log.Level); !ok {
		return invalid("unknown log level %q", c.Log.Level)
	}
	if _, ok := parseLogFormat(c.Log.Format); !ok {
		return invalid("unknown log format %q", c.Log.Format)
	}

	if _, err := synth.NewRing(c.Synth.Capacity); err != nil {
		return fmt.Errorf("config: capacity %d: %w: %w", c.Synth.Capacity, err, pkg.ErrInvalidConfig)
	}
	return nil
}

// SynthConfig returns the engine configuration.
func (c Config) SynthConfig() synth.Config {
	return synth.Config{
		Frames:   c.Audio.Frames,
		Channels: c.Audio.Channels,
		Capacity: c.Synth.Capacity,
		Peak:     c.Synth.Peak,
		Seed:     c.Synth.Seed,
	}
}

// OutputDevice returns the configured output device.
func (c Config) OutputDevice() audio.OutputDevice {
	dev, ok := audio.ParseOutputDevice(c.Audio.Output)
	if !ok {
		return audio.OutputHeadphone
	}
	return dev
}

// LogLevel returns the configured log level.
func (c Config) LogLevel() slog.Level {
	level, _ := pkg.ParseLogLevel(c.Log.Level)
	return level
}

// LogFormat returns the configured log format.
func (c Config) LogFormat() pkg.LogFormat {
	format, _ := parseLogFormat(c.Log.Format)
	return format
}

// ApplyLogging configures the component loggers.
func (c Config) ApplyLogging() {
	pkg.SetLogFormat(c.LogFormat())
	pkg.SetLogLevel(c.LogLevel())
}

func parseLogFormat(name string) (pkg.LogFormat, bool) {
	switch name {
	case "", "text":
		return pkg.LogFormatText, true
	case "json":
		return pkg.LogFormatJSON, true
	default:
		return pkg.LogFormatText, false
	}
}
