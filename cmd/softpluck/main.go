// Command softpluck runs the plucked-string instrument against a simulated
// USB host controller with a virtual class-compliant MIDI keyboard attached.
//
// The full firmware stack runs unchanged: the host enumerates the keyboard,
// the USB-MIDI transport receives its events, and every Note-On plucks the
// Karplus-Strong string whose output streams to the sound card (or, built
// with -tags headless, to a silent real-time peripheral).
//
// Usage:
//
//	softpluck [options]
//
// Options:
//
//	-config path       YAML configuration file
//	-v                 Enable verbose (debug) logging
//	-json              Use JSON log format
//	-keys list         Comma-separated MIDI keys to play in sequence
//	-interval duration Time between keys from -keys (default: 500ms)
//	-smf path          Standard MIDI File to play through the keyboard
//	-term              Play from the computer keyboard
//	-duration duration Stop after this long (default: run until interrupted)
//	-cpuprofile path   Write a CPU profile (requires -tags profile)
//	-memprofile path   Write a heap profile on exit (requires -tags profile)
//	-pprof addr        Serve /debug/pprof/ on addr (requires -tags profile)
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardnew/softpluck/config"
	"github.com/ardnew/softpluck/host"
	"github.com/ardnew/softpluck/host/class/usbmidi"
	"github.com/ardnew/softpluck/host/hal/sim"
	"github.com/ardnew/softpluck/pkg"
	"github.com/ardnew/softpluck/pkg/prof"
	"github.com/ardnew/softpluck/player"
)

// component identifies this executable for structured logging.
const component pkg.Component = "softpluck"

// defaultPollInterval paces the main loop when the configuration leaves it
// spinning. It is far shorter than the time a half buffer takes to play.
const defaultPollInterval = 250 * time.Microsecond

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	verbose := flag.Bool("v", false, "enable verbose (debug) logging")
	jsonLog := flag.Bool("json", false, "use JSON log format")
	keys := flag.String("keys", "", "comma-separated MIDI keys to play in sequence")
	interval := flag.Duration("interval", 500*time.Millisecond, "time between keys from -keys")
	smfPath := flag.String("smf", "", "Standard MIDI File to play")
	terminal := flag.Bool("term", false, "play from the computer keyboard")
	duration := flag.Duration("duration", 0, "stop after this long")
	cpuProfile := flag.String("cpuprofile", "", "write a CPU profile to path")
	memProfile := flag.String("memprofile", "", "write a heap profile to path on exit")
	pprofAddr := flag.String("pprof", "", "serve /debug/pprof/ on addr")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			pkg.LogError(component, "failed to load configuration", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if cfg.Loop.PollInterval == 0 {
		cfg.Loop.PollInterval = defaultPollInterval
	}

	// Flags override the configured logging
	cfg.ApplyLogging()
	if *verbose {
		pkg.SetLogLevel(slog.LevelDebug)
	}
	logFormat := cfg.LogFormat()
	if *jsonLog {
		logFormat = pkg.LogFormatJSON
		pkg.SetLogFormat(logFormat)
	}

	sequence, err := parseKeys(*keys)
	if err != nil {
		pkg.LogError(component, "invalid -keys", "error", err)
		os.Exit(1)
	}

	session, err := prof.Start(prof.Options{
		CPU:  *cpuProfile,
		Heap: *memProfile,
		HTTP: *pprofAddr,
	})
	if err != nil {
		pkg.LogError(component, "failed to start profiling", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	err = run(ctx, cfg, inputs{
		keys:     sequence,
		interval: *interval,
		smf:      *smfPath,
		terminal: *terminal,
		format:   logFormat,
	})
	if perr := session.Stop(); perr != nil {
		pkg.LogWarn(component, "failed to write profiles", "error", perr)
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		pkg.LogError(component, "instrument stopped", "error", err)
		os.Exit(1)
	}
}

// run wires the simulated bus, the instrument and the selected inputs, and
// drives the main loop until ctx is done.
func run(ctx context.Context, cfg config.Config, in inputs) error {
	out := newOutput(cfg)

	tr := usbmidi.New()
	p, err := player.New(cfg, tr, out)
	if err != nil {
		return err
	}

	ctl := sim.New(0)
	h := host.New(ctl, p.HandleHostEvent)
	if err := h.RegisterClass(tr); err != nil {
		return err
	}
	if err := h.Start(ctx); err != nil {
		return err
	}
	defer h.Stop()

	if err := p.Start(); err != nil {
		return err
	}
	defer out.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := out.Run(ctx); err != nil && ctx.Err() == nil {
			pkg.LogError(component, "audio output failed", "error", err)
			cancel()
		}
	}()

	kb := sim.NewKeyboard()
	ctl.Attach(kb)

	stopInputs, err := in.start(ctx, cancel, kb)
	defer stopInputs()
	if err != nil {
		return err
	}

	pkg.LogInfo(component, "instrument running")
	return p.Run(ctx, h)
}
