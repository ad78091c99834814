package main

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"golang.org/x/term"

	"github.com/ardnew/softpluck/audio"
	"github.com/ardnew/softpluck/host/hal/sim"
	"github.com/ardnew/softpluck/pkg"
	"github.com/ardnew/softpluck/synth"
)

// output is the audio peripheral plus whatever drives it in real time.
type output interface {
	audio.Peripheral
	Run(ctx context.Context) error
}

// keyVelocity is the velocity of notes played from -keys and -term.
const keyVelocity = 100

// inputs selects the event sources that play the virtual keyboard.
type inputs struct {
	keys     []uint8
	interval time.Duration
	smf      string
	terminal bool

	// format is the log format to keep while the terminal is raw
	format pkg.LogFormat
}

// start launches each selected input on its own goroutine. cancel is called
// when an input asks to quit. The returned function releases the terminal.
func (in inputs) start(ctx context.Context, cancel context.CancelFunc, kb *sim.Keyboard) (func(), error) {
	stop := func() {}
	if len(in.keys) > 0 {
		go playSequence(ctx, kb, in.keys, in.interval)
	}

	if in.smf != "" {
		f, err := os.Open(in.smf)
		if err != nil {
			return stop, fmt.Errorf("open %s: %w", in.smf, err)
		}
		events, err := loadSMF(f)
		f.Close()
		if err != nil {
			return stop, fmt.Errorf("read %s: %w", in.smf, err)
		}
		pkg.LogInfo(component, "playing MIDI file", "path", in.smf, "events", len(events))
		go playEvents(ctx, kb, events)
	}

	if in.terminal {
		t, err := openTerminal(kb, cancel, in.format)
		if err != nil {
			return stop, err
		}
		stop = t.Stop
	}
	return stop, nil
}

// parseKeys parses a comma-separated list of MIDI key numbers.
func parseKeys(s string) ([]uint8, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	keys := make([]uint8, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseUint(strings.TrimSpace(f), 10, 7)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", f, err)
		}
		keys = append(keys, uint8(n))
	}
	return keys, nil
}

func playSequence(ctx context.Context, kb *sim.Keyboard, keys []uint8, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for _, key := range keys {
		if err := kb.Press(0, key, keyVelocity); err != nil {
			pkg.LogWarn(component, "press failed", "key", key, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		_ = kb.Release(0, key)
	}
}

// timedEvent is a channel message scheduled at an offset from playback start.
type timedEvent struct {
	at  time.Duration
	msg midi.Message
}

// loadSMF reads every track of a Standard MIDI File and returns its channel
// messages in playback order. Meta and SysEx events are dropped.
func loadSMF(r io.Reader) ([]timedEvent, error) {
	var events []timedEvent
	tr := smf.ReadTracksFrom(r).Do(func(ev smf.TrackEvent) {
		if !ev.Message.IsPlayable() {
			return
		}
		events = append(events, timedEvent{
			at:  time.Duration(ev.AbsMicroSeconds) * time.Microsecond,
			msg: midi.Message(ev.Message),
		})
	})
	if err := tr.Error(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(events, func(a, b timedEvent) int {
		return cmp.Compare(a.at, b.at)
	})
	return events, nil
}

func playEvents(ctx context.Context, kb *sim.Keyboard, events []timedEvent) {
	start := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for _, ev := range events {
		if wait := ev.at - time.Since(start); wait > 0 {
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return
		}

		// Messages without a USB-MIDI event packet are skipped
		if err := kb.Send(ev.msg); err != nil {
			pkg.LogDebug(component, "event skipped", "message", ev.msg, "error", err)
		}
	}
	pkg.LogInfo(component, "MIDI file finished")
}

// pianoRow maps the home and upper letter rows to one octave, the way most
// trackers and soft synths lay out a computer keyboard.
const pianoRow = "awsedftgyhujk"

// Octave bounds for the computer keyboard.
const (
	baseKey    = 60
	minOctave  = -3
	maxOctave  = 3
	ctrlC      = 0x03
	escapeChar = 0x1B
)

// keyForRune returns the MIDI key for r at the given octave offset.
func keyForRune(r byte, octave int) (uint8, bool) {
	i := strings.IndexByte(pianoRow, r)
	if i < 0 {
		return 0, false
	}
	key := baseKey + 12*octave + i
	if _, ok := synth.TableIndex(uint8(key)); !ok {
		return 0, false
	}
	return uint8(key), true
}

// terminal reads single keystrokes from a raw-mode terminal and plays them.
type terminal struct {
	fd     int
	state  *term.State
	kb     *sim.Keyboard
	quit   context.CancelFunc
	octave int
	format pkg.LogFormat
	stopCh chan struct{}
}

func openTerminal(kb *sim.Keyboard, quit context.CancelFunc, format pkg.LogFormat) (*terminal, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal: %w", pkg.ErrInvalidState)
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("set raw mode: %w", err)
	}

	t := &terminal{
		fd:     fd,
		state:  state,
		kb:     kb,
		quit:   quit,
		format: format,
		stopCh: make(chan struct{}),
	}
	pkg.SetLogOutput(crlfWriter{os.Stderr}, format)
	pkg.LogInfo(component, "computer keyboard ready",
		"notes", pianoRow, "octave", "z/x", "quit", "q")
	go t.readLoop()
	return t, nil
}

func (t *terminal) readLoop() {
	buf := make([]byte, 1)
	for {
		select {
		case <-t.stopCh:
			return
		default:
		}

		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return
		}
		t.handle(buf[0])
	}
}

func (t *terminal) handle(b byte) {
	switch b {
	case ctrlC, escapeChar, 'q':
		t.quit()
	case 'z':
		t.octave = max(t.octave-1, minOctave)
	case 'x':
		t.octave = min(t.octave+1, maxOctave)
	default:
		if key, ok := keyForRune(b, t.octave); ok {
			_ = t.kb.Press(0, key, keyVelocity)
		}
	}
}

// Stop restores the terminal.
func (t *terminal) Stop() {
	select {
	case <-t.stopCh:
		return
	default:
		close(t.stopCh)
	}
	_ = term.Restore(t.fd, t.state)
	pkg.SetLogFormat(t.format)
}

// crlfWriter terminates lines with CRLF, since a raw terminal no longer
// translates output newlines.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
