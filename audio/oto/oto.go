// Package oto provides an audio peripheral that streams the instrument's
// output buffer to the host sound card through github.com/ebitengine/oto/v3.
//
// The sound card pulls bytes through [Output.Read] on oto's goroutine. Read
// walks the double buffer frame by frame and raises the half and full
// completion notifications as it crosses each boundary, which makes that
// goroutine the equivalent of a DMA completion interrupt.
package oto

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/ardnew/softpluck/audio"
	"github.com/ardnew/softpluck/pkg"
)

// DefaultLatency is the sound card buffer length requested from oto.
const DefaultLatency = 40 * time.Millisecond

// Output is an [audio.Peripheral] backed by an oto player.
type Output struct {
	mu sync.Mutex

	channels int
	latency  time.Duration

	ctx    *oto.Context
	player *oto.Player

	handler audio.Handler
	volume  float64

	buf     []int16
	next    []int16
	armed   bool
	playing bool
	pos     int // Sample position within buf

	underruns uint64
}

// New creates an output for interleaved buffers of the given channel count.
// A zero latency selects [DefaultLatency].
func New(channels int, latency time.Duration) *Output {
	if channels <= 0 {
		channels = 1
	}
	if latency <= 0 {
		latency = DefaultLatency
	}
	return &Output{channels: channels, latency: latency}
}

// SetHandler implements [audio.Peripheral].
func (o *Output) SetHandler(h audio.Handler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handler = h
}

// Init implements [audio.Peripheral]. The output device selection has no
// counterpart on a desktop sound card and is only logged.
func (o *Output) Init(dev audio.OutputDevice, volume uint8, sampleRate uint32) error {
	if err := audio.ValidateInit(volume, sampleRate); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ctx != nil {
		return pkg.ErrAlreadyRunning
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(sampleRate),
		ChannelCount: o.channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   o.latency,
	})
	if err != nil {
		return fmt.Errorf("oto: create context: %w", err)
	}
	<-ready

	o.ctx = ctx
	o.volume = float64(volume) / audio.MaxVolume
	pkg.LogInfo(pkg.ComponentAudio, "sound card opened",
		"device", dev, "volume", volume, "rate", sampleRate, "channels", o.channels)
	return nil
}

// Play implements [audio.Peripheral].
func (o *Output) Play(buf []int16) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ctx == nil {
		return pkg.ErrInvalidState
	}
	if o.playing {
		return pkg.ErrAlreadyRunning
	}
	if !o.validBuffer(buf) {
		return pkg.ErrInvalidParameter
	}

	o.buf = buf
	o.next = buf
	o.armed = true
	o.pos = 0
	o.playing = true
	ctx, volume := o.ctx, o.volume
	o.mu.Unlock()

	// The player pulls its first buffer through Read before Play returns
	player := ctx.NewPlayer(o)
	player.SetVolume(volume)
	player.Play()

	o.mu.Lock()
	o.player = player
	return nil
}

// ChangeBuffer implements [audio.Peripheral].
func (o *Output) ChangeBuffer(buf []int16) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.playing {
		return pkg.ErrNotRunning
	}
	if !o.validBuffer(buf) {
		return pkg.ErrInvalidParameter
	}
	o.next = buf
	o.armed = true
	return nil
}

// Stop implements [audio.Peripheral].
func (o *Output) Stop() error {
	o.mu.Lock()
	p := o.player
	o.player = nil
	o.playing = false
	o.mu.Unlock()

	if p != nil {
		p.Pause()
		return p.Err()
	}
	return nil
}

// Underruns returns the number of passes that completed without a re-arm.
func (o *Output) Underruns() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.underruns
}

// Read implements io.Reader for the oto player. It encodes samples as 16-bit
// little endian and raises completion notifications at each half boundary.
func (o *Output) Read(p []byte) (int, error) {
	n := 0
	for n+2*o.channels <= len(p) {
		o.mu.Lock()
		if !o.playing {
			o.mu.Unlock()
			break
		}

		half := len(o.buf) / 2
		boundary := len(o.buf)
		if o.pos < half {
			boundary = half
		}
		count := min((len(p)-n)/2, boundary-o.pos)
		count -= count % o.channels
		for _, s := range o.buf[o.pos : o.pos+count] {
			p[n] = byte(s)
			p[n+1] = byte(uint16(s) >> 8)
			n += 2
		}
		o.pos += count

		handler := o.handler
		halfDone := o.pos == half
		fullDone := o.pos == len(o.buf)
		if fullDone {
			o.pos = 0
			o.armed = false
		}
		o.mu.Unlock()

		switch {
		case halfDone:
			if handler != nil {
				handler.HalfTransferComplete()
			}
		case fullDone:
			if handler != nil {
				handler.TransferComplete()
			}
			o.mu.Lock()
			if !o.armed {
				o.underruns++
			}
			o.buf = o.next
			o.mu.Unlock()
		}
	}

	// Silence after Stop or when p is shorter than a frame
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

func (o *Output) validBuffer(buf []int16) bool {
	frames := len(buf) / o.channels
	return len(buf)%o.channels == 0 && frames >= 2 && frames%2 == 0
}
