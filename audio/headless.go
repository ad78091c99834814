package audio

import (
	"context"
	"sync"
	"time"

	"github.com/ardnew/softpluck/pkg"
)

// Headless is a [Peripheral] with no audio hardware behind it. It consumes
// frames when told to, either explicitly with [Headless.Advance] or in real
// time with [Headless.Clock], and raises the same completion notifications a
// DMA-driven output would. Consumed samples can be observed with a sink.
//
// Advance and Clock may run on a different goroutine from the main loop, as
// an interrupt handler would.
type Headless struct {
	mu sync.Mutex

	handler  Handler
	sink     func([]int16)
	channels int

	device     OutputDevice
	volume     uint8
	sampleRate uint32
	ready      bool

	buf     []int16
	next    []int16
	armed   bool
	playing bool
	pos     int // Frame position within buf

	frames    uint64
	wraps     uint64
	underruns uint64
}

// NewHeadless creates a headless peripheral for interleaved buffers of the
// given channel count.
func NewHeadless(channels int) *Headless {
	if channels <= 0 {
		channels = 1
	}
	return &Headless{channels: channels}
}

// SetSink registers a function that receives every consumed span of
// samples. The slice aliases the output buffer and is only valid during the
// call.
func (h *Headless) SetSink(fn func([]int16)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sink = fn
}

// SetHandler implements [Peripheral].
func (h *Headless) SetHandler(hd Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = hd
}

// Init implements [Peripheral].
func (h *Headless) Init(dev OutputDevice, volume uint8, sampleRate uint32) error {
	if err := ValidateInit(volume, sampleRate); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.device = dev
	h.volume = volume
	h.sampleRate = sampleRate
	h.ready = true
	pkg.LogDebug(pkg.ComponentAudio, "headless output initialized",
		"device", dev, "volume", volume, "rate", sampleRate)
	return nil
}

// Play implements [Peripheral].
func (h *Headless) Play(buf []int16) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.ready {
		return pkg.ErrInvalidState
	}
	if h.playing {
		return pkg.ErrAlreadyRunning
	}
	if !h.validBuffer(buf) {
		return pkg.ErrInvalidParameter
	}
	h.buf = buf
	h.next = buf
	h.armed = true
	h.playing = true
	h.pos = 0
	return nil
}

// ChangeBuffer implements [Peripheral].
func (h *Headless) ChangeBuffer(buf []int16) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.playing {
		return pkg.ErrNotRunning
	}
	if !h.validBuffer(buf) {
		return pkg.ErrInvalidParameter
	}
	h.next = buf
	h.armed = true
	return nil
}

// Stop implements [Peripheral].
func (h *Headless) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = false
	return nil
}

// Playing reports whether the peripheral is streaming.
func (h *Headless) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

// SampleRate returns the configured sample rate.
func (h *Headless) SampleRate() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sampleRate
}

// Frames returns the number of frames consumed since Play.
func (h *Headless) Frames() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}

// Wraps returns the number of completed passes over the buffer.
func (h *Headless) Wraps() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.wraps
}

// Underruns returns the number of passes that completed without the handler
// re-arming the peripheral. The previous buffer is replayed in that case.
func (h *Headless) Underruns() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.underruns
}

// Advance consumes frames from the buffer, raising a completion notification
// at each half boundary it crosses.
func (h *Headless) Advance(frames int) {
	for frames > 0 {
		h.mu.Lock()
		if !h.playing {
			h.mu.Unlock()
			return
		}

		total := len(h.buf) / h.channels
		half := total / 2
		boundary := total
		if h.pos < half {
			boundary = half
		}

		n := min(frames, boundary-h.pos)
		span := h.buf[h.pos*h.channels : (h.pos+n)*h.channels]
		h.pos += n
		h.frames += uint64(n)
		frames -= n

		sink := h.sink
		handler := h.handler
		halfDone := h.pos == half
		fullDone := h.pos == total
		if fullDone {
			h.pos = 0
			h.wraps++
			h.armed = false
		}
		h.mu.Unlock()

		if sink != nil {
			sink(span)
		}

		switch {
		case halfDone:
			if handler != nil {
				handler.HalfTransferComplete()
			}
		case fullDone:
			if handler != nil {
				handler.TransferComplete()
			}
			h.mu.Lock()
			if !h.armed {
				h.underruns++
			}
			h.buf = h.next
			h.mu.Unlock()
		}
	}
}

// Clock advances the peripheral in real time at its sample rate, waking
// every period, until ctx is done.
func (h *Headless) Clock(ctx context.Context, period time.Duration) error {
	rate := h.SampleRate()
	if rate == 0 || period <= 0 {
		return pkg.ErrInvalidParameter
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	start := time.Now()
	var done uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			due := uint64(now.Sub(start).Seconds() * float64(rate))
			if due > done {
				h.Advance(int(due - done))
				done = due
			}
		}
	}
}

func (h *Headless) validBuffer(buf []int16) bool {
	frames := len(buf) / h.channels
	return len(buf)%h.channels == 0 && frames >= 2 && frames%2 == 0
}
