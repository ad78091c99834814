package audio

import (
	"fmt"
	"sync/atomic"

	"github.com/ardnew/softpluck/pkg"
)

// Coordinator is the double-buffer handshake between a [Peripheral] and the
// main loop. The peripheral's completion notifications only publish the
// consumed half through a [SectionFlag] and, after the second half, re-arm
// the peripheral at the buffer origin. The main loop reads [Coordinator.Ready]
// and regenerates the named half.
type Coordinator struct {
	flag   SectionFlag
	periph Peripheral
	buf    []int16

	rearmFailures atomic.Uint64
}

// NewCoordinator binds a peripheral to the output buffer it streams.
func NewCoordinator(p Peripheral, buf []int16) *Coordinator {
	return &Coordinator{periph: p, buf: buf}
}

// Start registers the coordinator as the peripheral's handler and starts
// playback from the buffer origin.
func (c *Coordinator) Start() error {
	if c.periph == nil || len(c.buf) == 0 {
		return pkg.ErrInvalidParameter
	}
	c.periph.SetHandler(c)
	if err := c.periph.Play(c.buf); err != nil {
		return fmt.Errorf("audio: start playback: %w", err)
	}
	pkg.LogInfo(pkg.ComponentAudio, "playback started", "samples", len(c.buf))
	return nil
}

// Ready returns the half most recently consumed by the peripheral.
func (c *Coordinator) Ready() Section {
	return c.flag.Load()
}

// Flag returns the shared section flag.
func (c *Coordinator) Flag() *SectionFlag {
	return &c.flag
}

// Buffer returns the streamed output buffer.
func (c *Coordinator) Buffer() []int16 {
	return c.buf
}

// RearmFailures returns how many times re-arming the peripheral failed.
func (c *Coordinator) RearmFailures() uint64 {
	return c.rearmFailures.Load()
}

// HalfTransferComplete implements [Handler].
func (c *Coordinator) HalfTransferComplete() {
	c.flag.Store(SectionFirstHalf)
}

// TransferComplete implements [Handler].
func (c *Coordinator) TransferComplete() {
	c.flag.Store(SectionSecondHalf)
	if err := c.periph.ChangeBuffer(c.buf); err != nil {
		c.rearmFailures.Add(1)
	}
}
