package audio

import (
	"fmt"
	"strings"

	"github.com/ardnew/softpluck/pkg"
)

// OutputDevice selects the analog output of an audio peripheral.
type OutputDevice uint8

// Output devices.
const (
	OutputSpeaker OutputDevice = iota + 1
	OutputHeadphone
	OutputBoth
	OutputAuto
)

// MaxVolume is the largest volume accepted by [Peripheral.Init].
const MaxVolume = 100

// String returns the configuration name of the output device.
func (d OutputDevice) String() string {
	switch d {
	case OutputSpeaker:
		return "speaker"
	case OutputHeadphone:
		return "headphone"
	case OutputBoth:
		return "both"
	case OutputAuto:
		return "auto"
	default:
		return fmt.Sprintf("Unknown OutputDevice (%d)", d)
	}
}

// ParseOutputDevice converts a configuration name to an [OutputDevice].
func ParseOutputDevice(name string) (OutputDevice, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "speaker":
		return OutputSpeaker, true
	case "headphone", "headphones":
		return OutputHeadphone, true
	case "both":
		return OutputBoth, true
	case "auto":
		return OutputAuto, true
	default:
		return 0, false
	}
}

// Handler receives buffer-completion notifications from a [Peripheral].
// Both methods run in the peripheral's completion context and must return
// quickly.
type Handler interface {
	// HalfTransferComplete is called when the peripheral has finished
	// reading the first half of the buffer.
	HalfTransferComplete()

	// TransferComplete is called when the peripheral has finished reading
	// the second half of the buffer. The handler re-arms the next pass with
	// [Peripheral.ChangeBuffer].
	TransferComplete()
}

// Peripheral is an audio output that streams an interleaved 16-bit buffer in
// a loop and reports each consumed half.
type Peripheral interface {
	// SetHandler registers the completion handler. It must be called before
	// Play.
	SetHandler(h Handler)

	// Init configures the output device, volume (0 to [MaxVolume]) and
	// sample rate.
	Init(dev OutputDevice, volume uint8, sampleRate uint32) error

	// Play starts streaming buf from its origin.
	Play(buf []int16) error

	// ChangeBuffer points the peripheral at the buffer to stream after the
	// current pass completes.
	ChangeBuffer(buf []int16) error

	// Stop halts streaming.
	Stop() error
}

// ValidateInit checks the volume and sample rate passed to [Peripheral.Init].
func ValidateInit(volume uint8, sampleRate uint32) error {
	if volume > MaxVolume {
		return fmt.Errorf("audio: volume %d exceeds %d: %w", volume, MaxVolume, pkg.ErrInvalidParameter)
	}
	if sampleRate == 0 {
		return fmt.Errorf("audio: zero sample rate: %w", pkg.ErrInvalidParameter)
	}
	return nil
}
