package audio

import (
	"fmt"
	"sync/atomic"
)

// Section names one half of a double-buffered output buffer.
type Section uint32

// Buffer sections.
const (
	SectionNone       Section = iota // No half consumed yet
	SectionFirstHalf                 // First half consumed and free to refill
	SectionSecondHalf                // Second half consumed and free to refill
)

// String returns a human-readable name for the section.
func (s Section) String() string {
	switch s {
	case SectionNone:
		return "None"
	case SectionFirstHalf:
		return "FirstHalf"
	case SectionSecondHalf:
		return "SecondHalf"
	default:
		return fmt.Sprintf("Unknown Section (%d)", s)
	}
}

// SectionFlag is a single-producer single-consumer cell carrying the most
// recently consumed section from the peripheral's completion context to the
// main loop. Store publishes with release semantics and Load observes with
// acquire semantics. The zero value holds [SectionNone].
type SectionFlag struct {
	v atomic.Uint32
}

// Load returns the most recently stored section.
func (f *SectionFlag) Load() Section {
	return Section(f.v.Load())
}

// Store publishes a section.
func (f *SectionFlag) Store(s Section) {
	f.v.Store(uint32(s))
}
