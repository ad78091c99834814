package synth

import (
	"math/bits"

	"github.com/ardnew/softpluck/pkg"
)

// Index is a position in a [Ring]. Arithmetic on an Index wraps at the
// ring's capacity, so an Index is always a valid position.
type Index struct {
	pos  uint32
	mask uint32
}

// Add returns the index n positions after i.
func (i Index) Add(n uint32) Index {
	return Index{pos: (i.pos + n) & i.mask, mask: i.mask}
}

// Sub returns the index n positions before i.
func (i Index) Sub(n uint32) Index {
	return Index{pos: (i.pos - n) & i.mask, mask: i.mask}
}

// Pos returns the index as an offset into the ring.
func (i Index) Pos() int {
	return int(i.pos)
}

// Ring is a fixed-capacity circular buffer of 16-bit samples. The capacity
// is a power of two fixed at construction.
type Ring struct {
	data []int16
	mask uint32
}

// NewRing creates a zeroed ring. capacity must be a power of two.
func NewRing(capacity int) (*Ring, error) {
	if capacity <= 0 || uint64(capacity) > 1<<31 || bits.OnesCount(uint(capacity)) != 1 {
		return nil, pkg.ErrNotPowerOfTwo
	}
	return &Ring{
		data: make([]int16, capacity),
		mask: uint32(capacity - 1),
	}, nil
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.data)
}

// Index returns the index for position pos, wrapped to the capacity.
func (r *Ring) Index(pos int) Index {
	return Index{pos: uint32(pos) & r.mask, mask: r.mask}
}

// At returns the sample at i.
func (r *Ring) At(i Index) int16 {
	return r.data[i.pos&r.mask]
}

// Set stores a sample at i.
func (r *Ring) Set(i Index, v int16) {
	r.data[i.pos&r.mask] = v
}

// Clear zeroes every sample from i to the end of the ring.
func (r *Ring) Clear(i Index) {
	clear(r.data[i.pos&r.mask:])
}
