package synth

import "github.com/ardnew/softpluck/pkg"

// Piano key range in MIDI note numbers.
const (
	KeyLowest  = 21  // A0
	KeyHighest = 108 // C8
	NumKeys    = KeyHighest - KeyLowest + 1
)

// delayLengths holds the delay-line length in samples at 44.1 kHz for each
// piano key, highest key first.
var delayLengths = [NumKeys]uint16{
	10, 11, 11, 12, 13, 14, 14, 15, 16, 17, 18, 19,
	21, 22, 23, 25, 26, 28, 29, 31, 33, 35, 37, 39,
	42, 44, 47, 50, 53, 56, 59, 63, 66, 70, 75, 79,
	84, 89, 94, 100, 106, 112, 119, 126, 133, 141, 150, 159,
	168, 178, 189, 200, 212, 225, 238, 252, 267, 283, 300, 318,
	337, 357, 378, 400, 424, 450, 476, 505, 535, 566, 600, 636,
	674, 714, 756, 801, 849, 900, 953, 1010, 1070, 1133, 1201, 1272,
	1348, 1428, 1513, 1603,
}

// MaxDelay is the longest delay in the table.
const MaxDelay = 1603

// TableIndex returns the delay table index for a MIDI key. Keys outside the
// piano range report false.
func TableIndex(key uint8) (int, bool) {
	if key < KeyLowest || key > KeyHighest {
		return 0, false
	}
	return KeyHighest - int(key), true
}

// DelayForKey returns the delay-line length for a MIDI key.
func DelayForKey(key uint8) (uint16, error) {
	i, ok := TableIndex(key)
	if !ok {
		return 0, pkg.ErrKeyOutOfRange
	}
	return delayLengths[i], nil
}

// DelayAt returns the table entry at index i, which must be in [0, NumKeys).
func DelayAt(i int) uint16 {
	return delayLengths[i]
}
