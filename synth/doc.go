// Package synth implements a monophonic Karplus-Strong plucked-string
// synthesizer.
//
// A [Ring] delay line holds the string's recent output. Plucking a key
// ([Engine.Pluck] or [Engine.Reconfigure]) fills the first D samples of the
// line with noise, where D is the key's entry in the 88-key delay table, and
// zeroes the rest. Each output sample then averages the two samples D and
// D+1 positions back and writes the result both to the output buffer and
// back into the line, which low-pass filters and decays the excitation into
// a tone near sampleRate/D.
//
// [Engine.Process] regenerates one half of the interleaved output buffer
// each time the audio peripheral reports that half as consumed, and does
// nothing otherwise.
package synth
