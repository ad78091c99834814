// Package audio implements the double-buffered audio output handshake.
//
// An output buffer of interleaved 16-bit frames is streamed in a loop by a
// [Peripheral]. The peripheral notifies its [Handler] each time it finishes
// reading a half. [Coordinator] is that handler: it publishes the consumed
// half through a lock-free [SectionFlag] and re-arms the peripheral after
// the second half, and nothing else. The main loop polls
// [Coordinator.Ready] and refills the half the peripheral has just left.
//
//	buf := engine.Output()
//	coord := audio.NewCoordinator(periph, buf)
//	periph.Init(audio.OutputHeadphone, 70, 44100)
//	coord.Start()
//
//	for {
//		engine.Process(coord.Ready())
//	}
//
// [Headless] is a peripheral without hardware. Tests step it frame by frame
// with [Headless.Advance]; the simulator runs it in real time with
// [Headless.Clock]. Package audio/oto provides a peripheral that plays
// through the host sound card.
package audio
