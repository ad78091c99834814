// Package sim provides a software host controller and a virtual USB-MIDI
// keyboard.
//
// [Controller] implements [hal.Controller] entirely in memory. A device is
// modelled by the [Function] interface; [Keyboard] is a class-compliant
// USB-MIDI 1.0 keyboard with one bulk endpoint per direction.
//
// The controller settles a bulk submission when its URB state is polled, so
// a single-goroutine main loop sees the same sequence a hardware host core
// produces: Idle while in flight, then Done, NotReady or Stall. IN polls with
// no data stay Idle.
//
// # Fault Injection
//
// Tests drive the error paths with:
//   - [Controller.InjectNotReady]: NAK the next OUT packets
//   - [Controller.InjectStall]: halt an endpoint until CLEAR_FEATURE
//   - [Controller.InjectError]: fail the next submissions
//   - [Controller.Detach]: unplug the function
//
// # Usage
//
//	ctl := sim.New(0)
//	kb := sim.NewKeyboard()
//	ctl.Attach(kb)
//
//	h := host.New(ctl, onEvent)
//	h.RegisterClass(usbmidi.New())
//	h.Start(ctx)
//
//	kb.Press(0, 69, 100)
package sim
