// Package player is the instrument's application layer.
//
// A [Player] owns the synthesis engine and the double-buffer coordinator.
// It dispatches every completed USB-MIDI reception: each Note-On for a key
// in the 88-key range plucks the string with that key's delay, other events
// are skipped, and reception is re-armed at once so a transfer is always
// outstanding.
//
// The main loop is one call to [Player.Step] per iteration, a host tick
// followed by a synthesis tick. [Player.Run] repeats it until the context
// ends:
//
//	tr := usbmidi.New()
//	p, _ := player.New(cfg, tr, periph)
//	h := host.New(ctl, p.HandleHostEvent)
//	h.RegisterClass(tr)
//	h.Start(ctx)
//	p.Start()
//	p.Run(ctx, h)
package player
