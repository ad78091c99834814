// Package host implements a polled, single-port USB host core.
//
// It is platform-agnostic and drives hardware through the [hal.Controller]
// interface defined in the github.com/ardnew/softpluck/host/hal package.
// Nothing in the package starts goroutines: the application calls
// [Host.Process] from its main loop and each call advances the host by one
// step.
//
// # Host States
//
// The host moves through these states:
//
//	Idle -> Enumeration -> ClassSelect -> ClassRequest -> Class
//	                 \            \              \
//	                  +------------+--------------+--> Abort
//
// Unplugging the device from any state other than Idle tears the class down,
// releases every pipe and returns to Idle.
//
// # Class Drivers
//
// Class drivers implement [Class] and are registered with
// [Host.RegisterClass]. A driver sees the host only through the [Bus]
// interface: interface lookup, pipe allocation, bulk submission and URB
// polling. Drivers that implement [Faulter] are told once when one of their
// pipes enters an error or stall state.
//
// # Pipes
//
// Pipes map one-to-one onto controller channels. Pipes 0 and 1 are reserved
// for the default control endpoint. Opening a pipe resets its data toggle.
//
// # Example
//
//	h := host.New(ctl, func(h *host.Host, e host.Event) {
//	    log.Println("host event:", e)
//	})
//	h.RegisterClass(driver)
//	h.Start(ctx)
//
//	for {
//	    h.Process()
//	}
//
// A software controller with a virtual USB-MIDI keyboard is available in
// [github.com/ardnew/softpluck/host/hal/sim].
package host
