// Package hal defines the Hardware Abstraction Layer for the polled USB host
// stack.
//
// The HAL models a host controller the way small microcontroller cores expose
// one: a single root port, a fixed set of host channels, and a per-channel
// request block (URB) whose status the stack polls from its main loop. There
// are no callbacks into the stack and no blocking bulk transfers.
//
// # Interface Overview
//
// The [Controller] interface defines the contract:
//   - Initialization and root port management
//   - Control transfers for enumeration and stall recovery
//   - Channel binding, data toggle control and bulk submission
//   - URB status polling via [Controller.URBState]
//
// # URB States
//
// After [Controller.SubmitBulk] a channel reports [URBIdle] until the
// transaction settles:
//
//   - [URBDone]: payload moved, [Controller.LastTransferSize] is valid
//   - [URBNotReady]: the device NAKed an OUT packet; the caller resubmits
//   - [URBError], [URBStall]: unrecoverable; the stack runs stall recovery
//
// IN transfers that are NAKed stay in [URBIdle]; the controller retries them
// in hardware.
//
// # Implementing a HAL
//
// To implement a HAL for a new platform:
//  1. Create a type that implements all [Controller] methods
//  2. Handle clock and PHY bring-up in Init()
//  3. Report root port connection in PortStatus()
//  4. Map channels to hardware host channels and update URB state from the
//     channel interrupt
//
// A software controller with a virtual USB-MIDI keyboard is available in
// [github.com/ardnew/softpluck/host/hal/sim].
package hal
