// Package usbmidi implements the USB-MIDI host class driver.
//
// [Transport] plugs into [host.Host] as a [host.Class]. On activation it
// finds the first Audio class interface with the MIDI Streaming subclass,
// binds one bulk pipe per direction and waits for the application to start
// transfers with [Transport.Transmit] and [Transport.Receive].
//
// # State Machines
//
// The transport has three states: Idle, TransferData and Error. While in
// TransferData each [Transport.Process] call runs one step of the send
// machine and then one step of the receive machine:
//
//	Idle -> Send -> SendWait -> (Send ... ) -> Idle     (fires OnTransmit)
//	Idle -> Receive -> ReceiveWait -> (...) -> Idle     (fires OnReceive)
//
// Buffers move in max-packet chunks. An OUT chunk the device NAKs is
// resubmitted on the next tick. A reception ends when the buffer is full or
// the device sends a short packet.
//
// A stall or transaction error on either pipe, reported by the host through
// [host.Faulter], moves the transport to Error. The next tick issues
// CLEAR_FEATURE(ENDPOINT_HALT) to every faulted endpoint and resets their data
// toggles. Transfers interrupted on those pipes then resume from their current
// chunk.
//
// # Event Packets
//
// USB-MIDI carries MIDI in 4-byte event packets. [Packet] exposes the cable
// number, Code Index Number and MIDI bytes; [Decode] walks a received buffer
// and [PacketFromMessage] encodes a [gitlab.com/gomidi/midi/v2.Message].
//
// The interface's class-specific descriptors are summarized by
// [ParseTopology]; [Transport.Topology] reports how many virtual cables the
// device exposes in each direction.
//
// # Example
//
//	t := usbmidi.New()
//	t.SetOnReceive(func(data []byte) {
//	    usbmidi.Decode(data, func(p usbmidi.Packet) {
//	        if p.IsNoteOn() {
//	            pluck(p.Key())
//	        }
//	    })
//	    t.Receive(buf)
//	})
//	h.RegisterClass(t)
package usbmidi
