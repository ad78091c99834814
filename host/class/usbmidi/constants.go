package usbmidi

import "fmt"

// State is the transport state.
type State uint8

// Transport states.
const (
	StateIdle         State = iota // Session open, nothing in flight
	StateTransferData              // Send and receive machines driven each tick
	StateError                     // Transfer fault; clear the endpoint halt
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateTransferData:
		return "TransferData"
	case StateError:
		return "Error"
	default:
		return fmt.Sprintf("Unknown State (%d)", s)
	}
}

// TxState is the send sub-state.
type TxState uint8

// Send sub-states.
const (
	TxIdle     TxState = iota // No transmission outstanding
	TxSend                    // Next chunk to be submitted
	TxSendWait                // Chunk submitted; polling the URB
)

// String returns a human-readable sub-state name.
func (s TxState) String() string {
	switch s {
	case TxIdle:
		return "Idle"
	case TxSend:
		return "Send"
	case TxSendWait:
		return "SendWait"
	default:
		return fmt.Sprintf("Unknown TxState (%d)", s)
	}
}

// RxState is the receive sub-state.
type RxState uint8

// Receive sub-states.
const (
	RxIdle        RxState = iota // No reception outstanding
	RxReceive                    // Next chunk to be submitted
	RxReceiveWait                // Chunk submitted; polling the URB
)

// String returns a human-readable sub-state name.
func (s RxState) String() string {
	switch s {
	case RxIdle:
		return "Idle"
	case RxReceive:
		return "Receive"
	case RxReceiveWait:
		return "ReceiveWait"
	default:
		return fmt.Sprintf("Unknown RxState (%d)", s)
	}
}
