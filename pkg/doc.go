// Package pkg provides shared utilities for the softpluck instrument.
//
// This package contains functionality used by the USB host stack, the
// synthesis engine and the player glue:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors for USB transport and instrument failures
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with a component attribute:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentMIDI, "class active", "inEP", 0x81)
//
// Nothing in the audio interrupt path logs. Handlers that run in that
// context only touch atomics.
//
// # Errors
//
// Failures are reported as sentinel values:
//
//	if errors.Is(err, pkg.ErrBusy) {
//	    // a transfer is already outstanding in this direction
//	}
package pkg
