// Package prof captures runtime profiles of the instrument's main loop.
//
// Profiling is compiled in only with the "profile" build tag:
//
//	go build -tags profile ./cmd/softpluck
//
// Without the tag [Start] returns an inert [Session] and every method is a
// no-op, so callers keep their profiling code in place unconditionally.
//
// A session covers one run:
//
//	s, err := prof.Start(prof.Options{CPU: "cpu.prof", Heap: "heap.prof"})
//	if err != nil {
//		return err
//	}
//	defer s.Stop()
//
// CPU samples stream to the CPU path for the whole session. Snapshot profiles
// named in Options are written when the session stops. Setting HTTP serves
// the live /debug/pprof/ endpoints on that address until the process exits.
//
// Only one session may run at a time; a second [Start] returns
// [ErrSessionActive].
package prof
