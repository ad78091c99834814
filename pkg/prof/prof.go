//go:build profile

package prof

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof" // Registers /debug/pprof/ on the default mux
	"os"
	"runtime"
	"runtime/pprof"
	"sync"

	"github.com/ardnew/softpluck/pkg"
)

// Enabled reports whether profiling is compiled in.
const Enabled = true

var (
	mu     sync.Mutex
	active *Session
)

// Session is a running profile capture.
type Session struct {
	opts    Options
	cpuFile *os.File
	stopped bool
}

// Start begins a session. It returns [ErrSessionActive] if one is running.
func Start(opts Options) (*Session, error) {
	mu.Lock()
	defer mu.Unlock()
	if active != nil {
		return nil, ErrSessionActive
	}

	s := &Session{opts: opts}
	if opts.CPU != "" {
		f, err := os.Create(opts.CPU)
		if err != nil {
			return nil, fmt.Errorf("prof: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("prof: %w", err)
		}
		s.cpuFile = f
	}
	if opts.Block != "" {
		runtime.SetBlockProfileRate(1)
	}
	if opts.Mutex != "" {
		runtime.SetMutexProfileFraction(1)
	}
	if opts.HTTP != "" {
		go func() {
			err := http.ListenAndServe(opts.HTTP, nil)
			pkg.LogWarn(pkg.ComponentPlayer, "pprof server stopped", "addr", opts.HTTP, "error", err)
		}()
	}

	active = s
	pkg.LogDebug(pkg.ComponentPlayer, "profiling started",
		"cpu", opts.CPU, "heap", opts.Heap, "http", opts.HTTP)
	return s, nil
}

// Stop ends CPU sampling and writes the snapshot profiles. It is safe to
// call more than once.
func (s *Session) Stop() error {
	mu.Lock()
	defer mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	active = nil

	var errs []error
	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		errs = append(errs, s.cpuFile.Close())
		s.cpuFile = nil
	}
	for _, snap := range s.opts.snapshots() {
		errs = append(errs, Write(snap.profile, snap.path))
	}
	if s.opts.Block != "" {
		runtime.SetBlockProfileRate(0)
	}
	if s.opts.Mutex != "" {
		runtime.SetMutexProfileFraction(0)
	}
	return errors.Join(errs...)
}

// Write writes a snapshot profile to path.
func Write(profile Profile, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTo(profile, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteTo writes a snapshot profile to w in pprof protobuf format.
func WriteTo(profile Profile, w io.Writer) error {
	p := pprof.Lookup(string(profile))
	if p == nil {
		return fmt.Errorf("%w: %q", ErrInvalidProfile, profile)
	}
	if profile == ProfileHeap {
		runtime.GC()
	}
	return p.WriteTo(w, 0)
}
