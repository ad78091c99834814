package prof

import "errors"

// Profiling errors.
var (
	// ErrSessionActive indicates a session is already running.
	ErrSessionActive = errors.New("profiling session already active")

	// ErrInvalidProfile indicates an unknown snapshot profile name.
	ErrInvalidProfile = errors.New("invalid profile")
)

// Profile names a runtime/pprof snapshot profile.
type Profile string

// Snapshot profiles.
const (
	ProfileHeap      Profile = "heap"
	ProfileAllocs    Profile = "allocs"
	ProfileGoroutine Profile = "goroutine"
	ProfileBlock     Profile = "block"
	ProfileMutex     Profile = "mutex"
)

func (p Profile) String() string {
	return string(p)
}

// Options selects what a session records. Empty paths disable the
// corresponding profile.
type Options struct {
	CPU  string // CPU profile, recorded for the whole session
	Heap string // Heap snapshot, written at Stop

	// Block and Mutex enable contention profiling and name the files their
	// snapshots are written to at Stop.
	Block string
	Mutex string

	// HTTP serves net/http/pprof on this address, e.g. "localhost:6060".
	HTTP string
}

// Empty reports whether o records nothing.
func (o Options) Empty() bool {
	return o == Options{}
}

// snapshots returns the snapshot profiles o writes at Stop, in order.
func (o Options) snapshots() []snapshot {
	var s []snapshot
	if o.Heap != "" {
		s = append(s, snapshot{ProfileHeap, o.Heap})
	}
	if o.Block != "" {
		s = append(s, snapshot{ProfileBlock, o.Block})
	}
	if o.Mutex != "" {
		s = append(s, snapshot{ProfileMutex, o.Mutex})
	}
	return s
}

type snapshot struct {
	profile Profile
	path    string
}
