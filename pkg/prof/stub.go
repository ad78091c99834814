//go:build !profile

package prof

import (
	"io"

	"github.com/ardnew/softpluck/pkg"
)

// Enabled reports whether profiling is compiled in.
const Enabled = false

// Session is inert without the "profile" build tag.
type Session struct{}

// Start returns an inert session. Requested profiles are logged as skipped.
func Start(opts Options) (*Session, error) {
	if !opts.Empty() {
		pkg.LogWarn(pkg.ComponentPlayer, "profiling requested but not built in (use -tags profile)")
	}
	return &Session{}, nil
}

// Stop is a no-op.
func (*Session) Stop() error { return nil }

// Write is a no-op.
func Write(Profile, string) error { return nil }

// WriteTo is a no-op.
func WriteTo(Profile, io.Writer) error { return nil }
