//go:build headless

package main

import (
	"context"
	"time"

	"github.com/ardnew/softpluck/audio"
	"github.com/ardnew/softpluck/config"
	"github.com/ardnew/softpluck/pkg"
)

// clockPeriod is how often the silent output consumes frames.
const clockPeriod = 5 * time.Millisecond

// silent consumes the output buffer in real time without a sound card.
type silent struct {
	*audio.Headless
}

func newOutput(cfg config.Config) output {
	return silent{audio.NewHeadless(cfg.Audio.Channels)}
}

func (s silent) Run(ctx context.Context) error {
	err := s.Clock(ctx, clockPeriod)
	pkg.LogInfo(component, "silent output stopped",
		"frames", s.Frames(), "underruns", s.Underruns())
	return err
}
