//go:build !headless

package main

import (
	"context"

	"github.com/ardnew/softpluck/audio/oto"
	"github.com/ardnew/softpluck/config"
)

// soundCard streams through the host sound card, which pulls samples on its
// own goroutine.
type soundCard struct {
	*oto.Output
}

func newOutput(cfg config.Config) output {
	return soundCard{oto.New(cfg.Audio.Channels, 0)}
}

func (soundCard) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
