package main

import (
	"context"
	"time"

	"github.com/c360/playkit/target"
)

// runSimulator drives the media element's clock until ctx ends. Each
// tick advances the playback position by the wall-clock tick scaled by
// the element's playback rate, so the simulation tracks real time.
func runSimulator(ctx context.Context, media *target.MediaElement, tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			media.Advance(tick.Seconds())
		}
	}
}
