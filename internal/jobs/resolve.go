package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/CalmingAgent/movieNight/internal/resolver"
)

// StartTrailerSweep runs the bulk resolver once shortly after boot and then
// every interval, so imported movies pick up trailers without operator action.
func StartTrailerSweep(ctx context.Context, r *resolver.Resolver, interval time.Duration) {
	go func() {
		t := time.NewTimer(30 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				resolved, failed, skipped, err := r.ResolveAll(ctx)
				if err != nil {
					log.Error().Err(err).Msg("trailer sweep failed")
				} else {
					log.Info().Int("resolved", resolved).Int("failed", failed).
						Int("skipped", skipped).Msg("trailer sweep completed")
				}
				t.Reset(interval)
			}
		}
	}()
}
