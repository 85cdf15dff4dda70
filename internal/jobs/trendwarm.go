package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/CalmingAgent/movieNight/internal/model"
	"github.com/CalmingAgent/movieNight/internal/repos"
	"github.com/CalmingAgent/movieNight/internal/trends"
)

// StartTrendWarm pre-fetches today's trend samples for the whole pool each
// morning (06:00 UTC), so an evening draw never has to wait on the throttled
// provider. A rate-limited sweep stops early and the draw-time fallback
// covers the rest.
func StartTrendWarm(ctx context.Context, svc *trends.Service, r *repos.Repository) {
	go func() {
		for {
			now := time.Now().UTC()
			next := time.Date(now.Year(), now.Month(), now.Day(), 6, 0, 0, 0, time.UTC)
			if !next.After(now) {
				next = next.AddDate(0, 0, 1)
			}
			t := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
				if n, err := warmPool(ctx, svc, r); err != nil {
					log.Warn().Err(err).Int("fetched", n).Msg("trend warm stopped early")
				} else {
					log.Info().Int("fetched", n).Msg("trend warm completed")
				}
			}
		}
	}()
}

func warmPool(ctx context.Context, svc *trends.Service, r *repos.Repository) (int, error) {
	movies, err := r.Movies.ListCandidates(ctx, model.PoolFilter{})
	if err != nil {
		return 0, err
	}
	terms := make([]string, 0, len(movies))
	for _, m := range movies {
		terms = append(terms, m.Title)
	}
	return svc.Warm(ctx, terms)
}
