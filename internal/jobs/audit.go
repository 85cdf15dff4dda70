package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/CalmingAgent/movieNight/internal/fairness"
	"github.com/CalmingAgent/movieNight/internal/repos"
)

// StartFairnessAudit snapshots the bias audit weekly (Sunday 04:00 UTC) over
// a trailing six month window.
func StartFairnessAudit(ctx context.Context, tracker *fairness.Tracker, r *repos.Repository) {
	go func() {
		for {
			now := time.Now().UTC()
			daysUntilSunday := (int(time.Sunday) - int(now.Weekday()) + 7) % 7
			next := time.Date(now.Year(), now.Month(), now.Day(), 4, 0, 0, 0, time.UTC).
				AddDate(0, 0, daysUntilSunday)
			if !next.After(now) {
				next = next.AddDate(0, 0, 7)
			}
			t := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
				asOf := time.Now().UTC()
				audits, err := tracker.Audit(ctx, asOf.AddDate(0, -6, 0), asOf)
				if err != nil {
					log.Error().Err(err).Msg("fairness audit failed")
					continue
				}
				if err := r.Audits.Append(ctx, audits); err != nil {
					log.Error().Err(err).Msg("persist fairness audit failed")
					continue
				}
				flagged := 0
				for _, a := range audits {
					if a.Flagged {
						flagged++
					}
				}
				log.Info().Int("groupings", len(audits)).Int("flagged", flagged).
					Msg("fairness audit completed")
			}
		}
	}()
}
