package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/CalmingAgent/movieNight/internal/model"
	"github.com/CalmingAgent/movieNight/internal/repos"
	"github.com/CalmingAgent/movieNight/pkg/provider"
)

// StartSheetSync imports the group's spreadsheet daily (05:00 UTC). Each
// visible tab becomes a theme; column A holds the titles.
func StartSheetSync(ctx context.Context, src provider.SpreadsheetSource, r *repos.Repository) {
	if src == nil {
		log.Warn().Msg("spreadsheet source not configured; skipping sheet sync")
		return
	}
	go func() {
		for {
			now := time.Now().UTC()
			next := time.Date(now.Year(), now.Month(), now.Day(), 5, 0, 0, 0, time.UTC)
			if !next.After(now) {
				next = next.AddDate(0, 0, 1)
			}
			t := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
				if n, err := RunSheetSync(ctx, src, r); err != nil {
					log.Error().Err(err).Msg("sheet sync failed")
				} else {
					log.Info().Int("imported", n).Msg("sheet sync completed")
				}
			}
		}
	}()
}

// RunSheetSync performs one import pass and returns the number of titles
// upserted. Exposed so boot and tests can trigger it directly.
func RunSheetSync(ctx context.Context, src provider.SpreadsheetSource, r *repos.Repository) (int, error) {
	sheets, err := src.ListSheets(ctx)
	if err != nil {
		return 0, err
	}
	imported := 0
	for _, sheet := range sheets {
		if sheet.Excluded {
			continue
		}
		titles, err := src.ListRows(ctx, sheet.Name)
		if err != nil {
			return imported, err
		}
		for _, title := range titles {
			id, err := r.Movies.Upsert(ctx, model.MovieAttrs{Title: title})
			if err != nil {
				return imported, err
			}
			if err := r.Movies.TagTheme(ctx, id, sheet.Name); err != nil {
				return imported, err
			}
			imported++
		}
	}
	return imported, nil
}
