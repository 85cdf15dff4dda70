package repos

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CalmingAgent/movieNight/internal/model"
)

type TrendsRepo struct {
	db *pgxpool.Pool
}

// Get returns the cached sample for (term, day of asOf), ErrNotFound when the
// term was never fetched that day.
func (r *TrendsRepo) Get(ctx context.Context, term string, asOf time.Time) (model.TrendSample, error) {
	var (
		s     model.TrendSample
		score pgtype.Int4
		day   pgtype.Date
	)
	err := r.db.QueryRow(ctx,
		`SELECT term, as_of, score, no_data, fetched_at FROM trend_samples
		 WHERE term = $1 AND as_of = $2`, term, dateVal(asOf)).
		Scan(&s.Term, &day, &score, &s.NoData, &s.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.TrendSample{}, ErrNotFound
	}
	if err != nil {
		return model.TrendSample{}, err
	}
	s.AsOf = day.Time
	s.Score = int4Ptr(score)
	return s, nil
}

func (r *TrendsRepo) Put(ctx context.Context, s model.TrendSample) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO trend_samples (term, as_of, score, no_data, fetched_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (term, as_of) DO UPDATE SET
			score = EXCLUDED.score,
			no_data = EXCLUDED.no_data,
			fetched_at = now()`,
		s.Term, dateVal(s.AsOf), int4Val(s.Score), s.NoData)
	return err
}
