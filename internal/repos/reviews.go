package repos

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CalmingAgent/movieNight/internal/model"
)

// ReviewsRepo holds the human review queue and the resolution decision cache.
type ReviewsRepo struct {
	db *pgxpool.Pool
}

func (r *ReviewsRepo) GetResolution(ctx context.Context, movieID int64, chainVersion string) (model.Resolution, error) {
	var res model.Resolution
	err := r.db.QueryRow(ctx,
		`SELECT movie_id, chain_version, outcome, video_id, video_url, video_title,
		        channel_title, official, score, resolved_at
		 FROM resolutions WHERE movie_id = $1 AND chain_version = $2`,
		movieID, chainVersion).
		Scan(&res.MovieID, &res.ChainVersion, &res.Outcome, &res.VideoID, &res.VideoURL,
			&res.VideoTitle, &res.ChannelTitle, &res.Official, &res.Score, &res.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Resolution{}, ErrNotFound
	}
	return res, err
}

func (r *ReviewsRepo) PutResolution(ctx context.Context, res model.Resolution) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO resolutions (movie_id, chain_version, outcome, video_id, video_url,
			video_title, channel_title, official, score, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (movie_id, chain_version) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			video_id = EXCLUDED.video_id,
			video_url = EXCLUDED.video_url,
			video_title = EXCLUDED.video_title,
			channel_title = EXCLUDED.channel_title,
			official = EXCLUDED.official,
			score = EXCLUDED.score,
			resolved_at = now()`,
		res.MovieID, res.ChainVersion, res.Outcome, res.VideoID, res.VideoURL,
		res.VideoTitle, res.ChannelTitle, res.Official, res.Score)
	return err
}

// DeleteResolutions drops every cached decision for the movie, across chain
// versions. Used by force refresh and dispute handling.
func (r *ReviewsRepo) DeleteResolutions(ctx context.Context, movieID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM resolutions WHERE movie_id = $1`, movieID)
	return err
}

func (r *ReviewsRepo) Flag(ctx context.Context, f model.ReviewFlag) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO review_flags (movie_id, trailer_url, reason, flagged_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (movie_id) DO UPDATE SET
			trailer_url = EXCLUDED.trailer_url,
			reason = EXCLUDED.reason,
			flagged_at = now()`,
		f.MovieID, f.TrailerURL, f.Reason)
	return err
}

func (r *ReviewsRepo) GetFlag(ctx context.Context, movieID int64) (model.ReviewFlag, error) {
	var f model.ReviewFlag
	err := r.db.QueryRow(ctx,
		`SELECT movie_id, trailer_url, reason, flagged_at FROM review_flags WHERE movie_id = $1`,
		movieID).Scan(&f.MovieID, &f.TrailerURL, &f.Reason, &f.FlaggedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ReviewFlag{}, ErrNotFound
	}
	return f, err
}

func (r *ReviewsRepo) ClearFlag(ctx context.Context, movieID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM review_flags WHERE movie_id = $1`, movieID)
	return err
}

func (r *ReviewsRepo) ListFlags(ctx context.Context) ([]model.ReviewFlag, error) {
	rows, err := r.db.Query(ctx,
		`SELECT movie_id, trailer_url, reason, flagged_at FROM review_flags ORDER BY flagged_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ReviewFlag
	for rows.Next() {
		var f model.ReviewFlag
		if err := rows.Scan(&f.MovieID, &f.TrailerURL, &f.Reason, &f.FlaggedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
