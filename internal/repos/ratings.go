package repos

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CalmingAgent/movieNight/internal/model"
)

type RatingsRepo struct {
	db *pgxpool.Pool
}

// Upsert stores one rating source and recomputes the movie's combined score
// from everything on record.
func (r *RatingsRepo) Upsert(ctx context.Context, rating model.Rating) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO ratings (movie_id, source, type, score, review_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (movie_id, source) DO UPDATE SET
			type = EXCLUDED.type,
			score = EXCLUDED.score,
			review_count = EXCLUDED.review_count`,
		rating.MovieID, rating.Source, rating.Type, rating.Score, rating.ReviewCount)
	if err != nil {
		return err
	}

	rows, err := tx.Query(ctx,
		`SELECT movie_id, source, type, score, review_count FROM ratings WHERE movie_id = $1`,
		rating.MovieID)
	if err != nil {
		return err
	}
	var all []model.Rating
	for rows.Next() {
		var x model.Rating
		if err := rows.Scan(&x.MovieID, &x.Source, &x.Type, &x.Score, &x.ReviewCount); err != nil {
			rows.Close()
			return err
		}
		all = append(all, x)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if combined, ok := model.CombineRatings(all); ok {
		_, err = tx.Exec(ctx,
			`UPDATE movies SET combined_score = $2, updated_at = now() WHERE id = $1`,
			rating.MovieID, combined)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *RatingsRepo) List(ctx context.Context, movieID int64) ([]model.Rating, error) {
	rows, err := r.db.Query(ctx,
		`SELECT movie_id, source, type, score, review_count FROM ratings
		 WHERE movie_id = $1 ORDER BY source`, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Rating
	for rows.Next() {
		var x model.Rating
		if err := rows.Scan(&x.MovieID, &x.Source, &x.Type, &x.Score, &x.ReviewCount); err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}
