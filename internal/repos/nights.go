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

type NightsRepo struct {
	db *pgxpool.Pool
}

// Create persists a night together with its drawn candidates in one tx.
func (r *NightsRepo) Create(ctx context.Context, sessionAt time.Time, attendeeCount int, candidates []model.NightCandidate) (model.MovieNight, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.MovieNight{}, err
	}
	defer tx.Rollback(ctx)

	var n model.MovieNight
	n.AttendeeCount = attendeeCount
	err = tx.QueryRow(ctx,
		`INSERT INTO movie_nights (session_at, attendee_count) VALUES ($1, $2)
		 RETURNING id, session_at, created_at`,
		sessionAt, attendeeCount).Scan(&n.ID, &n.SessionAt, &n.CreatedAt)
	if err != nil {
		return model.MovieNight{}, err
	}
	for _, c := range candidates {
		_, err := tx.Exec(ctx,
			`INSERT INTO night_candidates (night_id, movie_id, weight, playable)
			 VALUES ($1, $2, $3, $4)`,
			n.ID, c.MovieID, c.Weight, c.Playable)
		if err != nil {
			return model.MovieNight{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return model.MovieNight{}, err
	}
	return n, nil
}

func (r *NightsRepo) Get(ctx context.Context, id int64) (model.MovieNight, []model.NightCandidate, error) {
	var (
		n      model.MovieNight
		winner pgtype.Int8
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, session_at, attendee_count, winner_movie_id, created_at
		 FROM movie_nights WHERE id = $1`, id).
		Scan(&n.ID, &n.SessionAt, &n.AttendeeCount, &winner, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.MovieNight{}, nil, ErrNotFound
	}
	if err != nil {
		return model.MovieNight{}, nil, err
	}
	n.WinnerMovieID = int8Ptr(winner)

	rows, err := r.db.Query(ctx,
		`SELECT night_id, movie_id, weight, playable FROM night_candidates
		 WHERE night_id = $1 ORDER BY movie_id`, id)
	if err != nil {
		return model.MovieNight{}, nil, err
	}
	defer rows.Close()
	var cs []model.NightCandidate
	for rows.Next() {
		var c model.NightCandidate
		if err := rows.Scan(&c.NightID, &c.MovieID, &c.Weight, &c.Playable); err != nil {
			return model.MovieNight{}, nil, err
		}
		cs = append(cs, c)
	}
	return n, cs, rows.Err()
}

// SetWinner records the chosen movie. The movie must be one of the night's
// candidates, otherwise ErrInvalidNight.
func (r *NightsRepo) SetWinner(ctx context.Context, nightID, movieID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var ok bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM night_candidates WHERE night_id = $1 AND movie_id = $2)`,
		nightID, movieID).Scan(&ok)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidNight
	}
	tag, err := tx.Exec(ctx,
		`UPDATE movie_nights SET winner_movie_id = $2 WHERE id = $1`, nightID, movieID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *NightsRepo) MarkPlayable(ctx context.Context, nightID, movieID int64, playable bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE night_candidates SET playable = $3 WHERE night_id = $1 AND movie_id = $2`,
		nightID, movieID, playable)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// NightsSinceWin counts nights held after the movie's most recent win.
// won=false means the movie has never won a night.
func (r *NightsRepo) NightsSinceWin(ctx context.Context, movieID int64) (n int, won bool, err error) {
	var lastWin pgtype.Timestamptz
	err = r.db.QueryRow(ctx,
		`SELECT max(session_at) FROM movie_nights WHERE winner_movie_id = $1`,
		movieID).Scan(&lastWin)
	if err != nil {
		return 0, false, err
	}
	if !lastWin.Valid {
		return 0, false, nil
	}
	err = r.db.QueryRow(ctx,
		`SELECT count(*) FROM movie_nights WHERE session_at > $1`, lastWin).Scan(&n)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (r *NightsRepo) AddAttendees(ctx context.Context, nightID int64, userIDs []int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	for _, uid := range userIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO night_attendees (night_id, user_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, nightID, uid)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GroupStats tallies candidacies and wins per genre and per theme over nights
// held since the cutoff. Only decided nights feed the win counts.
func (r *NightsRepo) GroupStats(ctx context.Context, since time.Time) ([]model.GroupStat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT 'genre', g.name,
		       count(*),
		       count(*) FILTER (WHERE n.winner_movie_id = nc.movie_id)
		FROM night_candidates nc
		JOIN movie_nights n ON n.id = nc.night_id
		JOIN movie_genres mg ON mg.movie_id = nc.movie_id
		JOIN genres g ON g.id = mg.genre_id
		WHERE n.session_at >= $1 AND n.winner_movie_id IS NOT NULL
		GROUP BY g.name
		UNION ALL
		SELECT 'theme', t.name,
		       count(*),
		       count(*) FILTER (WHERE n.winner_movie_id = nc.movie_id)
		FROM night_candidates nc
		JOIN movie_nights n ON n.id = nc.night_id
		JOIN movie_themes mt ON mt.movie_id = nc.movie_id
		JOIN themes t ON t.id = mt.theme_id
		WHERE n.session_at >= $1 AND n.winner_movie_id IS NOT NULL
		GROUP BY t.name
		ORDER BY 1, 2`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.GroupStat
	for rows.Next() {
		var s model.GroupStat
		if err := rows.Scan(&s.Dimension, &s.Grouping, &s.Proposed, &s.Wins); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
