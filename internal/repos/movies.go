package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CalmingAgent/movieNight/internal/model"
)

type MoviesRepo struct {
	db *pgxpool.Pool
}

const movieCols = `m.id, m.tmdb_id, m.imdb_id, m.title, m.year, m.plot, m.mpaa,
	m.runtime_seconds, m.franchise, m.origin, m.trailer_url, m.trailer_state,
	m.combined_score, m.box_office_expected, m.box_office_actual,
	COALESCE(array_agg(g.name ORDER BY g.name) FILTER (WHERE g.name IS NOT NULL), '{}'),
	m.created_at, m.updated_at`

const movieJoin = `FROM movies m
	LEFT JOIN movie_genres mg ON mg.movie_id = m.id
	LEFT JOIN genres g ON g.id = mg.genre_id`

func scanMovie(row pgx.Row) (model.Movie, error) {
	var (
		m        model.Movie
		tmdbID   pgtype.Int8
		imdbID   pgtype.Text
		year     pgtype.Int4
		plot     pgtype.Text
		mpaa     pgtype.Text
		runtime  pgtype.Int4
		fran     pgtype.Text
		origin   pgtype.Text
		trailer  pgtype.Text
		combined pgtype.Float8
		boxExp   pgtype.Float8
		boxAct   pgtype.Float8
	)
	err := row.Scan(&m.ID, &tmdbID, &imdbID, &m.Title, &year, &plot, &mpaa,
		&runtime, &fran, &origin, &trailer, &m.TrailerState,
		&combined, &boxExp, &boxAct, &m.Genres, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return model.Movie{}, err
	}
	m.TMDBID = int8Ptr(tmdbID)
	m.IMDBID = textPtr(imdbID)
	m.Year = int4Ptr(year)
	m.Plot = textPtr(plot)
	m.MPAA = textPtr(mpaa)
	m.RuntimeSeconds = int4Ptr(runtime)
	m.Franchise = textPtr(fran)
	m.Origin = textPtr(origin)
	m.TrailerURL = textPtr(trailer)
	m.CombinedScore = float8Ptr(combined)
	m.BoxOfficeExpected = float8Ptr(boxExp)
	m.BoxOfficeActual = float8Ptr(boxAct)
	return m, nil
}

func (r *MoviesRepo) Get(ctx context.Context, id int64) (model.Movie, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+movieCols+` `+movieJoin+` WHERE m.id = $1 GROUP BY m.id`, id)
	m, err := scanMovie(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Movie{}, ErrNotFound
	}
	return m, err
}

// Upsert merges attrs into an existing movie matched by tmdb_id, then imdb_id,
// then exact title, creating the row when none matches. Nil attr fields leave
// existing values untouched.
func (r *MoviesRepo) Upsert(ctx context.Context, attrs model.MovieAttrs) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		SELECT id FROM movies
		WHERE ($1::bigint IS NOT NULL AND tmdb_id = $1)
		   OR ($2::text IS NOT NULL AND imdb_id = $2)
		   OR (lower(title) = lower($3))
		ORDER BY (tmdb_id = $1) DESC NULLS LAST, (imdb_id = $2) DESC NULLS LAST, id
		LIMIT 1`,
		int8Val(attrs.TMDBID), textVal(attrs.IMDBID), attrs.Title).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		err = tx.QueryRow(ctx, `
			INSERT INTO movies (tmdb_id, imdb_id, title, year, plot, mpaa,
				runtime_seconds, franchise, origin, box_office_expected, box_office_actual)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id`,
			int8Val(attrs.TMDBID), textVal(attrs.IMDBID), attrs.Title,
			int4Val(attrs.Year), textVal(attrs.Plot), textVal(attrs.MPAA),
			int4Val(attrs.RuntimeSeconds), textVal(attrs.Franchise), textVal(attrs.Origin),
			float8Val(attrs.BoxOfficeExpected), float8Val(attrs.BoxOfficeActual)).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert movie: %w", err)
		}
	case err != nil:
		return 0, err
	default:
		_, err = tx.Exec(ctx, `
			UPDATE movies SET
				tmdb_id             = COALESCE($2, tmdb_id),
				imdb_id             = COALESCE($3, imdb_id),
				year                = COALESCE($4, year),
				plot                = COALESCE($5, plot),
				mpaa                = COALESCE($6, mpaa),
				runtime_seconds     = COALESCE($7, runtime_seconds),
				franchise           = COALESCE($8, franchise),
				origin              = COALESCE($9, origin),
				box_office_expected = COALESCE($10, box_office_expected),
				box_office_actual   = COALESCE($11, box_office_actual),
				updated_at          = now()
			WHERE id = $1`,
			id, int8Val(attrs.TMDBID), textVal(attrs.IMDBID),
			int4Val(attrs.Year), textVal(attrs.Plot), textVal(attrs.MPAA),
			int4Val(attrs.RuntimeSeconds), textVal(attrs.Franchise), textVal(attrs.Origin),
			float8Val(attrs.BoxOfficeExpected), float8Val(attrs.BoxOfficeActual))
		if err != nil {
			return 0, fmt.Errorf("merge movie: %w", err)
		}
	}
	return id, tx.Commit(ctx)
}

// ListPage returns movies ordered by id with keyset pagination.
func (r *MoviesRepo) ListPage(ctx context.Context, afterID int64, limit int) ([]model.Movie, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+movieCols+` `+movieJoin+`
		 WHERE m.id > $1 GROUP BY m.id ORDER BY m.id LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMovies(rows)
}

// ListCandidates returns the draw-eligible pool: trailer not disputed,
// mid-re-resolution, or definitively failed, narrowed by the optional filter.
func (r *MoviesRepo) ListCandidates(ctx context.Context, f model.PoolFilter) ([]model.Movie, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+movieCols+` `+movieJoin+`
		 WHERE m.trailer_state NOT IN ('disputed', 're_resolving', 'failed')
		   AND ($1 = '' OR EXISTS (
				SELECT 1 FROM movie_genres fg JOIN genres fgn ON fgn.id = fg.genre_id
				WHERE fg.movie_id = m.id AND lower(fgn.name) = lower($1)))
		   AND ($2 = '' OR EXISTS (
				SELECT 1 FROM movie_themes ft JOIN themes ftn ON ftn.id = ft.theme_id
				WHERE ft.movie_id = m.id AND lower(ftn.name) = lower($2)))
		   AND ($3::timestamptz IS NULL OR NOT EXISTS (
				SELECT 1 FROM movie_nights n
				WHERE n.winner_movie_id = m.id AND n.session_at >= $3))
		 GROUP BY m.id ORDER BY m.id`,
		f.Genre, f.Theme, tsVal(f.NotScreenedSince))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMovies(rows)
}

func (r *MoviesRepo) ListByTrailerState(ctx context.Context, state string) ([]model.Movie, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+movieCols+` `+movieJoin+`
		 WHERE m.trailer_state = $1 GROUP BY m.id ORDER BY m.id`, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMovies(rows)
}

func collectMovies(rows pgx.Rows) ([]model.Movie, error) {
	var out []model.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MoviesRepo) SetTrailer(ctx context.Context, movieID int64, url *string, state string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE movies SET trailer_url = $2, trailer_state = $3, updated_at = now() WHERE id = $1`,
		movieID, textVal(url), state)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MoviesRepo) SetTrailerState(ctx context.Context, movieID int64, state string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE movies SET trailer_state = $2, updated_at = now() WHERE id = $1`,
		movieID, state)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MoviesRepo) Aliases(ctx context.Context, movieID int64) ([]model.Alias, error) {
	rows, err := r.db.Query(ctx,
		`SELECT movie_id, alt_title, position FROM movie_aliases
		 WHERE movie_id = $1 ORDER BY position, alt_title`, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Alias
	for rows.Next() {
		var a model.Alias
		if err := rows.Scan(&a.MovieID, &a.AltTitle, &a.Position); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *MoviesRepo) ReplaceAliases(ctx context.Context, movieID int64, titles []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `DELETE FROM movie_aliases WHERE movie_id = $1`, movieID); err != nil {
		return err
	}
	for i, t := range titles {
		_, err := tx.Exec(ctx,
			`INSERT INTO movie_aliases (movie_id, alt_title, position) VALUES ($1, $2, $3)
			 ON CONFLICT (movie_id, alt_title) DO NOTHING`, movieID, t, i)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *MoviesRepo) SetGenres(ctx context.Context, movieID int64, names []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `DELETE FROM movie_genres WHERE movie_id = $1`, movieID); err != nil {
		return err
	}
	for _, name := range names {
		_, err := tx.Exec(ctx, `
			WITH g AS (
				INSERT INTO genres (name) VALUES ($2)
				ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
				RETURNING id
			)
			INSERT INTO movie_genres (movie_id, genre_id)
			SELECT $1, id FROM g
			ON CONFLICT DO NOTHING`, movieID, name)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *MoviesRepo) TagTheme(ctx context.Context, movieID int64, theme string) error {
	_, err := r.db.Exec(ctx, `
		WITH t AS (
			INSERT INTO themes (name) VALUES ($2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		)
		INSERT INTO movie_themes (movie_id, theme_id)
		SELECT $1, id FROM t
		ON CONFLICT DO NOTHING`, movieID, theme)
	return err
}

func (r *MoviesRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
