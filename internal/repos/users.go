package repos

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CalmingAgent/movieNight/internal/model"
)

type UsersRepo struct {
	db *pgxpool.Pool
}

func (r *UsersRepo) Ensure(ctx context.Context, name string) (model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at`, name).
		Scan(&u.ID, &u.Name, &u.CreatedAt)
	return u, err
}

func (r *UsersRepo) AttendanceCount(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM night_attendees WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (r *UsersRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM users ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
