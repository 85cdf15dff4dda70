package repos

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Domain errors surfaced by the store.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidNight = errors.New("winner is not among the night's candidates")
)

// Repository aggregates the per-entity repos over one pgx pool.
type Repository struct {
	db *pgxpool.Pool

	Movies  *MoviesRepo
	Nights  *NightsRepo
	Ratings *RatingsRepo
	Trends  *TrendsRepo
	Reviews *ReviewsRepo
	Users   *UsersRepo
	Audits  *AuditsRepo
	KV      *KVRepo
}

func New(db *pgxpool.Pool) *Repository {
	r := &Repository{db: db}
	r.Movies = &MoviesRepo{db: db}
	r.Nights = &NightsRepo{db: db}
	r.Ratings = &RatingsRepo{db: db}
	r.Trends = &TrendsRepo{db: db}
	r.Reviews = &ReviewsRepo{db: db}
	r.Users = &UsersRepo{db: db}
	r.Audits = &AuditsRepo{db: db}
	r.KV = &KVRepo{db: db}
	return r
}
