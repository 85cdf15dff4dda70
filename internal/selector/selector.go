package selector

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/CalmingAgent/movieNight/internal/model"
	"github.com/CalmingAgent/movieNight/internal/trends"
)

var (
	// ErrEmptyPool means no movie passed the pool filter.
	ErrEmptyPool = errors.New("candidate pool is empty")

	// ErrInvalidAttendees rejects draws for less than one attendee.
	ErrInvalidAttendees = errors.New("attendee count must be at least 1")
)

// Weight mix between quality and momentum, applied before the recency
// penalty. A movie nobody rated yet counts as average quality.
const (
	scoreWeight  = 0.6
	trendWeight  = 0.4
	neutralScore = 50.0
)

// Pool lists the draw-eligible movies.
type Pool interface {
	ListCandidates(ctx context.Context, f model.PoolFilter) ([]model.Movie, error)
}

// NightStore persists a drawn night with its candidates.
type NightStore interface {
	Create(ctx context.Context, sessionAt time.Time, attendeeCount int, candidates []model.NightCandidate) (model.MovieNight, error)
	SetWinner(ctx context.Context, nightID, movieID int64) error
}

// TrendScorer answers 0-100 popularity lookups.
type TrendScorer interface {
	Score(ctx context.Context, term string) (int, error)
}

// FairnessSource supplies the per-movie recency penalty.
type FairnessSource interface {
	RecencyPenalty(ctx context.Context, movieID int64) (float64, error)
}

// Selector draws weighted candidate slates for movie nights.
type Selector struct {
	pool     Pool
	nights   NightStore
	trends   TrendScorer
	fairness FairnessSource
}

func New(pool Pool, nights NightStore, trends TrendScorer, fairness FairnessSource) *Selector {
	return &Selector{pool: pool, nights: nights, trends: trends, fairness: fairness}
}

// PickNight draws attendeeCount+1 candidates (capped at the pool size)
// without replacement, weighted by quality, trend momentum, and recency,
// and persists the night before returning it. The rng is injected so draws
// are reproducible under test.
func (s *Selector) PickNight(ctx context.Context, rng *rand.Rand, sessionAt time.Time, attendeeCount int, filter model.PoolFilter) (model.MovieNight, []model.NightCandidate, error) {
	if attendeeCount < 1 {
		return model.MovieNight{}, nil, ErrInvalidAttendees
	}
	pool, err := s.pool.ListCandidates(ctx, filter)
	if err != nil {
		return model.MovieNight{}, nil, err
	}
	if len(pool) == 0 {
		return model.MovieNight{}, nil, ErrEmptyPool
	}

	weights, err := s.weigh(ctx, pool)
	if err != nil {
		return model.MovieNight{}, nil, err
	}

	size := attendeeCount + 1
	if size > len(pool) {
		size = len(pool)
	}
	picked := draw(rng, pool, weights, size)

	candidates := make([]model.NightCandidate, 0, len(picked))
	for _, p := range picked {
		candidates = append(candidates, model.NightCandidate{
			MovieID:  pool[p].ID,
			Weight:   weights[p],
			Playable: pool[p].TrailerState == model.TrailerResolved,
		})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].MovieID < candidates[j].MovieID })

	night, err := s.nights.Create(ctx, sessionAt, attendeeCount, candidates)
	if err != nil {
		return model.MovieNight{}, nil, err
	}
	for i := range candidates {
		candidates[i].NightID = night.ID
	}
	log.Info().Int64("night_id", night.ID).Int("pool", len(pool)).
		Int("drawn", len(candidates)).Msg("night drawn")
	return night, candidates, nil
}

// SetWinner records the movie picked at the table.
func (s *Selector) SetWinner(ctx context.Context, nightID, movieID int64) error {
	return s.nights.SetWinner(ctx, nightID, movieID)
}

// weigh computes the draw weight for every pool entry. Movies whose trend
// lookup is transiently unavailable borrow the pool median so one flaky term
// does not skew the draw.
func (s *Selector) weigh(ctx context.Context, pool []model.Movie) ([]float64, error) {
	trendScores := make([]float64, len(pool))
	missing := make([]bool, len(pool))
	var known []float64
	for i, m := range pool {
		score, err := s.trends.Score(ctx, m.Title)
		switch {
		case err == nil:
			trendScores[i] = float64(score)
			known = append(known, float64(score))
		case errors.Is(err, trends.ErrTrendUnavailable):
			missing[i] = true
		default:
			return nil, err
		}
	}
	fallback := median(known)
	for i := range pool {
		if missing[i] {
			trendScores[i] = fallback
		}
	}

	weights := make([]float64, len(pool))
	for i, m := range pool {
		quality := neutralScore
		if m.CombinedScore != nil {
			quality = *m.CombinedScore
		}
		penalty, err := s.fairness.RecencyPenalty(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		weights[i] = (scoreWeight*quality/100 + trendWeight*trendScores[i]/100) * penalty
	}
	return weights, nil
}

// draw selects size distinct indexes by cumulative-weight walk. When the
// remaining mass is zero (everything in cooldown) the draw degrades to
// uniform so a night can still happen.
func draw(rng *rand.Rand, pool []model.Movie, weights []float64, size int) []int {
	remaining := make([]int, len(pool))
	for i := range pool {
		remaining[i] = i
	}
	var picked []int
	for len(picked) < size {
		total := 0.0
		for _, idx := range remaining {
			total += weights[idx]
		}
		var chosen int
		if total <= 0 {
			chosen = rng.Intn(len(remaining))
		} else {
			target := rng.Float64() * total
			acc := 0.0
			chosen = len(remaining) - 1
			for j, idx := range remaining {
				acc += weights[idx]
				if target < acc {
					chosen = j
					break
				}
			}
		}
		picked = append(picked, remaining[chosen])
		remaining = append(remaining[:chosen], remaining[chosen+1:]...)
	}
	return picked
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return neutralScore
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
