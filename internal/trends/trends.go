package trends

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/CalmingAgent/movieNight/internal/model"
	"github.com/CalmingAgent/movieNight/internal/repos"
	"github.com/CalmingAgent/movieNight/pkg/provider"
)

// ErrTrendUnavailable means the provider could not answer and no cached
// sample exists for today. Callers substitute a neutral score.
var ErrTrendUnavailable = errors.New("trend score unavailable")

// Store is the cached-sample persistence the service needs.
type Store interface {
	Get(ctx context.Context, term string, asOf time.Time) (model.TrendSample, error)
	Put(ctx context.Context, s model.TrendSample) error
}

// Service answers popularity lookups from a per-day sample cache, falling
// back to the live provider on a miss. Provider failures are never cached,
// so the next lookup retries.
type Service struct {
	store    Store
	provider provider.TrendProvider
	now      func() time.Time
}

func New(store Store, p provider.TrendProvider) *Service {
	return &Service{store: store, provider: p, now: time.Now}
}

// Score returns the 0-100 interest score for term as of today. A confirmed
// "no data" answer scores zero and is cached like any other sample.
func (s *Service) Score(ctx context.Context, term string) (int, error) {
	asOf := s.now()

	cached, err := s.store.Get(ctx, term, asOf)
	switch {
	case err == nil:
		if cached.NoData || cached.Score == nil {
			return 0, nil
		}
		return *cached.Score, nil
	case !errors.Is(err, repos.ErrNotFound):
		return 0, err
	}

	score, ok, err := s.provider.Fetch(ctx, term)
	if err != nil {
		log.Warn().Err(err).Str("term", term).Msg("trend fetch failed")
		return 0, fmt.Errorf("%w: %v", ErrTrendUnavailable, err)
	}

	sample := model.TrendSample{Term: term, AsOf: asOf, NoData: !ok}
	if ok {
		sample.Score = &score
	}
	if err := s.store.Put(ctx, sample); err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return score, nil
}

// Warm fetches the given terms into the cache, skipping ones already sampled
// today. Provider errors stop the sweep so a rate-limited run backs off.
func (s *Service) Warm(ctx context.Context, terms []string) (fetched int, err error) {
	asOf := s.now()
	for _, term := range terms {
		if _, err := s.store.Get(ctx, term, asOf); err == nil {
			continue
		} else if !errors.Is(err, repos.ErrNotFound) {
			return fetched, err
		}
		if _, err := s.Score(ctx, term); err != nil {
			return fetched, err
		}
		fetched++
	}
	return fetched, nil
}
