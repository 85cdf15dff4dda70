package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/CalmingAgent/movieNight/internal/model"
	"github.com/CalmingAgent/movieNight/pkg/provider"
)

var (
	// ErrResolutionFailed means every provider in the chain answered and none
	// produced a confident match. The decision is cached until a force refresh
	// or a chain change.
	ErrResolutionFailed = errors.New("no confident trailer match")

	// ErrNotResolved guards operations that only make sense on a movie with an
	// accepted trailer, such as disputing it.
	ErrNotResolved = errors.New("movie has no resolved trailer")
)

// MovieStore is the movie-side persistence the resolver drives.
type MovieStore interface {
	Get(ctx context.Context, id int64) (model.Movie, error)
	Aliases(ctx context.Context, movieID int64) ([]model.Alias, error)
	SetTrailer(ctx context.Context, movieID int64, url *string, state string) error
	SetTrailerState(ctx context.Context, movieID int64, state string) error
	ListByTrailerState(ctx context.Context, state string) ([]model.Movie, error)
}

// DecisionStore persists cached resolution decisions and review flags.
type DecisionStore interface {
	GetResolution(ctx context.Context, movieID int64, chainVersion string) (model.Resolution, error)
	PutResolution(ctx context.Context, res model.Resolution) error
	DeleteResolutions(ctx context.Context, movieID int64) error
	Flag(ctx context.Context, f model.ReviewFlag) error
	GetFlag(ctx context.Context, movieID int64) (model.ReviewFlag, error)
	ClearFlag(ctx context.Context, movieID int64) error
}

// Resolver walks an ordered provider chain to attach one trailer URL to each
// movie, caching every definitive decision keyed by (movie, chain version).
// Transient provider failures are never cached.
type Resolver struct {
	movies      MovieStore
	decisions   DecisionStore
	chain       []provider.Searcher
	version     string
	concurrency int
	notFound    error
}

// New builds a resolver over the given chain. notFound is the store's
// missing-row sentinel so cache misses can be told apart from real errors.
func New(movies MovieStore, decisions DecisionStore, chain []provider.Searcher, concurrency int, notFound error) *Resolver {
	names := make([]string, len(chain))
	for i, s := range chain {
		names[i] = s.Name()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Resolver{
		movies:      movies,
		decisions:   decisions,
		chain:       chain,
		version:     "v1:" + strings.Join(names, ">"),
		concurrency: concurrency,
		notFound:    notFound,
	}
}

// ChainVersion identifies the current provider ordering. Cached decisions
// from other versions are ignored, so reordering the chain re-resolves
// everything lazily.
func (r *Resolver) ChainVersion() string { return r.version }

// Resolve returns the trailer decision for the movie, serving a cached one
// when present and otherwise walking the chain. A definitive no-match returns
// the cached failed decision together with ErrResolutionFailed.
func (r *Resolver) Resolve(ctx context.Context, movieID int64) (model.Resolution, error) {
	cached, err := r.decisions.GetResolution(ctx, movieID, r.version)
	switch {
	case err == nil:
		if cached.Outcome == model.OutcomeFailed {
			return cached, ErrResolutionFailed
		}
		return cached, nil
	case !errors.Is(err, r.notFound):
		return model.Resolution{}, err
	}

	movie, err := r.movies.Get(ctx, movieID)
	if err != nil {
		return model.Resolution{}, err
	}
	exclude, err := r.disputedVideoID(ctx, movieID)
	if err != nil {
		return model.Resolution{}, err
	}
	return r.attempt(ctx, movie, exclude, newQuotaLatch())
}

// disputedVideoID returns the flagged video id when the movie has an open
// review flag, so resolution never re-serves a rejected link.
func (r *Resolver) disputedVideoID(ctx context.Context, movieID int64) (string, error) {
	flag, err := r.decisions.GetFlag(ctx, movieID)
	switch {
	case err == nil:
		return videoIDFromURL(flag.TrailerURL), nil
	case errors.Is(err, r.notFound):
		return "", nil
	}
	return "", err
}

// Dispute flags the movie's accepted trailer for human review, parks the
// movie out of the draw pool, and drops the cached decision so the next
// resolution starts clean.
func (r *Resolver) Dispute(ctx context.Context, movieID int64, reason string) error {
	movie, err := r.movies.Get(ctx, movieID)
	if err != nil {
		return err
	}
	if movie.TrailerState != model.TrailerResolved || movie.TrailerURL == nil {
		return ErrNotResolved
	}
	if err := r.decisions.Flag(ctx, model.ReviewFlag{
		MovieID:    movieID,
		TrailerURL: *movie.TrailerURL,
		Reason:     reason,
	}); err != nil {
		return err
	}
	if err := r.decisions.DeleteResolutions(ctx, movieID); err != nil {
		return err
	}
	return r.movies.SetTrailerState(ctx, movieID, model.TrailerDisputed)
}

// ReResolve retries a disputed movie, excluding the disputed video from the
// candidate set. The review flag is cleared only when a new link is accepted.
func (r *Resolver) ReResolve(ctx context.Context, movieID int64) (model.Resolution, error) {
	flag, err := r.decisions.GetFlag(ctx, movieID)
	if err != nil {
		return model.Resolution{}, err
	}
	movie, err := r.movies.Get(ctx, movieID)
	if err != nil {
		return model.Resolution{}, err
	}
	if err := r.movies.SetTrailerState(ctx, movieID, model.TrailerReResolving); err != nil {
		return model.Resolution{}, err
	}
	res, err := r.attempt(ctx, movie, videoIDFromURL(flag.TrailerURL), newQuotaLatch())
	if err != nil && !errors.Is(err, ErrResolutionFailed) {
		// Transient failure: leave the movie parked for a later retry.
		if stateErr := r.movies.SetTrailerState(ctx, movieID, model.TrailerDisputed); stateErr != nil {
			log.Error().Err(stateErr).Int64("movie_id", movieID).Msg("restore disputed state")
		}
	}
	return res, err
}

// ForceRefresh discards every cached decision for the movie and resolves
// from scratch.
func (r *Resolver) ForceRefresh(ctx context.Context, movieID int64) (model.Resolution, error) {
	movie, err := r.movies.Get(ctx, movieID)
	if err != nil {
		return model.Resolution{}, err
	}
	if err := r.decisions.DeleteResolutions(ctx, movieID); err != nil {
		return model.Resolution{}, err
	}
	if err := r.movies.SetTrailer(ctx, movieID, nil, model.TrailerUnresolved); err != nil {
		return model.Resolution{}, err
	}
	exclude, err := r.disputedVideoID(ctx, movieID)
	if err != nil {
		return model.Resolution{}, err
	}
	return r.attempt(ctx, movie, exclude, newQuotaLatch())
}

// ResolveAll sweeps every unresolved movie through the chain with bounded
// concurrency. A provider that reports quota exhaustion is latched off for
// the remainder of the run. Work in flight is finished and cached even if
// ctx is cancelled mid-run.
func (r *Resolver) ResolveAll(ctx context.Context) (resolved, failed, skipped int, err error) {
	movies, err := r.movies.ListByTrailerState(ctx, model.TrailerUnresolved)
	if err != nil {
		return 0, 0, 0, err
	}
	latch := newQuotaLatch()

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(r.concurrency).WithContext(ctx)
	for _, m := range movies {
		movie := m
		p.Go(func(ctx context.Context) error {
			bg := context.WithoutCancel(ctx)
			_, err := r.attempt(bg, movie, "", latch)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				resolved++
			case errors.Is(err, provider.ErrQuotaExceeded):
				skipped++
			case errors.Is(err, ErrResolutionFailed):
				failed++
			default:
				skipped++
			}
			return nil
		})
	}
	if werr := p.Wait(); werr != nil {
		return resolved, failed, skipped, werr
	}
	log.Info().Int("resolved", resolved).Int("failed", failed).Int("skipped", skipped).
		Str("chain", r.version).Msg("bulk trailer resolution finished")
	return resolved, failed, skipped, nil
}

// attempt walks the chain once for one movie. Definitive outcomes (match or
// confirmed no-match from a fully answering chain) are cached; a chain with
// any transient failure returns an error and caches nothing.
func (r *Resolver) attempt(ctx context.Context, movie model.Movie, excludeVideoID string, latch *quotaLatch) (model.Resolution, error) {
	titles := []string{movie.Title}
	aliases, err := r.movies.Aliases(ctx, movie.ID)
	if err != nil {
		return model.Resolution{}, err
	}
	for _, a := range aliases {
		titles = append(titles, a.AltTitle)
	}

	var transientErr error
	quotaOnly := len(r.chain) > 0
	for _, s := range r.chain {
		if latch.tripped(s.Name()) {
			transientErr = provider.ErrQuotaExceeded
			continue
		}
		cands, err := r.search(ctx, s, movie, titles, excludeVideoID)
		if err != nil {
			if errors.Is(err, provider.ErrQuotaExceeded) {
				latch.trip(s.Name())
			} else {
				quotaOnly = false
			}
			log.Warn().Err(err).Str("provider", s.Name()).
				Int64("movie_id", movie.ID).Msg("provider pass failed")
			transientErr = err
			continue
		}
		quotaOnly = false
		if best, sim, ok := pickBest(movie, titles, cands, excludeVideoID); ok {
			return r.accept(ctx, movie, s.Name(), best, sim)
		}
	}

	if transientErr != nil {
		if quotaOnly {
			// The whole chain was quota-exhausted: failed for this run, but
			// not cached, the next run retries.
			return model.Resolution{}, fmt.Errorf("resolve %q: %w: %w", movie.Title, ErrResolutionFailed, transientErr)
		}
		return model.Resolution{}, fmt.Errorf("resolve %q: %w", movie.Title, transientErr)
	}
	return r.reject(ctx, movie)
}

func (r *Resolver) search(ctx context.Context, s provider.Searcher, movie model.Movie, titles []string, excludeVideoID string) ([]provider.Candidate, error) {
	var all []provider.Candidate
	for _, t := range titles {
		q := provider.Query{Title: t}
		if movie.Year != nil {
			q.Year = *movie.Year
		}
		if movie.IMDBID != nil {
			q.IMDBID = *movie.IMDBID
		}
		if movie.TMDBID != nil {
			q.TMDBID = *movie.TMDBID
		}
		cands, err := s.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, cands...)
		// A confident hit on the primary title makes alias passes redundant.
		if _, _, ok := pickBest(movie, titles, cands, excludeVideoID); ok {
			break
		}
	}
	return all, nil
}

func (r *Resolver) accept(ctx context.Context, movie model.Movie, providerName string, c provider.Candidate, sim float64) (model.Resolution, error) {
	res := model.Resolution{
		MovieID:      movie.ID,
		ChainVersion: r.version,
		Outcome:      model.OutcomeResolved,
		VideoID:      c.VideoID,
		VideoURL:     c.URL,
		VideoTitle:   c.Title,
		ChannelTitle: c.ChannelTitle,
		Official:     c.Official,
		Score:        sim,
		ResolvedAt:   time.Now(),
	}
	if err := r.decisions.PutResolution(ctx, res); err != nil {
		return model.Resolution{}, err
	}
	url := c.URL
	if err := r.movies.SetTrailer(ctx, movie.ID, &url, model.TrailerResolved); err != nil {
		return model.Resolution{}, err
	}
	if err := r.decisions.ClearFlag(ctx, movie.ID); err != nil {
		return model.Resolution{}, err
	}
	log.Info().Int64("movie_id", movie.ID).Str("provider", providerName).
		Str("video_id", c.VideoID).Bool("official", c.Official).
		Float64("similarity", sim).Msg("trailer resolved")
	return res, nil
}

func (r *Resolver) reject(ctx context.Context, movie model.Movie) (model.Resolution, error) {
	res := model.Resolution{
		MovieID:      movie.ID,
		ChainVersion: r.version,
		Outcome:      model.OutcomeFailed,
		ResolvedAt:   time.Now(),
	}
	if err := r.decisions.PutResolution(ctx, res); err != nil {
		return model.Resolution{}, err
	}
	if err := r.movies.SetTrailer(ctx, movie.ID, nil, model.TrailerFailed); err != nil {
		return model.Resolution{}, err
	}
	log.Info().Int64("movie_id", movie.ID).Str("title", movie.Title).Msg("no confident trailer match")
	return res, ErrResolutionFailed
}

// quotaLatch remembers which providers exhausted their quota during one run
// so later movies skip them instead of burning retries.
type quotaLatch struct {
	mu      sync.Mutex
	tripset map[string]bool
}

func newQuotaLatch() *quotaLatch {
	return &quotaLatch{tripset: map[string]bool{}}
}

func (l *quotaLatch) trip(name string) {
	l.mu.Lock()
	l.tripset[name] = true
	l.mu.Unlock()
}

func (l *quotaLatch) tripped(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tripset[name]
}
