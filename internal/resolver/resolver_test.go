package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CalmingAgent/movieNight/internal/model"
	"github.com/CalmingAgent/movieNight/pkg/provider"
)

var errFakeNotFound = errors.New("fake: not found")

type fakeMovies struct {
	mu      sync.Mutex
	movies  map[int64]model.Movie
	aliases map[int64][]model.Alias
}

func newFakeMovies(ms ...model.Movie) *fakeMovies {
	f := &fakeMovies{movies: map[int64]model.Movie{}, aliases: map[int64][]model.Alias{}}
	for _, m := range ms {
		if m.TrailerState == "" {
			m.TrailerState = model.TrailerUnresolved
		}
		f.movies[m.ID] = m
	}
	return f
}

func (f *fakeMovies) Get(_ context.Context, id int64) (model.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.movies[id]
	if !ok {
		return model.Movie{}, errFakeNotFound
	}
	return m, nil
}

func (f *fakeMovies) Aliases(_ context.Context, id int64) ([]model.Alias, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.aliases[id], nil
}

func (f *fakeMovies) SetTrailer(_ context.Context, id int64, url *string, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.movies[id]
	m.TrailerURL = url
	m.TrailerState = state
	f.movies[id] = m
	return nil
}

func (f *fakeMovies) SetTrailerState(_ context.Context, id int64, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.movies[id]
	m.TrailerState = state
	f.movies[id] = m
	return nil
}

func (f *fakeMovies) ListByTrailerState(_ context.Context, state string) ([]model.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Movie
	for _, m := range f.movies {
		if m.TrailerState == state {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMovies) state(id int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.movies[id].TrailerState
}

type fakeDecisions struct {
	mu          sync.Mutex
	resolutions map[string]model.Resolution
	flags       map[int64]model.ReviewFlag
}

func newFakeDecisions() *fakeDecisions {
	return &fakeDecisions{resolutions: map[string]model.Resolution{}, flags: map[int64]model.ReviewFlag{}}
}

func resKey(movieID int64, version string) string {
	return fmt.Sprintf("%d|%s", movieID, version)
}

func (f *fakeDecisions) GetResolution(_ context.Context, movieID int64, v string) (model.Resolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resolutions[resKey(movieID, v)]
	if !ok {
		return model.Resolution{}, errFakeNotFound
	}
	return r, nil
}

func (f *fakeDecisions) PutResolution(_ context.Context, r model.Resolution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolutions[resKey(r.MovieID, r.ChainVersion)] = r
	return nil
}

func (f *fakeDecisions) DeleteResolutions(_ context.Context, movieID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, r := range f.resolutions {
		if r.MovieID == movieID {
			delete(f.resolutions, k)
		}
	}
	return nil
}

func (f *fakeDecisions) Flag(_ context.Context, fl model.ReviewFlag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[fl.MovieID] = fl
	return nil
}

func (f *fakeDecisions) GetFlag(_ context.Context, movieID int64) (model.ReviewFlag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl, ok := f.flags[movieID]
	if !ok {
		return model.ReviewFlag{}, errFakeNotFound
	}
	return fl, nil
}

func (f *fakeDecisions) ClearFlag(_ context.Context, movieID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.flags, movieID)
	return nil
}

type fakeSearcher struct {
	mu    sync.Mutex
	name  string
	cands []provider.Candidate
	err   error
	calls int
}

func (s *fakeSearcher) Name() string { return s.name }

func (s *fakeSearcher) Search(context.Context, provider.Query) ([]provider.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.cands, nil
}

func (s *fakeSearcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func cand(id, title, channel string, official bool) provider.Candidate {
	return provider.Candidate{
		VideoID:      id,
		URL:          "https://www.youtube.com/watch?v=" + id,
		Title:        title,
		ChannelTitle: channel,
		Official:     official,
		PublishedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestResolveAcceptsConfidentMatchAndCaches(t *testing.T) {
	movies := newFakeMovies(model.Movie{ID: 1, Title: "Heat"})
	decisions := newFakeDecisions()
	primary := &fakeSearcher{name: "youtube", cands: []provider.Candidate{
		cand("abc", "Heat Official Trailer", "Warner Bros.", true),
		cand("xyz", "heat pump installation guide", "DIY Channel", false),
	}}
	r := New(movies, decisions, []provider.Searcher{primary}, 2, errFakeNotFound)

	res, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "abc", res.VideoID)
	assert.Equal(t, model.OutcomeResolved, res.Outcome)
	assert.Equal(t, model.TrailerResolved, movies.state(1))

	// Second call serves the cache without touching the provider.
	before := primary.callCount()
	res2, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, res.VideoID, res2.VideoID)
	assert.Equal(t, before, primary.callCount())
}

func TestResolveFallsBackOnQuota(t *testing.T) {
	movies := newFakeMovies(model.Movie{ID: 1, Title: "Alien"})
	decisions := newFakeDecisions()
	primary := &fakeSearcher{name: "youtube", err: provider.ErrQuotaExceeded}
	secondary := &fakeSearcher{name: "tmdb", cands: []provider.Candidate{
		{VideoID: "tm1", URL: "https://www.youtube.com/watch?v=tm1",
			Title: "Official Trailer #1", ChannelTitle: "20th Century", Official: true, Exact: true},
	}}
	r := New(movies, decisions, []provider.Searcher{primary, secondary}, 2, errFakeNotFound)

	res, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "tm1", res.VideoID)
	assert.Equal(t, model.TrailerResolved, movies.state(1))
}

func TestResolveTransientFailureIsNotCached(t *testing.T) {
	movies := newFakeMovies(model.Movie{ID: 1, Title: "Alien"})
	decisions := newFakeDecisions()
	primary := &fakeSearcher{name: "youtube", err: provider.ErrUnavailable}
	r := New(movies, decisions, []provider.Searcher{primary}, 2, errFakeNotFound)

	_, err := r.Resolve(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrResolutionFailed)
	assert.Empty(t, decisions.resolutions)
	assert.Equal(t, model.TrailerUnresolved, movies.state(1))

	// Provider recovers, resolution proceeds.
	primary.mu.Lock()
	primary.err = nil
	primary.cands = []provider.Candidate{cand("ok1", "Alien Official Trailer", "20th Century", true)}
	primary.mu.Unlock()
	res, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "ok1", res.VideoID)
}

func TestResolveDefinitiveNoMatchIsCachedAsFailed(t *testing.T) {
	movies := newFakeMovies(model.Movie{ID: 1, Title: "Completely Unknown Film"})
	decisions := newFakeDecisions()
	primary := &fakeSearcher{name: "youtube", cands: []provider.Candidate{
		cand("junk", "unrelated video", "random", false),
	}}
	r := New(movies, decisions, []provider.Searcher{primary}, 2, errFakeNotFound)

	res, err := r.Resolve(context.Background(), 1)
	require.ErrorIs(t, err, ErrResolutionFailed)
	assert.Equal(t, model.OutcomeFailed, res.Outcome)
	assert.Equal(t, model.TrailerFailed, movies.state(1))

	// Cached: the failed decision is served without re-searching.
	before := primary.callCount()
	_, err = r.Resolve(context.Background(), 1)
	require.ErrorIs(t, err, ErrResolutionFailed)
	assert.Equal(t, before, primary.callCount())
}

func TestRankingPrefersOfficialThenSimilarity(t *testing.T) {
	movies := newFakeMovies(model.Movie{ID: 1, Title: "Dune"})
	decisions := newFakeDecisions()
	primary := &fakeSearcher{name: "youtube", cands: []provider.Candidate{
		cand("fan1", "Dune Official Trailer", "Fan Edits", false),
		cand("off1", "Dune Trailer", "Warner Bros. Pictures", true),
	}}
	r := New(movies, decisions, []provider.Searcher{primary}, 2, errFakeNotFound)

	res, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "off1", res.VideoID)
	assert.True(t, res.Official)
}

func TestDisputeAndReResolveExcludesDisputedVideo(t *testing.T) {
	movies := newFakeMovies(model.Movie{ID: 1, Title: "Heat"})
	decisions := newFakeDecisions()
	primary := &fakeSearcher{name: "youtube", cands: []provider.Candidate{
		cand("bad1", "Heat Official Trailer", "Warner Bros.", true),
		cand("good2", "Heat Trailer", "Warner Bros.", true),
	}}
	r := New(movies, decisions, []provider.Searcher{primary}, 2, errFakeNotFound)
	ctx := context.Background()

	res, err := r.Resolve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "bad1", res.VideoID)

	require.NoError(t, r.Dispute(ctx, 1, "wrong movie"))
	assert.Equal(t, model.TrailerDisputed, movies.state(1))
	flag, err := decisions.GetFlag(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, flag.TrailerURL, "bad1")

	res, err = r.ReResolve(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "good2", res.VideoID)
	assert.Equal(t, model.TrailerResolved, movies.state(1))
	_, err = decisions.GetFlag(ctx, 1)
	assert.ErrorIs(t, err, errFakeNotFound, "flag must be cleared on accepted link")
}

func TestResolveAfterDisputeExcludesFlaggedVideo(t *testing.T) {
	movies := newFakeMovies(model.Movie{ID: 1, Title: "Heat"})
	decisions := newFakeDecisions()
	primary := &fakeSearcher{name: "youtube", cands: []provider.Candidate{
		cand("bad1", "Heat Official Trailer", "Warner Bros.", true),
		cand("good2", "Heat Trailer", "Warner Bros.", true),
	}}
	r := New(movies, decisions, []provider.Searcher{primary}, 2, errFakeNotFound)
	ctx := context.Background()

	res, err := r.Resolve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "bad1", res.VideoID)
	require.NoError(t, r.Dispute(ctx, 1, "wrong movie"))

	res, err = r.Resolve(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "good2", res.VideoID, "a disputed link must never be re-served")
	assert.Equal(t, model.TrailerResolved, movies.state(1))
	_, err = decisions.GetFlag(ctx, 1)
	assert.ErrorIs(t, err, errFakeNotFound, "flag cleared only by the replacement link")
}

// titleSearcher answers with different candidates per query title.
type titleSearcher struct {
	name    string
	byTitle map[string][]provider.Candidate
}

func (s *titleSearcher) Name() string { return s.name }

func (s *titleSearcher) Search(_ context.Context, q provider.Query) ([]provider.Candidate, error) {
	return s.byTitle[q.Title], nil
}

func TestReResolveReachesAliasAlternative(t *testing.T) {
	movies := newFakeMovies(model.Movie{ID: 1, Title: "Heat"})
	movies.aliases[1] = []model.Alias{{MovieID: 1, AltTitle: "Heat Remastered"}}
	decisions := newFakeDecisions()
	primary := &titleSearcher{name: "youtube", byTitle: map[string][]provider.Candidate{
		"Heat":            {cand("bad1", "Heat Official Trailer", "Warner Bros.", true)},
		"Heat Remastered": {cand("alt1", "Heat Remastered Official Trailer", "Warner Bros.", true)},
	}}
	r := New(movies, decisions, []provider.Searcher{primary}, 2, errFakeNotFound)
	ctx := context.Background()

	res, err := r.Resolve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "bad1", res.VideoID)
	require.NoError(t, r.Dispute(ctx, 1, "wrong cut"))

	// The primary-title pass only yields the disputed video; the alias pass
	// must still run and find the alternative.
	res, err = r.ReResolve(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alt1", res.VideoID)
	assert.Equal(t, model.TrailerResolved, movies.state(1))
}

func TestResolveQuotaExhaustedChainReturnsResolutionFailed(t *testing.T) {
	movies := newFakeMovies(model.Movie{ID: 1, Title: "Alien"})
	decisions := newFakeDecisions()
	primary := &fakeSearcher{name: "youtube", err: provider.ErrQuotaExceeded}
	secondary := &fakeSearcher{name: "tmdb", err: provider.ErrQuotaExceeded}
	r := New(movies, decisions, []provider.Searcher{primary, secondary}, 2, errFakeNotFound)

	_, err := r.Resolve(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolutionFailed)
	assert.ErrorIs(t, err, provider.ErrQuotaExceeded)
	assert.Empty(t, decisions.resolutions, "quota exhaustion must not be cached")
	assert.Equal(t, model.TrailerUnresolved, movies.state(1))

	// Quota resets, the next attempt proceeds normally.
	secondary.mu.Lock()
	secondary.err = nil
	secondary.cands = []provider.Candidate{cand("ok1", "Alien Official Trailer", "20th Century", true)}
	secondary.mu.Unlock()
	res, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "ok1", res.VideoID)
}

func TestDisputeRequiresResolvedTrailer(t *testing.T) {
	movies := newFakeMovies(model.Movie{ID: 1, Title: "Heat"})
	r := New(movies, newFakeDecisions(), nil, 2, errFakeNotFound)
	err := r.Dispute(context.Background(), 1, "nope")
	assert.ErrorIs(t, err, ErrNotResolved)
}

func TestForceRefreshDiscardsCachedDecision(t *testing.T) {
	movies := newFakeMovies(model.Movie{ID: 1, Title: "Heat"})
	decisions := newFakeDecisions()
	primary := &fakeSearcher{name: "youtube", cands: []provider.Candidate{
		cand("old1", "Heat Official Trailer", "Warner Bros.", true),
	}}
	r := New(movies, decisions, []provider.Searcher{primary}, 2, errFakeNotFound)
	ctx := context.Background()

	res, err := r.Resolve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "old1", res.VideoID)

	primary.mu.Lock()
	primary.cands = []provider.Candidate{cand("new1", "Heat Official Trailer", "Warner Bros.", true)}
	primary.mu.Unlock()

	res, err = r.ForceRefresh(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "new1", res.VideoID)
}

func TestResolveAllLatchesQuotaPerRun(t *testing.T) {
	ms := make([]model.Movie, 0, 5)
	for i := int64(1); i <= 5; i++ {
		ms = append(ms, model.Movie{ID: i, Title: fmt.Sprintf("Movie %d", i)})
	}
	movies := newFakeMovies(ms...)
	decisions := newFakeDecisions()
	primary := &fakeSearcher{name: "youtube", err: provider.ErrQuotaExceeded}
	secondary := &fakeSearcher{name: "tmdb", cands: []provider.Candidate{
		{VideoID: "tm1", URL: "https://www.youtube.com/watch?v=tm1",
			Title: "Official Trailer", Official: true, Exact: true},
	}}
	r := New(movies, decisions, []provider.Searcher{primary, secondary}, 2, errFakeNotFound)

	resolved, failed, skipped, err := r.ResolveAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, resolved)
	assert.Zero(t, failed)
	assert.Zero(t, skipped)
	// At most one pass per worker can start before the latch trips.
	assert.LessOrEqual(t, primary.callCount(), 2, "quota provider must be latched off after the first trip")
}

func TestResolveAllCountsTransientAsSkipped(t *testing.T) {
	movies := newFakeMovies(
		model.Movie{ID: 1, Title: "Movie 1"},
		model.Movie{ID: 2, Title: "Movie 2"},
	)
	decisions := newFakeDecisions()
	primary := &fakeSearcher{name: "youtube", err: provider.ErrQuotaExceeded}
	r := New(movies, decisions, []provider.Searcher{primary}, 2, errFakeNotFound)

	resolved, failed, skipped, err := r.ResolveAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, resolved)
	assert.Zero(t, failed, "quota exhaustion must not cache failures")
	assert.Equal(t, 2, skipped)
	assert.Empty(t, decisions.resolutions)
}

func TestVideoIDFromURL(t *testing.T) {
	assert.Equal(t, "abc123", videoIDFromURL("https://www.youtube.com/watch?v=abc123"))
	assert.Equal(t, "abc123", videoIDFromURL("https://www.youtube.com/watch?v=abc123&t=5s"))
	assert.Equal(t, "abc123", videoIDFromURL("https://youtu.be/abc123"))
	assert.Equal(t, "abc123", videoIDFromURL("abc123"))
}
