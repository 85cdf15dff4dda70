package selector

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CalmingAgent/movieNight/internal/model"
	"github.com/CalmingAgent/movieNight/internal/trends"
)

type fakePool struct {
	movies []model.Movie
	filter model.PoolFilter
}

func (p *fakePool) ListCandidates(_ context.Context, f model.PoolFilter) ([]model.Movie, error) {
	p.filter = f
	return p.movies, nil
}

type fakeNights struct {
	created    []model.NightCandidate
	sessionAt  time.Time
	attendees  int
	nextID     int64
	winnerSet  int64
	winnerFor  int64
	setWinners int
}

func (n *fakeNights) Create(_ context.Context, sessionAt time.Time, attendeeCount int, cs []model.NightCandidate) (model.MovieNight, error) {
	n.created = append([]model.NightCandidate(nil), cs...)
	n.sessionAt = sessionAt
	n.attendees = attendeeCount
	n.nextID++
	return model.MovieNight{ID: n.nextID, SessionAt: sessionAt, AttendeeCount: attendeeCount}, nil
}

func (n *fakeNights) SetWinner(_ context.Context, nightID, movieID int64) error {
	n.setWinners++
	n.winnerFor = nightID
	n.winnerSet = movieID
	return nil
}

type fakeTrends struct {
	scores map[string]int
	errs   map[string]error
}

func (t *fakeTrends) Score(_ context.Context, term string) (int, error) {
	if err, ok := t.errs[term]; ok {
		return 0, err
	}
	return t.scores[term], nil
}

type fakeFairness struct {
	penalties map[int64]float64
}

func (f *fakeFairness) RecencyPenalty(_ context.Context, movieID int64) (float64, error) {
	if p, ok := f.penalties[movieID]; ok {
		return p, nil
	}
	return 1, nil
}

func fptr(f float64) *float64 { return &f }

func testMovies() []model.Movie {
	return []model.Movie{
		{ID: 1, Title: "Heat", CombinedScore: fptr(90), TrailerState: model.TrailerResolved},
		{ID: 2, Title: "Alien", CombinedScore: fptr(80), TrailerState: model.TrailerResolved},
		{ID: 3, Title: "Dune", CombinedScore: fptr(70), TrailerState: model.TrailerUnresolved},
		{ID: 4, Title: "Tenet", CombinedScore: fptr(60), TrailerState: model.TrailerResolved},
	}
}

func newSelector(pool []model.Movie, tr *fakeTrends, fa *fakeFairness) (*Selector, *fakeNights) {
	nights := &fakeNights{}
	if tr == nil {
		tr = &fakeTrends{scores: map[string]int{}}
	}
	if fa == nil {
		fa = &fakeFairness{}
	}
	return New(&fakePool{movies: pool}, nights, tr, fa), nights
}

func TestPickNightDrawSizeAndPersistence(t *testing.T) {
	sel, nights := newSelector(testMovies(), nil, nil)
	rng := rand.New(rand.NewSource(7))
	sessionAt := time.Date(2026, 9, 4, 19, 0, 0, 0, time.UTC)

	night, cands, err := sel.PickNight(context.Background(), rng, sessionAt, 2, model.PoolFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, night.AttendeeCount)
	require.Len(t, cands, 3, "attendees+1 candidates")
	assert.Len(t, nights.created, 3, "night persisted with its candidates")

	seen := map[int64]bool{}
	for _, c := range cands {
		assert.False(t, seen[c.MovieID], "draw must be without replacement")
		seen[c.MovieID] = true
		assert.Equal(t, night.ID, c.NightID)
	}
}

func TestPickNightCapsAtPoolSize(t *testing.T) {
	sel, _ := newSelector(testMovies()[:2], nil, nil)
	rng := rand.New(rand.NewSource(1))

	_, cands, err := sel.PickNight(context.Background(), rng, time.Now(), 5, model.PoolFilter{})
	require.NoError(t, err)
	assert.Len(t, cands, 2)
}

func TestPickNightReproducibleWithSameSeed(t *testing.T) {
	run := func() []int64 {
		sel, _ := newSelector(testMovies(), nil, nil)
		rng := rand.New(rand.NewSource(42))
		_, cands, err := sel.PickNight(context.Background(), rng, time.Now(), 1, model.PoolFilter{})
		require.NoError(t, err)
		ids := make([]int64, len(cands))
		for i, c := range cands {
			ids[i] = c.MovieID
		}
		return ids
	}
	assert.Equal(t, run(), run())
}

func TestPickNightEmptyPool(t *testing.T) {
	sel, _ := newSelector(nil, nil, nil)
	_, _, err := sel.PickNight(context.Background(), rand.New(rand.NewSource(1)), time.Now(), 2, model.PoolFilter{})
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestPickNightRejectsZeroAttendees(t *testing.T) {
	sel, _ := newSelector(testMovies(), nil, nil)
	_, _, err := sel.PickNight(context.Background(), rand.New(rand.NewSource(1)), time.Now(), 0, model.PoolFilter{})
	assert.ErrorIs(t, err, ErrInvalidAttendees)
}

func TestWeighMixesQualityTrendAndPenalty(t *testing.T) {
	movies := []model.Movie{
		{ID: 1, Title: "Heat", CombinedScore: fptr(90)},
		{ID: 2, Title: "Alien", CombinedScore: fptr(50)},
	}
	tr := &fakeTrends{scores: map[string]int{"Heat": 80, "Alien": 20}}
	fa := &fakeFairness{penalties: map[int64]float64{2: 0.5}}
	sel, _ := newSelector(movies, tr, fa)

	weights, err := sel.weigh(context.Background(), movies)
	require.NoError(t, err)
	// Heat: (0.6*0.9 + 0.4*0.8) * 1 = 0.86
	assert.InDelta(t, 0.86, weights[0], 1e-9)
	// Alien: (0.6*0.5 + 0.4*0.2) * 0.5 = 0.19
	assert.InDelta(t, 0.19, weights[1], 1e-9)
}

func TestWeighSubstitutesMedianForUnavailableTrend(t *testing.T) {
	movies := []model.Movie{
		{ID: 1, Title: "A", CombinedScore: fptr(50)},
		{ID: 2, Title: "B", CombinedScore: fptr(50)},
		{ID: 3, Title: "C", CombinedScore: fptr(50)},
	}
	tr := &fakeTrends{
		scores: map[string]int{"A": 10, "B": 90},
		errs:   map[string]error{"C": trends.ErrTrendUnavailable},
	}
	sel, _ := newSelector(movies, tr, nil)

	weights, err := sel.weigh(context.Background(), movies)
	require.NoError(t, err)
	// C borrows the median of {10, 90} = 50: (0.6*0.5 + 0.4*0.5) * 1 = 0.5
	assert.InDelta(t, 0.5, weights[2], 1e-9)
}

func TestWeighMissingCombinedScoreIsNeutral(t *testing.T) {
	movies := []model.Movie{{ID: 1, Title: "A"}}
	tr := &fakeTrends{scores: map[string]int{"A": 100}}
	sel, _ := newSelector(movies, tr, nil)

	weights, err := sel.weigh(context.Background(), movies)
	require.NoError(t, err)
	// (0.6*0.5 + 0.4*1.0) * 1 = 0.7
	assert.InDelta(t, 0.7, weights[0], 1e-9)
}

func TestDrawZeroMassFallsBackToUniform(t *testing.T) {
	pool := testMovies()
	weights := []float64{0, 0, 0, 0}
	picked := draw(rand.New(rand.NewSource(3)), pool, weights, 2)
	assert.Len(t, picked, 2)
	assert.NotEqual(t, picked[0], picked[1])
}

func TestDrawHeavyWeightDominates(t *testing.T) {
	pool := testMovies()
	weights := []float64{1000, 0.001, 0.001, 0.001}
	wins := 0
	for seed := int64(0); seed < 100; seed++ {
		picked := draw(rand.New(rand.NewSource(seed)), pool, weights, 1)
		if picked[0] == 0 {
			wins++
		}
	}
	assert.Greater(t, wins, 95)
}

func TestCandidatePlayabilityTracksTrailerState(t *testing.T) {
	sel, nights := newSelector(testMovies(), nil, nil)
	rng := rand.New(rand.NewSource(9))

	_, _, err := sel.PickNight(context.Background(), rng, time.Now(), 3, model.PoolFilter{})
	require.NoError(t, err)
	for _, c := range nights.created {
		if c.MovieID == 3 {
			assert.False(t, c.Playable, "unresolved trailer is not playable")
		} else {
			assert.True(t, c.Playable)
		}
	}
}

func TestPlaylistURL(t *testing.T) {
	assert.Equal(t,
		"https://www.youtube.com/watch_videos?video_ids=a1,b2,c3",
		PlaylistURL([]string{"a1", "", "b2", "c3"}))
	assert.Empty(t, PlaylistURL(nil))
	assert.Empty(t, PlaylistURL([]string{""}))
}

func TestPartyProps(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 50; i++ {
		p := PartyProps(rng, 6)
		assert.GreaterOrEqual(t, p.Number, 1)
		assert.LessOrEqual(t, p.Number, 6)
		assert.Contains(t, []string{Clockwise, CounterClockwise}, p.Direction)
	}
}

func TestSimilarity(t *testing.T) {
	a := model.Movie{
		Year: iptr(1995), RuntimeSeconds: iptr(10200),
		CombinedScore: fptr(90), Genres: []string{"Crime", "Thriller"},
	}
	b := model.Movie{
		Year: iptr(1995), RuntimeSeconds: iptr(10200),
		CombinedScore: fptr(90), Genres: []string{"crime", "thriller"},
	}
	assert.InDelta(t, 1.0, Similarity(a, b), 1e-9, "identical movies are fully similar")

	c := model.Movie{Genres: []string{"Comedy"}}
	assert.InDelta(t, 0, Similarity(a, c), 1e-9, "no shared dims, no shared genres")

	d := model.Movie{
		Year: iptr(1995), RuntimeSeconds: iptr(10200),
		CombinedScore: fptr(90), Genres: []string{"Crime", "Comedy"},
	}
	got := Similarity(a, d)
	assert.Greater(t, got, 0.6)
	assert.Less(t, got, 1.0)
}

func TestGroupSimilarity(t *testing.T) {
	a := model.Movie{Year: iptr(1995), CombinedScore: fptr(90), Genres: []string{"Crime"}}
	b := model.Movie{Year: iptr(1995), CombinedScore: fptr(90), Genres: []string{"Crime"}}

	assert.Zero(t, GroupSimilarity(nil))
	assert.Zero(t, GroupSimilarity([]model.Movie{a}))
	assert.InDelta(t, 1.0, GroupSimilarity([]model.Movie{a, b}), 1e-9)

	c := model.Movie{Genres: []string{"Comedy"}}
	got := GroupSimilarity([]model.Movie{a, b, c})
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 1.0)
}

func iptr(i int) *int { return &i }
