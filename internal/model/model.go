package model

import "time"

// Trailer resolution states for a movie.
const (
	TrailerUnresolved  = "unresolved"
	TrailerResolved    = "resolved"
	TrailerDisputed    = "disputed"
	TrailerReResolving = "re_resolving"
	TrailerFailed      = "failed"
)

// Rating types.
const (
	RatingCritic     = "critic"
	RatingAudience   = "audience"
	RatingAggregated = "aggregated"
)

// Well-known rating sources.
const (
	SourceIMDB       = "imdb"
	SourceRTCritic   = "rt_critic"
	SourceRTAudience = "rt_audience"
	SourceMetacritic = "metacritic"
)

// CombinedWeights is the per-source weight used when fusing ratings into a
// single 0-100 combined score. Weights are renormalized over the sources
// actually present for a movie.
var CombinedWeights = map[string]float64{
	SourceIMDB:       0.4,
	SourceRTCritic:   0.2,
	SourceRTAudience: 0.2,
	SourceMetacritic: 0.2,
}

type Movie struct {
	ID                int64     `json:"id"`
	TMDBID            *int64    `json:"tmdb_id,omitempty"`
	IMDBID            *string   `json:"imdb_id,omitempty"`
	Title             string    `json:"title"`
	Year              *int      `json:"year,omitempty"`
	Plot              *string   `json:"plot,omitempty"`
	MPAA              *string   `json:"mpaa,omitempty"`
	RuntimeSeconds    *int      `json:"runtime_seconds,omitempty"`
	Franchise         *string   `json:"franchise,omitempty"`
	Origin            *string   `json:"origin,omitempty"`
	TrailerURL        *string   `json:"trailer_url,omitempty"`
	TrailerState      string    `json:"trailer_state"`
	CombinedScore     *float64  `json:"combined_score,omitempty"`
	BoxOfficeExpected *float64  `json:"box_office_expected,omitempty"`
	BoxOfficeActual   *float64  `json:"box_office_actual,omitempty"`
	Genres            []string  `json:"genres,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// MovieAttrs is the upsert payload for a movie. Nil fields are left untouched
// when merging into an existing row; TMDBID (falling back to IMDBID, then
// exact title) is the dedup key.
type MovieAttrs struct {
	TMDBID            *int64   `json:"tmdb_id,omitempty"`
	IMDBID            *string  `json:"imdb_id,omitempty"`
	Title             string   `json:"title"`
	Year              *int     `json:"year,omitempty"`
	Plot              *string  `json:"plot,omitempty"`
	MPAA              *string  `json:"mpaa,omitempty"`
	RuntimeSeconds    *int     `json:"runtime_seconds,omitempty"`
	Franchise         *string  `json:"franchise,omitempty"`
	Origin            *string  `json:"origin,omitempty"`
	BoxOfficeExpected *float64 `json:"box_office_expected,omitempty"`
	BoxOfficeActual   *float64 `json:"box_office_actual,omitempty"`
}

type Alias struct {
	MovieID  int64  `json:"movie_id"`
	AltTitle string `json:"alt_title"`
	Position int    `json:"position"`
}

type Rating struct {
	MovieID     int64   `json:"movie_id"`
	Source      string  `json:"source"`
	Type        string  `json:"type"`
	Score       float64 `json:"score"`
	ReviewCount int64   `json:"review_count"`
}

// CombineRatings fuses the available rating sources into one 0-100 score
// using CombinedWeights, renormalized over the sources present. The second
// return is false when no weighted source is available.
func CombineRatings(ratings []Rating) (float64, bool) {
	var sum, wsum float64
	for _, r := range ratings {
		w, ok := CombinedWeights[r.Source]
		if !ok {
			continue
		}
		sum += r.Score * w
		wsum += w
	}
	if wsum == 0 {
		return 0, false
	}
	return sum / wsum, true
}

// TrendSample is one cached popularity reading. A row with NoData=true is a
// confirmed "provider had nothing" answer, distinct from no row at all.
type TrendSample struct {
	Term      string    `json:"term"`
	AsOf      time.Time `json:"as_of"`
	Score     *int      `json:"score,omitempty"`
	NoData    bool      `json:"no_data"`
	FetchedAt time.Time `json:"fetched_at"`
}

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type MovieNight struct {
	ID            int64     `json:"id"`
	SessionAt     time.Time `json:"session_at"`
	AttendeeCount int       `json:"attendee_count"`
	WinnerMovieID *int64    `json:"winner_movie_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type NightCandidate struct {
	NightID  int64   `json:"night_id"`
	MovieID  int64   `json:"movie_id"`
	Weight   float64 `json:"weight"`
	Playable bool    `json:"playable"`
}

// ReviewFlag marks a movie's trailer as disputed by a human reviewer. It is
// cleared when re-resolution produces an accepted link or an operator
// corrects the entry by hand.
type ReviewFlag struct {
	MovieID    int64     `json:"movie_id"`
	TrailerURL string    `json:"trailer_url"`
	Reason     string    `json:"reason"`
	FlaggedAt  time.Time `json:"flagged_at"`
}

// Resolution outcomes.
const (
	OutcomeResolved = "resolved"
	OutcomeFailed   = "failed"
)

// Resolution is one cached trailer-resolution decision, keyed by
// (movie, provider-chain version).
type Resolution struct {
	MovieID      int64     `json:"movie_id"`
	ChainVersion string    `json:"chain_version"`
	Outcome      string    `json:"outcome"`
	VideoID      string    `json:"video_id,omitempty"`
	VideoURL     string    `json:"video_url,omitempty"`
	VideoTitle   string    `json:"video_title,omitempty"`
	ChannelTitle string    `json:"channel_title,omitempty"`
	Official     bool      `json:"official"`
	Score        float64   `json:"score"`
	ResolvedAt   time.Time `json:"resolved_at"`
}

// Fairness audit dimensions.
const (
	DimensionGenre = "genre"
	DimensionTheme = "theme"
)

type FairnessAudit struct {
	ID            int64     `json:"id"`
	AsOf          time.Time `json:"as_of"`
	Dimension     string    `json:"dimension"`
	Grouping      string    `json:"grouping"`
	ProposedShare float64   `json:"proposed_share"`
	WinShare      float64   `json:"win_share"`
	Deviation     float64   `json:"deviation"`
	Flagged       bool      `json:"flagged"`
}

// GroupStat is a raw (dimension, grouping) tally of candidacies and wins used
// by the fairness tracker to derive audit rows.
type GroupStat struct {
	Dimension string
	Grouping  string
	Proposed  int64
	Wins      int64
}

// PoolFilter narrows the candidate pool for a draw.
type PoolFilter struct {
	Genre            string     `json:"genre,omitempty"`
	Theme            string     `json:"theme,omitempty"`
	NotScreenedSince *time.Time `json:"not_screened_since,omitempty"`
}
