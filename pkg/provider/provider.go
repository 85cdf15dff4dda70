package provider

import (
	"context"
	"errors"
	"time"
)

// Provider-level failures. Quota exhaustion disables the provider for the
// rest of a run and advances the fallback chain; Unavailable is transient.
var (
	ErrQuotaExceeded = errors.New("provider quota exceeded")
	ErrUnavailable   = errors.New("provider unavailable")
)

// Query identifies a movie for a trailer lookup. Title is always set;
// external ids are present when the catalog knows them.
type Query struct {
	Title  string
	Year   int
	IMDBID string
	TMDBID int64
}

// Candidate is one search result from a video provider.
type Candidate struct {
	VideoID      string
	URL          string
	Title        string
	ChannelTitle string
	Year         int
	Official     bool
	// Exact is set when the provider located the video through the movie's
	// own external id, so title similarity is not in question.
	Exact       bool
	PublishedAt time.Time
}

// Searcher is one strategy in the resolver's fallback chain.
type Searcher interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Candidate, error)
}

// TrendProvider fetches a popularity score for a term. ok=false is a
// confirmed "no data" answer, distinct from an error.
type TrendProvider interface {
	Fetch(ctx context.Context, term string) (score int, ok bool, err error)
}

// Sheet is one tab of the group's spreadsheet. Excluded tabs (marked by a
// visual tag) never feed the candidate pool.
type Sheet struct {
	Name     string
	Excluded bool
}

// SpreadsheetSource lists the group's movie spreadsheet.
type SpreadsheetSource interface {
	ListSheets(ctx context.Context) ([]Sheet, error)
	ListRows(ctx context.Context, sheet string) ([]string, error)
}
