package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/CalmingAgent/movieNight/pkg/provider"
)

// Client is the secondary metadata provider in the resolution chain: it
// cross-references a movie by external id (or exact title match) and lists
// the official trailers TMDb knows about.
type Client struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func New(apiKey string) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseURL: "https://api.themoviedb.org/3",
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Name() string { return "tmdb" }

type findResp struct {
	MovieResults []searchItem `json:"movie_results"`
}

type searchResp struct {
	Results    []searchItem `json:"results"`
	TotalPages int          `json:"total_pages"`
}

type searchItem struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}

type videosResp struct {
	Results []struct {
		Site        string `json:"site"`
		Type        string `json:"type"`
		Key         string `json:"key"`
		Name        string `json:"name"`
		Official    bool   `json:"official"`
		PublishedAt string `json:"published_at"`
	} `json:"results"`
}

type externalIDs struct {
	ImdbID string `json:"imdb_id"`
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

func normalize(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "")
}

// Search locates the movie on TMDb and returns its YouTube trailers as
// candidates. Lookup order: TMDb id, IMDb id cross-reference, then an exact
// normalized title match over the first two search pages (ambiguous title
// matches yield no candidates rather than a guess).
func (c *Client) Search(ctx context.Context, q provider.Query) ([]provider.Candidate, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("%w: missing TMDB API key", provider.ErrUnavailable)
	}
	movieID := q.TMDBID
	if movieID == 0 && q.IMDBID != "" {
		id, err := c.findByIMDB(ctx, q.IMDBID)
		if err != nil {
			return nil, err
		}
		movieID = id
	}
	if movieID == 0 {
		id, err := c.searchExact(ctx, q.Title)
		if err != nil {
			return nil, err
		}
		movieID = id
	}
	if movieID == 0 {
		return nil, nil
	}
	return c.videos(ctx, movieID, q)
}

// ExternalIDs fetches the IMDb id for a TMDb movie, used to backfill the
// catalog's cross-provider join keys.
func (c *Client) ExternalIDs(ctx context.Context, tmdbID int64) (string, error) {
	var out externalIDs
	u := fmt.Sprintf("%s/movie/%d/external_ids?api_key=%s", c.BaseURL, tmdbID, url.QueryEscape(c.APIKey))
	if err := c.getJSON(ctx, u, &out); err != nil {
		return "", err
	}
	return out.ImdbID, nil
}

func (c *Client) findByIMDB(ctx context.Context, imdbID string) (int64, error) {
	u, _ := url.Parse(c.BaseURL + "/find/" + url.PathEscape(imdbID))
	qs := u.Query()
	qs.Set("api_key", c.APIKey)
	qs.Set("external_source", "imdb_id")
	u.RawQuery = qs.Encode()
	var fr findResp
	if err := c.getJSON(ctx, u.String(), &fr); err != nil {
		return 0, err
	}
	if len(fr.MovieResults) == 0 {
		return 0, nil
	}
	return fr.MovieResults[0].ID, nil
}

func (c *Client) searchExact(ctx context.Context, title string) (int64, error) {
	norm := normalize(title)
	var matches []searchItem
	for page := 1; page <= 2; page++ {
		u, _ := url.Parse(c.BaseURL + "/search/movie")
		qs := u.Query()
		qs.Set("api_key", c.APIKey)
		qs.Set("query", title)
		qs.Set("page", strconv.Itoa(page))
		u.RawQuery = qs.Encode()
		var sr searchResp
		if err := c.getJSON(ctx, u.String(), &sr); err != nil {
			return 0, err
		}
		for _, it := range sr.Results {
			if normalize(it.Title) == norm {
				matches = append(matches, it)
			}
		}
		if page >= sr.TotalPages || len(sr.Results) == 0 {
			break
		}
	}
	if len(matches) != 1 {
		return 0, nil
	}
	return matches[0].ID, nil
}

func (c *Client) videos(ctx context.Context, movieID int64, q provider.Query) ([]provider.Candidate, error) {
	u := fmt.Sprintf("%s/movie/%d/videos?api_key=%s", c.BaseURL, movieID, url.QueryEscape(c.APIKey))
	var vr videosResp
	if err := c.getJSON(ctx, u, &vr); err != nil {
		return nil, err
	}
	out := make([]provider.Candidate, 0, len(vr.Results))
	for _, v := range vr.Results {
		if v.Site != "YouTube" || v.Type != "Trailer" || v.Key == "" {
			continue
		}
		pub, _ := time.Parse(time.RFC3339, v.PublishedAt)
		out = append(out, provider.Candidate{
			VideoID:      v.Key,
			URL:          "https://www.youtube.com/watch?v=" + v.Key,
			Title:        v.Name,
			ChannelTitle: "",
			Year:         q.Year,
			Official:     v.Official,
			Exact:        true,
			PublishedAt:  pub,
		})
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.Client.Do(req)
			if err != nil {
				return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
			}
			defer resp.Body.Close()
			switch {
			case resp.StatusCode == http.StatusOK:
				if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
					return retry.Unrecoverable(err)
				}
				return nil
			case resp.StatusCode == http.StatusTooManyRequests:
				return retry.Unrecoverable(provider.ErrQuotaExceeded)
			case resp.StatusCode >= 500:
				return fmt.Errorf("%w: tmdb status %d", provider.ErrUnavailable, resp.StatusCode)
			default:
				return retry.Unrecoverable(fmt.Errorf("tmdb status %d", resp.StatusCode))
			}
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}
