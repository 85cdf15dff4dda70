package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/CalmingAgent/movieNight/pkg/provider"
)

// Client searches the YouTube Data API for trailers. It is the primary
// provider in the resolution chain.
type Client struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func New(apiKey string) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseURL: "https://www.googleapis.com/youtube/v3",
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Name() string { return "youtube" }

type searchResp struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

type apiError struct {
	Error struct {
		Code   int `json:"code"`
		Errors []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

var yearRe = regexp.MustCompile(`\((19|20)\d{2}\)|\b(19|20)\d{2}\b`)

// Search queries search.list for short videos matching "<title> official
// trailer". Transient HTTP failures are retried; quota exhaustion is not.
func (c *Client) Search(ctx context.Context, q provider.Query) ([]provider.Candidate, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("%w: missing YouTube API key", provider.ErrUnavailable)
	}
	u, _ := url.Parse(c.BaseURL + "/search")
	qs := u.Query()
	qs.Set("part", "snippet")
	qs.Set("q", q.Title+" official trailer")
	qs.Set("key", c.APIKey)
	qs.Set("type", "video")
	qs.Set("videoDuration", "short")
	qs.Set("maxResults", "10")
	u.RawQuery = qs.Encode()

	var sr searchResp
	err := retry.Do(
		func() error { return c.getJSON(ctx, u.String(), &sr) },
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	out := make([]provider.Candidate, 0, len(sr.Items))
	for _, it := range sr.Items {
		if it.ID.VideoID == "" {
			continue
		}
		pub, _ := time.Parse(time.RFC3339, it.Snippet.PublishedAt)
		out = append(out, provider.Candidate{
			VideoID:      it.ID.VideoID,
			URL:          "https://www.youtube.com/watch?v=" + it.ID.VideoID,
			Title:        it.Snippet.Title,
			ChannelTitle: it.Snippet.ChannelTitle,
			Year:         parseYear(it.Snippet.Title),
			Official:     isOfficial(it.Snippet.ChannelTitle, it.Snippet.Title),
			PublishedAt:  pub,
		})
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(v)
	case resp.StatusCode == http.StatusForbidden:
		var ae apiError
		_ = json.NewDecoder(resp.Body).Decode(&ae)
		for _, e := range ae.Error.Errors {
			if e.Reason == "quotaExceeded" || e.Reason == "dailyLimitExceeded" {
				return retry.Unrecoverable(provider.ErrQuotaExceeded)
			}
		}
		return retry.Unrecoverable(fmt.Errorf("youtube status 403"))
	case resp.StatusCode == http.StatusTooManyRequests:
		return retry.Unrecoverable(provider.ErrQuotaExceeded)
	default:
		return fmt.Errorf("%w: youtube status %d", provider.ErrUnavailable, resp.StatusCode)
	}
}

// isOfficial is a best-effort verified-channel marker: the search endpoint
// does not expose the badge, so channel naming is the signal.
func isOfficial(channel, title string) bool {
	ch := strings.ToLower(channel)
	return strings.Contains(ch, "official") ||
		strings.Contains(strings.ToLower(title), "official trailer") && strings.HasSuffix(ch, "pictures")
}

func parseYear(title string) int {
	m := yearRe.FindString(title)
	m = strings.Trim(m, "()")
	if len(m) != 4 {
		return 0
	}
	var y int
	_, err := fmt.Sscanf(m, "%d", &y)
	if err != nil {
		return 0
	}
	return y
}
