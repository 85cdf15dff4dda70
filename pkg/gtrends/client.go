package gtrends

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/CalmingAgent/movieNight/pkg/provider"
)

// Client fetches 7-day interest-over-time averages from the unofficial
// Google Trends JSON API (explore for a widget token, then widgetdata).
// Calls are throttled to stay under the anonymous rate limit.
type Client struct {
	BaseURL string
	Client  *http.Client

	mu       sync.Mutex
	lastCall time.Time
	minDelay time.Duration
}

func New() *Client {
	return &Client{
		BaseURL:  "https://trends.google.com/trends/api",
		Client:   &http.Client{Timeout: 20 * time.Second},
		minDelay: 1200 * time.Millisecond,
	}
}

type exploreResp struct {
	Widgets []struct {
		ID      string          `json:"id"`
		Token   string          `json:"token"`
		Request json.RawMessage `json:"request"`
	} `json:"widgets"`
}

type timelineResp struct {
	Default struct {
		TimelineData []struct {
			Value []int `json:"value"`
		} `json:"timelineData"`
	} `json:"default"`
}

// Fetch returns the rounded 7-day average interest (0-100) for term.
// ok=false means Trends answered with an empty timeline (confirmed no data).
func (c *Client) Fetch(ctx context.Context, term string) (int, bool, error) {
	c.throttle()

	token, request, err := c.exploreToken(ctx, term)
	if err != nil {
		return 0, false, err
	}
	if token == "" {
		return 0, false, nil
	}

	u, _ := url.Parse(c.BaseURL + "/widgetdata/multiline")
	qs := u.Query()
	qs.Set("hl", "en-US")
	qs.Set("tz", "0")
	qs.Set("token", token)
	qs.Set("req", string(request))
	u.RawQuery = qs.Encode()

	var tl timelineResp
	if err := c.getJSON(ctx, u.String(), &tl); err != nil {
		return 0, false, err
	}
	points := tl.Default.TimelineData
	if len(points) == 0 {
		return 0, false, nil
	}
	sum := 0
	n := 0
	for _, p := range points {
		if len(p.Value) > 0 {
			sum += p.Value[0]
			n++
		}
	}
	if n == 0 {
		return 0, false, nil
	}
	return (sum + n/2) / n, true, nil
}

func (c *Client) exploreToken(ctx context.Context, term string) (string, json.RawMessage, error) {
	reqBody := fmt.Sprintf(`{"comparisonItem":[{"keyword":%q,"geo":"","time":"now 7-d"}],"category":0,"property":""}`, term)
	u, _ := url.Parse(c.BaseURL + "/explore")
	qs := u.Query()
	qs.Set("hl", "en-US")
	qs.Set("tz", "0")
	qs.Set("req", reqBody)
	u.RawQuery = qs.Encode()

	var er exploreResp
	if err := c.getJSON(ctx, u.String(), &er); err != nil {
		return "", nil, err
	}
	for _, w := range er.Widgets {
		if w.ID == "TIMESERIES" {
			return w.Token, w.Request, nil
		}
	}
	return "", nil, nil
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
			if resp.StatusCode == http.StatusTooManyRequests {
				return retry.Unrecoverable(provider.ErrQuotaExceeded)
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("%w: trends status %d", provider.ErrUnavailable, resp.StatusCode)
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
			}
			// Responses are prefixed with an anti-JSON-hijacking garbage line.
			if i := strings.IndexByte(string(body), '\n'); i >= 0 && !json.Valid(body) {
				body = body[i+1:]
			}
			if err := json.Unmarshal(body, v); err != nil {
				return retry.Unrecoverable(fmt.Errorf("trends decode: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
	)
}

func (c *Client) throttle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wait := c.minDelay - time.Since(c.lastCall); wait > 0 {
		time.Sleep(wait)
	}
	c.lastCall = time.Now()
}
