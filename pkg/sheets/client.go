package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/CalmingAgent/movieNight/pkg/provider"
)

// Client reads the group's movie spreadsheet through the Google Sheets
// values API. A tab carrying a color tag (or hidden) is excluded from the
// candidate pool, mirroring how the group marks "do not draw" sheets.
type Client struct {
	APIKey        string
	SpreadsheetID string
	BaseURL       string
	Client        *http.Client
}

func New(apiKey, spreadsheetID string) *Client {
	return &Client{
		APIKey:        apiKey,
		SpreadsheetID: spreadsheetID,
		BaseURL:       "https://sheets.googleapis.com/v4/spreadsheets",
		Client:        &http.Client{Timeout: 15 * time.Second},
	}
}

type metaResp struct {
	Sheets []struct {
		Properties struct {
			Title    string          `json:"title"`
			Hidden   bool            `json:"hidden"`
			TabColor json.RawMessage `json:"tabColor"`
		} `json:"properties"`
	} `json:"sheets"`
}

type valuesResp struct {
	Values [][]string `json:"values"`
}

func (c *Client) ListSheets(ctx context.Context) ([]provider.Sheet, error) {
	u := fmt.Sprintf("%s/%s?fields=sheets.properties&key=%s",
		c.BaseURL, url.PathEscape(c.SpreadsheetID), url.QueryEscape(c.APIKey))
	var mr metaResp
	if err := c.getJSON(ctx, u, &mr); err != nil {
		return nil, err
	}
	out := make([]provider.Sheet, 0, len(mr.Sheets))
	for _, s := range mr.Sheets {
		out = append(out, provider.Sheet{
			Name:     s.Properties.Title,
			Excluded: s.Properties.Hidden || len(s.Properties.TabColor) > 0,
		})
	}
	return out, nil
}

// ListRows returns the trimmed, non-empty title strings from column A.
func (c *Client) ListRows(ctx context.Context, sheet string) ([]string, error) {
	rng := url.PathEscape(sheet + "!A:A")
	u := fmt.Sprintf("%s/%s/values/%s?key=%s",
		c.BaseURL, url.PathEscape(c.SpreadsheetID), rng, url.QueryEscape(c.APIKey))
	var vr valuesResp
	if err := c.getJSON(ctx, u, &vr); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vr.Values))
	for _, row := range vr.Values {
		if len(row) == 0 {
			continue
		}
		if title := strings.TrimSpace(row[0]); title != "" {
			out = append(out, title)
		}
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
				return fmt.Errorf("%w: sheets status %d", provider.ErrUnavailable, resp.StatusCode)
			default:
				return retry.Unrecoverable(fmt.Errorf("sheets status %d", resp.StatusCode))
			}
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}
