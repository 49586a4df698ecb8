// Package zippopotam provides a client for Zippopotam-style ZIP lookup APIs.
package zippopotam

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.zippopotam.us"

// ErrNotFound is returned when the upstream reports no match for a ZIP.
var ErrNotFound = eris.New("zippopotam: zip not found")

// Client looks up United States ZIP codes.
type Client interface {
	Lookup(ctx context.Context, zip string) (*Response, error)
}

// Response is the JSON payload for GET /us/{zip}.
type Response struct {
	PostCode string  `json:"post code"`
	Country  string  `json:"country"`
	Places   []Place `json:"places"`
}

// Place is one place record inside a Response. Coordinates arrive as
// strings and may be absent or malformed; callers parse them defensively.
type Place struct {
	PlaceName         string `json:"place name"`
	State             string `json:"state"`
	StateAbbreviation string `json:"state abbreviation"`
	Latitude          string `json:"latitude"`
	Longitude         string `json:"longitude"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Zippopotam API client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Lookup(ctx context.Context, zip string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/us/"+zip, nil)
	if err != nil {
		return nil, eris.Wrap(err, "zippopotam: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "zippopotam: send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "zippopotam: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("zippopotam: unexpected status %d", resp.StatusCode)
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "zippopotam: unmarshal response")
	}

	return &result, nil
}
