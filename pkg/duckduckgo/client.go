// Package duckduckgo provides a client for the DuckDuckGo Instant Answer API.
package duckduckgo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.duckduckgo.com"

// Client queries the Instant Answer API.
type Client interface {
	InstantAnswer(ctx context.Context, query string) (*Response, error)
}

// Response is the Instant Answer JSON payload, limited to the fields the
// pipeline consumes.
type Response struct {
	Heading       string         `json:"Heading"`
	AbstractText  string         `json:"AbstractText"`
	Answer        string         `json:"Answer"`
	Infobox       Infobox        `json:"Infobox"`
	RelatedTopics []RelatedTopic `json:"RelatedTopics"`
}

// Infobox holds key/value facts about the subject.
type Infobox struct {
	Content []InfoboxItem `json:"content"`
}

// InfoboxItem is one infobox row. Value is untyped upstream (string or
// number); non-string values are ignored by consumers.
type InfoboxItem struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// RelatedTopic is either a topic (Text set) or a named group holding one
// nested level of topics (Name and Topics set).
type RelatedTopic struct {
	Text   string         `json:"Text"`
	Name   string         `json:"Name"`
	Topics []RelatedTopic `json:"Topics"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithContact sets the t= application identifier sent with each query.
func WithContact(contact string) Option {
	return func(c *httpClient) {
		c.contact = contact
	}
}

type httpClient struct {
	baseURL string
	contact string
	http    *http.Client
}

// NewClient creates an Instant Answer API client.
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

func (c *httpClient) InstantAnswer(ctx context.Context, query string) (*Response, error) {
	params := url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
		"no_redirect":   {"1"},
	}
	if c.contact != "" {
		params.Set("t", c.contact)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "duckduckgo: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("duckduckgo: unexpected status %d", resp.StatusCode)
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "duckduckgo: unmarshal response")
	}

	return &result, nil
}
