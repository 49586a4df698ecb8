// Package snippets turns free-text questions into short normalized facts
// via a search-style instant answer upstream. The source is best effort by
// contract: every failure degrades to an empty result.
package snippets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/rapport-api/internal/fanout"
	"github.com/sells-group/rapport-api/internal/model"
	"github.com/sells-group/rapport-api/pkg/duckduckgo"
)

const (
	// maxSentenceLen caps one normalized snippet, ellipsis included.
	maxSentenceLen = 220

	defaultTimeout = 8 * time.Second
)

// Provider answers a free-text query with up to limit deduplicated
// sentences. Implementations never return an error; failure is an empty
// slice.
type Provider interface {
	Lookup(ctx context.Context, query string, limit int) []string
}

// Option configures the Source.
type Option func(*Source)

// WithTimeout overrides the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		s.timeout = d
	}
}

// WithRateLimit sets the requests-per-second limit on the upstream.
func WithRateLimit(rps float64) Option {
	return func(s *Source) {
		s.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
}

// Source implements Provider over the Instant Answer API.
type Source struct {
	client  duckduckgo.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewSource creates a snippet source.
func NewSource(client duckduckgo.Client, opts ...Option) *Source {
	s := &Source{
		client:  client,
		limiter: rate.NewLimiter(5, 5),
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Lookup queries the upstream and returns the first limit deduplicated,
// normalized sentences. Transport errors, bad statuses, and unparsable
// payloads all yield an empty result.
func (s *Source) Lookup(ctx context.Context, query string, limit int) []string {
	if limit <= 0 {
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil
	}

	resp, err := fanout.WithTimeout(ctx, s.timeout, "search: query timed out", func(ctx context.Context) (*duckduckgo.Response, error) {
		return s.client.InstantAnswer(ctx, query)
	})
	if err != nil {
		zap.L().Debug("snippets: lookup failed", zap.String("query", query), zap.Error(err))
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, candidate := range extractCandidates(resp) {
		sentence := Normalize(candidate)
		if sentence == "" {
			continue
		}
		key := model.FoldKey(sentence)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, sentence)
		if len(out) == limit {
			break
		}
	}
	return out
}

// extractCandidates collects candidate texts in fixed field-priority order:
// heading, abstract, direct answer, infobox pairs, related topics with one
// nested level of grouping.
func extractCandidates(resp *duckduckgo.Response) []string {
	var candidates []string

	if resp.Heading != "" {
		candidates = append(candidates, resp.Heading)
	}
	if resp.AbstractText != "" {
		candidates = append(candidates, resp.AbstractText)
	}
	if resp.Answer != "" {
		candidates = append(candidates, resp.Answer)
	}

	for _, item := range resp.Infobox.Content {
		if item.Label == "" {
			continue
		}
		if v := stringifyValue(item.Value); v != "" {
			candidates = append(candidates, fmt.Sprintf("%s: %s", item.Label, v))
		}
	}

	for _, topic := range resp.RelatedTopics {
		if topic.Text != "" {
			candidates = append(candidates, topic.Text)
		}
		for _, nested := range topic.Topics {
			if nested.Text != "" {
				candidates = append(candidates, nested.Text)
			}
		}
	}

	return candidates
}

// stringifyValue renders string and numeric infobox values; anything else
// is dropped.
func stringifyValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

// Normalize collapses whitespace, truncates over-long text with an
// ellipsis, and guarantees terminal punctuation.
func Normalize(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return ""
	}

	runes := []rune(s)
	if len(runes) > maxSentenceLen {
		s = string(runes[:maxSentenceLen-3]) + "..."
	}

	switch s[len(s)-1] {
	case '.', '!', '?':
	default:
		s += "."
	}
	return s
}
