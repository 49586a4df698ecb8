// Package strategic drives the snippet source across the fixed topic
// taxonomy and merges the results into capped, deduplicated buckets.
package strategic

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/rapport-api/internal/fanout"
	"github.com/sells-group/rapport-api/internal/model"
	"github.com/sells-group/rapport-api/internal/snippets"
)

// bucketConcurrency bounds how many buckets are queried at once.
const bucketConcurrency = 4

// Aggregator fills the taxonomy buckets for one location.
type Aggregator struct {
	provider snippets.Provider
}

// NewAggregator creates an aggregator over the given snippet provider.
func NewAggregator(provider snippets.Provider) *Aggregator {
	return &Aggregator{provider: provider}
}

// Aggregate queries every taxonomy bucket for the location and returns the
// full bucket map; every taxonomy key is present, possibly empty. Without a
// state it short-circuits to all-empty buckets, since the templates would
// degenerate into queries about nowhere.
func (a *Aggregator) Aggregate(ctx context.Context, city, state, zip string) model.StrategicContext {
	buckets := emptyBuckets()
	if state == "" {
		return model.StrategicContext{Buckets: buckets}
	}

	settled := fanout.MapSettled(ctx, taxonomy.Buckets, bucketConcurrency, func(ctx context.Context, def Definition) ([]string, error) {
		return a.fillBucket(ctx, def, city, state, zip), nil
	})

	for i, s := range settled {
		if len(s.Value) > 0 {
			buckets[taxonomy.Buckets[i].Key] = s.Value
		}
	}

	return model.StrategicContext{
		Buckets:      buckets,
		CitySnapshot: deriveSnapshot(buckets),
	}
}

// fillBucket runs all of a bucket's templates concurrently and merges their
// sentences in template order under the bucket cap. Template failures are
// already isolated inside the provider; extra sentences past the cap are
// discarded.
func (a *Aggregator) fillBucket(ctx context.Context, def Definition, city, state, zip string) []string {
	queries := make([]string, len(def.Templates))
	for i, tmpl := range def.Templates {
		queries[i] = expandTemplate(tmpl, city, state, zip)
	}

	settled := fanout.MapSettled(ctx, queries, len(queries), func(ctx context.Context, q string) ([]string, error) {
		return a.provider.Lookup(ctx, q, def.Cap), nil
	})

	seen := make(map[string]struct{})
	sentences := make([]string, 0, def.Cap)
	for _, s := range settled {
		for _, sentence := range s.Value {
			key := model.FoldKey(sentence)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			sentences = append(sentences, sentence)
			if len(sentences) == def.Cap {
				return sentences
			}
		}
	}

	if len(sentences) == 0 {
		zap.L().Debug("strategic: bucket came back empty", zap.String("bucket", def.Key))
	}
	return sentences
}

// deriveSnapshot picks the first sentence of the first non-empty bucket in
// the configured priority order.
func deriveSnapshot(buckets map[string][]string) *string {
	for _, key := range taxonomy.SnapshotPriority {
		if sentences := buckets[key]; len(sentences) > 0 {
			s := sentences[0]
			return &s
		}
	}
	return nil
}

// Empty returns a context with every taxonomy key present and no
// sentences, the degraded default when the context branch fails.
func Empty() model.StrategicContext {
	return model.StrategicContext{Buckets: emptyBuckets()}
}

func emptyBuckets() map[string][]string {
	buckets := make(map[string][]string, len(taxonomy.Buckets))
	for _, b := range taxonomy.Buckets {
		buckets[b.Key] = []string{}
	}
	return buckets
}
