package places

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sells-group/rapport-api/internal/model"
	"github.com/sells-group/rapport-api/internal/snippets"
)

// enrichTop is how many leading places get a fetched blurb instead of the
// templated one.
const enrichTop = 3

// Enrich fills every place's summary. The first three places get up to two
// sequential snippet lookups each (run independently across places, small
// fixed fan-out); everything else gets the generic templated summary.
// Requires both city and state for lookups; without them all places fall
// back to the template.
func Enrich(ctx context.Context, list []model.LocalPlace, city, state string, provider snippets.Provider) []model.LocalPlace {
	out := make([]model.LocalPlace, len(list))
	copy(out, list)

	var wg sync.WaitGroup
	for i := range out {
		out[i].Summary = genericSummary(out[i])
		if i >= enrichTop || city == "" || state == "" {
			continue
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if blurb := fetchBlurb(ctx, provider, out[i].Name, city, state); blurb != "" {
				out[i].Summary = blurb
			}
		}(i)
	}
	wg.Wait()

	return out
}

// fetchBlurb tries the two enrichment phrasings in order and returns the
// first non-empty sentence.
func fetchBlurb(ctx context.Context, provider snippets.Provider, name, city, state string) string {
	queries := []string{
		fmt.Sprintf("why do locals love %s in %s, %s", name, city, state),
		fmt.Sprintf("what is %s in %s, %s known for", name, city, state),
	}
	for _, q := range queries {
		if result := provider.Lookup(ctx, q, 1); len(result) > 0 {
			return result[0]
		}
	}
	return ""
}

// genericSummary renders the templated fallback sentence.
func genericSummary(p model.LocalPlace) string {
	category := "local favorite"
	if p.Category != "" {
		category = strings.ToLower(p.Category)
	}

	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteString(" is a ")
	b.WriteString(category)
	if p.DistanceMiles != nil {
		fmt.Fprintf(&b, ", %.1f miles", *p.DistanceMiles)
	}
	b.WriteString(" from the ZIP center")
	if p.URL != "" {
		b.WriteString(" that residents often mention online")
	}
	b.WriteString(".")
	return b.String()
}
