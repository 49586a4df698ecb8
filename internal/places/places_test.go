package places

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rapport-api/internal/model"
	"github.com/sells-group/rapport-api/pkg/nominatim"
)

func TestDistanceMiles(t *testing.T) {
	// One degree of latitude is about 69.1 miles.
	d := DistanceMiles(33.0, -111.0, 34.0, -111.0)
	assert.InDelta(t, 69.1, d, 0.3)

	assert.Equal(t, 0.0, DistanceMiles(33.5, -111.9, 33.5, -111.9))

	// Symmetric.
	a := DistanceMiles(33.6098, -111.8893, 33.4484, -112.074)
	b := DistanceMiles(33.4484, -112.074, 33.6098, -111.8893)
	assert.Equal(t, a, b)
}

type fakeNominatim struct {
	mu      sync.Mutex
	queries []string
	byQuery map[string][]nominatim.Place
	errFor  map[string]error
	viewbox nominatim.Viewbox
	limit   int
}

func (f *fakeNominatim) Search(_ context.Context, query string, vb nominatim.Viewbox, limit int) ([]nominatim.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.viewbox = vb
	f.limit = limit
	if err := f.errFor[query]; err != nil {
		return nil, err
	}
	return f.byQuery[query], nil
}

func TestFetchMergesAndDeduplicates(t *testing.T) {
	client := &fakeNominatim{
		byQuery: map[string][]nominatim.Place{
			"park": {
				{DisplayName: "Chaparral Park, Scottsdale", Lat: "33.5091", Lon: "-111.9217", OSMType: "way", OSMID: 11},
				{DisplayName: "", Lat: "33.5", Lon: "-111.9"},
				{DisplayName: "Eldorado Park, Scottsdale", Lat: "bad", Lon: "-111.92"},
			},
			"lake": {
				{DisplayName: "chaparral park, Scottsdale", Lat: "33.5091", Lon: "-111.9217"},
				{DisplayName: "Lake Margherite, Scottsdale", Lat: "33.5080", Lon: "-111.9230", OSMType: "way", OSMID: 22},
			},
		},
		errFor: map[string]error{
			"museum": eris.New("nominatim: unexpected status 500"),
		},
	}

	f := NewFetcher(client)
	got := f.Fetch(context.Background(), 33.6098, -111.8893, 5)

	// All ten categories queried despite the museum failure.
	assert.Len(t, client.queries, 10)
	assert.Equal(t, 5, client.limit)

	// Viewbox is +/- 0.15 degrees around the center.
	assert.InDelta(t, -112.0393, client.viewbox.MinLon, 1e-6)
	assert.InDelta(t, 33.4598, client.viewbox.MinLat, 1e-6)
	assert.InDelta(t, -111.7393, client.viewbox.MaxLon, 1e-6)
	assert.InDelta(t, 33.7598, client.viewbox.MaxLat, 1e-6)

	require.Len(t, got, 3)
	assert.Equal(t, "Chaparral Park", got[0].Name)
	assert.Equal(t, "park", got[0].Category)
	assert.Equal(t, "https://www.openstreetmap.org/way/11", got[0].URL)
	require.NotNil(t, got[0].DistanceMiles)
	assert.Greater(t, *got[0].DistanceMiles, 0.0)

	// Unparsable coordinates leave distance nil but keep the place.
	assert.Equal(t, "Eldorado Park", got[1].Name)
	assert.Nil(t, got[1].DistanceMiles)

	// Case-insensitive name dedup across categories; first seen wins.
	assert.Equal(t, "Lake Margherite", got[2].Name)
}

func TestFetchAllCategoriesFailing(t *testing.T) {
	client := &fakeNominatim{errFor: map[string]error{}}
	for _, c := range categories {
		client.errFor[c] = eris.New("boom")
	}

	f := NewFetcher(client)
	got := f.Fetch(context.Background(), 33.6, -111.9, 5)
	assert.Empty(t, got)
}

type scriptedProvider struct {
	mu      sync.Mutex
	calls   []string
	answers map[string][]string
}

func (s *scriptedProvider) Lookup(_ context.Context, query string, limit int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, query)
	out := s.answers[query]
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func TestEnrichTopPlacesGetFetchedBlurbs(t *testing.T) {
	dist := 2.3
	list := []model.LocalPlace{
		{Name: "Chaparral Park", Category: "park", DistanceMiles: &dist, URL: "https://www.openstreetmap.org/way/11"},
		{Name: "Papago Brewing", Category: "brewery"},
		{Name: "Eldorado Park", Category: "park"},
		{Name: "Fourth Place", Category: "museum"},
	}

	provider := &scriptedProvider{answers: map[string][]string{
		"why do locals love Chaparral Park in Scottsdale, AZ":  {"Locals fish the lake at dawn."},
		"what is Papago Brewing in Scottsdale, AZ known for":   {"A long-running local taproom."},
	}}

	got := Enrich(context.Background(), list, "Scottsdale", "AZ", provider)

	// First place: first phrasing answered.
	assert.Equal(t, "Locals fish the lake at dawn.", got[0].Summary)
	// Second place: first phrasing empty, fallback answered.
	assert.Equal(t, "A long-running local taproom.", got[1].Summary)
	// Third place: both phrasings empty, falls back to the template.
	assert.Equal(t, "Eldorado Park is a park from the ZIP center.", got[2].Summary)
	// Fourth place is past the enrichment window.
	assert.Equal(t, "Fourth Place is a museum from the ZIP center.", got[3].Summary)
	for _, call := range provider.calls {
		assert.NotContains(t, call, "Fourth Place")
	}
}

func TestEnrichWithoutCityUsesTemplates(t *testing.T) {
	provider := &scriptedProvider{}
	dist := 1.0
	list := []model.LocalPlace{
		{Name: "Chaparral Park", Category: "Park", DistanceMiles: &dist, URL: "https://example.com"},
	}

	got := Enrich(context.Background(), list, "", "AZ", provider)

	assert.Empty(t, provider.calls)
	assert.Equal(t, "Chaparral Park is a park, 1.0 miles from the ZIP center that residents often mention online.", got[0].Summary)
}

func TestGenericSummaryWithoutCategoryOrDistance(t *testing.T) {
	got := genericSummary(model.LocalPlace{Name: "The Spot"})
	assert.Equal(t, "The Spot is a local favorite from the ZIP center.", got)
}
