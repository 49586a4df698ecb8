// Package model defines the domain types assembled into a rapport brief.
package model

import "golang.org/x/text/cases"

// FoldKey returns the case-folded form of s, used as the identity key at
// every dedup point (snippet sentences, place names, bucket sentences).
func FoldKey(s string) string {
	return cases.Fold().String(s)
}

// GeoResult is the resolved location for a ZIP code. Latitude and Longitude
// are nil when the upstream omits coordinates or reports non-finite values.
type GeoResult struct {
	Zip       string   `json:"zip"`
	City      string   `json:"city"`
	State     string   `json:"state"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (g GeoResult) HasCoordinates() bool {
	return g.Latitude != nil && g.Longitude != nil
}

// StrategicContext holds the fixed-taxonomy bucket results. Every taxonomy
// key is always present in Buckets, possibly with an empty slice.
type StrategicContext struct {
	Buckets      map[string][]string `json:"buckets"`
	CitySnapshot *string             `json:"citySnapshot"`
}

// LocalPlace is a nearby venue. Identity for dedup purposes is the
// case-folded name. DistanceMiles is nil when coordinates were unavailable.
type LocalPlace struct {
	Name          string   `json:"name"`
	Category      string   `json:"category,omitempty"`
	DistanceMiles *float64 `json:"distanceMiles,omitempty"`
	URL           string   `json:"url,omitempty"`
	Summary       string   `json:"summary,omitempty"`
}

// Anchor is a model-curated venue recommendation. Category is a free-form
// upper-case token, not constrained to the bucket taxonomy.
type Anchor struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Summary  string `json:"summary"`
}

// KnowledgeBrief maps lower-cased model-authored bucket labels to ordered
// sentences. Keys are open-ended: the model is not bound to the taxonomy.
type KnowledgeBrief map[string][]string

// SummaryCard holds the three call-opener fields. The pipeline emits them
// empty; a downstream collaborator populates them.
type SummaryCard struct {
	Headline string `json:"headline"`
	Opener   string `json:"opener"`
	Closer   string `json:"closer"`
}

// RawSupportingData carries the pre-synthesis source material alongside the
// brief so the UI can show provenance.
type RawSupportingData struct {
	StrategicContext StrategicContext `json:"strategicContext"`
	LocalPlaces      []LocalPlace     `json:"localPlaces"`
}

// RapportResponse is the full assembled output for one ZIP.
type RapportResponse struct {
	Zip               string            `json:"zip"`
	City              string            `json:"city"`
	State             string            `json:"state"`
	SummaryCard       SummaryCard       `json:"summaryCard"`
	KnowledgeBrief    KnowledgeBrief    `json:"knowledgeBrief"`
	Anchors           []Anchor          `json:"anchors"`
	RawSupportingData RawSupportingData `json:"rawSupportingData"`
}
