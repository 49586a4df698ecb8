// Package places finds and enriches venues near a coordinate pair.
package places

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/rapport-api/internal/fanout"
	"github.com/sells-group/rapport-api/internal/model"
	"github.com/sells-group/rapport-api/pkg/nominatim"
)

// categories is the fixed venue query list.
var categories = []string{
	"park",
	"trail",
	"lake",
	"stadium",
	"recreation center",
	"community center",
	"museum",
	"farmers market",
	"shopping center",
	"brewery",
}

const (
	// bboxDelta is the half-width of the search bounding box in degrees.
	bboxDelta = 0.15

	categoryConcurrency = 3
	defaultFetchTimeout = 8 * time.Second
)

// Fetcher queries the place upstream per category and merges the results.
type Fetcher struct {
	client  nominatim.Client
	timeout time.Duration
}

// NewFetcher creates a place fetcher.
func NewFetcher(client nominatim.Client) *Fetcher {
	return &Fetcher{client: client, timeout: defaultFetchTimeout}
}

// Fetch runs every category query around (lat, lon) and returns the merged
// place list, deduplicated on case-folded name in first-seen order. A
// failing category contributes nothing and does not abort the others.
func (f *Fetcher) Fetch(ctx context.Context, lat, lon float64, perCategoryLimit int) []model.LocalPlace {
	bounds := geom.NewBounds(geom.XY).Set(lon-bboxDelta, lat-bboxDelta, lon+bboxDelta, lat+bboxDelta)
	viewbox := nominatim.Viewbox{
		MinLon: bounds.Min(0),
		MinLat: bounds.Min(1),
		MaxLon: bounds.Max(0),
		MaxLat: bounds.Max(1),
	}

	settled := fanout.MapSettled(ctx, categories, categoryConcurrency, func(ctx context.Context, category string) ([]model.LocalPlace, error) {
		return fanout.WithTimeout(ctx, f.timeout, "places: "+category+" query timed out", func(ctx context.Context) ([]model.LocalPlace, error) {
			raw, err := f.client.Search(ctx, category, viewbox, perCategoryLimit)
			if err != nil {
				return nil, err
			}
			return convert(raw, category, lat, lon, perCategoryLimit), nil
		})
	})

	seen := make(map[string]struct{})
	var merged []model.LocalPlace
	for i, s := range settled {
		if s.Err != nil {
			zap.L().Debug("places: category query failed", zap.String("category", categories[i]), zap.Error(s.Err))
			continue
		}
		for _, p := range s.Value {
			key := model.FoldKey(p.Name)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, p)
		}
	}
	return merged
}

// convert maps raw search records to LocalPlaces, skipping records without
// a display name.
func convert(raw []nominatim.Place, category string, lat, lon float64, limit int) []model.LocalPlace {
	out := make([]model.LocalPlace, 0, len(raw))
	for _, r := range raw {
		if len(out) == limit {
			break
		}
		name := placeName(r.DisplayName)
		if name == "" {
			continue
		}

		p := model.LocalPlace{
			Name:     name,
			Category: category,
			URL:      placeURL(r),
		}
		if plat, perr := strconv.ParseFloat(r.Lat, 64); perr == nil {
			if plon, perr2 := strconv.ParseFloat(r.Lon, 64); perr2 == nil {
				d := DistanceMiles(lat, lon, plat, plon)
				p.DistanceMiles = &d
			}
		}
		out = append(out, p)
	}
	return out
}

// placeName takes the venue's own name: the first comma segment of the
// full display name.
func placeName(displayName string) string {
	name, _, _ := strings.Cut(displayName, ",")
	return strings.TrimSpace(name)
}

func placeURL(r nominatim.Place) string {
	if r.OSMType == "" || r.OSMID == 0 {
		return ""
	}
	return "https://www.openstreetmap.org/" + r.OSMType + "/" + strconv.FormatInt(r.OSMID, 10)
}
