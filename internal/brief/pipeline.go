// Package brief orchestrates one ZIP request: validate, cache check, geo
// resolve, concurrent context and place fetches, enrichment, synthesis,
// assembly, cache write.
package brief

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/rapport-api/internal/cache"
	"github.com/sells-group/rapport-api/internal/fanout"
	"github.com/sells-group/rapport-api/internal/fault"
	"github.com/sells-group/rapport-api/internal/model"
	"github.com/sells-group/rapport-api/internal/places"
	"github.com/sells-group/rapport-api/internal/snippets"
	"github.com/sells-group/rapport-api/internal/strategic"
	"github.com/sells-group/rapport-api/internal/synthesis"
	"github.com/sells-group/rapport-api/pkg/zippopotam"
)

var zipRE = regexp.MustCompile(`^\d{5}$`)

const (
	defaultGeoTimeout    = 8 * time.Second
	defaultBranchTimeout = 20 * time.Second

	// placesPerCategory is the result limit passed to each category query.
	placesPerCategory = 5

	// anchorCandidateLimit caps how many enriched places the model sees.
	anchorCandidateLimit = 6
)

// ContextAggregator fills the strategic context buckets for a location.
type ContextAggregator interface {
	Aggregate(ctx context.Context, city, state, zip string) model.StrategicContext
}

// PlaceFetcher finds venues around a coordinate pair.
type PlaceFetcher interface {
	Fetch(ctx context.Context, lat, lon float64, perCategoryLimit int) []model.LocalPlace
}

// Synthesizer produces the structured brief from assembled context.
type Synthesizer interface {
	Synthesize(ctx context.Context, input synthesis.Input) (*synthesis.Result, error)
}

// Option configures the Pipeline.
type Option func(*Pipeline)

// WithGeoTimeout overrides the geo-resolve deadline.
func WithGeoTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.geoTimeout = d
	}
}

// WithBranchTimeout overrides the context/place branch deadline.
func WithBranchTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.branchTimeout = d
	}
}

// Pipeline runs the full rapport assembly for one ZIP at a time.
type Pipeline struct {
	geo        zippopotam.Client
	aggregator ContextAggregator
	fetcher    PlaceFetcher
	provider   snippets.Provider
	synth      Synthesizer
	cache      *cache.Cache

	geoTimeout    time.Duration
	branchTimeout time.Duration
}

// New wires a Pipeline from its collaborators.
func New(geo zippopotam.Client, aggregator ContextAggregator, fetcher PlaceFetcher, provider snippets.Provider, synth Synthesizer, c *cache.Cache, opts ...Option) *Pipeline {
	p := &Pipeline{
		geo:           geo,
		aggregator:    aggregator,
		fetcher:       fetcher,
		provider:      provider,
		synth:         synth,
		cache:         c,
		geoTimeout:    defaultGeoTimeout,
		branchTimeout: defaultBranchTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes the request cycle and returns the assembled response.
// Geo-resolve and synthesis failures are terminal; the context and place
// branches degrade to empty defaults instead.
func (p *Pipeline) Run(ctx context.Context, zip string) (*model.RapportResponse, error) {
	if !zipRE.MatchString(zip) {
		return nil, &fault.ValidationError{Msg: "ZIP code must be 5 digits."}
	}

	log := zap.L().With(zap.String("zip", zip))

	if cached, ok := p.cache.Get(ctx, zip); ok && cached.RawSupportingData.StrategicContext.Buckets != nil {
		log.Debug("brief: cache hit")
		return cached, nil
	}

	geo, err := p.resolveGeo(ctx, zip)
	if err != nil {
		return nil, err
	}
	log.Info("brief: resolved location", zap.String("city", geo.City), zap.String("state", geo.State))

	strategicCtx, localPlaces := p.fetchBranches(ctx, geo, zip)

	enriched := places.Enrich(ctx, localPlaces, geo.City, geo.State, p.provider)

	candidates := enriched
	if len(candidates) > anchorCandidateLimit {
		candidates = candidates[:anchorCandidateLimit]
	}

	synthResult, err := p.synth.Synthesize(ctx, synthesis.Input{
		Location:         geo,
		StrategicContext: strategicCtx,
		AnchorCandidates: candidates,
	})
	if err != nil {
		return nil, err
	}

	resp := assemble(geo, strategicCtx, enriched, synthResult)
	p.cache.Set(ctx, zip, resp)
	log.Info("brief: assembled response",
		zap.Int("anchors", len(resp.Anchors)),
		zap.Int("places", len(resp.RawSupportingData.LocalPlaces)),
	)
	return resp, nil
}

// resolveGeo looks up the ZIP under the geo deadline and maps upstream
// outcomes onto the fault taxonomy.
func (p *Pipeline) resolveGeo(ctx context.Context, zip string) (model.GeoResult, error) {
	resp, err := fanout.WithTimeout(ctx, p.geoTimeout, "geo: lookup timed out", func(ctx context.Context) (*zippopotam.Response, error) {
		return p.geo.Lookup(ctx, zip)
	})
	if err != nil {
		if errors.Is(err, zippopotam.ErrNotFound) {
			return model.GeoResult{}, &fault.NotFoundError{Msg: fmt.Sprintf("ZIP %s not found.", zip)}
		}
		if fault.IsTimeout(err) {
			return model.GeoResult{}, err
		}
		return model.GeoResult{}, &fault.TransportError{Msg: "geo: lookup failed", Err: err}
	}
	if len(resp.Places) == 0 {
		return model.GeoResult{}, &fault.NotFoundError{Msg: fmt.Sprintf("ZIP %s not found.", zip)}
	}

	first := resp.Places[0]
	geo := model.GeoResult{
		Zip:       zip,
		City:      first.PlaceName,
		State:     first.StateAbbreviation,
		Latitude:  parseCoordinate(first.Latitude),
		Longitude: parseCoordinate(first.Longitude),
	}
	return geo, nil
}

// fetchBranches runs the context and place fetches concurrently. Either
// branch failing or timing out degrades to an empty default without
// touching the other branch.
func (p *Pipeline) fetchBranches(ctx context.Context, geo model.GeoResult, zip string) (model.StrategicContext, []model.LocalPlace) {
	strategicCtx := strategic.Empty()
	var localPlaces []model.LocalPlace

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sc, err := fanout.WithTimeout(gctx, p.branchTimeout, "context fetch timed out", func(ctx context.Context) (model.StrategicContext, error) {
			return p.aggregator.Aggregate(ctx, geo.City, geo.State, zip), nil
		})
		if err != nil {
			zap.L().Warn("brief: context branch degraded", zap.String("zip", zip), zap.Error(err))
			return nil
		}
		strategicCtx = sc
		return nil
	})

	g.Go(func() error {
		if !geo.HasCoordinates() {
			return nil
		}
		found, err := fanout.WithTimeout(gctx, p.branchTimeout, "place fetch timed out", func(ctx context.Context) ([]model.LocalPlace, error) {
			return p.fetcher.Fetch(ctx, *geo.Latitude, *geo.Longitude, placesPerCategory), nil
		})
		if err != nil {
			zap.L().Warn("brief: place branch degraded", zap.String("zip", zip), zap.Error(err))
			return nil
		}
		localPlaces = found
		return nil
	})

	_ = g.Wait()
	return strategicCtx, localPlaces
}

// parseCoordinate parses an upstream coordinate string. Malformed or
// non-finite values come back as absent rather than NaN.
func parseCoordinate(s string) *float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// assemble builds the response shape. The summary card ships empty; a
// downstream collaborator fills it.
func assemble(geo model.GeoResult, strategicCtx model.StrategicContext, enriched []model.LocalPlace, synthResult *synthesis.Result) *model.RapportResponse {
	anchors := synthResult.Anchors
	if anchors == nil {
		anchors = []model.Anchor{}
	}
	if enriched == nil {
		enriched = []model.LocalPlace{}
	}

	return &model.RapportResponse{
		Zip:            geo.Zip,
		City:           geo.City,
		State:          geo.State,
		SummaryCard:    model.SummaryCard{},
		KnowledgeBrief: synthResult.Brief,
		Anchors:        anchors,
		RawSupportingData: model.RawSupportingData{
			StrategicContext: strategicCtx,
			LocalPlaces:      enriched,
		},
	}
}
