package coverage

import (
	"context"
	"time"

	domain "github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/geo"
	"github.com/BruksfildServices01/homeservices-coverage/internal/logger"
	"github.com/BruksfildServices01/homeservices-coverage/internal/metrics"
)

// HullResult is "no polygon derivable" when Derivable is false; that is an
// answer, not an error.
type HullResult struct {
	Derivable  bool     `json:"derivable"`
	Polygon    geo.Ring `json:"polygon,omitempty"`
	PointCount int      `json:"point_count"`
	Dropped    []string `json:"dropped,omitempty"`
	// stored | computed
	Source string `json:"source,omitempty"`
}

type HullSynthesizer struct {
	codes    PostalCodes
	enricher Enricher
	opts     geo.HullOptions
}

// NewHullSynthesizer accepts a nil enricher; unknown codes are then dropped.
func NewHullSynthesizer(codes PostalCodes, enricher Enricher, opts geo.HullOptions) *HullSynthesizer {
	return &HullSynthesizer{codes: codes, enricher: enricher, opts: opts}
}

func (h *HullSynthesizer) FromPoints(ctx context.Context, pts []geo.Point) (HullResult, error) {
	if err := ctx.Err(); err != nil {
		return HullResult{}, err
	}

	start := time.Now()
	ring, kind, ok := geo.HullWithKind(pts, h.opts)
	res := HullResult{PointCount: len(pts)}
	if !ok {
		return res, nil
	}
	metrics.HullDurationMs.WithLabelValues(kind).Observe(float64(time.Since(start).Milliseconds()))

	res.Derivable = true
	res.Polygon = ring
	res.Source = "computed"
	return res, nil
}

// FromCodes hulls the centroids of codes, geocoding the ones the registry
// is missing first.
func (h *HullSynthesizer) FromCodes(ctx context.Context, codes []string) (HullResult, error) {
	valid, invalid := domain.SplitCodes(codes)

	found, missing := h.codes.Lookup(valid)
	var dropped []string
	dropped = append(dropped, invalid...)

	if len(missing) > 0 {
		if h.enricher == nil {
			dropped = append(dropped, missing...)
		} else {
			enriched, err := h.enricher.Enrich(ctx, missing)
			if err != nil {
				return HullResult{}, err
			}
			found = append(found, enriched.Resolved...)
			dropped = append(dropped, enriched.Dropped...)
		}
	}
	if len(dropped) > 0 {
		logger.L().Warn("hull built without some postal codes", "dropped", len(dropped))
	}

	pts := make([]geo.Point, 0, len(found))
	for _, p := range found {
		pts = append(pts, p.Centroid())
	}

	res, err := h.FromPoints(ctx, pts)
	if err != nil {
		return HullResult{}, err
	}
	res.Dropped = dropped
	return res, nil
}
