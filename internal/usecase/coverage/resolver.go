package coverage

import (
	"context"
	"time"

	domain "github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/geo"
	"github.com/BruksfildServices01/homeservices-coverage/internal/metrics"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
)

// candidates between cancellation checks
const resolveChunk = 512

type ResolverOptions struct {
	// RefineCentroids keeps a centroid-only code only when its centroid
	// lies inside the polygon instead of accepting any box overlap.
	RefineCentroids bool
}

// Resolver maps a polygon onto the postal codes it covers. It never writes,
// so abandoning a resolution through ctx is always safe.
type Resolver struct {
	codes PostalCodes
	opts  ResolverOptions
}

func NewResolver(codes PostalCodes, opts ResolverOptions) *Resolver {
	return &Resolver{codes: codes, opts: opts}
}

// Resolve normalises the drawn polygon and resolves it.
func (r *Resolver) Resolve(ctx context.Context, polygon []geo.Point) (domain.Result, error) {
	ring, err := geo.NormalizeRing(polygon)
	if err != nil {
		metrics.ResolveResultsTotal.WithLabelValues("invalid").Inc()
		return domain.NotComputed(), domain.Invalid("polygon", err.Error())
	}
	return r.ResolveRing(ctx, ring)
}

// ResolveRing expects a ring produced by geo.NormalizeRing.
func (r *Resolver) ResolveRing(ctx context.Context, ring geo.Ring) (domain.Result, error) {
	start := time.Now()
	defer func() {
		metrics.ResolveDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	}()

	if r.codes.Len() == 0 {
		metrics.ResolveResultsTotal.WithLabelValues(domain.StatusNotComputed).Inc()
		return domain.NotComputed(), nil
	}

	candidates, err := r.codes.Query(ctx, ring.BBox())
	if err != nil {
		return domain.NotComputed(), err
	}

	var withBoundary, centroidOnly []models.PostalCode
	for _, c := range candidates {
		if len(c.Boundary) > 0 {
			withBoundary = append(withBoundary, c)
		} else {
			centroidOnly = append(centroidOnly, c)
		}
	}

	matched := make([]string, 0, len(candidates))

	// boundary rings: true polygon intersection
	for i, c := range withBoundary {
		if i%resolveChunk == 0 {
			if err := ctx.Err(); err != nil {
				return domain.NotComputed(), err
			}
		}
		for _, b := range c.Boundary {
			if geo.Intersects(ring, b) {
				matched = append(matched, c.Code)
				break
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return domain.NotComputed(), err
	}

	// centroid-only: the index already matched on box overlap
	for i, c := range centroidOnly {
		if i%resolveChunk == 0 {
			if err := ctx.Err(); err != nil {
				return domain.NotComputed(), err
			}
		}
		if r.opts.RefineCentroids && !ring.ContainsPoint(c.Centroid()) {
			continue
		}
		matched = append(matched, c.Code)
	}

	res := domain.Computed(matched)
	outcome := domain.StatusComputed
	if res.Empty() {
		outcome = "empty"
	}
	metrics.ResolveResultsTotal.WithLabelValues(outcome).Inc()
	return res, nil
}
