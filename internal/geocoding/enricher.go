package geocoding

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/geo"
	"github.com/BruksfildServices01/homeservices-coverage/internal/logger"
	"github.com/BruksfildServices01/homeservices-coverage/internal/metrics"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
	"github.com/BruksfildServices01/homeservices-coverage/internal/postalcode"
)

type EnrichResult struct {
	Resolved []models.PostalCode
	Dropped  []string
}

// Enricher backfills registry gaps through an external Lookup. Lookups run in
// small concurrent batches; each batch finishes before the next starts.
type Enricher struct {
	lookup    Lookup
	registry  *postalcode.Registry
	batchSize int
	limiter   *rate.Limiter
}

// NewEnricher accepts a nil lookup, in which case every missing code is
// dropped. rps <= 0 disables rate limiting.
func NewEnricher(lookup Lookup, registry *postalcode.Registry, batchSize int, rps float64) *Enricher {
	if batchSize <= 0 {
		batchSize = 3
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), batchSize)
	}
	return &Enricher{
		lookup:    lookup,
		registry:  registry,
		batchSize: batchSize,
		limiter:   limiter,
	}
}

func (e *Enricher) Enabled() bool {
	return e != nil && e.lookup != nil
}

// Enrich looks up codes and adds what resolves to the registry. Failed
// lookups are logged and dropped. On cancellation the codes resolved so far
// are still returned together with the context error.
func (e *Enricher) Enrich(ctx context.Context, codes []string) (EnrichResult, error) {
	var res EnrichResult
	if len(codes) == 0 {
		return res, nil
	}
	if !e.Enabled() {
		logger.L().Warn("geocoding disabled, dropping unknown postal codes", "count", len(codes))
		res.Dropped = append(res.Dropped, codes...)
		return res, nil
	}

	start := time.Now()
	for i := 0; i < len(codes); i += e.batchSize {
		if err := ctx.Err(); err != nil {
			res.Dropped = append(res.Dropped, codes[i:]...)
			e.publish(ctx, res.Resolved)
			return res, err
		}

		end := i + e.batchSize
		if end > len(codes) {
			end = len(codes)
		}
		batch := codes[i:end]
		found := make([]*models.PostalCode, len(batch))

		var g errgroup.Group
		for j, code := range batch {
			g.Go(func() error {
				row, err := e.lookupOne(ctx, code)
				if err != nil {
					var le *coverage.ExternalLookupError
					if errors.As(err, &le) {
						logger.L().Warn("postal code lookup failed", "code", code, "err", le.Err)
					}
					metrics.GeocodeFailTotal.Inc()
					return nil
				}
				found[j] = row
				return nil
			})
		}
		_ = g.Wait()

		for j, row := range found {
			if row == nil {
				res.Dropped = append(res.Dropped, batch[j])
				continue
			}
			res.Resolved = append(res.Resolved, *row)
		}
	}

	e.publish(ctx, res.Resolved)
	logger.L().Info("geocoding enrichment finished",
		"requested", len(codes), "resolved", len(res.Resolved), "dropped", len(res.Dropped),
		"ms", time.Since(start).Milliseconds())
	return res, nil
}

func (e *Enricher) lookupOne(ctx context.Context, code string) (*models.PostalCode, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, &coverage.ExternalLookupError{Code: code, Err: err}
	}
	loc, err := e.lookup.LookupPostalCode(ctx, code)
	if err != nil {
		return nil, &coverage.ExternalLookupError{Code: code, Err: err}
	}
	if loc == nil || !(geo.Point{Lat: loc.Lat, Lng: loc.Lng}).Valid() {
		return nil, &coverage.ExternalLookupError{Code: code, Err: errors.New("no usable location")}
	}
	return &models.PostalCode{
		Code:      code,
		City:      loc.City,
		State:     loc.State,
		StateAbbr: loc.StateAbbr,
		Lat:       loc.Lat,
		Lng:       loc.Lng,
		Source:    models.SourceGeocoded,
	}, nil
}

func (e *Enricher) publish(ctx context.Context, rows []models.PostalCode) {
	if e.registry == nil || len(rows) == 0 {
		return
	}
	e.registry.AddGeocoded(ctx, rows)
}
