// Package coverage holds the use cases that turn drawn polygons and code
// lists into worker coverage: resolution, hull synthesis, reconciliation
// and read-side aggregation.
package coverage

import (
	"context"

	"github.com/BruksfildServices01/homeservices-coverage/internal/geo"
	"github.com/BruksfildServices01/homeservices-coverage/internal/geocoding"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
)

// PostalCodes is the read side of the postal-code registry.
type PostalCodes interface {
	Len() int
	Get(code string) (models.PostalCode, bool)
	Lookup(codes []string) (found []models.PostalCode, missing []string)
	Query(ctx context.Context, b geo.BBox) ([]models.PostalCode, error)
}

// Enricher resolves codes the registry does not know yet.
type Enricher interface {
	Enrich(ctx context.Context, codes []string) (geocoding.EnrichResult, error)
}
