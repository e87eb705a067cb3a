package postalcode

import (
	"context"
	"fmt"
	"strings"

	"github.com/BruksfildServices01/homeservices-coverage/internal/geo"
	"github.com/BruksfildServices01/homeservices-coverage/internal/logger"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
	"github.com/BruksfildServices01/homeservices-coverage/internal/validators"
)

// Record is one row of the reference dataset.
type Record struct {
	Code      string  `json:"code"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	StateAbbr string  `json:"stateAbbr"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

type Report struct {
	Processed int      `json:"processed"`
	Total     int      `json:"total"`
	Errors    []string `json:"errors"`
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) Merge(o Report) {
	r.Processed += o.Processed
	r.Total += o.Total
	r.Errors = append(r.Errors, o.Errors...)
}

type Importer struct {
	registry  *Registry
	chunkSize int
}

func NewImporter(registry *Registry, chunkSize int) *Importer {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return &Importer{registry: registry, chunkSize: chunkSize}
}

// Import validates and upserts records in chunks. Invalid records and failed
// chunks are tallied in the report; the import keeps going. Boundaries for
// codes outside records are attached to entries already in the registry.
func (im *Importer) Import(ctx context.Context, records []Record, boundaries map[string][]geo.Ring) (Report, error) {
	rep := Report{Total: len(records), Errors: []string{}}

	rows := make([]models.PostalCode, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		row, err := toModel(rec)
		if err != nil {
			rep.errorf("record %d (%s): %v", i, rec.Code, err)
			continue
		}
		if _, dup := seen[row.Code]; dup {
			rep.errorf("record %d (%s): duplicate code in payload", i, row.Code)
			continue
		}
		seen[row.Code] = struct{}{}
		if rings := boundaries[row.Code]; len(rings) > 0 {
			row.Boundary = rings
			row.Source = models.SourceOfficialBoundary
		}
		rows = append(rows, row)
	}

	for code, rings := range boundaries {
		if _, ok := seen[code]; ok || len(rings) == 0 {
			continue
		}
		rep.Total++
		existing, ok := im.registry.Get(code)
		if !ok {
			rep.errorf("boundary %s: unknown postal code", code)
			continue
		}
		existing.Boundary = rings
		existing.Source = models.SourceOfficialBoundary
		rows = append(rows, existing)
	}

	for start := 0; start < len(rows); start += im.chunkSize {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		end := start + im.chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		n, err := im.registry.Upsert(ctx, rows[start:end])
		if err != nil {
			rep.errorf("chunk %d-%d: %v", start, end-1, err)
			logger.L().Error("postal code import chunk failed", "start", start, "end", end-1, "err", err)
			continue
		}
		rep.Processed += int(n)
	}

	logger.L().Info("postal code import finished", "processed", rep.Processed, "total", rep.Total, "errors", len(rep.Errors))
	return rep, nil
}

func toModel(rec Record) (models.PostalCode, error) {
	code, ok := validators.NormalizeZipcode(rec.Code)
	if !ok {
		return models.PostalCode{}, fmt.Errorf("invalid postal code")
	}
	p := geo.Point{Lat: rec.Lat, Lng: rec.Lng}
	if !p.Valid() || (rec.Lat == 0 && rec.Lng == 0) {
		return models.PostalCode{}, fmt.Errorf("invalid centroid %v,%v", rec.Lat, rec.Lng)
	}
	abbr := strings.ToUpper(strings.TrimSpace(rec.StateAbbr))
	if abbr != "" && len(abbr) != 2 {
		return models.PostalCode{}, fmt.Errorf("invalid state abbreviation %q", rec.StateAbbr)
	}
	return models.PostalCode{
		Code:      code,
		City:      strings.TrimSpace(rec.City),
		State:     strings.TrimSpace(rec.State),
		StateAbbr: abbr,
		Lat:       rec.Lat,
		Lng:       rec.Lng,
		Source:    models.SourceCentroidOnly,
	}, nil
}
