package coverage

import (
	"context"

	domain "github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/logger"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
	"github.com/BruksfildServices01/homeservices-coverage/internal/validators"
)

type ZipcodeView struct {
	Code       string            `json:"code"`
	Provenance domain.Provenance `json:"provenance"`
}

type AreaView struct {
	models.ServiceArea
	Zipcodes []ZipcodeView `json:"zipcodes"`
}

type WorkerCoverage struct {
	WorkerID uint     `json:"worker_id"`
	Codes    []string `json:"codes"`
	Count    int      `json:"count"`
	Cached   bool     `json:"cached"`
}

// Queries is the read side used by the booking platform and the admin UI.
type Queries struct {
	repo  domain.Repository
	cache domain.Cache
	hulls *HullSynthesizer
}

func NewQueries(repo domain.Repository, cache domain.Cache, hulls *HullSynthesizer) *Queries {
	return &Queries{repo: repo, cache: cache, hulls: hulls}
}

// WorkerCoverage reads through the per-worker cache. Cache failures fall
// back to storage. The fill carries the generation seen on the miss, so a
// mutation committing during the storage read makes the fill a no-op.
func (q *Queries) WorkerCoverage(ctx context.Context, workerID uint) (*WorkerCoverage, error) {
	if _, err := q.repo.GetWorker(ctx, workerID); err != nil {
		return nil, err
	}

	var (
		gen      uint64
		fillable bool
	)
	if q.cache != nil {
		read, err := q.cache.Get(ctx, workerID)
		if err != nil {
			logger.L().Warn("coverage cache read failed", "worker_id", workerID, "err", err)
		} else if read.Hit {
			return &WorkerCoverage{WorkerID: workerID, Codes: read.Codes, Count: len(read.Codes), Cached: true}, nil
		} else {
			gen, fillable = read.Gen, true
		}
	}

	codes, err := q.repo.ActiveCodes(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if codes == nil {
		codes = []string{}
	}

	if fillable {
		if _, err := q.cache.Set(ctx, workerID, gen, codes); err != nil {
			logger.L().Warn("coverage cache write failed", "worker_id", workerID, "err", err)
		}
	}
	return &WorkerCoverage{WorkerID: workerID, Codes: codes, Count: len(codes)}, nil
}

// WorkersForCode lists workers whose active coverage includes code.
func (q *Queries) WorkersForCode(ctx context.Context, raw string) ([]models.Worker, error) {
	code, ok := validators.NormalizeZipcode(raw)
	if !ok {
		return nil, domain.Invalid("code", "postal code must have 5 digits")
	}
	return q.repo.WorkersForCode(ctx, code)
}

func (q *Queries) ListAreas(ctx context.Context, workerID uint, activeOnly bool) ([]AreaView, error) {
	if _, err := q.repo.GetWorker(ctx, workerID); err != nil {
		return nil, err
	}
	areas, err := q.repo.ListAreas(ctx, workerID, activeOnly)
	if err != nil {
		return nil, err
	}

	out := make([]AreaView, 0, len(areas))
	for _, a := range areas {
		rows, err := q.repo.ListAreaZipcodes(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		view := AreaView{ServiceArea: a, Zipcodes: make([]ZipcodeView, 0, len(rows))}
		for _, z := range rows {
			view.Zipcodes = append(view.Zipcodes, ZipcodeView{Code: z.Code, Provenance: domain.Provenance(z.Provenance)})
		}
		out = append(out, view)
	}
	return out, nil
}

// AreaHull returns a polygon area's drawn ring, or builds a hull from a
// manual area's codes.
func (q *Queries) AreaHull(ctx context.Context, areaID uint) (HullResult, error) {
	area, err := q.repo.GetArea(ctx, areaID)
	if err != nil {
		return HullResult{}, err
	}
	rows, err := q.repo.ListAreaZipcodes(ctx, areaID)
	if err != nil {
		return HullResult{}, err
	}

	if domain.AreaKind(area.Kind) == domain.AreaPolygon && len(area.Polygon) > 0 {
		return HullResult{
			Derivable:  true,
			Polygon:    area.Polygon,
			PointCount: len(rows),
			Source:     "stored",
		}, nil
	}

	codes := make([]string, 0, len(rows))
	for _, z := range rows {
		codes = append(codes, z.Code)
	}
	return q.hulls.FromCodes(ctx, codes)
}

func (q *Queries) AuditLog(ctx context.Context, f domain.AuditFilter) ([]models.AuditLog, int64, error) {
	return q.repo.ListAudit(ctx, f)
}
