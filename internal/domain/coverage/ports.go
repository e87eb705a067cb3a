package coverage

import (
	"context"
	"time"

	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
)

type AuditFilter struct {
	WorkerID  *uint
	Operation string
	From      *time.Time
	To        *time.Time // exclusive
	Page      int
	Limit     int
}

// CoverageRow is one code under an active area of an active worker.
type CoverageRow struct {
	WorkerID uint
	AreaID   uint
	Code     string
}

type Repository interface {
	// Atomic runs fn against a transactional view of the repository. A
	// failed rollback is reported as *PartialFailureError.
	Atomic(ctx context.Context, op string, fn func(tx Repository) error) error

	// -------- Workers --------
	GetWorker(ctx context.Context, id uint) (*models.Worker, error)
	ListWorkers(ctx context.Context) ([]models.Worker, error)
	CreateWorker(ctx context.Context, w *models.Worker) error

	// -------- Areas --------
	GetArea(ctx context.Context, id uint) (*models.ServiceArea, error)
	ListAreas(ctx context.Context, workerID uint, activeOnly bool) ([]models.ServiceArea, error)
	CreateArea(ctx context.Context, a *models.ServiceArea) error
	UpdateArea(ctx context.Context, a *models.ServiceArea) error
	RetireAreas(ctx context.Context, workerID uint, ids []uint, at time.Time) (int64, error)
	DeleteArea(ctx context.Context, id uint) error

	// -------- Zipcodes --------
	ListAreaZipcodes(ctx context.Context, areaID uint) ([]models.ServiceZipcode, error)
	ActiveCodes(ctx context.Context, workerID uint) ([]string, error)
	// InsertZipcodes skips rows that already exist and returns how many
	// were written.
	InsertZipcodes(ctx context.Context, rows []models.ServiceZipcode) (int64, error)
	DeleteAreaZipcodes(ctx context.Context, areaID uint) (int64, error)
	DeleteZipcode(ctx context.Context, workerID uint, code string, areaID *uint) (int64, error)

	// -------- Queries --------
	WorkersForCode(ctx context.Context, code string) ([]models.Worker, error)
	ActiveCoverage(ctx context.Context) ([]CoverageRow, error)

	// -------- Audit --------
	AppendAudit(ctx context.Context, entry *models.AuditLog) error
	ListAudit(ctx context.Context, f AuditFilter) ([]models.AuditLog, int64, error)
}

// CacheRead is the result of a cache lookup. On a miss Gen carries the
// worker's current generation, to be handed back to Set.
type CacheRead struct {
	Codes []string
	Hit   bool
	Gen   uint64
}

// Cache holds each worker's active code set. Invalidate bumps the worker's
// generation; Set is a no-op (false) when the generation moved since the
// Get that produced gen, so a fill racing a mutation never stores the old set.
type Cache interface {
	Get(ctx context.Context, workerID uint) (CacheRead, error)
	Set(ctx context.Context, workerID uint, gen uint64, codes []string) (bool, error)
	Invalidate(ctx context.Context, workerID uint) error
}
