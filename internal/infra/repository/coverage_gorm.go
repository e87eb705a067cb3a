package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
)

type CoverageGormRepository struct {
	db   *gorm.DB
	inTx bool
}

func NewCoverageGormRepository(db *gorm.DB) *CoverageGormRepository {
	return &CoverageGormRepository{db: db}
}

var _ coverage.Repository = (*CoverageGormRepository)(nil)

// --------------------------------------------------
// Transactions
// --------------------------------------------------

func (r *CoverageGormRepository) Atomic(
	ctx context.Context,
	op string,
	fn func(tx coverage.Repository) error,
) error {
	if r.inTx {
		return fn(r)
	}

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin %s: %w", op, tx.Error)
	}

	if err := fn(&CoverageGormRepository{db: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return &coverage.PartialFailureError{Operation: op, Err: err, RollbackErr: rbErr}
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit %s: %w", op, err)
	}
	return nil
}

// --------------------------------------------------
// Workers
// --------------------------------------------------

func (r *CoverageGormRepository) GetWorker(ctx context.Context, id uint) (*models.Worker, error) {
	var w models.Worker
	if err := r.db.WithContext(ctx).First(&w, id).Error; err != nil {
		return nil, mapErr(err, "worker", id)
	}
	return &w, nil
}

func (r *CoverageGormRepository) ListWorkers(ctx context.Context) ([]models.Worker, error) {
	var workers []models.Worker
	if err := r.db.WithContext(ctx).Order("id").Find(&workers).Error; err != nil {
		return nil, mapErr(err, "workers", "")
	}
	return workers, nil
}

func (r *CoverageGormRepository) CreateWorker(ctx context.Context, w *models.Worker) error {
	return mapErr(r.db.WithContext(ctx).Create(w).Error, "worker", w.Email)
}

// --------------------------------------------------
// Areas
// --------------------------------------------------

func (r *CoverageGormRepository) GetArea(ctx context.Context, id uint) (*models.ServiceArea, error) {
	var a models.ServiceArea
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, mapErr(err, "service area", id)
	}
	return &a, nil
}

func (r *CoverageGormRepository) ListAreas(
	ctx context.Context,
	workerID uint,
	activeOnly bool,
) ([]models.ServiceArea, error) {

	q := r.db.WithContext(ctx).Where("worker_id = ?", workerID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var areas []models.ServiceArea
	if err := q.Order("id").Find(&areas).Error; err != nil {
		return nil, mapErr(err, "service areas", workerID)
	}
	return areas, nil
}

func (r *CoverageGormRepository) CreateArea(ctx context.Context, a *models.ServiceArea) error {
	if !coverage.AreaKind(a.Kind).Valid() {
		return coverage.Invalid("kind", fmt.Sprintf("unknown area kind %q", a.Kind))
	}
	return mapErr(r.db.WithContext(ctx).Create(a).Error, "service area", a.AreaName)
}

func (r *CoverageGormRepository) UpdateArea(ctx context.Context, a *models.ServiceArea) error {
	return mapErr(
		r.db.WithContext(ctx).
			Model(a).
			Select("area_name", "kind", "polygon", "is_active", "retired_at", "updated_at").
			Updates(a).Error,
		"service area", a.ID,
	)
}

func (r *CoverageGormRepository) RetireAreas(
	ctx context.Context,
	workerID uint,
	ids []uint,
	at time.Time,
) (int64, error) {

	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.ServiceArea{}).
		Where("worker_id = ? AND id = ANY(?)", workerID, pq.Array(toInt64s(ids))).
		Updates(map[string]any{
			"is_active":  false,
			"retired_at": at,
			"updated_at": at,
		})
	if res.Error != nil {
		return 0, mapErr(res.Error, "service areas", workerID)
	}
	return res.RowsAffected, nil
}

func (r *CoverageGormRepository) DeleteArea(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("service_area_id = ?", id).Delete(&models.ServiceZipcode{}).Error; err != nil {
		return mapErr(err, "service zipcodes", id)
	}
	res := db.Delete(&models.ServiceArea{}, id)
	if res.Error != nil {
		return mapErr(res.Error, "service area", id)
	}
	if res.RowsAffected == 0 {
		return coverage.NotFound("service area", id)
	}
	return nil
}

// --------------------------------------------------
// Zipcodes
// --------------------------------------------------

func (r *CoverageGormRepository) ListAreaZipcodes(ctx context.Context, areaID uint) ([]models.ServiceZipcode, error) {
	var rows []models.ServiceZipcode
	if err := r.db.WithContext(ctx).
		Where("service_area_id = ?", areaID).
		Order("code").
		Find(&rows).Error; err != nil {
		return nil, mapErr(err, "service zipcodes", areaID)
	}
	return rows, nil
}

func (r *CoverageGormRepository) ActiveCodes(ctx context.Context, workerID uint) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT z.code
		FROM service_zipcodes z
		JOIN service_areas a ON a.id = z.service_area_id
		WHERE z.worker_id = ? AND a.is_active = true
		ORDER BY z.code
	`, workerID).Scan(&codes).Error; err != nil {
		return nil, mapErr(err, "active codes", workerID)
	}
	return codes, nil
}

func (r *CoverageGormRepository) InsertZipcodes(ctx context.Context, rows []models.ServiceZipcode) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, 500)
	if res.Error != nil {
		return 0, mapErr(res.Error, "service zipcodes", rows[0].ServiceAreaID)
	}
	return res.RowsAffected, nil
}

func (r *CoverageGormRepository) DeleteAreaZipcodes(ctx context.Context, areaID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("service_area_id = ?", areaID).
		Delete(&models.ServiceZipcode{})
	if res.Error != nil {
		return 0, mapErr(res.Error, "service zipcodes", areaID)
	}
	return res.RowsAffected, nil
}

func (r *CoverageGormRepository) DeleteZipcode(
	ctx context.Context,
	workerID uint,
	code string,
	areaID *uint,
) (int64, error) {

	q := r.db.WithContext(ctx).Where("worker_id = ? AND code = ?", workerID, code)
	if areaID != nil {
		q = q.Where("service_area_id = ?", *areaID)
	} else {
		// retired areas keep their rows as history
		active := r.db.Model(&models.ServiceArea{}).
			Select("id").
			Where("worker_id = ? AND is_active = ?", workerID, true)
		q = q.Where("service_area_id IN (?)", active)
	}
	res := q.Delete(&models.ServiceZipcode{})
	if res.Error != nil {
		return 0, mapErr(res.Error, "service zipcode", code)
	}
	return res.RowsAffected, nil
}

// --------------------------------------------------
// Queries
// --------------------------------------------------

func (r *CoverageGormRepository) WorkersForCode(ctx context.Context, code string) ([]models.Worker, error) {
	var workers []models.Worker
	if err := r.db.WithContext(ctx).Raw(`
		SELECT w.*
		FROM workers w
		WHERE w.active = true AND EXISTS (
			SELECT 1
			FROM service_zipcodes z
			JOIN service_areas a ON a.id = z.service_area_id
			WHERE z.worker_id = w.id AND z.code = ? AND a.is_active = true
		)
		ORDER BY w.id
	`, code).Scan(&workers).Error; err != nil {
		return nil, mapErr(err, "workers", code)
	}
	return workers, nil
}

func (r *CoverageGormRepository) ActiveCoverage(ctx context.Context) ([]coverage.CoverageRow, error) {
	var rows []coverage.CoverageRow
	if err := r.db.WithContext(ctx).Raw(`
		SELECT z.worker_id, z.service_area_id AS area_id, z.code
		FROM service_zipcodes z
		JOIN service_areas a ON a.id = z.service_area_id
		JOIN workers w ON w.id = z.worker_id
		WHERE a.is_active = true AND w.active = true
		ORDER BY z.worker_id, z.code
	`).Scan(&rows).Error; err != nil {
		return nil, mapErr(err, "active coverage", "")
	}
	return rows, nil
}

// --------------------------------------------------
// Audit
// --------------------------------------------------

func (r *CoverageGormRepository) AppendAudit(ctx context.Context, entry *models.AuditLog) error {
	return mapErr(r.db.WithContext(ctx).Create(entry).Error, "audit log", entry.Operation)
}

func (r *CoverageGormRepository) ListAudit(
	ctx context.Context,
	f coverage.AuditFilter,
) ([]models.AuditLog, int64, error) {

	q := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.WorkerID != nil {
		q = q.Where("worker_id = ?", *f.WorkerID)
	}
	if f.Operation != "" {
		q = q.Where("operation = ?", f.Operation)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, mapErr(err, "audit logs", "")
	}

	page, limit := pageBounds(f.Page, f.Limit)
	var logs []models.AuditLog
	if err := q.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&logs).Error; err != nil {
		return nil, 0, mapErr(err, "audit logs", "")
	}
	return logs, total, nil
}

func pageBounds(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return page, limit
}

func toInt64s(ids []uint) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
