package coverage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BruksfildServices01/homeservices-coverage/internal/audit"
	domain "github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/logger"
	"github.com/BruksfildServices01/homeservices-coverage/internal/metrics"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
)

// ======================================================
// RESULT
// ======================================================

type MutationResult struct {
	Success       bool     `json:"success"`
	AffectedCount int      `json:"affectedCount"`
	Message       string   `json:"message"`
	AreaID        *uint    `json:"areaId,omitempty"`
	Invalid       []string `json:"invalid,omitempty"`
}

// ======================================================
// RECONCILER
// ======================================================

// Reconciler applies coverage mutations. It takes no locks of its own:
// callers serialise writes for the same worker, and concurrent replace_all
// calls for one worker are last-write-wins at the storage layer.
type Reconciler struct {
	repo     domain.Repository
	resolver *Resolver
	cache    domain.Cache
	now      func() time.Time
}

func NewReconciler(repo domain.Repository, resolver *Resolver, cache domain.Cache) *Reconciler {
	return &Reconciler{
		repo:     repo,
		resolver: resolver,
		cache:    cache,
		now:      time.Now,
	}
}

// mutation is what an operation body reports back to run.
type mutation struct {
	result MutationResult
	areaID *uint
	change audit.Change
}

// run executes fn in one transaction together with its audit entry, then
// drops the worker's cached coverage.
func (uc *Reconciler) run(
	ctx context.Context,
	op string,
	workerID uint,
	fn func(tx domain.Repository) (*mutation, error),
) (MutationResult, error) {

	var out *mutation
	err := uc.repo.Atomic(ctx, op, func(tx domain.Repository) error {
		before, err := snapshot(ctx, tx, workerID)
		if err != nil {
			return err
		}

		m, err := fn(tx)
		if err != nil {
			return err
		}

		after, err := snapshot(ctx, tx, workerID)
		if err != nil {
			return err
		}

		wid := workerID
		entry := audit.Entry(op, &wid, m.areaID, domain.ActorFrom(ctx), before, after, m.change)
		if err := tx.AppendAudit(ctx, entry); err != nil {
			return fmt.Errorf("append audit: %w", err)
		}
		out = m
		return nil
	})

	var partial *domain.PartialFailureError
	switch {
	case err == nil:
		metrics.MutationsTotal.WithLabelValues(op, "ok").Inc()
	case errors.As(err, &partial):
		metrics.MutationsTotal.WithLabelValues(op, "partial").Inc()
		logger.L().Error("coverage mutation partially applied",
			"operation", op, "worker_id", workerID, "err", err)
	default:
		metrics.MutationsTotal.WithLabelValues(op, "error").Inc()
		return MutationResult{}, err
	}

	uc.invalidate(ctx, workerID)
	if err != nil {
		return MutationResult{}, err
	}

	out.result.Success = true
	out.result.AreaID = out.areaID
	logger.L().Info("coverage mutation applied",
		"operation", op, "worker_id", workerID, "affected", out.result.AffectedCount)
	return out.result, nil
}

func (uc *Reconciler) invalidate(ctx context.Context, workerID uint) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Invalidate(ctx, workerID); err != nil {
		logger.L().Warn("coverage cache invalidation failed", "worker_id", workerID, "err", err)
	}
}

func snapshot(ctx context.Context, tx domain.Repository, workerID uint) (audit.Summary, error) {
	areas, err := tx.ListAreas(ctx, workerID, true)
	if err != nil {
		return audit.Summary{}, err
	}
	codes, err := tx.ActiveCodes(ctx, workerID)
	if err != nil {
		return audit.Summary{}, err
	}
	return audit.Summarize(areas, len(codes)), nil
}

// ======================================================
// HELPERS
// ======================================================

func checkMode(m domain.Mode) error {
	if !m.Valid() {
		return domain.Invalid("mode", "mode must be append or replace_all")
	}
	return nil
}

func checkName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.Invalid("area_name", "area name is required")
	}
	if len(name) > 120 {
		return "", domain.Invalid("area_name", "area name is too long")
	}
	return name, nil
}

// insertCodes writes codes under area. An exact-duplicate conflict from
// storage counts as nothing written.
func insertCodes(ctx context.Context, tx domain.Repository, area *models.ServiceArea, codes []string, prov domain.Provenance) (int, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	rows := make([]models.ServiceZipcode, 0, len(codes))
	for _, c := range codes {
		rows = append(rows, models.ServiceZipcode{
			WorkerID:      area.WorkerID,
			ServiceAreaID: area.ID,
			Code:          c,
			Provenance:    uint8(prov),
		})
	}
	n, err := tx.InsertZipcodes(ctx, rows)
	if domain.IsConflict(err) {
		logger.L().Debug("duplicate postal codes ignored", "area_id", area.ID)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("insert zipcodes: %w", err)
	}
	return int(n), nil
}

// subtract returns the codes of a not present in b. Both are sorted.
func subtract(a, b []string) []string {
	skip := make(map[string]struct{}, len(b))
	for _, c := range b {
		skip[c] = struct{}{}
	}
	out := make([]string, 0, len(a))
	for _, c := range a {
		if _, ok := skip[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

func retireActive(ctx context.Context, tx domain.Repository, workerID uint, at time.Time) (int, error) {
	areas, err := tx.ListAreas(ctx, workerID, true)
	if err != nil {
		return 0, err
	}
	if len(areas) == 0 {
		return 0, nil
	}
	ids := make([]uint, 0, len(areas))
	for _, a := range areas {
		ids = append(ids, a.ID)
	}
	n, err := tx.RetireAreas(ctx, workerID, ids, at)
	if err != nil {
		return 0, fmt.Errorf("retire areas: %w", err)
	}
	return int(n), nil
}

// tally renders "added 12, skipped 3 invalid" style messages.
func tally(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

func countPart(n int, format string) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf(format, n)
}

func ownedArea(ctx context.Context, tx domain.Repository, workerID, areaID uint) (*models.ServiceArea, error) {
	area, err := tx.GetArea(ctx, areaID)
	if err != nil {
		return nil, err
	}
	if area.WorkerID != workerID {
		return nil, domain.NotFound("service area", areaID)
	}
	return area, nil
}
