package coverage

import (
	"context"
	"fmt"

	"github.com/BruksfildServices01/homeservices-coverage/internal/audit"
	domain "github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/geo"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
)

// ======================================================
// CREATE FROM POLYGON
// ======================================================

type CreateFromPolygonInput struct {
	WorkerID uint
	AreaName string
	Polygon  []geo.Point
	Mode     domain.Mode
}

// CreateFromPolygon resolves the polygon before touching storage. A
// resolution with no codes fails with *EmptyCoverageError so the caller can
// fall back to manual entry.
func (uc *Reconciler) CreateFromPolygon(ctx context.Context, in CreateFromPolygonInput) (MutationResult, error) {
	if err := checkMode(in.Mode); err != nil {
		return MutationResult{}, err
	}
	name, err := checkName(in.AreaName)
	if err != nil {
		return MutationResult{}, err
	}
	ring, err := geo.NormalizeRing(in.Polygon)
	if err != nil {
		return MutationResult{}, domain.Invalid("polygon", err.Error())
	}
	if _, err := uc.repo.GetWorker(ctx, in.WorkerID); err != nil {
		return MutationResult{}, err
	}

	res, err := uc.resolver.ResolveRing(ctx, ring)
	if err != nil {
		return MutationResult{}, err
	}
	if !res.IsComputed() {
		return MutationResult{}, &domain.EmptyCoverageError{Reason: domain.ReasonNotComputed}
	}
	if res.Empty() {
		return MutationResult{}, &domain.EmptyCoverageError{Reason: domain.ReasonNoOverlap}
	}

	return uc.run(ctx, audit.OpCreateFromPolygon, in.WorkerID, func(tx domain.Repository) (*mutation, error) {
		area := &models.ServiceArea{
			WorkerID: in.WorkerID,
			AreaName: name,
			Kind:     string(domain.AreaPolygon),
			Polygon:  ring,
			IsActive: true,
		}
		return uc.createArea(ctx, tx, area, res.Codes(), in.Mode, nil)
	})
}

// ======================================================
// CREATE FROM ZIP LIST
// ======================================================

type CreateFromZipListInput struct {
	WorkerID uint
	AreaName string
	Codes    []string
	Mode     domain.Mode
}

// CreateFromZipList stores a manual area. No hull is built here; viewers
// ask for one when they need it.
func (uc *Reconciler) CreateFromZipList(ctx context.Context, in CreateFromZipListInput) (MutationResult, error) {
	if err := checkMode(in.Mode); err != nil {
		return MutationResult{}, err
	}
	name, err := checkName(in.AreaName)
	if err != nil {
		return MutationResult{}, err
	}
	valid, invalid := domain.SplitCodes(in.Codes)
	if len(valid) == 0 {
		return MutationResult{}, domain.Invalid("codes", "no valid 5-digit postal codes")
	}
	if _, err := uc.repo.GetWorker(ctx, in.WorkerID); err != nil {
		return MutationResult{}, err
	}

	return uc.run(ctx, audit.OpCreateFromZipList, in.WorkerID, func(tx domain.Repository) (*mutation, error) {
		area := &models.ServiceArea{
			WorkerID: in.WorkerID,
			AreaName: name,
			Kind:     string(domain.AreaManual),
			IsActive: true,
		}
		return uc.createArea(ctx, tx, area, valid, in.Mode, invalid)
	})
}

// createArea is shared by both create paths. replace_all retires every
// active area first. append creates nothing when the worker already covers
// every code; otherwise the new area stores its full code set, including
// codes a sibling area also covers, so retiring that sibling later cannot
// drop them.
func (uc *Reconciler) createArea(
	ctx context.Context,
	tx domain.Repository,
	area *models.ServiceArea,
	codes []string,
	mode domain.Mode,
	invalid []string,
) (*mutation, error) {

	change := audit.Change{Mode: string(mode), AreaName: area.AreaName, Invalid: len(invalid)}
	shared := 0

	if mode == domain.ModeReplaceAll {
		retired, err := retireActive(ctx, tx, area.WorkerID, uc.now())
		if err != nil {
			return nil, err
		}
		change.Retired = retired
	} else {
		current, err := tx.ActiveCodes(ctx, area.WorkerID)
		if err != nil {
			return nil, err
		}
		fresh := subtract(codes, current)
		if len(fresh) == 0 {
			change.Skipped = len(codes)
			change.Note = "every code already covered"
			return &mutation{
				result: MutationResult{
					Message: tally("no new codes", countPart(change.Skipped, "skipped %d already covered"), countPart(change.Invalid, "skipped %d invalid")),
					Invalid: invalid,
				},
				change: change,
			}, nil
		}
		shared = len(codes) - len(fresh)
		if shared > 0 {
			change.Note = fmt.Sprintf("%d codes shared with other areas", shared)
		}
	}

	if err := tx.CreateArea(ctx, area); err != nil {
		return nil, fmt.Errorf("create area: %w", err)
	}
	added, err := insertCodes(ctx, tx, area, codes, domain.AreaKind(area.Kind).Provenance())
	if err != nil {
		return nil, err
	}
	change.Added = added

	id := area.ID
	return &mutation{
		result: MutationResult{
			AffectedCount: added,
			Message: tally(
				fmt.Sprintf("added %d", added),
				countPart(shared, "%d also in other areas"),
				countPart(change.Invalid, "skipped %d invalid"),
				countPart(change.Retired, "retired %d areas"),
			),
			Invalid: invalid,
		},
		areaID: &id,
		change: change,
	}, nil
}
