package coverage

import (
	"context"
	"fmt"

	"github.com/BruksfildServices01/homeservices-coverage/internal/audit"
	domain "github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
)

// ======================================================
// MERGE
// ======================================================

// MergeAreas unions every active area of the worker into one new manual
// area and retires the old ones. A worker with a single active area just
// gets it renamed, so merging twice changes nothing.
func (uc *Reconciler) MergeAreas(ctx context.Context, workerID uint, newName string) (MutationResult, error) {
	name, err := checkName(newName)
	if err != nil {
		return MutationResult{}, err
	}
	if _, err := uc.repo.GetWorker(ctx, workerID); err != nil {
		return MutationResult{}, err
	}

	return uc.run(ctx, audit.OpMergeAreas, workerID, func(tx domain.Repository) (*mutation, error) {
		areas, err := tx.ListAreas(ctx, workerID, true)
		if err != nil {
			return nil, err
		}

		switch len(areas) {
		case 0:
			return nil, domain.NotFound("active service area for worker", workerID)
		case 1:
			area := areas[0]
			change := audit.Change{AreaName: name, Note: "single area renamed from " + area.AreaName}
			area.AreaName = name
			if err := tx.UpdateArea(ctx, &area); err != nil {
				return nil, err
			}
			id := area.ID
			return &mutation{
				result: MutationResult{Message: "worker has one area; renamed"},
				areaID: &id,
				change: change,
			}, nil
		}

		prov := make(map[string]domain.Provenance)
		ids := make([]uint, 0, len(areas))
		for _, a := range areas {
			ids = append(ids, a.ID)
			rows, err := tx.ListAreaZipcodes(ctx, a.ID)
			if err != nil {
				return nil, err
			}
			for _, z := range rows {
				prov[z.Code] = prov[z.Code].With(domain.Provenance(z.Provenance))
			}
		}

		if _, err := tx.RetireAreas(ctx, workerID, ids, uc.now()); err != nil {
			return nil, fmt.Errorf("retire areas: %w", err)
		}

		merged := &models.ServiceArea{
			WorkerID: workerID,
			AreaName: name,
			Kind:     string(domain.AreaManual),
			IsActive: true,
		}
		if err := tx.CreateArea(ctx, merged); err != nil {
			return nil, fmt.Errorf("create area: %w", err)
		}

		codes := make([]string, 0, len(prov))
		for c := range prov {
			codes = append(codes, c)
		}
		codes = domain.SortedUnique(codes)

		rows := make([]models.ServiceZipcode, 0, len(codes))
		for _, c := range codes {
			rows = append(rows, models.ServiceZipcode{
				WorkerID:      workerID,
				ServiceAreaID: merged.ID,
				Code:          c,
				Provenance:    uint8(prov[c]),
			})
		}
		n, err := tx.InsertZipcodes(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("insert zipcodes: %w", err)
		}

		id := merged.ID
		return &mutation{
			result: MutationResult{
				AffectedCount: int(n),
				Message:       fmt.Sprintf("merged %d areas into %d codes", len(areas), n),
			},
			areaID: &id,
			change: audit.Change{Added: int(n), Retired: len(areas), AreaName: name},
		}, nil
	})
}

// ======================================================
// RENAME / TOGGLE / DELETE
// ======================================================

// areaOp runs fn against an area in the same transaction as its audit
// entry. The owner is read up front so the audit row and cache key are
// known.
func (uc *Reconciler) areaOp(
	ctx context.Context,
	op string,
	areaID uint,
	fn func(tx domain.Repository, area *models.ServiceArea) (*mutation, error),
) (MutationResult, error) {

	area, err := uc.repo.GetArea(ctx, areaID)
	if err != nil {
		return MutationResult{}, err
	}
	return uc.run(ctx, op, area.WorkerID, func(tx domain.Repository) (*mutation, error) {
		cur, err := tx.GetArea(ctx, areaID)
		if err != nil {
			return nil, err
		}
		m, err := fn(tx, cur)
		if err != nil {
			return nil, err
		}
		id := areaID
		m.areaID = &id
		return m, nil
	})
}

// RenameArea only touches metadata.
func (uc *Reconciler) RenameArea(ctx context.Context, areaID uint, newName string) (MutationResult, error) {
	name, err := checkName(newName)
	if err != nil {
		return MutationResult{}, err
	}
	return uc.areaOp(ctx, audit.OpRenameArea, areaID, func(tx domain.Repository, area *models.ServiceArea) (*mutation, error) {
		old := area.AreaName
		area.AreaName = name
		if err := tx.UpdateArea(ctx, area); err != nil {
			return nil, err
		}
		return &mutation{
			result: MutationResult{Message: fmt.Sprintf("renamed %q to %q", old, name)},
			change: audit.Change{AreaName: name, Note: "renamed from " + old},
		}, nil
	})
}

// ToggleAreaActive hides or restores an area's codes in coverage reads
// without deleting anything.
func (uc *Reconciler) ToggleAreaActive(ctx context.Context, areaID uint, active bool) (MutationResult, error) {
	return uc.areaOp(ctx, audit.OpToggleArea, areaID, func(tx domain.Repository, area *models.ServiceArea) (*mutation, error) {
		rows, err := tx.ListAreaZipcodes(ctx, area.ID)
		if err != nil {
			return nil, err
		}

		state := "deactivated"
		if active {
			state = "activated"
		}
		if area.IsActive == active {
			return &mutation{
				result: MutationResult{Message: "area already " + state},
				change: audit.Change{AreaName: area.AreaName, Note: "unchanged"},
			}, nil
		}

		area.IsActive = active
		if active {
			area.RetiredAt = nil
		}
		if err := tx.UpdateArea(ctx, area); err != nil {
			return nil, err
		}
		return &mutation{
			result: MutationResult{
				AffectedCount: len(rows),
				Message:       fmt.Sprintf("area %s (%d codes)", state, len(rows)),
			},
			change: audit.Change{AreaName: area.AreaName, Note: state},
		}, nil
	})
}

// DeleteArea removes an area and its codes for good. Retiring through
// ToggleAreaActive keeps history; this does not.
func (uc *Reconciler) DeleteArea(ctx context.Context, areaID uint) (MutationResult, error) {
	return uc.areaOp(ctx, audit.OpDeleteArea, areaID, func(tx domain.Repository, area *models.ServiceArea) (*mutation, error) {
		rows, err := tx.ListAreaZipcodes(ctx, area.ID)
		if err != nil {
			return nil, err
		}
		if err := tx.DeleteArea(ctx, area.ID); err != nil {
			return nil, fmt.Errorf("delete area: %w", err)
		}
		return &mutation{
			result: MutationResult{
				AffectedCount: len(rows),
				Message:       fmt.Sprintf("deleted %q and %d codes", area.AreaName, len(rows)),
			},
			change: audit.Change{AreaName: area.AreaName, Removed: len(rows)},
		}, nil
	})
}
