package coverage

import (
	"context"
	"fmt"

	"github.com/BruksfildServices01/homeservices-coverage/internal/audit"
	domain "github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/validators"
)

// ======================================================
// ADD ZIPCODES TO AREA
// ======================================================

type AddZipcodesInput struct {
	WorkerID uint
	AreaID   uint
	Codes    []string
	Mode     domain.Mode
}

// AddZipcodesToArea appends codes the area does not hold yet, or with
// replace_all swaps the codes of this one area and leaves its siblings alone.
// Editing a polygon area by hand turns it into a manual area.
func (uc *Reconciler) AddZipcodesToArea(ctx context.Context, in AddZipcodesInput) (MutationResult, error) {
	if err := checkMode(in.Mode); err != nil {
		return MutationResult{}, err
	}
	valid, invalid := domain.SplitCodes(in.Codes)
	if len(valid) == 0 {
		return MutationResult{}, domain.Invalid("codes", "no valid 5-digit postal codes")
	}

	return uc.run(ctx, audit.OpAddZipcodes, in.WorkerID, func(tx domain.Repository) (*mutation, error) {
		area, err := ownedArea(ctx, tx, in.WorkerID, in.AreaID)
		if err != nil {
			return nil, err
		}

		change := audit.Change{Mode: string(in.Mode), AreaName: area.AreaName, Invalid: len(invalid)}
		codes := valid

		if in.Mode == domain.ModeReplaceAll {
			removed, err := tx.DeleteAreaZipcodes(ctx, area.ID)
			if err != nil {
				return nil, fmt.Errorf("clear area: %w", err)
			}
			change.Removed = int(removed)
		} else {
			own, err := tx.ListAreaZipcodes(ctx, area.ID)
			if err != nil {
				return nil, err
			}
			have := make([]string, 0, len(own))
			for _, z := range own {
				have = append(have, z.Code)
			}
			codes = subtract(valid, have)
			change.Skipped = len(valid) - len(codes)
		}

		added, err := insertCodes(ctx, tx, area, codes, domain.FromManual)
		if err != nil {
			return nil, err
		}
		change.Added = added

		// a hand-edited polygon area is no longer described by its ring
		converted := false
		if area.Kind == string(domain.AreaPolygon) && added+change.Removed > 0 {
			area.Kind = string(domain.AreaManual)
			area.Polygon = nil
			if err := tx.UpdateArea(ctx, area); err != nil {
				return nil, fmt.Errorf("convert area: %w", err)
			}
			converted = true
			change.Note = "polygon area converted to manual"
		}

		id := area.ID
		return &mutation{
			result: MutationResult{
				AffectedCount: added + change.Removed,
				Message: tally(
					fmt.Sprintf("added %d", added),
					countPart(change.Removed, "removed %d"),
					countPart(change.Skipped, "skipped %d already covered"),
					countPart(change.Invalid, "skipped %d invalid"),
					convertedPart(converted),
				),
				Invalid: invalid,
			},
			areaID: &id,
			change: change,
		}, nil
	})
}

func convertedPart(converted bool) string {
	if converted {
		return "area is now manual"
	}
	return ""
}

// ======================================================
// REMOVE ZIPCODE
// ======================================================

type RemoveZipcodeInput struct {
	WorkerID uint
	Code     string
	// AreaID limits the removal to one area; nil removes the code from every
	// active area of the worker. Retired areas keep it.
	AreaID *uint
}

// RemoveZipcode deletes by natural key only, so concurrent removals of
// different codes for one worker never touch each other's rows.
func (uc *Reconciler) RemoveZipcode(ctx context.Context, in RemoveZipcodeInput) (MutationResult, error) {
	code, ok := validators.NormalizeZipcode(in.Code)
	if !ok {
		return MutationResult{}, domain.Invalid("code", "postal code must have 5 digits")
	}
	if _, err := uc.repo.GetWorker(ctx, in.WorkerID); err != nil {
		return MutationResult{}, err
	}

	return uc.run(ctx, audit.OpRemoveZipcode, in.WorkerID, func(tx domain.Repository) (*mutation, error) {
		change := audit.Change{Note: code}
		if in.AreaID != nil {
			area, err := ownedArea(ctx, tx, in.WorkerID, *in.AreaID)
			if err != nil {
				return nil, err
			}
			change.AreaName = area.AreaName
		}

		n, err := tx.DeleteZipcode(ctx, in.WorkerID, code, in.AreaID)
		if err != nil {
			return nil, fmt.Errorf("delete zipcode: %w", err)
		}
		change.Removed = int(n)

		msg := fmt.Sprintf("removed %s from %d area(s)", code, n)
		if n == 0 {
			msg = fmt.Sprintf("%s was not in coverage", code)
		}
		return &mutation{
			result: MutationResult{AffectedCount: int(n), Message: msg},
			areaID: in.AreaID,
			change: change,
		}, nil
	})
}
