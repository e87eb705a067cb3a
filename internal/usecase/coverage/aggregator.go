package coverage

import (
	"context"
	"math"
	"sort"
	"time"

	domain "github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
)

const unknownState = "unknown"

type WorkerStats struct {
	WorkerID    uint   `json:"worker_id"`
	Name        string `json:"name"`
	ActiveAreas int    `json:"active_areas"`
	StoredCount int    `json:"stored_count"`
	// nil when geometry could not be re-resolved
	RecomputedCount *int   `json:"recomputed_count"`
	RecomputeStatus string `json:"recompute_status"`
}

type StateStats struct {
	State   string `json:"state"`
	Codes   int    `json:"codes"`
	Workers int    `json:"workers"`
}

type Stats struct {
	TotalCodes      int           `json:"total_codes"`
	NationalTotal   int           `json:"national_total"`
	CoveragePercent float64       `json:"coverage_percent"`
	Workers         []WorkerStats `json:"workers"`
	States          []StateStats  `json:"states"`
	GeneratedAt     time.Time     `json:"generated_at"`
}

// Aggregator computes read-only coverage statistics. Stored counts come from
// the code projection; recomputed counts re-resolve polygon areas, so the
// two are reported side by side and may differ.
type Aggregator struct {
	repo          domain.Repository
	codes         PostalCodes
	resolver      *Resolver
	nationalTotal int
}

func NewAggregator(repo domain.Repository, codes PostalCodes, resolver *Resolver, nationalTotal int) *Aggregator {
	return &Aggregator{
		repo:          repo,
		codes:         codes,
		resolver:      resolver,
		nationalTotal: nationalTotal,
	}
}

func (a *Aggregator) Stats(ctx context.Context) (*Stats, error) {
	rows, err := a.repo.ActiveCoverage(ctx)
	if err != nil {
		return nil, err
	}
	workers, err := a.repo.ListWorkers(ctx)
	if err != nil {
		return nil, err
	}

	byWorker := make(map[uint][]string)
	byArea := make(map[uint][]string)
	stateCodes := make(map[string]map[string]struct{})
	stateWorkers := make(map[string]map[uint]struct{})
	all := make(map[string]struct{})

	for _, r := range rows {
		byWorker[r.WorkerID] = append(byWorker[r.WorkerID], r.Code)
		byArea[r.AreaID] = append(byArea[r.AreaID], r.Code)
		all[r.Code] = struct{}{}

		st := a.stateOf(r.Code)
		if stateCodes[st] == nil {
			stateCodes[st] = make(map[string]struct{})
			stateWorkers[st] = make(map[uint]struct{})
		}
		stateCodes[st][r.Code] = struct{}{}
		stateWorkers[st][r.WorkerID] = struct{}{}
	}

	out := &Stats{
		TotalCodes:    len(all),
		NationalTotal: a.nationalTotal,
		GeneratedAt:   time.Now().UTC(),
	}
	if a.nationalTotal > 0 {
		out.CoveragePercent = math.Round(float64(len(all))/float64(a.nationalTotal)*10000) / 100
	}

	for _, w := range workers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ws, err := a.workerStats(ctx, w, byWorker[w.ID], byArea)
		if err != nil {
			return nil, err
		}
		out.Workers = append(out.Workers, ws)
	}

	for st, codes := range stateCodes {
		out.States = append(out.States, StateStats{
			State:   st,
			Codes:   len(codes),
			Workers: len(stateWorkers[st]),
		})
	}
	sort.Slice(out.States, func(i, j int) bool { return out.States[i].State < out.States[j].State })

	return out, nil
}

func (a *Aggregator) workerStats(
	ctx context.Context,
	w models.Worker,
	stored []string,
	byArea map[uint][]string,
) (WorkerStats, error) {

	ws := WorkerStats{
		WorkerID:    w.ID,
		Name:        w.Name,
		StoredCount: len(domain.SortedUnique(stored)),
	}

	areas, err := a.repo.ListAreas(ctx, w.ID, true)
	if err != nil {
		return ws, err
	}
	ws.ActiveAreas = len(areas)

	recomputed := make([]string, 0, ws.StoredCount)
	for _, area := range areas {
		if domain.AreaKind(area.Kind) != domain.AreaPolygon || len(area.Polygon) == 0 {
			recomputed = append(recomputed, byArea[area.ID]...)
			continue
		}
		res, err := a.resolver.ResolveRing(ctx, area.Polygon)
		if err != nil {
			return ws, err
		}
		if !res.IsComputed() {
			ws.RecomputeStatus = domain.StatusNotComputed
			return ws, nil
		}
		recomputed = append(recomputed, res.Codes()...)
	}

	n := len(domain.SortedUnique(recomputed))
	ws.RecomputedCount = &n
	ws.RecomputeStatus = domain.StatusComputed
	return ws, nil
}

func (a *Aggregator) stateOf(code string) string {
	p, ok := a.codes.Get(code)
	if !ok || p.StateAbbr == "" {
		return unknownState
	}
	return p.StateAbbr
}
