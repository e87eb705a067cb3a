package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
)

// MemoryRepository keeps coverage state in process. Transactions work on a
// copy of the state that replaces the original on success, so readers never
// see a half-applied mutation.
type MemoryRepository struct {
	mu     *sync.Mutex
	st     *memState
	inTx   bool
	faults *Faults
}

type memState struct {
	workers map[uint]models.Worker
	areas   map[uint]models.ServiceArea
	zips    map[uint]models.ServiceZipcode
	audit   []models.AuditLog
	seq     uint
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		mu: &sync.Mutex{},
		st: &memState{
			workers: make(map[uint]models.Worker),
			areas:   make(map[uint]models.ServiceArea),
			zips:    make(map[uint]models.ServiceZipcode),
		},
		faults: &Faults{},
	}
}

var _ coverage.Repository = (*MemoryRepository)(nil)

// Faults injects storage failures.
type Faults struct {
	mu          sync.Mutex
	methods     map[string]error
	rollbackErr error
}

func (r *MemoryRepository) Faults() *Faults { return r.faults }

func (f *Faults) FailOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.methods == nil {
		f.methods = make(map[string]error)
	}
	f.methods[method] = err
}

// FailRollback makes the next failed transaction keep its partial writes and
// report err as the rollback failure.
func (f *Faults) FailRollback(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rollbackErr = err
}

func (f *Faults) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = nil
	f.rollbackErr = nil
}

func (f *Faults) check(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.methods[method]
}

func (f *Faults) takeRollback() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.rollbackErr
	f.rollbackErr = nil
	return err
}

func (s *memState) clone() *memState {
	c := &memState{
		workers: make(map[uint]models.Worker, len(s.workers)),
		areas:   make(map[uint]models.ServiceArea, len(s.areas)),
		zips:    make(map[uint]models.ServiceZipcode, len(s.zips)),
		audit:   append([]models.AuditLog(nil), s.audit...),
		seq:     s.seq,
	}
	for k, v := range s.workers {
		c.workers[k] = v
	}
	for k, v := range s.areas {
		c.areas[k] = v
	}
	for k, v := range s.zips {
		c.zips[k] = v
	}
	return c
}

func (s *memState) nextID() uint {
	s.seq++
	return s.seq
}

func (r *MemoryRepository) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

// --------------------------------------------------
// Transactions
// --------------------------------------------------

func (r *MemoryRepository) Atomic(ctx context.Context, op string, fn func(tx coverage.Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	work := r.st.clone()
	tx := &MemoryRepository{mu: r.mu, st: work, inTx: true, faults: r.faults}
	if err := fn(tx); err != nil {
		if rbErr := r.faults.takeRollback(); rbErr != nil {
			r.st = work
			return &coverage.PartialFailureError{Operation: op, Err: err, RollbackErr: rbErr}
		}
		return err
	}
	r.st = work
	return nil
}

// --------------------------------------------------
// Workers
// --------------------------------------------------

func (r *MemoryRepository) GetWorker(ctx context.Context, id uint) (*models.Worker, error) {
	defer r.lock()()
	w, ok := r.st.workers[id]
	if !ok {
		return nil, coverage.NotFound("worker", id)
	}
	return &w, nil
}

func (r *MemoryRepository) ListWorkers(ctx context.Context) ([]models.Worker, error) {
	defer r.lock()()
	out := make([]models.Worker, 0, len(r.st.workers))
	for _, w := range r.st.workers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) CreateWorker(ctx context.Context, w *models.Worker) error {
	defer r.lock()()
	if err := r.faults.check("CreateWorker"); err != nil {
		return err
	}
	for _, existing := range r.st.workers {
		if strings.EqualFold(existing.Email, w.Email) {
			return &coverage.ConflictError{Err: errDuplicate("worker email " + w.Email)}
		}
	}
	now := time.Now()
	w.ID = r.st.nextID()
	w.CreatedAt, w.UpdatedAt = now, now
	r.st.workers[w.ID] = *w
	return nil
}

// --------------------------------------------------
// Areas
// --------------------------------------------------

func (r *MemoryRepository) GetArea(ctx context.Context, id uint) (*models.ServiceArea, error) {
	defer r.lock()()
	a, ok := r.st.areas[id]
	if !ok {
		return nil, coverage.NotFound("service area", id)
	}
	return &a, nil
}

func (r *MemoryRepository) ListAreas(ctx context.Context, workerID uint, activeOnly bool) ([]models.ServiceArea, error) {
	defer r.lock()()
	var out []models.ServiceArea
	for _, a := range r.st.areas {
		if a.WorkerID != workerID || (activeOnly && !a.IsActive) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) CreateArea(ctx context.Context, a *models.ServiceArea) error {
	defer r.lock()()
	if err := r.faults.check("CreateArea"); err != nil {
		return err
	}
	if !coverage.AreaKind(a.Kind).Valid() {
		return coverage.Invalid("kind", fmt.Sprintf("unknown area kind %q", a.Kind))
	}
	if _, ok := r.st.workers[a.WorkerID]; !ok {
		return coverage.NotFound("worker", a.WorkerID)
	}
	now := time.Now()
	a.ID = r.st.nextID()
	a.CreatedAt, a.UpdatedAt = now, now
	r.st.areas[a.ID] = *a
	return nil
}

func (r *MemoryRepository) UpdateArea(ctx context.Context, a *models.ServiceArea) error {
	defer r.lock()()
	if err := r.faults.check("UpdateArea"); err != nil {
		return err
	}
	cur, ok := r.st.areas[a.ID]
	if !ok {
		return coverage.NotFound("service area", a.ID)
	}
	cur.AreaName = a.AreaName
	cur.Kind = a.Kind
	cur.Polygon = a.Polygon
	cur.IsActive = a.IsActive
	cur.RetiredAt = a.RetiredAt
	cur.UpdatedAt = time.Now()
	a.UpdatedAt = cur.UpdatedAt
	r.st.areas[a.ID] = cur
	return nil
}

func (r *MemoryRepository) RetireAreas(ctx context.Context, workerID uint, ids []uint, at time.Time) (int64, error) {
	defer r.lock()()
	if err := r.faults.check("RetireAreas"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		a, ok := r.st.areas[id]
		if !ok || a.WorkerID != workerID {
			continue
		}
		a.IsActive = false
		retired := at
		a.RetiredAt = &retired
		a.UpdatedAt = at
		r.st.areas[id] = a
		n++
	}
	return n, nil
}

func (r *MemoryRepository) DeleteArea(ctx context.Context, id uint) error {
	defer r.lock()()
	if err := r.faults.check("DeleteArea"); err != nil {
		return err
	}
	if _, ok := r.st.areas[id]; !ok {
		return coverage.NotFound("service area", id)
	}
	for zid, z := range r.st.zips {
		if z.ServiceAreaID == id {
			delete(r.st.zips, zid)
		}
	}
	delete(r.st.areas, id)
	return nil
}

// --------------------------------------------------
// Zipcodes
// --------------------------------------------------

func (r *MemoryRepository) ListAreaZipcodes(ctx context.Context, areaID uint) ([]models.ServiceZipcode, error) {
	defer r.lock()()
	var out []models.ServiceZipcode
	for _, z := range r.st.zips {
		if z.ServiceAreaID == areaID {
			out = append(out, z)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *MemoryRepository) ActiveCodes(ctx context.Context, workerID uint) ([]string, error) {
	defer r.lock()()
	var codes []string
	for _, z := range r.st.zips {
		if z.WorkerID != workerID {
			continue
		}
		if a, ok := r.st.areas[z.ServiceAreaID]; ok && a.IsActive {
			codes = append(codes, z.Code)
		}
	}
	return coverage.SortedUnique(codes), nil
}

func (r *MemoryRepository) InsertZipcodes(ctx context.Context, rows []models.ServiceZipcode) (int64, error) {
	defer r.lock()()
	if err := r.faults.check("InsertZipcodes"); err != nil {
		return 0, err
	}

	type key struct {
		worker, area uint
		code         string
	}
	existing := make(map[key]struct{}, len(r.st.zips))
	for _, z := range r.st.zips {
		existing[key{z.WorkerID, z.ServiceAreaID, z.Code}] = struct{}{}
	}

	var n int64
	now := time.Now()
	for _, row := range rows {
		if _, ok := r.st.areas[row.ServiceAreaID]; !ok {
			return n, coverage.NotFound("service area", row.ServiceAreaID)
		}
		k := key{row.WorkerID, row.ServiceAreaID, row.Code}
		if _, ok := existing[k]; ok {
			continue
		}
		existing[k] = struct{}{}
		row.ID = r.st.nextID()
		row.CreatedAt = now
		r.st.zips[row.ID] = row
		n++
	}
	return n, nil
}

func (r *MemoryRepository) DeleteAreaZipcodes(ctx context.Context, areaID uint) (int64, error) {
	defer r.lock()()
	if err := r.faults.check("DeleteAreaZipcodes"); err != nil {
		return 0, err
	}
	var n int64
	for id, z := range r.st.zips {
		if z.ServiceAreaID == areaID {
			delete(r.st.zips, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) DeleteZipcode(ctx context.Context, workerID uint, code string, areaID *uint) (int64, error) {
	defer r.lock()()
	if err := r.faults.check("DeleteZipcode"); err != nil {
		return 0, err
	}
	var n int64
	for id, z := range r.st.zips {
		if z.WorkerID != workerID || z.Code != code {
			continue
		}
		if areaID != nil && z.ServiceAreaID != *areaID {
			continue
		}
		if areaID == nil && !r.st.areas[z.ServiceAreaID].IsActive {
			continue
		}
		delete(r.st.zips, id)
		n++
	}
	return n, nil
}

// --------------------------------------------------
// Queries
// --------------------------------------------------

func (r *MemoryRepository) WorkersForCode(ctx context.Context, code string) ([]models.Worker, error) {
	defer r.lock()()
	seen := make(map[uint]struct{})
	var out []models.Worker
	for _, z := range r.st.zips {
		if z.Code != code {
			continue
		}
		a, ok := r.st.areas[z.ServiceAreaID]
		if !ok || !a.IsActive {
			continue
		}
		w, ok := r.st.workers[z.WorkerID]
		if !ok || !w.Active {
			continue
		}
		if _, dup := seen[w.ID]; dup {
			continue
		}
		seen[w.ID] = struct{}{}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) ActiveCoverage(ctx context.Context) ([]coverage.CoverageRow, error) {
	defer r.lock()()
	var out []coverage.CoverageRow
	for _, z := range r.st.zips {
		a, ok := r.st.areas[z.ServiceAreaID]
		if !ok || !a.IsActive {
			continue
		}
		if w, ok := r.st.workers[z.WorkerID]; !ok || !w.Active {
			continue
		}
		out = append(out, coverage.CoverageRow{WorkerID: z.WorkerID, AreaID: z.ServiceAreaID, Code: z.Code})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WorkerID != out[j].WorkerID {
			return out[i].WorkerID < out[j].WorkerID
		}
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].AreaID < out[j].AreaID
	})
	return out, nil
}

// --------------------------------------------------
// Audit
// --------------------------------------------------

func (r *MemoryRepository) AppendAudit(ctx context.Context, entry *models.AuditLog) error {
	defer r.lock()()
	if err := r.faults.check("AppendAudit"); err != nil {
		return err
	}
	entry.ID = r.st.nextID()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.st.audit = append(r.st.audit, *entry)
	return nil
}

func (r *MemoryRepository) ListAudit(ctx context.Context, f coverage.AuditFilter) ([]models.AuditLog, int64, error) {
	defer r.lock()()
	var matched []models.AuditLog
	for _, e := range r.st.audit {
		if f.WorkerID != nil && (e.WorkerID == nil || *e.WorkerID != *f.WorkerID) {
			continue
		}
		if f.Operation != "" && e.Operation != f.Operation {
			continue
		}
		if f.From != nil && e.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !e.CreatedAt.Before(*f.To) {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	page, limit := pageBounds(f.Page, f.Limit)
	start := (page - 1) * limit
	if start >= len(matched) {
		return []models.AuditLog{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

type errDuplicate string

func (e errDuplicate) Error() string { return "duplicate " + string(e) }
