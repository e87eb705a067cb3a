package coverage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/homeservices-coverage/internal/audit"
	domain "github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/geo"
	"github.com/BruksfildServices01/homeservices-coverage/internal/infra/repository"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
	"github.com/BruksfildServices01/homeservices-coverage/internal/postalcode"
)

func mustRing(t *testing.T) geo.Ring {
	t.Helper()
	r, err := geo.NormalizeRing(dfw)
	require.NoError(t, err)
	return r
}

func TestWorkersForCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.addWorker(t, "Bo Electric", "bo@example.com")
	f.seedArea(t, f.worker.ID, "A", domain.FromManual, "75201")
	f.seedArea(t, other.ID, "B", domain.FromManual, "75201", "75202")

	workers, err := f.queries.WorkersForCode(ctx, "75201")
	require.NoError(t, err)
	assert.Len(t, workers, 2)

	workers, err = f.queries.WorkersForCode(ctx, "75202-0001")
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, other.ID, workers[0].ID)

	_, err = f.queries.WorkersForCode(ctx, "752")
	var ve *domain.ValidationError
	assert.True(t, errors.As(err, &ve))
}

// pausedReads holds the first ActiveCodes result until release is closed.
type pausedReads struct {
	*repository.MemoryRepository
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (r *pausedReads) ActiveCodes(ctx context.Context, workerID uint) ([]string, error) {
	codes, err := r.MemoryRepository.ActiveCodes(ctx, workerID)
	r.once.Do(func() {
		close(r.read)
		<-r.release
	})
	return codes, err
}

func TestWorkerCoverage_MutationDuringFillIsNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.rec.CreateFromZipList(ctx, CreateFromZipListInput{
		WorkerID: f.worker.ID, AreaName: "Dallas", Codes: []string{"75201"}, Mode: domain.ModeAppend,
	})
	require.NoError(t, err)

	slow := &pausedReads{MemoryRepository: f.repo, read: make(chan struct{}), release: make(chan struct{})}
	q := NewQueries(slow, f.cache, NewHullSynthesizer(f.registry, nil, geo.DefaultHullOptions()))

	done := make(chan *WorkerCoverage, 1)
	go func() {
		cov, err := q.WorkerCoverage(ctx, f.worker.ID)
		assert.NoError(t, err)
		done <- cov
	}()
	<-slow.read

	_, err = f.rec.CreateFromZipList(ctx, CreateFromZipListInput{
		WorkerID: f.worker.ID, AreaName: "Fort Worth", Codes: []string{"76102"}, Mode: domain.ModeReplaceAll,
	})
	require.NoError(t, err)
	close(slow.release)

	old := <-done
	require.NotNil(t, old)
	assert.Equal(t, []string{"75201"}, old.Codes)

	cov, err := q.WorkerCoverage(ctx, f.worker.ID)
	require.NoError(t, err)
	assert.False(t, cov.Cached, "the pre-mutation read must not have filled the cache")
	assert.Equal(t, []string{"76102"}, cov.Codes)

	cov, err = q.WorkerCoverage(ctx, f.worker.ID)
	require.NoError(t, err)
	assert.True(t, cov.Cached)
	assert.Equal(t, []string{"76102"}, cov.Codes)
}

func TestListAreas_ExposesProvenance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedArea(t, f.worker.ID, "A", domain.FromManual|domain.FromPolygon, "75201")
	retired := f.seedArea(t, f.worker.ID, "B", domain.FromManual, "75202")
	_, err := f.repo.RetireAreas(ctx, f.worker.ID, []uint{retired.ID}, time.Now())
	require.NoError(t, err)

	active, err := f.queries.ListAreas(ctx, f.worker.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Len(t, active[0].Zipcodes, 1)
	p := active[0].Zipcodes[0].Provenance
	assert.True(t, p.Manual() && p.Polygon())

	all, err := f.queries.ListAreas(ctx, f.worker.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.queries.ListAreas(ctx, 777, true)
	assert.True(t, domain.IsNotFound(err))
}

func TestAreaHull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("manual area is hulled lazily", func(t *testing.T) {
		a := f.seedArea(t, f.worker.ID, "Manual", domain.FromManual, "75201", "75203", "76102")
		res, err := f.queries.AreaHull(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, res.Derivable)
		assert.Equal(t, "computed", res.Source)
		assert.Equal(t, 3, res.PointCount)
	})

	t.Run("two codes are not derivable", func(t *testing.T) {
		a := f.seedArea(t, f.worker.ID, "Pair", domain.FromManual, "75201", "75202")
		res, err := f.queries.AreaHull(ctx, a.ID)
		require.NoError(t, err)
		assert.False(t, res.Derivable)
	})

	t.Run("polygon area returns its ring", func(t *testing.T) {
		res, err := f.rec.CreateFromPolygon(ctx, CreateFromPolygonInput{
			WorkerID: f.worker.ID, AreaName: "Drawn", Polygon: dfw, Mode: domain.ModeReplaceAll,
		})
		require.NoError(t, err)

		hull, err := f.queries.AreaHull(ctx, *res.AreaID)
		require.NoError(t, err)
		assert.Equal(t, "stored", hull.Source)
		assert.Equal(t, mustRing(t), hull.Polygon)
	})
}

func TestAuditLogNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seedArea(t, f.worker.ID, "A", domain.FromManual, "75201")

	_, err := f.rec.RenameArea(ctx, a.ID, "B")
	require.NoError(t, err)
	_, err = f.rec.ToggleAreaActive(ctx, a.ID, false)
	require.NoError(t, err)

	wid := f.worker.ID
	logs, total, err := f.queries.AuditLog(ctx, domain.AuditFilter{WorkerID: &wid, Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, logs, 1)
	assert.Equal(t, audit.OpToggleArea, logs[0].Operation)
}

func TestWorkersRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := audit.NewDispatcher(f.repo)
	uc := NewWorkers(f.repo, d)

	w, err := uc.Register(ctx, RegisterWorkerInput{Name: " Di Roofer ", Email: "DI@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Di Roofer", w.Name)
	assert.Equal(t, "di@example.com", w.Email)
	assert.True(t, w.Active)

	_, err = uc.Register(ctx, RegisterWorkerInput{Name: "Dup", Email: "di@example.com"})
	assert.True(t, domain.IsConflict(err))

	_, err = uc.Register(ctx, RegisterWorkerInput{Name: "No mail"})
	var ve *domain.ValidationError
	assert.True(t, errors.As(err, &ve))

	d.Close()
	logs := f.audit(t)
	require.Len(t, logs, 1)
	assert.Equal(t, audit.OpCreateWorker, logs[0].Operation)

	all, err := uc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestImportPostalCodes(t *testing.T) {
	f := newFixture(t, []models.PostalCode{}...)
	ctx := context.Background()
	d := audit.NewDispatcher(f.repo)
	uc := NewImportPostalCodes(postalcode.NewImporter(f.registry, 2), d)

	boundaries := []byte(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"ZCTA5CE20":"75201"},
		"geometry":{"type":"Polygon","coordinates":[[[-96.81,32.78],[-96.79,32.78],[-96.79,32.80],[-96.81,32.80],[-96.81,32.78]]]}}]}`)

	res, err := uc.Execute(ctx, ImportChunkInput{
		Records: []postalcode.Record{
			{Code: "75201", City: "Dallas", State: "Texas", StateAbbr: "TX", Lat: 32.79, Lng: -96.80},
			{Code: "76102", City: "Fort Worth", State: "Texas", StateAbbr: "TX", Lat: 32.75, Lng: -97.33},
			{Code: "bad", Lat: 1, Lng: 1},
		},
		Boundaries: boundaries,
		ChunkIndex: 0,
		ChunkCount: 2,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.JobID)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 3, res.Total)
	assert.Len(t, res.Errors, 1)

	p, ok := f.registry.Get("75201")
	require.True(t, ok)
	assert.Equal(t, models.SourceOfficialBoundary, p.Source)

	again, err := uc.Execute(ctx, ImportChunkInput{
		JobID:      res.JobID,
		Records:    []postalcode.Record{{Code: "90210", StateAbbr: "CA", Lat: 34.09, Lng: -118.41}},
		ChunkIndex: 1,
		ChunkCount: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, res.JobID, again.JobID)
	assert.Equal(t, 3, f.registry.Len())

	_, err = uc.Execute(ctx, ImportChunkInput{Records: []postalcode.Record{{Code: "90210"}}, ChunkIndex: 2, ChunkCount: 2})
	var ve *domain.ValidationError
	assert.True(t, errors.As(err, &ve))

	d.Close()
	logs := f.audit(t)
	require.Len(t, logs, 2)
	assert.Equal(t, audit.OpImportPostalCodes, logs[0].Operation)
}
