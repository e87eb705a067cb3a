package coverage

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/geo"
	"github.com/BruksfildServices01/homeservices-coverage/internal/geocoding"
	"github.com/BruksfildServices01/homeservices-coverage/internal/infra/cache"
	"github.com/BruksfildServices01/homeservices-coverage/internal/infra/repository"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
	"github.com/BruksfildServices01/homeservices-coverage/internal/postalcode"
)

// dfw is a box around Dallas and Fort Worth.
var dfw = []geo.Point{
	{Lat: 32.5, Lng: -97.5},
	{Lat: 32.5, Lng: -96.5},
	{Lat: 33.0, Lng: -96.5},
	{Lat: 33.0, Lng: -97.5},
}

var (
	zip75201 = models.PostalCode{Code: "75201", City: "Dallas", State: "Texas", StateAbbr: "TX", Lat: 32.79, Lng: -96.80, Source: models.SourceCentroidOnly}
	zip75202 = models.PostalCode{Code: "75202", City: "Dallas", State: "Texas", StateAbbr: "TX", Lat: 32.78, Lng: -96.80, Source: models.SourceCentroidOnly}
	zip75203 = models.PostalCode{Code: "75203", City: "Dallas", State: "Texas", StateAbbr: "TX", Lat: 32.745, Lng: -96.81, Source: models.SourceCentroidOnly}
	zip76102 = models.PostalCode{Code: "76102", City: "Fort Worth", State: "Texas", StateAbbr: "TX", Lat: 32.75, Lng: -97.33, Source: models.SourceCentroidOnly}
	zip90210 = models.PostalCode{Code: "90210", City: "Beverly Hills", State: "California", StateAbbr: "CA", Lat: 34.09, Lng: -118.41, Source: models.SourceCentroidOnly}
)

func newRegistry(t *testing.T, rows ...models.PostalCode) *postalcode.Registry {
	t.Helper()
	reg := postalcode.NewRegistry(repository.NewPostalCodeMemoryStore(), postalcode.NewLinearIndex(), 0.01)
	if len(rows) > 0 {
		_, err := reg.Upsert(context.Background(), rows)
		require.NoError(t, err)
	}
	return reg
}

type fixture struct {
	repo     *repository.MemoryRepository
	registry *postalcode.Registry
	cache    *cache.MemoryCoverageCache
	resolver *Resolver
	rec      *Reconciler
	queries  *Queries
	worker   models.Worker
}

func newFixture(t *testing.T, rows ...models.PostalCode) *fixture {
	t.Helper()
	if rows == nil {
		rows = []models.PostalCode{zip75201, zip75202, zip75203, zip76102, zip90210}
	}

	f := &fixture{
		repo:     repository.NewMemoryRepository(),
		registry: newRegistry(t, rows...),
		cache:    cache.NewMemoryCoverageCache(0),
	}
	f.resolver = NewResolver(f.registry, ResolverOptions{})
	f.rec = NewReconciler(f.repo, f.resolver, f.cache)
	f.queries = NewQueries(f.repo, f.cache, NewHullSynthesizer(f.registry, nil, geo.DefaultHullOptions()))
	f.worker = f.addWorker(t, "Ana Plumber", "ana@example.com")
	return f
}

func (f *fixture) addWorker(t *testing.T, name, email string) models.Worker {
	t.Helper()
	w := models.Worker{Name: name, Email: email, Active: true}
	require.NoError(t, f.repo.CreateWorker(context.Background(), &w))
	return w
}

// seedArea writes an area directly, bypassing reconciliation and audit.
func (f *fixture) seedArea(t *testing.T, workerID uint, name string, prov domain.Provenance, codes ...string) models.ServiceArea {
	t.Helper()
	ctx := context.Background()
	a := models.ServiceArea{WorkerID: workerID, AreaName: name, Kind: string(domain.AreaManual), IsActive: true}
	require.NoError(t, f.repo.CreateArea(ctx, &a))

	rows := make([]models.ServiceZipcode, 0, len(codes))
	for _, c := range codes {
		rows = append(rows, models.ServiceZipcode{WorkerID: workerID, ServiceAreaID: a.ID, Code: c, Provenance: uint8(prov)})
	}
	_, err := f.repo.InsertZipcodes(ctx, rows)
	require.NoError(t, err)
	return a
}

func (f *fixture) activeCodes(t *testing.T, workerID uint) []string {
	t.Helper()
	codes, err := f.repo.ActiveCodes(context.Background(), workerID)
	require.NoError(t, err)
	return codes
}

// storedRows counts every ServiceZipcode row of the worker, active or not.
func (f *fixture) storedRows(t *testing.T, workerID uint) int {
	t.Helper()
	ctx := context.Background()
	areas, err := f.repo.ListAreas(ctx, workerID, false)
	require.NoError(t, err)
	n := 0
	for _, a := range areas {
		rows, err := f.repo.ListAreaZipcodes(ctx, a.ID)
		require.NoError(t, err)
		n += len(rows)
	}
	return n
}

func (f *fixture) audit(t *testing.T) []models.AuditLog {
	t.Helper()
	logs, _, err := f.repo.ListAudit(context.Background(), domain.AuditFilter{Limit: 200})
	require.NoError(t, err)
	return logs
}

func areaCodes(t *testing.T, repo domain.Repository, areaID uint) []string {
	t.Helper()
	rows, err := repo.ListAreaZipcodes(context.Background(), areaID)
	require.NoError(t, err)
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Code)
	}
	sort.Strings(out)
	return out
}

// stubEnricher resolves the codes it knows and drops the rest.
type stubEnricher struct {
	mu    sync.Mutex
	known map[string]models.PostalCode
	calls [][]string
}

func (s *stubEnricher) Enrich(ctx context.Context, codes []string) (geocoding.EnrichResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]string(nil), codes...))

	var res geocoding.EnrichResult
	for _, c := range codes {
		if p, ok := s.known[c]; ok {
			p.Source = models.SourceGeocoded
			res.Resolved = append(res.Resolved, p)
		} else {
			res.Dropped = append(res.Dropped, c)
		}
	}
	return res, nil
}
