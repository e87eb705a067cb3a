package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/homeservices-coverage/internal/audit"
	"github.com/BruksfildServices01/homeservices-coverage/internal/config"
	"github.com/BruksfildServices01/homeservices-coverage/internal/infra/cache"
	"github.com/BruksfildServices01/homeservices-coverage/internal/infra/repository"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
	"github.com/BruksfildServices01/homeservices-coverage/internal/postalcode"
)

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	repo   *repository.MemoryRepository
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Defaults()
	cfg.JWTSecret = "test-secret"
	cfg.StorageDriver = "memory"

	repo := repository.NewMemoryRepository()
	reg := postalcode.NewRegistry(repository.NewPostalCodeMemoryStore(), postalcode.NewLinearIndex(), cfg.CentroidPadDeg)
	_, err := reg.Upsert(context.Background(), []models.PostalCode{
		{Code: "75201", StateAbbr: "TX", Lat: 32.79, Lng: -96.80, Source: models.SourceCentroidOnly},
		{Code: "75202", StateAbbr: "TX", Lat: 32.78, Lng: -96.80, Source: models.SourceCentroidOnly},
		{Code: "76102", StateAbbr: "TX", Lat: 32.75, Lng: -97.33, Source: models.SourceCentroidOnly},
		{Code: "90210", StateAbbr: "CA", Lat: 34.09, Lng: -118.41, Source: models.SourceCentroidOnly},
	})
	require.NoError(t, err)

	d := audit.NewDispatcher(repo)
	t.Cleanup(d.Close)

	r := gin.New()
	RegisterRoutes(r, Deps{
		Repo:     repo,
		Registry: reg,
		Cache:    cache.NewMemoryCoverageCache(time.Minute),
		Audit:    d,
	}, cfg)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "1",
		"role":  "admin",
		"email": "ops@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	return &testServer{t: t, engine: r, repo: repo, token: tok}
}

func (s *testServer) do(method, path string, body any) (int, map[string]any) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

func (s *testServer) createWorker(email string) uint {
	s.t.Helper()
	status, body := s.do(http.MethodPost, "/api/admin/workers", gin.H{"name": "Worker", "email": email})
	require.Equal(s.t, http.StatusCreated, status)
	return uint(body["id"].(float64))
}

var dfw = []gin.H{
	{"lat": 32.5, "lng": -97.5},
	{"lat": 32.5, "lng": -96.5},
	{"lat": 33.0, "lng": -96.5},
	{"lat": 33.0, "lng": -97.5},
}

func TestCoverageFlow(t *testing.T) {
	s := newTestServer(t)
	wid := s.createWorker("ana@example.com")
	base := "/api/admin/workers/" + itoa(wid)

	status, body := s.do(http.MethodPost, base+"/polygon-areas", gin.H{"area_name": "DFW", "polygon": dfw, "mode": "append"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 3.0, body["affectedCount"])
	areaID := uint(body["areaId"].(float64))

	status, body = s.do(http.MethodGet, base+"/coverage", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"75201", "75202", "76102"}, body["codes"])

	status, body = s.do(http.MethodGet, "/api/coverage/zipcodes/75201/workers", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1.0, body["total"])

	status, _ = s.do(http.MethodPost, base+"/zipcode-areas", gin.H{"area_name": "LA", "codes": []string{"90210"}, "mode": "replace_all"})
	require.Equal(t, http.StatusOK, status)

	_, body = s.do(http.MethodGet, base+"/coverage", nil)
	assert.Equal(t, []any{"90210"}, body["codes"], "replace_all is visible right away")

	status, body = s.do(http.MethodPatch, "/api/admin/areas/"+itoa(areaID)+"/active", gin.H{"is_active": true})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3.0, body["affectedCount"])

	status, body = s.do(http.MethodPost, base+"/merge-areas", gin.H{"area_name": "Everything"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 4.0, body["affectedCount"])

	status, body = s.do(http.MethodDelete, base+"/zipcodes/90210", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 1.0, body["affectedCount"], "retired areas keep their rows")

	_, body = s.do(http.MethodGet, base+"/coverage", nil)
	assert.Equal(t, []any{"75201", "75202", "76102"}, body["codes"])

	status, body = s.do(http.MethodGet, "/api/admin/audit-logs?worker_id="+itoa(wid)+"&operation=remove_zipcode", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1.0, body["total"])
	logs := body["data"].([]any)
	require.Len(t, logs, 1)
	assert.Equal(t, "ops@example.com", logs[0].(map[string]any)["actor"])

	// worker registration is audited off the request path
	assert.Eventually(t, func() bool {
		_, body := s.do(http.MethodGet, "/api/admin/audit-logs?worker_id="+itoa(wid)+"&limit=2", nil)
		return body["total"] == 6.0 && len(body["data"].([]any)) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	wid := s.createWorker("bo@example.com")
	base := "/api/admin/workers/" + itoa(wid)

	status, body := s.do(http.MethodPost, base+"/polygon-areas", gin.H{
		"area_name": "Line", "polygon": []gin.H{{"lat": 1, "lng": 1}, {"lat": 2, "lng": 2}},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", body["error_code"])

	status, body = s.do(http.MethodPost, base+"/polygon-areas", gin.H{
		"area_name": "Ocean", "polygon": []gin.H{{"lat": 0, "lng": -30}, {"lat": 0, "lng": -29}, {"lat": 1, "lng": -29}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "no_overlap", body["reason"])

	status, _ = s.do(http.MethodPost, base+"/zipcode-areas", gin.H{"area_name": "x", "codes": []string{"75201"}, "mode": "sometimes"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.do(http.MethodPatch, "/api/admin/areas/999", gin.H{"area_name": "x"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error_code"])

	status, _ = s.do(http.MethodGet, "/api/admin/workers/abc/coverage", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(http.MethodPost, "/api/admin/workers", gin.H{"name": "Dup", "email": "bo@example.com"})
	assert.Equal(t, http.StatusConflict, status)
}

func TestPreviewsAndStats(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(http.MethodPost, "/api/admin/coverage/resolve", gin.H{"polygon": dfw})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "computed", body["status"])
	assert.Equal(t, 3.0, body["count"])

	status, body = s.do(http.MethodPost, "/api/admin/coverage/hull", gin.H{"codes": []string{"75201", "76102"}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["derivable"])

	status, body = s.do(http.MethodPost, "/api/admin/coverage/hull", gin.H{"codes": []string{"75201", "75202", "76102"}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["derivable"])

	wid := s.createWorker("cy@example.com")
	_, _ = s.do(http.MethodPost, "/api/admin/workers/"+itoa(wid)+"/zipcode-areas", gin.H{"area_name": "A", "codes": []string{"75201", "90210"}})

	status, body = s.do(http.MethodGet, "/api/admin/coverage/stats", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2.0, body["total_codes"])

	status, body = s.do(http.MethodGet, "/api/admin/postal-codes/76102", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "TX", body["state_abbr"])

	status, _ = s.do(http.MethodGet, "/api/admin/postal-codes/00000", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHullGeoJSON(t *testing.T) {
	s := newTestServer(t)
	wid := s.createWorker("dee@example.com")

	status, body := s.do(http.MethodPost, "/api/admin/workers/"+itoa(wid)+"/zipcode-areas",
		gin.H{"area_name": "Dallas", "codes": []string{"75201", "75202", "76102"}, "mode": "append"})
	require.Equal(t, http.StatusOK, status)
	areaID := uint(body["areaId"].(float64))

	status, body = s.do(http.MethodGet, "/api/admin/areas/"+itoa(areaID)+"/hull?format=geojson", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Feature", body["type"])
	geom := body["geometry"].(map[string]any)
	assert.Equal(t, "Polygon", geom["type"])
	props := body["properties"].(map[string]any)
	assert.Equal(t, float64(areaID), props["area_id"])
	assert.Equal(t, "computed", props["source"])
	assert.Equal(t, 3.0, props["point_count"])

	status, body = s.do(http.MethodGet, "/api/admin/areas/"+itoa(areaID)+"/hull", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["derivable"])

	status, body = s.do(http.MethodPost, "/api/admin/coverage/hull?format=geojson", gin.H{"codes": []string{"75201", "76102"}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "hull_not_derivable", body["error_code"])

	status, body = s.do(http.MethodPost, "/api/admin/coverage/hull?format=kml", gin.H{"codes": []string{"75201"}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_format", body["error_code"])
}

func TestImportChunk(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(http.MethodPost, "/api/admin/postal-codes/import", gin.H{
		"records": []gin.H{
			{"code": "10001", "city": "New York", "state": "New York", "stateAbbr": "NY", "lat": 40.75, "lng": -73.99},
			{"code": "1", "lat": 1, "lng": 1},
		},
		"chunk_index": 0,
		"chunk_count": 1,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1.0, body["processed"])
	assert.Equal(t, 2.0, body["total"])
	assert.Len(t, body["errors"], 1)
	assert.NotEmpty(t, body["job_id"])

	status, _ = s.do(http.MethodGet, "/api/admin/postal-codes/10001", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAdminRequiresRole(t *testing.T) {
	s := newTestServer(t)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "9", "role": "booking", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	s.token = tok

	status, _ := s.do(http.MethodGet, "/api/admin/workers", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(http.MethodGet, "/api/coverage/zipcodes/75201/workers", nil)
	assert.Equal(t, http.StatusOK, status)
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
