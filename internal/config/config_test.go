package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 3, cfg.GeocodeBatchSize)
	assert.Equal(t, 41683, cfg.NationalTotal)
	assert.Equal(t, "linear", cfg.SpatialIndex)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFrom_FileThenEnv(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "coverage.yaml")

	content := `
server_port: "9090"
storage_driver: memory
spatial_index: grid
grid_cell_deg: 0.25
cache_ttl: 90s
shutdown_timeout: 5s
geocode_batch_size: 5
refine_centroids: true
national_total: 42000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("GEOCODE_RPS", "2.5")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.ServerPort, "env wins over file")
	assert.Equal(t, "memory", cfg.StorageDriver)
	assert.Equal(t, "grid", cfg.SpatialIndex)
	assert.Equal(t, 0.25, cfg.GridCellDeg)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 5, cfg.GeocodeBatchSize)
	assert.True(t, cfg.RefineCentroids)
	assert.Equal(t, 42000, cfg.NationalTotal)
	assert.Equal(t, 2.5, cfg.GeocodeRPS)
}

func TestLoadFrom_Invalid(t *testing.T) {
	t.Setenv("SPATIAL_INDEX", "rtree")
	_, err := LoadFrom("")
	assert.Error(t, err)

	_, err = LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "nope")
	t.Setenv("X_BOOL", "yes")
	t.Setenv("X_DUR", "3m")

	assert.Equal(t, 4, getEnvInt("X_INT", 4))
	assert.True(t, getEnvBool("X_BOOL", false))
	assert.Equal(t, 3*time.Minute, getEnvDuration("X_DUR", time.Second))
}
