package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Hour+30*time.Minute, cfg.Connector.TimeBudget.Std())
	assert.Equal(t, "https://www.bankofcanada.ca/valet", cfg.Valet.BaseURL)
	assert.Equal(t, "local", cfg.Storage.Backend)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
connector:
  time_budget: 1h30m
  dataset_filter: boc_cpi_monthly
valet:
  timeout: 10s
storage:
  backend: local
  local_dir: /tmp/data
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 90*time.Minute, cfg.Connector.TimeBudget.Std())
	assert.Equal(t, 10*time.Second, cfg.Valet.Timeout.Std())
	assert.Equal(t, "/tmp/data", cfg.Storage.LocalDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched fields keep their defaults.
	assert.Equal(t, "mappings/datasets.json", cfg.Connector.MappingPath)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connector:\n  time_budget: 1h\n"), 0o644))

	t.Setenv("CONNECTOR_TIME_BUDGET", "2h")
	t.Setenv("STORAGE_BACKEND", "gcs")
	t.Setenv("STORAGE_GCS_BUCKET", "my-bucket")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.Connector.TimeBudget.Std())
	assert.Equal(t, "gcs", cfg.Storage.Backend)
	assert.Equal(t, "my-bucket", cfg.Storage.GCSBucket)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Connector.TimeBudget = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Valet.BaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Connector.GroupFanout = 0
	assert.Error(t, cfg.Validate())
}

func TestDatasetFilterSet(t *testing.T) {
	c := ConnectorConfig{DatasetFilter: "a, b ,,c"}
	set := c.DatasetFilterSet()
	assert.Len(t, set, 3)
	assert.Contains(t, set, "b")

	assert.Empty(t, ConnectorConfig{}.DatasetFilterSet())
}
