// Package config holds the connector's runtime configuration. All state
// paths and backend modes live here and are passed into constructors
// explicitly; nothing reads the environment at call sites.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/subsets-io/valet-connector/internal/logging"
	"github.com/subsets-io/valet-connector/internal/metrics"
	"github.com/subsets-io/valet-connector/internal/storage"
)

// Config is the top-level connector configuration.
type Config struct {
	Connector ConnectorConfig `yaml:"connector"`
	Valet     ValetConfig     `yaml:"valet"`
	Storage   storage.Config  `yaml:"storage"`
	Logging   logging.Config  `yaml:"logging"`
	Metrics   metrics.Config  `yaml:"metrics"`
}

// ConnectorConfig controls the sync and transform passes.
type ConnectorConfig struct {
	// TimeBudget caps the wall-clock time of the series sync loop.
	// When exceeded the run stops cleanly and reports pending work.
	TimeBudget Duration `yaml:"time_budget" envconfig:"CONNECTOR_TIME_BUDGET"`

	// MappingPath is the dataset mapping configuration file.
	MappingPath string `yaml:"mapping_path" envconfig:"CONNECTOR_MAPPING_PATH"`

	// DatasetFilter restricts the transform to a comma-separated list of
	// dataset IDs. A non-empty filter forces those datasets through even
	// when no series changed, and the run does not advance the transform
	// ledger.
	DatasetFilter string `yaml:"dataset_filter" envconfig:"CONNECTOR_DATASET_FILTER"`

	// RefreshCatalog re-fetches the series list and group snapshots from
	// the upstream API before syncing, instead of using the cached copies.
	RefreshCatalog bool `yaml:"refresh_catalog" envconfig:"CONNECTOR_REFRESH_CATALOG"`

	// GroupFanout bounds concurrent group-detail fetches.
	GroupFanout int `yaml:"group_fanout" envconfig:"CONNECTOR_GROUP_FANOUT"`
}

// DatasetFilterSet parses DatasetFilter into a set of dataset IDs.
// Empty means no filter.
func (c ConnectorConfig) DatasetFilterSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, id := range strings.Split(c.DatasetFilter, ",") {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// ValetConfig configures the upstream API client.
type ValetConfig struct {
	BaseURL string   `yaml:"base_url" envconfig:"VALET_BASE_URL"`
	Timeout Duration `yaml:"timeout" envconfig:"VALET_TIMEOUT"`

	// RequestsPerSecond and Burst throttle outbound requests. This is a
	// politeness control toward the upstream API, not a performance knob.
	RequestsPerSecond float64 `yaml:"requests_per_second" envconfig:"VALET_REQUESTS_PER_SECOND"`
	Burst             int     `yaml:"burst" envconfig:"VALET_BURST"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Connector: ConnectorConfig{
			TimeBudget:  Duration(5*time.Hour + 30*time.Minute),
			MappingPath: "mappings/datasets.json",
			GroupFanout: 10,
		},
		Valet: ValetConfig{
			BaseURL:           "https://www.bankofcanada.ca/valet",
			Timeout:           Duration(30 * time.Second),
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Storage: storage.Config{
			Backend:  "local",
			LocalDir: "./data",
		},
		Logging: logging.Config{
			Format: "text",
			Level:  "info",
		},
		Metrics: metrics.Config{
			Address: ":9090",
		},
	}
}

// Load builds the configuration: defaults, then the optional YAML file,
// then environment variable overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants the rest of the connector relies on.
func (c Config) Validate() error {
	if c.Connector.TimeBudget <= 0 {
		return fmt.Errorf("connector.time_budget must be positive")
	}
	if c.Connector.GroupFanout < 1 {
		return fmt.Errorf("connector.group_fanout must be at least 1")
	}
	if c.Valet.BaseURL == "" {
		return fmt.Errorf("valet.base_url is required")
	}
	if c.Connector.MappingPath == "" {
		return fmt.Errorf("connector.mapping_path is required")
	}
	return nil
}
