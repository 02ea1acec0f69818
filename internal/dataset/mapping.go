// Package dataset implements the wide-table transform: the declarative
// dataset mapping, frequency-aware date normalization, and the
// skinny-to-wide pivot.
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Frequency is a dataset's declared observation frequency.
type Frequency string

const (
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Annual    Frequency = "annual"
	Biennial  Frequency = "biennial"
	Triennial Frequency = "triennial"
)

// ParseFrequency validates a frequency string.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case Daily, Weekly, Monthly, Quarterly, Annual, Biennial, Triennial:
		return Frequency(s), nil
	default:
		return "", fmt.Errorf("unknown frequency %q", s)
	}
}

// SeriesMapping binds one constituent series to its output column.
type SeriesMapping struct {
	Code        string
	Column      string
	Description string
}

// Config describes one output dataset. Read-only at runtime.
type Config struct {
	Title       string
	Description string
	Frequency   Frequency

	// Series is ordered as authored in the mapping file; column order in
	// the output follows it.
	Series []SeriesMapping
}

// Dataset pairs a dataset ID with its config, preserving file order.
type Dataset struct {
	ID string
	Config
}

// Mapping is the full declarative mapping configuration.
type Mapping struct {
	Datasets []Dataset
}

// LoadMapping reads and parses the mapping configuration file. Malformed
// entries fail here, not deep inside the pivot loop.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file %s: %w", path, err)
	}
	m, err := ParseMapping(data)
	if err != nil {
		return nil, fmt.Errorf("parse mapping file %s: %w", path, err)
	}
	return m, nil
}

// ParseMapping parses the JSON mapping document. JSON object order is
// preserved for both datasets and their series.
func ParseMapping(data []byte) (*Mapping, error) {
	var doc struct {
		Datasets json.RawMessage `json:"datasets"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Datasets == nil {
		return nil, errors.New(`missing "datasets" object`)
	}

	m := &Mapping{}
	err := eachOrderedKey(doc.Datasets, func(id string, raw json.RawMessage) error {
		cfg, err := parseDatasetConfig(raw)
		if err != nil {
			return fmt.Errorf("dataset %s: %w", id, err)
		}
		m.Datasets = append(m.Datasets, Dataset{ID: id, Config: cfg})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(m.Datasets) == 0 {
		return nil, errors.New("mapping defines no datasets")
	}
	return m, nil
}

func parseDatasetConfig(raw json.RawMessage) (Config, error) {
	var doc struct {
		Title       string          `json:"title"`
		Description string          `json:"description"`
		Frequency   string          `json:"frequency"`
		Series      json.RawMessage `json:"series"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Config{}, err
	}

	freq, err := ParseFrequency(doc.Frequency)
	if err != nil {
		return Config{}, err
	}
	if doc.Series == nil {
		return Config{}, errors.New(`missing "series" object`)
	}

	cfg := Config{
		Title:       doc.Title,
		Description: doc.Description,
		Frequency:   freq,
	}

	columns := make(map[string]string)
	err = eachOrderedKey(doc.Series, func(code string, raw json.RawMessage) error {
		var sc struct {
			Column      string `json:"column"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal(raw, &sc); err != nil {
			return fmt.Errorf("series %s: %w", code, err)
		}
		if sc.Column == "" {
			return fmt.Errorf("series %s: missing column name", code)
		}
		if prev, dup := columns[sc.Column]; dup {
			return fmt.Errorf("series %s: column %q already used by %s", code, sc.Column, prev)
		}
		columns[sc.Column] = code
		cfg.Series = append(cfg.Series, SeriesMapping{
			Code:        code,
			Column:      sc.Column,
			Description: sc.Description,
		})
		return nil
	})
	if err != nil {
		return Config{}, err
	}
	if len(cfg.Series) == 0 {
		return Config{}, errors.New("dataset maps no series")
	}
	return cfg, nil
}

// eachOrderedKey walks a JSON object's keys in document order. The
// standard map decode would randomize it and with it the output column
// order.
func eachOrderedKey(raw json.RawMessage, fn func(key string, value json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("key %s: %w", key, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Columns returns the ordered output column names.
func (c Config) Columns() []string {
	cols := make([]string, len(c.Series))
	for i, s := range c.Series {
		cols[i] = s.Column
	}
	return cols
}

// ColumnDescriptions returns descriptions keyed by column name, with the
// date column included.
func (c Config) ColumnDescriptions() map[string]string {
	desc := map[string]string{"date": "Observation date"}
	for _, s := range c.Series {
		desc[s.Column] = s.Description
	}
	return desc
}
