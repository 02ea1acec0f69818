// Package state persists per-series sync progress and the transform
// ledger as JSON documents keyed by logical name.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/subsets-io/valet-connector/internal/storage"
)

const (
	// IngestKey is the logical document tracking ingestion progress.
	IngestKey = "state/series_data.json"

	// TransformKey is the logical document tracking the last transform pass.
	TransformKey = "state/datasets.json"
)

// SeriesState is the per-series watermark: the highest timestamp
// successfully merged for that series.
type SeriesState struct {
	LastDate string `json:"last_date"`
}

// IngestState tracks ingestion progress across runs.
type IngestState struct {
	// SeriesStates maps series code to its watermark.
	SeriesStates map[string]SeriesState `json:"series_states"`

	// FetchedSeries lists every series that has been attempted at least
	// once, whether or not it produced data. Kept sorted.
	FetchedSeries []string `json:"fetched_series"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Watermark returns the stored watermark for a series, if any.
func (s *IngestState) Watermark(seriesCode string) (string, bool) {
	st, ok := s.SeriesStates[seriesCode]
	if !ok || st.LastDate == "" {
		return "", false
	}
	return st.LastDate, true
}

// SetWatermark records a new watermark for a series.
func (s *IngestState) SetWatermark(seriesCode, lastDate string) {
	if s.SeriesStates == nil {
		s.SeriesStates = make(map[string]SeriesState)
	}
	s.SeriesStates[seriesCode] = SeriesState{LastDate: lastDate}
}

// MarkFetched records that a series has been attempted.
func (s *IngestState) MarkFetched(seriesCode string) {
	i := sort.SearchStrings(s.FetchedSeries, seriesCode)
	if i < len(s.FetchedSeries) && s.FetchedSeries[i] == seriesCode {
		return
	}
	s.FetchedSeries = append(s.FetchedSeries, "")
	copy(s.FetchedSeries[i+1:], s.FetchedSeries[i:])
	s.FetchedSeries[i] = seriesCode
}

// FetchedSet returns the fetched series as a set.
func (s *IngestState) FetchedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.FetchedSeries))
	for _, code := range s.FetchedSeries {
		set[code] = struct{}{}
	}
	return set
}

// TransformState mirrors the ingest state as of the last transform pass,
// so "changed since last transform" can be computed as a diff.
type TransformState struct {
	// TransformedSeries lists every series covered by the last transform.
	TransformedSeries []string `json:"transformed_series"`

	// LastSeriesStates snapshots each series' watermark at transform time.
	LastSeriesStates map[string]SeriesState `json:"last_series_states"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// TransformedSet returns the transformed series as a set.
func (s *TransformState) TransformedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.TransformedSeries))
	for _, code := range s.TransformedSeries {
		set[code] = struct{}{}
	}
	return set
}

// Manager handles state persistence. The unit of persistence is the whole
// document, so writes are serialized behind a mutex; concurrent series
// updates go through the same manager and cannot corrupt each other's
// watermark record.
type Manager struct {
	objects storage.Store
	mu      sync.Mutex
}

// NewManager creates a state manager on top of the given object store.
func NewManager(objects storage.Store) *Manager {
	return &Manager{objects: objects}
}

// LoadIngest reads the ingestion state. A missing document reads as an
// empty state, not an error.
func (m *Manager) LoadIngest(ctx context.Context) (*IngestState, error) {
	st := &IngestState{SeriesStates: make(map[string]SeriesState)}
	if err := m.load(ctx, IngestKey, st); err != nil {
		return nil, err
	}
	if st.SeriesStates == nil {
		st.SeriesStates = make(map[string]SeriesState)
	}
	return st, nil
}

// SaveIngest persists the ingestion state.
func (m *Manager) SaveIngest(ctx context.Context, st *IngestState) error {
	st.UpdatedAt = time.Now().UTC()
	sort.Strings(st.FetchedSeries)
	return m.save(ctx, IngestKey, st)
}

// LoadTransform reads the transform state. A missing document reads as an
// empty state.
func (m *Manager) LoadTransform(ctx context.Context) (*TransformState, error) {
	st := &TransformState{LastSeriesStates: make(map[string]SeriesState)}
	if err := m.load(ctx, TransformKey, st); err != nil {
		return nil, err
	}
	if st.LastSeriesStates == nil {
		st.LastSeriesStates = make(map[string]SeriesState)
	}
	return st, nil
}

// SaveTransform persists the transform state.
func (m *Manager) SaveTransform(ctx context.Context, st *TransformState) error {
	st.UpdatedAt = time.Now().UTC()
	sort.Strings(st.TransformedSeries)
	return m.save(ctx, TransformKey, st)
}

func (m *Manager) load(ctx context.Context, key string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.objects.Read(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("read state %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse state %s: %w", key, err)
	}
	return nil
}

func (m *Manager) save(ctx context.Context, key string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state %s: %w", key, err)
	}
	if err := m.objects.Write(ctx, key, data); err != nil {
		return fmt.Errorf("write state %s: %w", key, err)
	}
	return nil
}
