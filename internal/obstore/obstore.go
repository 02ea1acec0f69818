// Package obstore is the durable store of accumulated observations,
// one zstd-compressed JSON snapshot per series.
package obstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/subsets-io/valet-connector/internal/storage"
)

// Observation is a single (date, value) point for one series. Value is
// kept as the raw upstream string; numeric parsing happens at transform
// time. Label and description are denormalized from the catalog when the
// observation is first merged and are not refreshed afterwards.
type Observation struct {
	Date              string `json:"date"`
	SeriesCode        string `json:"series_code"`
	Value             string `json:"value"`
	SeriesLabel       string `json:"series_label,omitempty"`
	SeriesDescription string `json:"series_description,omitempty"`
}

// Store reads and writes per-series observation snapshots.
type Store struct {
	objects storage.Store
	enc     *zstd.Encoder
	dec     *zstd.Decoder
}

// New creates an observation store on top of the given object store.
func New(objects storage.Store) (*Store, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Store{objects: objects, enc: enc, dec: dec}, nil
}

// Key returns the storage key for a series' snapshot.
func Key(seriesCode string) string {
	return "raw/series/" + seriesCode + ".json.zst"
}

// Load returns all stored observations for a series. A series that has
// never been saved reads as empty, not as an error.
func (s *Store) Load(ctx context.Context, seriesCode string) ([]Observation, error) {
	compressed, err := s.objects.Read(ctx, Key(seriesCode))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read observations for %s: %w", seriesCode, err)
	}

	data, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress observations for %s: %w", seriesCode, err)
	}

	var obs []Observation
	if err := json.Unmarshal(data, &obs); err != nil {
		return nil, fmt.Errorf("parse observations for %s: %w", seriesCode, err)
	}
	return obs, nil
}

// Save replaces the stored snapshot for a series. The underlying object
// write is atomic, so a crash mid-save leaves the previous snapshot intact.
func (s *Store) Save(ctx context.Context, seriesCode string, obs []Observation) error {
	data, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshal observations for %s: %w", seriesCode, err)
	}

	compressed := s.enc.EncodeAll(data, nil)
	if err := s.objects.Write(ctx, Key(seriesCode), compressed); err != nil {
		return fmt.Errorf("write observations for %s: %w", seriesCode, err)
	}
	return nil
}

// Close releases the compressor resources.
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return nil
}
