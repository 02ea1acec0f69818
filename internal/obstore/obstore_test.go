package obstore

import (
	"context"
	"testing"

	"github.com/subsets-io/valet-connector/internal/storage"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	s, err := New(store)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Close()

	obs := []Observation{
		{Date: "2024-01-01", SeriesCode: "FXUSDCAD", Value: "1.34", SeriesLabel: "USD/CAD"},
		{Date: "2024-01-02", SeriesCode: "FXUSDCAD", Value: "1.35"},
	}
	if err := s.Save(ctx, "FXUSDCAD", obs); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Stored bytes are compressed, not raw JSON.
	raw, err := store.Read(ctx, Key("FXUSDCAD"))
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if len(raw) == 0 || raw[0] == '[' {
		t.Error("stored payload does not look compressed")
	}

	got, err := s.Load(ctx, "FXUSDCAD")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0] != obs[0] || got[1] != obs[1] {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestLoadMissingSeries(t *testing.T) {
	s, err := New(storage.NewMemStore())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Close()

	got, err := s.Load(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for missing series", got)
	}
}

func TestKey(t *testing.T) {
	if got := Key("FXUSDCAD"); got != "raw/series/FXUSDCAD.json.zst" {
		t.Errorf("Key = %q", got)
	}
}
