package state

import (
	"context"
	"reflect"
	"testing"

	"github.com/subsets-io/valet-connector/internal/storage"
)

func TestLoadIngestMissingIsEmpty(t *testing.T) {
	m := NewManager(storage.NewMemStore())

	st, err := m.LoadIngest(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(st.SeriesStates) != 0 || len(st.FetchedSeries) != 0 {
		t.Errorf("expected empty state, got %+v", st)
	}
}

func TestIngestRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storage.NewMemStore())

	st, _ := m.LoadIngest(ctx)
	st.SetWatermark("FXUSDCAD", "2024-01-02")
	st.MarkFetched("FXUSDCAD")
	st.MarkFetched("V39079")
	if err := m.SaveIngest(ctx, st); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := m.LoadIngest(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if wm, ok := got.Watermark("FXUSDCAD"); !ok || wm != "2024-01-02" {
		t.Errorf("watermark = %q/%v", wm, ok)
	}
	if !reflect.DeepEqual(got.FetchedSeries, []string{"FXUSDCAD", "V39079"}) {
		t.Errorf("fetched series = %v, want sorted pair", got.FetchedSeries)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("save must stamp UpdatedAt")
	}
}

func TestMarkFetchedSortedAndDeduped(t *testing.T) {
	st := &IngestState{}
	st.MarkFetched("B")
	st.MarkFetched("A")
	st.MarkFetched("B")
	st.MarkFetched("C")

	if !reflect.DeepEqual(st.FetchedSeries, []string{"A", "B", "C"}) {
		t.Errorf("fetched series = %v, want sorted unique", st.FetchedSeries)
	}
}

func TestTransformRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storage.NewMemStore())

	st, _ := m.LoadTransform(ctx)
	st.TransformedSeries = []string{"A"}
	st.LastSeriesStates = map[string]SeriesState{"A": {LastDate: "2024-01-02"}}
	if err := m.SaveTransform(ctx, st); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := m.LoadTransform(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.LastSeriesStates["A"].LastDate != "2024-01-02" {
		t.Errorf("snapshot = %+v", got.LastSeriesStates)
	}
	if _, ok := got.TransformedSet()["A"]; !ok {
		t.Error("transformed set missing A")
	}
}
