package ledger

import (
	"testing"

	"github.com/subsets-io/valet-connector/internal/state"
)

func TestChangedNewlyFetchedSeries(t *testing.T) {
	ingest := &state.IngestState{}
	ingest.MarkFetched("A")
	ingest.MarkFetched("B")
	transform := &state.TransformState{TransformedSeries: []string{"A"}}

	changed := Changed(ingest, transform)

	if _, ok := changed["B"]; !ok {
		t.Error("never-transformed series B should be changed")
	}
	if _, ok := changed["A"]; ok {
		t.Error("series A has no watermark movement and was transformed")
	}
}

func TestChangedWatermarkMoved(t *testing.T) {
	ingest := &state.IngestState{}
	ingest.MarkFetched("A")
	ingest.MarkFetched("B")
	ingest.SetWatermark("A", "2024-01-05")
	ingest.SetWatermark("B", "2024-01-05")

	transform := &state.TransformState{
		TransformedSeries: []string{"A", "B"},
		LastSeriesStates: map[string]state.SeriesState{
			"A": {LastDate: "2024-01-01"},
			"B": {LastDate: "2024-01-05"},
		},
	}

	changed := Changed(ingest, transform)

	if _, ok := changed["A"]; !ok {
		t.Error("series A watermark moved, should be changed")
	}
	if _, ok := changed["B"]; ok {
		t.Error("series B watermark did not move")
	}
}

func TestCommitClearsChanges(t *testing.T) {
	ingest := &state.IngestState{}
	ingest.MarkFetched("A")
	ingest.SetWatermark("A", "2024-01-05")
	transform := &state.TransformState{}

	if len(Changed(ingest, transform)) == 0 {
		t.Fatal("expected pending changes before commit")
	}

	Commit(ingest, transform)

	if got := Changed(ingest, transform); len(got) != 0 {
		t.Errorf("expected no changes after commit, got %v", got)
	}
}

func TestCommitSnapshotsAreCopies(t *testing.T) {
	ingest := &state.IngestState{}
	ingest.MarkFetched("A")
	ingest.SetWatermark("A", "2024-01-05")
	transform := &state.TransformState{}

	Commit(ingest, transform)
	ingest.SetWatermark("A", "2024-02-01")

	if transform.LastSeriesStates["A"].LastDate != "2024-01-05" {
		t.Error("commit snapshot must not alias live ingest state")
	}
}
