// Package ledger computes which series changed since the last transform
// pass, so the wide-table transform can skip untouched work.
package ledger

import (
	"github.com/subsets-io/valet-connector/internal/state"
)

// Changed returns the set of series that are new or have a moved
// watermark since the last transform pass: the union of series fetched
// but never transformed, and previously transformed series whose current
// watermark differs from the snapshot taken at transform time.
func Changed(ingest *state.IngestState, transform *state.TransformState) map[string]struct{} {
	changed := make(map[string]struct{})

	transformed := transform.TransformedSet()
	for code := range ingest.FetchedSet() {
		if _, ok := transformed[code]; !ok {
			changed[code] = struct{}{}
		}
	}

	for code, cur := range ingest.SeriesStates {
		prev, ok := transform.LastSeriesStates[code]
		if !ok || cur.LastDate != prev.LastDate {
			changed[code] = struct{}{}
		}
	}

	return changed
}

// Commit refreshes the transform ledger after a successful transform
// pass: every currently fetched series counts as transformed, and the
// watermark snapshot is reset to the current ingest state.
func Commit(ingest *state.IngestState, transform *state.TransformState) {
	transform.TransformedSeries = append([]string(nil), ingest.FetchedSeries...)

	transform.LastSeriesStates = make(map[string]state.SeriesState, len(ingest.SeriesStates))
	for code, st := range ingest.SeriesStates {
		transform.LastSeriesStates[code] = st
	}
}
