// Package ingest implements the incremental sync engine: the fetch
// planner, the merge/dedup engine, and the per-series sync loop.
package ingest

import (
	"strings"
	"time"

	"github.com/subsets-io/valet-connector/internal/obstore"
)

// EpochStart is the sentinel fetch boundary for a series with no
// watermark and no stored data: old enough to capture full history.
const EpochStart = "1900-01-01"

// WellFormed reports whether a timestamp looks like real data. Vendor
// payloads sometimes leak marker rows ("REVISIONS", stray headers) into
// the observation stream; requiring a date separator filters those out.
func WellFormed(date string) bool {
	return date != "" && strings.Contains(date, "-")
}

// DeriveWatermark reconstructs a watermark from stored observations: the
// maximum well-formed timestamp. Used when state was lost or never
// written but data exists (self-healing state reconstruction).
func DeriveWatermark(stored []obstore.Observation) (string, bool) {
	var max string
	for _, o := range stored {
		if !WellFormed(o.Date) {
			continue
		}
		if o.Date > max {
			max = o.Date
		}
	}
	return max, max != ""
}

// PlanFetch computes the minimal fetch window start for a series.
//
// With a daily-resolution watermark the boundary is the day after it.
// Period-coded watermarks (quarter codes) reuse the same period: the
// upstream API has no exclusive-start semantics for period codes, so
// duplicate suppression is left to the merge stage. With no watermark
// and no stored data the boundary is EpochStart.
func PlanFetch(watermark string, hasWatermark bool, stored []obstore.Observation) string {
	if !hasWatermark {
		derived, ok := DeriveWatermark(stored)
		if !ok {
			return EpochStart
		}
		watermark = derived
	}

	if strings.ContainsRune(watermark, 'Q') {
		return watermark
	}

	t, err := time.Parse("2006-01-02", watermark)
	if err != nil {
		// Not a recognized daily date; refetch from the watermark and
		// let merge absorb the overlap.
		return watermark
	}
	return t.AddDate(0, 0, 1).Format("2006-01-02")
}
