package ingest

import (
	"github.com/subsets-io/valet-connector/internal/catalog"
	"github.com/subsets-io/valet-connector/internal/obstore"
)

// MergeResult is the outcome of merging a fetched batch into a series'
// stored observations.
type MergeResult struct {
	// Merged is the full post-merge observation set. Order is not
	// significant for storage; consumers re-sort by timestamp at read time.
	Merged []obstore.Observation

	// NewWatermark is the maximum well-formed timestamp in the fetched
	// batch. Empty when the batch had no well-formed timestamps, in which
	// case the stored watermark must be left unchanged.
	NewWatermark string

	// Changed reports whether any unique new observations were merged.
	// When false the caller must skip persisting the observation store.
	Changed bool

	// Added is the number of unique new observations merged.
	Added int
}

// Merge combines a freshly fetched batch with a series' stored
// observations. Malformed timestamps from either side are dropped, never
// stored. Duplicates are suppressed by timestamp. New observations are
// enriched with the series' label and description at merge time; the
// denormalized text is not refreshed if the catalog later edits it (a
// known staleness trade-off).
//
// The watermark is computed from the fetched batch, not the merged set:
// an empty or fully-duplicate batch leaves the watermark unchanged.
func Merge(series catalog.Series, existing, fetched []obstore.Observation) MergeResult {
	kept := make([]obstore.Observation, 0, len(existing)+len(fetched))
	seen := make(map[string]struct{}, len(existing))
	for _, o := range existing {
		if !WellFormed(o.Date) {
			continue
		}
		kept = append(kept, o)
		seen[o.Date] = struct{}{}
	}

	var newWatermark string
	added := 0
	for _, o := range fetched {
		if !WellFormed(o.Date) {
			continue
		}
		if o.Date > newWatermark {
			newWatermark = o.Date
		}
		if _, dup := seen[o.Date]; dup {
			continue
		}
		seen[o.Date] = struct{}{}
		o.SeriesLabel = series.Label
		o.SeriesDescription = series.Description
		kept = append(kept, o)
		added++
	}

	return MergeResult{
		Merged:       kept,
		NewWatermark: newWatermark,
		Changed:      added > 0,
		Added:        added,
	}
}
