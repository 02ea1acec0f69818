package dataset

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/subsets-io/valet-connector/internal/obstore"
)

// Stats summarizes one pivot for logging and metrics.
type Stats struct {
	SeriesFound   int
	MissingSeries []string
	DroppedValues int
	Rows          int
}

// Pivot builds the wide table for one dataset from the stored skinny
// observations of its constituent series. Series with no stored data are
// recorded as missing and their columns stay null. The row set is the
// union of normalized dates across all constituents, sorted ascending.
// When two observations land on the same normalized date and column the
// later read wins. Returns a nil table when no constituent has any data.
func Pivot(ctx context.Context, cfg Config, obs *obstore.Store) (*Table, Stats, error) {
	var stats Stats
	cells := make(map[string]map[string]float64)

	for _, sm := range cfg.Series {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		observations, err := obs.Load(ctx, sm.Code)
		if err != nil {
			return nil, stats, fmt.Errorf("load series %s: %w", sm.Code, err)
		}
		if len(observations) == 0 {
			stats.MissingSeries = append(stats.MissingSeries, sm.Code)
			continue
		}
		stats.SeriesFound++

		for _, o := range observations {
			v, err := strconv.ParseFloat(o.Value, 64)
			if err != nil {
				stats.DroppedValues++
				continue
			}
			date := NormalizeDate(o.Date, cfg.Frequency)
			row, ok := cells[date]
			if !ok {
				row = make(map[string]float64)
				cells[date] = row
			}
			row[sm.Column] = v
		}
	}

	if len(cells) == 0 {
		return nil, stats, nil
	}

	dates := make([]string, 0, len(cells))
	for d := range cells {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	t := &Table{Columns: cfg.Columns(), Rows: make([]Row, len(dates))}
	for i, d := range dates {
		t.Rows[i] = Row{Date: d, Values: cells[d]}
	}
	stats.Rows = len(t.Rows)
	return t, stats, nil
}
