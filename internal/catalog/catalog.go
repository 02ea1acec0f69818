// Package catalog loads the list of trackable series from the cached
// vendor snapshot. The vendor CSV format has a free-form preamble, then a
// marker line ("SERIES" or "GROUPS"), then a regular CSV header and rows.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/subsets-io/valet-connector/internal/storage"
)

// SnapshotKey is where the raw series list snapshot lives in storage.
const SnapshotKey = "raw/series_list.csv"

// GroupsKey is where the raw groups snapshot lives in storage.
const GroupsKey = "raw/groups.json"

// ErrNoSection is returned when the expected marker line is missing.
var ErrNoSection = errors.New("section marker not found in response")

// Series is one trackable entity from the catalog. Immutable once loaded
// for a given run.
type Series struct {
	Name        string
	Label       string
	Description string
	Link        string
}

// Group is one upstream series group.
type Group struct {
	Name        string
	Label       string
	Description string
}

// Load reads and parses the cached series list snapshot.
func Load(ctx context.Context, store storage.Store) ([]Series, error) {
	data, err := store.Read(ctx, SnapshotKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("series list snapshot missing at %s (run with refresh enabled)", SnapshotKey)
		}
		return nil, fmt.Errorf("read series list snapshot: %w", err)
	}
	return ParseSeriesList(string(data))
}

// Save persists a fresh series list snapshot.
func Save(ctx context.Context, store storage.Store, csvText string) error {
	if err := store.Write(ctx, SnapshotKey, []byte(csvText)); err != nil {
		return fmt.Errorf("write series list snapshot: %w", err)
	}
	return nil
}

// ParseSeriesList parses the vendor series list CSV.
func ParseSeriesList(csvText string) ([]Series, error) {
	records, err := parseSection(csvText, "SERIES")
	if err != nil {
		return nil, err
	}

	series := make([]Series, 0, len(records))
	for _, rec := range records {
		s := Series{
			Name:        rec["name"],
			Label:       rec["label"],
			Description: rec["description"],
			Link:        rec["link"],
		}
		if s.Name == "" {
			continue
		}
		series = append(series, s)
	}
	return series, nil
}

// ParseGroups parses the vendor groups list CSV.
func ParseGroups(csvText string) ([]Group, error) {
	records, err := parseSection(csvText, "GROUPS")
	if err != nil {
		return nil, err
	}

	groups := make([]Group, 0, len(records))
	for _, rec := range records {
		g := Group{
			Name:        rec["name"],
			Label:       rec["label"],
			Description: rec["description"],
		}
		if g.Name == "" {
			continue
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// parseSection skips the preamble up to the marker line, then reads the
// remainder as CSV with a header row. The vendor quotes marker lines
// (`"SERIES"`), so the marker matches with or without surrounding quotes.
// Rows shorter than the header are padded; longer rows are truncated.
func parseSection(text, marker string) ([]map[string]string, error) {
	lines := strings.Split(text, "\n")
	dataStart := -1
	for i, line := range lines {
		if strings.Trim(strings.TrimSpace(line), `"`) == marker {
			dataStart = i + 1
			break
		}
	}
	if dataStart == -1 {
		return nil, fmt.Errorf("%w: %s", ErrNoSection, marker)
	}

	r := csv.NewReader(strings.NewReader(strings.Join(lines[dataStart:], "\n")))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s header: %w", marker, err)
	}

	var records []map[string]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s row: %w", marker, err)
		}
		rec := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = strings.TrimSpace(row[i])
			} else {
				rec[col] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
