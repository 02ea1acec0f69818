package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
)

// GroupSeriesRow is one group-to-series membership edge, flattened from
// the nested group detail documents.
type GroupSeriesRow struct {
	GroupName        string
	GroupLabel       string
	GroupDescription string
	SeriesName       string
	SeriesLabel      string
	SeriesLink       string
}

// FlattenGroupDetails turns the raw group detail documents into one row
// per (group, series) pair. Series within a group are ordered by code so
// the output is deterministic. Groups without members contribute nothing.
func FlattenGroupDetails(details []json.RawMessage) ([]GroupSeriesRow, error) {
	var rows []GroupSeriesRow
	for _, raw := range details {
		var doc struct {
			GroupDetails struct {
				Name        string `json:"name"`
				Label       string `json:"label"`
				Description string `json:"description"`
				GroupSeries map[string]struct {
					Label string `json:"label"`
					Link  string `json:"link"`
				} `json:"groupSeries"`
			} `json:"groupDetails"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode group details: %w", err)
		}
		g := doc.GroupDetails
		if g.Name == "" {
			continue
		}

		codes := make([]string, 0, len(g.GroupSeries))
		for code := range g.GroupSeries {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		for _, code := range codes {
			member := g.GroupSeries[code]
			rows = append(rows, GroupSeriesRow{
				GroupName:        g.Name,
				GroupLabel:       g.Label,
				GroupDescription: g.Description,
				SeriesName:       code,
				SeriesLabel:      member.Label,
				SeriesLink:       member.Link,
			})
		}
	}
	return rows, nil
}
