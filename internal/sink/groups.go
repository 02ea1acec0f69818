package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/subsets-io/valet-connector/internal/catalog"
)

type groupSeriesRow struct {
	GroupID          string `parquet:"group_id"`
	GroupLabel       string `parquet:"group_label,optional"`
	GroupDescription string `parquet:"group_description,optional"`
	SeriesID         string `parquet:"series_id"`
	SeriesLabel      string `parquet:"series_label,optional"`
	SeriesLink       string `parquet:"series_link,optional"`
}

// UploadGroups publishes the flattened group membership as its own
// dataset. Always a full overwrite; like the series list, the group
// structure has no incremental dimension.
func (s *ParquetSink) UploadGroups(ctx context.Context, rows []catalog.GroupSeriesRow) error {
	const id = "groups"

	out := make([]groupSeriesRow, len(rows))
	for i, r := range rows {
		out[i] = groupSeriesRow{
			GroupID:          r.GroupName,
			GroupLabel:       r.GroupLabel,
			GroupDescription: r.GroupDescription,
			SeriesID:         r.SeriesName,
			SeriesLabel:      r.SeriesLabel,
			SeriesLink:       r.SeriesLink,
		}
	}

	buf := new(bytes.Buffer)
	w := parquet.NewGenericWriter[groupSeriesRow](buf, parquet.Compression(&parquet.Zstd))
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("encode groups: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("encode groups: %w", err)
	}

	data := buf.Bytes()
	if err := s.objects.Write(ctx, dataKey(id), data); err != nil {
		return fmt.Errorf("write groups dataset: %w", err)
	}

	meta := Meta{
		Dataset:     id,
		Title:       "Series Groups",
		Description: "Mapping of upstream series groups to their member series.",
		ColumnDescriptions: map[string]string{
			"group_id":          "Group code",
			"group_label":       "Short group label",
			"group_description": "Longer group description",
			"series_id":         "Member series code",
			"series_label":      "Short series label",
			"series_link":       "Upstream documentation link",
		},
		Rows:      len(out),
		Columns:   []string{"group_id", "group_label", "group_description", "series_id", "series_label", "series_link"},
		Checksum:  checksum(data),
		WriteMode: Overwrite,
		UpdatedAt: time.Now().UTC(),
		Producer:  s.producer,
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal groups metadata: %w", err)
	}
	if err := s.objects.Write(ctx, metaKey(id), metaJSON); err != nil {
		return fmt.Errorf("write groups metadata: %w", err)
	}

	s.log.Info("groups dataset uploaded", "rows", len(out))
	return nil
}
