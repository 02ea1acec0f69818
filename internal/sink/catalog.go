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

type catalogRow struct {
	Name        string `parquet:"name"`
	Label       string `parquet:"label,optional"`
	Description string `parquet:"description,optional"`
	Link        string `parquet:"link,optional"`
}

// UploadCatalog publishes the parsed series list as its own dataset.
// Always a full overwrite; the catalog has no incremental dimension.
func (s *ParquetSink) UploadCatalog(ctx context.Context, series []catalog.Series) error {
	const id = "series_list"

	rows := make([]catalogRow, len(series))
	for i, sr := range series {
		rows[i] = catalogRow{
			Name:        sr.Name,
			Label:       sr.Label,
			Description: sr.Description,
			Link:        sr.Link,
		}
	}

	buf := new(bytes.Buffer)
	w := parquet.NewGenericWriter[catalogRow](buf, parquet.Compression(&parquet.Zstd))
	if _, err := w.Write(rows); err != nil {
		return fmt.Errorf("encode series list: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("encode series list: %w", err)
	}

	data := buf.Bytes()
	if err := s.objects.Write(ctx, dataKey(id), data); err != nil {
		return fmt.Errorf("write series list dataset: %w", err)
	}

	meta := Meta{
		Dataset:     id,
		Title:       "Series List",
		Description: "Catalog of all upstream series: code, label, description and link.",
		ColumnDescriptions: map[string]string{
			"name":        "Series code",
			"label":       "Short human-readable label",
			"description": "Longer series description",
			"link":        "Upstream documentation link",
		},
		Rows:      len(rows),
		Columns:   []string{"name", "label", "description", "link"},
		Checksum:  checksum(data),
		WriteMode: Overwrite,
		UpdatedAt: time.Now().UTC(),
		Producer:  s.producer,
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal series list metadata: %w", err)
	}
	if err := s.objects.Write(ctx, metaKey(id), metaJSON); err != nil {
		return fmt.Errorf("write series list metadata: %w", err)
	}

	s.log.Info("series list dataset uploaded", "rows", len(rows))
	return nil
}
