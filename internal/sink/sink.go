// Package sink publishes pivoted wide tables to object storage as
// Parquet files, each with a JSON metadata document alongside it.
package sink

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/subsets-io/valet-connector/internal/catalog"
	"github.com/subsets-io/valet-connector/internal/dataset"
)

// WriteMode controls how an upload treats an existing dataset file.
type WriteMode string

const (
	// Overwrite replaces the stored dataset with the new table.
	Overwrite WriteMode = "overwrite"
	// MergeByDate upserts: rows are keyed by date and new cells win over
	// stored ones, but dates absent from the new table are kept.
	MergeByDate WriteMode = "merge"
)

// Meta is the metadata document published next to each dataset file.
type Meta struct {
	Dataset            string            `json:"dataset"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	Frequency          string            `json:"frequency"`
	ColumnDescriptions map[string]string `json:"column_descriptions"`
	Rows               int               `json:"rows"`
	Columns            []string          `json:"columns"`
	Checksum           string            `json:"checksum"`
	WriteMode          WriteMode         `json:"write_mode"`
	UpdatedAt          time.Time         `json:"updated_at"`
	Producer           string            `json:"producer"`
}

// Sink writes datasets to a destination.
type Sink interface {
	// Upload publishes one dataset. Returns the row count actually
	// stored, which can exceed the table's when merging.
	Upload(ctx context.Context, id string, cfg dataset.Config, t *dataset.Table, mode WriteMode) (int, error)

	// UploadCatalog publishes the series catalog as a dataset.
	UploadCatalog(ctx context.Context, series []catalog.Series) error

	// UploadGroups publishes the group membership mapping as a dataset.
	UploadGroups(ctx context.Context, rows []catalog.GroupSeriesRow) error
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func dataKey(id string) string {
	return fmt.Sprintf("datasets/%s.parquet", id)
}

func metaKey(id string) string {
	return fmt.Sprintf("datasets/%s.meta.json", id)
}
