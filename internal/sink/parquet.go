package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/subsets-io/valet-connector/internal/dataset"
	"github.com/subsets-io/valet-connector/internal/storage"
)

// ParquetSink writes datasets to object storage as zstd-compressed
// Parquet plus a .meta.json document.
type ParquetSink struct {
	objects  storage.Store
	producer string
	log      *slog.Logger
}

// NewParquetSink builds a sink over the given store. producer is
// recorded in each metadata document.
func NewParquetSink(objects storage.Store, producer string, log *slog.Logger) *ParquetSink {
	return &ParquetSink{objects: objects, producer: producer, log: log}
}

// Upload implements Sink.
func (s *ParquetSink) Upload(ctx context.Context, id string, cfg dataset.Config, t *dataset.Table, mode WriteMode) (int, error) {
	out := t
	if mode == MergeByDate {
		merged, err := s.mergeExisting(ctx, id, t)
		if err != nil {
			return 0, err
		}
		out = merged
	}

	data, err := encodeTable(id, out)
	if err != nil {
		return 0, fmt.Errorf("encode dataset %s: %w", id, err)
	}
	if err := s.objects.Write(ctx, dataKey(id), data); err != nil {
		return 0, fmt.Errorf("write dataset %s: %w", id, err)
	}

	meta := Meta{
		Dataset:            id,
		Title:              cfg.Title,
		Description:        cfg.Description,
		Frequency:          string(cfg.Frequency),
		ColumnDescriptions: cfg.ColumnDescriptions(),
		Rows:               len(out.Rows),
		Columns:            append([]string{"date"}, out.Columns...),
		Checksum:           checksum(data),
		WriteMode:          mode,
		UpdatedAt:          time.Now().UTC(),
		Producer:           s.producer,
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal metadata for %s: %w", id, err)
	}
	if err := s.objects.Write(ctx, metaKey(id), metaJSON); err != nil {
		return 0, fmt.Errorf("write metadata for %s: %w", id, err)
	}

	s.log.Info("dataset uploaded",
		"dataset", id,
		"rows", len(out.Rows),
		"columns", len(out.Columns),
		"bytes", len(data),
		"mode", mode)
	return len(out.Rows), nil
}

// mergeExisting folds the stored table into the new one. New cells win;
// stored rows whose dates the new table does not touch survive.
func (s *ParquetSink) mergeExisting(ctx context.Context, id string, t *dataset.Table) (*dataset.Table, error) {
	data, err := s.objects.Read(ctx, dataKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read existing dataset %s: %w", id, err)
	}

	existing, err := decodeTable(data, t.Columns)
	if err != nil {
		return nil, fmt.Errorf("decode existing dataset %s: %w", id, err)
	}

	cells := make(map[string]map[string]float64, len(existing)+len(t.Rows))
	for date, values := range existing {
		cells[date] = values
	}
	for _, row := range t.Rows {
		merged, ok := cells[row.Date]
		if !ok {
			merged = make(map[string]float64, len(row.Values))
			cells[row.Date] = merged
		}
		for col, v := range row.Values {
			merged[col] = v
		}
	}

	dates := make([]string, 0, len(cells))
	for d := range cells {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := &dataset.Table{Columns: t.Columns, Rows: make([]dataset.Row, len(dates))}
	for i, d := range dates {
		out.Rows[i] = dataset.Row{Date: d, Values: cells[d]}
	}
	return out, nil
}

func tableSchema(name string, columns []string) *parquet.Schema {
	group := parquet.Group{"date": parquet.String()}
	for _, col := range columns {
		group[col] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
	}
	return parquet.NewSchema(name, group)
}

func encodeTable(name string, t *dataset.Table) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := parquet.NewGenericWriter[map[string]any](buf,
		tableSchema(name, t.Columns),
		parquet.Compression(&parquet.Zstd))

	rows := make([]map[string]any, len(t.Rows))
	for i, r := range t.Rows {
		row := make(map[string]any, len(r.Values)+1)
		row["date"] = r.Date
		for col, v := range r.Values {
			row[col] = v
		}
		rows[i] = row
	}
	if _, err := w.Write(rows); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeTable reads a stored table back into cells keyed by date. Only
// the requested columns are kept, so columns dropped from the mapping
// fall away on the next merge.
func decodeTable(data []byte, columns []string) (map[string]map[string]float64, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	// The schema is flat, so leaf column indexes line up with fields.
	fields := f.Schema().Fields()
	names := make([]string, len(fields))
	for i, fld := range fields {
		names[i] = fld.Name()
	}

	keep := make(map[string]bool, len(columns))
	for _, c := range columns {
		keep[c] = true
	}

	cells := make(map[string]map[string]float64)
	for _, rg := range f.RowGroups() {
		if err := readRowGroup(rg, names, keep, cells); err != nil {
			return nil, err
		}
	}
	return cells, nil
}

func readRowGroup(rg parquet.RowGroup, names []string, keep map[string]bool, cells map[string]map[string]float64) error {
	rows := rg.Rows()
	defer rows.Close()

	buf := make([]parquet.Row, 64)
	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			var date string
			values := make(map[string]float64)
			for _, v := range row {
				col := v.Column()
				if col < 0 || col >= len(names) || v.IsNull() {
					continue
				}
				name := names[col]
				if name == "date" {
					date = v.String()
				} else if keep[name] {
					values[name] = v.Double()
				}
			}
			if date != "" {
				cells[date] = values
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
