package dataset

// Table is a wide in-memory table: one date column plus one float column
// per mapped series. Cells without an observation are absent from the
// row's value map and surface as nulls downstream.
type Table struct {
	Columns []string
	Rows    []Row
}

// Row is one output row. Values is keyed by column name and only holds
// cells that have data.
type Row struct {
	Date   string
	Values map[string]float64
}

// Value reports the cell for a column and whether it is populated.
func (r Row) Value(column string) (float64, bool) {
	v, ok := r.Values[column]
	return v, ok
}
