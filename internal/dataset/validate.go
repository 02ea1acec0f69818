package dataset

import (
	"errors"
	"fmt"
	"regexp"
)

var grainRes = map[Frequency]*regexp.Regexp{
	Daily:     regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	Weekly:    regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	Monthly:   regexp.MustCompile(`^\d{4}-\d{2}$`),
	Quarterly: regexp.MustCompile(`^\d{4}-Q[1-4]$`),
	Annual:    regexp.MustCompile(`^\d{4}$`),
	Biennial:  regexp.MustCompile(`^\d{4}$`),
	Triennial: regexp.MustCompile(`^\d{4}$`),
}

// Validate checks a pivoted table before it is published: rows exist,
// every date matches the dataset's grain, dates are strictly ascending,
// and at least one cell holds data.
func Validate(t *Table, cfg Config) error {
	if t == nil || len(t.Rows) == 0 {
		return errors.New("table has no rows")
	}

	grain := grainRes[cfg.Frequency]
	populated := false
	prev := ""
	for i, row := range t.Rows {
		if row.Date == "" {
			return fmt.Errorf("row %d: empty date", i)
		}
		if grain != nil && !grain.MatchString(row.Date) {
			return fmt.Errorf("row %d: date %q does not match %s grain", i, row.Date, cfg.Frequency)
		}
		if row.Date <= prev && i > 0 {
			return fmt.Errorf("row %d: date %q out of order after %q", i, row.Date, prev)
		}
		prev = row.Date
		if len(row.Values) > 0 {
			populated = true
		}
	}
	if !populated {
		return errors.New("table has no populated cells")
	}
	return nil
}
