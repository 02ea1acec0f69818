package dataset

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	quarterCodeRe = regexp.MustCompile(`^(\d{4})Q([1-4])$`)
	isoDateRe     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

// NormalizeDate rewrites a raw observation date into the grain of the
// target dataset. Quarterly codes like "2004Q1" become "2004-Q1"
// regardless of the target frequency. Full ISO dates are truncated to
// the dataset's grain: monthly keeps YYYY-MM, quarterly computes the
// calendar quarter, annual and coarser keep the year. Anything else
// passes through unchanged.
func NormalizeDate(date string, freq Frequency) string {
	if m := quarterCodeRe.FindStringSubmatch(date); m != nil {
		return m[1] + "-Q" + m[2]
	}

	m := isoDateRe.FindStringSubmatch(date)
	if m == nil {
		return date
	}
	switch freq {
	case Monthly:
		return m[1] + "-" + m[2]
	case Quarterly:
		month, err := strconv.Atoi(m[2])
		if err != nil || month < 1 || month > 12 {
			return date
		}
		return fmt.Sprintf("%s-Q%d", m[1], (month-1)/3+1)
	case Annual, Biennial, Triennial:
		return m[1]
	default:
		return date
	}
}
