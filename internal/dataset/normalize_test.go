package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		name string
		date string
		freq Frequency
		want string
	}{
		{"quarter code", "2004Q1", Quarterly, "2004-Q1"},
		{"quarter code under any frequency", "2004Q1", Monthly, "2004-Q1"},
		{"daily passes through", "2021-07-15", Daily, "2021-07-15"},
		{"weekly passes through", "2021-07-15", Weekly, "2021-07-15"},
		{"monthly truncates", "2021-07-15", Monthly, "2021-07"},
		{"quarterly from full date", "2021-07-15", Quarterly, "2021-Q3"},
		{"quarterly first month", "2021-01-31", Quarterly, "2021-Q1"},
		{"quarterly last month", "2021-12-01", Quarterly, "2021-Q4"},
		{"annual keeps year", "2021-07-15", Annual, "2021"},
		{"biennial keeps year", "2021-07-15", Biennial, "2021"},
		{"triennial keeps year", "2021-07-15", Triennial, "2021"},
		{"unrecognized passes through", "2021-07", Monthly, "2021-07"},
		{"marker row passes through", "REVISIONS", Daily, "REVISIONS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeDate(tc.date, tc.freq))
		})
	}
}
