package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAcceptsWellFormedTable(t *testing.T) {
	cfg := Config{Frequency: Quarterly}
	table := &Table{
		Columns: []string{"a"},
		Rows: []Row{
			{Date: "2023-Q4", Values: map[string]float64{"a": 1}},
			{Date: "2024-Q1", Values: map[string]float64{"a": 2}},
		},
	}
	assert.NoError(t, Validate(table, cfg))
}

func TestValidateRejectsBadTables(t *testing.T) {
	daily := Config{Frequency: Daily}
	cases := []struct {
		name  string
		cfg   Config
		table *Table
	}{
		{"nil table", daily, nil},
		{"no rows", daily, &Table{Columns: []string{"a"}}},
		{"wrong grain", Config{Frequency: Monthly}, &Table{Rows: []Row{
			{Date: "2024-01-15", Values: map[string]float64{"a": 1}},
		}}},
		{"out of order", daily, &Table{Rows: []Row{
			{Date: "2024-01-02", Values: map[string]float64{"a": 1}},
			{Date: "2024-01-01", Values: map[string]float64{"a": 2}},
		}}},
		{"no populated cells", daily, &Table{Rows: []Row{
			{Date: "2024-01-01"},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, Validate(tc.table, tc.cfg))
		})
	}
}
