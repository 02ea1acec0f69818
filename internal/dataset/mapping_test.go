package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMappingPreservesOrder(t *testing.T) {
	doc := []byte(`{
		"datasets": {
			"fx_daily": {
				"title": "FX",
				"frequency": "daily",
				"series": {
					"FXUSDCAD": {"column": "usd_cad", "description": "USD/CAD"},
					"FXEURCAD": {"column": "eur_cad", "description": "EUR/CAD"},
					"FXGBPCAD": {"column": "gbp_cad", "description": "GBP/CAD"}
				}
			},
			"cpi_monthly": {
				"title": "CPI",
				"frequency": "monthly",
				"series": {
					"V41690973": {"column": "cpi_all_items"}
				}
			}
		}
	}`)

	m, err := ParseMapping(doc)
	require.NoError(t, err)
	require.Len(t, m.Datasets, 2)

	assert.Equal(t, "fx_daily", m.Datasets[0].ID)
	assert.Equal(t, "cpi_monthly", m.Datasets[1].ID)
	assert.Equal(t, []string{"usd_cad", "eur_cad", "gbp_cad"}, m.Datasets[0].Columns())
	assert.Equal(t, Daily, m.Datasets[0].Frequency)
	assert.Equal(t, "FXEURCAD", m.Datasets[0].Series[1].Code)
}

func TestParseMappingColumnDescriptions(t *testing.T) {
	doc := []byte(`{"datasets": {"d": {"frequency": "daily",
		"series": {"A": {"column": "a", "description": "series a"}}}}}`)

	m, err := ParseMapping(doc)
	require.NoError(t, err)

	desc := m.Datasets[0].ColumnDescriptions()
	assert.Equal(t, "series a", desc["a"])
	assert.Contains(t, desc, "date")
}

func TestParseMappingRejectsMalformedEntries(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"unknown frequency", `{"datasets": {"d": {"frequency": "hourly",
			"series": {"A": {"column": "a"}}}}}`},
		{"missing column", `{"datasets": {"d": {"frequency": "daily",
			"series": {"A": {"description": "no column"}}}}}`},
		{"duplicate column", `{"datasets": {"d": {"frequency": "daily",
			"series": {"A": {"column": "x"}, "B": {"column": "x"}}}}}`},
		{"no series", `{"datasets": {"d": {"frequency": "daily", "series": {}}}}`},
		{"no datasets", `{"datasets": {}}`},
		{"missing datasets key", `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseMapping([]byte(tc.doc))
			assert.Error(t, err)
		})
	}
}
