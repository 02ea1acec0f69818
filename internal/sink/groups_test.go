package sink

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subsets-io/valet-connector/internal/catalog"
)

func TestUploadGroups(t *testing.T) {
	snk, store := newTestSink()
	ctx := context.Background()

	rows := []catalog.GroupSeriesRow{
		{GroupName: "FX_RATES_DAILY", GroupLabel: "Daily exchange rates",
			SeriesName: "FXUSDCAD", SeriesLabel: "USD/CAD", SeriesLink: "https://example.com"},
		{GroupName: "FX_RATES_DAILY", GroupLabel: "Daily exchange rates",
			SeriesName: "FXEURCAD", SeriesLabel: "EUR/CAD"},
	}
	require.NoError(t, snk.UploadGroups(ctx, rows))

	data, err := store.Read(ctx, "datasets/groups.parquet")
	require.NoError(t, err)
	require.NotEmpty(t, data)

	metaJSON, err := store.Read(ctx, "datasets/groups.meta.json")
	require.NoError(t, err)

	var meta Meta
	require.NoError(t, json.Unmarshal(metaJSON, &meta))
	assert.Equal(t, 2, meta.Rows)
	assert.Equal(t, Overwrite, meta.WriteMode)
	assert.Equal(t, checksum(data), meta.Checksum)
	assert.Contains(t, meta.Columns, "group_id")
	assert.Contains(t, meta.Columns, "series_id")
}
