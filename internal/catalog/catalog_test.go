package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/subsets-io/valet-connector/internal/storage"
)

const seriesListCSV = `"terms_url","https://www.bankofcanada.ca/terms/"

"SERIES"
"name","label","description","link"
"FXUSDCAD","USD/CAD","US dollar to Canadian dollar daily exchange rate","https://example.com/FXUSDCAD"
"V39079","Overnight rate target","Target for the overnight rate"
"","orphan","row with no name is dropped"
`

const groupsCSV = `"terms_url","https://www.bankofcanada.ca/terms/"

"GROUPS"
"name","label","description"
"FX_RATES_DAILY","Daily exchange rates","Daily average exchange rates"
`

func TestParseSeriesList(t *testing.T) {
	series, err := ParseSeriesList(seriesListCSV)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("got %d series, want 2", len(series))
	}
	if series[0].Name != "FXUSDCAD" || series[0].Label != "USD/CAD" {
		t.Errorf("first series = %+v", series[0])
	}
	// Short rows are padded with empty fields.
	if series[1].Link != "" {
		t.Errorf("second series link = %q, want empty", series[1].Link)
	}
}

func TestParseGroups(t *testing.T) {
	groups, err := ParseGroups(groupsCSV)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "FX_RATES_DAILY" {
		t.Errorf("groups = %+v", groups)
	}
}

func TestParseMarkerQuotedOrBare(t *testing.T) {
	// The vendor quotes every CSV cell, marker lines included; older
	// snapshots carry the marker bare. Both must parse.
	for _, marker := range []string{`"SERIES"`, "SERIES"} {
		text := marker + "\n\"name\",\"label\"\n\"FXUSDCAD\",\"USD/CAD\"\n"
		series, err := ParseSeriesList(text)
		if err != nil {
			t.Fatalf("marker %s: %v", marker, err)
		}
		if len(series) != 1 || series[0].Name != "FXUSDCAD" {
			t.Errorf("marker %s: series = %+v", marker, series)
		}
	}
}

func TestParseMissingMarker(t *testing.T) {
	if _, err := ParseSeriesList(`"no marker here"`); !errors.Is(err, ErrNoSection) {
		t.Errorf("err = %v, want ErrNoSection", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()

	if err := Save(ctx, store, seriesListCSV); err != nil {
		t.Fatalf("save: %v", err)
	}

	series, err := Load(ctx, store)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(series) != 2 {
		t.Errorf("got %d series, want 2", len(series))
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	if _, err := Load(context.Background(), storage.NewMemStore()); err == nil {
		t.Fatal("expected error for missing snapshot")
	}
}
