package ingest

import (
	"testing"

	"github.com/subsets-io/valet-connector/internal/obstore"
)

func TestWellFormed(t *testing.T) {
	cases := []struct {
		date string
		want bool
	}{
		{"2024-03-15", true},
		{"2024Q1", false},
		{"REVISIONS", false},
		{"", false},
		{"2021-07", true},
	}
	for _, tc := range cases {
		if got := WellFormed(tc.date); got != tc.want {
			t.Errorf("WellFormed(%q) = %v, want %v", tc.date, got, tc.want)
		}
	}
}

func TestPlanFetchNoStateNoData(t *testing.T) {
	if got := PlanFetch("", false, nil); got != EpochStart {
		t.Errorf("got %q, want %q", got, EpochStart)
	}
}

func TestPlanFetchDayAfterWatermark(t *testing.T) {
	cases := []struct {
		watermark string
		want      string
	}{
		{"2024-03-15", "2024-03-16"},
		{"2024-02-29", "2024-03-01"},
		{"2023-12-31", "2024-01-01"},
	}
	for _, tc := range cases {
		if got := PlanFetch(tc.watermark, true, nil); got != tc.want {
			t.Errorf("PlanFetch(%q) = %q, want %q", tc.watermark, got, tc.want)
		}
	}
}

func TestPlanFetchQuarterCodeReusesPeriod(t *testing.T) {
	if got := PlanFetch("2025Q3", true, nil); got != "2025Q3" {
		t.Errorf("got %q, want same quarter code back", got)
	}
}

func TestPlanFetchUnparsableWatermarkUnchanged(t *testing.T) {
	if got := PlanFetch("2021-07", true, nil); got != "2021-07" {
		t.Errorf("got %q, want watermark passed through", got)
	}
}

func TestPlanFetchSelfHealsFromStoredData(t *testing.T) {
	stored := []obstore.Observation{
		{Date: "2024-01-02"},
		{Date: "REVISIONS"},
		{Date: "2024-01-05"},
		{Date: "2024-01-03"},
	}
	if got := PlanFetch("", false, stored); got != "2024-01-06" {
		t.Errorf("got %q, want day after max stored date", got)
	}
}

func TestDeriveWatermark(t *testing.T) {
	if _, ok := DeriveWatermark(nil); ok {
		t.Error("expected no watermark from empty store")
	}
	if _, ok := DeriveWatermark([]obstore.Observation{{Date: "HEADER"}}); ok {
		t.Error("expected no watermark from malformed-only store")
	}
	got, ok := DeriveWatermark([]obstore.Observation{{Date: "2020-05-01"}, {Date: "2020-04-30"}})
	if !ok || got != "2020-05-01" {
		t.Errorf("got %q/%v, want 2020-05-01/true", got, ok)
	}
}
