package consolidate

import (
	"reflect"
	"testing"
)

func TestSatelliteOf(t *testing.T) {
	cases := []struct {
		report string
		want   string
	}{
		{"S1A_MP_ACQ__L0__20260301T000000_20260308T000000.csv", "S1A"},
		{"S2B_NOMINAL_PLAN", "S2B"},
		{"NOUNDERSCORE", "NOUNDERSCORE"},
		{"_LEADING", "_LEADING"},
	}
	for _, tc := range cases {
		if got := SatelliteOf(tc.report); got != tc.want {
			t.Fatalf("SatelliteOf(%q) expected %q, got %q", tc.report, tc.want, got)
		}
	}
}

func TestGroupReports_SortsSatellitesAndReports(t *testing.T) {
	groups := groupReports([]string{
		"S2A_PLAN_20260308",
		"S1A_PLAN_20260315",
		"  ",
		"S1A_PLAN_20260301",
		"",
		"S2A_PLAN_20260301",
		"S1A_PLAN_20260308",
	})

	if len(groups) != 2 {
		t.Fatalf("expected 2 satellite groups, got %d", len(groups))
	}
	if groups[0].satellite != "S1A" || groups[1].satellite != "S2A" {
		t.Fatalf("satellites not in order: %q, %q", groups[0].satellite, groups[1].satellite)
	}

	// per satellite the reports must be name-ordered so each report sees
	// its true successor as the window bound
	wantS1A := []string{"S1A_PLAN_20260301", "S1A_PLAN_20260308", "S1A_PLAN_20260315"}
	if !reflect.DeepEqual(groups[0].reports, wantS1A) {
		t.Fatalf("S1A reports out of order: %v", groups[0].reports)
	}
	wantS2A := []string{"S2A_PLAN_20260301", "S2A_PLAN_20260308"}
	if !reflect.DeepEqual(groups[1].reports, wantS2A) {
		t.Fatalf("S2A reports out of order: %v", groups[1].reports)
	}
}
