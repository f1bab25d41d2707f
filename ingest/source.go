// Package ingest exposes the raw-batch input interface: the (out-of-scope)
// extraction layer lands raw observation records keyed by report name, and
// the consolidation engine enumerates them here.
package ingest

import (
	"context"
	"time"

	"bitbucket.org/sgdatafocus/telemetry_backend/models"
)

type ReportSource interface {
	// Records enumerates the raw observations of one report, in landing
	// order. An unknown report name yields an empty slice, not an error.
	Records(ctx context.Context, reportName string) ([]models.RawObservation, error)

	// MinTime returns the minimum value of a time field over the report's
	// records, false when the report is empty or the field never parses.
	MinTime(ctx context.Context, reportName string, field string) (time.Time, bool, error)
}

// MinTimeOf computes the minimum of a time field over in-memory records.
func MinTimeOf(records []models.RawObservation, field string) (time.Time, bool) {
	var min time.Time
	found := false
	for _, rec := range records {
		t, ok := rec.GetTime(field)
		if !ok {
			continue
		}
		if !found || t.Before(min) {
			min = t
			found = true
		}
	}
	return min, found
}
