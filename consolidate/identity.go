// Package consolidate turns raw report batches into canonical entities:
// deterministic content-derived identifiers, replace-on-reschedule report
// windows, and periodicity-tiered field overrides.
package consolidate

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"bitbucket.org/sgdatafocus/telemetry_backend/models"
	"bitbucket.org/sgdatafocus/telemetry_backend/utils"
)

// ResolveID derives the entity identifier from the ordered identity field
// tuple of a raw record. Records with equal values on the tuple always
// resolve to the same id, which is what makes re-ingestion idempotent.
func ResolveID(fields []string, record models.RawObservation) (string, error) {
	h := sha256.New()
	for _, field := range fields {
		value, ok := record.GetString(field)
		if !ok {
			return "", &utils.MissingFieldError{Field: field, RecordId: RecordRef(record)}
		}
		h.Write([]byte(value))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// RecordRef builds a best-effort human-readable reference to a raw record
// for log lines and error messages.
func RecordRef(record models.RawObservation) string {
	parts := []string{record.ReportName}
	for _, field := range []string{"satellite_id", "datatake_id", "session_id", "downlink_orbit"} {
		if v, ok := record.GetString(field); ok && v != "" {
			parts = append(parts, field+"="+v)
		}
	}
	return strings.Join(parts, " ")
}
