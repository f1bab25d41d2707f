package consolidate

import (
	"bitbucket.org/sgdatafocus/telemetry_backend/config"
	"bitbucket.org/sgdatafocus/telemetry_backend/models"
)

// expandAcquisitionRecord prepares acquisition-style raw records for
// mapping: merged multi-session records split into one record per
// station/session pair, and records without a disambiguating station fan
// out to the satellite's nominal/backup pair.
func expandAcquisitionRecord(rc *ReportContext, raw models.RawObservation) []models.RawObservation {
	var out []models.RawObservation
	for _, rec := range splitMergedSessions(raw) {
		out = append(out, resolveStation(rc, rec)...)
	}
	return out
}

// splitMergedSessions detects records that represent two merged
// sub-records (two ground stations, concatenated session ids) and splits
// them into one synthetic record per pair. Each synthetic record re-keys
// through the identity resolver on its own values.
func splitMergedSessions(raw models.RawObservation) []models.RawObservation {
	sessions, ok := raw.GetStringSlice("session_id")
	if !ok || len(sessions) <= 1 {
		return []models.RawObservation{raw}
	}

	stations, _ := raw.GetStringSlice("ground_station")

	out := make([]models.RawObservation, 0, len(sessions))
	for i, session := range sessions {
		rec := raw.WithField("session_id", session)
		if i < len(stations) {
			rec = rec.WithField("ground_station", stations[i])
		}
		out = append(out, rec)
	}
	return out
}

// resolveStation fills a missing ground station: first from a
// corroborating record of the same report, then from the satellite's
// nominal/backup pair with a fictive duplicate for the alternate station.
func resolveStation(rc *ReportContext, raw models.RawObservation) []models.RawObservation {
	if station, ok := raw.GetString("ground_station"); ok && station != "" {
		return []models.RawObservation{raw}
	}

	if session, ok := raw.GetString("session_id"); ok {
		if station, ok := rc.DeducedStation(session); ok {
			return []models.RawObservation{raw.WithField("ground_station", station)}
		}
	}

	pair, ok := rc.Tables.StationPairFor(rc.Satellite)
	if !ok {
		config.LogWarn(rc.Logger, "consolidate/split.go", "resolveStation", RecordRef(raw), nil,
			"ambiguous ground station and no configured pair; record kept without station")
		return []models.RawObservation{raw}
	}

	config.LogWarn(rc.Logger, "consolidate/split.go", "resolveStation", RecordRef(raw),
		map[string]string{"nominal": pair.Nominal, "backup": pair.Backup},
		"ambiguous ground station resolved by satellite pair; fictive duplicate created")

	return []models.RawObservation{
		raw.WithField("ground_station", pair.Nominal),
		raw.WithField("ground_station", pair.Backup).WithField("fictive_station", true),
	}
}
