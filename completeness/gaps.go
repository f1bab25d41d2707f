package completeness

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"bitbucket.org/sgdatafocus/telemetry_backend/config"
	"bitbucket.org/sgdatafocus/telemetry_backend/models"
)

// detectMissingPeriods emits one diagnostic record per coverage gap of the
// entity's observation span exceeding the configured maximal offset.
// Dataset keys only; not part of the percentage computation.
func detectMissingPeriods(tables *config.Tables, dt *models.Datatake, typeKey string, observed []models.Period) []models.MissingPeriod {
	span := dt.ObservationPeriod()
	gaps := models.CoverageGaps(span, observed, tables.MissingPeriodMaxOffsetMicros)

	out := make([]models.MissingPeriod, 0, len(gaps))
	for _, gap := range gaps {
		out = append(out, models.MissingPeriod{
			Id:             missingPeriodID(dt.Id, typeKey, gap.Start),
			Mission:        dt.Mission,
			Satellite:      dt.Satellite,
			DatatakeId:     dt.DatatakeId,
			ProductType:    typeKey,
			PeriodStart:    gap.Start,
			PeriodStop:     gap.End,
			DurationMicros: gap.DurationMicros(),
			UpdateTime:     time.Now().UTC(),
		})
	}
	return out
}

// missingPeriodID is content-derived so re-detection of the same gap
// upserts the same record.
func missingPeriodID(datatakeDocID string, typeKey string, start time.Time) string {
	h := sha256.New()
	h.Write([]byte(datatakeDocID))
	h.Write([]byte(typeKey))
	h.Write([]byte(start.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(h.Sum(nil))
}
