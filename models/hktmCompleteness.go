package models

import "time"

// HKTM completeness record categories.
const (
	HktmCategoryAcquisition = "acquisition"
	HktmCategoryProduction  = "production"
)

// HktmCompleteness is the housekeeping-telemetry completeness record, one
// per acquisition or production session from a mission-planning report.
type HktmCompleteness struct {
	ConsolidatedBase
	LinkedBase

	Category      string    `json:"category"`
	SessionId     string    `json:"session_id,omitempty"`
	GroundStation string    `json:"station,omitempty"`
	DownlinkOrbit string    `json:"downlink_orbit,omitempty"`
	ExecutionTime time.Time `json:"execution_time"`

	Completeness CompletenessField `json:"completeness"`
}

func (h *HktmCompleteness) IndexName() string {
	return IndexHktmCompleteness
}
