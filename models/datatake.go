package models

import "time"

// Datatake is the canonical entity for one satellite data-acquisition
// session, re-derived from mission-planning reports and enriched by the
// completeness engine.
type Datatake struct {
	ConsolidatedBase
	LinkedBase

	// mission-level identifier; equals the document id for missions with
	// a flat identifier scheme, distinct otherwise
	DatatakeId string `json:"datatake_id,omitempty"`

	InstrumentMode string `json:"instrument_mode,omitempty"`
	Timeliness     string `json:"timeliness,omitempty"`
	AbsoluteOrbit  string `json:"absolute_orbit,omitempty"`
	RelativeOrbit  int64  `json:"relative_orbit,omitempty"`
	Polarization   string `json:"polarization,omitempty"`

	ObservationTimeStart      time.Time `json:"observation_time_start"`
	ObservationTimeStop       time.Time `json:"observation_time_stop"`
	ObservationDurationMicros int64     `json:"observation_duration"`

	NumberOfScenes int64 `json:"number_of_scenes,omitempty"`
	NumberOfTiles  int64 `json:"number_of_tiles,omitempty"`

	// per product-type-key completeness fields, keyed like "L1C_TL"
	Completeness map[string]CompletenessField `json:"completeness,omitempty"`
	Levels       map[string]LevelCompleteness `json:"levels,omitempty"`

	FinalCompletenessValue      int64              `json:"final_completeness_value,omitempty"`
	FinalCompletenessExpected   int64              `json:"final_completeness_expected,omitempty"`
	FinalCompletenessPercentage float64            `json:"final_completeness_percentage,omitempty"`
	FinalCompletenessStatus     CompletenessStatus `json:"final_completeness_status,omitempty"`
}

func (d *Datatake) IndexName() string {
	return IndexDatatakes
}

// ObservationPeriod is the full expected span of the datatake.
func (d *Datatake) ObservationPeriod() Period {
	return NewPeriod(d.ObservationTimeStart, d.ObservationTimeStop)
}
