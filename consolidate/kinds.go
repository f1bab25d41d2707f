package consolidate

import (
	"bitbucket.org/sgdatafocus/telemetry_backend/models"
	"bitbucket.org/sgdatafocus/telemetry_backend/utils"
)

// Kind names a consolidation target entity class. The dispatch is a closed
// table: each kind carries its index, identity tuple, window time fields
// and mapping function as data.
type Kind string

const (
	KindDatatake        Kind = "datatake"
	KindDownlink        Kind = "downlink"
	KindHktmAcquisition Kind = "hktm-acquisition-completeness"
	KindHktmProduction  Kind = "hktm-production-completeness"
)

// MapFunc derives zero or one entity from a raw record. A nil entity with
// a nil error is a legitimate skip (for example a non-operational test
// recording).
type MapFunc func(rc *ReportContext, raw models.RawObservation) (models.Entity, error)

// ExpandFunc turns one raw record into its synthetic variants (split
// merged sessions, fictive stations) before mapping.
type ExpandFunc func(rc *ReportContext, raw models.RawObservation) []models.RawObservation

type KindSpec struct {
	Index string

	// ordered field tuple hashed into the entity id
	IdentityFields []string

	// raw-record field defining the report window
	TimeField string

	// matching entity field for the supersede query
	EntityTimeField string

	Map    MapFunc
	Expand ExpandFunc
}

var kindSpecs = map[Kind]KindSpec{
	KindDatatake: {
		Index:           models.IndexDatatakes,
		IdentityFields:  []string{"satellite_id", "datatake_id"},
		TimeField:       "observation_time_start",
		EntityTimeField: "observation_time_start",
		Map:             mapDatatake,
	},
	KindDownlink: {
		Index:           models.IndexDownlinks,
		IdentityFields:  []string{"satellite_id", "downlink_orbit", "ground_station", "session_id"},
		TimeField:       "downlink_execution_time",
		EntityTimeField: "downlink_execution_time",
		Map:             mapDownlink,
		Expand:          expandAcquisitionRecord,
	},
	KindHktmAcquisition: {
		Index:           models.IndexHktmCompleteness,
		IdentityFields:  []string{"satellite_id", "session_id", "ground_station"},
		TimeField:       "execution_time",
		EntityTimeField: "execution_time",
		Map:             mapHktmAcquisition,
		Expand:          expandAcquisitionRecord,
	},
	KindHktmProduction: {
		Index:           models.IndexHktmCompleteness,
		IdentityFields:  []string{"satellite_id", "downlink_orbit", "execution_time"},
		TimeField:       "execution_time",
		EntityTimeField: "execution_time",
		Map:             mapHktmProduction,
	},
}

// SpecFor returns the dispatch entry for a kind; an unknown kind is a
// fatal configuration error for the batch.
func SpecFor(kind Kind) (KindSpec, error) {
	spec, ok := kindSpecs[kind]
	if !ok {
		return KindSpec{}, &utils.UnknownTargetKindError{Kind: string(kind)}
	}
	return spec, nil
}
