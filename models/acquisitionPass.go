package models

import (
	"fmt"
	"strings"
	"time"
)

// XBandAcquisitionPass is the generic acquisition-pass status entity for
// ground-station (X-Band) downlinks.
type XBandAcquisitionPass struct {
	ConsolidatedBase
	LinkedBase

	MissionType   string `json:"mission_type,omitempty"`
	DownlinkOrbit string `json:"downlink_orbit,omitempty"`
	GroundStation string `json:"ground_station,omitempty"`
	AntennaId     string `json:"antenna_id,omitempty"`
	AntennaStatus string `json:"antenna_status,omitempty"`
	SessionId     string `json:"acquisition_session_id,omitempty"`
	Status        string `json:"global_status,omitempty"`

	// a session record may carry two concatenated station/session pairs;
	// split records keep the pair index for traceability
	FictiveStation bool `json:"fictive_station,omitempty"`

	PlannedDataStart time.Time `json:"planned_data_start"`
	PlannedDataStop  time.Time `json:"planned_data_stop"`
	DeliveryStart    time.Time `json:"delivery_start"`
	DeliveryStop     time.Time `json:"delivery_stop"`
}

func (p *XBandAcquisitionPass) IndexName() string {
	return IndexXBandPasses
}

// PassKey is the composite natural key a ticket uses to reference a pass:
// satellite_missiontype_orbit_station, uppercased per field.
func PassKey(satellite string, missionType string, orbit string, station string) string {
	return fmt.Sprintf("%s_%s_%s_%s",
		strings.ToUpper(strings.TrimSpace(satellite)),
		strings.ToUpper(strings.TrimSpace(missionType)),
		strings.ToUpper(strings.TrimSpace(orbit)),
		strings.ToUpper(strings.TrimSpace(station)),
	)
}

func (p *XBandAcquisitionPass) PassKey() string {
	return PassKey(p.Satellite, p.MissionType, p.DownlinkOrbit, p.GroundStation)
}

// EdrsAcquisitionPass is the provider-specific pass entity for EDRS laser
// link sessions. Schema and query filters differ from X-Band.
type EdrsAcquisitionPass struct {
	ConsolidatedBase
	LinkedBase

	LinkSessionId    string    `json:"link_session_id,omitempty"`
	GeoSatelliteId   string    `json:"geo_satellite_id,omitempty"`
	MovingSatellite  string    `json:"moving_satellite,omitempty"`
	SessionStart     time.Time `json:"planned_link_session_start"`
	SessionStop      time.Time `json:"planned_link_session_stop"`
	TotalStatus      string    `json:"total_status,omitempty"`
	DisseminationPts int64     `json:"dissemination_pts,omitempty"`
}

func (p *EdrsAcquisitionPass) IndexName() string {
	return IndexEdrsPasses
}
