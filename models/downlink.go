package models

import "time"

// Downlink is the consolidated record of one planned satellite downlink
// activity from a mission-planning report.
type Downlink struct {
	ConsolidatedBase
	LinkedBase

	DownlinkOrbit     string    `json:"downlink_orbit,omitempty"`
	GroundStation     string    `json:"station,omitempty"`
	SessionId         string    `json:"session_id,omitempty"`
	DownlinkMode      string    `json:"downlink_mode,omitempty"`
	LatencyMinutes    int64     `json:"latency,omitempty"`
	EffectiveDownlink time.Time `json:"effective_downlink_start"`
	DownlinkStart     time.Time `json:"downlink_execution_time"`
	DownlinkStop      time.Time `json:"downlink_stop_time"`
}

func (d *Downlink) IndexName() string {
	return IndexDownlinks
}
