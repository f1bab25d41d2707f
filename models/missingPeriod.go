package models

import "time"

// MissingPeriod is a diagnostic sub-entity marking a coverage gap of a
// datatake's expected span. Not part of the percentage computation.
type MissingPeriod struct {
	Id         string `json:"id"`
	Mission    string `json:"mission,omitempty"`
	Satellite  string `json:"satellite_unit,omitempty"`
	DatatakeId string `json:"datatake_id"`

	// product-type key the gap was detected for
	ProductType string `json:"product_type"`

	PeriodStart    time.Time `json:"period_start"`
	PeriodStop     time.Time `json:"period_stop"`
	DurationMicros int64     `json:"duration"`

	UpdateTime time.Time `json:"updateTime"`
}

func (m *MissingPeriod) IndexName() string {
	return IndexMissingPeriods
}

func (m *MissingPeriod) EntityID() string {
	return m.Id
}

func (m *MissingPeriod) SetEntityID(id string) {
	m.Id = id
}
