package models

import "time"

// ConsolidatedBase carries the identifier, provenance and periodicity
// override state shared by every consolidated entity class.
type ConsolidatedBase struct {
	Id        string `json:"id"`
	Mission   string `json:"mission,omitempty"`
	Satellite string `json:"satellite_unit,omitempty"`

	// one provenance slot per periodicity tier; report_type marks the
	// highest tier that has populated the core fields
	ReportNameDaily   string            `json:"report_name_daily,omitempty"`
	ReportNameWeekly  string            `json:"report_name_weekly,omitempty"`
	ReportNameMonthly string            `json:"report_name_monthly,omitempty"`
	ReportType        ReportPeriodicity `json:"report_type,omitempty"`

	UpdateTime time.Time `json:"updateTime"`
}

func (b *ConsolidatedBase) EntityID() string {
	return b.Id
}

func (b *ConsolidatedBase) SetEntityID(id string) {
	b.Id = id
}

// LinkedBase carries the anomaly-ticket link set and the denormalized
// attributes of the last attached ticket.
type LinkedBase struct {
	TicketIds          []string `json:"ticket_ids,omitempty"`
	LastAttachedTicket string   `json:"last_attached_ticket,omitempty"`
	CamsOrigin         string   `json:"cams_origin,omitempty"`
	CamsDescription    string   `json:"cams_description,omitempty"`
}

func (b *LinkedBase) GetTicketIDs() []string {
	return b.TicketIds
}

func (b *LinkedBase) SetTicketIDs(ids []string) {
	b.TicketIds = ids
}

func (b *LinkedBase) SetLastAttachedTicket(key string, origin string, description string) {
	b.LastAttachedTicket = key
	b.CamsOrigin = origin
	b.CamsDescription = description
}

func (b *LinkedBase) ClearLastAttachedTicket() {
	b.LastAttachedTicket = ""
	b.CamsOrigin = ""
	b.CamsDescription = ""
}
