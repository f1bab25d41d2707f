package models

import "time"

// Ticket is the canonical anomaly record. Owned by the correlation engine;
// created on first correlation when absent upstream.
type Ticket struct {
	Id          string `json:"id"`
	Key         string `json:"key"`
	Origin      string `json:"origin,omitempty"`
	Description string `json:"description,omitempty"`
	Url         string `json:"url,omitempty"`

	// impact sets as last declared by the anomaly report
	DatatakeIds         []string `json:"datatake_ids,omitempty"`
	AcquisitionPassKeys []string `json:"acquisition_pass,omitempty"`
	Products            []string `json:"products,omitempty"`
	Publications        []string `json:"publications,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// raised when origin/description change: relink everything the ticket
	// claims instead of an incremental diff, so denormalized copies on
	// entities get refreshed. Never persisted.
	UpdateAllEntities bool `json:"-"`
}

func (t *Ticket) IndexName() string {
	return IndexTickets
}

func (t *Ticket) EntityID() string {
	return t.Id
}

func (t *Ticket) SetEntityID(id string) {
	t.Id = id
}
