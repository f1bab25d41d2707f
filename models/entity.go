package models

// Document-store index names for the consolidated entity classes.
const (
	IndexDatatakes        = "cds-datatake"
	IndexDownlinks        = "cds-downlink"
	IndexHktmCompleteness = "cds-hktm-completeness"
	IndexXBandPasses      = "cds-acquisition-pass-status"
	IndexEdrsPasses       = "cds-edrs-acquisition-pass-status"
	IndexPublications     = "cds-publication"
	IndexProducts         = "cds-product"
	IndexTickets          = "cds-ticket"
	IndexMissingPeriods   = "cds-missing-period"
)

// Entity is a canonical consolidated record addressable in the document
// store. The identifier is computed once by the identity resolver and
// never re-derived afterwards.
type Entity interface {
	IndexName() string
	EntityID() string
	SetEntityID(id string)
}

// Linkable entities carry the many-to-many ticket link set: a ticket_ids
// array (no duplicates) plus a denormalized last-attached reference.
type Linkable interface {
	Entity
	GetTicketIDs() []string
	SetTicketIDs(ids []string)
	SetLastAttachedTicket(key string, origin string, description string)
	ClearLastAttachedTicket()
}

// LinkAppend adds a ticket key to a link set if absent. Keeps insertion
// order stable for deterministic upsert bodies.
func LinkAppend(ids []string, key string) ([]string, bool) {
	for _, id := range ids {
		if id == key {
			return ids, false
		}
	}
	return append(ids, key), true
}

// LinkRemove drops a ticket key from a link set.
func LinkRemove(ids []string, key string) ([]string, bool) {
	out := make([]string, 0, len(ids))
	removed := false
	for _, id := range ids {
		if id == key {
			removed = true
			continue
		}
		out = append(out, id)
	}
	if !removed {
		return ids, false
	}
	return out, true
}
