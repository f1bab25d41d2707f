package utils

import (
	"errors"
	"fmt"
)

// ErrorRecordNotFound keeps the HTTP layer decoupled from the storage
// driver's not-found sentinel.
var ErrorRecordNotFound = errors.New("record not found")

// ErrTicketBusy is returned when another correlation run holds the
// per-ticket lock. Callers are expected to retry.
var ErrTicketBusy = errors.New("ticket correlation already in progress")

// MissingFieldError marks a raw record that lacks a field required for
// identity resolution or mapping. It aborts that record only, never the
// whole batch.
type MissingFieldError struct {
	Field    string
	RecordId string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q on record %q", e.Field, e.RecordId)
}

// UnknownTargetKindError marks a consolidation request naming an entity
// kind the engine has no mapping for. Fatal for the batch.
type UnknownTargetKindError struct {
	Kind string
}

func (e *UnknownTargetKindError) Error() string {
	return fmt.Sprintf("unknown consolidation target kind %q", e.Kind)
}
