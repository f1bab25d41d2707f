// Package store wraps the external document index behind the narrow
// surface the engines need: field-filtered search, get/multi-get by id,
// count, and bulk idempotent upsert/delete.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrIndexMissing marks a query against an index that does not exist yet.
// Callers that are specified to tolerate it treat it as an empty result.
var ErrIndexMissing = errors.New("index does not exist")

// Document is one stored entity: index (entity class), id, JSON body.
type Document struct {
	Index  string          `json:"index"`
	ID     string          `json:"id"`
	Source json.RawMessage `json:"source"`
}

// DocRef addresses a document without its body.
type DocRef struct {
	Index string `json:"index"`
	ID    string `json:"id"`
}

type RangeFilter struct {
	Field string
	GTE   *time.Time // inclusive lower bound
	LT    *time.Time // exclusive upper bound
}

// Query is a conjunctive field filter over one index.
type Query struct {
	Index string

	// exact match on the string form of a field
	Terms map[string]string

	// field value must be one of the listed values
	TermsAny map[string][]string

	// array-valued field must contain the value
	Contains map[string]string

	Ranges []RangeFilter

	Limit int
}

type Store interface {
	// Search returns all documents matching the query. An index that does
	// not exist yields ErrIndexMissing or an empty result depending on
	// the backend; callers must accept both.
	Search(ctx context.Context, q Query) ([]Document, error)

	// GetByID returns nil (no error) when the document is absent.
	GetByID(ctx context.Context, index string, id string) (*Document, error)

	// MultiGetByIDs returns one slot per requested id, nil for misses.
	// With ignoreMissingIndex, an absent index yields all-nil slots
	// instead of ErrIndexMissing.
	MultiGetByIDs(ctx context.Context, index string, ids []string, ignoreMissingIndex bool) ([]*Document, error)

	Count(ctx context.Context, q Query) (int64, error)

	BulkUpsert(ctx context.Context, docs []Document) error
	BulkDelete(ctx context.Context, refs []DocRef) error
}

// Action ops for emission toward the store and the notification sink.
const (
	ActionUpsert = "upsert"
	ActionDelete = "delete"
)

// Action is one pending write. Delete actions only need Index and ID.
type Action struct {
	Op  string
	Doc Document
}

func UpsertAction(doc Document) Action {
	return Action{Op: ActionUpsert, Doc: doc}
}

func DeleteAction(index string, id string) Action {
	return Action{Op: ActionDelete, Doc: Document{Index: index, ID: id}}
}
