package store

import (
	"context"
	"fmt"

	"bitbucket.org/sgdatafocus/telemetry_backend/models"
	"bitbucket.org/sgdatafocus/telemetry_backend/utils"
)

// DocumentFor marshals an entity into its store document.
func DocumentFor(e models.Entity) (Document, error) {
	body, err := utils.MarshalToJSON(e)
	if err != nil {
		return Document{}, fmt.Errorf("marshal %s/%s: %w", e.IndexName(), e.EntityID(), err)
	}
	return Document{Index: e.IndexName(), ID: e.EntityID(), Source: []byte(body)}, nil
}

// As unmarshals a document body into a typed entity.
func As[T any](doc Document) (*T, error) {
	var out T
	if err := utils.UnmarshalFromJSON(doc.Source, &out); err != nil {
		return nil, fmt.Errorf("unmarshal %s/%s: %w", doc.Index, doc.ID, err)
	}
	return &out, nil
}

// SearchAs runs a query and unmarshals every hit.
func SearchAs[T any](ctx context.Context, s Store, q Query) ([]*T, error) {
	docs, err := s.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		e, err := As[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// GetAs returns nil when the document is absent.
func GetAs[T any](ctx context.Context, s Store, index string, id string) (*T, error) {
	doc, err := s.GetByID(ctx, index, id)
	if err != nil || doc == nil {
		return nil, err
	}
	return As[T](*doc)
}

// MultiGetAs keeps one slot per requested id, nil for misses.
func MultiGetAs[T any](ctx context.Context, s Store, index string, ids []string, ignoreMissingIndex bool) ([]*T, error) {
	docs, err := s.MultiGetByIDs(ctx, index, ids, ignoreMissingIndex)
	if err != nil {
		return nil, err
	}
	out := make([]*T, len(docs))
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		e, err := As[T](*doc)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}
