package store

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
)

// DocKey addresses one document for batched loading.
type DocKey struct {
	Index string
	ID    string
}

// DocumentLoader coalesces point lookups into multi-gets, one batch per
// index. Scoped to one run; the cache must not outlive it.
type DocumentLoader struct {
	loader *dataloader.Loader[DocKey, *Document]
}

func NewDocumentLoader(s Store) *DocumentLoader {
	batchFn := func(ctx context.Context, keys []DocKey) []*dataloader.Result[*Document] {
		results := make([]*dataloader.Result[*Document], len(keys))

		byIndex := make(map[string][]int)
		for i, key := range keys {
			byIndex[key.Index] = append(byIndex[key.Index], i)
		}

		for index, positions := range byIndex {
			ids := make([]string, len(positions))
			for i, pos := range positions {
				ids[i] = keys[pos].ID
			}
			docs, err := s.MultiGetByIDs(ctx, index, ids, true)
			for i, pos := range positions {
				if err != nil {
					results[pos] = &dataloader.Result[*Document]{Error: err}
					continue
				}
				results[pos] = &dataloader.Result[*Document]{Data: docs[i]}
			}
		}
		return results
	}

	return &DocumentLoader{
		loader: dataloader.NewBatchedLoader(batchFn, dataloader.WithBatchCapacity[DocKey, *Document](200)),
	}
}

// Load returns the document or nil when absent.
func (l *DocumentLoader) Load(ctx context.Context, index string, id string) (*Document, error) {
	return l.loader.Load(ctx, DocKey{Index: index, ID: id})()
}

// LoadMany resolves a set of ids against one index, nil slots for misses.
func (l *DocumentLoader) LoadMany(ctx context.Context, index string, ids []string) ([]*Document, error) {
	thunks := make([]func() (*Document, error), len(ids))
	for i, id := range ids {
		thunks[i] = l.loader.Load(ctx, DocKey{Index: index, ID: id})
	}
	out := make([]*Document, len(ids))
	for i, thunk := range thunks {
		doc, err := thunk()
		if err != nil {
			return nil, err
		}
		out[i] = doc
	}
	return out, nil
}
