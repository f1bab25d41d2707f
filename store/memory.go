package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"bitbucket.org/sgdatafocus/telemetry_backend/utils"
)

// Memory is the in-memory Store used by tests and local development. It
// reproduces the external index semantics, including ErrIndexMissing for
// indices no document was ever written to.
type Memory struct {
	mu      sync.RWMutex
	indices map[string]map[string]json.RawMessage
}

func NewMemory() *Memory {
	return &Memory{indices: make(map[string]map[string]json.RawMessage)}
}

func (m *Memory) Search(ctx context.Context, q Query) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.indices[q.Index]
	if !ok {
		return nil, ErrIndexMissing
	}

	ids := make([]string, 0, len(idx))
	for id := range idx {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Document
	for _, id := range ids {
		body := idx[id]
		match, err := matches(body, q)
		if err != nil {
			return nil, err
		}
		if !match {
			continue
		}
		out = append(out, Document{Index: q.Index, ID: id, Source: body})
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) GetByID(ctx context.Context, index string, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.indices[index]
	if !ok {
		return nil, nil
	}
	body, ok := idx[id]
	if !ok {
		return nil, nil
	}
	return &Document{Index: index, ID: id, Source: body}, nil
}

func (m *Memory) MultiGetByIDs(ctx context.Context, index string, ids []string, ignoreMissingIndex bool) ([]*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.indices[index]
	if !ok {
		if ignoreMissingIndex {
			return make([]*Document, len(ids)), nil
		}
		return nil, ErrIndexMissing
	}

	out := make([]*Document, len(ids))
	for i, id := range ids {
		if body, ok := idx[id]; ok {
			out[i] = &Document{Index: index, ID: id, Source: body}
		}
	}
	return out, nil
}

func (m *Memory) Count(ctx context.Context, q Query) (int64, error) {
	docs, err := m.Search(ctx, q)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (m *Memory) BulkUpsert(ctx context.Context, docs []Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, doc := range docs {
		idx, ok := m.indices[doc.Index]
		if !ok {
			idx = make(map[string]json.RawMessage)
			m.indices[doc.Index] = idx
		}
		body := make(json.RawMessage, len(doc.Source))
		copy(body, doc.Source)
		idx[doc.ID] = body
	}
	return nil
}

func (m *Memory) BulkDelete(ctx context.Context, refs []DocRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ref := range refs {
		if idx, ok := m.indices[ref.Index]; ok {
			delete(idx, ref.ID)
		}
	}
	return nil
}

func matches(body json.RawMessage, q Query) (bool, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return false, err
	}

	for field, want := range q.Terms {
		got, ok := stringField(fields, field)
		if !ok || got != want {
			return false, nil
		}
	}

	for field, wanted := range q.TermsAny {
		got, ok := stringField(fields, field)
		if !ok {
			return false, nil
		}
		found := false
		for _, want := range wanted {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}

	for field, want := range q.Contains {
		arr, ok := fields[field].([]interface{})
		if !ok {
			return false, nil
		}
		found := false
		for _, item := range arr {
			if s, ok := item.(string); ok && s == want {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}

	for _, r := range q.Ranges {
		raw, ok := stringField(fields, r.Field)
		if !ok {
			return false, nil
		}
		t, ok := utils.ParseTimeFlexible(raw)
		if !ok {
			return false, nil
		}
		if r.GTE != nil && t.Before(*r.GTE) {
			return false, nil
		}
		if r.LT != nil && !t.Before(*r.LT) {
			return false, nil
		}
	}

	return true, nil
}

func stringField(fields map[string]interface{}, field string) (string, bool) {
	v, ok := fields[field]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprintf("%v", v), true
}
