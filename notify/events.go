// Package notify turns store actions into logical change events for the
// external message bus.
package notify

import (
	"context"
	"sort"

	"bitbucket.org/sgdatafocus/telemetry_backend/store"
)

// ChangeEvent is the logical notification for one applied action.
type ChangeEvent struct {
	Action      string `json:"action"` // create-update | delete
	EntityClass string `json:"entity_class"`
	EntityID    string `json:"entity_id"`
	IndexHint   string `json:"index_hint,omitempty"`
}

const (
	EventActionUpsert = "create-update"
	EventActionDelete = "delete"
)

// EventBatch groups events sharing (action, class) for efficient
// publication.
type EventBatch struct {
	Action      string        `json:"action"`
	EntityClass string        `json:"entity_class"`
	Events      []ChangeEvent `json:"events"`
}

type Notifier interface {
	Publish(ctx context.Context, batches []EventBatch) error
}

// BatchEvents groups by (action, class), delete batches first so a report
// window's invalidation always precedes its re-derivation downstream.
func BatchEvents(events []ChangeEvent) []EventBatch {
	grouped := make(map[[2]string][]ChangeEvent)
	for _, ev := range events {
		key := [2]string{ev.Action, ev.EntityClass}
		grouped[key] = append(grouped[key], ev)
	}

	keys := make([][2]string, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] == EventActionDelete
		}
		return keys[i][1] < keys[j][1]
	})

	out := make([]EventBatch, 0, len(keys))
	for _, key := range keys {
		out = append(out, EventBatch{Action: key[0], EntityClass: key[1], Events: grouped[key]})
	}
	return out
}

// EventFor maps a store action to its change event.
func EventFor(action store.Action) ChangeEvent {
	ev := ChangeEvent{
		EntityClass: action.Doc.Index,
		EntityID:    action.Doc.ID,
		IndexHint:   action.Doc.Index,
	}
	if action.Op == store.ActionDelete {
		ev.Action = EventActionDelete
	} else {
		ev.Action = EventActionUpsert
	}
	return ev
}
