package notify

import (
	"context"

	"bitbucket.org/sgdatafocus/telemetry_backend/config"
	"bitbucket.org/sgdatafocus/telemetry_backend/store"
)

// Emitter applies pending actions to the document store and forwards the
// corresponding change events to the notification sink. Within one flush,
// deletes are applied and published before upserts: a superseded report
// window must be invalidated before its re-derived entities appear.
type Emitter struct {
	Store    store.Store
	Notifier Notifier
}

func NewEmitter(s store.Store, n Notifier) *Emitter {
	return &Emitter{Store: s, Notifier: n}
}

func (e *Emitter) Flush(ctx context.Context, actions []store.Action) error {
	if len(actions) == 0 {
		return nil
	}

	var refs []store.DocRef
	var docs []store.Document
	var events []ChangeEvent
	for _, action := range actions {
		if action.Op == store.ActionDelete {
			refs = append(refs, store.DocRef{Index: action.Doc.Index, ID: action.Doc.ID})
		} else {
			docs = append(docs, action.Doc)
		}
		events = append(events, EventFor(action))
	}

	if err := e.Store.BulkDelete(ctx, refs); err != nil {
		return err
	}
	if err := e.Store.BulkUpsert(ctx, docs); err != nil {
		return err
	}

	if e.Notifier == nil {
		return nil
	}
	if err := e.Notifier.Publish(ctx, BatchEvents(events)); err != nil {
		// Store writes already landed; notification failures are logged,
		// not rolled back. Replaying the report reproduces the events.
		config.LogError(config.GetLogger(), "notify/emitter.go", "Flush", "Notifier.Publish", len(events), err)
	}
	return nil
}
