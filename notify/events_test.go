package notify

import (
	"context"
	"encoding/json"
	"testing"

	"bitbucket.org/sgdatafocus/telemetry_backend/store"
)

func TestBatchEvents_GroupsAndOrdersDeletesFirst(t *testing.T) {
	events := []ChangeEvent{
		{Action: EventActionUpsert, EntityClass: "cds-datatake", EntityID: "a"},
		{Action: EventActionDelete, EntityClass: "cds-datatake", EntityID: "b"},
		{Action: EventActionUpsert, EntityClass: "cds-datatake", EntityID: "c"},
		{Action: EventActionUpsert, EntityClass: "cds-downlink", EntityID: "d"},
	}

	batches := BatchEvents(events)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d: %v", len(batches), batches)
	}
	if batches[0].Action != EventActionDelete {
		t.Fatalf("delete batches must come first, got %s", batches[0].Action)
	}
	for _, b := range batches {
		if b.Action == EventActionUpsert && b.EntityClass == "cds-datatake" && len(b.Events) != 2 {
			t.Fatalf("expected datatake upserts batched together, got %d", len(b.Events))
		}
	}
}

func TestEventFor(t *testing.T) {
	up := EventFor(store.UpsertAction(store.Document{Index: "cds-datatake", ID: "a"}))
	if up.Action != EventActionUpsert || up.EntityID != "a" || up.EntityClass != "cds-datatake" {
		t.Fatalf("upsert event wrong: %+v", up)
	}
	del := EventFor(store.DeleteAction("cds-datatake", "b"))
	if del.Action != EventActionDelete || del.EntityID != "b" {
		t.Fatalf("delete event wrong: %+v", del)
	}
}

type captureNotifier struct {
	batches [][]EventBatch
}

func (n *captureNotifier) Publish(ctx context.Context, batches []EventBatch) error {
	n.batches = append(n.batches, batches)
	return nil
}

func TestEmitterFlush_AppliesDeletesBeforeUpserts(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	sink := &captureNotifier{}
	emitter := NewEmitter(mem, sink)

	seed := store.Document{Index: "cds-datatake", ID: "old", Source: json.RawMessage(`{"id":"old"}`)}
	if err := mem.BulkUpsert(ctx, []store.Document{seed}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	actions := []store.Action{
		store.UpsertAction(store.Document{Index: "cds-datatake", ID: "new", Source: json.RawMessage(`{"id":"new"}`)}),
		store.DeleteAction("cds-datatake", "old"),
	}
	if err := emitter.Flush(ctx, actions); err != nil {
		t.Fatalf("Flush error: %v", err)
	}

	gone, err := mem.GetByID(ctx, "cds-datatake", "old")
	if err != nil || gone != nil {
		t.Fatalf("deleted document still present: %v %v", gone, err)
	}
	added, err := mem.GetByID(ctx, "cds-datatake", "new")
	if err != nil || added == nil {
		t.Fatalf("upserted document missing: %v", err)
	}

	if len(sink.batches) != 1 {
		t.Fatalf("expected one publication, got %d", len(sink.batches))
	}
	published := sink.batches[0]
	if published[0].Action != EventActionDelete {
		t.Fatalf("delete events must be published first, got %s", published[0].Action)
	}

	// empty flush publishes nothing
	if err := emitter.Flush(ctx, nil); err != nil {
		t.Fatalf("empty flush: %v", err)
	}
	if len(sink.batches) != 1 {
		t.Fatalf("empty flush must not publish, got %d publications", len(sink.batches))
	}
}
