package correlate

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/sgdatafocus/telemetry_backend/config"
	"bitbucket.org/sgdatafocus/telemetry_backend/models"
	"bitbucket.org/sgdatafocus/telemetry_backend/notify"
	"bitbucket.org/sgdatafocus/telemetry_backend/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Memory) {
	t.Helper()
	tables := config.DefaultTables()
	if err := tables.Compile(); err != nil {
		t.Fatalf("compile tables: %v", err)
	}
	mem := store.NewMemory()
	return NewEngine(mem, tables, notify.NewEmitter(mem, notify.NewLogNotifier())), mem
}

func seedDatatake(t *testing.T, mem *store.Memory, docID string, datatakeID string, ticketIds ...string) {
	t.Helper()
	dt := &models.Datatake{DatatakeId: datatakeID}
	dt.Id = docID
	dt.Mission = "S1"
	dt.Satellite = "S1A"
	dt.TicketIds = ticketIds
	doc, err := store.DocumentFor(dt)
	if err != nil {
		t.Fatalf("datatake document: %v", err)
	}
	if err := mem.BulkUpsert(context.Background(), []store.Document{doc}); err != nil {
		t.Fatalf("seed datatake: %v", err)
	}
}

func getDatatake(t *testing.T, mem *store.Memory, docID string) *models.Datatake {
	t.Helper()
	dt, err := store.GetAs[models.Datatake](context.Background(), mem, models.IndexDatatakes, docID)
	if err != nil {
		t.Fatalf("get datatake %s: %v", docID, err)
	}
	if dt == nil {
		t.Fatalf("datatake %s not found", docID)
	}
	return dt
}

func TestCorrelateTicket_LinksAndUnlinks(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	// S1 uses the flat id scheme: document id is the declared id
	seedDatatake(t, mem, "S1A-372088", "S1A-372088")
	seedDatatake(t, mem, "S1A-372089", "S1A-372089", "GSANOM-1")
	seedDatatake(t, mem, "S1A-372090", "S1A-372090", "GSANOM-1")

	// the ticket now claims 372088 and 372089; 372090 must be unlinked
	report := TicketReport{
		Key:         "GSANOM-1",
		Origin:      "CAMS",
		Description: "X-Band antenna outage",
		DatatakeIds: []string{"S1A-372088", "S1A-372089"},
	}
	if err := engine.CorrelateTicket(ctx, report); err != nil {
		t.Fatalf("CorrelateTicket error: %v", err)
	}

	linked := getDatatake(t, mem, "S1A-372088")
	if len(linked.TicketIds) != 1 || linked.TicketIds[0] != "GSANOM-1" {
		t.Fatalf("expected S1A-372088 linked, got %v", linked.TicketIds)
	}
	if linked.LastAttachedTicket != "GSANOM-1" || linked.CamsDescription != "X-Band antenna outage" {
		t.Fatalf("denormalized reference not stamped: %+v", linked.LinkedBase)
	}

	kept := getDatatake(t, mem, "S1A-372089")
	if len(kept.TicketIds) != 1 || kept.TicketIds[0] != "GSANOM-1" {
		t.Fatalf("already linked entity must keep its single link, got %v", kept.TicketIds)
	}

	unlinked := getDatatake(t, mem, "S1A-372090")
	if len(unlinked.TicketIds) != 0 {
		t.Fatalf("expected S1A-372090 unlinked, got %v", unlinked.TicketIds)
	}
	if unlinked.LastAttachedTicket != "" {
		t.Fatalf("denormalized reference must be cleared on unlink")
	}

	ticket, err := store.GetAs[models.Ticket](ctx, mem, models.IndexTickets, "GSANOM-1")
	if err != nil || ticket == nil {
		t.Fatalf("ticket must be created on first correlation: %v", err)
	}
	if ticket.Origin != "CAMS" {
		t.Fatalf("ticket attributes not consolidated: %+v", ticket)
	}
}

func TestCorrelateTicket_IsIdempotent(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	seedDatatake(t, mem, "S1A-372088", "S1A-372088")
	report := TicketReport{Key: "GSANOM-2", Origin: "CAMS", DatatakeIds: []string{"S1A-372088"}}

	if err := engine.CorrelateTicket(ctx, report); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := engine.CorrelateTicket(ctx, report); err != nil {
		t.Fatalf("second run: %v", err)
	}

	dt := getDatatake(t, mem, "S1A-372088")
	if len(dt.TicketIds) != 1 {
		t.Fatalf("re-running correlation must not duplicate links, got %v", dt.TicketIds)
	}
}

func TestCorrelateTicket_AttributeChangeForcesRelink(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	seedDatatake(t, mem, "S1A-372088", "S1A-372088")
	first := TicketReport{Key: "GSANOM-3", Origin: "CAMS", Description: "initial", DatatakeIds: []string{"S1A-372088"}}
	if err := engine.CorrelateTicket(ctx, first); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// changed description: already linked entities must get the new
	// denormalized copy, not be skipped as unchanged
	second := first
	second.Description = "updated root cause"
	if err := engine.CorrelateTicket(ctx, second); err != nil {
		t.Fatalf("second run: %v", err)
	}

	dt := getDatatake(t, mem, "S1A-372088")
	if dt.CamsDescription != "updated root cause" {
		t.Fatalf("denormalized description not refreshed, got %q", dt.CamsDescription)
	}
}

func TestCorrelateTicket_UnknownTargetsDroppedNotFatal(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	seedDatatake(t, mem, "S1A-372088", "S1A-372088")
	report := TicketReport{
		Key:         "GSANOM-4",
		DatatakeIds: []string{"S1A-372088", "S1A-999999"},
	}
	if err := engine.CorrelateTicket(ctx, report); err != nil {
		t.Fatalf("unresolvable target must not be fatal: %v", err)
	}

	dt := getDatatake(t, mem, "S1A-372088")
	if len(dt.TicketIds) != 1 {
		t.Fatalf("resolvable target must still link, got %v", dt.TicketIds)
	}
}

// countingStore records the shape of every multi-get it serves.
type countingStore struct {
	store.Store
	multiGetSizes []int
}

func (c *countingStore) MultiGetByIDs(ctx context.Context, index string, ids []string, ignoreMissingIndex bool) ([]*store.Document, error) {
	c.multiGetSizes = append(c.multiGetSizes, len(ids))
	return c.Store.MultiGetByIDs(ctx, index, ids, ignoreMissingIndex)
}

func TestCorrelateTicket_FlatIdsResolvedInOneBatch(t *testing.T) {
	tables := config.DefaultTables()
	if err := tables.Compile(); err != nil {
		t.Fatalf("compile tables: %v", err)
	}
	mem := store.NewMemory()
	counting := &countingStore{Store: mem}
	engine := NewEngine(counting, tables, notify.NewEmitter(mem, notify.NewLogNotifier()))
	ctx := context.Background()

	seedDatatake(t, mem, "S1A-372088", "S1A-372088")
	seedDatatake(t, mem, "S1A-372089", "S1A-372089")
	seedDatatake(t, mem, "S1A-372090", "S1A-372090")

	report := TicketReport{
		Key:         "GSANOM-7",
		DatatakeIds: []string{"S1A-372088", "S1A-372089", "S1A-372090"},
	}
	if err := engine.CorrelateTicket(ctx, report); err != nil {
		t.Fatalf("CorrelateTicket error: %v", err)
	}

	for _, id := range report.DatatakeIds {
		dt := getDatatake(t, mem, id)
		if len(dt.TicketIds) != 1 || dt.TicketIds[0] != "GSANOM-7" {
			t.Fatalf("datatake %s not linked, got %v", id, dt.TicketIds)
		}
	}
	if len(counting.multiGetSizes) != 1 || counting.multiGetSizes[0] != 3 {
		t.Fatalf("expected one multi-get of 3 ids, got %v", counting.multiGetSizes)
	}
}

func TestCorrelateTicket_FlatIdFallsBackToFieldSearch(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	// consolidated under a derived document id, not the declared id
	seedDatatake(t, mem, "b9d1c2aa40", "S1A-555555")

	report := TicketReport{Key: "GSANOM-8", DatatakeIds: []string{"S1A-555555"}}
	if err := engine.CorrelateTicket(ctx, report); err != nil {
		t.Fatalf("CorrelateTicket error: %v", err)
	}

	dt := getDatatake(t, mem, "b9d1c2aa40")
	if len(dt.TicketIds) != 1 || dt.TicketIds[0] != "GSANOM-8" {
		t.Fatalf("field search fallback did not link, got %v", dt.TicketIds)
	}
}

func TestCorrelateTicket_PassResolution(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	pass := &models.XBandAcquisitionPass{
		MissionType:   "NOMINAL",
		DownlinkOrbit: "45001",
		GroundStation: "SGS",
	}
	pass.Id = "pass-1"
	pass.Satellite = "S1A"
	doc, err := store.DocumentFor(pass)
	if err != nil {
		t.Fatalf("pass document: %v", err)
	}
	if err := mem.BulkUpsert(ctx, []store.Document{doc}); err != nil {
		t.Fatalf("seed pass: %v", err)
	}

	report := TicketReport{
		Key: "GSANOM-5",
		Passes: []PassRef{
			{Satellite: "s1a", MissionType: "nominal", DownlinkOrbit: "45001", GroundStation: "sgs"},
		},
	}
	if err := engine.CorrelateTicket(ctx, report); err != nil {
		t.Fatalf("CorrelateTicket error: %v", err)
	}

	stored, err := store.GetAs[models.XBandAcquisitionPass](ctx, mem, models.IndexXBandPasses, "pass-1")
	if err != nil || stored == nil {
		t.Fatalf("get pass: %v", err)
	}
	if len(stored.TicketIds) != 1 || stored.TicketIds[0] != "GSANOM-5" {
		t.Fatalf("pass not linked via composite key, got %v", stored.TicketIds)
	}

	ticket, _ := store.GetAs[models.Ticket](ctx, mem, models.IndexTickets, "GSANOM-5")
	if len(ticket.AcquisitionPassKeys) != 1 || ticket.AcquisitionPassKeys[0] != "S1A_NOMINAL_45001_SGS" {
		t.Fatalf("pass tuple not normalized, got %v", ticket.AcquisitionPassKeys)
	}
}

func TestPublicationNameVariants(t *testing.T) {
	variants := publicationNameVariants([]string{"S1A_IW_RAW__0SDV_20260301.SAFE.zip"})

	want := map[string]bool{
		"S1A_IW_RAW__0SDV_20260301":          false,
		"S1A_IW_RAW__0SDV_20260301.zip":      false,
		"S1A_IW_RAW__0SDV_20260301.SAFE.zip": false,
	}
	for _, v := range variants {
		if _, ok := want[v]; ok {
			want[v] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("expected variant %q in %v", name, variants)
		}
	}
}

func TestReconcileLinks_DiffLaw(t *testing.T) {
	mkLinkable := func(id string, ticketIds ...string) models.Linkable {
		dt := &models.Datatake{}
		dt.Id = id
		dt.TicketIds = ticketIds
		return dt
	}

	ticket := &models.Ticket{Id: "T-1", Key: "T-1"}
	target := map[string]models.Linkable{
		"a": mkLinkable("a"),
		"b": mkLinkable("b", "T-1"),
	}
	existing := []models.Linkable{
		mkLinkable("b", "T-1"),
		mkLinkable("c", "T-1"),
	}

	actions, err := reconcileLinks(ticket, target, existing)
	if err != nil {
		t.Fatalf("reconcileLinks error: %v", err)
	}
	// incremental: link a (b already linked), unlink c
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d: %v", len(actions), actions)
	}

	ticket.UpdateAllEntities = true
	actions, err = reconcileLinks(ticket, target, existing)
	if err != nil {
		t.Fatalf("forced reconcileLinks error: %v", err)
	}
	// forced: relink a and b, unlink c
	if len(actions) != 3 {
		t.Fatalf("expected 3 actions under forced relink, got %d", len(actions))
	}

	// to_link and to_unlink must be disjoint
	upserted := map[string]int{}
	for _, a := range actions {
		upserted[a.Doc.ID]++
	}
	for id, n := range upserted {
		if n != 1 {
			t.Fatalf("entity %s touched %d times in one reconciliation", id, n)
		}
	}
}

func TestCorrelateTicket_PublicationMatchedByNameVariant(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	pub := &models.Publication{Name: "S1A_PROD_A.zip", PublicationDate: time.Now().UTC()}
	pub.Id = "pub-1"
	pub.Satellite = "S1A"
	doc, err := store.DocumentFor(pub)
	if err != nil {
		t.Fatalf("publication document: %v", err)
	}
	if err := mem.BulkUpsert(ctx, []store.Document{doc}); err != nil {
		t.Fatalf("seed publication: %v", err)
	}

	report := TicketReport{Key: "GSANOM-6", Products: []string{"S1A_PROD_A"}}
	for i := 0; i < 2; i++ {
		if err := engine.CorrelateTicket(ctx, report); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}

	stored, err := store.GetAs[models.Publication](ctx, mem, models.IndexPublications, "pub-1")
	if err != nil || stored == nil {
		t.Fatalf("get publication: %v", err)
	}
	if len(stored.TicketIds) != 1 {
		t.Fatalf("name-variant matching must link exactly once, got %v", stored.TicketIds)
	}
}
