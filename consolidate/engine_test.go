package consolidate

import (
	"context"
	"testing"

	"bitbucket.org/sgdatafocus/telemetry_backend/config"
	"bitbucket.org/sgdatafocus/telemetry_backend/ingest"
	"bitbucket.org/sgdatafocus/telemetry_backend/models"
	"bitbucket.org/sgdatafocus/telemetry_backend/notify"
	"bitbucket.org/sgdatafocus/telemetry_backend/store"
)

func testTables(t *testing.T) *config.Tables {
	t.Helper()
	tables := config.DefaultTables()
	if err := tables.Compile(); err != nil {
		t.Fatalf("compile tables: %v", err)
	}
	return tables
}

func newTestEngine(t *testing.T, mem *store.Memory) (*Engine, *ingest.MemorySource) {
	t.Helper()
	src := ingest.NewMemorySource()
	emitter := notify.NewEmitter(mem, notify.NewLogNotifier())
	return NewEngine(mem, src, testTables(t), emitter), src
}

func datatakeRecord(report string, tier models.ReportPeriodicity, id string, start string, stop string, extra map[string]interface{}) models.RawObservation {
	fields := map[string]interface{}{
		"satellite_id":           "S1A",
		"datatake_id":            id,
		"instrument_mode":        "IW",
		"observation_time_start": start,
		"observation_time_stop":  stop,
	}
	for k, v := range extra {
		fields[k] = v
	}
	return models.RawObservation{ReportName: report, ReportType: tier, Fields: fields}
}

func mustGetDatatake(t *testing.T, mem *store.Memory, id string) *models.Datatake {
	t.Helper()
	dt, err := store.GetAs[models.Datatake](context.Background(), mem, models.IndexDatatakes, id)
	if err != nil {
		t.Fatalf("get datatake %s: %v", id, err)
	}
	if dt == nil {
		t.Fatalf("datatake %s not found", id)
	}
	return dt
}

func TestProcessReport_ConsolidatesDatatakes(t *testing.T) {
	mem := store.NewMemory()
	engine, src := newTestEngine(t, mem)

	report := "S1A_MP_20260301"
	src.Add(report,
		datatakeRecord(report, models.ReportPeriodicityDaily, "372088", "2026-03-01T00:00:00Z", "2026-03-01T00:01:00Z", nil),
		datatakeRecord(report, models.ReportPeriodicityDaily, "372089", "2026-03-01T01:00:00Z", "2026-03-01T01:02:00Z", nil),
	)

	result, err := engine.ProcessReport(context.Background(), KindDatatake, "S1A", report, "")
	if err != nil {
		t.Fatalf("ProcessReport error: %v", err)
	}
	if result.Consolidated != 2 {
		t.Fatalf("expected 2 consolidated, got %+v", result)
	}

	id, err := ResolveID([]string{"satellite_id", "datatake_id"},
		datatakeRecord(report, models.ReportPeriodicityDaily, "372088", "", "", nil))
	if err != nil {
		t.Fatalf("ResolveID error: %v", err)
	}
	dt := mustGetDatatake(t, mem, id)
	if dt.Mission != "S1" || dt.Satellite != "S1A" {
		t.Fatalf("mission/satellite wrong: %q %q", dt.Mission, dt.Satellite)
	}
	if dt.ObservationDurationMicros != 60_000_000 {
		t.Fatalf("expected 60s duration, got %d", dt.ObservationDurationMicros)
	}
	if dt.ReportNameDaily != report {
		t.Fatalf("daily provenance slot not set: %+v", dt.ConsolidatedBase)
	}
	if dt.ReportType != models.ReportPeriodicityDaily {
		t.Fatalf("expected daily report_type, got %q", dt.ReportType)
	}
}

func TestProcessReport_EmptyReportIsNoOp(t *testing.T) {
	mem := store.NewMemory()
	engine, _ := newTestEngine(t, mem)

	result, err := engine.ProcessReport(context.Background(), KindDatatake, "S1A", "S1A_MP_EMPTY", "")
	if err != nil {
		t.Fatalf("ProcessReport error: %v", err)
	}
	if result.Consolidated != 0 || result.Deleted != 0 || result.RecordErrors != 0 {
		t.Fatalf("empty report must be a no-op, got %+v", result)
	}
}

func TestProcessReport_ReplaceOnReschedule(t *testing.T) {
	mem := store.NewMemory()
	engine, src := newTestEngine(t, mem)

	report := "S1A_MP_20260301"
	src.Add(report,
		datatakeRecord(report, models.ReportPeriodicityDaily, "372088", "2026-03-01T00:00:00Z", "2026-03-01T00:01:00Z", nil),
		datatakeRecord(report, models.ReportPeriodicityDaily, "372089", "2026-03-01T01:00:00Z", "2026-03-01T01:02:00Z", nil),
	)
	if _, err := engine.ProcessReport(context.Background(), KindDatatake, "S1A", report, ""); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	// rescheduled batch: the second datatake is gone from the plan
	rescheduled, src2 := newTestEngine(t, mem)
	src2.Add(report,
		datatakeRecord(report, models.ReportPeriodicityDaily, "372088", "2026-03-01T00:00:00Z", "2026-03-01T00:01:00Z", nil),
	)
	result, err := rescheduled.ProcessReport(context.Background(), KindDatatake, "S1A", report, "")
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("expected the superseded datatake deleted, got %+v", result)
	}

	droppedID, _ := ResolveID([]string{"satellite_id", "datatake_id"},
		datatakeRecord(report, models.ReportPeriodicityDaily, "372089", "", "", nil))
	doc, err := mem.GetByID(context.Background(), models.IndexDatatakes, droppedID)
	if err != nil {
		t.Fatalf("get dropped datatake: %v", err)
	}
	if doc != nil {
		t.Fatalf("superseded datatake must be removed from the store")
	}
}

func TestProcessReport_WindowBoundedByNextReport(t *testing.T) {
	mem := store.NewMemory()
	engine, src := newTestEngine(t, mem)

	report := "S1A_MP_20260301"
	next := "S1A_MP_20260302"
	src.Add(report,
		datatakeRecord(report, models.ReportPeriodicityDaily, "372088", "2026-03-01T00:00:00Z", "2026-03-01T00:01:00Z", nil),
		// belongs to the next report's window and must be left to it
		datatakeRecord(report, models.ReportPeriodicityDaily, "372099", "2026-03-02T00:00:00Z", "2026-03-02T00:01:00Z", nil),
	)
	src.Add(next,
		datatakeRecord(next, models.ReportPeriodicityDaily, "372100", "2026-03-02T00:00:00Z", "2026-03-02T00:01:00Z", nil),
	)

	result, err := engine.ProcessReport(context.Background(), KindDatatake, "S1A", report, next)
	if err != nil {
		t.Fatalf("ProcessReport error: %v", err)
	}
	if result.Consolidated != 1 {
		t.Fatalf("expected only the in-window record consolidated, got %+v", result)
	}
}

func TestProcessReport_PeriodicityOverride(t *testing.T) {
	mem := store.NewMemory()
	engine, src := newTestEngine(t, mem)
	ctx := context.Background()

	daily := "S1A_MP_20260301"
	weekly := "S1A_MPW_20260307"
	daily2 := "S1A_MP_20260308"

	src.Add(daily,
		datatakeRecord(daily, models.ReportPeriodicityDaily, "372088", "2026-03-01T00:00:00Z", "2026-03-01T00:01:00Z",
			map[string]interface{}{"timeliness": "NRT"}))
	src.Add(weekly,
		datatakeRecord(weekly, models.ReportPeriodicityWeekly, "372088", "2026-03-01T00:00:00Z", "2026-03-01T00:01:00Z",
			map[string]interface{}{"timeliness": "NTC"}))
	src.Add(daily2,
		datatakeRecord(daily2, models.ReportPeriodicityDaily, "372088", "2026-03-01T00:00:00Z", "2026-03-01T00:01:00Z",
			map[string]interface{}{"timeliness": "STALE"}))

	if _, err := engine.ProcessReport(ctx, KindDatatake, "S1A", daily, ""); err != nil {
		t.Fatalf("daily pass: %v", err)
	}
	if _, err := engine.ProcessReport(ctx, KindDatatake, "S1A", weekly, ""); err != nil {
		t.Fatalf("weekly pass: %v", err)
	}

	id, _ := ResolveID([]string{"satellite_id", "datatake_id"},
		datatakeRecord(daily, models.ReportPeriodicityDaily, "372088", "", "", nil))

	dt := mustGetDatatake(t, mem, id)
	if dt.Timeliness != "NTC" {
		t.Fatalf("weekly tier must override daily core fields, got timeliness %q", dt.Timeliness)
	}
	if dt.ReportType != models.ReportPeriodicityWeekly {
		t.Fatalf("expected weekly report_type, got %q", dt.ReportType)
	}
	if dt.ReportNameDaily != daily || dt.ReportNameWeekly != weekly {
		t.Fatalf("provenance slots wrong: %+v", dt.ConsolidatedBase)
	}

	// a later daily report records its provenance but must not downgrade
	// the weekly core fields
	if _, err := engine.ProcessReport(ctx, KindDatatake, "S1A", daily2, ""); err != nil {
		t.Fatalf("second daily pass: %v", err)
	}
	dt = mustGetDatatake(t, mem, id)
	if dt.Timeliness != "NTC" {
		t.Fatalf("daily tier must not override weekly core fields, got timeliness %q", dt.Timeliness)
	}
	if dt.ReportType != models.ReportPeriodicityWeekly {
		t.Fatalf("report_type must stay weekly, got %q", dt.ReportType)
	}
	if dt.ReportNameDaily != daily2 {
		t.Fatalf("daily provenance slot must track the latest daily report, got %q", dt.ReportNameDaily)
	}
}

func TestProcessReport_UnchangedEntityNotReemitted(t *testing.T) {
	mem := store.NewMemory()
	engine, src := newTestEngine(t, mem)
	ctx := context.Background()

	report := "S1A_MP_20260301"
	src.Add(report,
		datatakeRecord(report, models.ReportPeriodicityDaily, "372088", "2026-03-01T00:00:00Z", "2026-03-01T00:01:00Z", nil))

	if _, err := engine.ProcessReport(ctx, KindDatatake, "S1A", report, ""); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	result, err := engine.ProcessReport(ctx, KindDatatake, "S1A", report, "")
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if result.Consolidated != 0 || result.Deleted != 0 {
		t.Fatalf("replaying an identical report must emit nothing, got %+v", result)
	}
}

func TestProcessReport_LinkSetSurvivesReconsolidation(t *testing.T) {
	mem := store.NewMemory()
	engine, src := newTestEngine(t, mem)
	ctx := context.Background()

	report := "S1A_MP_20260301"
	src.Add(report,
		datatakeRecord(report, models.ReportPeriodicityDaily, "372088", "2026-03-01T00:00:00Z", "2026-03-01T00:01:00Z", nil))

	if _, err := engine.ProcessReport(ctx, KindDatatake, "S1A", report, ""); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	id, _ := ResolveID([]string{"satellite_id", "datatake_id"},
		datatakeRecord(report, models.ReportPeriodicityDaily, "372088", "", "", nil))

	// attach a ticket out of band, then reconsolidate a changed record
	dt := mustGetDatatake(t, mem, id)
	dt.TicketIds = []string{"GSANOM-123"}
	doc, err := store.DocumentFor(dt)
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if err := mem.BulkUpsert(ctx, []store.Document{doc}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	changed, src2 := newTestEngine(t, mem)
	src2.Add(report,
		datatakeRecord(report, models.ReportPeriodicityDaily, "372088", "2026-03-01T00:00:00Z", "2026-03-01T00:02:00Z", nil))
	if _, err := changed.ProcessReport(ctx, KindDatatake, "S1A", report, ""); err != nil {
		t.Fatalf("second pass: %v", err)
	}

	dt = mustGetDatatake(t, mem, id)
	if dt.ObservationDurationMicros != 120_000_000 {
		t.Fatalf("core field not updated, got %d", dt.ObservationDurationMicros)
	}
	if len(dt.TicketIds) != 1 || dt.TicketIds[0] != "GSANOM-123" {
		t.Fatalf("link set must survive reconsolidation, got %v", dt.TicketIds)
	}
}
