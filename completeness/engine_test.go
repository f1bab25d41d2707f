package completeness

import (
	"context"
	"fmt"
	"testing"
	"time"

	"bitbucket.org/sgdatafocus/telemetry_backend/config"
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

func newTestEngine(t *testing.T) (*Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	tables := testTables(t)
	return NewEngine(mem, tables, notify.NewEmitter(mem, notify.NewLogNotifier())), mem
}

func at(sec int) time.Time {
	return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(sec) * time.Second)
}

func testDatatake(spanSeconds int) *models.Datatake {
	dt := &models.Datatake{
		DatatakeId:                "372088",
		InstrumentMode:            "IW",
		ObservationTimeStart:      at(0),
		ObservationTimeStop:       at(spanSeconds),
		ObservationDurationMicros: int64(spanSeconds) * 1_000_000,
	}
	dt.Id = "dt-372088"
	dt.Mission = "S1"
	dt.Satellite = "S1A"
	return dt
}

func seedProducts(t *testing.T, mem *store.Memory, products ...*models.Product) {
	t.Helper()
	docs := make([]store.Document, 0, len(products))
	for i, p := range products {
		if p.Id == "" {
			p.Id = fmt.Sprintf("product-%d", i)
		}
		doc, err := store.DocumentFor(p)
		if err != nil {
			t.Fatalf("product document: %v", err)
		}
		docs = append(docs, doc)
	}
	if err := mem.BulkUpsert(context.Background(), docs); err != nil {
		t.Fatalf("seed products: %v", err)
	}
}

func dsProduct(name string, startSec int, stopSec int) *models.Product {
	p := &models.Product{
		Name:         name,
		ProductType:  "L0__DS",
		SensingStart: at(startSec),
		SensingStop:  at(stopSec),
	}
	p.Id = name
	p.Satellite = "S1A"
	p.Mission = "S1"
	return p
}

func TestCompute_FullCoverageIsComplete(t *testing.T) {
	engine, mem := newTestEngine(t)
	dt := testDatatake(60)
	seedProducts(t, mem, dsProduct("DS-1", 0, 60))

	if _, err := engine.Compute(context.Background(), dt); err != nil {
		t.Fatalf("Compute error: %v", err)
	}

	field, ok := dt.Completeness["L0__DS"]
	if !ok {
		t.Fatalf("expected L0__DS completeness field, got %v", dt.Completeness)
	}
	if field.Value != 60_000_000 {
		t.Fatalf("expected 60s value, got %d", field.Value)
	}
	if field.Expected != 60_000_000 {
		t.Fatalf("expected 60s expectation, got %d", field.Expected)
	}
	if field.Status != models.CompletenessStatusComplete {
		t.Fatalf("expected Complete, got %s (pct=%v)", field.Status, field.Percentage)
	}
	if dt.FinalCompletenessStatus != models.CompletenessStatusComplete {
		t.Fatalf("final status expected Complete, got %s", dt.FinalCompletenessStatus)
	}
}

func TestCompute_OverlappingProductsUnionNotSum(t *testing.T) {
	engine, mem := newTestEngine(t)
	dt := testDatatake(15)
	// [0,10) and [5,15): 15 seconds covered, not 20
	seedProducts(t, mem, dsProduct("DS-1", 0, 10), dsProduct("DS-2", 5, 15))

	if _, err := engine.Compute(context.Background(), dt); err != nil {
		t.Fatalf("Compute error: %v", err)
	}

	field := dt.Completeness["L0__DS"]
	if field.Value != 15_000_000 {
		t.Fatalf("overlap double-counted: expected 15s, got %d micros", field.Value)
	}
	if field.DuplicatedMaxDuration != 5_000_000 {
		t.Fatalf("expected 5s duplicate overlap, got %d", field.DuplicatedMaxDuration)
	}
}

func TestCompute_NoProductsIsMissing(t *testing.T) {
	engine, _ := newTestEngine(t)
	dt := testDatatake(60)

	if _, err := engine.Compute(context.Background(), dt); err != nil {
		t.Fatalf("Compute error: %v", err)
	}

	field := dt.Completeness["L0__DS"]
	if field.Value != 0 || field.ValueAdjusted != 0 {
		t.Fatalf("no products must stay at zero, got %+v", field)
	}
	if field.Status != models.CompletenessStatusMissing {
		t.Fatalf("expected Missing, got %s", field.Status)
	}
	if dt.FinalCompletenessStatus != models.CompletenessStatusMissing {
		t.Fatalf("final status expected Missing, got %s", dt.FinalCompletenessStatus)
	}
}

func TestCompute_PartialCoverage(t *testing.T) {
	engine, mem := newTestEngine(t)
	dt := testDatatake(100)
	seedProducts(t, mem, dsProduct("DS-1", 0, 40))

	if _, err := engine.Compute(context.Background(), dt); err != nil {
		t.Fatalf("Compute error: %v", err)
	}

	field := dt.Completeness["L0__DS"]
	if field.Status != models.CompletenessStatusPartial {
		t.Fatalf("expected Partial, got %s (pct=%v)", field.Status, field.Percentage)
	}
	// 40s + 1s local tolerance over 100s expected
	if field.Percentage != 41 {
		t.Fatalf("expected 41%%, got %v", field.Percentage)
	}
}

func TestCompute_MissingPeriodDetection(t *testing.T) {
	t.Setenv("ENABLE_MISSING_PERIODS", "true")

	engine, mem := newTestEngine(t)
	dt := testDatatake(100)
	seedProducts(t, mem, dsProduct("DS-1", 0, 40))

	missing, err := engine.Compute(context.Background(), dt)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if len(missing) != 1 {
		t.Fatalf("expected 1 missing period, got %d: %v", len(missing), missing)
	}
	mp := missing[0]
	if !mp.PeriodStart.Equal(at(40)) || !mp.PeriodStop.Equal(at(100)) {
		t.Fatalf("missing period bounds wrong: %+v", mp)
	}
	if mp.DurationMicros != 60_000_000 {
		t.Fatalf("expected 60s missing, got %d", mp.DurationMicros)
	}
	if mp.ProductType != "L0__DS" {
		t.Fatalf("expected L0__DS, got %q", mp.ProductType)
	}

	// re-detection of the same gap must reuse the same identifier
	again, err := engine.Compute(context.Background(), dt)
	if err != nil {
		t.Fatalf("second Compute error: %v", err)
	}
	if len(again) != 1 || again[0].Id != mp.Id {
		t.Fatalf("missing period id must be stable across recomputation")
	}
}

func TestExpectedKeysFor_SceneGateRestrictsLevels(t *testing.T) {
	tables := testTables(t)

	dt := &models.Datatake{InstrumentMode: "NOBS", NumberOfScenes: 1}
	dt.Mission = "S2"
	levels := ExpectedLevelNames(tables, dt)
	if len(levels) != 1 || levels[0] != "L0_" {
		t.Fatalf("below the scene gate only the lowest level is expected, got %v", levels)
	}

	dt.NumberOfScenes = 4
	levels = ExpectedLevelNames(tables, dt)
	if len(levels) != 4 {
		t.Fatalf("expected all four S2 NOBS levels, got %v", levels)
	}
}

func TestCountGranules_BucketsNearbyStarts(t *testing.T) {
	engine, _ := newTestEngine(t)

	mk := func(detector string, startMicros int64) *models.Product {
		return &models.Product{
			DetectorId:   detector,
			SensingStart: time.UnixMicro(startMicros).UTC(),
		}
	}
	products := []*models.Product{
		mk("D01", 1_000_000),
		mk("D01", 1_000_300), // same bucket as the first: reprocessed duplicate
		mk("D01", 2_000_000),
		mk("D02", 1_000_000),
	}
	if got := engine.countGranules(products); got != 3 {
		t.Fatalf("expected 3 distinct granule groups, got %d", got)
	}
}

func TestComputeForDatatakeID_PersistsChangedEntity(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	dt := testDatatake(60)
	doc, err := store.DocumentFor(dt)
	if err != nil {
		t.Fatalf("datatake document: %v", err)
	}
	if err := mem.BulkUpsert(ctx, []store.Document{doc}); err != nil {
		t.Fatalf("seed datatake: %v", err)
	}
	seedProducts(t, mem, dsProduct("DS-1", 0, 60))

	if err := engine.ComputeForDatatakeID(ctx, dt.Id); err != nil {
		t.Fatalf("ComputeForDatatakeID error: %v", err)
	}

	stored, err := store.GetAs[models.Datatake](ctx, mem, models.IndexDatatakes, dt.Id)
	if err != nil {
		t.Fatalf("get datatake: %v", err)
	}
	if stored.FinalCompletenessStatus != models.CompletenessStatusComplete {
		t.Fatalf("persisted datatake not recomputed: %+v", stored.FinalCompletenessStatus)
	}

	// unknown ids are a warning, not an error
	if err := engine.ComputeForDatatakeID(ctx, "no-such-datatake"); err != nil {
		t.Fatalf("unknown datatake must not error, got %v", err)
	}
}
