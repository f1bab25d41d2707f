package completeness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"bitbucket.org/sgdatafocus/telemetry_backend/config"
	"bitbucket.org/sgdatafocus/telemetry_backend/models"
	"bitbucket.org/sgdatafocus/telemetry_backend/notify"
	"bitbucket.org/sgdatafocus/telemetry_backend/store"
)

// brother-set retrieval window around the entity's observation span
const brotherSetMargin = time.Hour

// Engine computes per-product-type completeness for datatake-like
// entities. Configuration tables are injected once and never mutated.
type Engine struct {
	Store   store.Store
	Tables  *config.Tables
	Emitter *notify.Emitter
	Logger  *logrus.Logger
}

func NewEngine(s store.Store, tables *config.Tables, emitter *notify.Emitter) *Engine {
	return &Engine{
		Store:   s,
		Tables:  tables,
		Emitter: emitter,
		Logger:  config.GetLogger(),
	}
}

// ComputeForDatatakeID recomputes completeness for one stored datatake
// and upserts it (plus any missing-period records) when it changed.
func (e *Engine) ComputeForDatatakeID(ctx context.Context, docID string) error {
	doc, err := e.Store.GetByID(ctx, models.IndexDatatakes, docID)
	if err != nil {
		return err
	}
	if doc == nil {
		config.LogWarn(e.Logger, "completeness/engine.go", "ComputeForDatatakeID", docID, nil,
			"datatake not found; completeness skipped")
		return nil
	}

	dt, err := store.As[models.Datatake](*doc)
	if err != nil {
		return err
	}

	missing, err := e.Compute(ctx, dt)
	if err != nil {
		return err
	}

	after, err := store.DocumentFor(dt)
	if err != nil {
		return err
	}

	var actions []store.Action
	if string(after.Source) != string(doc.Source) {
		actions = append(actions, store.UpsertAction(after))
	}
	for i := range missing {
		mpDoc, err := store.DocumentFor(&missing[i])
		if err != nil {
			return err
		}
		actions = append(actions, store.UpsertAction(mpDoc))
	}
	return e.Emitter.Flush(ctx, actions)
}

// Compute fills the entity's completeness fields in place and returns the
// detected missing periods. The entity is not persisted here.
func (e *Engine) Compute(ctx context.Context, dt *models.Datatake) ([]models.MissingPeriod, error) {
	keys := expectedKeysFor(e.Tables, dt)
	if len(keys) == 0 {
		e.Logger.WithFields(logrus.Fields{
			"module":          "completeness/engine.go",
			"datatake":        dt.Id,
			"instrument_mode": dt.InstrumentMode,
		}).Debug("no expected product types for instrument mode")
		return nil, nil
	}

	brothers, err := e.brotherSet(ctx, dt, keys)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string][]*models.Product)
	for _, p := range brothers {
		byKey[p.ProductType] = append(byKey[p.ProductType], p)
	}

	dt.Completeness = make(map[string]models.CompletenessField, len(keys))
	dt.Levels = make(map[string]models.LevelCompleteness)

	var allMissing []models.MissingPeriod
	levelValue := make(map[string]int64)
	levelExpected := make(map[string]int64)
	var finalValue, finalExpected int64

	for _, key := range keys {
		products := byKey[key.Key]

		var (
			value   int64
			periods []models.Period
		)
		switch key.Basis {
		case config.BasisDuration:
			periods = make([]models.Period, 0, len(products))
			for _, p := range products {
				periods = append(periods, p.SensingPeriod())
			}
			value = models.UnionDurationMicros(periods)
		case config.BasisScenes:
			value = e.countGranules(products)
		case config.BasisTiles:
			value = countDistinctTiles(products)
		}

		expected := expectedValue(e.Tables, dt, key, countDistinctTiles(products))

		adjusted := value
		if value > 0 {
			adjusted += e.Tables.ToleranceFor(dt.Mission, config.ToleranceScopeLocal, key.Key)
			if adjusted < 0 {
				adjusted = 0
			}
		}

		pct := models.Percentage(adjusted, expected)
		field := models.CompletenessField{
			Value:         value,
			Expected:      expected,
			ValueAdjusted: adjusted,
			Percentage:    pct,
			Status:        models.StatusForPercentage(pct, e.Tables.CompleteThreshold),
		}

		if key.Basis == config.BasisDuration && config.DuplicateStatsEnabled() {
			if stats, ok := computeDuplicateStats(periods); ok {
				field.DuplicatedMinDuration = stats.MinDuration
				field.DuplicatedAvgDuration = stats.AvgDuration
				field.DuplicatedMaxDuration = stats.MaxDuration
				field.DuplicatedMinPercentage = stats.MinPercentage
				field.DuplicatedAvgPercentage = stats.AvgPercentage
				field.DuplicatedMaxPercentage = stats.MaxPercentage
			}
		}

		dt.Completeness[key.Key] = field
		levelValue[key.Level] += value
		levelExpected[key.Level] += expected
		finalValue += value
		finalExpected += expected

		if key.Basis == config.BasisDuration && config.MissingPeriodsEnabled() {
			allMissing = append(allMissing, detectMissingPeriods(e.Tables, dt, key.Key, periods)...)
		}
	}

	for level, value := range levelValue {
		pct := models.Percentage(value, levelExpected[level])
		dt.Levels[level] = models.LevelCompleteness{
			Value:      value,
			Expected:   levelExpected[level],
			Percentage: pct,
			Status:     models.StatusForPercentage(pct, e.Tables.CompleteThreshold),
		}
	}

	finalPct := models.Percentage(finalValue, finalExpected)
	dt.FinalCompletenessValue = finalValue
	dt.FinalCompletenessExpected = finalExpected
	dt.FinalCompletenessPercentage = finalPct
	dt.FinalCompletenessStatus = models.StatusForPercentage(finalPct, e.Tables.CompleteThreshold)

	return allMissing, nil
}

// brotherSet fetches the products sharing the entity's satellite and time
// scope, restricted to the expected product types. A missing product
// index means nothing was delivered yet.
func (e *Engine) brotherSet(ctx context.Context, dt *models.Datatake, keys []expectedKey) ([]*models.Product, error) {
	typeKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		typeKeys = append(typeKeys, key.Key)
	}

	gte := dt.ObservationTimeStart.Add(-brotherSetMargin)
	lt := dt.ObservationTimeStop.Add(brotherSetMargin)
	q := store.Query{
		Index:    models.IndexProducts,
		Terms:    map[string]string{"satellite_unit": dt.Satellite},
		TermsAny: map[string][]string{"product_type": typeKeys},
		Ranges: []store.RangeFilter{
			{Field: "sensing_start_date", GTE: &gte, LT: &lt},
		},
	}

	products, err := store.SearchAs[models.Product](ctx, e.Store, q)
	if errors.Is(err, store.ErrIndexMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("brother set for %s: %w", dt.Id, err)
	}
	return products, nil
}

// countGranules counts distinct logical granules: one group per detector
// id and start-time bucket, so reprocessed granules with nearly identical
// start times collapse into one.
func (e *Engine) countGranules(products []*models.Product) int64 {
	tol := e.Tables.GranuleGroupingToleranceMicros
	if tol <= 0 {
		tol = 1
	}
	type groupKey struct {
		detector string
		bucket   int64
	}
	groups := make(map[groupKey]struct{})
	for _, p := range products {
		groups[groupKey{
			detector: p.DetectorId,
			bucket:   p.SensingStart.UnixMicro() / tol,
		}] = struct{}{}
	}
	return int64(len(groups))
}

func countDistinctTiles(products []*models.Product) int64 {
	tiles := make(map[string]struct{})
	for _, p := range products {
		if p.TileNumber == "" {
			continue
		}
		tiles[p.TileNumber] = struct{}{}
	}
	return int64(len(tiles))
}
