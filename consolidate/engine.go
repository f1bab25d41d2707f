package consolidate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"bitbucket.org/sgdatafocus/telemetry_backend/config"
	"bitbucket.org/sgdatafocus/telemetry_backend/ingest"
	"bitbucket.org/sgdatafocus/telemetry_backend/models"
	"bitbucket.org/sgdatafocus/telemetry_backend/notify"
	"bitbucket.org/sgdatafocus/telemetry_backend/store"
	"bitbucket.org/sgdatafocus/telemetry_backend/utils"
)

// Engine converts one report at a time into upsert/delete actions against
// the document store. Reports for the same satellite must be applied in
// report-name order; the worker enforces that.
type Engine struct {
	Store   store.Store
	Source  ingest.ReportSource
	Tables  *config.Tables
	Emitter *notify.Emitter
	Logger  *logrus.Logger
}

func NewEngine(s store.Store, source ingest.ReportSource, tables *config.Tables, emitter *notify.Emitter) *Engine {
	return &Engine{
		Store:   s,
		Source:  source,
		Tables:  tables,
		Emitter: emitter,
		Logger:  config.GetLogger(),
	}
}

// ReportResult summarizes one processed report.
type ReportResult struct {
	ReportName   string
	Consolidated int
	Deleted      int
	Skipped      int
	RecordErrors int

	// ids of upserted entities, used for completeness chaining
	TouchedIDs []string
}

// ProcessReport runs the consolidation protocol for one report:
// determine the report window, delete superseded entities in it, re-derive
// entities from the raw records, and emit deletes before upserts.
// nextReportName is the following report for the same satellite in name
// order, empty when the window is open-ended.
func (e *Engine) ProcessReport(ctx context.Context, kind Kind, satellite string, reportName string, nextReportName string) (*ReportResult, error) {
	result := &ReportResult{ReportName: reportName}

	spec, err := SpecFor(kind)
	if err != nil {
		// unrecognized target kind: fatal configuration error, batch abandoned
		config.LogError(e.Logger, "consolidate/engine.go", "ProcessReport", reportName, string(kind), err)
		return nil, err
	}

	records, err := e.Source.Records(ctx, reportName)
	if err != nil {
		return nil, fmt.Errorf("enumerate report %q: %w", reportName, err)
	}
	if len(records) == 0 {
		e.Logger.WithFields(logrus.Fields{
			"module": "consolidate/engine.go",
			"report": reportName,
		}).Info("report contributes no raw records; skipping")
		return result, nil
	}

	reportType := records[0].ReportType
	if reportType == "" {
		reportType = models.ReportPeriodicityDaily
	}

	rc := NewReportContext(e.Tables, missionOf(satellite), satellite, reportName, reportType)
	rc.LearnStations(records)

	minDate, ok := ingest.MinTimeOf(records, spec.TimeField)
	if !ok {
		return nil, fmt.Errorf("report %q: no record carries time field %q", reportName, spec.TimeField)
	}

	var maxDate *time.Time
	if nextReportName != "" {
		next, ok, err := e.Source.MinTime(ctx, nextReportName, spec.TimeField)
		if err != nil {
			return nil, fmt.Errorf("window bound from report %q: %w", nextReportName, err)
		}
		if ok {
			maxDate = &next
		}
	}

	windowDocs, err := e.searchWindow(ctx, spec, satellite, minDate, maxDate)
	if err != nil {
		return nil, err
	}

	order, entities := e.deriveEntities(rc, spec, records, maxDate, result)

	actions, err := e.buildActions(ctx, spec, reportType, reportName, windowDocs, order, entities, result)
	if err != nil {
		return nil, err
	}

	if err := e.Emitter.Flush(ctx, actions); err != nil {
		return nil, fmt.Errorf("emit report %q: %w", reportName, err)
	}
	return result, nil
}

// searchWindow fetches the currently consolidated entities of the
// satellite whose time field falls inside [minDate, maxDate). A missing
// index means nothing was consolidated yet.
func (e *Engine) searchWindow(ctx context.Context, spec KindSpec, satellite string, minDate time.Time, maxDate *time.Time) ([]store.Document, error) {
	q := store.Query{
		Index: spec.Index,
		Terms: map[string]string{"satellite_unit": satellite},
		Ranges: []store.RangeFilter{
			{Field: spec.EntityTimeField, GTE: &minDate, LT: maxDate},
		},
	}
	docs, err := e.Store.Search(ctx, q)
	if errors.Is(err, store.ErrIndexMissing) {
		return nil, nil
	}
	return docs, err
}

// deriveEntities maps every in-window raw record (after expansion) to its
// entity. A record failing identity or mapping is logged and skipped; the
// batch continues.
func (e *Engine) deriveEntities(rc *ReportContext, spec KindSpec, records []models.RawObservation, maxDate *time.Time, result *ReportResult) ([]string, map[string]models.Entity) {
	var order []string
	entities := make(map[string]models.Entity)

	for _, raw := range records {
		if ts, ok := raw.GetTime(spec.TimeField); ok && maxDate != nil && !ts.Before(*maxDate) {
			continue
		}

		variants := []models.RawObservation{raw}
		if spec.Expand != nil {
			variants = spec.Expand(rc, raw)
		}

		for _, variant := range variants {
			id, err := ResolveID(spec.IdentityFields, variant)
			if err != nil {
				config.LogWarn(e.Logger, "consolidate/engine.go", "deriveEntities", RecordRef(variant), nil, err.Error())
				result.RecordErrors++
				continue
			}

			ent, err := spec.Map(rc, variant)
			if err != nil {
				var missing *utils.MissingFieldError
				if errors.As(err, &missing) {
					config.LogWarn(e.Logger, "consolidate/engine.go", "deriveEntities", RecordRef(variant), nil, err.Error())
					result.RecordErrors++
					continue
				}
				config.LogError(e.Logger, "consolidate/engine.go", "deriveEntities", RecordRef(variant), nil, err)
				result.RecordErrors++
				continue
			}
			if ent == nil {
				result.Skipped++
				continue
			}

			ent.SetEntityID(id)
			if _, seen := entities[id]; !seen {
				order = append(order, id)
			}
			entities[id] = ent
		}
	}
	return order, entities
}

// buildActions merges derived entities with their stored versions under
// the periodicity override policy, emits upserts only for entities that
// actually changed, and deletes the superseded window remainder first.
func (e *Engine) buildActions(ctx context.Context, spec KindSpec, reportType models.ReportPeriodicity, reportName string, windowDocs []store.Document, order []string, entities map[string]models.Entity, result *ReportResult) ([]store.Action, error) {
	existingDocs, err := e.Store.MultiGetByIDs(ctx, spec.Index, order, true)
	if err != nil {
		return nil, err
	}
	existingByID := make(map[string]*store.Document, len(order))
	for i, id := range order {
		existingByID[id] = existingDocs[i]
	}

	var actions []store.Action

	// replace-on-reschedule: everything in the window not re-derived by
	// this report is superseded
	for _, doc := range windowDocs {
		if _, kept := entities[doc.ID]; !kept {
			actions = append(actions, store.DeleteAction(spec.Index, doc.ID))
			result.Deleted++
		}
	}

	for _, id := range order {
		merged, changed, err := mergeEntity(entities[id], existingByID[id], reportType, reportName, e.Tables)
		if err != nil {
			return nil, err
		}
		if !changed {
			continue
		}
		actions = append(actions, store.UpsertAction(merged))
		result.Consolidated++
		result.TouchedIDs = append(result.TouchedIDs, id)
	}
	return actions, nil
}

// mergeEntity applies the periodicity override policy: a tier at or above
// the stored report_type overwrites the core fields; a lower tier only
// records its provenance slot. Link-set and completeness fields are never
// produced by mapping, so the stored values survive the overlay.
func mergeEntity(ent models.Entity, existing *store.Document, tier models.ReportPeriodicity, reportName string, tables *config.Tables) (store.Document, bool, error) {
	mappedDoc, err := store.DocumentFor(ent)
	if err != nil {
		return store.Document{}, false, err
	}
	var mapped map[string]interface{}
	if err := json.Unmarshal(mappedDoc.Source, &mapped); err != nil {
		return store.Document{}, false, err
	}
	delete(mapped, "updateTime")
	delete(mapped, "report_type")

	reportNameField := "report_name_" + string(tier)

	if existing == nil {
		mapped["report_type"] = string(tier)
		mapped[reportNameField] = reportName
		mapped["updateTime"] = time.Now().UTC().Format(time.RFC3339Nano)
		body, err := json.Marshal(mapped)
		if err != nil {
			return store.Document{}, false, err
		}
		return store.Document{Index: mappedDoc.Index, ID: mappedDoc.ID, Source: body}, true, nil
	}

	var current map[string]interface{}
	if err := json.Unmarshal(existing.Source, &current); err != nil {
		return store.Document{}, false, err
	}

	merged := make(map[string]interface{}, len(current)+len(mapped))
	for k, v := range current {
		merged[k] = v
	}

	currentType, _ := current["report_type"].(string)
	if tables.PeriodicityRank(string(tier)) >= tables.PeriodicityRank(currentType) {
		for k, v := range mapped {
			merged[k] = v
		}
		merged["report_type"] = string(tier)
	}
	merged[reportNameField] = reportName

	if utils.JSONEqual(merged, current) {
		return store.Document{}, false, nil
	}

	merged["updateTime"] = time.Now().UTC().Format(time.RFC3339Nano)
	body, err := json.Marshal(merged)
	if err != nil {
		return store.Document{}, false, err
	}
	return store.Document{Index: mappedDoc.Index, ID: mappedDoc.ID, Source: body}, true, nil
}
