package consolidate

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitbucket.org/sgdatafocus/telemetry_backend/completeness"
	"bitbucket.org/sgdatafocus/telemetry_backend/config"
	"bitbucket.org/sgdatafocus/telemetry_backend/models"
	"bitbucket.org/sgdatafocus/telemetry_backend/utils"
)

// Worker executes one consolidation run: reports grouped by satellite,
// each satellite's reports applied sequentially in name order (the
// replace-on-reschedule window depends on it), satellites in parallel.
type Worker struct {
	DB           *gorm.DB
	Engine       *Engine
	Completeness *completeness.Engine
	Logger       *logrus.Logger
}

func NewWorker(db *gorm.DB, engine *Engine, comp *completeness.Engine) *Worker {
	return &Worker{
		DB:           db,
		Engine:       engine,
		Completeness: comp,
		Logger:       config.GetLogger(),
	}
}

// SatelliteOf extracts the satellite unit from a report name; reports are
// named "<SATELLITE>_<TYPE>_..." by the upstream interfaces.
func SatelliteOf(reportName string) string {
	if i := strings.Index(reportName, "_"); i > 0 {
		return reportName[:i]
	}
	return reportName
}

type satelliteGroup struct {
	satellite string
	reports   []string
}

func groupReports(reportNames []string) []satelliteGroup {
	grouped := make(map[string][]string)
	for _, name := range reportNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		sat := SatelliteOf(name)
		grouped[sat] = append(grouped[sat], name)
	}

	sats := make([]string, 0, len(grouped))
	for sat := range grouped {
		sort.Strings(grouped[sat])
		sats = append(sats, sat)
	}
	sort.Strings(sats)

	out := make([]satelliteGroup, 0, len(sats))
	for _, sat := range sats {
		out = append(out, satelliteGroup{satellite: sat, reports: grouped[sat]})
	}
	return out
}

// ProcessRun loads and executes a persisted consolidation run. Already
// finished runs are a no-op, which makes at-least-once delivery of run
// triggers safe.
func (w *Worker) ProcessRun(ctx context.Context, runUid string) error {
	run, err := models.GetConsolidationRunByUid(ctx, w.DB, runUid)
	if err != nil {
		return err
	}
	if run.Status == models.RunStatusSuccess || run.Status == models.RunStatusFailed || run.Status == models.RunStatusPartial {
		return nil
	}

	ctx = utils.SetRunIdInContext(ctx, run.RunUid)

	now := time.Now().UTC()
	startedAt := run.StartedAt
	if startedAt == nil {
		startedAt = &now
	}
	if err := w.DB.WithContext(ctx).Model(run).Updates(map[string]interface{}{
		"status":     models.RunStatusRunning,
		"started_at": startedAt,
	}).Error; err != nil {
		return err
	}

	kind := Kind(run.TargetKind)
	groups := groupReports(strings.Split(run.ReportNames, ","))

	var (
		mu           sync.Mutex
		consolidated int
		errorCount   int
		stats        = make(map[string]int)
		touched      []string
	)

	sem := make(chan struct{}, config.ConsolidationWorkers())
	var wg sync.WaitGroup

	for _, group := range groups {
		wg.Add(1)
		sem <- struct{}{}
		go func(group satelliteGroup) {
			defer wg.Done()
			defer func() { <-sem }()

			gctx := utils.SetSatelliteInContext(ctx, group.satellite)

			for i, reportName := range group.reports {
				next := ""
				if i+1 < len(group.reports) {
					next = group.reports[i+1]
				}

				res, err := w.Engine.ProcessReport(gctx, kind, group.satellite, reportName, next)
				mu.Lock()
				if err != nil {
					errorCount++
					_ = models.CreateRunError(gctx, w.DB, run.ID, "report", reportName, "consolidation_failed", err.Error(), true)
					mu.Unlock()
					// a failed report never aborts its siblings
					continue
				}
				consolidated += res.Consolidated
				errorCount += res.RecordErrors
				stats[reportName] = res.Consolidated
				if kind == KindDatatake {
					touched = append(touched, res.TouchedIDs...)
				}
				mu.Unlock()
			}
		}(group)
	}
	wg.Wait()

	if kind == KindDatatake && config.ChainCompletenessEnabled() && w.Completeness != nil {
		for _, id := range touched {
			if err := w.Completeness.ComputeForDatatakeID(ctx, id); err != nil {
				config.LogError(w.Logger, "consolidate/worker.go", "ProcessRun", "chain completeness", id, err)
				errorCount++
			}
		}
	}

	finishedAt := time.Now().UTC()
	status := models.RunStatusSuccess
	if errorCount > 0 && consolidated == 0 {
		status = models.RunStatusFailed
	} else if errorCount > 0 {
		status = models.RunStatusPartial
	}

	statsJSON, _ := json.Marshal(stats)
	return w.DB.WithContext(ctx).Model(run).Updates(map[string]interface{}{
		"status":               status,
		"finished_at":          finishedAt,
		"duration_ms":          finishedAt.Sub(*startedAt).Milliseconds(),
		"records_consolidated": consolidated,
		"error_count":          errorCount,
		"stats_json":           statsJSON,
	}).Error
}
