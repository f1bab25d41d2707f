package consolidate

import (
	"github.com/sirupsen/logrus"

	"bitbucket.org/sgdatafocus/telemetry_backend/config"
	"bitbucket.org/sgdatafocus/telemetry_backend/models"
)

// ReportContext is the explicit per-report state threaded through mapping.
// Never shared across reports; the deduced-station cache in particular is
// only meaningful within one report batch.
type ReportContext struct {
	Tables     *config.Tables
	Logger     *logrus.Logger
	Mission    string
	Satellite  string
	ReportName string
	ReportType models.ReportPeriodicity

	// session id -> ground station deduced from a corroborating record of
	// the same report
	deducedStations map[string]string
}

func NewReportContext(tables *config.Tables, mission string, satellite string, reportName string, reportType models.ReportPeriodicity) *ReportContext {
	return &ReportContext{
		Tables:          tables,
		Logger:          config.GetLogger(),
		Mission:         mission,
		Satellite:       satellite,
		ReportName:      reportName,
		ReportType:      reportType,
		deducedStations: make(map[string]string),
	}
}

// LearnStations fills the deduced-station cache from records that do carry
// a station, keyed by session id, before ambiguity resolution runs.
func (rc *ReportContext) LearnStations(records []models.RawObservation) {
	for _, rec := range records {
		session, ok := rec.GetString("session_id")
		if !ok || session == "" {
			continue
		}
		station, ok := rec.GetString("ground_station")
		if !ok || station == "" {
			continue
		}
		rc.deducedStations[session] = station
	}
}

func (rc *ReportContext) DeducedStation(sessionId string) (string, bool) {
	station, ok := rc.deducedStations[sessionId]
	return station, ok
}
