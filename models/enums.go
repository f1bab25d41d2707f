package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

type CompletenessStatus string

const (
	CompletenessStatusMissing  CompletenessStatus = "Missing"
	CompletenessStatusPartial  CompletenessStatus = "Partial"
	CompletenessStatusComplete CompletenessStatus = "Complete"
)

// ReportPeriodicity is the freshness/scope tier of a mission-planning
// report. daily < weekly < monthly.
type ReportPeriodicity string

const (
	ReportPeriodicityDaily   ReportPeriodicity = "daily"
	ReportPeriodicityWeekly  ReportPeriodicity = "weekly"
	ReportPeriodicityMonthly ReportPeriodicity = "monthly"
)

func ParseReportPeriodicity(s string) (ReportPeriodicity, error) {
	switch ReportPeriodicity(s) {
	case ReportPeriodicityDaily, ReportPeriodicityWeekly, ReportPeriodicityMonthly:
		return ReportPeriodicity(s), nil
	default:
		return "", fmt.Errorf("invalid report periodicity %q", s)
	}
}

type RunStatus string

const (
	RunStatusPending RunStatus = "PENDING"
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusPartial RunStatus = "PARTIAL"
	RunStatusFailed  RunStatus = "FAILED"
)

func (s RunStatus) Value() (driver.Value, error) {
	return string(s), nil
}

func (s *RunStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*s = RunStatus(v)
	case []byte:
		*s = RunStatus(v)
	default:
		return errors.New("run status must be string")
	}
	return nil
}

// StationType distinguishes acquisition-pass schemas; X-Band and EDRS
// passes live in different entity classes with different query filters.
type StationType string

const (
	StationTypeXBand StationType = "X-Band"
	StationTypeEdrs  StationType = "EDRS"
)

// StationTypeOf classifies a station segment of a pass key. EDRS relays
// are named "EDRS-A"/"EDRS-C"; everything else is a ground-station
// antenna reached over X-Band.
func StationTypeOf(station string) StationType {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(station)), "EDRS") {
		return StationTypeEdrs
	}
	return StationTypeXBand
}
