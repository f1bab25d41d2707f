package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"bitbucket.org/sgdatafocus/telemetry_backend/utils"
)

// ConsolidationRun is the persisted record of one pipeline invocation: a
// named list of reports handed to the consolidation engine.
type ConsolidationRun struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RunUid      string    `gorm:"size:36;uniqueIndex" json:"run_uid"`
	Mission     string    `gorm:"size:16;index" json:"mission"`
	TargetKind  string    `gorm:"size:64" json:"target_kind"`
	ReportNames string    `gorm:"type:text" json:"report_names"` // comma-separated, applied in name order per satellite
	Status      RunStatus `gorm:"size:16;index" json:"status"`

	RecordsConsolidated int    `json:"records_consolidated"`
	ErrorCount          int    `json:"error_count"`
	StatsJSON           []byte `gorm:"type:json" json:"stats_json,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	DurationMs int64      `json:"duration_ms"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConsolidationRunError is one per-record or per-report failure inside a
// run. Failures never abort sibling reports.
type ConsolidationRunError struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RunID     uint      `gorm:"index" json:"run_id"`
	Scope     string    `gorm:"size:32" json:"scope"` // report | record
	Reference string    `gorm:"size:255" json:"reference"`
	Code      string    `gorm:"size:64" json:"code"`
	Message   string    `gorm:"type:text" json:"message"`
	Retryable bool      `json:"retryable"`
	CreatedAt time.Time `json:"created_at"`
}

// MigrateTables creates the run-tracking tables. The document and
// raw-observation tables migrate in their own constructors.
func MigrateTables(db *gorm.DB) error {
	return db.AutoMigrate(&ConsolidationRun{}, &ConsolidationRunError{})
}

func GetConsolidationRunByUid(ctx context.Context, db *gorm.DB, runUid string) (*ConsolidationRun, error) {
	var run ConsolidationRun
	if err := db.WithContext(ctx).Where("run_uid = ?", runUid).Take(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &run, nil
}

func CreateRunError(ctx context.Context, db *gorm.DB, runID uint, scope string, reference string, code string, message string, retryable bool) error {
	rec := ConsolidationRunError{
		RunID:     runID,
		Scope:     scope,
		Reference: reference,
		Code:      code,
		Message:   message,
		Retryable: retryable,
	}
	return db.WithContext(ctx).Create(&rec).Error
}
