package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"bitbucket.org/sgdatafocus/telemetry_backend/models"
)

// rawObservationRow is the landing table written by the extraction layer.
type rawObservationRow struct {
	ID         uint   `gorm:"primaryKey"`
	ReportName string `gorm:"size:255;index"`
	ReportType string `gorm:"size:16"`
	Payload    []byte `gorm:"type:json"`
	CreatedAt  time.Time
}

func (rawObservationRow) TableName() string {
	return "raw_observations"
}

// GormSource reads raw batches from MySQL.
type GormSource struct {
	db *gorm.DB
}

func NewGormSource(db *gorm.DB) (*GormSource, error) {
	if err := db.AutoMigrate(&rawObservationRow{}); err != nil {
		return nil, fmt.Errorf("migrate raw_observations table: %w", err)
	}
	return &GormSource{db: db}, nil
}

func (s *GormSource) Records(ctx context.Context, reportName string) ([]models.RawObservation, error) {
	var rows []rawObservationRow
	err := s.db.WithContext(ctx).
		Where("report_name = ?", reportName).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.RawObservation, 0, len(rows))
	for _, row := range rows {
		var fields map[string]interface{}
		if err := json.Unmarshal(row.Payload, &fields); err != nil {
			return nil, fmt.Errorf("raw observation %d of %q: %w", row.ID, reportName, err)
		}
		obs := models.RawObservation{
			ReportName: row.ReportName,
			Fields:     fields,
		}
		if row.ReportType != "" {
			if periodicity, err := models.ParseReportPeriodicity(row.ReportType); err == nil {
				obs.ReportType = periodicity
			}
		}
		out = append(out, obs)
	}
	return out, nil
}

func (s *GormSource) MinTime(ctx context.Context, reportName string, field string) (time.Time, bool, error) {
	records, err := s.Records(ctx, reportName)
	if err != nil {
		return time.Time{}, false, err
	}
	min, ok := MinTimeOf(records, field)
	return min, ok, nil
}
