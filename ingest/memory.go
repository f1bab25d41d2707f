package ingest

import (
	"context"
	"sync"
	"time"

	"bitbucket.org/sgdatafocus/telemetry_backend/models"
)

// MemorySource holds raw batches in memory for tests and local replay.
type MemorySource struct {
	mu      sync.RWMutex
	reports map[string][]models.RawObservation
}

func NewMemorySource() *MemorySource {
	return &MemorySource{reports: make(map[string][]models.RawObservation)}
}

func (s *MemorySource) Add(reportName string, records ...models.RawObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[reportName] = append(s.reports[reportName], records...)
}

func (s *MemorySource) Records(ctx context.Context, reportName string) ([]models.RawObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.reports[reportName]
	out := make([]models.RawObservation, len(records))
	copy(out, records)
	return out, nil
}

func (s *MemorySource) MinTime(ctx context.Context, reportName string, field string) (time.Time, bool, error) {
	records, err := s.Records(ctx, reportName)
	if err != nil {
		return time.Time{}, false, err
	}
	min, ok := MinTimeOf(records, field)
	return min, ok, nil
}
