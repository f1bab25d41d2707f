package models

import (
	"fmt"
	"sort"
	"time"
)

// Period is a closed-open time interval [Start, End). Durations are integer
// microseconds throughout the completeness computation.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewPeriod(start time.Time, end time.Time) Period {
	if end.Before(start) {
		start, end = end, start
	}
	return Period{Start: start.UTC(), End: end.UTC()}
}

// DurationMicros returns End-Start in microseconds.
func (p Period) DurationMicros() int64 {
	return p.End.Sub(p.Start).Microseconds()
}

func (p Period) IsZero() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Overlaps reports whether the two intervals share any time, adjacency not
// included.
func (p Period) Overlaps(other Period) bool {
	return p.Start.Before(other.End) && other.Start.Before(p.End)
}

// Intersect returns the overlap of two periods and whether it is non-empty.
func (p Period) Intersect(other Period) (Period, bool) {
	if !p.Overlaps(other) {
		return Period{}, false
	}
	start := p.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := p.End
	if other.End.Before(end) {
		end = other.End
	}
	return Period{Start: start, End: end}, true
}

func (p Period) String() string {
	return fmt.Sprintf("[%s, %s)", p.Start.Format(time.RFC3339Nano), p.End.Format(time.RFC3339Nano))
}

// MergePeriods sorts the periods by start time and merges overlapping or
// adjacent ones into a minimal disjoint cover.
func MergePeriods(periods []Period) []Period {
	if len(periods) == 0 {
		return nil
	}
	sorted := make([]Period, len(periods))
	copy(sorted, periods)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []Period{sorted[0]}
	for _, p := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !p.Start.After(last.End) {
			if p.End.After(last.End) {
				last.End = p.End
			}
			continue
		}
		merged = append(merged, p)
	}
	return merged
}

// UnionDurationMicros is the total covered duration of the periods with
// overlaps counted once. Overlapping reprocessed products must not
// double-count.
func UnionDurationMicros(periods []Period) int64 {
	var total int64
	for _, p := range MergePeriods(periods) {
		total += p.DurationMicros()
	}
	return total
}

// CoverageGaps returns the uncovered sub-periods of span, given an
// arbitrary set of observed periods. Gaps shorter than minGapMicros are
// dropped.
func CoverageGaps(span Period, observed []Period, minGapMicros int64) []Period {
	merged := MergePeriods(observed)
	var gaps []Period
	cursor := span.Start
	for _, p := range merged {
		if p.End.Before(span.Start) || !p.Start.Before(span.End) {
			continue
		}
		if p.Start.After(cursor) {
			gap := Period{Start: cursor, End: p.Start}
			if gap.End.After(span.End) {
				gap.End = span.End
			}
			if gap.DurationMicros() > minGapMicros {
				gaps = append(gaps, gap)
			}
		}
		if p.End.After(cursor) {
			cursor = p.End
		}
	}
	if cursor.Before(span.End) {
		gap := Period{Start: cursor, End: span.End}
		if gap.DurationMicros() > minGapMicros {
			gaps = append(gaps, gap)
		}
	}
	return gaps
}
