package completeness

import (
	"bitbucket.org/sgdatafocus/telemetry_backend/models"
)

// duplicateStats measures how much dataset periods covering the same
// nominal span overlap each other: min/avg/max overlap duration and the
// overlap as a percentage of the shorter period. Diagnostic only, never
// part of the completeness percentage.
type duplicateStats struct {
	MinDuration   int64
	AvgDuration   int64
	MaxDuration   int64
	MinPercentage float64
	AvgPercentage float64
	MaxPercentage float64
}

func computeDuplicateStats(periods []models.Period) (duplicateStats, bool) {
	var (
		stats     duplicateStats
		durations []int64
		pcts      []float64
	)

	for i := 0; i < len(periods); i++ {
		for j := i + 1; j < len(periods); j++ {
			overlap, ok := periods[i].Intersect(periods[j])
			if !ok {
				continue
			}
			d := overlap.DurationMicros()
			durations = append(durations, d)

			ref := periods[i].DurationMicros()
			if other := periods[j].DurationMicros(); other < ref {
				ref = other
			}
			if ref > 0 {
				pcts = append(pcts, float64(d)/float64(ref)*100)
			}
		}
	}

	if len(durations) == 0 {
		return stats, false
	}

	var sumD int64
	stats.MinDuration = durations[0]
	stats.MaxDuration = durations[0]
	for _, d := range durations {
		sumD += d
		if d < stats.MinDuration {
			stats.MinDuration = d
		}
		if d > stats.MaxDuration {
			stats.MaxDuration = d
		}
	}
	stats.AvgDuration = sumD / int64(len(durations))

	if len(pcts) > 0 {
		var sumP float64
		stats.MinPercentage = pcts[0]
		stats.MaxPercentage = pcts[0]
		for _, p := range pcts {
			sumP += p
			if p < stats.MinPercentage {
				stats.MinPercentage = p
			}
			if p > stats.MaxPercentage {
				stats.MaxPercentage = p
			}
		}
		stats.AvgPercentage = sumP / float64(len(pcts))
	}

	return stats, true
}
