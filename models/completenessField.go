package models

// CompletenessField is the per (entity, product-type-key) result of the
// completeness computation. Durations and counts are integer microseconds
// or unit counts depending on the key's basis; percentages are floats and
// may exceed 100 (over-delivery).
type CompletenessField struct {
	Value         int64              `json:"local_value"`
	Expected      int64              `json:"local_expected"`
	ValueAdjusted int64              `json:"local_value_adjusted"`
	Percentage    float64            `json:"local_percentage"`
	Status        CompletenessStatus `json:"local_status"`

	// duplicate-coverage diagnostics, dataset keys only
	DuplicatedMinDuration   int64   `json:"duplicated_min_duration,omitempty"`
	DuplicatedAvgDuration   int64   `json:"duplicated_avg_duration,omitempty"`
	DuplicatedMaxDuration   int64   `json:"duplicated_max_duration,omitempty"`
	DuplicatedMinPercentage float64 `json:"duplicated_min_percentage,omitempty"`
	DuplicatedAvgPercentage float64 `json:"duplicated_avg_percentage,omitempty"`
	DuplicatedMaxPercentage float64 `json:"duplicated_max_percentage,omitempty"`
}

// LevelCompleteness is the roll-up of the sub-type fields within one
// product level.
type LevelCompleteness struct {
	Value      int64              `json:"value"`
	Expected   int64              `json:"expected"`
	Percentage float64            `json:"percentage"`
	Status     CompletenessStatus `json:"status"`
}

// StatusForPercentage derives the monotone threshold-based status.
func StatusForPercentage(percentage float64, completeThreshold float64) CompletenessStatus {
	switch {
	case percentage == 0:
		return CompletenessStatusMissing
	case percentage >= completeThreshold:
		return CompletenessStatusComplete
	default:
		return CompletenessStatusPartial
	}
}

// Percentage computes value_adjusted/expected*100, zero when nothing is
// expected. Never negative.
func Percentage(valueAdjusted int64, expected int64) float64 {
	if expected <= 0 {
		return 0
	}
	p := float64(valueAdjusted) / float64(expected) * 100
	if p < 0 {
		return 0
	}
	return p
}
