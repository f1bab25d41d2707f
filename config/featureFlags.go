package config

import (
	"os"
	"strconv"
	"strings"
)

// MissingPeriodsEnabled gates the diagnostic missing-period pass of the
// completeness engine.
//
// Set via env:
// - ENABLE_MISSING_PERIODS=true
func MissingPeriodsEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("ENABLE_MISSING_PERIODS")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// DuplicateStatsEnabled gates the duplicate-coverage statistics computed
// for dataset-style product keys. On by default; they are diagnostic only.
//
// Set via env:
// - ENABLE_DUPLICATE_STATS=false
func DuplicateStatsEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("ENABLE_DUPLICATE_STATS")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// ChainCompletenessEnabled makes a consolidation run recompute completeness
// for the datatakes it touched, matching the original pipeline chaining.
// On by default.
//
// Set via env:
// - CHAIN_COMPLETENESS=false
func ChainCompletenessEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("CHAIN_COMPLETENESS")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// ConsolidationWorkers bounds the satellite-level parallelism of a
// consolidation run. Reports for one satellite always apply sequentially.
//
// Set via env:
// - CONSOLIDATION_WORKERS=8
func ConsolidationWorkers() int {
	v := strings.TrimSpace(os.Getenv("CONSOLIDATION_WORKERS"))
	if v == "" {
		return 4
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 4
	}
	return n
}
