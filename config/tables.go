package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Mission configuration tables consumed by the consolidation and
// completeness engines. Loaded once at startup, optionally overridden from
// CONFIG_TABLES_PATH, validated, then never mutated.

const (
	ToleranceScopeGlobal = "global"
	ToleranceScopeLocal  = "local"
)

// Expectation bases for a product sub-type.
const (
	BasisDuration = "duration" // expected = observation duration (microseconds)
	BasisScenes   = "scenes"   // expected = number_of_scenes * PerScene
	BasisTiles    = "tiles"    // expected = tile count from the reference footprint
)

type SubTypeExpectation struct {
	Key      string `json:"key" validate:"required,oneof=DS GR TL TC"`
	Basis    string `json:"basis" validate:"required,oneof=duration scenes tiles"`
	PerScene int64  `json:"per_scene,omitempty"`
}

type LevelExpectation struct {
	Level    string               `json:"level" validate:"required"`
	SubTypes []SubTypeExpectation `json:"sub_types" validate:"required,min=1,dive"`
}

type ToleranceRule struct {
	Pattern string `json:"pattern" validate:"required"`
	Slice   int64  `json:"slice"`

	rx *regexp.Regexp
}

type StationPair struct {
	Nominal string `json:"nominal" validate:"required"`
	Backup  string `json:"backup" validate:"required"`
}

type Tables struct {
	// mission -> instrument mode -> ordered product levels
	ExpectedProducts map[string]map[string][]LevelExpectation `json:"expected_products" validate:"required,dive,dive,dive"`

	// mission -> scope (global/local) -> ordered tolerance rules, first
	// regex match on the product-type key wins
	Tolerances map[string]map[string][]ToleranceRule `json:"tolerances"`

	// satellite -> nominal/backup ground stations, used when an
	// acquisition record cannot be disambiguated
	StationPairs map[string]StationPair `json:"station_pairs" validate:"dive"`

	// report periodicity rank, daily < weekly < monthly
	PeriodicityRanks map[string]int `json:"periodicity_ranks" validate:"required"`

	// datatakes of these missions are addressed directly by document id;
	// other missions resolve through a datatake_id field search
	FlatDatatakeIdMissions []string `json:"flat_datatake_id_missions"`

	// percentage at or above which a completeness field is Complete
	CompleteThreshold float64 `json:"complete_threshold" validate:"gt=0"`

	// datatakes with fewer logical scenes only expect the lowest level
	SceneLevelGate int64 `json:"scene_level_gate" validate:"gte=0"`

	// granules whose start times differ by less than this collapse into
	// one logical group (microseconds)
	GranuleGroupingToleranceMicros int64 `json:"granule_grouping_tolerance_micros" validate:"gte=0"`

	// coverage gaps shorter than this are not reported as missing periods
	// (microseconds)
	MissingPeriodMaxOffsetMicros int64 `json:"missing_period_max_offset_micros" validate:"gte=0"`
}

var (
	tables     *Tables
	tablesOnce sync.Once
	tablesErr  error
)

// GetTables loads, validates and caches the mission tables.
func GetTables() (*Tables, error) {
	tablesOnce.Do(func() {
		tables, tablesErr = loadTables()
	})
	return tables, tablesErr
}

func loadTables() (*Tables, error) {
	t := DefaultTables()

	if path := strings.TrimSpace(os.Getenv("CONFIG_TABLES_PATH")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config tables %q: %w", path, err)
		}
		if err := json.Unmarshal(raw, t); err != nil {
			return nil, fmt.Errorf("parse config tables %q: %w", path, err)
		}
	}

	if err := t.Compile(); err != nil {
		return nil, err
	}
	return t, nil
}

// Compile validates the tables and compiles the tolerance regexes. Must be
// called before any lookup.
func (t *Tables) Compile() error {
	validate := validator.New()
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("config tables invalid: %w", err)
	}
	for mission, scopes := range t.Tolerances {
		for scope, rules := range scopes {
			for i := range rules {
				rx, err := regexp.Compile(rules[i].Pattern)
				if err != nil {
					return fmt.Errorf("tolerance pattern %q (%s/%s): %w", rules[i].Pattern, mission, scope, err)
				}
				rules[i].rx = rx
			}
			scopes[scope] = rules
		}
	}
	return nil
}

// ExpectedLevels returns the ordered level expectations for an instrument
// mode, restricted to the lowest level when the scene count is below the
// gate.
func (t *Tables) ExpectedLevels(mission string, instrumentMode string, numberOfScenes int64) []LevelExpectation {
	modes, ok := t.ExpectedProducts[mission]
	if !ok {
		return nil
	}
	levels, ok := modes[strings.ToUpper(strings.TrimSpace(instrumentMode))]
	if !ok || len(levels) == 0 {
		return nil
	}
	if numberOfScenes < t.SceneLevelGate {
		return levels[:1]
	}
	return levels
}

// ToleranceFor returns the signed tolerance slice for a product-type key,
// first matching rule wins, zero when nothing matches.
func (t *Tables) ToleranceFor(mission string, scope string, productType string) int64 {
	scopes, ok := t.Tolerances[mission]
	if !ok {
		return 0
	}
	rules, ok := scopes[scope]
	if !ok {
		return 0
	}
	for _, rule := range rules {
		if rule.rx != nil && rule.rx.MatchString(productType) {
			return rule.Slice
		}
	}
	return 0
}

func (t *Tables) StationPairFor(satellite string) (StationPair, bool) {
	pair, ok := t.StationPairs[strings.ToUpper(strings.TrimSpace(satellite))]
	return pair, ok
}

// PeriodicityRank returns the freshness/scope rank of a report type;
// unknown types rank lowest.
func (t *Tables) PeriodicityRank(reportType string) int {
	rank, ok := t.PeriodicityRanks[strings.ToLower(strings.TrimSpace(reportType))]
	if !ok {
		return 0
	}
	return rank
}

func (t *Tables) IsFlatDatatakeIdMission(mission string) bool {
	for _, m := range t.FlatDatatakeIdMissions {
		if strings.EqualFold(m, mission) {
			return true
		}
	}
	return false
}

// DefaultTables carries the shipped mission configuration. A deployment
// overrides it wholesale through CONFIG_TABLES_PATH.
func DefaultTables() *Tables {
	return &Tables{
		ExpectedProducts: map[string]map[string][]LevelExpectation{
			"S2": {
				"NOBS": {
					{Level: "L0_", SubTypes: []SubTypeExpectation{
						{Key: "DS", Basis: BasisDuration},
						{Key: "GR", Basis: BasisScenes, PerScene: 12},
					}},
					{Level: "L1B", SubTypes: []SubTypeExpectation{
						{Key: "DS", Basis: BasisDuration},
						{Key: "GR", Basis: BasisScenes, PerScene: 12},
					}},
					{Level: "L1C", SubTypes: []SubTypeExpectation{
						{Key: "DS", Basis: BasisDuration},
						{Key: "TL", Basis: BasisTiles},
						{Key: "TC", Basis: BasisTiles},
					}},
					{Level: "L2A", SubTypes: []SubTypeExpectation{
						{Key: "DS", Basis: BasisDuration},
						{Key: "TL", Basis: BasisTiles},
						{Key: "TC", Basis: BasisTiles},
					}},
				},
				"DASC": {
					{Level: "L0_", SubTypes: []SubTypeExpectation{
						{Key: "DS", Basis: BasisDuration},
						{Key: "GR", Basis: BasisScenes, PerScene: 12},
					}},
				},
			},
			"S1": {
				"IW": {
					{Level: "L0_", SubTypes: []SubTypeExpectation{{Key: "DS", Basis: BasisDuration}}},
					{Level: "L1_", SubTypes: []SubTypeExpectation{{Key: "DS", Basis: BasisDuration}}},
					{Level: "L2_", SubTypes: []SubTypeExpectation{{Key: "DS", Basis: BasisDuration}}},
				},
				"EW": {
					{Level: "L0_", SubTypes: []SubTypeExpectation{{Key: "DS", Basis: BasisDuration}}},
					{Level: "L1_", SubTypes: []SubTypeExpectation{{Key: "DS", Basis: BasisDuration}}},
				},
				"SM": {
					{Level: "L0_", SubTypes: []SubTypeExpectation{{Key: "DS", Basis: BasisDuration}}},
					{Level: "L1_", SubTypes: []SubTypeExpectation{{Key: "DS", Basis: BasisDuration}}},
				},
				"WV": {
					{Level: "L0_", SubTypes: []SubTypeExpectation{{Key: "DS", Basis: BasisDuration}}},
				},
			},
		},
		Tolerances: map[string]map[string][]ToleranceRule{
			"S2": {
				ToleranceScopeGlobal: {
					{Pattern: `^L0_.*DS$`, Slice: -3_608_000},
					{Pattern: `^L1B.*DS$`, Slice: -3_608_000},
					{Pattern: `.*GR$`, Slice: 0},
				},
				ToleranceScopeLocal: {
					{Pattern: `.*DS$`, Slice: 3_608_000},
				},
			},
			"S1": {
				ToleranceScopeLocal: {
					{Pattern: `.*DS$`, Slice: 1_000_000},
				},
			},
		},
		StationPairs: map[string]StationPair{
			"S1A": {Nominal: "SGS", Backup: "MTI"},
			"S1C": {Nominal: "SGS", Backup: "MTI"},
			"S2A": {Nominal: "MTI", Backup: "SGS"},
			"S2B": {Nominal: "MTI", Backup: "SGS"},
			"S2C": {Nominal: "MTI", Backup: "SGS"},
		},
		PeriodicityRanks: map[string]int{
			"daily":   1,
			"weekly":  2,
			"monthly": 3,
		},
		FlatDatatakeIdMissions: []string{"S1"},

		CompleteThreshold:              100,
		SceneLevelGate:                 3,
		GranuleGroupingToleranceMicros: 500_000,
		MissingPeriodMaxOffsetMicros:   10_000_000,
	}
}
