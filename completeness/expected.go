// Package completeness computes expected-versus-actual data volume per
// consolidated entity, with tolerance, duplicate and overlap resolution.
package completeness

import (
	"bitbucket.org/sgdatafocus/telemetry_backend/config"
	"bitbucket.org/sgdatafocus/telemetry_backend/models"
)

// expectedKey is one (product-type-key, basis) expectation for an entity.
type expectedKey struct {
	Level    string
	SubType  string
	Key      string // TypeKey(level, sub), e.g. "L0__DS"
	Basis    string
	PerScene int64
}

// expectedKeysFor enumerates the product-type keys an entity's instrument
// mode implies, in level order. Entities with fewer logical scenes than
// the gate only expect the lowest level.
func expectedKeysFor(tables *config.Tables, dt *models.Datatake) []expectedKey {
	levels := tables.ExpectedLevels(dt.Mission, dt.InstrumentMode, dt.NumberOfScenes)
	var out []expectedKey
	for _, level := range levels {
		for _, sub := range level.SubTypes {
			out = append(out, expectedKey{
				Level:    level.Level,
				SubType:  sub.Key,
				Key:      models.TypeKey(level.Level, sub.Key),
				Basis:    sub.Basis,
				PerScene: sub.PerScene,
			})
		}
	}
	return out
}

// ExpectedLevelNames is the list of expected product levels for an
// entity, for diagnosis surfaces.
func ExpectedLevelNames(tables *config.Tables, dt *models.Datatake) []string {
	levels := tables.ExpectedLevels(dt.Mission, dt.InstrumentMode, dt.NumberOfScenes)
	out := make([]string, 0, len(levels))
	for _, level := range levels {
		out = append(out, level.Level)
	}
	return out
}

// expectedValue computes the base expectation for one key from the
// entity's own attributes, then applies the signed global-scope tolerance,
// clamped at zero. observedTiles backs the tile basis when the entity does
// not carry a tile count of its own.
func expectedValue(tables *config.Tables, dt *models.Datatake, key expectedKey, observedTiles int64) int64 {
	var base int64
	switch key.Basis {
	case config.BasisDuration:
		base = dt.ObservationDurationMicros
	case config.BasisScenes:
		base = dt.NumberOfScenes * key.PerScene
	case config.BasisTiles:
		base = dt.NumberOfTiles
		if base == 0 {
			base = observedTiles
		}
	}

	base += tables.ToleranceFor(dt.Mission, config.ToleranceScopeGlobal, key.Key)
	if base < 0 {
		base = 0
	}
	return base
}
