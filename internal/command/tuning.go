package command

import (
	"slices"

	"github.com/Garsondee/skirmish-core/internal/ecs"
)

// Tuning holds every threshold the move resolution and group heuristic use.
// Distances are world units and are compared squared where the name says so.
type Tuning struct {
	NearThresholdFactor float64 `toml:"near_threshold_factor"`
	NearThresholdMin    float64 `toml:"near_threshold_min"`
	NearThresholdMax    float64 `toml:"near_threshold_max"`

	MinScatterThreshold float64 `toml:"min_scatter_threshold"`
	ScatterFactor       float64 `toml:"scatter_factor"`
	ScatterReachFactor  float64 `toml:"scatter_reach_factor"`

	FastSpeedMargin float64         `toml:"fast_speed_margin"`
	FastReachFactor float64         `toml:"fast_reach_factor"`
	FastUnitTypes   []ecs.SpawnType `toml:"fast_unit_types"`

	SameTargetThresholdSq     float64 `toml:"same_target_threshold_sq"`
	TargetMovementThresholdSq float64 `toml:"target_movement_threshold_sq"`
	PathRequestCooldown       float64 `toml:"path_request_cooldown"` // seconds

	DirectPathThreshold     int     `toml:"direct_path_threshold"` // grid cells, Manhattan
	WaypointSkipThresholdSq float64 `toml:"waypoint_skip_threshold_sq"`
}

// DefaultTuning returns the stock thresholds.
func DefaultTuning() Tuning {
	return Tuning{
		NearThresholdFactor: 0.5,
		NearThresholdMin:    4,
		NearThresholdMax:    12,

		MinScatterThreshold: 2.5,
		ScatterFactor:       1.5,
		ScatterReachFactor:  2.0,

		FastSpeedMargin: 0.5,
		FastReachFactor: 1.5,
		FastUnitTypes:   []ecs.SpawnType{ecs.SpawnMountedKnight},

		SameTargetThresholdSq:     0.01,
		TargetMovementThresholdSq: 4.0,
		PathRequestCooldown:       1.0,

		DirectPathThreshold:     4,
		WaypointSkipThresholdSq: 0.16,
	}
}

func (t Tuning) isFastType(st ecs.SpawnType) bool {
	return slices.Contains(t.FastUnitTypes, st)
}

// MoveOptions controls how a move order is resolved.
type MoveOptions struct {
	// GroupMove routes multi-unit orders through the cohesion heuristic.
	GroupMove bool
	// ClearAttackIntent drops any AttackTarget on the moved units.
	ClearAttackIntent bool
	// AllowDirectFallback permits skipping the search for short hops and
	// walking straight at the goal when a search comes back empty.
	AllowDirectFallback bool
}

// DefaultMoveOptions is a plain player move order.
func DefaultMoveOptions() MoveOptions {
	return MoveOptions{ClearAttackIntent: true, AllowDirectFallback: true}
}
