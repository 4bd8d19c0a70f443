package ecs

import (
	"math"
	"strings"
)

// Vec3 is a world-space vector. Gameplay lives on the x/z plane; Y is height.
type Vec3 struct {
	X, Y, Z float64
}

// Transform is an entity's placement in the world.
type Transform struct {
	Position Vec3
	Scale    Vec3
	Rotation float64 // yaw, radians
}

// SpawnType identifies a unit archetype.
type SpawnType int

const (
	SpawnArcher SpawnType = iota
	SpawnSpearman
	SpawnSwordsman
	SpawnMountedKnight
	SpawnBarracks
)

func (st SpawnType) String() string {
	switch st {
	case SpawnArcher:
		return "archer"
	case SpawnSpearman:
		return "spearman"
	case SpawnSwordsman:
		return "swordsman"
	case SpawnMountedKnight:
		return "mounted_knight"
	case SpawnBarracks:
		return "barracks"
	default:
		return "unknown"
	}
}

// ParseSpawnType maps a name to a SpawnType; unknown names fall back to archer.
func ParseSpawnType(s string) SpawnType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spearman":
		return SpawnSpearman
	case "swordsman":
		return SpawnSwordsman
	case "mounted_knight", "knight":
		return SpawnMountedKnight
	case "barracks":
		return SpawnBarracks
	default:
		return SpawnArcher
	}
}

// MarshalText lets SpawnType appear by name in config files.
func (st SpawnType) MarshalText() ([]byte, error) { return []byte(st.String()), nil }

// UnmarshalText is the inverse of MarshalText.
func (st *SpawnType) UnmarshalText(b []byte) error {
	*st = ParseSpawnType(string(b))
	return nil
}

// Unit is the gameplay record of a controllable unit or building.
type Unit struct {
	OwnerID     int
	SpawnType   SpawnType
	Health      int
	MaxHealth   int
	Speed       float64 // world units per second
	VisionRange float64 // world units
}

// HealthRatio returns Health/MaxHealth in [0,1].
func (u *Unit) HealthRatio() float64 {
	if u.MaxHealth <= 0 {
		if u.Health > 0 {
			return 1
		}
		return 0
	}
	return math.Max(0, math.Min(1, float64(u.Health)/float64(u.MaxHealth)))
}

// Waypoint is a world-space point on the x/z plane.
type Waypoint struct {
	X, Z float64
}

// Movement is the navigation state the command service writes and the
// movement system consumes.
//
// PathPending and a non-empty Path are mutually exclusive: the first means a
// search is outstanding, the second that waypoints are being followed.
// HasTarget=false with an empty Path and PathPending=false means idle.
type Movement struct {
	HasTarget bool
	TargetX   float64
	TargetZ   float64

	// Path[0], when present, is the waypoint currently targeted.
	Path []Waypoint

	PathPending      bool
	PendingRequestID uint64

	GoalX, GoalZ float64 // most recent commanded destination

	LastGoalX, LastGoalZ     float64 // destination of the last issued path request
	TimeSinceLastPathRequest float64 // seconds

	VX, VZ float64
}

// Idle reports whether the unit has nothing to do.
func (m *Movement) Idle() bool {
	return !m.HasTarget && len(m.Path) == 0 && !m.PathPending
}

// Stop clears the current target and velocity, keeping request state.
func (m *Movement) Stop() {
	m.HasTarget = false
	m.Path = nil
	m.VX, m.VZ = 0, 0
}

// Attack describes an entity's combat reach.
type Attack struct {
	Range       float64
	MeleeRange  float64
	CanRanged   bool
	InMeleeLock bool
}

// AttackTarget is an active attack intent.
type AttackTarget struct {
	TargetID    EntityID
	ShouldChase bool
}

// HoldMode is the defensive stance. Leaving it costs StandUpDuration seconds.
type HoldMode struct {
	Active          bool
	ExitCooldown    float64
	StandUpDuration float64
}

// Building marks static structures. Footprint comes from Transform.Scale.
type Building struct{}
