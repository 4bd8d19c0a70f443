package ai

import (
	"math"

	"github.com/Garsondee/skirmish-core/internal/ecs"
)

// UnitState is the read-only view of one unit a behavior reasons about.
type UnitState struct {
	ID           ecs.EntityID
	Owner        int
	Position     ecs.Vec3
	HealthRatio  float64
	Idle         bool
	AttackTarget ecs.EntityID
	AttackRange  float64
	Building     bool
	Vision       float64
}

// Snapshot is the world as one owner sees it at think time.
type Snapshot struct {
	Owner      int
	Friendlies []UnitState
	Enemies    []UnitState // spotted by some friendly
}

// Relations answers diplomacy questions; *owner.Registry satisfies it.
type Relations interface {
	AreEnemies(a, b int) bool
	IsNeutral(id int) bool
}

func stateOf(e *ecs.Entity) (UnitState, bool) {
	u, tr := e.Unit(), e.Transform()
	if u == nil || tr == nil || u.Health <= 0 {
		return UnitState{}, false
	}
	st := UnitState{
		ID:          e.ID(),
		Owner:       u.OwnerID,
		Position:    tr.Position,
		HealthRatio: u.HealthRatio(),
		Idle:        true,
		AttackRange: 2,
		Building:    e.Has(ecs.KindBuilding),
		Vision:      u.VisionRange,
	}
	if mv := e.Movement(); mv != nil {
		st.Idle = mv.Idle()
	}
	if at := e.AttackTarget(); at != nil {
		st.AttackTarget = at.TargetID
	}
	if atk := e.Attack(); atk != nil {
		st.AttackRange = atk.Range
	}
	return st, true
}

// BuildSnapshot collects ownerID's live units and the enemy units within
// sight of any of them. Sight is max(unit vision, visionFloor).
func BuildSnapshot(world *ecs.World, rel Relations, ownerID int, visionFloor float64) *Snapshot {
	snap := &Snapshot{Owner: ownerID}
	var others []UnitState
	for _, e := range world.EntitiesWith(ecs.KindUnit, ecs.KindTransform) {
		st, ok := stateOf(e)
		if !ok {
			continue
		}
		switch {
		case st.Owner == ownerID:
			snap.Friendlies = append(snap.Friendlies, st)
		case rel.IsNeutral(st.Owner):
		case rel.AreEnemies(ownerID, st.Owner):
			others = append(others, st)
		}
	}

	for _, en := range others {
		for _, f := range snap.Friendlies {
			r := math.Max(f.Vision, visionFloor)
			dx, dz := en.Position.X-f.Position.X, en.Position.Z-f.Position.Z
			if dx*dx+dz*dz <= r*r {
				snap.Enemies = append(snap.Enemies, en)
				break
			}
		}
	}
	return snap
}

// Mobile returns friendlies that can take move orders.
func (s *Snapshot) Mobile() []UnitState {
	var out []UnitState
	for _, f := range s.Friendlies {
		if !f.Building {
			out = append(out, f)
		}
	}
	return out
}

// Enemy looks up a spotted enemy by id.
func (s *Snapshot) Enemy(id ecs.EntityID) (UnitState, bool) {
	for _, e := range s.Enemies {
		if e.ID == id {
			return e, true
		}
	}
	return UnitState{}, false
}

func centroid(us []UnitState) ecs.Vec3 {
	var c ecs.Vec3
	if len(us) == 0 {
		return c
	}
	for _, u := range us {
		c.X += u.Position.X
		c.Z += u.Position.Z
	}
	n := float64(len(us))
	return ecs.Vec3{X: c.X / n, Z: c.Z / n}
}
