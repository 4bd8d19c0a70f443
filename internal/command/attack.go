package command

import (
	"math"

	"github.com/Garsondee/skirmish-core/internal/ecs"
)

const defaultAttackRange = 2.0

// StandOff returns where an attacker at from should stand to hit a target
// at to. Buildings add half their footprint; ranged units keep 85% of
// their range. An attacker already within reach gets the target position
// itself.
func StandOff(from ecs.Vec3, atk *ecs.Attack, to ecs.Vec3, targetScale ecs.Vec3, building bool) ecs.Vec3 {
	rng := defaultAttackRange
	ranged := false
	if atk != nil {
		rng = math.Max(0.1, atk.Range)
		ranged = atk.CanRanged && atk.Range > atk.MeleeRange*1.5
	}

	dx, dz := to.X-from.X, to.Z-from.Z
	dist := math.Hypot(dx, dz)
	if dist <= 0.001 {
		return ecs.Vec3{X: to.X, Z: to.Z}
	}
	dx, dz = dx/dist, dz/dist

	desired := math.Max(rng-0.2, 0.2)
	switch {
	case building:
		desired += math.Max(targetScale.X, targetScale.Z) * 0.5
	case ranged:
		desired = rng * 0.85
	}
	if dist > desired+0.15 {
		return ecs.Vec3{X: to.X - dx*desired, Z: to.Z - dz*desired}
	}
	return ecs.Vec3{X: to.X, Z: to.Z}
}

// AttackTarget gives every unit an attack intent on targetID. With chase
// set, each unit is also sent to its stand-off point.
func (s *Service) AttackTarget(world *ecs.World, units []ecs.EntityID, targetID ecs.EntityID, chase bool) {
	if targetID == 0 {
		return
	}
	for _, id := range units {
		e := world.Entity(id)
		if e == nil {
			continue
		}
		releaseHold(e)
		at := e.AddAttackTarget()
		at.TargetID = targetID
		at.ShouldChase = chase
		if !chase || meleeLocked(e) {
			continue
		}

		target := world.Entity(targetID)
		if target == nil {
			continue
		}
		tt, own := target.Transform(), e.Transform()
		if tt == nil || own == nil {
			continue
		}

		pos := StandOff(own.Position, e.Attack(), tt.Position, tt.Scale, target.Has(ecs.KindBuilding))
		s.MoveUnits(world, []ecs.EntityID{id}, []ecs.Vec3{pos}, MoveOptions{AllowDirectFallback: true})

		mv := e.AddMovement()
		mv.TargetX, mv.TargetZ = pos.X, pos.Z
		mv.GoalX, mv.GoalZ = pos.X, pos.Z
		mv.HasTarget = true
		mv.Path = nil
	}
}
