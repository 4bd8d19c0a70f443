package sim

import (
	"math"

	"github.com/Garsondee/skirmish-core/internal/ecs"
)

// Arrival is reported when an entity consumes its last waypoint.
type Arrival struct {
	ID   ecs.EntityID
	X, Z float64
}

// MovementSystem integrates Movement state into Transform positions.
type MovementSystem struct {
	ArriveEpsilon float64
}

// Step advances every moving entity by dt seconds.
//
// Path[0], when present, is the waypoint being steered toward; reaching it
// pops it and retargets the next one. A unit standing up from hold mode or
// locked in melee does not move.
func (ms MovementSystem) Step(world *ecs.World, dt float64) []Arrival {
	var arrived []Arrival
	for _, e := range world.EntitiesWith(ecs.KindTransform, ecs.KindMovement) {
		mv, tr := e.Movement(), e.Transform()
		mv.TimeSinceLastPathRequest += dt

		if hm := e.HoldMode(); hm != nil {
			if hm.ExitCooldown > 0 {
				hm.ExitCooldown = math.Max(0, hm.ExitCooldown-dt)
				mv.VX, mv.VZ = 0, 0
				continue
			}
			if hm.Active {
				mv.VX, mv.VZ = 0, 0
				continue
			}
		}
		if atk := e.Attack(); atk != nil && atk.InMeleeLock {
			mv.VX, mv.VZ = 0, 0
			continue
		}
		if !mv.HasTarget {
			mv.VX, mv.VZ = 0, 0
			continue
		}

		speed := 1.0
		if u := e.Unit(); u != nil {
			speed = u.Speed
		}
		if speed <= 0 {
			mv.VX, mv.VZ = 0, 0
			continue
		}

		dx, dz := mv.TargetX-tr.Position.X, mv.TargetZ-tr.Position.Z
		dist := math.Hypot(dx, dz)
		step := speed * dt
		if dist <= ms.ArriveEpsilon || dist <= step {
			tr.Position.X, tr.Position.Z = mv.TargetX, mv.TargetZ
			if len(mv.Path) > 0 {
				mv.Path = mv.Path[1:]
			}
			if len(mv.Path) > 0 {
				mv.TargetX, mv.TargetZ = mv.Path[0].X, mv.Path[0].Z
				continue
			}
			mv.Stop()
			arrived = append(arrived, Arrival{ID: e.ID(), X: tr.Position.X, Z: tr.Position.Z})
			continue
		}

		ux, uz := dx/dist, dz/dist
		tr.Position.X += ux * step
		tr.Position.Z += uz * step
		tr.Rotation = math.Atan2(uz, ux)
		mv.VX, mv.VZ = ux*speed, uz*speed
	}
	return arrived
}
