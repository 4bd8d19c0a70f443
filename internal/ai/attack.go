package ai

import (
	"math"

	"github.com/Garsondee/skirmish-core/internal/ecs"
)

// Attack focuses the army on the spotted enemy nearest its centroid and
// keeps that target for a lock period.
type Attack struct {
	target    ecs.EntityID
	lockUntil float64
}

func (a *Attack) Name() string             { return "attack" }
func (a *Attack) Priority() Priority       { return PriorityNormal }
func (a *Attack) CanRunConcurrently() bool { return false }

// Target returns the currently locked target, zero when none.
func (a *Attack) Target() ecs.EntityID { return a.target }

func available(snap *Snapshot, ctx *Context) []UnitState {
	var out []UnitState
	for _, f := range snap.Mobile() {
		if !ctx.Retreating[f.ID] {
			out = append(out, f)
		}
	}
	return out
}

func (a *Attack) ShouldExecute(snap *Snapshot, ctx *Context) bool {
	return len(snap.Enemies) > 0 && len(available(snap, ctx)) > 0
}

func (a *Attack) pick(snap *Snapshot, army []UnitState, now, lock float64) UnitState {
	if cur, ok := snap.Enemy(a.target); ok && now < a.lockUntil {
		return cur
	}
	c := centroid(army)
	best, bestD := snap.Enemies[0], math.Inf(1)
	for _, e := range snap.Enemies {
		dx, dz := e.Position.X-c.X, e.Position.Z-c.Z
		if d := dx*dx + dz*dz; d < bestD {
			best, bestD = e, d
		}
	}
	a.target, a.lockUntil = best.ID, now+lock
	return best
}

func (a *Attack) Execute(snap *Snapshot, ctx *Context, _ float64) []Command {
	army := available(snap, ctx)
	if len(army) == 0 || len(snap.Enemies) == 0 {
		return nil
	}
	tgt := a.pick(snap, army, ctx.Now, ctx.Tuning.TargetLockDuration)

	var units []ecs.EntityID
	for _, u := range army {
		if u.AttackTarget != tgt.ID {
			units = append(units, u.ID)
			continue
		}
		// Already on it; re-issue only if it stalled out of reach.
		reach := u.AttackRange + 1
		dx, dz := tgt.Position.X-u.Position.X, tgt.Position.Z-u.Position.Z
		if u.Idle && dx*dx+dz*dz > reach*reach {
			units = append(units, u.ID)
		}
	}
	if len(units) == 0 {
		return nil
	}
	return []Command{{Kind: CommandAttack, Units: units, TargetID: tgt.ID, Chase: true}}
}
