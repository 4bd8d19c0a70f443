package ai

import (
	"github.com/Garsondee/skirmish-core/internal/command"
	"github.com/Garsondee/skirmish-core/internal/ecs"
)

const rallySpacing = 1.5

// Retreat pulls badly wounded units back to the owner's rally point.
type Retreat struct {
	lastOrder float64
	ordered   bool
}

func (r *Retreat) Name() string             { return "retreat" }
func (r *Retreat) Priority() Priority       { return PriorityCritical }
func (r *Retreat) CanRunConcurrently() bool { return false }

func (r *Retreat) wounded(snap *Snapshot, ctx *Context) []UnitState {
	var out []UnitState
	for _, f := range snap.Mobile() {
		if f.HealthRatio < ctx.Tuning.RetreatHealthRatio && !ctx.Retreating[f.ID] {
			out = append(out, f)
		}
	}
	return out
}

func (r *Retreat) ShouldExecute(snap *Snapshot, ctx *Context) bool {
	if !ctx.HasRally {
		return false
	}
	if r.ordered && ctx.Now-r.lastOrder < ctx.Tuning.RetreatCooldown {
		return false
	}
	return len(r.wounded(snap, ctx)) > 0
}

func (r *Retreat) Execute(snap *Snapshot, ctx *Context, _ float64) []Command {
	ws := r.wounded(snap, ctx)
	if len(ws) == 0 {
		return nil
	}
	ids := make([]ecs.EntityID, len(ws))
	pos := make([]ecs.Vec3, len(ws))
	for i, w := range ws {
		ids[i], pos[i] = w.ID, w.Position
		ctx.Retreating[w.ID] = true
	}
	heading := command.HeadingTo(pos, ctx.Rally)
	r.lastOrder, r.ordered = ctx.Now, true
	return []Command{{
		Kind:    CommandMove,
		Units:   ids,
		Targets: command.FormationTargets(ctx.Rally, heading, len(ids), rallySpacing, command.FormationBox),
		Group:   true,
	}}
}
