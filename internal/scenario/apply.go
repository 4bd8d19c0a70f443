package scenario

import (
	"math"

	"github.com/Garsondee/skirmish-core/internal/command"
	"github.com/Garsondee/skirmish-core/internal/ecs"
	"github.com/Garsondee/skirmish-core/internal/owner"
	"github.com/Garsondee/skirmish-core/internal/pathfind"
)

type unitStats struct {
	health     int
	speed      float64
	vision     float64
	rng        float64
	meleeRange float64
	ranged     bool
}

var statsByType = map[ecs.SpawnType]unitStats{
	ecs.SpawnArcher:        {health: 60, speed: 3.0, vision: 14, rng: 8, meleeRange: 1.5, ranged: true},
	ecs.SpawnSpearman:      {health: 90, speed: 2.8, vision: 12, rng: 2.2, meleeRange: 2.2},
	ecs.SpawnSwordsman:     {health: 100, speed: 2.6, vision: 12, rng: 1.8, meleeRange: 1.8},
	ecs.SpawnMountedKnight: {health: 140, speed: 5.0, vision: 16, rng: 2.0, meleeRange: 2.0},
}

// ApplyOwners replaces the registry's contents with the scenario owners.
func (sc *Scenario) ApplyOwners(reg *owner.Registry) {
	reg.Clear()
	for _, o := range sc.Owners {
		reg.RegisterWithID(o.ID, owner.ParseType(o.Type), o.Name)
		reg.SetTeam(o.ID, o.Team)
		if len(o.Color) == 3 {
			reg.SetColor(o.ID, owner.Color{o.Color[0], o.Color[1], o.Color[2]})
		}
	}
	reg.SetLocalPlayerID(sc.LocalPlayer)
}

// BlockNav marks blocked rectangles and building footprints unwalkable.
func (sc *Scenario) BlockNav(nav *pathfind.NavGrid) {
	for _, r := range sc.Blocked {
		nav.BlockRect(r.X, r.Z, r.W, r.H)
	}
	g := nav.Grid()
	for _, b := range sc.Buildings {
		half := b.Size * 0.5
		lo := g.WorldToGrid(b.X-half+0.01, b.Z-half+0.01)
		hi := g.WorldToGrid(b.X+half-0.01, b.Z+half-0.01)
		nav.BlockRect(lo.X, lo.Z, hi.X-lo.X+1, hi.Z-lo.Z+1)
	}
}

// Spawn creates every unit and building. Entities are returned in
// declaration order.
func (sc *Scenario) Spawn(world *ecs.World) []*ecs.Entity {
	var out []*ecs.Entity
	for _, spec := range sc.Units {
		st := ecs.ParseSpawnType(spec.Type)
		base := statsByType[st]
		center := ecs.Vec3{X: spec.X, Z: spec.Z}
		slots := command.FormationTargets(center, 0, spec.Count, spec.Spacing, command.FormationBox)
		for _, pos := range slots {
			out = append(out, spawnUnit(world, spec, st, base, pos))
		}
	}
	for _, b := range sc.Buildings {
		out = append(out, spawnBuilding(world, b))
	}
	return out
}

func spawnUnit(world *ecs.World, spec UnitSpec, st ecs.SpawnType, base unitStats, pos ecs.Vec3) *ecs.Entity {
	e := world.Spawn()
	e.AddTransform().Position = pos

	u := e.AddUnit()
	u.OwnerID = spec.Owner
	u.SpawnType = st
	u.MaxHealth = pick(spec.Health, base.health)
	u.Health = u.MaxHealth
	u.Speed = pickF(spec.Speed, base.speed)
	u.VisionRange = pickF(spec.Vision, base.vision)

	atk := e.AddAttack()
	atk.Range = pickF(spec.Range, base.rng)
	atk.MeleeRange = pickF(spec.MeleeRange, base.meleeRange)
	atk.CanRanged = base.ranged
	if spec.Ranged != nil {
		atk.CanRanged = *spec.Ranged
	}

	e.AddMovement()
	return e
}

func spawnBuilding(world *ecs.World, b BuildingSpec) *ecs.Entity {
	e := world.Spawn()
	tr := e.AddTransform()
	tr.Position = ecs.Vec3{X: b.X, Z: b.Z}
	tr.Scale = ecs.Vec3{X: b.Size, Y: math.Max(1, b.Size*0.75), Z: b.Size}

	u := e.AddUnit()
	u.OwnerID = b.Owner
	u.SpawnType = ecs.SpawnBarracks
	u.MaxHealth, u.Health = b.Health, b.Health
	u.Speed = 0
	u.VisionRange = b.Size + 6
	e.AddBuilding()
	return e
}

// Apply loads owners, obstacles and entities in one go.
func (sc *Scenario) Apply(world *ecs.World, reg *owner.Registry, nav *pathfind.NavGrid) []*ecs.Entity {
	sc.ApplyOwners(reg)
	if nav != nil {
		sc.BlockNav(nav)
	}
	return sc.Spawn(world)
}

func pick(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func pickF(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
