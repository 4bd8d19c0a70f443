// Package sim drives the simulation core tick by tick: AI thinking, path
// result application, movement integration, fog updates and scripted
// orders, recording what happened in a SimLog.
package sim

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Garsondee/skirmish-core/internal/ai"
	"github.com/Garsondee/skirmish-core/internal/command"
	"github.com/Garsondee/skirmish-core/internal/config"
	"github.com/Garsondee/skirmish-core/internal/ecs"
	"github.com/Garsondee/skirmish-core/internal/gridmath"
	"github.com/Garsondee/skirmish-core/internal/logger"
	"github.com/Garsondee/skirmish-core/internal/owner"
	"github.com/Garsondee/skirmish-core/internal/pathfind"
	"github.com/Garsondee/skirmish-core/internal/scenario"
	"github.com/Garsondee/skirmish-core/internal/visibility"
)

// Order is a scripted move for all of an owner's mobile units.
type Order struct {
	Tick      int
	Owner     int
	Target    ecs.Vec3
	Group     bool
	Formation command.FormationType
}

// formationSpacing is the slot distance for scripted and UI group orders.
const formationSpacing = 2.0

type pathService interface {
	command.Pathfinder
	Close() error
}

type totals struct {
	pathResults    int
	pathsApplied   int
	pathsDiscarded int
	arrivals       int
	fogUpdates     int
	ordersIssued   int
	aiMoves        int
	aiAttacks      int
}

// Sim owns the world and every service operating on it.
type Sim struct {
	World  *ecs.World
	Owners *owner.Registry
	Vis    *visibility.Service
	Cmd    *command.Service
	Nav    *pathfind.NavGrid
	Log    *SimLog

	cfg      *config.Config
	paths    pathService
	movement MovementSystem
	ai       []*ai.Controller
	orders   []Order
	spawned  []*ecs.Entity

	playerID int
	tileSize float64
	sync     bool
	verbose  bool
	terrain  []func(*pathfind.NavGrid)

	tick   int
	totals totals
	log    *logrus.Entry
}

// Option configures a Sim before its services start.
type Option func(*Sim)

// WithSync runs pathfinding inline and visibility jobs on the calling
// goroutine, making every run reproducible tick for tick.
func WithSync() Option { return func(s *Sim) { s.sync = true } }

// WithPlayer sets whose fog of war is computed.
func WithPlayer(id int) Option { return func(s *Sim) { s.playerID = id } }

// WithVerboseLog keeps per-tick movement samples in the SimLog.
func WithVerboseLog() Option { return func(s *Sim) { s.verbose = true } }

// WithTileSize overrides the configured tile size.
func WithTileSize(ts float64) Option { return func(s *Sim) { s.tileSize = ts } }

// WithTerrain registers a nav grid edit applied before pathfinding starts.
func WithTerrain(fn func(*pathfind.NavGrid)) Option {
	return func(s *Sim) { s.terrain = append(s.terrain, fn) }
}

// New builds a simulation over a width x height cell map. A nil cfg uses
// the defaults.
func New(cfg *config.Config, width, height int, opts ...Option) *Sim {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Sim{
		World:    ecs.NewWorld(),
		Owners:   owner.NewRegistry(),
		cfg:      cfg,
		movement: MovementSystem{ArriveEpsilon: cfg.Sim.ArriveEpsilon},
		playerID: 1,
		tileSize: cfg.Visibility.TileSize,
		log:      logger.For("sim"),
	}
	for _, o := range opts {
		o(s)
	}
	s.Log = NewSimLog(s.verbose)

	grid := gridmath.New(width, height, s.tileSize)
	s.Nav = pathfind.NewNavGrid(grid)
	for _, fn := range s.terrain {
		fn(s.Nav)
	}

	visOpts := []visibility.Option{visibility.WithVisionFloor(cfg.Visibility.DefaultVisionRange)}
	if s.sync {
		s.paths = pathfind.NewInline(s.Nav)
		visOpts = append(visOpts, visibility.WithJobRunner(func(task func()) { task() }))
	} else {
		s.paths = pathfind.NewQueue(context.Background(), s.Nav, cfg.Pathfinding.Workers)
	}

	s.Vis = visibility.New(s.Owners, visOpts...)
	s.Vis.Initialize(width, height, s.tileSize)

	s.Cmd = command.New(command.WithTuning(cfg.Command), command.WithWorkers(cfg.Pathfinding.Workers))
	s.Cmd.InitializeWith(s.paths)

	s.log.WithFields(logrus.Fields{
		"width":   width,
		"height":  height,
		"tile":    s.tileSize,
		"sync":    s.sync,
		"blocked": s.Nav.BlockedCount(),
	}).Info("simulation created")
	return s
}

// FromScenario builds a simulation from a scenario: owners, terrain,
// entities, AI controllers for AI owners and the scripted orders.
func FromScenario(cfg *config.Config, sc *scenario.Scenario, opts ...Option) *Sim {
	base := []Option{
		WithTileSize(sc.Map.TileSize),
		WithPlayer(sc.LocalPlayer),
		WithTerrain(sc.BlockNav),
	}
	s := New(cfg, sc.Map.Width, sc.Map.Height, append(base, opts...)...)
	sc.ApplyOwners(s.Owners)
	s.spawned = sc.Spawn(s.World)

	for _, id := range s.Owners.AIIDs() {
		c := s.AddAI(id)
		if p, ok := sc.Rally(id); ok {
			c.SetRally(ecs.Vec3{X: p.X, Z: p.Z})
		}
	}
	for _, o := range sc.Orders {
		s.Schedule(Order{
			Tick:      o.Tick,
			Owner:     o.Owner,
			Target:    ecs.Vec3{X: o.X, Z: o.Z},
			Group:     o.Group,
			Formation: command.ParseFormation(o.Formation),
		})
	}
	s.Vis.ComputeImmediate(s.World, s.playerID)
	return s
}

// AddAI attaches a controller for ownerID.
func (s *Sim) AddAI(ownerID int) *ai.Controller {
	c := ai.NewController(ownerID, s.cfg.AI)
	s.ai = append(s.ai, c)
	return c
}

// Controllers returns the attached AI controllers.
func (s *Sim) Controllers() []*ai.Controller { return s.ai }

// Schedule queues a scripted order.
func (s *Sim) Schedule(o Order) { s.orders = append(s.orders, o) }

// Spawned returns the entities a scenario created, in declaration order.
func (s *Sim) Spawned() []*ecs.Entity { return s.spawned }

func (s *Sim) CurrentTick() int       { return s.tick }
func (s *Sim) PlayerID() int          { return s.playerID }
func (s *Sim) Config() *config.Config { return s.cfg }
func (s *Sim) Seconds() float64       { return float64(s.tick) * s.cfg.Sim.TickDT }
func (s *Sim) SetPlayer(id int)       { s.playerID = id }

// Close stops background pathfinding.
func (s *Sim) Close() error { return s.paths.Close() }

// Run advances n ticks.
func (s *Sim) Run(n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

// Tick advances the simulation by one fixed step.
func (s *Sim) Tick() {
	s.tick++
	dt := s.cfg.Sim.TickDT

	for _, c := range s.ai {
		cmds := c.Think(s.World, s.Owners, dt)
		for _, cmd := range cmds {
			s.logAICommand(c.OwnerID(), cmd)
		}
		ai.Apply(s.World, s.Cmd, cmds)
	}

	before := s.Cmd.Submitted()
	st := s.Cmd.ProcessPathResults(s.World)
	s.totals.pathResults += st.Results
	s.totals.pathsApplied += st.Applied
	s.totals.pathsDiscarded += st.Discarded
	if st.Results > 0 {
		s.Log.Add(s.tick, "--", "--", "path", "results",
			fmt.Sprintf("%d results, %d applied, %d discarded", st.Results, st.Applied, st.Discarded),
			float64(st.Applied))
	}

	for _, a := range s.movement.Step(s.World, dt) {
		s.totals.arrivals++
		s.Log.Add(s.tick, label(a.ID), s.ownerName(a.ID), "move", "arrived",
			fmt.Sprintf("(%.1f, %.1f)", a.X, a.Z), 0)
	}
	if s.verbose {
		s.sampleMovement()
	}

	if s.Vis.Update(s.World, s.playerID) {
		s.totals.fogUpdates++
		_, _, visible := s.Vis.Coverage()
		s.Log.Add(s.tick, "--", s.Owners.Name(s.playerID), "fog", "update",
			fmt.Sprintf("version %d, %d visible", s.Vis.Version(), visible), float64(visible))
	}

	s.issueScripted()

	if n := s.Cmd.Submitted() - before; n > 0 {
		s.Log.Add(s.tick, "--", "--", "path", "submitted", fmt.Sprintf("%d searches", n), float64(n))
	}
}

func (s *Sim) issueScripted() {
	kept := s.orders[:0]
	for _, o := range s.orders {
		if o.Tick > s.tick {
			kept = append(kept, o)
			continue
		}
		s.OrderMove(o.Owner, nil, o.Target, o.Group, o.Formation)
	}
	s.orders = kept
}

// MobileUnits returns ownerID's live, movable units.
func (s *Sim) MobileUnits(ownerID int) []ecs.EntityID {
	var out []ecs.EntityID
	for _, e := range s.World.EntitiesWith(ecs.KindUnit, ecs.KindTransform) {
		u := e.Unit()
		if u.OwnerID != ownerID || u.Health <= 0 || u.Speed <= 0 || e.Has(ecs.KindBuilding) {
			continue
		}
		out = append(out, e.ID())
	}
	return out
}

// OrderMove sends units (all of ownerID's mobile units when nil) to target.
// Group orders spread the units over formation slots and move them as one.
func (s *Sim) OrderMove(ownerID int, units []ecs.EntityID, target ecs.Vec3, group bool, ft command.FormationType) {
	if units == nil {
		units = s.MobileUnits(ownerID)
	}
	if len(units) == 0 {
		return
	}
	s.totals.ordersIssued++

	opts := command.DefaultMoveOptions()
	targets := make([]ecs.Vec3, len(units))
	if group && len(units) > 1 {
		pos := make([]ecs.Vec3, 0, len(units))
		for _, id := range units {
			if e := s.World.Entity(id); e != nil && e.Transform() != nil {
				pos = append(pos, e.Transform().Position)
			}
		}
		targets = command.FormationTargets(target, command.HeadingTo(pos, target), len(units), formationSpacing, ft)
		opts.GroupMove = true
	} else {
		for i := range targets {
			targets[i] = target
		}
	}
	s.Cmd.MoveUnits(s.World, units, targets, opts)

	s.Log.Add(s.tick, "--", s.Owners.Name(ownerID), "order", "move",
		fmt.Sprintf("%d units to (%.1f, %.1f) group=%v", len(units), target.X, target.Z, group),
		float64(len(units)))
}

func (s *Sim) logAICommand(ownerID int, cmd ai.Command) {
	name := s.Owners.Name(ownerID)
	switch cmd.Kind {
	case ai.CommandMove:
		s.totals.aiMoves++
		s.Log.Add(s.tick, "--", name, "ai", "move", fmt.Sprintf("%d units", len(cmd.Units)), float64(len(cmd.Units)))
	case ai.CommandAttack:
		s.totals.aiAttacks++
		s.Log.Add(s.tick, label(cmd.TargetID), name, "ai", "attack",
			fmt.Sprintf("%d units chase=%v", len(cmd.Units), cmd.Chase), float64(len(cmd.Units)))
	}
}

func (s *Sim) sampleMovement() {
	for _, e := range s.World.EntitiesWith(ecs.KindTransform, ecs.KindMovement) {
		mv := e.Movement()
		if mv.Idle() {
			continue
		}
		p := e.Transform().Position
		s.Log.AddVerbose(s.tick, label(e.ID()), s.ownerName(e.ID()), "move", "pos",
			fmt.Sprintf("(%.2f, %.2f) waypoints=%d pending=%v", p.X, p.Z, len(mv.Path), mv.PathPending),
			float64(len(mv.Path)))
	}
}

func (s *Sim) ownerName(id ecs.EntityID) string {
	e := s.World.Entity(id)
	if e == nil || e.Unit() == nil {
		return "--"
	}
	return s.Owners.Name(e.Unit().OwnerID)
}

func label(id ecs.EntityID) string { return fmt.Sprintf("U%d", id) }
