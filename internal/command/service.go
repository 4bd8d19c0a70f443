// Package command turns move and attack orders into movement state,
// coordinating with the asynchronous path queue.
package command

import (
	"context"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/Garsondee/skirmish-core/internal/ecs"
	"github.com/Garsondee/skirmish-core/internal/gridmath"
	"github.com/Garsondee/skirmish-core/internal/logger"
	"github.com/Garsondee/skirmish-core/internal/pathfind"
)

// Pathfinder is what the service needs from a path queue. *pathfind.Queue
// satisfies it.
type Pathfinder interface {
	SubmitPathRequest(id uint64, start, end gridmath.Cell)
	FetchCompletedPaths() []pathfind.Result
	IsWalkable(c gridmath.Cell) bool
	Grid() gridmath.Grid
}

// pendingRequest is the bookkeeping for one submitted search. Group
// requests list every member and its own target; entity is the leader
// whose position and target were searched.
type pendingRequest struct {
	entity  ecs.EntityID
	target  ecs.Vec3
	options MoveOptions
	members []ecs.EntityID
	targets []ecs.Vec3
}

// ApplyStats summarises one ProcessPathResults call.
type ApplyStats struct {
	Results   int // results drained
	Discarded int // results with no pending record
	Applied   int // movement components updated
}

// Option configures a Service.
type Option func(*Service)

func WithTuning(t Tuning) Option { return func(s *Service) { s.tuning = t } }

// WithWorkers sets the worker count of the queue built by Initialize.
func WithWorkers(n int) Option { return func(s *Service) { s.workers = n } }

// Service resolves orders. It is driven from the simulation goroutine; the
// pending maps are guarded together by mu.
type Service struct {
	tuning  Tuning
	workers int
	log     *logrus.Entry

	pf    Pathfinder
	owned *pathfind.Queue

	mu       sync.Mutex
	pending  map[uint64]*pendingRequest
	byEntity map[ecs.EntityID]uint64

	nextID    atomic.Uint64
	submitted atomic.Uint64
}

// New returns a service without a pathfinder. Until Initialize, moves are
// applied as direct target assignments.
func New(opts ...Option) *Service {
	s := &Service{
		tuning:   DefaultTuning(),
		workers:  2,
		log:      logger.For("command"),
		pending:  make(map[uint64]*pendingRequest),
		byEntity: make(map[ecs.EntityID]uint64),
	}
	s.nextID.Store(1)
	for _, o := range opts {
		o(s)
	}
	return s
}

// Initialize builds an open nav grid of the given world size, one cell per
// world unit centred on the origin, and starts a queue over it.
func (s *Service) Initialize(worldWidth, worldHeight int) {
	nav := pathfind.NewNavGrid(gridmath.New(worldWidth, worldHeight, 1))
	q := pathfind.NewQueue(context.Background(), nav, s.workers)
	s.InitializeWith(q)
	s.owned = q
}

// InitializeWith installs pf and clears all pending bookkeeping.
func (s *Service) InitializeWith(pf Pathfinder) {
	s.closeOwned()
	s.pf = pf

	s.mu.Lock()
	clear(s.pending)
	clear(s.byEntity)
	s.mu.Unlock()
	s.nextID.Store(1)

	g := pf.Grid()
	s.log.WithFields(logrus.Fields{"width": g.Width(), "height": g.Height()}).Info("command service initialized")
}

func (s *Service) closeOwned() {
	if s.owned != nil {
		_ = s.owned.Close()
		s.owned = nil
	}
}

// Close stops a queue created by Initialize. Pathfinders passed to
// InitializeWith belong to the caller.
func (s *Service) Close() error {
	q := s.owned
	if q == nil {
		return nil
	}
	s.owned = nil
	return q.Close()
}

func (s *Service) Pathfinder() Pathfinder { return s.pf }
func (s *Service) Tuning() Tuning         { return s.tuning }

// Submitted returns the number of path searches issued since New.
func (s *Service) Submitted() uint64 { return s.submitted.Load() }

// PendingCount returns the number of outstanding request records.
func (s *Service) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// PendingRequestFor returns the request id an entity is waiting on.
func (s *Service) PendingRequestFor(id ecs.EntityID) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.byEntity[id]
	return req, ok
}

// WorldToGrid maps a world position to the pathfinder grid. Without a
// pathfinder coordinates are rounded.
func (s *Service) WorldToGrid(x, z float64) gridmath.Cell {
	if s.pf == nil {
		return gridmath.Cell{X: int(math.Round(x)), Z: int(math.Round(z))}
	}
	return s.pf.Grid().WorldToGrid(x, z)
}

// GridToWorld is the inverse of WorldToGrid.
func (s *Service) GridToWorld(c gridmath.Cell) (float64, float64) {
	if s.pf == nil {
		return float64(c.X), float64(c.Z)
	}
	return s.pf.Grid().GridToWorld(c)
}

// ClearPendingRequest detaches the entity from whatever request it waits
// on. The record is dropped once no member references it.
func (s *Service) ClearPendingRequest(id ecs.EntityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked(id)
}

func (s *Service) detachLocked(id ecs.EntityID) {
	reqID, ok := s.byEntity[id]
	if !ok {
		return
	}
	delete(s.byEntity, id)
	p, ok := s.pending[reqID]
	if !ok {
		return
	}
	if i := slices.Index(p.members, id); i >= 0 {
		p.members = slices.Delete(p.members, i, i+1)
		p.targets = slices.Delete(p.targets, i, i+1)
	}
	if len(p.members) == 0 {
		delete(s.pending, reqID)
	}
}

// matchPending reports whether the entity's pending request already heads
// to target; if so the request adopts opts.
func (s *Service) matchPending(id ecs.EntityID, target ecs.Vec3, opts MoveOptions) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	reqID, ok := s.byEntity[id]
	if !ok {
		return false
	}
	p, ok := s.pending[reqID]
	if !ok {
		delete(s.byEntity, id)
		return false
	}
	if distSq(p.target.X, p.target.Z, target.X, target.Z) <= s.tuning.SameTargetThresholdSq {
		p.options = opts
		return true
	}
	return false
}

// mergeOrDetach is matchPending that also detaches the entity from a
// request heading somewhere else.
func (s *Service) mergeOrDetach(id ecs.EntityID, target ecs.Vec3, opts MoveOptions) bool {
	if s.matchPending(id, target, opts) {
		return true
	}
	s.ClearPendingRequest(id)
	return false
}

func (s *Service) submit(reqID uint64, start, end gridmath.Cell) {
	s.submitted.Add(1)
	s.pf.SubmitPathRequest(reqID, start, end)
	s.log.WithFields(logrus.Fields{
		"request": reqID,
		"start":   start,
		"end":     end,
	}).Debug("path requested")
}

func releaseHold(e *ecs.Entity) {
	if h := e.HoldMode(); h != nil && h.Active {
		h.Active = false
		h.ExitCooldown = h.StandUpDuration
	}
}

func meleeLocked(e *ecs.Entity) bool {
	a := e.Attack()
	return a != nil && a.InMeleeLock
}

func stamp(mv *ecs.Movement, target ecs.Vec3) {
	mv.TimeSinceLastPathRequest = 0
	mv.LastGoalX, mv.LastGoalZ = target.X, target.Z
}

func distSq(ax, az, bx, bz float64) float64 {
	dx, dz := ax-bx, az-bz
	return dx*dx + dz*dz
}

// assignDirect points the unit straight at target and drops any pending
// search it had.
func (s *Service) assignDirect(id ecs.EntityID, mv *ecs.Movement, target ecs.Vec3) {
	mv.TargetX, mv.TargetZ = target.X, target.Z
	mv.HasTarget = true
	mv.Path = nil
	mv.PathPending = false
	mv.PendingRequestID = 0
	mv.VX, mv.VZ = 0, 0
	s.ClearPendingRequest(id)
}

// MoveUnits orders each unit to its target. units and targets must have
// equal length; mismatched input is ignored.
func (s *Service) MoveUnits(world *ecs.World, units []ecs.EntityID, targets []ecs.Vec3, opts MoveOptions) {
	if len(units) != len(targets) {
		return
	}
	if opts.GroupMove && len(units) > 1 {
		s.moveGroup(world, units, targets, opts)
		return
	}
	for i, id := range units {
		s.moveOne(world, id, targets[i], opts)
	}
}

func (s *Service) moveOne(world *ecs.World, id ecs.EntityID, target ecs.Vec3, opts MoveOptions) {
	e := world.Entity(id)
	if e == nil {
		return
	}
	tr := e.Transform()
	if tr == nil || meleeLocked(e) {
		return
	}
	releaseHold(e)
	mv := e.AddMovement()
	if opts.ClearAttackIntent {
		e.RemoveAttackTarget()
	}

	matched := mv.PathPending && s.matchPending(id, target, opts)
	mv.GoalX, mv.GoalZ = target.X, target.Z
	if matched {
		return
	}

	t := &s.tuning
	if mv.TimeSinceLastPathRequest < t.PathRequestCooldown &&
		distSq(mv.LastGoalX, mv.LastGoalZ, target.X, target.Z) < t.TargetMovementThresholdSq {
		// An idle unit still gets its path even inside the cooldown.
		if mv.HasTarget || mv.PathPending {
			return
		}
	}

	if !mv.PathPending {
		if mv.HasTarget && len(mv.Path) == 0 &&
			distSq(mv.TargetX, mv.TargetZ, target.X, target.Z) <= t.SameTargetThresholdSq {
			return
		}
		if n := len(mv.Path); n > 0 &&
			distSq(mv.Path[n-1].X, mv.Path[n-1].Z, target.X, target.Z) <= t.SameTargetThresholdSq {
			return
		}
	}

	if s.pf == nil {
		s.assignDirect(id, mv, target)
		return
	}

	start := s.WorldToGrid(tr.Position.X, tr.Position.Z)
	end := s.WorldToGrid(target.X, target.Z)
	if start == end {
		s.assignDirect(id, mv, target)
		return
	}
	if opts.AllowDirectFallback && start.Manhattan(end) <= t.DirectPathThreshold {
		s.assignDirect(id, mv, target)
		stamp(mv, target)
		return
	}
	if s.mergeOrDetach(id, target, opts) {
		return
	}

	mv.Path = nil
	mv.HasTarget = false
	mv.VX, mv.VZ = 0, 0
	mv.PathPending = true
	reqID := s.nextID.Add(1) - 1
	mv.PendingRequestID = reqID

	s.mu.Lock()
	s.pending[reqID] = &pendingRequest{
		entity:  id,
		target:  target,
		options: opts,
		members: []ecs.EntityID{id},
		targets: []ecs.Vec3{target},
	}
	s.byEntity[id] = reqID
	s.mu.Unlock()

	s.submit(reqID, start, end)
	stamp(mv, target)
}

// ProcessPathResults drains finished searches and applies each to the
// entities still waiting on it.
func (s *Service) ProcessPathResults(world *ecs.World) ApplyStats {
	var stats ApplyStats
	if s.pf == nil {
		return stats
	}
	for _, res := range s.pf.FetchCompletedPaths() {
		stats.Results++

		s.mu.Lock()
		rec, ok := s.pending[res.RequestID]
		if ok {
			delete(s.pending, res.RequestID)
			for _, id := range append([]ecs.EntityID{rec.entity}, rec.members...) {
				if s.byEntity[id] == res.RequestID {
					delete(s.byEntity, id)
				}
			}
		}
		s.mu.Unlock()

		if !ok {
			stats.Discarded++
			continue
		}

		processed := make(map[ecs.EntityID]bool, len(rec.members)+1)
		apply := func(id ecs.EntityID, target ecs.Vec3) {
			if processed[id] {
				return
			}
			processed[id] = true
			offset := ecs.Vec3{X: target.X - rec.target.X, Z: target.Z - rec.target.Z}
			if s.applyPath(world, id, res, rec.options, target, offset) {
				stats.Applied++
			}
		}
		apply(rec.entity, rec.target)
		for i, id := range rec.members {
			apply(id, rec.targets[i])
		}
	}
	if stats.Results > 0 {
		s.log.WithFields(logrus.Fields{
			"results":   stats.Results,
			"applied":   stats.Applied,
			"discarded": stats.Discarded,
		}).Debug("path results processed")
	}
	return stats
}

// applyPath installs a search result on one entity, shifted by offset. It
// leaves the entity untouched unless it is still waiting on this request.
func (s *Service) applyPath(world *ecs.World, id ecs.EntityID, res pathfind.Result, opts MoveOptions, target, offset ecs.Vec3) bool {
	e := world.Entity(id)
	if e == nil {
		return false
	}
	mv, tr := e.Movement(), e.Transform()
	if mv == nil || tr == nil {
		return false
	}
	if !mv.PathPending || mv.PendingRequestID != res.RequestID {
		return false
	}

	mv.PathPending = false
	mv.PendingRequestID = 0
	mv.Path = nil
	mv.GoalX, mv.GoalZ = target.X, target.Z
	mv.VX, mv.VZ = 0, 0

	if len(res.Path) > 1 {
		path := make([]ecs.Waypoint, 0, len(res.Path)-1)
		for _, c := range res.Path[1:] {
			x, z := s.GridToWorld(c)
			path = append(path, ecs.Waypoint{X: x + offset.X, Z: z + offset.Z})
		}
		for len(path) > 0 &&
			distSq(path[0].X, path[0].Z, tr.Position.X, tr.Position.Z) <= s.tuning.WaypointSkipThresholdSq {
			path = path[1:]
		}
		if len(path) > 0 {
			mv.Path = path
			mv.TargetX, mv.TargetZ = path[0].X, path[0].Z
			mv.HasTarget = true
			return true
		}
	}

	if opts.AllowDirectFallback {
		mv.TargetX, mv.TargetZ = target.X, target.Z
		mv.HasTarget = true
	} else {
		mv.HasTarget = false
	}
	return true
}
