// Package visibility maintains the fog-of-war grid for one viewing player.
//
// Classification runs off the simulation goroutine as a single in-flight
// job; Update polls it each tick and never blocks. Queries are safe from
// any goroutine.
package visibility

import (
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/Garsondee/skirmish-core/internal/ecs"
	"github.com/Garsondee/skirmish-core/internal/gridmath"
	"github.com/Garsondee/skirmish-core/internal/logger"
)

// State is the per-cell fog classification.
type State uint8

const (
	Unseen State = iota
	Explored
	Visible
)

func (s State) String() string {
	switch s {
	case Unseen:
		return "unseen"
	case Explored:
		return "explored"
	default:
		return "visible"
	}
}

// DefaultVisionRange is the floor applied to every unit's vision range.
const DefaultVisionRange = 12.0

// Owners is the slice of the owner registry the service consults.
type Owners interface {
	AreAllies(a, b int) bool
	IsNeutral(id int) bool
}

// VisionSource is one unit's footprint for a single pass.
type VisionSource struct {
	Center  gridmath.Cell
	Radius  int     // cells
	RangeSq float64 // (vision + half tile)^2, world units
}

type jobResult struct {
	cells   []State
	changed bool
}

// job is the handle for the in-flight classification. done is closed once
// result is written. A stale job still occupies the slot until it finishes
// but its result is discarded.
type job struct {
	generation uint64
	width      int
	height     int
	done       chan struct{}
	result     jobResult
	stale      atomic.Bool
}

func (j *job) ready() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Option configures a Service.
type Option func(*Service)

// WithJobRunner replaces the goroutine launcher used for background jobs.
func WithJobRunner(run func(task func())) Option {
	return func(s *Service) { s.run = run }
}

// WithVisionFloor overrides DefaultVisionRange.
func WithVisionFloor(r float64) Option {
	return func(s *Service) { s.visionFloor = r }
}

// Service is the fog-of-war grid. The zero value is not usable; use New.
type Service struct {
	owners      Owners
	visionFloor float64
	run         func(task func())
	log         *logrus.Entry

	mu          sync.RWMutex
	grid        gridmath.Grid
	cells       []State
	initialized bool

	version    atomic.Uint64
	generation atomic.Uint64

	jobMu  sync.Mutex
	active *job
}

// New returns an uninitialised service. owners may be nil, in which case
// only the viewing player's own units give vision.
func New(owners Owners, opts ...Option) *Service {
	s := &Service{
		owners:      owners,
		visionFloor: DefaultVisionRange,
		run:         func(task func()) { go task() },
		log:         logger.For("visibility"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Initialize allocates an all-Unseen grid and resets the counters.
func (s *Service) Initialize(width, height int, tileSize float64) {
	g := gridmath.New(width, height, tileSize)

	s.mu.Lock()
	s.grid = g
	s.cells = make([]State, g.CellCount())
	s.initialized = true
	s.version.Store(1)
	s.generation.Store(0)
	s.mu.Unlock()

	s.markActiveStale()
	s.log.WithFields(logrus.Fields{
		"width":     g.Width(),
		"height":    g.Height(),
		"tile_size": g.TileSize(),
	}).Info("visibility initialized")
}

// Reset returns every cell to Unseen and bumps the version.
func (s *Service) Reset() {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return
	}
	clear(s.cells)
	s.version.Add(1)
	s.mu.Unlock()

	s.markActiveStale()
	s.log.Debug("visibility reset")
}

func (s *Service) markActiveStale() {
	s.jobMu.Lock()
	if s.active != nil {
		s.active.stale.Store(true)
	}
	s.jobMu.Unlock()
}

// Update integrates a finished job, then launches a new one if the slot is
// free. It reports whether the grid changed.
func (s *Service) Update(world *ecs.World, playerID int) bool {
	if !s.IsInitialized() {
		return false
	}
	integrated := s.integrate()

	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if s.active == nil {
		j, task := s.compose(s.Sources(world, playerID))
		s.active = j
		s.log.WithFields(logrus.Fields{"generation": j.generation}).Debug("visibility job launched")
		s.run(task)
	}
	return integrated
}

// ComputeImmediate classifies synchronously and applies the result. Any
// job already in flight is marked stale.
func (s *Service) ComputeImmediate(world *ecs.World, playerID int) {
	if !s.IsInitialized() {
		return
	}
	sources := s.Sources(world, playerID)
	s.markActiveStale()

	s.mu.Lock()
	defer s.mu.Unlock()
	res := classify(s.grid, slices.Clone(s.cells), sources)
	s.generation.Add(1)
	if res.changed {
		s.cells = res.cells
		s.version.Add(1)
	}
}

// InFlight reports whether a background job currently holds the slot.
func (s *Service) InFlight() bool {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	return s.active != nil
}

// compose snapshots the grid under the read lock and returns the job
// handle plus the task that fills it. The task only touches captured copies.
func (s *Service) compose(sources []VisionSource) (*job, func()) {
	s.mu.RLock()
	grid := s.grid
	cells := slices.Clone(s.cells)
	s.mu.RUnlock()

	j := &job{
		generation: s.generation.Add(1) - 1,
		width:      grid.Width(),
		height:     grid.Height(),
		done:       make(chan struct{}),
	}
	return j, func() {
		j.result = classify(grid, cells, sources)
		close(j.done)
	}
}

// integrate swaps in a finished job's cells when they changed.
func (s *Service) integrate() bool {
	s.jobMu.Lock()
	j := s.active
	if j == nil || !j.ready() {
		s.jobMu.Unlock()
		return false
	}
	s.active = nil
	s.jobMu.Unlock()

	if j.stale.Load() || !j.result.changed {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if j.width != s.grid.Width() || j.height != s.grid.Height() {
		return false
	}
	s.cells = j.result.cells
	s.version.Add(1)
	return true
}

// Sources gathers the vision sources for playerID: live, owned or allied,
// non-neutral units whose centre lies on the grid.
func (s *Service) Sources(world *ecs.World, playerID int) []VisionSource {
	s.mu.RLock()
	grid := s.grid
	s.mu.RUnlock()

	padding := grid.TileSize() * 0.5
	var out []VisionSource
	for _, e := range world.EntitiesWith(ecs.KindTransform, ecs.KindUnit) {
		u := e.Unit()
		if s.isNeutral(u.OwnerID) {
			continue
		}
		if u.OwnerID != playerID && !s.allied(playerID, u.OwnerID) {
			continue
		}
		if u.Health <= 0 {
			continue
		}
		tr := e.Transform()
		center := grid.WorldToGrid(tr.Position.X, tr.Position.Z)
		if !grid.InBounds(center) {
			continue
		}
		vision := math.Max(u.VisionRange, s.visionFloor)
		expanded := vision + padding
		out = append(out, VisionSource{
			Center:  center,
			Radius:  max(1, int(math.Ceil(vision/grid.TileSize()))),
			RangeSq: expanded * expanded,
		})
	}
	return out
}

func (s *Service) isNeutral(id int) bool {
	if s.owners == nil {
		return id == 0
	}
	return s.owners.IsNeutral(id)
}

func (s *Service) allied(a, b int) bool {
	if s.owners == nil {
		return a == b
	}
	return s.owners.AreAllies(a, b)
}

// classify marks every cell covered by a source Visible, decays uncovered
// Visible cells to Explored and leaves Unseen cells alone. cells is
// modified in place.
func classify(grid gridmath.Grid, cells []State, sources []VisionSource) jobResult {
	covered := make([]bool, len(cells))
	ts := grid.TileSize()
	for _, src := range sources {
		for dz := -src.Radius; dz <= src.Radius; dz++ {
			wdz := float64(dz) * ts
			for dx := -src.Radius; dx <= src.Radius; dx++ {
				c := gridmath.Cell{X: src.Center.X + dx, Z: src.Center.Z + dz}
				if !grid.InBounds(c) {
					continue
				}
				wdx := float64(dx) * ts
				if wdx*wdx+wdz*wdz <= src.RangeSq {
					covered[grid.Index(c)] = true
				}
			}
		}
	}

	changed := false
	for i, now := range covered {
		switch {
		case now && cells[i] != Visible:
			cells[i] = Visible
			changed = true
		case !now && cells[i] == Visible:
			cells[i] = Explored
			changed = true
		}
	}
	return jobResult{cells: cells, changed: changed}
}

// StateAt returns the state of a cell. Out-of-bounds cells and an
// uninitialised service read as Visible.
func (s *Service) StateAt(x, z int) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := gridmath.Cell{X: x, Z: z}
	if !s.initialized || !s.grid.InBounds(c) {
		return Visible
	}
	return s.cells[s.grid.Index(c)]
}

func (s *Service) stateAtWorld(x, z float64) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return Visible, false
	}
	c := s.grid.WorldToGrid(x, z)
	if !s.grid.InBounds(c) {
		return Visible, false
	}
	return s.cells[s.grid.Index(c)], true
}

// IsVisibleWorld reports whether the world position is currently seen.
// Positions off the grid and queries before Initialize return true.
func (s *Service) IsVisibleWorld(x, z float64) bool {
	st, ok := s.stateAtWorld(x, z)
	return !ok || st == Visible
}

// IsExploredWorld reports whether the position has ever been seen, with
// the same fail-open rules as IsVisibleWorld.
func (s *Service) IsExploredWorld(x, z float64) bool {
	st, ok := s.stateAtWorld(x, z)
	return !ok || st != Unseen
}

// SnapshotCells returns a copy of the grid in row-major order.
func (s *Service) SnapshotCells() []State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.cells)
}

// Snapshot returns a copy of the grid with its dimensions.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Width:  s.grid.Width(),
		Height: s.grid.Height(),
		Cells:  slices.Clone(s.cells),
	}
}

// Coverage counts cells per state.
func (s *Service) Coverage() (unseen, explored, visible int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cells {
		switch c {
		case Unseen:
			unseen++
		case Explored:
			explored++
		case Visible:
			visible++
		}
	}
	return unseen, explored, visible
}

func (s *Service) Version() uint64    { return s.version.Load() }
func (s *Service) Generation() uint64 { return s.generation.Load() }

func (s *Service) Grid() gridmath.Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid
}

func (s *Service) Width() int        { return s.Grid().Width() }
func (s *Service) Height() int       { return s.Grid().Height() }
func (s *Service) TileSize() float64 { return s.Grid().TileSize() }

func (s *Service) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}
