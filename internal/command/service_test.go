package command

import (
	"math"
	"reflect"
	"testing"

	"github.com/Garsondee/skirmish-core/internal/ecs"
	"github.com/Garsondee/skirmish-core/internal/gridmath"
	"github.com/Garsondee/skirmish-core/internal/pathfind"
)

// fakePathfinder records submissions and only completes them on demand.
type fakePathfinder struct {
	nav       *pathfind.NavGrid
	submitted []pathfind.Request
	ready     []pathfind.Result
}

func newFake(w, h int) *fakePathfinder {
	return &fakePathfinder{nav: pathfind.NewNavGrid(gridmath.New(w, h, 1))}
}

func (f *fakePathfinder) SubmitPathRequest(id uint64, start, end gridmath.Cell) {
	f.submitted = append(f.submitted, pathfind.Request{ID: id, Start: start, End: end})
}

func (f *fakePathfinder) FetchCompletedPaths() []pathfind.Result {
	out := f.ready
	f.ready = nil
	return out
}

func (f *fakePathfinder) IsWalkable(c gridmath.Cell) bool { return f.nav.IsWalkable(c) }
func (f *fakePathfinder) Grid() gridmath.Grid             { return f.nav.Grid() }

func (f *fakePathfinder) solve(id uint64) {
	for _, r := range f.submitted {
		if r.ID == id {
			f.ready = append(f.ready, pathfind.Result{RequestID: id, Path: f.nav.FindPath(r.Start, r.End)})
			return
		}
	}
}

func (f *fakePathfinder) solveAll() {
	for _, r := range f.submitted {
		f.solve(r.ID)
	}
}

func newService(t *testing.T) (*Service, *fakePathfinder) {
	t.Helper()
	pf := newFake(200, 200)
	s := New()
	s.InitializeWith(pf)
	return s, pf
}

func spawnAt(w *ecs.World, x, z float64) *ecs.Entity {
	e := w.Spawn()
	e.AddTransform().Position = ecs.Vec3{X: x, Z: z}
	e.AddUnit()
	e.AddMovement()
	return e
}

func vec(x, z float64) ecs.Vec3 { return ecs.Vec3{X: x, Z: z} }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func order(s *Service, w *ecs.World, e *ecs.Entity, x, z float64) {
	s.MoveUnits(w, []ecs.EntityID{e.ID()}, []ecs.Vec3{vec(x, z)}, DefaultMoveOptions())
}

func TestMoveUnits_FarTargetSubmitsPath(t *testing.T) {
	s, pf := newService(t)
	w := ecs.NewWorld()
	e := spawnAt(w, 0, 0)

	order(s, w, e, 20, 0)

	mv := e.Movement()
	if len(pf.submitted) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(pf.submitted))
	}
	if !mv.PathPending || mv.PendingRequestID == 0 || mv.HasTarget {
		t.Fatal("unit should be waiting on a path")
	}
	if req, ok := s.PendingRequestFor(e.ID()); !ok || req != mv.PendingRequestID {
		t.Fatal("pending record should map to the movement request id")
	}
	if mv.GoalX != 20 || mv.LastGoalX != 20 || mv.TimeSinceLastPathRequest != 0 {
		t.Fatal("goal and request stamp should be recorded")
	}
}

func TestMoveUnits_SubmittedCellsMatchGrid(t *testing.T) {
	s, pf := newService(t)
	w := ecs.NewWorld()
	e := spawnAt(w, -10, 5)
	order(s, w, e, 30, -20)

	req := pf.submitted[0]
	if req.Start != s.WorldToGrid(-10, 5) || req.End != s.WorldToGrid(30, -20) {
		t.Fatalf("unexpected request cells %v -> %v", req.Start, req.End)
	}
}

func TestMoveUnits_Idempotent(t *testing.T) {
	for _, tc := range []struct {
		name string
		x, z float64
	}{
		{"searched", 25, 0},
		{"direct", 2, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, pf := newService(t)
			w := ecs.NewWorld()
			e := spawnAt(w, 0, 0)

			order(s, w, e, tc.x, tc.z)
			once := *e.Movement()
			subs := len(pf.submitted)

			order(s, w, e, tc.x, tc.z)
			if !reflect.DeepEqual(once, *e.Movement()) {
				t.Fatalf("second order changed movement:\n%+v\n%+v", once, *e.Movement())
			}
			if len(pf.submitted) != subs {
				t.Fatal("second order should not submit again")
			}
		})
	}
}

func TestMoveUnits_StaleResultDiscarded(t *testing.T) {
	s, pf := newService(t)
	w := ecs.NewWorld()
	e := spawnAt(w, 0, 0)

	order(s, w, e, 20, 0)
	first := e.Movement().PendingRequestID
	order(s, w, e, -30, 10)
	second := e.Movement().PendingRequestID
	if first == second || len(pf.submitted) != 2 {
		t.Fatal("a materially different target should replace the request")
	}
	if s.PendingCount() != 1 {
		t.Fatalf("superseded record should be dropped, have %d", s.PendingCount())
	}

	before := *e.Movement()
	pf.solve(first)
	stats := s.ProcessPathResults(w)
	if stats.Discarded != 1 || stats.Applied != 0 {
		t.Fatalf("stale result should be discarded, got %+v", stats)
	}
	if !reflect.DeepEqual(before, *e.Movement()) {
		t.Fatal("stale result must not touch the movement component")
	}

	pf.solve(second)
	if s.ProcessPathResults(w).Applied != 1 {
		t.Fatal("current result should apply")
	}
	if e.Movement().PathPending || !e.Movement().HasTarget {
		t.Fatal("unit should be following its path")
	}
}

func TestProcessPathResults_BuildsWorldPath(t *testing.T) {
	s, pf := newService(t)
	w := ecs.NewWorld()
	e := spawnAt(w, 0, 0)
	order(s, w, e, 20, 0)

	pf.solveAll()
	s.ProcessPathResults(w)

	mv := e.Movement()
	if len(mv.Path) == 0 {
		t.Fatal("expected waypoints")
	}
	pos := e.Transform().Position
	if distSq(mv.Path[0].X, mv.Path[0].Z, pos.X, pos.Z) <= s.Tuning().WaypointSkipThresholdSq {
		t.Fatal("waypoints within the skip distance should be trimmed")
	}
	if mv.TargetX != mv.Path[0].X || mv.TargetZ != mv.Path[0].Z {
		t.Fatal("current target should be the first waypoint")
	}
	ex, ez := s.GridToWorld(s.WorldToGrid(20, 0))
	last := mv.Path[len(mv.Path)-1]
	if !approx(last.X, ex) || !approx(last.Z, ez) {
		t.Fatalf("path should end at the goal cell centre, got %+v", last)
	}
	if _, ok := s.PendingRequestFor(e.ID()); ok || s.PendingCount() != 0 {
		t.Fatal("applied request should be consumed")
	}
}

func TestProcessPathResults_EmptyPathFallback(t *testing.T) {
	for _, allow := range []bool{true, false} {
		s, pf := newService(t)
		w := ecs.NewWorld()
		e := spawnAt(w, 0, 0)
		s.MoveUnits(w, []ecs.EntityID{e.ID()}, []ecs.Vec3{vec(50, 0)}, MoveOptions{AllowDirectFallback: allow})

		req := pf.submitted[0]
		pf.ready = append(pf.ready, pathfind.Result{RequestID: req.ID, Path: []gridmath.Cell{req.Start}})
		s.ProcessPathResults(w)

		mv := e.Movement()
		if mv.HasTarget != allow {
			t.Fatalf("allow=%v: HasTarget=%v", allow, mv.HasTarget)
		}
		if allow && (mv.TargetX != 50 || mv.TargetZ != 0) {
			t.Fatal("fallback should head straight for the goal")
		}
		if mv.PathPending {
			t.Fatal("pending flag should clear")
		}
	}
}

func TestMoveUnits_CooldownSuppressesNearbyReissue(t *testing.T) {
	s, pf := newService(t)
	w := ecs.NewWorld()
	e := spawnAt(w, 0, 0)
	order(s, w, e, 20, 0)
	pf.solveAll()
	s.ProcessPathResults(w)

	order(s, w, e, 21, 0)
	if len(pf.submitted) != 1 {
		t.Fatal("a nearby reissue inside the cooldown should be suppressed")
	}
	if e.Movement().GoalX != 21 {
		t.Fatal("goal should still track the latest order")
	}

	e.Movement().TimeSinceLastPathRequest = 2
	order(s, w, e, 21, 0)
	if len(pf.submitted) != 2 {
		t.Fatal("after the cooldown the order should search again")
	}
}

func TestMoveUnits_IdleUnitIgnoresCooldown(t *testing.T) {
	s, pf := newService(t)
	w := ecs.NewWorld()
	e := spawnAt(w, 30, 30)
	order(s, w, e, 1, 0) // close to the zero last goal, inside the cooldown
	if len(pf.submitted) != 1 {
		t.Fatal("an idle unit should get a path even under cooldown")
	}
}

func TestMoveUnits_AlreadyHeadingThere(t *testing.T) {
	s, pf := newService(t)
	w := ecs.NewWorld()
	e := spawnAt(w, 0, 0)
	ex, ez := s.GridToWorld(s.WorldToGrid(40, 0))
	mv := e.Movement()
	mv.Path = []ecs.Waypoint{{X: 10, Z: 0}, {X: ex, Z: ez}}
	mv.HasTarget = true
	mv.TimeSinceLastPathRequest = 5

	order(s, w, e, ex, ez)
	if len(pf.submitted) != 0 || len(mv.Path) != 2 {
		t.Fatal("order matching the path tail should be a no-op")
	}
}

func TestMoveUnits_SameCellSnaps(t *testing.T) {
	s, pf := newService(t)
	w := ecs.NewWorld()
	e := spawnAt(w, 0.1, 0.1)
	order(s, w, e, 0.2, 0.3)
	mv := e.Movement()
	if len(pf.submitted) != 0 || !mv.HasTarget || mv.TargetX != 0.2 || mv.TargetZ != 0.3 {
		t.Fatal("same-cell order should snap without a search")
	}
}

func TestMoveUnits_DirectFallbackRequiresOption(t *testing.T) {
	s, pf := newService(t)
	w := ecs.NewWorld()
	e := spawnAt(w, 0, 0)
	s.MoveUnits(w, []ecs.EntityID{e.ID()}, []ecs.Vec3{vec(3, 0)}, MoveOptions{})
	if len(pf.submitted) != 1 {
		t.Fatal("without direct fallback a short hop still searches")
	}
}

func TestMoveUnits_MeleeLockedSkipped(t *testing.T) {
	s, pf := newService(t)
	w := ecs.NewWorld()
	e := spawnAt(w, 0, 0)
	e.AddAttack().InMeleeLock = true
	h := e.AddHoldMode()
	h.Active = true

	order(s, w, e, 30, 0)
	if len(pf.submitted) != 0 || !e.Movement().Idle() {
		t.Fatal("melee-locked unit must not be redirected")
	}
	if !h.Active {
		t.Fatal("melee-locked unit keeps its stance")
	}
}

func TestMoveUnits_ReleasesHoldAndAttackIntent(t *testing.T) {
	s, _ := newService(t)
	w := ecs.NewWorld()
	e := spawnAt(w, 0, 0)
	h := e.AddHoldMode()
	h.Active, h.StandUpDuration = true, 1.5
	e.AddAttackTarget().TargetID = 9

	order(s, w, e, 30, 0)
	if h.Active || h.ExitCooldown != 1.5 {
		t.Fatal("hold should be released with the stand-up cooldown")
	}
	if e.AttackTarget() != nil {
		t.Fatal("attack intent should be cleared")
	}
}

func TestMoveUnits_MismatchedInputIgnored(t *testing.T) {
	s, pf := newService(t)
	w := ecs.NewWorld()
	e := spawnAt(w, 0, 0)
	s.MoveUnits(w, []ecs.EntityID{e.ID()}, nil, DefaultMoveOptions())
	s.MoveUnits(w, []ecs.EntityID{999}, []ecs.Vec3{vec(50, 0)}, DefaultMoveOptions())
	if len(pf.submitted) != 0 {
		t.Fatal("bad input should be ignored")
	}
}

func TestMoveUnits_NoPathfinderAssignsDirect(t *testing.T) {
	s := New()
	w := ecs.NewWorld()
	e := spawnAt(w, 0, 0)
	order(s, w, e, 80, 0)
	mv := e.Movement()
	if !mv.HasTarget || mv.PathPending || mv.TargetX != 80 {
		t.Fatal("without a pathfinder moves should be direct")
	}
	if s.ProcessPathResults(w) != (ApplyStats{}) {
		t.Fatal("nothing to process without a pathfinder")
	}
	if c := s.WorldToGrid(2.6, -1.4); c != (gridmath.Cell{X: 3, Z: -1}) {
		t.Fatalf("fallback grid mapping should round, got %v", c)
	}
}

func TestInitialize_OwnsAQueue(t *testing.T) {
	s := New(WithWorkers(1))
	s.Initialize(64, 64)
	defer s.Close()
	if s.Pathfinder() == nil || s.Pathfinder().Grid().Width() != 64 {
		t.Fatal("initialize should install a 64-wide pathfinder")
	}
	if c := s.WorldToGrid(0, 0); c != (gridmath.Cell{X: 32, Z: 32}) {
		t.Fatalf("world origin should map near the grid centre, got %v", c)
	}
}
