package visibility

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"golang.org/x/exp/rand"

	"github.com/Garsondee/skirmish-core/internal/ecs"
	"github.com/Garsondee/skirmish-core/internal/owner"
)

// manualRunner holds launched tasks until the test runs them.
type manualRunner struct {
	tasks []func()
}

func (m *manualRunner) run(task func()) { m.tasks = append(m.tasks, task) }

func (m *manualRunner) drain() {
	for _, t := range m.tasks {
		t()
	}
	m.tasks = nil
}

func spawnUnit(w *ecs.World, ownerID int, x, z float64) *ecs.Entity {
	e := w.Spawn()
	e.AddTransform().Position = ecs.Vec3{X: x, Z: z}
	u := e.AddUnit()
	u.OwnerID = ownerID
	u.Health, u.MaxHealth = 100, 100
	return e
}

func twoTeams() *owner.Registry {
	r := owner.NewRegistry()
	p := r.Register(owner.TypePlayer, "")
	a := r.Register(owner.TypeAI, "")
	e := r.Register(owner.TypeAI, "")
	r.SetTeam(p, 1)
	r.SetTeam(a, 1)
	r.SetTeam(e, 2)
	return r
}

func TestService_FailOpenBeforeInitialize(t *testing.T) {
	s := New(nil)
	if !s.IsVisibleWorld(3, 4) || !s.IsExploredWorld(-100, 100) {
		t.Fatal("uninitialised queries should fail open")
	}
	if s.StateAt(0, 0) != Visible {
		t.Fatal("uninitialised StateAt should read Visible")
	}
	if s.Update(ecs.NewWorld(), 1) {
		t.Fatal("update before initialize should do nothing")
	}
	if s.InFlight() {
		t.Fatal("no job should launch before initialize")
	}
}

func TestService_InitializeAllUnseen(t *testing.T) {
	s := New(nil)
	s.Initialize(16, 8, 2)
	if s.Width() != 16 || s.Height() != 8 || s.TileSize() != 2 {
		t.Fatal("dimensions not recorded")
	}
	if s.Version() != 1 || s.Generation() != 0 {
		t.Fatalf("counters should reset, got v=%d g=%d", s.Version(), s.Generation())
	}
	un, ex, vis := s.Coverage()
	if un != 128 || ex != 0 || vis != 0 {
		t.Fatalf("expected all unseen, got %d/%d/%d", un, ex, vis)
	}
	if s.StateAt(-1, 0) != Visible || !s.IsVisibleWorld(1e6, 0) {
		t.Fatal("off-grid queries should fail open")
	}
}

func TestService_ComputeImmediateRevealsAndDecays(t *testing.T) {
	w := ecs.NewWorld()
	u := spawnUnit(w, 1, -20, 0)
	s := New(nil)
	s.Initialize(64, 64, 1)

	s.ComputeImmediate(w, 1)
	if !s.IsVisibleWorld(-20, 0) || !s.IsVisibleWorld(-20, 12) {
		t.Fatal("cells within vision range should be visible")
	}
	if s.IsVisibleWorld(-20, 14) {
		t.Fatal("cells beyond range+padding should stay hidden")
	}
	if s.IsExploredWorld(20, 0) {
		t.Fatal("far cells should still be unseen")
	}
	v := s.Version()

	u.Transform().Position.X = 20
	s.ComputeImmediate(w, 1)
	if s.Version() != v+1 {
		t.Fatal("a changed grid should bump the version once")
	}
	if s.IsVisibleWorld(-20, 0) || !s.IsExploredWorld(-20, 0) {
		t.Fatal("cells no longer covered should decay to explored")
	}
	if !s.IsVisibleWorld(20, 0) {
		t.Fatal("new position should be visible")
	}
}

func TestService_NoVersionBumpWhenUnchanged(t *testing.T) {
	w := ecs.NewWorld()
	spawnUnit(w, 1, 0, 0)
	s := New(nil)
	s.Initialize(32, 32, 1)
	s.ComputeImmediate(w, 1)
	v, g := s.Version(), s.Generation()
	s.ComputeImmediate(w, 1)
	if s.Version() != v {
		t.Fatal("identical coverage should not bump the version")
	}
	if s.Generation() != g+1 {
		t.Fatal("every computation should advance the generation")
	}
}

func TestService_VisionFloorAndCustomRange(t *testing.T) {
	w := ecs.NewWorld()
	e := spawnUnit(w, 1, 0, 0)
	e.Unit().VisionRange = 3
	s := New(nil)
	s.Initialize(80, 80, 1)
	s.ComputeImmediate(w, 1)
	if !s.IsVisibleWorld(0, 11) {
		t.Fatal("vision below the floor should be raised to the default")
	}

	e.Unit().VisionRange = 25
	s.ComputeImmediate(w, 1)
	if !s.IsVisibleWorld(0, 24) {
		t.Fatal("vision above the floor should be used as is")
	}
}

func TestService_SourceFiltering(t *testing.T) {
	reg := twoTeams()
	w := ecs.NewWorld()
	spawnUnit(w, 2, -24, 0) // ally
	spawnUnit(w, 3, 24, 0)  // enemy
	spawnUnit(w, 0, 0, 24)  // neutral
	dead := spawnUnit(w, 1, 0, -24)
	dead.Unit().Health = 0

	s := New(reg)
	s.Initialize(80, 80, 1)
	s.ComputeImmediate(w, 1)

	if !s.IsVisibleWorld(-24, 0) {
		t.Fatal("allied units should grant vision")
	}
	if s.IsExploredWorld(24, 0) {
		t.Fatal("enemy units must not grant vision")
	}
	if s.IsExploredWorld(0, 24) {
		t.Fatal("neutral units must not grant vision")
	}
	if s.IsExploredWorld(0, -24) {
		t.Fatal("dead units must not grant vision")
	}
	if n := len(s.Sources(w, 1)); n != 1 {
		t.Fatalf("expected 1 source, got %d", n)
	}
}

func TestService_OffGridSourceSkipped(t *testing.T) {
	w := ecs.NewWorld()
	spawnUnit(w, 1, 500, 0)
	s := New(nil)
	s.Initialize(32, 32, 1)
	if len(s.Sources(w, 1)) != 0 {
		t.Fatal("a unit whose centre is off the grid gives no source")
	}
}

func TestService_SingleFlightJob(t *testing.T) {
	runner := &manualRunner{}
	w := ecs.NewWorld()
	spawnUnit(w, 1, 0, 0)
	s := New(nil, WithJobRunner(runner.run))
	s.Initialize(32, 32, 1)

	if s.Update(w, 1) {
		t.Fatal("first update has nothing to integrate")
	}
	s.Update(w, 1)
	s.Update(w, 1)
	if len(runner.tasks) != 1 {
		t.Fatalf("expected exactly one job in flight, got %d", len(runner.tasks))
	}
	if s.IsVisibleWorld(0, 0) {
		t.Fatal("grid should not change until the job is integrated")
	}

	runner.drain()
	if !s.Update(w, 1) {
		t.Fatal("update after job completion should integrate a change")
	}
	if !s.IsVisibleWorld(0, 0) {
		t.Fatal("integrated job should reveal the unit")
	}
	if len(runner.tasks) != 1 {
		t.Fatal("integration should be followed by exactly one new launch")
	}
	runner.drain()
	if s.Update(w, 1) {
		t.Fatal("unchanged coverage should not report a change")
	}
}

func TestService_StaleJobDiscarded(t *testing.T) {
	runner := &manualRunner{}
	w := ecs.NewWorld()
	spawnUnit(w, 1, 0, 0)
	s := New(nil, WithJobRunner(runner.run))
	s.Initialize(32, 32, 1)

	s.Update(w, 1)
	s.Reset()
	runner.drain()
	if s.Update(w, 1) {
		t.Fatal("a job launched before reset should not be applied")
	}
	if s.IsExploredWorld(0, 0) {
		t.Fatal("reset grid should stay unseen")
	}
	runner.drain()
	if !s.Update(w, 1) {
		t.Fatal("the job launched after reset should apply")
	}
}

func TestService_AsyncRunnerEventuallyIntegrates(t *testing.T) {
	w := ecs.NewWorld()
	spawnUnit(w, 1, 0, 0)
	s := New(nil)
	s.Initialize(48, 48, 1)

	deadline := time.Now().Add(2 * time.Second)
	for !s.IsVisibleWorld(0, 0) && time.Now().Before(deadline) {
		s.Update(w, 1)
		time.Sleep(time.Millisecond)
	}
	if !s.IsVisibleWorld(0, 0) {
		t.Fatal("background job never integrated")
	}
}

func TestService_MonotonicLifecycle(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	w := ecs.NewWorld()
	units := []*ecs.Entity{spawnUnit(w, 1, 0, 0), spawnUnit(w, 1, 10, 10)}
	s := New(nil)
	s.Initialize(64, 64, 1)

	prev := s.SnapshotCells()
	for step := 0; step < 40; step++ {
		for _, u := range units {
			u.Transform().Position.X = rng.Float64()*60 - 30
			u.Transform().Position.Z = rng.Float64()*60 - 30
		}
		s.ComputeImmediate(w, 1)
		cur := s.SnapshotCells()
		for i := range cur {
			if prev[i] != Unseen && cur[i] == Unseen {
				t.Fatalf("step %d: cell %d returned to unseen", step, i)
			}
		}
		prev = cur
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	w := ecs.NewWorld()
	spawnUnit(w, 1, 0, 0)
	s := New(nil)
	s.Initialize(40, 24, 1)
	s.ComputeImmediate(w, 1)

	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, s.Snapshot()); err != nil {
		t.Fatal(err)
	}
	got, err := ReadSnapshot(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Width != 40 || got.Height != 24 {
		t.Fatalf("unexpected size %dx%d", got.Width, got.Height)
	}
	want := s.SnapshotCells()
	for i := range want {
		if got.Cells[i] != want[i] {
			t.Fatalf("cell %d differs", i)
		}
	}
}

func TestSnapshot_RejectsMismatchedCells(t *testing.T) {
	err := WriteSnapshot(&bytes.Buffer{}, Snapshot{Width: 2, Height: 2, Cells: []State{Unseen}})
	if err == nil {
		t.Fatal("cell count mismatch should fail")
	}
}

func TestSnapshot_RejectsGarbage(t *testing.T) {
	_, err := ReadSnapshot(bytes.NewReader([]byte("not a zstd frame")))
	if err == nil {
		t.Fatal("garbage input should fail")
	}
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, Snapshot{Width: 1, Height: 1, Cells: []State{Visible}}); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	if _, err := ReadSnapshot(bytes.NewReader(raw)); errors.Is(err, ErrBadSnapshot) {
		t.Fatal("valid frame must not be rejected")
	}
}
