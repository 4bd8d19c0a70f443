package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Garsondee/skirmish-core/internal/config"
	"github.com/Garsondee/skirmish-core/internal/scenario"
	"github.com/Garsondee/skirmish-core/internal/sim"
	"github.com/Garsondee/skirmish-core/internal/visibility"
)

func TestFirstTick(t *testing.T) {
	entries := []sim.LogEntry{
		{Tick: 3, Category: "order", Key: "move", Value: "4 units to (1.0, 2.0) group=false"},
		{Tick: 9, Category: "order", Key: "move", Value: "6 units to (3.0, 0.0) group=true"},
	}
	if got := firstTick(entries, "order", "move", ""); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := firstTick(entries, "order", "move", "group=true"); got != 9 {
		t.Fatalf("expected 9, got %d", got)
	}
	if got := firstTick(entries, "ai", "attack", ""); got != -1 {
		t.Fatalf("expected -1 for a missing event, got %d", got)
	}
}

func TestJoinCounts(t *testing.T) {
	if got := joinCounts(nil); got != "none" {
		t.Fatalf("expected none, got %q", got)
	}
	if got := joinCounts(map[string]int{"Red": 2, "Blue": 5}); got != "Blue=5,Red=2" {
		t.Fatalf("unexpected join %q", got)
	}
}

func TestRunScenario_DefaultScenario(t *testing.T) {
	sc, err := scenario.Load("")
	if err != nil {
		t.Fatal(err)
	}
	s := runScenario(config.Default(), sc, 60, 0)
	defer s.Close()

	rs := collect(s, sc.Name, 60)
	if rs.firstOrderTick != 15 {
		t.Fatalf("expected the scripted order at tick 15, got %d", rs.firstOrderTick)
	}
	if rs.pathsSubmitted == 0 {
		t.Fatal("the scripted order should have searched")
	}
	out := formatRun(rs)
	if !strings.Contains(out, "scenario=ford") || !strings.Contains(out, "first_order=15") {
		t.Fatalf("unexpected run summary:\n%s", out)
	}
}

func TestDumpSnapshot_RoundTrip(t *testing.T) {
	sc, err := scenario.Load("")
	if err != nil {
		t.Fatal(err)
	}
	s := runScenario(config.Default(), sc, 5, 0)
	defer s.Close()

	var buf bytes.Buffer
	snap := s.Vis.Snapshot()
	if err := dumpSnapshot(&buf, snap); err != nil {
		t.Fatal(err)
	}
	back, err := visibility.ReadSnapshot(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if back.Width != snap.Width || back.Height != snap.Height || back.At(10, 10) != snap.At(10, 10) {
		t.Fatal("snapshot should survive the dump")
	}
}
