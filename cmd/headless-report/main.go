package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/Garsondee/skirmish-core/internal/config"
	"github.com/Garsondee/skirmish-core/internal/logger"
	"github.com/Garsondee/skirmish-core/internal/scenario"
	"github.com/Garsondee/skirmish-core/internal/sim"
	"github.com/Garsondee/skirmish-core/internal/visibility"
)

type runStats struct {
	scenario string
	ticks    int
	player   int

	firstOrderTick   int
	firstArrivalTick int
	firstAIMoveTick  int
	firstAttackTick  int

	fogUpdates     int
	pathsSubmitted int
	arrivals       int
	arrivedBy      map[string]int

	report sim.Report
}

func main() {
	var scenarioPath, configPath, dumpFog string
	var ticks, player, tail int
	var copyReport bool

	flag.StringVar(&scenarioPath, "scenario", "", "scenario YAML (empty: built-in ford scenario)")
	flag.StringVar(&configPath, "config", "", "TOML config overlay")
	flag.IntVar(&ticks, "ticks", 600, "ticks to simulate")
	flag.IntVar(&player, "player", 0, "owner whose fog is reported (0: scenario local player)")
	flag.IntVar(&tail, "tail", 20, "event log lines to print")
	flag.StringVar(&dumpFog, "dump-fog", "", "write the final fog snapshot to this file")
	flag.BoolVar(&copyReport, "copy", false, "copy the report to the clipboard")
	flag.Parse()

	if ticks <= 0 {
		fmt.Println("error: -ticks must be > 0")
		os.Exit(2)
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			fmt.Println("error:", err)
			os.Exit(1)
		}
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}

	s := runScenario(cfg, sc, ticks, player)
	defer s.Close()
	rs := collect(s, sc.Name, ticks)

	out := formatRun(rs) + "\n" + rs.report.Format()
	fmt.Print(out)
	if tail > 0 {
		fmt.Printf("\n--- Last %d events ---\n", tail)
		for _, e := range s.Log.Tail(tail) {
			fmt.Println(e.String())
		}
	}

	if dumpFog != "" {
		if err := writeFog(dumpFog, s.Vis.Snapshot()); err != nil {
			fmt.Println("error:", err)
			os.Exit(1)
		}
		fmt.Printf("\nfog snapshot written to %s\n", dumpFog)
	}
	if copyReport {
		if err := clipboard.WriteAll(out); err != nil {
			fmt.Println("warning: clipboard:", err)
		}
	}
}

// runScenario builds a deterministic sim and advances it ticks steps.
func runScenario(cfg *config.Config, sc *scenario.Scenario, ticks, player int) *sim.Sim {
	opts := []sim.Option{sim.WithSync()}
	if player > 0 {
		opts = append(opts, sim.WithPlayer(player))
	}
	s := sim.FromScenario(cfg, sc, opts...)
	s.Run(ticks)
	return s
}

func collect(s *sim.Sim, name string, ticks int) runStats {
	entries := s.Log.Entries()
	arrivedBy := map[string]int{}
	for _, e := range entries {
		if e.Category == "move" && e.Key == "arrived" {
			arrivedBy[e.Owner]++
		}
	}
	return runStats{
		scenario:         name,
		ticks:            ticks,
		player:           s.PlayerID(),
		firstOrderTick:   firstTick(entries, "order", "move", ""),
		firstArrivalTick: firstTick(entries, "move", "arrived", ""),
		firstAIMoveTick:  firstTick(entries, "ai", "move", ""),
		firstAttackTick:  firstTick(entries, "ai", "attack", ""),
		fogUpdates:       s.Log.Count("fog", "update"),
		pathsSubmitted:   int(s.Cmd.Submitted()),
		arrivals:         s.Log.Count("move", "arrived"),
		arrivedBy:        arrivedBy,
		report:           s.Report(),
	}
}

func firstTick(entries []sim.LogEntry, category, key, contains string) int {
	for _, e := range entries {
		if e.Category != category || e.Key != key {
			continue
		}
		if contains == "" || strings.Contains(e.Value, contains) {
			return e.Tick
		}
	}
	return -1
}

func formatRun(rs runStats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Headless Run ===\n")
	fmt.Fprintf(&sb, "scenario=%s ticks=%d player=%d\n", rs.scenario, rs.ticks, rs.player)
	fmt.Fprintf(&sb, "phase_markers: first_order=%d first_arrival=%d first_ai_move=%d first_ai_attack=%d\n",
		rs.firstOrderTick, rs.firstArrivalTick, rs.firstAIMoveTick, rs.firstAttackTick)
	fmt.Fprintf(&sb, "event_totals: fog_update=%d paths_submitted=%d arrivals=%d\n",
		rs.fogUpdates, rs.pathsSubmitted, rs.arrivals)
	fmt.Fprintf(&sb, "arrivals_by_owner: %s\n", joinCounts(rs.arrivedBy))
	return sb.String()
}

func writeFog(path string, snap visibility.Snapshot) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return dumpSnapshot(f, snap)
}

func dumpSnapshot(w io.Writer, snap visibility.Snapshot) error {
	if err := visibility.WriteSnapshot(w, snap); err != nil {
		return fmt.Errorf("write fog snapshot: %w", err)
	}
	return nil
}

func joinCounts(m map[string]int) string {
	if len(m) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, ",")
}
