package sim

import (
	"fmt"
	"strings"

	"github.com/Garsondee/skirmish-core/internal/ecs"
)

// OwnerSummary counts one owner's units by movement state.
type OwnerSummary struct {
	ID      int
	Name    string
	Alive   int
	Moving  int
	Pending int
	Idle    int
}

// Report is a snapshot of the run so far.
type Report struct {
	Tick    int
	Seconds float64

	Width, Height             int
	Unseen, Explored, Visible int
	FogVersion, FogGeneration uint64

	PathsSubmitted uint64
	PathResults    int
	PathsApplied   int
	PathsDiscarded int
	PendingNow     int

	Arrivals     int
	OrdersIssued int
	AIMoves      int
	AIAttacks    int

	Owners []OwnerSummary
}

// Report gathers the current state and running totals.
func (s *Sim) Report() Report {
	unseen, explored, visible := s.Vis.Coverage()
	r := Report{
		Tick:           s.tick,
		Seconds:        s.Seconds(),
		Width:          s.Vis.Width(),
		Height:         s.Vis.Height(),
		Unseen:         unseen,
		Explored:       explored,
		Visible:        visible,
		FogVersion:     s.Vis.Version(),
		FogGeneration:  s.Vis.Generation(),
		PathsSubmitted: s.Cmd.Submitted(),
		PathResults:    s.totals.pathResults,
		PathsApplied:   s.totals.pathsApplied,
		PathsDiscarded: s.totals.pathsDiscarded,
		PendingNow:     s.Cmd.PendingCount(),
		Arrivals:       s.totals.arrivals,
		OrdersIssued:   s.totals.ordersIssued,
		AIMoves:        s.totals.aiMoves,
		AIAttacks:      s.totals.aiAttacks,
	}

	index := map[int]int{}
	for _, o := range s.Owners.Owners() {
		index[o.ID] = len(r.Owners)
		r.Owners = append(r.Owners, OwnerSummary{ID: o.ID, Name: o.Name})
	}
	for _, e := range s.World.EntitiesWith(ecs.KindUnit, ecs.KindMovement) {
		u := e.Unit()
		i, ok := index[u.OwnerID]
		if !ok || u.Health <= 0 {
			continue
		}
		sum := &r.Owners[i]
		sum.Alive++
		mv := e.Movement()
		switch {
		case mv.PathPending:
			sum.Pending++
		case mv.HasTarget:
			sum.Moving++
		default:
			sum.Idle++
		}
	}
	return r
}

// Format renders the report for terminals and the clipboard.
func (r Report) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Simulation Report (T=%d, %.1fs) ===\n", r.Tick, r.Seconds)

	total := r.Unseen + r.Explored + r.Visible
	sb.WriteString("\n--- Fog of War ---\n")
	fmt.Fprintf(&sb, "  grid=%dx%d  version=%d  generation=%d\n", r.Width, r.Height, r.FogVersion, r.FogGeneration)
	fmt.Fprintf(&sb, "  visible=%d (%.1f%%)  explored=%d (%.1f%%)  unseen=%d (%.1f%%)\n",
		r.Visible, pct(r.Visible, total), r.Explored, pct(r.Explored, total), r.Unseen, pct(r.Unseen, total))

	sb.WriteString("\n--- Pathfinding ---\n")
	fmt.Fprintf(&sb, "  submitted=%d  results=%d  applied=%d  discarded=%d  pending=%d\n",
		r.PathsSubmitted, r.PathResults, r.PathsApplied, r.PathsDiscarded, r.PendingNow)

	sb.WriteString("\n--- Orders & Movement ---\n")
	fmt.Fprintf(&sb, "  orders=%d  arrivals=%d  ai_moves=%d  ai_attacks=%d\n",
		r.OrdersIssued, r.Arrivals, r.AIMoves, r.AIAttacks)

	sb.WriteString("\n--- Owners ---\n")
	for _, o := range r.Owners {
		fmt.Fprintf(&sb, "  %-10s alive=%-3d moving=%-3d pending=%-3d idle=%d\n",
			o.Name, o.Alive, o.Moving, o.Pending, o.Idle)
	}
	return sb.String()
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}
