package ai

import (
	"sort"

	"github.com/Garsondee/skirmish-core/internal/ecs"
)

// Priority orders behaviors within one think. Higher runs first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// CommandKind tags a Command.
type CommandKind int

const (
	CommandMove CommandKind = iota
	CommandAttack
)

func (k CommandKind) String() string {
	switch k {
	case CommandMove:
		return "move"
	case CommandAttack:
		return "attack"
	default:
		return "unknown"
	}
}

// Command is one order produced by a behavior.
//
// Move uses Units, Targets and Group. Attack uses Units, TargetID and Chase.
type Command struct {
	Kind    CommandKind
	Units   []ecs.EntityID
	Targets []ecs.Vec3
	Group   bool

	TargetID ecs.EntityID
	Chase    bool
}

// Behavior is one decision rule in an owner's controller.
type Behavior interface {
	Name() string
	Priority() Priority
	// CanRunConcurrently reports whether lower-priority behaviors may still
	// run in the same think after this one executed.
	CanRunConcurrently() bool
	ShouldExecute(snap *Snapshot, ctx *Context) bool
	Execute(snap *Snapshot, ctx *Context, dt float64) []Command
}

// Scheduler runs behaviors in descending priority. Registration order breaks
// ties.
type Scheduler struct {
	behaviors []Behavior
}

// NewScheduler sorts the given behaviors by priority.
func NewScheduler(bs ...Behavior) *Scheduler {
	s := &Scheduler{}
	for _, b := range bs {
		s.Add(b)
	}
	return s
}

// Add registers a behavior, keeping priority order.
func (s *Scheduler) Add(b Behavior) {
	s.behaviors = append(s.behaviors, b)
	sort.SliceStable(s.behaviors, func(i, j int) bool {
		return s.behaviors[i].Priority() > s.behaviors[j].Priority()
	})
}

// Behaviors returns the registered behaviors in run order.
func (s *Scheduler) Behaviors() []Behavior { return s.behaviors }

// Run evaluates one think and returns the commands produced along with the
// names of the behaviors that executed.
func (s *Scheduler) Run(snap *Snapshot, ctx *Context, dt float64) ([]Command, []string) {
	var cmds []Command
	var ran []string
	for _, b := range s.behaviors {
		if !b.ShouldExecute(snap, ctx) {
			continue
		}
		cmds = append(cmds, b.Execute(snap, ctx, dt)...)
		ran = append(ran, b.Name())
		if !b.CanRunConcurrently() {
			break
		}
	}
	return cmds, ran
}
