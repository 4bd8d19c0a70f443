package pathfind

import "github.com/Garsondee/skirmish-core/internal/gridmath"

// Inline solves searches on the caller's goroutine during
// FetchCompletedPaths. It offers the Queue's method set for headless runs
// that must be reproducible tick for tick.
type Inline struct {
	nav       *NavGrid
	pending   []Request
	completed uint64
}

// NewInline wraps nav.
func NewInline(nav *NavGrid) *Inline { return &Inline{nav: nav} }

func (in *Inline) SubmitPathRequest(id uint64, start, end gridmath.Cell) {
	in.pending = append(in.pending, Request{ID: id, Start: start, End: end})
}

// FetchCompletedPaths solves everything submitted since the last call, in
// submission order.
func (in *Inline) FetchCompletedPaths() []Result {
	if len(in.pending) == 0 {
		return nil
	}
	out := make([]Result, len(in.pending))
	for i, req := range in.pending {
		out[i] = Result{RequestID: req.ID, Path: in.nav.FindPath(req.Start, req.End)}
	}
	in.completed += uint64(len(out))
	in.pending = nil
	return out
}

func (in *Inline) Pending() int                    { return len(in.pending) }
func (in *Inline) Completed() uint64               { return in.completed }
func (in *Inline) IsWalkable(c gridmath.Cell) bool { return in.nav.IsWalkable(c) }
func (in *Inline) Grid() gridmath.Grid             { return in.nav.Grid() }
func (in *Inline) Nav() *NavGrid                   { return in.nav }
func (in *Inline) Close() error                    { return nil }
