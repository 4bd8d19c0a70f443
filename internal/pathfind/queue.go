package pathfind

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Garsondee/skirmish-core/internal/gridmath"
	"github.com/Garsondee/skirmish-core/internal/logger"
)

// Request is one search job.
type Request struct {
	ID         uint64
	Start, End gridmath.Cell
}

// Result carries the cells from start to end. An unreachable goal yields a
// single-cell path holding the start.
type Result struct {
	RequestID uint64
	Path      []gridmath.Cell
}

// Queue runs A* searches on a fixed set of worker goroutines. Submission
// and draining never block on a search.
//
// The nav grid must not be mutated while the queue is open.
type Queue struct {
	nav *NavGrid

	mu      sync.Mutex
	pending []Request
	done    []Result

	wake   chan struct{}
	cancel context.CancelFunc
	group  *errgroup.Group
	closed atomic.Bool

	completed atomic.Uint64
	log       *logrus.Entry
}

// NewQueue starts workers searching nav. workers < 1 is treated as 1.
func NewQueue(ctx context.Context, nav *NavGrid, workers int) *Queue {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	q := &Queue{
		nav:    nav,
		wake:   make(chan struct{}, 1),
		cancel: cancel,
		group:  g,
		log:    logger.For("pathfind"),
	}
	for i := 0; i < max(1, workers); i++ {
		g.Go(func() error { return q.work(gctx) })
	}
	q.log.WithField("workers", max(1, workers)).Debug("path queue started")
	return q
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) next() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Request{}, false
	}
	req := q.pending[0]
	q.pending = q.pending[1:]
	if len(q.pending) > 0 {
		q.signal()
	}
	return req, true
}

func (q *Queue) work(ctx context.Context) error {
	for {
		req, ok := q.next()
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-q.wake:
				continue
			}
		}
		path := q.nav.FindPath(req.Start, req.End)
		q.mu.Lock()
		q.done = append(q.done, Result{RequestID: req.ID, Path: path})
		q.mu.Unlock()
		q.completed.Add(1)
	}
}

// SubmitPathRequest enqueues a search. It is dropped after Close.
func (q *Queue) SubmitPathRequest(id uint64, start, end gridmath.Cell) {
	if q.closed.Load() {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, Request{ID: id, Start: start, End: end})
	q.mu.Unlock()
	q.signal()
}

// FetchCompletedPaths drains every result finished since the last call.
func (q *Queue) FetchCompletedPaths() []Result {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.done
	q.done = nil
	return out
}

// Pending returns the number of requests not yet picked up by a worker.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Completed returns the total number of searches finished.
func (q *Queue) Completed() uint64 { return q.completed.Load() }

func (q *Queue) IsWalkable(c gridmath.Cell) bool { return q.nav.IsWalkable(c) }

func (q *Queue) Grid() gridmath.Grid { return q.nav.Grid() }

func (q *Queue) Nav() *NavGrid { return q.nav }

// Close stops the workers and waits for them. Searches in progress finish;
// queued requests are abandoned.
func (q *Queue) Close() error {
	if q.closed.Swap(true) {
		return nil
	}
	q.cancel()
	err := q.group.Wait()
	q.log.Debug("path queue stopped")
	return err
}
