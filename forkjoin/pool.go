// Package forkjoin implements the fork/join executor (spec §4.7):
// recursive divide-and-conquer tasks scheduled across a fixed worker pool
// via a work-stealing deque per worker.
package forkjoin

import (
	"context"
	"log"
	"runtime"

	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/dmlloyd/jsr166-sub001/atomic"
)

// poolConfig holds NewPool's functional options (SPEC_FULL.md AMBIENT
// STACK "Configuration").
type poolConfig struct {
	logger *log.Logger
}

// PoolOption configures a Pool at construction.
type PoolOption func(*poolConfig)

// WithLogger attaches a diagnostic logger for steal-counter tracing. nil
// (the default) is silent.
func WithLogger(l *log.Logger) PoolOption {
	return func(c *poolConfig) { c.logger = l }
}

// Pool owns a fixed set of workers and a shared steal counter (spec §4.7
// "Pool").
type Pool struct {
	workers []*Worker
	steals  atomic.Int64
	submits atomic.Int64
	forced  atomic.Bool
	logger  *log.Logger

	cancel  context.CancelFunc
	grp     *errgroup.Group
	restore func() // undoes automaxprocs.Set, if it was called
}

// NewPool starts a fork/join pool. parallelism <= 0 means "use all
// available CPUs", resolved via go.uber.org/automaxprocs so the default
// honors a container's CPU quota rather than runtime.NumCPU()'s raw host
// count (SPEC_FULL.md DOMAIN STACK).
func NewPool(parallelism int, opts ...PoolOption) *Pool {
	var cfg poolConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var restore func()
	if parallelism <= 0 {
		if undo, err := maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {})); err == nil {
			restore = undo
		}
		parallelism = runtime.GOMAXPROCS(0)
	}
	if parallelism <= 0 {
		parallelism = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	grp, gctx := errgroup.WithContext(ctx)
	p := &Pool{cancel: cancel, grp: grp, logger: cfg.logger, restore: restore}
	p.workers = make([]*Worker, parallelism)
	for i := range p.workers {
		p.workers[i] = newWorker(p, i)
	}
	for _, w := range p.workers {
		w := w
		grp.Go(func() error {
			w.loop(gctx)
			return nil
		})
	}
	return p
}

// Parallelism returns the pool's worker count.
func (p *Pool) Parallelism() int { return len(p.workers) }

// StealCount returns the cumulative number of successful cross-worker
// steals, for diagnostics (spec §4.7 "maintains a steal counter").
func (p *Pool) StealCount() int64 { return p.steals.Load() }

// Submit forks t onto a worker chosen round-robin, for callers that are
// not themselves running on a worker goroutine (the entry point into the
// pool from ordinary application code).
func (p *Pool) Submit(t runnable) {
	i := p.submits.AddAndGet(1)
	w := p.workers[int(i)%len(p.workers)]
	select {
	case w.inbox <- t:
	default:
		// Inbox saturated: run inline on the submitting goroutine rather
		// than block it indefinitely.
		t.run(nil)
	}
}

// stealFor picks up to a handful of random peers of w and attempts a
// steal from each, returning the first success (spec §4.7 "randomly
// selects another worker and steals from the bottom of that worker's
// queue").
func (p *Pool) stealFor(w *Worker) runnable {
	n := len(p.workers)
	if n <= 1 {
		return nil
	}
	attempts := n - 1
	if attempts > 8 {
		attempts = 8
	}
	for i := 0; i < attempts; i++ {
		victim := p.workers[w.rng.IntN(n)]
		if victim == w {
			continue
		}
		if t := victim.dq.steal(); t != nil {
			p.steals.AddAndGet(1)
			if p.logger != nil {
				p.logger.Printf("forkjoin: worker %d stole from worker %d\n", w.id, victim.id)
			}
			return t
		}
	}
	return nil
}

// meanQueueDepth is the average queued-task count across all workers, for
// Worker.QueueSurplus's heuristic (spec §4.7 "Surplus task count
// heuristic").
func (p *Pool) meanQueueDepth() int {
	total := 0
	for _, w := range p.workers {
		total += w.dq.len()
	}
	return total / len(p.workers)
}

// Shutdown stops accepting the premise of further external Submit calls
// and waits for every worker to drain its own queue and any reachable
// steals before returning (spec §4.7 "explicit shutdown stops workers
// once their queues drain").
func (p *Pool) Shutdown() {
	p.cancel()
	_ = p.grp.Wait()
	if p.restore != nil {
		p.restore()
	}
}

// ShutdownNow stops every worker immediately, without draining, and marks
// every task still sitting in a deque as cancelled (spec §4.7 "a forced
// shutdown interrupts workers and may leave tasks in the Cancelled
// state").
func (p *Pool) ShutdownNow() {
	p.forced.Store(true)
	p.cancel()
	_ = p.grp.Wait()
	for _, w := range p.workers {
		for _, t := range w.dq.drain() {
			t.cancelPending()
		}
	drainInboxLoop:
		for {
			select {
			case t := <-w.inbox:
				t.cancelPending()
			default:
				break drainInboxLoop
			}
		}
	}
	if p.restore != nil {
		p.restore()
	}
}
