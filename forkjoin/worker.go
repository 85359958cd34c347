package forkjoin

import (
	"context"
	"math/rand/v2"
	"time"
)

// inboxCapacity bounds each worker's external-submission mailbox (see
// Pool.Submit). Kept small: submission is the exceptional entry point into
// the pool, not the steady-state path (ordinary recursive work moves
// entirely through Task.Fork, which pushes directly onto the calling
// worker's own deque).
const inboxCapacity = 256

// Worker owns one deque and a per-worker PRNG used for victim selection
// (spec.md §4.7 "Worker"). Its main loop pops its own queue, falls back to
// stealing from a random peer, and idles with backoff when both are empty.
type Worker struct {
	pool *Pool
	id   int
	dq   *deque
	rng  *rand.Rand

	// inbox carries tasks from Pool.Submit (called by arbitrary, non-worker
	// goroutines) into this worker. Only this worker's own loop ever reads
	// it and moves its contents into dq, which preserves dq.push/pop's
	// single-owner, lock-free contract — an external goroutine must never
	// call dq.push directly.
	inbox chan runnable
}

func newWorker(pool *Pool, id int) *Worker {
	return &Worker{
		pool:  pool,
		id:    id,
		dq:    newDeque(defaultDequeCapacity),
		inbox: make(chan runnable, inboxCapacity),
		// One rand/v2.Rand per worker so victim selection never contends on
		// a shared lock.
		rng: rand.New(rand.NewPCG(uint64(id)*2654435761+1, uint64(id)*40503+7)),
	}
}

// Id returns the worker's index within its pool, for diagnostics.
func (w *Worker) Id() int { return w.id }

// QueueSurplus is the surplus-task-count heuristic spec.md §4.7 calls for:
// this worker's own queued-task count minus the pool's mean across
// workers, so user code can decide when to stop subdividing.
func (w *Worker) QueueSurplus() int {
	return w.dq.len() - w.pool.meanQueueDepth()
}

// loop drains any externally submitted tasks into its own deque, pops its
// own deque, falls back to stealing from a random peer, and backs off
// briefly when nothing is found anywhere, until ctx is done.
//
// A graceful Shutdown cancels ctx but leaves pool.forced false: the loop
// keeps draining both its own queue and steals from peers until neither
// yields anything, so every already-forked task still runs. ShutdownNow
// sets pool.forced first, so every worker returns immediately without
// draining (spec.md §4.7 "Termination").
func (w *Worker) loop(ctx context.Context) {
	idle := 0
	for {
		if w.pool.forced.Load() {
			return
		}
		w.drainInbox()

		if t := w.dq.pop(); t != nil {
			t.run(w)
			idle = 0
			continue
		}
		if t := w.pool.stealFor(w); t != nil {
			t.run(w)
			idle = 0
			continue
		}
		if ctx.Err() != nil && len(w.inbox) == 0 {
			return
		}
		idle++
		w.backoff(idle)
	}
}

func (w *Worker) drainInbox() {
	for {
		select {
		case t := <-w.inbox:
			if !w.dq.push(t) {
				t.run(w)
			}
		default:
			return
		}
	}
}

// backoff parks this worker goroutine briefly when it finds no work,
// scaling with consecutive empty attempts up to a small cap, so a pool
// with more workers than runnable tasks doesn't spin the CPU.
func (w *Worker) backoff(idle int) {
	n := idle
	if n > 8 {
		n = 8
	}
	time.Sleep(time.Duration(n) * 50 * time.Microsecond)
}
