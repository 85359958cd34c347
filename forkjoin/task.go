package forkjoin

import (
	"errors"

	"github.com/dmlloyd/jsr166-sub001/atomic"
)

// ErrIllegalState is returned when an operation is invalid given a task's
// current lifecycle state (spec §6 *IllegalState*): forking from a
// non-worker goroutine, or forking a task that was already forked, run or
// cancelled.
var ErrIllegalState = errors.New("jsr166: illegal state")

// ErrCancelled is observed via Join/Invoke/CoInvoke on a task that was
// cancelled before it ran (spec §6 *Cancelled*).
var ErrCancelled = errors.New("jsr166: cancelled")

type taskState int32

const (
	taskFresh taskState = iota
	taskForked
	taskRunning
	taskDone
)

// Computation is the body of a Task: a recursive action that receives the
// Worker it is currently executing on (nil if run by a non-worker caller),
// so it can Fork further sub-tasks (spec §4.7 "Task"). Passing the worker
// explicitly is this module's Go realization of spec §9's redesign note
// ("make explicit... a cancellation token carried by the calling thread"),
// generalized here from an implicit "current thread" to an implicit
// "current worker".
type Computation[T any] func(w *Worker) (T, error)

// Task is a recursive action with lifecycle {fresh, forked, running, done}
// (spec §4.7). The zero value is not usable; construct with NewTask.
type Task[T any] struct {
	compute Computation[T]

	state     atomic.Int32
	cancelled atomic.Bool
	execCount atomic.Int32 // diagnostic: how many times compute actually ran (spec §8 scenario 4: must never exceed 1)

	result T
	err    error
	done   chan struct{}
}

// NewTask wraps compute as a forkable, joinable unit of work.
func NewTask[T any](compute Computation[T]) *Task[T] {
	return &Task[T]{compute: compute, done: make(chan struct{})}
}

func (t *Task[T]) isDone() bool { return taskState(t.state.Load()) == taskDone }

// ExecutionCount returns how many times this task's compute function
// actually ran. Spec §8 scenario 4 requires this never exceeds 1.
func (t *Task[T]) ExecutionCount() int32 { return t.execCount.Load() }

// run executes compute exactly once, transitioning fresh-or-forked →
// running → done via CAS, which is itself the single-execution guard (no
// separate sync.Once is needed): whichever caller wins the CAS is the only
// one that runs compute (spec §8 invariant 7, "each task is executed at
// most once").
func (t *Task[T]) run(w *Worker) {
	if !(t.state.CompareAndSwap(int32(taskFresh), int32(taskRunning)) ||
		t.state.CompareAndSwap(int32(taskForked), int32(taskRunning))) {
		return // already running, done, or cancelled out from under us
	}
	if t.cancelled.Load() {
		t.err = ErrCancelled
	} else {
		t.execCount.AddAndGet(1)
		t.result, t.err = t.compute(w)
	}
	t.state.Store(int32(taskDone))
	close(t.done)
}

// cancelPending implements runnable for a forced pool shutdown: a task
// still sitting in a worker's deque when the pool is killed is marked
// cancelled and finalized without ever running user code.
func (t *Task[T]) cancelPending() { t.Cancel() }

// Fork pushes this task onto w's own deque for later execution (spec §4.7
// "fork()"). w must not be nil: forking is only valid from a worker
// goroutine ("fails if the caller is not a worker thread").
//
// If w's deque happens to be at defaultDequeCapacity, Fork degrades to
// running the task inline on the calling goroutine rather than failing —
// a documented simplification of the unbounded-deque assumption spec.md
// makes, preferable to surfacing a synthetic capacity error to ordinary
// recursive callers.
func (t *Task[T]) Fork(w *Worker) error {
	if w == nil {
		return ErrIllegalState
	}
	if !t.state.CompareAndSwap(int32(taskFresh), int32(taskForked)) {
		return ErrIllegalState
	}
	if !w.dq.push(t) {
		t.run(w)
	}
	return nil
}

// Invoke runs compute now, on the calling goroutine, blocking until done
// (spec §4.7 "invoke()"). w is the worker context to hand to compute, or
// nil if the caller is not a worker.
func (t *Task[T]) Invoke(w *Worker) (T, error) {
	t.run(w)
	<-t.done
	return t.result, t.err
}

// Join waits for the task to complete, returning its result or failure
// (spec §4.7 "join()"). If w is non-nil and this task is still sitting
// unexecuted at the bottom of w's own deque, Join pops and runs it
// directly; otherwise it helps by running other available work (its own
// deque, then steals) until this task completes.
func (t *Task[T]) Join(w *Worker) (T, error) {
	if w != nil {
		if w.dq.tryUnfork(t) {
			t.run(w)
		} else {
			for !t.isDone() {
				if helped := w.dq.pop(); helped != nil {
					helped.run(w)
					continue
				}
				if helped := w.pool.stealFor(w); helped != nil {
					helped.run(w)
					continue
				}
				break
			}
		}
	}
	<-t.done
	return t.result, t.err
}

// TryUnfork attempts to remove this task from w's own deque if it is still
// the most recently forked, unexecuted entry there (spec §4.7
// "tryUnfork()").
func (t *Task[T]) TryUnfork(w *Worker) bool {
	if w == nil {
		return false
	}
	return w.dq.tryUnfork(t)
}

// Cancel is best-effort (spec §4.7 "cancel()"). A task that has not yet
// started running transitions directly to done carrying ErrCancelled,
// without ever executing compute. A task already running or done is only
// flagged; Cancel cannot interrupt code already in flight.
func (t *Task[T]) Cancel() {
	for {
		s := taskState(t.state.Load())
		if s == taskRunning || s == taskDone {
			t.cancelled.Store(true)
			return
		}
		if t.state.CompareAndSwap(int32(s), int32(taskDone)) {
			t.cancelled.Store(true)
			t.err = ErrCancelled
			close(t.done)
			return
		}
	}
}

// tryUnfork removes t from the owner end of the deque iff it is still the
// most recently pushed entry there (classic work-stealing "unfork" is a
// LIFO-only removal, not an arbitrary-position delete).
func (d *deque) tryUnfork(t runnable) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.bottom.Load()
	top := d.top.Load()
	if b <= top {
		return false
	}
	last := b - 1
	if d.tasks[last%int64(len(d.tasks))] != t {
		return false
	}
	d.bottom.Store(last)
	return true
}

// CoInvoke forks t2, invokes t1 on the calling goroutine, then joins t2 —
// the standard divide-and-conquer composition (spec §4.7 "coInvoke(t1,
// t2)"). If t1 fails, t2 is cancelled (taking effect only if t2 has not
// started running) and t1's failure is returned without joining t2;
// otherwise t2's failure, if any, is returned.
func CoInvoke[T1, T2 any](w *Worker, t1 *Task[T1], t2 *Task[T2]) error {
	if err := t2.Fork(w); err != nil {
		return err
	}
	if _, err1 := t1.Invoke(w); err1 != nil {
		t2.Cancel()
		return err1
	}
	_, err2 := t2.Join(w)
	return err2
}
