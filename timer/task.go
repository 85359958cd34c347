package timer

import (
	"time"

	"github.com/dmlloyd/jsr166-sub001/atomic"
	"github.com/dmlloyd/jsr166-sub001/clock"
	"github.com/dmlloyd/jsr166-sub001/mutex"
)

// Action is the body of a scheduled task.
type Action func() error

// State is a Task's lifecycle position (spec §4.8 "virgin → scheduled →
// (executed | cancelled); repeating tasks re-enter scheduled after each
// firing").
type State int32

const (
	Virgin State = iota
	Scheduled
	Executed
	Cancelled
)

// Task is one entry in a ScheduledTimer's heap. action, trigger, and period
// are guarded by the task's own mu, separately from the timer's monitor, so
// that rescheduling (step 2 of the worker loop) and Cancel/State can proceed
// without contending the shared heap lock (spec §4.8 "under the task's own
// lock").
type Task struct {
	mu     *mutex.ReentrantMutex
	owner  mutex.Owner
	action Action

	trigger clock.Instant // next firing instant
	period  time.Duration // 0 = one-shot; >0 fixed-rate; <0 fixed-delay (|period| is the delay)

	state atomic.Int32 // State, observable lock-free for State()/Cancel()

	index int // heap.Interface bookkeeping; valid only under the timer's monitor
}

func newTask(action Action, trigger clock.Instant, period time.Duration) *Task {
	t := &Task{
		mu:      mutex.New(),
		owner:   mutex.NewOwner(),
		action:  action,
		trigger: trigger,
		period:  period,
		index:   -1,
	}
	t.state.Store(int32(Scheduled))
	return t
}

// State returns the task's current lifecycle state.
func (t *Task) State() State { return State(t.state.Load()) }

// Cancel marks the task cancelled (spec §4.8 "Cancellation: setting a
// task's state to cancelled before it runs causes the worker to discard it
// on next examination"). A no-op if the task has already executed. Returns
// whether the cancel took effect.
func (t *Task) Cancel() bool {
	for {
		s := State(t.state.Load())
		if s == Executed || s == Cancelled {
			return false
		}
		if t.state.CompareAndSwap(int32(s), int32(Cancelled)) {
			return true
		}
	}
}
