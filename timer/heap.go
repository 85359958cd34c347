package timer

import "container/heap"

// taskHeap is a binary min-heap keyed by trigger instant (spec §4.8
// "a one-based binary min-heap keyed by trigger instant"; container/heap's
// zero-based slice realizes the same ordering). Every method is called only
// while the owning ScheduledTimer's monitor is held.
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool { return h[i].trigger.Before(h[j].trigger) }

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*Task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// quickRemoveCancelled strips every cancelled task out of h in one O(n)
// pass without restoring the heap invariant (spec §4.8 "quickRemove (O(1),
// breaks invariant; callers must heapify afterwards)", generalized here to
// remove every match in a single scan rather than one at a time since
// Purge's caller has no single index to remove). The caller must call
// heap.Init afterwards.
func (h *taskHeap) quickRemoveCancelled() {
	kept := (*h)[:0]
	for _, t := range *h {
		if t.State() == Cancelled {
			t.index = -1
			continue
		}
		kept = append(kept, t)
	}
	for i, t := range kept {
		t.index = i
	}
	*h = kept
}

var _ heap.Interface = (*taskHeap)(nil)
