package queue

import "github.com/pmahlen/docdex/pkg/types"

// item is one pending task plus an admission sequence number for stable
// FIFO ordering when priority and enqueue time both tie.
type item struct {
	task types.IndexTask
	seq  uint64
}

// taskHeap orders pending tasks lowest priority value first, earliest
// enqueue first within a priority, admission order as the final tiebreak.
// It implements container/heap.Interface.
type taskHeap []*item

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority < h[j].task.Priority
	}
	if !h[i].task.EnqueuedAt.Equal(h[j].task.EnqueuedAt) {
		return h[i].task.EnqueuedAt.Before(h[j].task.EnqueuedAt)
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(*item))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}
