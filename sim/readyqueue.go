// Implements the ready queue: the ordered collection of runnable PCBs a
// discipline's selection policy draws from.

package sim

import "sort"

// ReadyQueue is a FIFO-ordered sequence of PCB handles supporting
// append-at-tail, remove-by-pid/head, and in-place stable reordering by any
// of the four sort keys a discipline needs.
type ReadyQueue struct {
	entries []*PCB
}

// Enqueue sets state READY and appends p at the tail. O(1). A PCB already
// READY (e.g. an MLFQ aging-promotion re-enqueue within the same queue
// level stack) is appended without re-asserting the READY->READY
// transition, which is not a legal state-machine edge.
func (q *ReadyQueue) Enqueue(p *PCB, now int64) {
	if p.State != StateReady {
		p.transitionTo(StateReady)
	}
	p.LastReadyTime = now
	p.AgingStepsDone = 0
	q.entries = append(q.entries, p)
}

// Dequeue removes and returns the head, or nil if empty. O(1).
func (q *ReadyQueue) Dequeue() *PCB {
	if len(q.entries) == 0 {
		return nil
	}
	p := q.entries[0]
	q.entries = q.entries[1:]
	return p
}

// Remove removes the first entry with matching pid, or nil if not found.
func (q *ReadyQueue) Remove(pid int) *PCB {
	for i, p := range q.entries {
		if p.PID == pid {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return p
		}
	}
	return nil
}

// Peek returns the head without removing it, or nil if empty.
func (q *ReadyQueue) Peek() *PCB {
	if len(q.entries) == 0 {
		return nil
	}
	return q.entries[0]
}

// Snapshot returns a copy of the queue's contents in order.
func (q *ReadyQueue) Snapshot() []*PCB {
	out := make([]*PCB, len(q.entries))
	copy(out, q.entries)
	return out
}

// Len returns the number of entries in the queue.
func (q *ReadyQueue) Len() int { return len(q.entries) }

// Empty reports whether the queue holds no entries.
func (q *ReadyQueue) Empty() bool { return len(q.entries) == 0 }

// tieBreak is the shared tie-break chain every stable sort in the engine
// uses after its primary key: arrival time ascending, then pid ascending.
func tieBreak(a, b *PCB) bool {
	if a.ArrivalTime != b.ArrivalTime {
		return a.ArrivalTime < b.ArrivalTime
	}
	return a.PID < b.PID
}

// SortByArrival stably reorders by arrival time ascending, then the shared
// tie-break chain (FCFS).
func (q *ReadyQueue) SortByArrival() {
	sort.SliceStable(q.entries, func(i, j int) bool {
		a, b := q.entries[i], q.entries[j]
		if a.ArrivalTime != b.ArrivalTime {
			return a.ArrivalTime < b.ArrivalTime
		}
		return a.PID < b.PID
	})
}

// SortByBurstRemaining stably reorders by remaining CPU burst time
// ascending, then the shared tie-break chain (SJF/SRTF).
func (q *ReadyQueue) SortByBurstRemaining() {
	sort.SliceStable(q.entries, func(i, j int) bool {
		a, b := q.entries[i], q.entries[j]
		if a.RemainingBurst != b.RemainingBurst {
			return a.RemainingBurst < b.RemainingBurst
		}
		return tieBreak(a, b)
	})
}

// SortByPriority stably reorders by current effective priority ascending
// (lower value = higher priority), then the shared tie-break chain
// (PRIORITY-NP/PRIORITY-P). Callers apply aging before calling this.
func (q *ReadyQueue) SortByPriority() {
	sort.SliceStable(q.entries, func(i, j int) bool {
		a, b := q.entries[i], q.entries[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return tieBreak(a, b)
	})
}

// SortByResponseRatio stably reorders by HRRN response ratio at tick t,
// descending (higher ratio first), then the shared tie-break chain.
// ratio = (t - arrival + remaining) / remaining; remaining is guaranteed
// >= 1 here because a process with remaining 0 has already advanced burst.
func (q *ReadyQueue) SortByResponseRatio(t int64) {
	ratio := func(p *PCB) float64 {
		waited := float64(t-p.ArrivalTime) + float64(p.RemainingBurst)
		return waited / float64(p.RemainingBurst)
	}
	sort.SliceStable(q.entries, func(i, j int) bool {
		a, b := q.entries[i], q.entries[j]
		ra, rb := ratio(a), ratio(b)
		if ra != rb {
			return ra > rb
		}
		return tieBreak(a, b)
	})
}

// ApplyAging steps effective priority down (toward 0) for every entry that
// has waited at least one full aging interval since it last entered ready:
// k = floor((t - lastReadyTime) / interval); priority -= k * boost, floored
// at 0. Applied before priority-based selection and preemption checks.
func (q *ReadyQueue) ApplyAging(t int64, interval, boost int) {
	if interval <= 0 {
		return
	}
	for _, p := range q.entries {
		if p.LastReadyTime < 0 {
			continue
		}
		k := int(t-p.LastReadyTime) / interval
		if delta := k - p.AgingStepsDone; delta > 0 {
			p.Priority -= delta * boost
			if p.Priority < 0 {
				p.Priority = 0
			}
			p.AgingStepsDone = k
		}
	}
}
