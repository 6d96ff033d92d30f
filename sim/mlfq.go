// Implements the multilevel-feedback-queue structure: a fixed stack of
// ready queues with per-level quanta and demote/promote operations.

package sim

// mlfqLevel pairs a ready queue with its time quantum. A quantum of 0
// means infinite (the lowest level never preempts on quantum exhaustion).
type mlfqLevel struct {
	queue   ReadyQueue
	quantum int // 0 means infinite
}

// MLFQ is the fixed ordered list of ready queues the MLFQ discipline uses.
// Level 0 is highest priority; levels above the configured finite quanta
// have an infinite quantum.
type MLFQ struct {
	levels []mlfqLevel
}

// newMLFQ builds an MLFQ with the given per-level quanta; the last level
// always has an infinite quantum regardless of what is passed for it.
func newMLFQ(quanta []int) *MLFQ {
	levels := make([]mlfqLevel, len(quanta))
	for i, q := range quanta {
		levels[i] = mlfqLevel{quantum: q}
	}
	levels[len(levels)-1].quantum = 0
	return &MLFQ{levels: levels}
}

// NumLevels returns the number of configured queue levels.
func (m *MLFQ) NumLevels() int { return len(m.levels) }

// Quantum returns the quantum for a level; 0 means infinite.
func (m *MLFQ) Quantum(level int) int { return m.levels[level].quantum }

// Enqueue places p onto the ready queue at the given level and updates
// QueueLevel.
func (m *MLFQ) Enqueue(level int, p *PCB, now int64) {
	p.QueueLevel = level
	m.levels[level].queue.Enqueue(p, now)
}

// Peek scans from level 0 downward and returns the first non-empty level's
// head PCB along with its level and quantum, or (nil, 0, 0) if every level
// is empty.
func (m *MLFQ) Peek() (*PCB, int, int) {
	for level, l := range m.levels {
		if !l.queue.Empty() {
			return l.queue.Peek(), level, l.quantum
		}
	}
	return nil, 0, 0
}

// GetNext scans from level 0 downward, dequeues, and returns the first
// runnable PCB along with its originating level and that level's quantum.
func (m *MLFQ) GetNext() (*PCB, int, int) {
	for level, l := range m.levels {
		if !l.queue.Empty() {
			p := m.levels[level].queue.Dequeue()
			return p, level, l.quantum
		}
	}
	return nil, 0, 0
}

// HasHigherPriorityReady reports whether any level strictly above
// currentLevel has a runnable process (used by the MLFQ preemption check:
// a higher-priority arrival/promotion preempts the running process without
// using its full quantum).
func (m *MLFQ) HasHigherPriorityReady(currentLevel int) bool {
	for level := 0; level < currentLevel && level < len(m.levels); level++ {
		if !m.levels[level].queue.Empty() {
			return true
		}
	}
	return false
}

// Demote moves p to min(level+1, NumLevels-1) and re-enqueues it at that
// level's tail.
func (m *MLFQ) Demote(p *PCB, now int64) {
	next := p.QueueLevel + 1
	if next > len(m.levels)-1 {
		next = len(m.levels) - 1
	}
	m.Enqueue(next, p, now)
}

// Promote moves p to max(level-1, 0) and re-enqueues it at that level's
// tail.
func (m *MLFQ) Promote(p *PCB, now int64) {
	next := p.QueueLevel - 1
	if next < 0 {
		next = 0
	}
	m.Enqueue(next, p, now)
}

// EnqueueSameLevel re-enqueues p at its current level's tail (used when a
// process is preempted without having used its full quantum).
func (m *MLFQ) EnqueueSameLevel(p *PCB, now int64) {
	m.Enqueue(p.QueueLevel, p, now)
}

// ApplyAging applies aging-promotion across all levels >= 1: any process
// waiting in a queue at level >= 1 for at least one aging interval is
// promoted one level (promote-by-one, floored at level 0).
func (m *MLFQ) ApplyAging(now int64, interval, boost int) {
	if interval <= 0 {
		return
	}
	for level := 1; level < len(m.levels); level++ {
		var stillWaiting []*PCB
		for _, p := range m.levels[level].queue.Snapshot() {
			k := int(now-p.LastReadyTime) / interval
			if k > p.AgingStepsDone {
				stillWaiting = append(stillWaiting, p)
			}
		}
		for _, p := range stillWaiting {
			m.levels[level].queue.Remove(p.PID)
			m.Promote(p, now)
		}
	}
}

// Snapshot returns, for every level, a copy of its queue contents.
func (m *MLFQ) Snapshot() [][]*PCB {
	out := make([][]*PCB, len(m.levels))
	for i, l := range m.levels {
		out[i] = l.queue.Snapshot()
	}
	return out
}

// Empty reports whether every level is empty.
func (m *MLFQ) Empty() bool {
	for _, l := range m.levels {
		if !l.queue.Empty() {
			return false
		}
	}
	return true
}
