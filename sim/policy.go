// Each discipline is a small record of function handles: a selection
// policy, a preemption predicate, and a quantum. The engine is written once
// and parameterized by this table.

package sim

// Discipline names one of the seven classical scheduling disciplines.
type Discipline string

const (
	FCFS       Discipline = "fcfs"
	SJF        Discipline = "sjf"
	SRTF       Discipline = "srtf"
	PriorityNP Discipline = "priority-np"
	PriorityP  Discipline = "priority-p"
	RoundRobin Discipline = "round-robin"
	HRRN       Discipline = "hrrn"
	MLFQDisc   Discipline = "mlfq"
)

// ValidDisciplines lists every recognized discipline name, in table order.
var ValidDisciplines = []Discipline{FCFS, SJF, SRTF, PriorityNP, PriorityP, RoundRobin, HRRN, MLFQDisc}

// IsValidDiscipline reports whether name is a recognized discipline.
func IsValidDiscipline(name Discipline) bool {
	for _, d := range ValidDisciplines {
		if d == name {
			return true
		}
	}
	return false
}

// policy bundles the selection and preemption behavior for every
// non-MLFQ discipline (MLFQ's selection interacts with its own multi-level
// structure and is implemented directly in engine.go).
type policy struct {
	// order reorders the ready queue in place ahead of selection.
	order func(q *ReadyQueue, agingInterval, agingBoost int, now int64)
	// preempts reports whether the running PCB may be displaced right now,
	// given the (already reordered, for priority/SJF-derived policies) ready
	// queue.
	preempts func(running *PCB, q *ReadyQueue) bool
	// quantum is the fixed CPU-tick budget per dispatch, or 0 for none.
	quantum int
}

func fcfsOrder(q *ReadyQueue, _, _ int, _ int64) { q.SortByArrival() }

// noOrder leaves the ready queue's FIFO insertion order untouched. Round
// Robin relies on this: once a preempted PCB is re-enqueued at the tail,
// resorting by (arrival, pid) would undo the rotation and keep reselecting
// the same low-pid process every quantum.
func noOrder(*ReadyQueue, int, int, int64) {}
func sjfOrder(q *ReadyQueue, _, _ int, _ int64)         { q.SortByBurstRemaining() }
func priorityOrder(q *ReadyQueue, interval, boost int, now int64) {
	q.ApplyAging(now, interval, boost)
	q.SortByPriority()
}
func hrrnOrder(q *ReadyQueue, _, _ int, now int64) { q.SortByResponseRatio(now) }

func neverPreempts(*PCB, *ReadyQueue) bool { return false }

func srtfPreempts(running *PCB, q *ReadyQueue) bool {
	head := q.Peek()
	return head != nil && head.RemainingBurst < running.RemainingBurst
}

func priorityPreempts(running *PCB, q *ReadyQueue) bool {
	head := q.Peek()
	return head != nil && head.Priority < running.Priority
}

// policyTable maps every non-MLFQ discipline to its policy record.
var policyTable = map[Discipline]policy{
	FCFS:       {order: fcfsOrder, preempts: neverPreempts, quantum: 0},
	SJF:        {order: sjfOrder, preempts: neverPreempts, quantum: 0},
	SRTF:       {order: sjfOrder, preempts: srtfPreempts, quantum: 0},
	PriorityNP: {order: priorityOrder, preempts: neverPreempts, quantum: 0},
	PriorityP:  {order: priorityOrder, preempts: priorityPreempts, quantum: 0},
	RoundRobin: {order: noOrder, preempts: neverPreempts, quantum: -1}, // quantum supplied by Config; -1 = "use config"
	HRRN:       {order: hrrnOrder, preempts: neverPreempts, quantum: 0},
}

func newUnknownDisciplineErr(name Discipline) error {
	return &UnknownDisciplineError{Name: string(name)}
}
