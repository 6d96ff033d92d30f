package sim

import "fmt"

// ProcessState is one of the five states a PCB may occupy. Transitions
// between states are restricted to the edges enumerated in legalTransitions.
type ProcessState int

const (
	StateNew ProcessState = iota
	StateReady
	StateRunning
	StateWaiting
	StateTerminated
)

func (s ProcessState) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateWaiting:
		return "WAITING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// legalTransitions enumerates the state-machine edges a PCB may follow. Any
// transition not in this set is a programming bug, not a user error.
var legalTransitions = map[ProcessState]map[ProcessState]bool{
	StateNew:     {StateReady: true},
	StateReady:   {StateRunning: true},
	StateRunning: {StateReady: true, StateWaiting: true, StateTerminated: true},
	StateWaiting: {StateReady: true, StateTerminated: true},
}

// PCB is the process control block: static attributes fixed at
// construction plus the mutable state the engine advances tick by tick.
type PCB struct {
	// Static.
	PID              int
	ArrivalTime      int64
	OriginalPriority int
	Bursts           []Burst
	TotalCPUBurst    int64

	// Mutable.
	State            ProcessState
	CurrentBurstIdx  int
	RemainingBurst   int
	Priority         int // effective priority; aging decreases it, never below 0 or above OriginalPriority
	LastReadyTime    int64
	FirstRunTick     int64 // -1 until first selected
	CompletionTime   int64 // -1 until terminated
	QueueLevel       int   // MLFQ level; 0 = highest
	ResponseTimeSet  bool
	AgingStepsDone   int // aging steps already applied since LastReadyTime was last set
}

// newPCB constructs a PCB from a fully expanded burst sequence. The first
// burst is always CPU by construction of expandBursts.
func newPCB(pid int, arrival int64, priority int, bursts []Burst) *PCB {
	var total int64
	for _, b := range bursts {
		if b.Type == BurstCPU {
			total += int64(b.Duration)
		}
	}
	p := &PCB{
		PID:              pid,
		ArrivalTime:      arrival,
		OriginalPriority: priority,
		Bursts:           bursts,
		TotalCPUBurst:    total,
		State:            StateNew,
		CurrentBurstIdx:  0,
		RemainingBurst:   bursts[0].Duration,
		Priority:         priority,
		LastReadyTime:    -1,
		FirstRunTick:     -1,
		CompletionTime:   -1,
		QueueLevel:       0,
	}
	return p
}

// clone deep-copies a PCB, including its burst slice so mutating the copy
// never aliases the original. Input immutability (spec §4.3) is actually
// achieved by newPCBsFromWorkload reconstructing a fresh PCB population
// from the caller's Workload on every run rather than by cloning existing
// PCBs; see DESIGN.md. clone remains available for callers (and tests)
// that already hold PCBs and need an independent copy.
func (p *PCB) clone() *PCB {
	bursts := make([]Burst, len(p.Bursts))
	copy(bursts, p.Bursts)
	cp := *p
	cp.Bursts = bursts
	return &cp
}

// transitionTo asserts the move from the PCB's current state to next is
// legal and applies it. Violations panic: they indicate a bug in the
// engine, never bad user input (input is validated up front).
func (p *PCB) transitionTo(next ProcessState) {
	if !legalTransitions[p.State][next] {
		panic(fmt.Sprintf("process %d: illegal transition %s -> %s", p.PID, p.State, next))
	}
	p.State = next
}

// currentBurst returns the burst the PCB is presently executing.
func (p *PCB) currentBurst() Burst {
	return p.Bursts[p.CurrentBurstIdx]
}

// isComplete reports whether the PCB has advanced past its last burst.
func (p *PCB) isComplete() bool {
	return p.CurrentBurstIdx >= len(p.Bursts)
}

// executeTick decrements the remaining time in the current burst by one
// tick and reports whether the burst just reached zero.
func (p *PCB) executeTick() bool {
	if p.RemainingBurst > 0 {
		p.RemainingBurst--
	}
	return p.RemainingBurst == 0
}

// advanceBurst moves the PCB to its next burst. It returns false if there
// is no next burst (the process is complete), true otherwise, in which case
// RemainingBurst is seeded from the new burst's duration.
func (p *PCB) advanceBurst() bool {
	p.CurrentBurstIdx++
	if p.isComplete() {
		return false
	}
	p.RemainingBurst = p.currentBurst().Duration
	return true
}

// setResponseTimeIfUnset records the tick at which the PCB was first
// dispatched to the CPU. It is set exactly once, on the first
// READY->RUNNING transition.
func (p *PCB) setResponseTimeIfUnset(tick int64) {
	if !p.ResponseTimeSet {
		p.FirstRunTick = tick
		p.ResponseTimeSet = true
	}
}

// responseTime returns FirstRunTick - ArrivalTime, or -1 if the process has
// not yet run.
func (p *PCB) responseTime() int64 {
	if p.FirstRunTick < 0 {
		return -1
	}
	return p.FirstRunTick - p.ArrivalTime
}
