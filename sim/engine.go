// The per-tick simulation engine: composes arrival admission, I/O
// completion, preemption, selection, execution, termination, and
// context-switch accounting into a deterministic tick loop. The engine is
// the sole mutator of process state and owns its queues exclusively for
// the duration of a run.

package sim

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// defaultIterationCap guards against pathological inputs: a run that has
// not terminated all processes within this many ticks surfaces
// IterationCapExceededError rather than looping forever.
const defaultIterationCap = 10000

// Engine runs one discipline over one (already validated, expanded, and
// arrival-sorted) process population to completion.
type Engine struct {
	discipline Discipline
	config     Config
	iterCap    int64

	pcbs       []*PCB
	arrivalIdx int

	ready ReadyQueue // used by every non-MLFQ discipline
	mlfq  *MLFQ      // used only when discipline == MLFQDisc
	io    IOQueue

	running        *PCB
	runningLevel   int
	runningQuantum int // 0 means infinite/not quantum-based
	timeInSlice    int

	contextSwitchRemaining int
	currentTime            int64
	cpuBusyTicks           int64
	completed              int

	rawTimeline []RawTick
	transitions []Transition
}

// newEngine builds an Engine for discipline over pcbs (freshly built from
// the workload, expanded, and sorted by arrival then pid). Returns UnknownDisciplineError
// for an unrecognized discipline.
func newEngine(pcbs []*PCB, discipline Discipline, config Config) (*Engine, error) {
	if !IsValidDiscipline(discipline) {
		return nil, newUnknownDisciplineErr(discipline)
	}
	e := &Engine{
		discipline: discipline,
		config:     config.withDefaults(),
		iterCap:    defaultIterationCap,
		pcbs:       pcbs,
	}
	if discipline == MLFQDisc {
		e.mlfq = newMLFQ([]int{config.Q1TimeQuantum, config.Q2TimeQuantum, 0})
	}
	return e, nil
}

func (e *Engine) totalProcesses() int { return len(e.pcbs) }

func (e *Engine) processesRemain() bool { return e.completed < e.totalProcesses() }

func (e *Engine) emitTransition(time int64, pid int, from, to ProcessState) {
	e.transitions = append(e.transitions, Transition{Time: time, PID: pid, From: from, To: to})
}

// enqueueReady places p into the correct ready structure for the
// configured discipline.
func (e *Engine) enqueueReady(p *PCB, now int64) {
	if e.discipline == MLFQDisc {
		e.mlfq.Enqueue(0, p, now)
	} else {
		e.ready.Enqueue(p, now)
	}
}

// reorderReady applies the discipline's ordering function (including
// aging, where applicable) to the non-MLFQ ready queue. Safe to call more
// than once per tick: aging application is idempotent within a tick via
// PCB.AgingStepsDone bookkeeping.
func (e *Engine) reorderReady() {
	p := policyTable[e.discipline]
	p.order(&e.ready, e.config.AgingInterval, e.config.AgingBoost, e.currentTime)
}

// effectiveQuantum returns the quantum in force for the currently running
// PCB, or 0 if the discipline is not quantum-based for it.
func (e *Engine) effectiveQuantum() int {
	switch e.discipline {
	case RoundRobin:
		return e.config.TimeQuantum
	case MLFQDisc:
		return e.runningQuantum
	default:
		return 0
	}
}

// Run drives the engine to completion (all processes TERMINATED) or
// returns IterationCapExceededError if the hard iteration cap is reached
// first. On success it returns the raw timeline, the transitions (ordered
// by time, then emission order), and final PCB snapshots; consolidation and
// metrics derivation are the caller's job (see orchestrator.go).
func (e *Engine) Run() ([]RawTick, []Transition, []*PCB, error) {
	for e.processesRemain() {
		if e.currentTime >= e.iterCap {
			return nil, nil, nil, &IterationCapExceededError{Cap: e.iterCap}
		}
		e.tick()
	}
	// End-of-tick transitions (recorded at now+1) can be emitted before
	// later same-tick transitions recorded at now; restore time order.
	sort.SliceStable(e.transitions, func(i, j int) bool {
		return e.transitions[i].Time < e.transitions[j].Time
	})
	return e.rawTimeline, e.transitions, e.pcbs, nil
}

func (e *Engine) tick() {
	now := e.currentTime

	// 1. Arrival admission.
	for e.arrivalIdx < len(e.pcbs) && e.pcbs[e.arrivalIdx].ArrivalTime <= now {
		p := e.pcbs[e.arrivalIdx]
		e.arrivalIdx++
		e.enqueueReady(p, now)
		e.emitTransition(now, p.PID, StateNew, StateReady)
	}

	// 2. I/O completion.
	for _, p := range e.io.Tick() {
		if ok := p.advanceBurst(); !ok {
			e.terminate(p, now+1)
			continue
		}
		if e.discipline == MLFQDisc {
			e.mlfq.Promote(p, now)
		} else {
			e.ready.Enqueue(p, now)
		}
		e.emitTransition(now, p.PID, StateWaiting, StateReady)
	}

	// 3. Context-switch debit.
	if e.contextSwitchRemaining > 0 {
		e.contextSwitchRemaining--
		e.rawTimeline = append(e.rawTimeline, RawTick{Tick: now, Type: TickContextSwitch})
		e.currentTime++
		return
	}

	// 4. Preemption check.
	if e.running != nil {
		e.checkPreemption(now)
	}

	// 5. Aging (MLFQ queue promotion across levels >= 1; priority-discipline
	// aging is applied idempotently inside reorderReady/checkPreemption).
	if e.discipline == MLFQDisc {
		e.mlfq.ApplyAging(now, e.config.AgingInterval, e.config.AgingBoost)
	}

	// 6. Selection. Gated on contextSwitchRemaining==0 so a just-triggered
	// preemption's switch cost is fully debited (via step 3 of subsequent
	// ticks) before the successor is dispatched, matching the termination
	// path where the switch always precedes the next dispatch.
	if e.running == nil && e.contextSwitchRemaining == 0 {
		e.selectNext(now)
	}

	// 7. Execute or idle.
	hitZero := false
	if e.running != nil {
		level := 0
		if e.discipline == MLFQDisc {
			level = e.runningLevel
		}
		e.rawTimeline = append(e.rawTimeline, RawTick{Tick: now, Type: TickProcess, PID: e.running.PID, Level: level})
		e.cpuBusyTicks++
		hitZero = e.running.executeTick()
		e.timeInSlice++
	} else {
		e.rawTimeline = append(e.rawTimeline, RawTick{Tick: now, Type: TickIdle})
	}

	// 8. Burst completion.
	if hitZero {
		e.completeBurst(now)
	}

	// 9. Advance.
	e.currentTime++
}

func (e *Engine) checkPreemption(now int64) {
	p := e.running
	preempt := false
	usedFullQuantum := false

	if quantum := e.effectiveQuantum(); quantum > 0 && e.timeInSlice >= quantum {
		preempt = true
		usedFullQuantum = true
	}

	if !preempt {
		switch e.discipline {
		case MLFQDisc:
			if e.mlfq.HasHigherPriorityReady(e.runningLevel) {
				preempt = true
				usedFullQuantum = false
			}
		case RoundRobin:
			// RoundRobin's only preemption path is quantum exhaustion, handled above.
		default:
			e.reorderReady()
			if policyTable[e.discipline].preempts(p, &e.ready) {
				preempt = true
			}
		}
	}

	if !preempt {
		return
	}

	e.emitTransition(now, p.PID, StateRunning, StateReady)
	if e.discipline == MLFQDisc {
		if usedFullQuantum {
			e.mlfq.Demote(p, now)
		} else {
			p.QueueLevel = e.runningLevel
			e.mlfq.EnqueueSameLevel(p, now)
		}
	} else {
		e.ready.Enqueue(p, now)
	}
	e.running = nil
	e.timeInSlice = 0
	if e.config.ContextSwitchTime > 0 && e.processesRemain() {
		e.contextSwitchRemaining = e.config.ContextSwitchTime
	}
}

func (e *Engine) selectNext(now int64) {
	var next *PCB
	level, quantum := 0, 0

	if e.discipline == MLFQDisc {
		if !e.mlfq.Empty() {
			next, level, quantum = e.mlfq.GetNext()
		}
	} else {
		e.reorderReady()
		next = e.ready.Dequeue()
		if e.discipline == RoundRobin {
			quantum = e.config.TimeQuantum
		}
	}

	if next == nil {
		return
	}

	next.transitionTo(StateRunning)
	next.setResponseTimeIfUnset(now)
	e.emitTransition(now, next.PID, StateReady, StateRunning)

	e.running = next
	e.runningLevel = level
	e.runningQuantum = quantum
	e.timeInSlice = 0
}

func (e *Engine) completeBurst(now int64) {
	p := e.running
	if ok := p.advanceBurst(); !ok {
		e.running = nil
		e.timeInSlice = 0
		e.terminate(p, now+1)
		if e.config.ContextSwitchTime > 0 && e.processesRemain() {
			e.contextSwitchRemaining = e.config.ContextSwitchTime
		}
		return
	}

	// Bursts strictly alternate CPU/IO by construction, so the newly
	// current burst after finishing a CPU burst is always I/O.
	nb := p.currentBurst()
	e.emitTransition(now+1, p.PID, StateRunning, StateWaiting)
	p.transitionTo(StateWaiting)
	e.io.Enqueue(p, nb.Duration)
	e.running = nil
	e.timeInSlice = 0
	if e.config.ContextSwitchTime > 0 && e.processesRemain() {
		e.contextSwitchRemaining = e.config.ContextSwitchTime
	}
}

// terminate marks p TERMINATED at the given tick, emitting the transition
// and bumping the completed-process count. Terminal and I/O-start
// transitions are recorded at currentTime+1 (end-of-tick / half-open-
// interval convention), while READY transitions from arrival, I/O
// completion, and preemption are recorded at currentTime; both conventions
// are applied consistently so the resulting blocks read as half-open
// intervals [start, end).
func (e *Engine) terminate(p *PCB, tick int64) {
	from := p.State
	p.CompletionTime = tick
	p.transitionTo(StateTerminated)
	e.emitTransition(tick, p.PID, from, StateTerminated)
	e.completed++
	logrus.Debugf("[tick %07d] process %d terminated", tick, p.PID)
}
