// Package sim provides the core discrete-event CPU scheduling simulator.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - process.go: PCB lifecycle (NEW → READY → RUNNING → WAITING → TERMINATED)
//   - readyqueue.go, ioqueue.go, mlfq.go: the queue structures the engine owns
//   - policy.go: the seven scheduling disciplines as selection/preemption/quantum tables
//   - engine.go: the per-tick loop that ties queues and policies together
//   - timeline.go, metrics.go: post-processing of a completed run
//   - orchestrator.go: RunOnce/CompareMany, the package's two public entry points
//
// The engine is the sole mutator of process state; queues are owned and
// manipulated exclusively by the engine for the duration of a run.
package sim
