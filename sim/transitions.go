package sim

// Transition records one state-machine edge a process crossed, in the
// order the engine emitted it (time ascending, then insertion order).
type Transition struct {
	Time int64
	PID  int
	From ProcessState
	To   ProcessState
}
