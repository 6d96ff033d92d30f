package sim

import "fmt"

// InvalidWorkloadError reports one or more problems found while validating a
// Workload before a run. All problems are collected up front; the caller
// never receives partial state.
type InvalidWorkloadError struct {
	Problems []string
}

func (e *InvalidWorkloadError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("invalid workload: %s", e.Problems[0])
	}
	return fmt.Sprintf("invalid workload: %d problems (%s, ...)", len(e.Problems), e.Problems[0])
}

// UnknownDisciplineError reports a discipline name the orchestrator does not
// recognize.
type UnknownDisciplineError struct {
	Name string
}

func (e *UnknownDisciplineError) Error() string {
	return fmt.Sprintf("unknown discipline %q", e.Name)
}

// IterationCapExceededError reports that the engine reached its hard
// iteration limit without every process terminating. This indicates a
// buggy policy or a malicious/pathological input, not a user mistake.
type IterationCapExceededError struct {
	Cap int64
}

func (e *IterationCapExceededError) Error() string {
	return fmt.Sprintf("simulation exceeded iteration cap of %d ticks without terminating", e.Cap)
}
