package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOnce_InvalidWorkload_ReturnsInvalidWorkloadError(t *testing.T) {
	// GIVEN an empty workload
	w := &Workload{}

	// WHEN RunOnce is called
	_, err := RunOnce(w, FCFS, DefaultConfig())

	// THEN it returns InvalidWorkloadError without touching the engine
	require.Error(t, err)
	assert.IsType(t, &InvalidWorkloadError{}, err)
}

func TestRunOnce_UnknownDiscipline_ReturnsUnknownDisciplineError(t *testing.T) {
	// GIVEN a valid workload but a bogus discipline name
	w := &Workload{Processes: []ProcessSpec{{PID: 1, CPUBurst: 1}}}

	// WHEN RunOnce is called
	_, err := RunOnce(w, Discipline("bogus"), DefaultConfig())

	// THEN it returns UnknownDisciplineError
	require.Error(t, err)
	assert.IsType(t, &UnknownDisciplineError{}, err)
}

func TestRunOnce_DoesNotMutateInputWorkload(t *testing.T) {
	// GIVEN a workload
	w := &Workload{Processes: []ProcessSpec{
		{PID: 1, ArrivalTime: 0, CPUBurst: 3},
		{PID: 2, ArrivalTime: 1, CPUBurst: 2},
	}}
	snapshot := *w

	// WHEN RunOnce simulates it
	_, err := RunOnce(w, FCFS, DefaultConfig())
	require.NoError(t, err)

	// THEN the caller's Workload value is unchanged
	require.Len(t, w.Processes, len(snapshot.Processes))
	for i := range w.Processes {
		got, want := w.Processes[i], snapshot.Processes[i]
		assert.Equal(t, want.PID, got.PID)
		assert.Equal(t, want.ArrivalTime, got.ArrivalTime)
		assert.Equal(t, want.CPUBurst, got.CPUBurst)
	}
}

func TestCompareMany_RunsEveryDisciplineOverSameWorkload(t *testing.T) {
	// GIVEN a simple workload and every valid discipline
	w := &Workload{Processes: []ProcessSpec{
		{PID: 1, ArrivalTime: 0, CPUBurst: 4},
		{PID: 2, ArrivalTime: 1, CPUBurst: 2},
	}}
	config := Config{ContextSwitchTime: 0, TimeQuantum: 2, Q1TimeQuantum: 2, Q2TimeQuantum: 4}

	// WHEN CompareMany is called
	results, err := CompareMany(w, ValidDisciplines, config)
	require.NoError(t, err)

	// THEN every discipline produced a Result where both processes terminated
	for _, d := range ValidDisciplines {
		r, ok := results[d]
		require.True(t, ok, "missing result for discipline %s", d)
		for _, p := range r.Processes {
			assert.Equal(t, StateTerminated, p.State, "discipline %s: pid %d did not terminate", d, p.PID)
		}
	}
}

func TestCompareMany_InvalidWorkload_ValidatedOnce(t *testing.T) {
	// GIVEN an invalid workload
	w := &Workload{}

	// WHEN CompareMany is called
	_, err := CompareMany(w, ValidDisciplines, DefaultConfig())

	// THEN it fails fast with InvalidWorkloadError
	require.Error(t, err)
	assert.IsType(t, &InvalidWorkloadError{}, err)
}
