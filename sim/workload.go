// Defines the external workload input shape and its expansion into the
// internal alternating CPU/IO burst sequence the engine consumes.

package sim

import (
	"fmt"
	"sort"
)

// IOBurstSpec describes one I/O interruption within a process's total CPU
// time: after afterCpu ticks of CPU have executed, the process blocks on
// I/O for duration ticks.
type IOBurstSpec struct {
	AfterCPU int `yaml:"afterCpu" json:"afterCpu"`
	Duration int `yaml:"duration" json:"duration"`
}

// ProcessSpec is the external, stable-shape workload input for a single
// process.
type ProcessSpec struct {
	PID         int           `yaml:"pid" json:"pid"`
	ArrivalTime int64         `yaml:"arrivalTime" json:"arrivalTime"`
	CPUBurst    int           `yaml:"cpuBurst" json:"cpuBurst"`
	Priority    int           `yaml:"priority" json:"priority"`
	IOEnabled   bool          `yaml:"ioEnabled" json:"ioEnabled"`
	IOBursts    []IOBurstSpec `yaml:"ioBursts" json:"ioBursts"`
}

// Workload is the full input to a run: the process population. It is never
// mutated by a run; the orchestrator builds a fresh PCB population from it
// (newPCBsFromWorkload) for every run instead of handing it to the engine.
type Workload struct {
	Processes []ProcessSpec `yaml:"processes" json:"processes"`
}

// validate collects every problem with w and returns them all at once; it
// performs no partial validation.
func (w *Workload) validate() []string {
	var problems []string
	if len(w.Processes) == 0 {
		problems = append(problems, "workload has no processes")
	}
	seenPID := make(map[int]bool)
	for _, p := range w.Processes {
		if seenPID[p.PID] {
			problems = append(problems, fmt.Sprintf("pid %d: duplicate process id", p.PID))
		}
		seenPID[p.PID] = true
		if p.PID < 1 {
			problems = append(problems, fmt.Sprintf("pid %d: pid must be >= 1", p.PID))
		}
		if p.ArrivalTime < 0 {
			problems = append(problems, fmt.Sprintf("pid %d: arrivalTime must be >= 0", p.PID))
		}
		if p.CPUBurst < 1 {
			problems = append(problems, fmt.Sprintf("pid %d: cpuBurst must be >= 1", p.PID))
		}
		if p.Priority < 0 {
			problems = append(problems, fmt.Sprintf("pid %d: priority must be >= 0", p.PID))
		}
		if !p.IOEnabled && len(p.IOBursts) > 0 {
			problems = append(problems, fmt.Sprintf("pid %d: ioBursts set but ioEnabled is false", p.PID))
		}
		if p.IOEnabled {
			seenAfter := make(map[int]bool)
			minAfter := -1
			for _, io := range p.IOBursts {
				if io.AfterCPU < 0 || io.AfterCPU > p.CPUBurst {
					problems = append(problems, fmt.Sprintf("pid %d: ioBurst afterCpu=%d out of range [0, %d]", p.PID, io.AfterCPU, p.CPUBurst))
				}
				if seenAfter[io.AfterCPU] {
					problems = append(problems, fmt.Sprintf("pid %d: duplicate ioBurst afterCpu=%d", p.PID, io.AfterCPU))
				}
				seenAfter[io.AfterCPU] = true
				if io.Duration < 1 {
					problems = append(problems, fmt.Sprintf("pid %d: ioBurst duration must be >= 1", p.PID))
				}
				if minAfter == -1 || io.AfterCPU < minAfter {
					minAfter = io.AfterCPU
				}
			}
			// The burst sequence must begin with a CPU burst; an I/O burst
			// at afterCpu=0 would leave no CPU to run first.
			if minAfter == 0 {
				problems = append(problems, fmt.Sprintf("pid %d: ioBurst afterCpu=0 leaves no leading CPU burst", p.PID))
			}
		}
	}
	return problems
}

// expandBursts walks ioBursts in ascending afterCpu order, splitting the
// process's cpuBurst at each afterCpu point and inserting the I/O burst
// between the two resulting CPU segments. Residual CPU time at the end
// becomes a trailing CPU burst. The result always begins with a CPU burst;
// it ends with a CPU burst unless the last I/O burst has afterCpu equal to
// cpuBurst, in which case it ends with that I/O burst.
func expandBursts(p ProcessSpec) []Burst {
	ioBursts := make([]IOBurstSpec, len(p.IOBursts))
	copy(ioBursts, p.IOBursts)
	sort.Slice(ioBursts, func(i, j int) bool { return ioBursts[i].AfterCPU < ioBursts[j].AfterCPU })

	// validate() rejects afterCpu=0, so the first CPU segment below is
	// always positive-length; every io.AfterCPU > cursor holds by
	// construction (distinct, ascending afterCpu values).
	var bursts []Burst
	cursor := 0
	for _, io := range ioBursts {
		bursts = append(bursts, Burst{Type: BurstCPU, Duration: io.AfterCPU - cursor})
		bursts = append(bursts, Burst{Type: BurstIO, Duration: io.Duration})
		cursor = io.AfterCPU
	}
	if cursor < p.CPUBurst || len(bursts) == 0 {
		bursts = append(bursts, Burst{Type: BurstCPU, Duration: p.CPUBurst - cursor})
	}
	return bursts
}

// newPCBsFromWorkload expands and sorts a validated workload into PCBs
// ordered by arrival time, then pid (the tie-break chain shared by every
// stable sort in the engine).
func newPCBsFromWorkload(w *Workload) []*PCB {
	pcbs := make([]*PCB, len(w.Processes))
	for i, p := range w.Processes {
		pcbs[i] = newPCB(p.PID, p.ArrivalTime, p.Priority, expandBursts(p))
	}
	sort.SliceStable(pcbs, func(i, j int) bool {
		if pcbs[i].ArrivalTime != pcbs[j].ArrivalTime {
			return pcbs[i].ArrivalTime < pcbs[j].ArrivalTime
		}
		return pcbs[i].PID < pcbs[j].PID
	})
	return pcbs
}
