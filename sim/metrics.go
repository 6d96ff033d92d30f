// Derives aggregate and per-process performance metrics from a completed
// run.

package sim

import "fmt"

// ProcessMetrics holds the derived timing metrics for one terminated
// process.
type ProcessMetrics struct {
	PID        int   `json:"pid"`
	Turnaround int64 `json:"turnaround"`
	Waiting    int64 `json:"waiting"`
	Response   int64 `json:"response"`
}

// Metrics aggregates statistics about a completed run for reporting.
type Metrics struct {
	AvgTurnaround   float64          `json:"avgTurnaround"`
	AvgWaiting      float64          `json:"avgWaiting"`
	AvgResponse     float64          `json:"avgResponse"`
	CPUUtilization  float64          `json:"cpuUtilization"`
	Throughput      float64          `json:"throughput"`
	TotalTime       int64            `json:"totalTime"`
	ContextSwitches int              `json:"contextSwitches"`
	IdleTime        int64            `json:"idleTime"`
	MaxWaiting      int64            `json:"maxWaiting"`
	MaxResponse     int64            `json:"maxResponse"`
	PerProcess      []ProcessMetrics `json:"perProcess"`
}

// deriveMetrics computes Metrics from the terminated PCB population and
// the raw timeline. Only terminated processes contribute to per-process
// and aggregate figures; iteration is in pid order so output never depends
// on map iteration.
func deriveMetrics(pcbs []*PCB, raw []RawTick, currentTime int64, cpuBusyTicks int64) Metrics {
	ordered := make([]*PCB, len(pcbs))
	copy(ordered, pcbs)
	// Stable by pid for deterministic, reviewer-friendly per-process output.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j-1].PID > ordered[j].PID; j-- {
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}

	var m Metrics
	m.TotalTime = currentTime
	m.IdleTime = currentTime - cpuBusyTicks

	for _, t := range raw {
		if t.Type == TickContextSwitch {
			m.ContextSwitches++
		}
	}

	var turnSum, waitSum, respSum int64
	var n int64
	for _, p := range ordered {
		if p.State != StateTerminated {
			continue
		}
		turnaround := p.CompletionTime - p.ArrivalTime
		waiting := turnaround - p.TotalCPUBurst
		response := p.responseTime()

		m.PerProcess = append(m.PerProcess, ProcessMetrics{
			PID:        p.PID,
			Turnaround: turnaround,
			Waiting:    waiting,
			Response:   response,
		})

		turnSum += turnaround
		waitSum += waiting
		respSum += response
		n++
		if waiting > m.MaxWaiting {
			m.MaxWaiting = waiting
		}
		if response > m.MaxResponse {
			m.MaxResponse = response
		}
	}

	if n > 0 {
		m.AvgTurnaround = float64(turnSum) / float64(n)
		m.AvgWaiting = float64(waitSum) / float64(n)
		m.AvgResponse = float64(respSum) / float64(n)
	}
	if currentTime > 0 {
		m.CPUUtilization = float64(cpuBusyTicks) / float64(currentTime) * 100
		m.Throughput = float64(n) / float64(currentTime)
	}
	return m
}

// Print writes a human-readable summary of the run's metrics, in the style
// of a simulator's end-of-run report.
func (m Metrics) Print() {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Total Time           : %d ticks\n", m.TotalTime)
	fmt.Printf("CPU Utilization      : %.2f%%\n", m.CPUUtilization)
	fmt.Printf("Throughput           : %.4f processes/tick\n", m.Throughput)
	fmt.Printf("Context Switches     : %d\n", m.ContextSwitches)
	fmt.Printf("Idle Time            : %d ticks\n", m.IdleTime)
	fmt.Printf("Average Turnaround   : %.2f ticks\n", m.AvgTurnaround)
	fmt.Printf("Average Waiting      : %.2f ticks\n", m.AvgWaiting)
	fmt.Printf("Average Response     : %.2f ticks\n", m.AvgResponse)
	fmt.Printf("Max Waiting          : %d ticks\n", m.MaxWaiting)
	fmt.Printf("Max Response         : %d ticks\n", m.MaxResponse)
}
