// Package-level entry points: RunOnce and CompareMany. These are the only
// functions callers outside this package need: validate the workload,
// expand it into PCBs, drive the engine, and post-process the result.

package sim

// Result is everything a run produces: the timelines, the transition log,
// final process snapshots, and derived metrics.
type Result struct {
	Discipline  Discipline      `json:"discipline"`
	RawTimeline []RawTick       `json:"rawTimeline"`
	Timeline    []TimelineBlock `json:"timeline"`
	Transitions []Transition    `json:"transitions"`
	Processes   []*PCB          `json:"processes"`
	Metrics     Metrics         `json:"metrics"`
}

// RunOnce validates workload, then simulates it once under discipline with
// config, returning the full Result. The workload is validated before any
// PCBs are built so a bad workload never reaches the engine.
func RunOnce(workload *Workload, discipline Discipline, config Config) (Result, error) {
	if problems := workload.validate(); len(problems) > 0 {
		return Result{}, &InvalidWorkloadError{Problems: problems}
	}
	if !IsValidDiscipline(discipline) {
		return Result{}, newUnknownDisciplineErr(discipline)
	}

	pcbs := newPCBsFromWorkload(workload)
	engine, err := newEngine(pcbs, discipline, config)
	if err != nil {
		return Result{}, err
	}

	raw, transitions, finalPCBs, err := engine.Run()
	if err != nil {
		return Result{}, err
	}

	return Result{
		Discipline:  discipline,
		RawTimeline: raw,
		Timeline:    consolidate(raw),
		Transitions: transitions,
		Processes:   finalPCBs,
		Metrics:     deriveMetrics(finalPCBs, raw, engine.currentTime, engine.cpuBusyTicks),
	}, nil
}

// CompareMany runs workload once per discipline in disciplines, under the
// same config, and returns a Result per discipline. The workload is
// validated exactly once, up front, so a single bad workload fails fast
// instead of once per discipline.
func CompareMany(workload *Workload, disciplines []Discipline, config Config) (map[Discipline]Result, error) {
	if problems := workload.validate(); len(problems) > 0 {
		return nil, &InvalidWorkloadError{Problems: problems}
	}

	results := make(map[Discipline]Result, len(disciplines))
	for _, d := range disciplines {
		if !IsValidDiscipline(d) {
			return nil, newUnknownDisciplineErr(d)
		}
		pcbs := newPCBsFromWorkload(workload)
		engine, err := newEngine(pcbs, d, config)
		if err != nil {
			return nil, err
		}
		raw, transitions, finalPCBs, err := engine.Run()
		if err != nil {
			return nil, err
		}
		results[d] = Result{
			Discipline:  d,
			RawTimeline: raw,
			Timeline:    consolidate(raw),
			Transitions: transitions,
			Processes:   finalPCBs,
			Metrics:     deriveMetrics(finalPCBs, raw, engine.currentTime, engine.cpuBusyTicks),
		}
	}
	return results, nil
}
