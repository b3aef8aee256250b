package engine

import (
	"time"

	"github.com/google/uuid"
)

func nowMonotonic() time.Duration {
	return time.Duration(time.Now().UnixNano())
}

// Profile is the advisory call/loop counter set the teacher's
// internal/jit.Profiler keeps (RecordCall's 100-call / 1000-iteration
// thresholds), extended per the expanded spec with a RunID so samples
// pushed to an external remoteprofile.Sink can be correlated across one
// process's lifetime without a wall-clock timestamp.
type Profile struct {
	RunID          uuid.UUID
	Calls          int64
	TotalElapsedNs int64
	LoopIterations map[int]int64 // loop StartPC -> iteration count
}

// recordCall updates the profile for fp and pushes a sample to the
// configured remote sink, if any. Profiling is advisory only: spec
// section 4.3 reserves but does not require using these counters to
// upgrade Runtime to Bytecode; this engine's StrategySelector decides
// once at first call and never revisits it except on Reload.
func (e *Engine) recordCall(fp uint64, elapsed time.Duration) {
	e.mu.Lock()
	p, ok := e.profiles[fp]
	if !ok {
		p = &Profile{RunID: e.runID, LoopIterations: make(map[int]int64)}
		e.profiles[fp] = p
	}
	p.Calls++
	p.TotalElapsedNs += int64(elapsed)
	e.mu.Unlock()

	if e.profileSink != nil {
		e.profileSink.Push(fp, *p)
	}
}

func (e *Engine) recordLoopIteration(fp uint64, startPC int) {
	e.mu.Lock()
	p, ok := e.profiles[fp]
	if !ok {
		p = &Profile{RunID: e.runID, LoopIterations: make(map[int]int64)}
		e.profiles[fp] = p
	}
	p.LoopIterations[startPC]++
	e.mu.Unlock()
}
