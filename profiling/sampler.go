// Package profiling implements the D_PROF device (defs.D_PROF, spec.md
// §6's device registry): a read-only byte stream serving a pprof CPU
// profile built from instruction-pointer samples taken whenever a task is
// preempted on tick exhaustion.
//
// Grounded on stats/stats.go's Rdtsc-gated Cycles_t accounting for the
// "sample on every tick, gated by a compile-time switch" idiom, and on
// initrd's device adapters (Ece391Dev, UstarFile) for the fdops.Fdops_i
// byte-stream-over-an-in-memory-buffer pattern. Serialization itself uses
// github.com/google/pprof's profile package, already one of the teacher's
// own go.mod dependencies and otherwise unwired anywhere in this module.
package profiling

import (
	"sync"

	"github.com/google/pprof/profile"
)

// Sampler accumulates a tally of instruction-pointer samples, one bucket
// per distinct eip observed.
type Sampler struct {
	mu     sync.Mutex
	counts map[uint32]int64
	total  int64
}

// NewSampler returns an empty sampler.
func NewSampler() *Sampler {
	return &Sampler{counts: make(map[uint32]int64)}
}

// Record tallies one sample at eip, the saved instruction pointer of the
// task the tick handler just preempted (trap.Frame_t.Eip at the moment
// trap.Cpu_t.Tick reports the budget exhausted).
func (s *Sampler) Record(eip uint32) {
	s.mu.Lock()
	s.counts[eip]++
	s.total++
	s.mu.Unlock()
}

// Reset discards all accumulated samples, matching /proc/profile's
// read-then-clear convention on Linux.
func (s *Sampler) Reset() {
	s.mu.Lock()
	s.counts = make(map[uint32]int64)
	s.total = 0
	s.mu.Unlock()
}

// Len reports the number of samples recorded since the last Reset.
func (s *Sampler) Len() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Snapshot renders the accumulated samples as a pprof Profile: one
// Location per distinct eip, one single-value Sample per Location.
func (s *Sampler) Snapshot() *profile.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "samples", Unit: "count"}},
		PeriodType: &profile.ValueType{Type: "tick", Unit: "count"},
		Period:     1,
	}
	var nextID uint64 = 1
	for eip, n := range s.counts {
		loc := &profile.Location{ID: nextID, Address: uint64(eip)}
		nextID++
		p.Location = append(p.Location, loc)
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{n},
		})
	}
	return p
}
