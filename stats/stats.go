// Package stats provides compile-time-gated counters and cycle timers for
// diagnosing kernel hot paths, following the same on/off switch pattern the
// rest of the kernel uses for its debug logging.
package stats

import (
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"unsafe"
)

// Stats gates whether Counter_t increments do any work.
const Stats = false

// Timing gates whether Cycles_t accumulates any time.
const Timing = false

var Nirqs [100]int
var Irqs int

// rdtscProxy is a monotonically increasing software counter standing in
// for the RDTSC instruction, which this hosted module has no way to issue;
// it preserves Cycles_t's "elapsed ticks since a start mark" contract
// without depending on real CPU cycle counts.
var rdtscProxy uint64

// Rdtsc returns a monotonically increasing tick count when timing is
// enabled, or 0 otherwise.
func Rdtsc() uint64 {
	if Timing {
		return atomic.AddUint64(&rdtscProxy, 1)
	}
	return 0
}

// Counter_t is a statistical counter.
type Counter_t int64

// Cycles_t holds an elapsed-tick count.
type Cycles_t int64

// Inc increments the counter.
func (c *Counter_t) Inc() {
	if Stats {
		n := (*int64)(unsafe.Pointer(c))
		atomic.AddInt64(n, 1)
	}
}

// Add adds elapsed ticks since mark m to the counter.
func (c *Cycles_t) Add(m uint64) {
	if Timing {
		n := (*int64)(unsafe.Pointer(c))
		atomic.AddInt64(n, int64(Rdtsc()-m))
	}
}

// Stats2String converts a struct of counters to a printable string.
func Stats2String(st interface{}) string {
	if !Stats {
		return ""
	}
	v := reflect.ValueOf(st)
	s := ""
	for i := 0; i < v.NumField(); i++ {
		t := v.Field(i).Type().String()
		if strings.HasSuffix(t, "Counter_t") {
			n := v.Field(i).Interface().(Counter_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}
		if strings.HasSuffix(t, "Cycles_t") {
			n := v.Field(i).Interface().(Cycles_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}
	}
	return s + "\n"
}
