// Package oommsg carries out-of-memory notifications from the physical
// frame allocator to whatever reclaim daemon the kernel runs.
package oommsg

// OomCh is sent to when memory is exhausted; a reclaim daemon receives on
// it, frees what it can, and signals completion on Resume.
var OomCh chan Oommsg_t = make(chan Oommsg_t)

// Oommsg_t describes an out-of-memory condition: Need is how many frames
// the stalled allocation wants, and Resume is signaled once the daemon has
// made an attempt at freeing frames.
type Oommsg_t struct {
	Need   int
	Resume chan bool
}
