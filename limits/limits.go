// Package limits tracks system-wide resource caps shared across tasks.
package limits

import (
	"sync/atomic"
	"unsafe"
)

// Lhits counts limit hits, for diagnostics.
var Lhits int

// Sysatomic_t is a numeric limit that can be atomically updated.
type Sysatomic_t int64

// Syslimit_t tracks system wide resource limits.
type Syslimit_t struct {
	// protected by the process table lock
	Sysprocs int
	// protected by the inode table lock
	Vnodes int
	Blocks int
	// Socks counts pipes and file descriptors referencing sockets.
	Socks Sysatomic_t
	// Pipes counts open pipe endpoints.
	Pipes Sysatomic_t
	// Mfspgs counts additional memory-filesystem per-page objects beyond
	// the one freebie page every file gets.
	Mfspgs Sysatomic_t
}

// Syslimit describes the configured system-wide limits.
var Syslimit *Syslimit_t = MkSysLimit()

// MkSysLimit returns a pointer to the default set of limits.
func MkSysLimit() *Syslimit_t {
	return &Syslimit_t{
		Sysprocs: 1e4,
		Vnodes:   20000,
		Blocks:   100000,
		Socks:    1e5,
		Pipes:    1e4,
	}
}

func (s *Sysatomic_t) _aptr() *int64 {
	return (*int64)(unsafe.Pointer(s))
}

// Given increases the limit by the provided amount.
func (s *Sysatomic_t) Given(_n uint) {
	n := int64(_n)
	if n < 0 {
		panic("too mighty")
	}
	atomic.AddInt64(s._aptr(), n)
}

// Taken tries to decrement the limit by the provided amount, returning
// true on success and leaving the limit unchanged on failure.
func (s *Sysatomic_t) Taken(_n uint) bool {
	n := int64(_n)
	if n < 0 {
		panic("too mighty")
	}
	g := atomic.AddInt64(s._aptr(), -n)
	if g >= 0 {
		return true
	}
	atomic.AddInt64(s._aptr(), n)
	return false
}

// Take decrements the limit by one and reports whether it succeeded.
func (s *Sysatomic_t) Take() bool {
	return s.Taken(1)
}

// Give increments the limit by one.
func (s *Sysatomic_t) Give() {
	s.Given(1)
}
