package syscallabi

import (
	"corekernel/defs"
	"corekernel/fs"
	"corekernel/proc"
	"corekernel/trap"
)

// Handler is one syscall's implementation: it reads its arguments out of f
// via arg0/arg1/arg2 and the task's address space, and returns the value
// destined for eax (already negated on error, per spec.md §7's uniform
// fallible-result convention).
type Handler func(t *proc.Task_t, f *trap.Frame_t) int32

// table is the 2D (ABI tag, number) -> handler lookup, spec.md's "Subsystem
// per task" design note made concrete. Row 0 is the legacy ABI, row 1 the
// rich ABI.
var table [2][MaxSyscall]Handler

// Register installs h as the handler for (abi, number). Called from each
// ABI file's init.
func Register(abi defs.Abi_t, number int, h Handler) {
	table[abiTag(abi)][number] = h
}

// FS is the filesystem every open/execve/chdir handler resolves paths
// against. A hosted kernel core has no boot sequence of its own to call
// fs.StartFS() from, so the surface that owns task lifecycle (tests, or
// eventually a cmd/ entry point) calls Init once at startup, mirroring the
// "global mutable tables reformulated as a singleton service with an
// explicit init" design note.
var FS *fs.Fs_t

// Init installs the filesystem singleton every path-based handler resolves
// against.
func Init(f *fs.Fs_t) { FS = f }

// Dispatch implements syscall_handler: look up eax's handler in current
// task t's ABI row, run it, and apply the legacy ABI's "Evil ece391
// subsystem shim" (any negative return collapses to -1) before writing the
// result back to f.Eax. An unregistered number is answered with -ENOSYS,
// exactly like the original's "handler == NULL" branch.
func Dispatch(t *proc.Task_t, f *trap.Frame_t) {
	num := int(f.Eax)
	var h Handler
	if num >= 0 && num < MaxSyscall {
		h = table[abiTag(t.Abi)][num]
	}

	var ret int32
	if h == nil {
		ret = int32(-defs.ENOSYS)
	} else {
		ret = h(t, f)
	}

	if t.Abi == defs.ABI_LEGACY && ret < 0 {
		ret = -1
	}
	f.Eax = uint32(ret)
}
