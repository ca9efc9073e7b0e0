package trap

import (
	"sync"

	"corekernel/defs"
	"corekernel/proc"
)

// UserStack_i is the out-of-scope collaborator that actually copies a
// signal trampoline frame into user memory through the vm package's
// safe_buf machinery and reports the post-push stack pointer. Epilogue
// only decides *that* delivery happens and what belongs on the stack; the
// byte-level write-through-CoW step belongs to vm, the same boundary
// tty.VideoConsole_i draws for ANSI decoding.
type UserStack_i interface {
	PushSigFrame(esp uint32, saved Frame_t, info defs.Siginfo_t, trampoline uint32) (newEsp uint32, ok bool)
}

// sigCtxmu guards sigCtx, the saved-frame stash sigreturn consumes. Keyed
// by pid rather than embedded in proc.Task_t, since "the exact pre-delivery
// register frame" is purely a trap-layer concern -- proc's Task_t has no
// register frame of its own to begin with (Design Note "ambient global
// state reached by stack masking").
var (
	sigCtxmu sync.Mutex
	sigCtx   = map[defs.Pid_t]Frame_t{}
)

func stashFrame(pid defs.Pid_t, f Frame_t) {
	sigCtxmu.Lock()
	sigCtx[pid] = f
	sigCtxmu.Unlock()
}

// SigReturn restores the frame stashed before a handler was dispatched,
// mirroring sigreturn's "restores the saved register frame" contract
// (spec.md §4.5). It reports false if no stashed frame exists (a bare
// sigreturn with no pending delivery -- a programming error at the
// syscall boundary).
func SigReturn(pid defs.Pid_t, f *Frame_t) bool {
	sigCtxmu.Lock()
	saved, ok := sigCtx[pid]
	if ok {
		delete(sigCtx, pid)
	}
	sigCtxmu.Unlock()
	if !ok {
		return false
	}
	*f = saved
	return true
}

// fatalExitCode implements spec.md §6's "Exit codes" rule for a task
// terminated by a signal: the richer ABI's low byte is the signal number,
// the legacy ABI always reports 256.
func fatalExitCode(abi defs.Abi_t, signo int) int {
	if abi == defs.ABI_LEGACY {
		return 256
	}
	return signo & 0xff
}

// Epilogue runs the return-to-user steps spec.md §4.3 describes: signal
// delivery (repeatedly, since dropping an ignored signal or forcing a
// fatal one can uncover another pending signal immediately), then the
// tick-threshold preemption check. It returns the task that should
// actually run next -- cur unchanged if no reschedule is warranted,
// whatever proc.Schedule picked otherwise (nil if nothing is runnable).
func Epilogue(cur *proc.Task_t, f *Frame_t, cpu *Cpu_t, stack UserStack_i, trampoline uint32) *proc.Task_t {
	for {
		si, outcome := cur.Deliver()
		switch outcome {
		case proc.DeliverNone:
			if cpu.Tick() {
				return proc.Schedule(cur)
			}
			return cur
		case proc.DeliverDropped:
			continue
		case proc.DeliverFatal:
			cur.Exit(fatalExitCode(cur.Abi, si.Signo))
			return proc.Schedule(cur)
		case proc.DeliverHandler:
			newEsp, ok := stack.PushSigFrame(f.IntrEsp, *f, si, trampoline)
			if !ok {
				cur.Forceful(defs.SIGSEGV)
				cur.Signal(defs.Siginfo_t{Signo: defs.SIGSEGV})
				continue
			}
			stashFrame(cur.Pid, *f)
			f.Eip = cur.HandlerAddrs[si.Signo]
			f.IntrEsp = newEsp
			return cur
		}
	}
}
