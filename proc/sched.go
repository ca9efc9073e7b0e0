package proc

import (
	"sync"

	"corekernel/tinfo"
)

// runq_t is the ready-to-run queue: a plain FIFO slice guarded by a mutex,
// playing the role of the original's intrusive schedule_queue linked list
// (list_insert_back/list_pop_front/list_contains).
type runq_t struct {
	sync.Mutex
	q []*Task_t
}

var runq runq_t

func (r *runq_t) push(t *Task_t) {
	r.Lock()
	defer r.Unlock()
	for _, o := range r.q {
		if o == t {
			return
		}
	}
	r.q = append(r.q, t)
}

func (r *runq_t) pop() (*Task_t, bool) {
	r.Lock()
	defer r.Unlock()
	if len(r.q) == 0 {
		return nil, false
	}
	t := r.q[0]
	r.q = r.q[1:]
	return t, true
}

func (r *runq_t) contains(t *Task_t) bool {
	r.Lock()
	defer r.Unlock()
	for _, o := range r.q {
		if o == t {
			return true
		}
	}
	return false
}

func (r *runq_t) len() int {
	r.Lock()
	defer r.Unlock()
	return len(r.q)
}

// Schedule picks the next task to run: if cur is still runnable it is
// re-enqueued at the back (round robin), then the task at the front of
// the runqueue is dequeued, installed as the current task via tinfo, and
// returned. Schedule returns nil if nothing is runnable (the original's
// swapper/idle path; a hosted module has no real idle loop to switch to).
//
// This mirrors the original's schedule(): push current if runnable, pop
// next, switch_to. Unlike the original, the actual "jump to saved
// register state" is not modeled -- there is no real CPU context to jump
// to in a hosted Go module -- so Schedule only performs the bookkeeping
// half (queue discipline plus the tinfo.Current handoff); a caller driving
// an actual task body is responsible for invoking it at each voluntary
// yield point.
func Schedule(cur *Task_t) *Task_t {
	if cur != nil {
		if tinfo.CurrentOrNil() != nil {
			tinfo.ClearCurrent()
		}
		if cur.getState() == TASK_RUNNING {
			runq.push(cur)
		}
	}

	next, ok := runq.pop()
	if !ok {
		return nil
	}
	tinfo.SetCurrent(next.Note)
	return next
}

// WakeupProc marks t runnable and pushes it onto the runqueue if it is not
// already there, mirroring wake_up_process.
func WakeupProc(t *Task_t) {
	t.setState(TASK_RUNNING)
	runq.push(t)
}

// Runnable reports whether t is currently sitting in the runqueue.
func Runnable(t *Task_t) bool {
	return runq.contains(t)
}
