package syscallabi

import (
	"corekernel/defs"
	"corekernel/proc"
	"corekernel/trap"
	"corekernel/ustr"
)

// Register-based argument marshalling: DEFINE_SYSCALL1/2/3's
// info->ebx/ecx/edx convention, carried over verbatim since Frame_t already
// mirrors struct intr_regs field-for-field.
func arg0(f *trap.Frame_t) uint32 { return f.Ebx }
func arg1(f *trap.Frame_t) uint32 { return f.Ecx }
func arg2(f *trap.Frame_t) uint32 { return f.Edx }

// maxPathLen bounds a syscall-supplied path string, mirroring
// safe_arr_null_term's "bounded" scan in ece391execute/open handlers.
const maxPathLen = 256

// argPath reads a NUL-terminated path string out of the calling task's
// address space at uva.
func argPath(t *proc.Task_t, uva uint32) (ustr.Ustr, defs.Err_t) {
	return t.Aspace.Userstr(int(uva), maxPathLen)
}
