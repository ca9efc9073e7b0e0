// Package syscallabi implements the syscall entry surface (spec.md §6, C11):
// a 2D (ABI tag, number) lookup table, register-based argument marshalling
// off trap.Frame_t, fd-table operations, and the legacy ABI's
// negative-collapse-to-"-1" shim.
//
// Grounded on student-distrib/syscall.c's syscall_handler (the dispatch
// loop and the "Evil ece391 subsystem shim" collapse) and syscall.h's
// NR_ECE391_*/NR_LINUX_* numbering and DEFINE_SYSCALLn register convention
// (eax=number, ebx/ecx/edx=args 1-3).
package syscallabi

import "corekernel/defs"

// MaxSyscall bounds the per-ABI syscall number space, matching syscall.h's
// MAX_SYSCALL.
const MaxSyscall = 400

// Legacy ABI syscall numbers (NR_ECE391_*).
const (
	NR_halt        = 1
	NR_execute     = 2
	NR_read        = 3
	NR_write       = 4
	NR_open        = 5
	NR_close       = 6
	NR_getargs     = 7
	NR_vidmap      = 8
	NR_set_handler = 9
	NR_sigreturn   = 10
)

// Rich ABI syscall numbers (NR_LINUX_*), the subset spec.md §6 names "at
// minimum". Numbers are the real i386 Linux table values (ausyscall i386
// --dump) so a rich-ABI libc's assumptions about specific numbers hold.
const (
	NR_exit          = 1
	NR_fork          = 2
	NR_rich_read     = 3
	NR_rich_write    = 4
	NR_rich_open     = 5
	NR_rich_close    = 6
	NR_waitpid       = 7
	NR_execve        = 11
	NR_chdir         = 12
	NR_time          = 13
	NR_brk           = 45
	NR_ioctl         = 54
	NR_fcntl64       = 221
	NR_dup2          = 63
	NR_getppid       = 64
	NR_setpgid       = 57
	NR_getpgrp       = 65
	NR_sigaction     = 67
	NR_getcwd        = 183
	NR_wait4         = 114
	NR_readlink      = 85
	NR_access        = 33
	NR_faccessat     = 307
	NR_socket        = 359
	NR_bind          = 361
	NR_connect       = 362
	NR_poll          = 168
	NR_nanosleep     = 162
	NR_uname         = 122
	NR_set_thread_area = 243
	NR_getuid        = 24
	NR_geteuid       = 49
	NR_rt_sigaction  = 174
	NR_stat64        = 195
	NR_lstat64       = 196
	NR_fstat64       = 197
	NR_getdents64    = 220
	NR_getpgid       = 132
	NR_exit_group    = 252
)

// abiTag derives the table row from a task's ABI. Both rows are sized
// identically; the legacy row simply leaves most of the space unregistered.
func abiTag(abi defs.Abi_t) int {
	if abi == defs.ABI_LEGACY {
		return 0
	}
	return 1
}
