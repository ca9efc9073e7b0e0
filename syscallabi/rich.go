package syscallabi

import (
	"corekernel/defs"
	"corekernel/fd"
	"corekernel/proc"
	"corekernel/trap"
	"corekernel/ustr"
)

func init() {
	Register(defs.ABI_RICH, NR_exit, sysExit)
	Register(defs.ABI_RICH, NR_exit_group, sysExit)
	Register(defs.ABI_RICH, NR_fork, sysFork)
	Register(defs.ABI_RICH, NR_rich_read, sysRead)
	Register(defs.ABI_RICH, NR_rich_write, sysWrite)
	Register(defs.ABI_RICH, NR_rich_open, sysOpenRich)
	Register(defs.ABI_RICH, NR_rich_close, sysClose)
	Register(defs.ABI_RICH, NR_waitpid, sysWaitpid)
	Register(defs.ABI_RICH, NR_wait4, sysWaitpid)
	Register(defs.ABI_RICH, NR_execve, sysExecve)
	Register(defs.ABI_RICH, NR_chdir, sysChdir)
	Register(defs.ABI_RICH, NR_dup2, sysDup2)
	Register(defs.ABI_RICH, NR_rt_sigaction, sysRtSigaction)
	Register(defs.ABI_RICH, NR_getuid, sysZero)
	Register(defs.ABI_RICH, NR_geteuid, sysZero)
	Register(defs.ABI_RICH, NR_getppid, sysGetppid)
}

func sysZero(t *proc.Task_t, f *trap.Frame_t) int32 { return 0 }

// sysExit implements NR_LINUX_exit/exit_group: both collapse to the same
// single-task-group model this core carries (no thread groups distinct
// from processes), mirroring do_exit's unconditional tree teardown.
func sysExit(t *proc.Task_t, f *trap.Frame_t) int32 {
	t.Exit(int(int32(arg0(f))) & 0xff)
	return 0
}

// sysFork implements NR_LINUX_fork: a plain do_clone with no sharing
// flags. The child's pid is returned to the parent; the child itself
// never observes this handler's return value in this model (there is no
// register-restore/return-to-userspace loop that resumes the child's own
// call frame -- see Design Note on switch_to).
func sysFork(t *proc.Task_t, f *trap.Frame_t) int32 {
	child, err := proc.Clone(t, 0)
	if err != 0 {
		return int32(err)
	}
	return int32(child.Pid)
}

// sysOpenRich implements NR_LINUX_open; flags/mode come from ecx/edx
// instead of the legacy ABI's implicit O_RDWR.
func sysOpenRich(t *proc.Task_t, f *trap.Frame_t) int32 {
	if FS == nil {
		return int32(-defs.ENODEV)
	}
	path, err := argPath(t, arg0(f))
	if err != 0 {
		return int32(err)
	}
	perms := fd.FD_READ
	flags := int(arg1(f))
	if flags&defs.O_WRONLY != 0 || flags&defs.O_RDWR != 0 {
		perms |= fd.FD_WRITE
	}
	nfd, ferr := FS.OpenFd(path, flags, uint(arg2(f)), perms)
	if ferr != 0 {
		return int32(ferr)
	}
	return int32(t.AddFd(nfd))
}

// sysWaitpid implements NR_LINUX_waitpid/wait4's non-blocking reap: pid <=
// 0 reaps any child (optionally restricted to a process group by -pid),
// otherwise a specific child.
func sysWaitpid(t *proc.Task_t, f *trap.Frame_t) int32 {
	pid := int32(arg0(f))
	statusVa := arg1(f)

	var code int
	var err defs.Err_t
	var reaped defs.Pid_t
	if pid > 0 {
		code, err = t.Wait(defs.Pid_t(pid))
		reaped = defs.Pid_t(pid)
	} else {
		reaped, code, err = t.WaitAny(defs.Pid_t(-pid))
	}
	if err != 0 {
		return int32(err)
	}
	if statusVa != 0 {
		if werr := t.Aspace.Userwriten(int(statusVa), 4, code&0xff); werr != 0 {
			return int32(werr)
		}
	}
	return int32(reaped)
}

// argStrList reads a NULL-terminated array of user string pointers, as
// execve's argv/envp arrays are laid out.
func argStrList(t *proc.Task_t, uva uint32) ([]ustr.Ustr, defs.Err_t) {
	if uva == 0 {
		return nil, 0
	}
	var out []ustr.Ustr
	for i := 0; i < 256; i++ {
		ptr, err := t.Aspace.Userreadn(int(uva)+4*i, 4)
		if err != 0 {
			return nil, err
		}
		if ptr == 0 {
			break
		}
		s, serr := t.Aspace.Userstr(ptr, 4096)
		if serr != 0 {
			return nil, serr
		}
		out = append(out, s)
	}
	return out, 0
}

// sysExecve implements NR_LINUX_execve: resolve and read the target
// image, replace the address space, and redirect the trap frame to the
// new entry point and stack, exactly as a real execve's "never returns to
// the calling frame" contract requires.
func sysExecve(t *proc.Task_t, f *trap.Frame_t) int32 {
	if FS == nil {
		return int32(-defs.ENODEV)
	}
	path, err := argPath(t, arg0(f))
	if err != 0 {
		return int32(err)
	}
	argv, aerr := argStrList(t, arg1(f))
	if aerr != 0 {
		return int32(aerr)
	}
	envp, eerr := argStrList(t, arg2(f))
	if eerr != 0 {
		return int32(eerr)
	}

	ip, ferr := FS.Fs_namei(path)
	if ferr != 0 {
		return int32(ferr)
	}
	image := make([]byte, ip.Size())
	ip.Readat(image, 0)

	res, xerr := proc.Execve(t, image, argv, envp)
	if xerr != 0 {
		return int32(xerr)
	}
	f.Eip = res.Entry
	f.IntrEsp = res.Esp
	return 0
}

// sysChdir implements NR_LINUX_chdir.
func sysChdir(t *proc.Task_t, f *trap.Frame_t) int32 {
	if FS == nil {
		return int32(-defs.ENODEV)
	}
	path, err := argPath(t, arg0(f))
	if err != 0 {
		return int32(err)
	}
	full := t.Cwd.Canonicalpath(path)
	nfd, oerr := FS.OpenFd(full, defs.O_DIRECTORY, 0, fd.FD_READ)
	if oerr != 0 {
		return int32(oerr)
	}
	t.Cwd.Lock()
	fd.Close_panic(t.Cwd.Fd)
	t.Cwd.Fd = nfd
	t.Cwd.Path = full
	t.Cwd.Unlock()
	return 0
}

// sysDup2 implements NR_LINUX_dup2: reopen the source descriptor's fops
// into the destination slot, closing whatever was there first.
func sysDup2(t *proc.Task_t, f *trap.Frame_t) int32 {
	oldfd, ok := t.GetFd(int(arg0(f)))
	if !ok {
		return int32(-defs.EBADF)
	}
	newn := int(arg1(f))
	if old, ok := t.GetFd(newn); ok {
		_ = old
		t.CloseFd(newn)
	}
	nfd, err := fd.Copyfd(oldfd)
	if err != 0 {
		return int32(err)
	}
	t.SetFdAt(newn, nfd)
	return int32(newn)
}

// sysRtSigaction implements NR_LINUX_rt_sigaction's install-a-handler
// path; ecx carries the new handler's entry point the same way
// NR_ECE391_set_handler does, sparing a second struct sigaction layout.
func sysRtSigaction(t *proc.Task_t, f *trap.Frame_t) int32 {
	signo := int(arg0(f))
	if signo <= 0 || signo >= defs.NSIG {
		return int32(-defs.EINVAL)
	}
	t.SetHandler(signo, arg1(f))
	return 0
}

// sysGetppid implements NR_LINUX_getppid.
func sysGetppid(t *proc.Task_t, f *trap.Frame_t) int32 {
	return int32(t.Ppid)
}
