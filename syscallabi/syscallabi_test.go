package syscallabi

import (
	"encoding/binary"
	"testing"

	"corekernel/defs"
	"corekernel/fs"
	"corekernel/mem"
	"corekernel/proc"
	"corekernel/trap"
	"corekernel/ustr"
	"corekernel/vm"
)

// buildElf32 assembles a minimal ET_EXEC image with one PT_LOAD segment,
// mirroring proc's own test helper of the same name (duplicated rather
// than exported across a package boundary purely for test plumbing).
func buildElf32(entry, vaddr uint32, code []byte) []byte {
	const ehsize = 52
	const phentsize = 32
	phoff := uint32(ehsize)
	segOff := phoff + phentsize

	buf := make([]byte, segOff+uint32(len(code)))
	buf[0] = 0x7f
	copy(buf[1:4], "ELF")
	buf[4] = 1
	buf[5] = 1
	buf[6] = 1
	binary.LittleEndian.PutUint16(buf[16:], 2)
	binary.LittleEndian.PutUint16(buf[18:], 3)
	binary.LittleEndian.PutUint32(buf[20:], 1)
	binary.LittleEndian.PutUint32(buf[24:], entry)
	binary.LittleEndian.PutUint32(buf[28:], phoff)
	binary.LittleEndian.PutUint16(buf[40:], ehsize)
	binary.LittleEndian.PutUint16(buf[42:], phentsize)
	binary.LittleEndian.PutUint16(buf[44:], 1)

	ph := buf[phoff:]
	binary.LittleEndian.PutUint32(ph[0:], 1)
	binary.LittleEndian.PutUint32(ph[4:], segOff)
	binary.LittleEndian.PutUint32(ph[8:], vaddr)
	binary.LittleEndian.PutUint32(ph[12:], vaddr)
	binary.LittleEndian.PutUint32(ph[16:], uint32(len(code)))
	binary.LittleEndian.PutUint32(ph[20:], uint32(len(code)))
	binary.LittleEndian.PutUint32(ph[24:], 5)
	binary.LittleEndian.PutUint32(ph[28:], 0x1000)

	copy(buf[segOff:], code)
	return buf
}

func freshTask(t *testing.T, abi defs.Abi_t) *proc.Task_t {
	t.Helper()
	mem.Physmem = &mem.Physmem_t{}
	mem.Phys_init(256, 0)
	pd, p_pd, ok := mem.Physmem.Pmap_new()
	if !ok {
		t.Fatal("pmap alloc failed")
	}
	as := &vm.Vm_t{Pmap: pd, P_pmap: p_pd}
	as.Vmadd_anon(vm.USERMIN, mem.PGSIZE, vm.PTE_U|vm.PTE_W)

	tsk := proc.NewTask(1, abi)
	tsk.Aspace = as
	return tsk
}

func writeUserStr(t *testing.T, tsk *proc.Task_t, va int, s string) {
	t.Helper()
	b := append([]byte(s), 0)
	if err := tsk.Aspace.K2user(b, va); err != 0 {
		t.Fatalf("K2user: %d", err)
	}
}

func TestDispatchUnknownSyscallIsNosys(t *testing.T) {
	tsk := freshTask(t, defs.ABI_RICH)
	f := &trap.Frame_t{Eax: 9999}
	Dispatch(tsk, f)
	if int32(f.Eax) != int32(-defs.ENOSYS) {
		t.Fatalf("expected -ENOSYS, got %d", int32(f.Eax))
	}
}

func TestDispatchLegacyCollapsesNegativeToMinusOne(t *testing.T) {
	tsk := freshTask(t, defs.ABI_LEGACY)
	f := &trap.Frame_t{Eax: NR_close, Ebx: 77} // no such fd
	Dispatch(tsk, f)
	if int32(f.Eax) != -1 {
		t.Fatalf("expected legacy collapse to -1, got %d", int32(f.Eax))
	}
}

func TestDispatchRichPreservesNegativeErrno(t *testing.T) {
	tsk := freshTask(t, defs.ABI_RICH)
	f := &trap.Frame_t{Eax: NR_rich_close, Ebx: 77}
	Dispatch(tsk, f)
	if int32(f.Eax) != int32(-defs.EBADF) {
		t.Fatalf("expected -EBADF preserved, got %d", int32(f.Eax))
	}
}

func TestOpenWriteCloseRoundtrip(t *testing.T) {
	fsinst := fs.StartFS()
	Init(fsinst)
	defer Init(nil)

	tsk := freshTask(t, defs.ABI_RICH)
	tsk.Cwd = fsinst.MkRootCwd()

	const pathVa = vm.USERMIN
	const dataVa = vm.USERMIN + 0x100
	writeUserStr(t, tsk, pathVa, "/greeting")
	if err := tsk.Aspace.K2user([]byte("hello"), dataVa); err != 0 {
		t.Fatalf("K2user data: %d", err)
	}

	openF := &trap.Frame_t{Eax: NR_rich_open, Ebx: pathVa, Ecx: uint32(defs.O_CREAT | defs.O_RDWR)}
	Dispatch(tsk, openF)
	if int32(openF.Eax) < 0 {
		t.Fatalf("open failed: %d", int32(openF.Eax))
	}
	fdnum := openF.Eax

	writeF := &trap.Frame_t{Eax: NR_rich_write, Ebx: fdnum, Ecx: dataVa, Edx: 5}
	Dispatch(tsk, writeF)
	if int32(writeF.Eax) != 5 {
		t.Fatalf("expected 5 bytes written, got %d", int32(writeF.Eax))
	}

	ip, ferr := fsinst.Fs_namei(ustr.MkUstrSlice([]byte("/greeting")))
	if ferr != 0 {
		t.Fatalf("namei: %d", ferr)
	}
	got := make([]byte, 5)
	ip.Readat(got, 0)
	if string(got) != "hello" {
		t.Fatalf("expected file content hello, got %q", got)
	}

	closeF := &trap.Frame_t{Eax: NR_rich_close, Ebx: fdnum}
	Dispatch(tsk, closeF)
	if int32(closeF.Eax) != 0 {
		t.Fatalf("close failed: %d", int32(closeF.Eax))
	}
}

func TestForkMakesChildRunnable(t *testing.T) {
	tsk := freshTask(t, defs.ABI_RICH)
	f := &trap.Frame_t{Eax: NR_fork}
	Dispatch(tsk, f)
	if int32(f.Eax) <= 0 {
		t.Fatalf("expected a positive child pid, got %d", int32(f.Eax))
	}
	child, ok := proc.GetTask(defs.Pid_t(int32(f.Eax)))
	if !ok {
		t.Fatal("expected child task registered")
	}
	if !proc.Runnable(child) {
		t.Fatal("expected child on runqueue")
	}
}

func TestSetHandlerRecordsDisposition(t *testing.T) {
	tsk := freshTask(t, defs.ABI_LEGACY)
	shf := &trap.Frame_t{Eax: NR_set_handler, Ebx: uint32(defs.SIGUSR1), Ecx: 0x5000}
	Dispatch(tsk, shf)
	if int32(shf.Eax) != 0 {
		t.Fatalf("set_handler failed: %d", int32(shf.Eax))
	}
	if tsk.HandlerAddrs[defs.SIGUSR1] != 0x5000 {
		t.Fatal("expected handler address recorded")
	}
}

func TestVidmapWritesBackMappingAddress(t *testing.T) {
	tsk := freshTask(t, defs.ABI_LEGACY)
	const outVa = vm.USERMIN + 0x200
	f := &trap.Frame_t{Eax: NR_vidmap, Ebx: outVa}
	Dispatch(tsk, f)
	if int32(f.Eax) != 0 {
		t.Fatalf("vidmap failed: %d", int32(f.Eax))
	}
	addr, err := tsk.Aspace.Userreadn(outVa, 4)
	if err != 0 {
		t.Fatalf("readback: %d", err)
	}
	if addr == 0 {
		t.Fatal("expected a nonzero mapped address written back")
	}
}

func TestExecveSyscallRedirectsFrame(t *testing.T) {
	fsinst := fs.StartFS()
	Init(fsinst)
	defer Init(nil)

	tsk := freshTask(t, defs.ABI_RICH)
	tsk.Cwd = fsinst.MkRootCwd()

	img := buildElf32(0x9000, 0x9000, []byte{0x90, 0x90, 0xc3})
	ip, err := fsinst.Fs_open(ustr.MkUstrSlice([]byte("/prog")), defs.O_CREAT, 0)
	if err != 0 {
		t.Fatalf("create: %d", err)
	}
	ip.Writeat(img, 0)

	const pathVa = vm.USERMIN
	writeUserStr(t, tsk, pathVa, "/prog")

	f := &trap.Frame_t{Eax: NR_execve, Ebx: pathVa}
	Dispatch(tsk, f)
	if int32(f.Eax) != 0 {
		t.Fatalf("execve failed: %d", int32(f.Eax))
	}
	if f.Eip != 0x9000 {
		t.Fatalf("expected entry redirected to 0x9000, got 0x%x", f.Eip)
	}
	if f.IntrEsp == 0 {
		t.Fatal("expected a nonzero stack pointer after execve")
	}
}
