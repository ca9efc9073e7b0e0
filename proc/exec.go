package proc

import (
	"bytes"
	"debug/elf"
	"encoding/binary"

	"corekernel/defs"
	"corekernel/mem"
	"corekernel/ustr"
	"corekernel/vm"
)

// Fixed layout for the legacy ABI: one 4 MiB page holding the whole raw
// image, argv folded into the unused header space ahead of it. Grounded on
// src/task/ece391exec_shim.h, which names these addresses for the original
// C kernel's identical flat-mapped loader.
const (
	ece391PageAddr = 0x08000000
	ece391MapAddr  = 0x48000
	ece391ArgsAddr = ece391PageAddr
	ece391ImageLen = 4 << 20
)

// The rich ABI's stack sits just under the kernel/user split, same
// placement task/exec.c's SUBSYSTEM_LINUX case improvises with its own
// "any better way to make a better stack address?" comment.
const (
	stackSize = 16 * mem.PGSIZE
)

func stackTop() uint32 { return vm.KERNBASE - uint32(mem.PGSIZE) }

// ExecResult reports where the freshly loaded image wants execution to
// resume. proc has no register-frame type of its own (Design Note "ambient
// global state reached by stack masking") -- folding this into a concrete
// Frame_t is the trap layer's job.
type ExecResult struct {
	Entry uint32
	Esp   uint32
}

// auxv AT_* values, reused verbatim from api/linux/auxvec.h's numbering so
// a rich-ABI libc's _start reads the vector correctly.
const (
	atNull   = 0
	atPhdr   = 3
	atPhent  = 4
	atPhnum  = 5
	atPagesz = 6
	atBase   = 7
	atEntry  = 9
	atUid    = 11
	atEuid   = 12
	atGid    = 13
	atEgid   = 14
	atHwcap  = 16
	atRandom = 25
)

// Execve implements do_execve (spec.md §4.6): validate the image, replace
// the task's address space, and build the initial user stack. The branch
// on ABI mirrors task/exec.c's subsystem switch -- the legacy ABI
// flat-maps the whole file at a fixed address and reads its entry point
// back out of the loaded ELF header at the standard e_entry offset, the
// rich ABI walks PT_LOAD program headers and builds a System V
// argv/envp/auxv stack.
//
// Grounded on kernel/chentry.go's use of debug/elf, retargeted from
// EM_X86_64/ELFCLASS64 to EM_386/ELFCLASS32, for header validation, and on
// task/exec.c's do_execve for the loading algorithm.
func Execve(t *Task_t, image []byte, argv, envp []ustr.Ustr) (ExecResult, defs.Err_t) {
	if len(image) < 4 || image[0] != 0x7f || string(image[1:4]) != "ELF" {
		return ExecResult{}, -defs.ENOEXEC
	}
	ef, ferr := elf.NewFile(bytes.NewReader(image))
	if ferr != nil {
		return ExecResult{}, -defs.ENOEXEC
	}
	if ef.Class != elf.ELFCLASS32 || ef.Data != elf.ELFDATA2LSB ||
		ef.Machine != elf.EM_386 || ef.Type != elf.ET_EXEC {
		return ExecResult{}, -defs.ENOEXEC
	}

	npmap, p_pmap, ok := mem.Physmem.Pmap_new()
	if !ok {
		return ExecResult{}, -defs.ENOMEM
	}
	as := &vm.Vm_t{Pmap: npmap, P_pmap: p_pmap}

	var res ExecResult
	var err defs.Err_t
	if t.Abi == defs.ABI_LEGACY {
		res, err = execLegacy(as, image, argv)
	} else {
		res, err = execRich(as, ef, image, argv, envp)
	}
	if err != 0 {
		as.Uvmfree()
		return ExecResult{}, err
	}

	// Point of no return: the old address space is gone regardless of
	// what happens after this, matching do_execve's comment of the same
	// name -- a failure past here is a SIGSEGV on the new image, not a
	// failed syscall return into the old one.
	if t.Aspace != nil {
		t.Aspace.Uvmfree()
	}
	t.Aspace = as
	return res, 0
}

func execLegacy(as *vm.Vm_t, image []byte, argv []ustr.Ustr) (ExecResult, defs.Err_t) {
	as.Vmadd_anon(ece391PageAddr, ece391ImageLen, vm.PTE_U|vm.PTE_W)

	if len(image) > ece391ImageLen-ece391MapAddr {
		image = image[:ece391ImageLen-ece391MapAddr]
	}
	if err := as.K2user(image, ece391PageAddr+ece391MapAddr); err != 0 {
		return ExecResult{}, err
	}

	if len(argv) >= 2 {
		arg := append(append([]byte{}, argv[1]...), 0)
		if len(arg) > ece391MapAddr {
			arg = arg[:ece391MapAddr]
		}
		if err := as.K2user(arg, ece391ArgsAddr); err != 0 {
			return ExecResult{}, err
		}
	}

	entry := binary.LittleEndian.Uint32(image[24:28])
	return ExecResult{Entry: entry, Esp: ece391PageAddr + uint32(ece391ImageLen)}, 0
}

func execRich(as *vm.Vm_t, ef *elf.File, image []byte, argv, envp []ustr.Ustr) (ExecResult, defs.Err_t) {
	var fileHdrAddr uint32
	for _, p := range ef.Progs {
		if p.Type != elf.PT_LOAD || p.Memsz == 0 {
			continue
		}
		mapaddr := int(p.Vaddr) &^ (mem.PGSIZE - 1)
		numpages := (int(p.Vaddr+p.Memsz) - mapaddr - 1 + mem.PGSIZE) / mem.PGSIZE
		perm := vm.PTE_U
		if p.Flags&elf.PF_W != 0 {
			perm |= vm.PTE_W
		}
		as.Vmadd_anon(mapaddr, numpages*mem.PGSIZE, perm)

		filesz := p.Filesz
		if filesz > p.Memsz {
			filesz = p.Memsz
		}
		if filesz == 0 {
			continue
		}
		if p.Off+filesz > uint64(len(image)) {
			return ExecResult{}, -defs.ENOEXEC
		}
		if err := as.K2user(image[p.Off:p.Off+filesz], int(p.Vaddr)); err != 0 {
			return ExecResult{}, err
		}
		if p.Off == 0 {
			fileHdrAddr = uint32(p.Vaddr)
		}
	}

	base := stackTop() - uint32(stackSize)
	as.Vmadd_anon(int(base), stackSize, vm.PTE_U|vm.PTE_W)
	esp := stackTop()

	envpU := make([]uint32, len(envp)+1)
	for i, e := range envp {
		if err := pushCstr(as, &esp, e); err != 0 {
			return ExecResult{}, err
		}
		envpU[i] = esp
	}
	argvU := make([]uint32, len(argv)+1)
	for i, a := range argv {
		if err := pushCstr(as, &esp, a); err != 0 {
			return ExecResult{}, err
		}
		argvU[i] = esp
	}

	// No hardware RNG is modeled in this hosted port (the original reads
	// rdrand); AT_RANDOM still points at 16 stack words, just zeroed ones.
	if err := pushU32Array(as, &esp, make([]uint32, 16)); err != 0 {
		return ExecResult{}, err
	}
	randPtr := esp
	esp &^= 0xf

	auxv := []struct{ typ, val uint32 }{
		{atNull, 0},
		{atUid, 0},
		{atEuid, 0},
		{atGid, 0},
		{atEgid, 0},
		{atRandom, randPtr},
		{atPhdr, fileHdrAddr + 52}, // sizeof(Elf32_Ehdr)
		{atPhent, 32},              // sizeof(Elf32_Phdr)
		{atPhnum, uint32(len(ef.Progs))},
		{atBase, fileHdrAddr},
		{atEntry, uint32(ef.Entry)},
		{atPagesz, uint32(mem.PGSIZE)},
		{atHwcap, 0},
	}
	for _, a := range auxv {
		if err := pushU32Array(as, &esp, []uint32{a.typ, a.val}); err != 0 {
			return ExecResult{}, err
		}
	}

	if err := pushU32Array(as, &esp, envpU); err != 0 {
		return ExecResult{}, err
	}
	if err := pushU32Array(as, &esp, argvU); err != 0 {
		return ExecResult{}, err
	}
	if err := pushU32Array(as, &esp, []uint32{uint32(len(argv))}); err != 0 {
		return ExecResult{}, err
	}

	return ExecResult{Entry: uint32(ef.Entry), Esp: esp}, 0
}

func pushRaw(as *vm.Vm_t, esp *uint32, data []byte) defs.Err_t {
	*esp -= uint32(len(data))
	return as.K2user(data, int(*esp))
}

func pushCstr(as *vm.Vm_t, esp *uint32, s ustr.Ustr) defs.Err_t {
	return pushRaw(as, esp, append(append([]byte{}, s...), 0))
}

func pushU32Array(as *vm.Vm_t, esp *uint32, arr []uint32) defs.Err_t {
	b := make([]byte, 4*len(arr))
	for i, v := range arr {
		binary.LittleEndian.PutUint32(b[i*4:], v)
	}
	return pushRaw(as, esp, b)
}
