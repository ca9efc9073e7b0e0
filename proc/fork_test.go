package proc

import (
	"testing"

	"corekernel/defs"
	"corekernel/fd"
	"corekernel/fdops"
	"corekernel/mem"
	"corekernel/vm"
)

func freshAspace(t *testing.T) *vm.Vm_t {
	t.Helper()
	mem.Physmem = &mem.Physmem_t{}
	mem.Phys_init(256, 0)
	pd, p_pd, ok := mem.Physmem.Pmap_new()
	if !ok {
		t.Fatal("pmap alloc failed")
	}
	return &vm.Vm_t{Pmap: pd, P_pmap: p_pd}
}

type fakeFops struct {
	reopened int
}

func (f *fakeFops) Close() defs.Err_t  { return 0 }
func (f *fakeFops) Reopen() defs.Err_t { f.reopened++; return 0 }
func (f *fakeFops) Read(dst fdops.Userio_i, offset int) (int, defs.Err_t)  { return 0, 0 }
func (f *fakeFops) Write(src fdops.Userio_i, offset int) (int, defs.Err_t) { return 0, 0 }
func (f *fakeFops) Seek(off int, whence int) (int, defs.Err_t)             { return off, 0 }
func (f *fakeFops) Readdir(fill fdops.DirentFiller, offset int) (int, defs.Err_t) {
	return 0, 0
}
func (f *fakeFops) Ioctl(cmd int, arg int) (int, defs.Err_t) { return 0, 0 }
func (f *fakeFops) Pollone(pm fdops.Pollmsg_t) (fdops.Ready_t, defs.Err_t) {
	return 0, 0
}

func TestCloneDeepCopiesAddressSpaceByDefault(t *testing.T) {
	parent := NewTask(1, defs.ABI_RICH)
	parent.Aspace = freshAspace(t)
	parent.Aspace.Vmadd_anon(vm.USERMIN, mem.PGSIZE, vm.PTE_U|vm.PTE_W)

	child, err := Clone(parent, 0)
	if err != 0 {
		t.Fatalf("Clone: %d", err)
	}
	if child.Aspace == parent.Aspace {
		t.Fatal("expected a distinct address space without CLONE_VM")
	}
	if child.Ppid != parent.Pid {
		t.Fatalf("expected child ppid %d, got %d", parent.Pid, child.Ppid)
	}
}

func TestCloneSharesAddressSpaceWithCloneVm(t *testing.T) {
	parent := NewTask(1, defs.ABI_RICH)
	parent.Aspace = freshAspace(t)

	child, err := Clone(parent, CLONE_VM)
	if err != 0 {
		t.Fatalf("Clone: %d", err)
	}
	if child.Aspace != parent.Aspace {
		t.Fatal("expected CLONE_VM to share the address space")
	}
}

func TestCloneDuplicatesDescriptorTableByDefault(t *testing.T) {
	parent := NewTask(1, defs.ABI_RICH)
	parent.Aspace = freshAspace(t)
	ops := &fakeFops{}
	n := parent.AddFd(&fd.Fd_t{Fops: ops, Perms: fd.FD_READ})

	child, err := Clone(parent, 0)
	if err != 0 {
		t.Fatalf("Clone: %d", err)
	}
	cf, ok := child.GetFd(n)
	if !ok {
		t.Fatal("expected descriptor to carry over to child")
	}
	pf, _ := parent.GetFd(n)
	if cf == pf {
		t.Fatal("expected a distinct *Fd_t without CLONE_FILES")
	}
	if ops.reopened != 1 {
		t.Fatalf("expected Reopen called once, got %d", ops.reopened)
	}
}

func TestCloneSharesDescriptorTableWithCloneFiles(t *testing.T) {
	parent := NewTask(1, defs.ABI_RICH)
	parent.Aspace = freshAspace(t)
	ops := &fakeFops{}
	n := parent.AddFd(&fd.Fd_t{Fops: ops, Perms: fd.FD_READ})

	child, err := Clone(parent, CLONE_FILES)
	if err != 0 {
		t.Fatalf("Clone: %d", err)
	}
	cf, _ := child.GetFd(n)
	pf, _ := parent.GetFd(n)
	if cf != pf {
		t.Fatal("expected CLONE_FILES to share the same *Fd_t")
	}
	if ops.reopened != 0 {
		t.Fatalf("expected no Reopen with CLONE_FILES, got %d", ops.reopened)
	}
}

func TestCloneCopiesSignalDispositions(t *testing.T) {
	parent := NewTask(1, defs.ABI_RICH)
	parent.Aspace = freshAspace(t)
	parent.SetHandler(defs.SIGUSR1, 0x1000)

	child, err := Clone(parent, 0)
	if err != 0 {
		t.Fatalf("Clone: %d", err)
	}
	if child.Sigactions[defs.SIGUSR1] != defs.SIG_FN || child.HandlerAddrs[defs.SIGUSR1] != 0x1000 {
		t.Fatal("expected signal disposition table copied to child")
	}
}

func TestCloneMakesChildRunnable(t *testing.T) {
	parent := NewTask(1, defs.ABI_RICH)
	parent.Aspace = freshAspace(t)
	child, err := Clone(parent, 0)
	if err != 0 {
		t.Fatalf("Clone: %d", err)
	}
	if !Runnable(child) {
		t.Fatal("expected the new child on the runqueue")
	}
}
