package vm

import (
	"testing"

	"corekernel/mem"
)

func freshAs(t *testing.T) *Vm_t {
	t.Helper()
	mem.Physmem = &mem.Physmem_t{}
	mem.Phys_init(256, 0)
	pd, p_pd, ok := mem.Physmem.Pmap_new()
	if !ok {
		t.Fatal("pmap alloc failed")
	}
	return &Vm_t{Pmap: pd, P_pmap: p_pd}
}

func TestAnonFaultMapsZeroPage(t *testing.T) {
	as := freshAs(t)
	as.Vmadd_anon(USERMIN, mem.PGSIZE, PTE_U)

	buf := make([]byte, 4)
	if err := as.User2k(buf, USERMIN); err != 0 {
		t.Fatalf("read fault failed: %d", err)
	}
	for _, b := range buf {
		if b != 0 {
			t.Fatal("expected zero-filled anon page")
		}
	}
}

func TestWriteFaultPrivatizesCowPage(t *testing.T) {
	as := freshAs(t)
	as.Vmadd_anon(USERMIN, mem.PGSIZE, PTE_U|PTE_W)

	src := []byte{1, 2, 3, 4}
	if err := as.K2user(src, USERMIN); err != 0 {
		t.Fatalf("write fault failed: %d", err)
	}

	as.Lock_pmap()
	pte := Pmap_lookup(as.Pmap, USERMIN)
	as.Unlock_pmap()
	if pte == nil || *pte&PTE_P == 0 {
		t.Fatal("expected present mapping after write")
	}
	if *pte&PTE_COW != 0 {
		t.Fatal("expected mapping to be privatized, not left CoW")
	}
	phys := *pte & PTE_ADDR
	if mem.Physmem.Refcnt(phys) != 1 {
		t.Fatalf("expected exclusive frame, refcnt=%d", mem.Physmem.Refcnt(phys))
	}

	out := make([]byte, 4)
	if err := as.User2k(out, USERMIN); err != 0 {
		t.Fatalf("readback failed: %d", err)
	}
	for i := range src {
		if out[i] != src[i] {
			t.Fatalf("readback mismatch at %d: got %d want %d", i, out[i], src[i])
		}
	}
}

func TestGuardRegionFaultsWithEfault(t *testing.T) {
	as := freshAs(t)
	as.Vmadd_anon(USERMIN, mem.PGSIZE, 0)

	buf := make([]byte, 4)
	if err := as.User2k(buf, USERMIN); err == 0 {
		t.Fatal("expected guard page fault")
	}
}

func TestUserstrReadsNulTerminated(t *testing.T) {
	as := freshAs(t)
	as.Vmadd_anon(USERMIN, mem.PGSIZE, PTE_U|PTE_W)

	msg := append([]byte("hello"), 0)
	if err := as.K2user(msg, USERMIN); err != 0 {
		t.Fatalf("seed write failed: %d", err)
	}
	s, err := as.Userstr(USERMIN, 64)
	if err != 0 {
		t.Fatalf("userstr failed: %d", err)
	}
	if s.String() != "hello" {
		t.Fatalf("got %q", s.String())
	}
}
