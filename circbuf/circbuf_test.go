package circbuf

import (
	"testing"

	"corekernel/defs"
	"corekernel/mem"
)

func freshPhysmem(npages int) *mem.Physmem_t {
	mem.Physmem = &mem.Physmem_t{}
	return mem.Phys_init(npages, 0)
}

// kbuf is a minimal fdops.Userio_i backed by a plain kernel byte slice, for
// exercising Circbuf_t without a real address space.
type kbuf struct {
	b []uint8
}

func (k *kbuf) Uioread(dst []uint8) (int, defs.Err_t) {
	n := copy(dst, k.b)
	k.b = k.b[n:]
	return n, 0
}

func (k *kbuf) Uiowrite(src []uint8) (int, defs.Err_t) {
	n := copy(k.b, src)
	k.b = k.b[n:]
	return n, 0
}

func (k *kbuf) Remain() int  { return len(k.b) }
func (k *kbuf) Totalsz() int { return len(k.b) }

func TestCopyinCopyoutRoundtrip(t *testing.T) {
	phys := freshPhysmem(4)

	var cb Circbuf_t
	if err := cb.Cb_init(16, phys); err != 0 {
		t.Fatalf("init failed: %d", err)
	}

	src := &kbuf{b: []uint8("hello world")}
	n, err := cb.Copyin(src)
	if err != 0 {
		t.Fatalf("copyin failed: %d", err)
	}
	if n != len("hello world") {
		t.Fatalf("got %d bytes", n)
	}

	out := make([]uint8, 32)
	dst := &kbuf{b: out}
	n2, err := cb.Copyout(dst)
	if err != 0 {
		t.Fatalf("copyout failed: %d", err)
	}
	if string(out[:n2]) != "hello world" {
		t.Fatalf("got %q", out[:n2])
	}
	if !cb.Empty() {
		t.Fatal("expected buffer drained after full copyout")
	}
}

func TestFullAndLeft(t *testing.T) {
	phys := freshPhysmem(4)

	var cb Circbuf_t
	if err := cb.Cb_init(4, phys); err != 0 {
		t.Fatalf("init failed: %d", err)
	}
	src := &kbuf{b: []uint8("abcd")}
	n, err := cb.Copyin(src)
	if err != 0 || n != 4 {
		t.Fatalf("copyin got n=%d err=%d", n, err)
	}
	if !cb.Full() {
		t.Fatal("expected buffer full")
	}
	if cb.Left() != 0 {
		t.Fatalf("expected 0 left, got %d", cb.Left())
	}

	// a full buffer accepts no more bytes
	more := &kbuf{b: []uint8("e")}
	n, err = cb.Copyin(more)
	if err != 0 {
		t.Fatalf("unexpected error: %d", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 bytes accepted into full buffer, got %d", n)
	}
}

func TestCopyoutNLimitsBytes(t *testing.T) {
	phys := freshPhysmem(4)

	var cb Circbuf_t
	if err := cb.Cb_init(16, phys); err != 0 {
		t.Fatalf("init failed: %d", err)
	}
	src := &kbuf{b: []uint8("0123456789")}
	if _, err := cb.Copyin(src); err != 0 {
		t.Fatalf("copyin failed: %d", err)
	}

	dst := &kbuf{b: make([]uint8, 32)}
	n, err := cb.Copyout_n(dst, 3)
	if err != 0 {
		t.Fatalf("copyout_n failed: %d", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 bytes, got %d", n)
	}
	if cb.Used() != 7 {
		t.Fatalf("expected 7 bytes remaining, got %d", cb.Used())
	}
}

func TestSetInstallsExternalBuffer(t *testing.T) {
	phys := freshPhysmem(4)
	_, p_pg, ok := phys.Refpg_new()
	if !ok {
		t.Fatal("alloc failed")
	}
	raw := phys.Dmap(p_pg)
	backing := mem.Pg2bytes(raw)[:8]

	var cb Circbuf_t
	cb.Set(backing, 0, phys)
	if !cb.Empty() {
		t.Fatal("expected empty buffer on Set with head==tail")
	}
	if cb.Bufsz() != 8 {
		t.Fatalf("expected bufsz 8, got %d", cb.Bufsz())
	}
}
