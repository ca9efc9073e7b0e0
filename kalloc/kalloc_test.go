package kalloc

import (
	"testing"

	"corekernel/mem"
)

func freshPhysmem(npages int) *mem.Physmem_t {
	mem.Physmem = &mem.Physmem_t{}
	return mem.Phys_init(npages, 0)
}

func TestAllocReturnsZeroedObject(t *testing.T) {
	phys := freshPhysmem(4)
	var a Allocator_t
	a.Init(phys, 64)

	b := a.Alloc()
	if b == nil {
		t.Fatal("expected allocation to succeed")
	}
	if len(b) != 64 {
		t.Fatalf("got %d bytes", len(b))
	}
	for _, c := range b {
		if c != 0 {
			t.Fatal("expected zeroed object")
		}
	}
}

func TestFreeThenAllocReuses(t *testing.T) {
	phys := freshPhysmem(4)
	var a Allocator_t
	a.Init(phys, 64)

	b := a.Alloc()
	b[0] = 0xff
	a.Free(b)

	if a.Nframes() != 1 {
		t.Fatalf("expected 1 frame claimed, got %d", a.Nframes())
	}

	b2 := a.Alloc()
	if b2[0] != 0 {
		t.Fatal("expected reused object to be zeroed")
	}
	if a.Nframes() != 1 {
		t.Fatalf("expected no new frame claimed on reuse, got %d", a.Nframes())
	}
}

func TestRefillClaimsNewFrameWhenExhausted(t *testing.T) {
	phys := freshPhysmem(4)
	var a Allocator_t
	a.Init(phys, mem.PGSIZE)

	a.Alloc()
	if a.Nframes() != 1 {
		t.Fatalf("expected 1 frame, got %d", a.Nframes())
	}
	a.Alloc()
	if a.Nframes() != 2 {
		t.Fatalf("expected 2 frames, got %d", a.Nframes())
	}
}

func TestAllocFailsWhenPageAllocatorExhausted(t *testing.T) {
	phys := freshPhysmem(1)
	var a Allocator_t
	a.Init(phys, mem.PGSIZE)

	if a.Alloc() == nil {
		t.Fatal("expected first alloc to succeed")
	}
	if a.Alloc() != nil {
		t.Fatal("expected second alloc to fail: page allocator exhausted")
	}
}
