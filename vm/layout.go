package vm

// Address-space layout constants for the 32-bit split this kernel targets:
// the top quarter of the 4 GiB virtual address space is mapped
// kernel-global (shared, identical in every page directory); everything
// below KERNBASE is private per-task user space.
const (
	KERNBASE = 0xc0000000 // top 1 GiB reserved for the kernel
	USERMIN  = 0x00001000 // page zero stays unmapped to catch null derefs
)
