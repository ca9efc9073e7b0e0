package proc

import (
	"encoding/binary"

	"testing"

	"corekernel/defs"
	"corekernel/mem"
	"corekernel/ustr"
)

// buildElf32 assembles a minimal, syntactically valid 32-bit little-endian
// ET_EXEC image with a single PT_LOAD segment holding code, for exercising
// Execve without a real toolchain-built binary.
func buildElf32(entry, vaddr uint32, code []byte) []byte {
	const ehsize = 52
	const phentsize = 32
	phoff := uint32(ehsize)
	segOff := phoff + phentsize

	buf := make([]byte, segOff+uint32(len(code)))
	buf[0] = 0x7f
	copy(buf[1:4], "ELF")
	buf[4] = 1 // ELFCLASS32
	buf[5] = 1 // ELFDATA2LSB
	buf[6] = 1 // EV_CURRENT
	binary.LittleEndian.PutUint16(buf[16:], 2)  // ET_EXEC
	binary.LittleEndian.PutUint16(buf[18:], 3)  // EM_386
	binary.LittleEndian.PutUint32(buf[20:], 1)  // e_version
	binary.LittleEndian.PutUint32(buf[24:], entry)
	binary.LittleEndian.PutUint32(buf[28:], phoff)
	binary.LittleEndian.PutUint16(buf[40:], ehsize)
	binary.LittleEndian.PutUint16(buf[42:], phentsize)
	binary.LittleEndian.PutUint16(buf[44:], 1) // e_phnum

	ph := buf[phoff:]
	binary.LittleEndian.PutUint32(ph[0:], 1) // PT_LOAD
	binary.LittleEndian.PutUint32(ph[4:], segOff)
	binary.LittleEndian.PutUint32(ph[8:], vaddr)
	binary.LittleEndian.PutUint32(ph[12:], vaddr)
	binary.LittleEndian.PutUint32(ph[16:], uint32(len(code)))
	binary.LittleEndian.PutUint32(ph[20:], uint32(len(code)))
	binary.LittleEndian.PutUint32(ph[24:], 5) // PF_R | PF_X
	binary.LittleEndian.PutUint32(ph[28:], 0x1000)

	copy(buf[segOff:], code)
	return buf
}

func TestExecveRichLoadsSegmentAndSetsEntry(t *testing.T) {
	mem.Physmem = &mem.Physmem_t{}
	mem.Phys_init(512, 0)

	t1 := NewTask(1, defs.ABI_RICH)
	code := []byte{0x90, 0x90, 0xc3}
	img := buildElf32(0x9000, 0x9000, code)

	res, err := Execve(t1, img, []ustr.Ustr{ustr.MkUstrSlice([]byte("prog"))}, nil)
	if err != 0 {
		t.Fatalf("Execve: %d", err)
	}
	if res.Entry != 0x9000 {
		t.Fatalf("expected entry 0x9000, got 0x%x", res.Entry)
	}
	if t1.Aspace == nil {
		t.Fatal("expected a new address space installed")
	}

	got := make([]byte, len(code))
	if err := t1.Aspace.User2k(got, 0x9000); err != 0 {
		t.Fatalf("readback failed: %d", err)
	}
	for i := range code {
		if got[i] != code[i] {
			t.Fatalf("segment content mismatch at %d: got %d want %d", i, got[i], code[i])
		}
	}
}

func TestExecveRejectsNonElf(t *testing.T) {
	mem.Physmem = &mem.Physmem_t{}
	mem.Phys_init(512, 0)
	t1 := NewTask(1, defs.ABI_RICH)

	_, err := Execve(t1, []byte("not an elf"), nil, nil)
	if err != -defs.ENOEXEC {
		t.Fatalf("expected ENOEXEC, got %d", err)
	}
}

func TestExecveLegacyReadsEntryFromHeaderOffset(t *testing.T) {
	mem.Physmem = &mem.Physmem_t{}
	mem.Phys_init(512, 0)
	t1 := NewTask(1, defs.ABI_LEGACY)

	code := []byte{0x90}
	img := buildElf32(0x8048000, 0x8048000, code)

	res, err := Execve(t1, img, []ustr.Ustr{ustr.MkUstrSlice([]byte("ls")), ustr.MkUstrSlice([]byte("-l"))}, nil)
	if err != 0 {
		t.Fatalf("Execve: %d", err)
	}
	if res.Entry != binary.LittleEndian.Uint32(img[24:28]) {
		t.Fatalf("expected entry read back from offset 24, got 0x%x", res.Entry)
	}
	if res.Esp != ece391PageAddr+uint32(ece391ImageLen) {
		t.Fatalf("expected esp at top of the flat-mapped page, got 0x%x", res.Esp)
	}
}
