package initrd

import (
	"testing"

	"corekernel/defs"
)

// testUstarHeader constructs one 512-byte USTAR header record for a
// regular file of the given name and content size.
func testUstarHeader(name string, typ byte, size int) []byte {
	h := make([]byte, sectorSize)
	copy(h[0:100], name)
	copy(h[124:136], sizeField(size))
	h[156] = typ
	copy(h[257:263], "ustar")
	return h
}

// buildUstarArchive lays out name/content pairs sequentially, each padded
// to a whole number of sectors, terminated by a final all-zero sector.
func buildUstarArchive(files map[string]string) []byte {
	var out []byte
	for name, content := range files {
		out = append(out, testUstarHeader(name, typeReg, len(content))...)
		data := make([]byte, sizeToSectors(len(content))*sectorSize-sectorSize)
		copy(data, content)
		out = append(out, data...)
	}
	out = append(out, make([]byte, sectorSize)...) // terminating zero header
	return out
}

func TestUstarLookupAndRead(t *testing.T) {
	raw := buildUstarArchive(map[string]string{"greeting.txt": "hello ustar"})
	arc := ParseUstarArchive(raw)

	f, err := arc.Open("greeting.txt")
	if err != 0 {
		t.Fatalf("open: %d", err)
	}
	dst := &sliceUio{cap: len("hello ustar")}
	n, rerr := f.Read(dst, -1)
	if rerr != 0 || n != len("hello ustar") {
		t.Fatalf("read: n=%d err=%d", n, rerr)
	}
	if string(dst.buf) != "hello ustar" {
		t.Fatalf("got %q", dst.buf)
	}
}

func TestUstarLookupMissingIsENOENT(t *testing.T) {
	arc := ParseUstarArchive(buildUstarArchive(map[string]string{"a": "x"}))
	if _, err := arc.Lookup("missing"); err != -defs.ENOENT {
		t.Fatalf("expected ENOENT, got %d", err)
	}
}

func TestUstarReaddirListsRootEntries(t *testing.T) {
	arc := ParseUstarArchive(buildUstarArchive(map[string]string{
		"one.txt": "1",
		"two.txt": "22",
	}))
	seen := map[string]bool{}
	arc.Readdir("", func(name string, typ byte) bool {
		seen[name] = true
		return false
	})
	if !seen["one.txt"] || !seen["two.txt"] {
		t.Fatalf("expected both entries listed, got %v", seen)
	}
}

func TestUstarSeekPastEndIsEINVAL(t *testing.T) {
	arc := ParseUstarArchive(buildUstarArchive(map[string]string{"a.txt": "abc"}))
	f, _ := arc.Open("a.txt")
	if _, err := f.Seek(100, defs.SEEK_SET); err != -defs.EINVAL {
		t.Fatalf("expected EINVAL, got %d", err)
	}
}
