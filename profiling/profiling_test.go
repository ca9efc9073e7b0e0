package profiling

import (
	"bytes"
	"testing"

	"corekernel/defs"
)

type sliceUio struct {
	buf []byte
	cap int
}

func (s *sliceUio) Uioread(dst []byte) (int, defs.Err_t) { return 0, 0 }
func (s *sliceUio) Uiowrite(src []byte) (int, defs.Err_t) {
	s.buf = append(s.buf, src...)
	return len(src), 0
}
func (s *sliceUio) Remain() int  { return s.cap }
func (s *sliceUio) Totalsz() int { return s.cap }

func TestSamplerTalliesByEip(t *testing.T) {
	s := NewSampler()
	s.Record(0x1000)
	s.Record(0x1000)
	s.Record(0x2000)

	if s.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", s.Len())
	}
	p := s.Snapshot()
	if len(p.Location) != 2 {
		t.Fatalf("expected 2 distinct locations, got %d", len(p.Location))
	}
	var total int64
	for _, smp := range p.Sample {
		total += smp.Value[0]
	}
	if total != 3 {
		t.Fatalf("expected sample values to sum to 3, got %d", total)
	}
}

func TestSamplerResetClearsCounts(t *testing.T) {
	s := NewSampler()
	s.Record(0x1000)
	s.Reset()
	if s.Len() != 0 {
		t.Fatalf("expected 0 samples after reset, got %d", s.Len())
	}
	if len(s.Snapshot().Sample) != 0 {
		t.Fatal("expected an empty snapshot after reset")
	}
}

func TestDevReadServesGzippedProfile(t *testing.T) {
	s := NewSampler()
	s.Record(0xdead)
	d := NewDev(s)

	dst := &sliceUio{cap: 4096}
	n, err := d.Read(dst, -1)
	if err != 0 {
		t.Fatalf("read: %d", err)
	}
	if n == 0 {
		t.Fatal("expected a nonempty serialized profile")
	}
	// gzip magic bytes, since profile.Write always gzips its protobuf output.
	if !bytes.HasPrefix(dst.buf, []byte{0x1f, 0x8b}) {
		t.Fatalf("expected gzip magic prefix, got %x", dst.buf[:2])
	}
}

func TestDevReopenRefreshesSnapshot(t *testing.T) {
	s := NewSampler()
	s.Record(0x1)
	d := NewDev(s)

	first := &sliceUio{cap: 4096}
	if _, err := d.Read(first, -1); err != 0 {
		t.Fatalf("first read: %d", err)
	}

	s.Record(0x2)
	stale := &sliceUio{cap: 4096}
	if _, err := d.Read(stale, 0); err != 0 {
		t.Fatalf("stale read: %d", err)
	}
	if !bytes.Equal(first.buf, stale.buf) {
		t.Fatal("expected cached serialization to ignore new samples before Reopen")
	}

	if err := d.Reopen(); err != 0 {
		t.Fatalf("reopen: %d", err)
	}
	fresh := &sliceUio{cap: 4096}
	if _, err := d.Read(fresh, -1); err != 0 {
		t.Fatalf("fresh read: %d", err)
	}
	if bytes.Equal(first.buf, fresh.buf) {
		t.Fatal("expected a different serialization after Reopen picked up the new sample")
	}
}

func TestDevSeekEndThenReadIsEmpty(t *testing.T) {
	s := NewSampler()
	s.Record(0x1)
	d := NewDev(s)

	warm := &sliceUio{cap: 4096}
	if _, err := d.Read(warm, -1); err != 0 {
		t.Fatalf("warm read: %d", err)
	}

	pos, err := d.Seek(0, defs.SEEK_END)
	if err != 0 {
		t.Fatalf("seek: %d", err)
	}
	if pos != len(d.buf) {
		t.Fatalf("expected seek to land at buffer end %d, got %d", len(d.buf), pos)
	}
	dst := &sliceUio{cap: 16}
	n, rerr := d.Read(dst, -1)
	if rerr != 0 || n != 0 {
		t.Fatalf("expected 0 bytes at eof, got n=%d err=%d", n, rerr)
	}
}
