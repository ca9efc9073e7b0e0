package profiling

import (
	"bytes"

	"corekernel/defs"
	"corekernel/fdops"
)

// Dev adapts a Sampler to the D_PROF device's read-only byte-stream
// contract. Each Reopen discards the previously serialized snapshot so the
// next Read reflects samples recorded since, matching ufs device nodes'
// "reopen gets a fresh view" convention.
type Dev struct {
	s   *Sampler
	buf []byte
	pos int
}

var _ fdops.Fdops_i = (*Dev)(nil)

// NewDev wraps s as a device; serialization happens lazily on first Read.
func NewDev(s *Sampler) *Dev {
	return &Dev{s: s}
}

func (d *Dev) Close() defs.Err_t { return 0 }

// Reopen drops the cached serialization, so the next Read re-snapshots s.
func (d *Dev) Reopen() defs.Err_t {
	d.buf = nil
	d.pos = 0
	return 0
}

// Read serializes (on first call) s's current snapshot as a gzipped pprof
// profile and copies up to dst's capacity starting at the device's cursor,
// exactly as initrd's Ece391Dev.Read clamps against its backing image.
func (d *Dev) Read(dst fdops.Userio_i, offset int) (int, defs.Err_t) {
	if d.buf == nil {
		var b bytes.Buffer
		if err := d.s.Snapshot().Write(&b); err != nil {
			return 0, -defs.EIO
		}
		d.buf = b.Bytes()
	}

	off := d.pos
	if offset >= 0 {
		off = offset
	}
	if off >= len(d.buf) {
		return 0, 0
	}
	max := len(d.buf) - off
	want := dst.Remain()
	if want > max {
		want = max
	}
	n, err := dst.Uiowrite(d.buf[off : off+want])
	if err != 0 {
		return n, err
	}
	if offset < 0 {
		d.pos += n
	}
	return n, 0
}

// Write is unsupported; the device is read-only.
func (d *Dev) Write(src fdops.Userio_i, offset int) (int, defs.Err_t) {
	return 0, -defs.EROFS
}

func (d *Dev) Seek(off int, whence int) (int, defs.Err_t) {
	var newpos int
	switch whence {
	case defs.SEEK_SET:
		newpos = off
	case defs.SEEK_CUR:
		newpos = d.pos + off
	case defs.SEEK_END:
		newpos = len(d.buf) + off
	default:
		return 0, -defs.EINVAL
	}
	if newpos < 0 {
		return 0, -defs.EINVAL
	}
	d.pos = newpos
	return newpos, 0
}

func (d *Dev) Readdir(fill fdops.DirentFiller, offset int) (int, defs.Err_t) {
	return 0, -defs.ENOTDIR
}

func (d *Dev) Ioctl(cmd int, arg int) (int, defs.Err_t) {
	return 0, -defs.ENOTTY
}

func (d *Dev) Pollone(pm fdops.Pollmsg_t) (fdops.Ready_t, defs.Err_t) {
	return pm.Events & fdops.R_READ, 0
}
