// Package initrd implements the two interchangeable read-only filesystem
// image readers spec.md's Design Notes call out ("There are two distinct
// implementations of the TTY and the initrd reader... an implementer
// should choose one and apply it consistently") -- this repo keeps both
// behind the same fdops.Fdops_i contract: the ECE391 bootblock image
// (Scenario S1's raw block-device reader) and a USTAR archive reader.
//
// Grounded on original_source/src/block/initrd.c (the ECE391 flavour) and
// original_source/student-distrib/fs/ustar.c (the USTAR flavour).
package initrd

import (
	"corekernel/defs"
	"corekernel/fdops"
)

// Ece391Dev exposes a raw ECE391 bootblock-format image as a block device
// (major INITRD_DEV_MAJOR), matching original_source/src/block/initrd.c's
// initrd_read/initrd_seek byte-for-byte: Read and Seek operate directly on
// the image bytes with no inode or path layer in between, exactly as
// Scenario S1 requires ("Open device (major=1, minor=0) as block device,
// read 16 bytes from offset 0...").
const INITRD_DEV_MAJOR = 1

// Ece391Dev wraps an in-memory image of an ECE391-format filesystem: a
// bootblock header (num_dir_entries, num_inodes, num_data_blocks, each a
// little-endian uint32, followed by 52 reserved zero bytes) followed by
// directory-entry, inode and data blocks. Only the bootblock header and
// raw byte access are implemented here; Scenario S1 never resolves a path
// through it.
type Ece391Dev struct {
	image []byte
	pos   int
}

var _ fdops.Fdops_i = (*Ece391Dev)(nil)

// NewEce391Dev wraps image, the full bytes of an ECE391 filesystem image
// (conventionally 0x7c000 bytes, per Scenario S1).
func NewEce391Dev(image []byte) *Ece391Dev {
	return &Ece391Dev{image: image}
}

// MkEce391Bootblock builds a minimal bootblock header: dirEntries inodes
// datablocks packed as three little-endian uint32 fields followed by 52
// zero bytes, matching the 64-byte ECE391 bootblock layout.
func MkEce391Bootblock(dirEntries, inodes, datablocks uint32) []byte {
	buf := make([]byte, 64)
	putLE32(buf[0:4], dirEntries)
	putLE32(buf[4:8], inodes)
	putLE32(buf[8:12], datablocks)
	return buf
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// Close is a no-op; the image is held entirely in memory.
func (d *Ece391Dev) Close() defs.Err_t { return 0 }

// Reopen duplicates nothing: the device holds the image and a single
// cursor, and every descriptor copied from it shares both.
func (d *Ece391Dev) Reopen() defs.Err_t { return 0 }

// Read copies up to dst's capacity starting at the device's current
// cursor (or explicit offset when not -1), clamped to the image's extent
// exactly as initrd_read clamps nbytes to metadata->size - file->pos.
func (d *Ece391Dev) Read(dst fdops.Userio_i, offset int) (int, defs.Err_t) {
	off := d.pos
	if offset >= 0 {
		off = offset
	}
	if off >= len(d.image) {
		return 0, 0
	}
	max := len(d.image) - off
	want := dst.Remain()
	if want > max {
		want = max
	}
	n, err := dst.Uiowrite(d.image[off : off+want])
	if err != 0 {
		return n, err
	}
	if offset < 0 {
		d.pos += n
	}
	return n, 0
}

// Write is unsupported; the image is read-only.
func (d *Ece391Dev) Write(src fdops.Userio_i, offset int) (int, defs.Err_t) {
	return 0, -defs.EROFS
}

// Seek repositions the cursor, rejecting any position at or beyond the
// image's size or below zero -- a direct port of initrd_seek's
// "new_pos >= size || new_pos < 0" bounds check.
func (d *Ece391Dev) Seek(off int, whence int) (int, defs.Err_t) {
	var newpos int
	switch whence {
	case defs.SEEK_SET:
		newpos = off
	case defs.SEEK_CUR:
		newpos = d.pos + off
	case defs.SEEK_END:
		newpos = len(d.image) + off
	default:
		return 0, -defs.EINVAL
	}
	if newpos >= len(d.image) || newpos < 0 {
		return 0, -defs.EINVAL
	}
	d.pos = newpos
	return newpos, 0
}

// Readdir is unsupported: this device exposes raw bytes, not a directory.
func (d *Ece391Dev) Readdir(fill fdops.DirentFiller, offset int) (int, defs.Err_t) {
	return 0, -defs.ENOTDIR
}

// Ioctl is unsupported on the raw block device.
func (d *Ece391Dev) Ioctl(cmd int, arg int) (int, defs.Err_t) {
	return 0, -defs.ENOTTY
}

// Pollone reports the device always read-ready (never write-ready, since
// it's read-only).
func (d *Ece391Dev) Pollone(pm fdops.Pollmsg_t) (fdops.Ready_t, defs.Err_t) {
	return pm.Events & fdops.R_READ, 0
}
