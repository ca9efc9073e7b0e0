package fs

import (
	"corekernel/defs"
	"corekernel/fdops"
	"corekernel/ustr"
)

// Fileops_t adapts an Inode_t to fdops.Fdops_i, supplying the VFS-mandated
// default fallbacks spec.md §4.7 calls for: ENOTDIR when Readdir is
// attempted on a non-directory, ESPIPE when Seek is attempted on anything
// but a regular file, and a poll default (Pollone) that reports every
// regular file and directory read-ready and write-ready.
type Fileops_t struct {
	fs     *Fs_t
	ino    *Inode_t
	offset int
	closed bool
}

var _ fdops.Fdops_i = (*Fileops_t)(nil)

// Close marks the descriptor closed; the in-memory inode has nothing to
// flush (unlike the teacher's log-structured on-disk fs).
func (fo *Fileops_t) Close() defs.Err_t {
	fo.closed = true
	return 0
}

// Reopen does nothing: a descriptor copied by fd.Copyfd (dup2, fork) keeps
// pointing at this same Fileops_t, so the copies share one cursor.
func (fo *Fileops_t) Reopen() defs.Err_t {
	return 0
}

// Read copies up to dst's capacity starting at the descriptor's current
// offset (or at the explicit offset, when not -1), advancing the cursor.
func (fo *Fileops_t) Read(dst fdops.Userio_i, offset int) (int, defs.Err_t) {
	if fo.ino.Itype == I_DIR {
		return 0, -defs.EISDIR
	}
	off := fo.offset
	if offset >= 0 {
		off = offset
	}
	buf := make([]byte, dst.Remain())
	n := fo.ino.Readat(buf, off)
	if n == 0 {
		return 0, 0
	}
	wrote, err := dst.Uiowrite(buf[:n])
	if err != 0 {
		return wrote, err
	}
	if offset < 0 {
		fo.offset += wrote
	}
	return wrote, 0
}

// Write copies from src into the inode starting at the descriptor's
// current offset (or the explicit offset, when not -1).
func (fo *Fileops_t) Write(src fdops.Userio_i, offset int) (int, defs.Err_t) {
	if fo.ino.Itype == I_DIR {
		return 0, -defs.EISDIR
	}
	off := fo.offset
	if offset >= 0 {
		off = offset
	}
	buf := make([]byte, src.Remain())
	n, err := src.Uioread(buf)
	if err != 0 {
		return 0, err
	}
	fo.ino.Writeat(buf[:n], off)
	if offset < 0 {
		fo.offset += n
	}
	return n, 0
}

// Seek repositions the descriptor's cursor. Non-regular files get the
// VFS-default ESPIPE; SEEK_END+k for k>0 and SEEK_SET landing exactly on
// the current size both fail EINVAL, per Testable Property 8.
func (fo *Fileops_t) Seek(off int, whence int) (int, defs.Err_t) {
	if fo.ino.Itype != I_FILE {
		return 0, -defs.ESPIPE
	}
	size := fo.ino.Size()
	var newoff int
	switch whence {
	case defs.SEEK_SET:
		newoff = off
	case defs.SEEK_CUR:
		newoff = fo.offset + off
	case defs.SEEK_END:
		newoff = size + off
	default:
		return 0, -defs.EINVAL
	}
	if newoff < 0 {
		return 0, -defs.EINVAL
	}
	if whence == defs.SEEK_END && off > 0 {
		return 0, -defs.EINVAL
	}
	if whence == defs.SEEK_SET && off == size {
		return 0, -defs.EINVAL
	}
	fo.offset = newoff
	return newoff, 0
}

// Readdir fills entries starting at offset; non-directories get the
// VFS-default ENOTDIR.
func (fo *Fileops_t) Readdir(fill fdops.DirentFiller, offset int) (int, defs.Err_t) {
	if fo.ino.Itype != I_DIR {
		return 0, -defs.ENOTDIR
	}
	i := 0
	stopped := 0
	fo.ino.Readdir(func(name string, ino int) bool {
		if i < offset {
			i++
			return false
		}
		i++
		ft := 0
		fo.fs.Lock()
		if child, ok := fo.fs.inodes[ino]; ok {
			ft = int(child.Itype)
		}
		fo.fs.Unlock()
		if fill(ustr.Ustr(name), ino, ft) {
			stopped = 1
			return true
		}
		return false
	})
	return i - offset - stopped, 0
}

// Ioctl is unsupported on plain files and directories; device nodes (tty,
// block devices) supply their own Fdops_i implementation instead of this
// adapter.
func (fo *Fileops_t) Ioctl(cmd int, arg int) (int, defs.Err_t) {
	return 0, -defs.ENOTTY
}

// Pollone implements the VFS default: a regular file or directory is
// always read-ready and write-ready, since neither ever blocks.
func (fo *Fileops_t) Pollone(pm fdops.Pollmsg_t) (fdops.Ready_t, defs.Err_t) {
	return pm.Events & (fdops.R_READ | fdops.R_WRITE), 0
}
