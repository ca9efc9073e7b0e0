package fs

import (
	"sync"

	"corekernel/defs"
)

// Itype_t enumerates what an inode represents, mirroring the type nibble
// of defs' S_IFMT file-mode bits.
type Itype_t int

const (
	I_FILE Itype_t = iota
	I_DIR
	I_DEV
)

// Inode_t is the in-memory inode: every VFS object (regular file,
// directory, device node) is one of these. An inode carries a link count
// (Nlink) but no reference count.
//
// A full on-disk inode layout (indirect blocks, bitmap-backed free list)
// is exactly what fs/blk.go's Bdev_block_t/Disk_i contract exists to
// support, but no on-disk driver in this repo needs write durability --
// the concrete filesystems (initrd's two superblock flavours) are
// read-only collaborators -- so Inode_t keeps its data in memory and the
// block-cache types stay reserved for a future persistent driver.
type Inode_t struct {
	sync.Mutex
	Ino   int
	Itype Itype_t
	Nlink int
	Major int
	Minor int

	data     []byte
	children map[string]int // directory: name -> child inode number
}

// Size reports the inode's apparent size in bytes: data length for a
// regular file; for a directory, its entry count rounded up to whole
// NDIRENTS-entry blocks, times BSIZE.
func (ip *Inode_t) Size() int {
	ip.Lock()
	defer ip.Unlock()
	if ip.Itype == I_DIR {
		return ((len(ip.children) + NDIRENTS - 1) / NDIRENTS) * BSIZE
	}
	return len(ip.data)
}

// Lookup resolves name within a directory inode, spec.md §4.7's
// inode->lookup.
func (ip *Inode_t) Lookup(name string) (int, defs.Err_t) {
	ip.Lock()
	defer ip.Unlock()
	if ip.Itype != I_DIR {
		return 0, -defs.ENOTDIR
	}
	ino, ok := ip.children[name]
	if !ok {
		return 0, -defs.ENOENT
	}
	return ino, 0
}

// Link records name -> child in a directory inode.
func (ip *Inode_t) Link(name string, child int) defs.Err_t {
	ip.Lock()
	defer ip.Unlock()
	if ip.Itype != I_DIR {
		return -defs.ENOTDIR
	}
	if _, ok := ip.children[name]; ok {
		return -defs.EEXIST
	}
	if ip.children == nil {
		ip.children = make(map[string]int)
	}
	ip.children[name] = child
	return 0
}

// Unlink removes name from a directory inode.
func (ip *Inode_t) Unlink(name string) defs.Err_t {
	ip.Lock()
	defer ip.Unlock()
	if ip.Itype != I_DIR {
		return -defs.ENOTDIR
	}
	if _, ok := ip.children[name]; !ok {
		return -defs.ENOENT
	}
	delete(ip.children, name)
	return 0
}

// Readdir fills entries in directory iteration order; fill returns true to
// stop early. Mirrors spec.md §4.7's iterator-style readdir contract.
func (ip *Inode_t) Readdir(fill func(name string, ino int) bool) {
	ip.Lock()
	defer ip.Unlock()
	for name, ino := range ip.children {
		if fill(name, ino) {
			return
		}
	}
}

// Truncate resizes a regular file's data, zero-extending on growth.
func (ip *Inode_t) Truncate(size int) defs.Err_t {
	ip.Lock()
	defer ip.Unlock()
	if ip.Itype != I_FILE {
		return -defs.EISDIR
	}
	if size <= len(ip.data) {
		ip.data = ip.data[:size]
		return 0
	}
	grown := make([]byte, size)
	copy(grown, ip.data)
	ip.data = grown
	return 0
}

// Readat copies up to len(dst) bytes starting at off into dst.
func (ip *Inode_t) Readat(dst []byte, off int) int {
	ip.Lock()
	defer ip.Unlock()
	if off >= len(ip.data) {
		return 0
	}
	return copy(dst, ip.data[off:])
}

// Writeat writes src at off, growing the file if necessary.
func (ip *Inode_t) Writeat(src []byte, off int) {
	ip.Lock()
	defer ip.Unlock()
	end := off + len(src)
	if end > len(ip.data) {
		grown := make([]byte, end)
		copy(grown, ip.data)
		ip.data = grown
	}
	copy(ip.data[off:end], src)
}

// Mode reports the S_IFMT-tagged mode bits for stat.
func (ip *Inode_t) Mode(perm uint) uint {
	switch ip.Itype {
	case I_DIR:
		return defs.S_IFDIR | perm
	case I_DEV:
		return defs.S_IFCHR | perm
	default:
		return defs.S_IFREG | perm
	}
}
