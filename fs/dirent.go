package fs

import "corekernel/ustr"

// Each directory entry is a fixed DIRENTSZ-byte record: a NUL-padded name
// followed by a little-endian uint32 inode number. NDIRENTS of them fill
// one BSIZE block, matching the fixed-size-dentry layout ufs.go's Ls reads
// with fs.Dirdata_t/fs.NDIRENTS.
const (
	DIRENTSZ = 64
	NDIRENTS = BSIZE / DIRENTSZ
	maxName  = DIRENTSZ - 4
)

// Dirdata_t views a raw block buffer as an array of directory entries.
type Dirdata_t struct {
	Data []uint8
}

func (dd *Dirdata_t) off(n int) int { return n * DIRENTSZ }

// Filename returns the NUL-terminated name stored in slot n, or an empty
// Ustr if the slot is unused.
func (dd *Dirdata_t) Filename(n int) ustr.Ustr {
	o := dd.off(n)
	return ustr.MkUstrSlice(dd.Data[o : o+maxName])
}

// Inodenum returns the inode number stored in slot n.
func (dd *Dirdata_t) Inodenum(n int) int {
	o := dd.off(n) + maxName
	b := dd.Data[o : o+4]
	return int(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}

// SetFilename writes name into slot n, truncating it to fit.
func (dd *Dirdata_t) SetFilename(n int, name ustr.Ustr) {
	o := dd.off(n)
	slot := dd.Data[o : o+maxName]
	for i := range slot {
		slot[i] = 0
	}
	copy(slot, name)
}

// SetInodenum writes the inode number into slot n.
func (dd *Dirdata_t) SetInodenum(n int, ino int) {
	o := dd.off(n) + maxName
	u := uint32(ino)
	dd.Data[o] = uint8(u)
	dd.Data[o+1] = uint8(u >> 8)
	dd.Data[o+2] = uint8(u >> 16)
	dd.Data[o+3] = uint8(u >> 24)
}
