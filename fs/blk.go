// Package fs implements the virtual filesystem core (C10): the
// superblock/inode/file vtables with their default fallbacks, path
// resolution against a mount table, and the (type, major, minor) device
// registry. Regular files, directories and devices all surface through the
// same fdops.Fdops_i contract fd.Fd_t already wraps.
//
// Grounded on fs/blk.go and fs/super.go in the teacher pack -- the only two
// files the retrieved fs package carries -- widened from there to the
// spec's full inode-operations contract (the rest of the teacher's fs
// package, e.g. the log-structured superblock, was never present in the
// retrieved pack to begin with).
package fs

import (
	"container/list"
	"fmt"
	"sync"

	"corekernel/mem"
)

// bdev_debug gates the verbose block-trace printfs below, carried from the
// teacher's usage of the same name (defined elsewhere in its fuller fs
// package, not present in the retrieved pack).
const bdev_debug = false

// BSIZE is the size of a disk block in bytes. One block is one physical
// page, so the block cache can hand pages straight to Blockmem_i.
const BSIZE = mem.PGSIZE

// Blockmem_i abstracts page allocation for block buffers.
type Blockmem_i interface {
	Alloc() (mem.Pa_t, *mem.Bytepg_t, bool)
	Free(mem.Pa_t)
	Refup(mem.Pa_t)
}

// Block_cb_i is implemented by callers wanting release callbacks.
type Block_cb_i interface {
	Relse(*Bdev_block_t, string)
}

// blktype_t enumerates the types of blocks stored on disk.
type blktype_t int

const (
	DataBlk   blktype_t = 0  // regular data block
	CommitBlk blktype_t = -1 // log commit record
	RevokeBlk blktype_t = -2 // log revoke record
)

// Bdev_block_t represents a cached disk block.
type Bdev_block_t struct {
	sync.Mutex
	Block      int
	Type       blktype_t
	_try_evict bool
	Pa         mem.Pa_t
	Data       *mem.Bytepg_t
	Name       string
	Mem        Blockmem_i
	Disk       Disk_i
	Cb         Block_cb_i
}

// Bdevcmd_t enumerates disk request types.
type Bdevcmd_t uint

const (
	BDEV_WRITE Bdevcmd_t = 1
	BDEV_READ  Bdevcmd_t = 2
	BDEV_FLUSH Bdevcmd_t = 3
)

// BlkList_t wraps a list.List of block pointers.
type BlkList_t struct {
	l *list.List
	e *list.Element
}

// MkBlkList creates an empty block list.
func MkBlkList() *BlkList_t {
	bl := &BlkList_t{}
	bl.l = list.New()
	return bl
}

// Len returns the number of blocks in the list.
func (bl *BlkList_t) Len() int { return bl.l.Len() }

// PushBack appends a block to the list.
func (bl *BlkList_t) PushBack(b *Bdev_block_t) { bl.l.PushBack(b) }

// FrontBlock resets the iterator and returns the first block.
func (bl *BlkList_t) FrontBlock() *Bdev_block_t {
	if bl.l.Front() == nil {
		return nil
	}
	bl.e = bl.l.Front()
	return bl.e.Value.(*Bdev_block_t)
}

// Back returns the last block in the list or nil.
func (bl *BlkList_t) Back() *Bdev_block_t {
	if bl.l.Back() == nil {
		return nil
	}
	return bl.l.Back().Value.(*Bdev_block_t)
}

// NextBlock advances the iterator and returns the next block.
func (bl *BlkList_t) NextBlock() *Bdev_block_t {
	if bl.e == nil {
		return nil
	}
	bl.e = bl.e.Next()
	if bl.e == nil {
		return nil
	}
	return bl.e.Value.(*Bdev_block_t)
}

// Apply calls f for each block in the list.
func (bl *BlkList_t) Apply(f func(*Bdev_block_t)) {
	for b := bl.FrontBlock(); b != nil; b = bl.NextBlock() {
		f(b)
	}
}

// Bdev_req_t describes a block device request.
type Bdev_req_t struct {
	Cmd   Bdevcmd_t
	Blks  *BlkList_t
	AckCh chan bool
	Sync  bool
}

// MkRequest allocates a new block request structure.
func MkRequest(blks *BlkList_t, cmd Bdevcmd_t, sync bool) *Bdev_req_t {
	return &Bdev_req_t{Blks: blks, AckCh: make(chan bool), Cmd: cmd, Sync: sync}
}

// Disk_i represents a physical disk interface.
type Disk_i interface {
	Start(*Bdev_req_t) bool
	Stats() string
}

// Key returns the lookup key for the block cache.
func (blk *Bdev_block_t) Key() int { return blk.Block }

// Write synchronously writes the block to disk.
func (b *Bdev_block_t) Write() {
	if bdev_debug {
		fmt.Printf("bdev_write %v %v\n", b.Block, b.Name)
	}
	l := MkBlkList()
	l.PushBack(b)
	req := MkRequest(l, BDEV_WRITE, true)
	if b.Disk.Start(req) {
		<-req.AckCh
	}
}

// Read reads the block from disk synchronously.
func (b *Bdev_block_t) Read() {
	l := MkBlkList()
	l.PushBack(b)
	req := MkRequest(l, BDEV_READ, true)
	if b.Disk.Start(req) {
		<-req.AckCh
	}
}

// New_page allocates backing memory for the block.
func (blk *Bdev_block_t) New_page() {
	pa, d, ok := blk.Mem.Alloc()
	if !ok {
		panic("oom during bdev.new_page")
	}
	blk.Pa = pa
	blk.Data = d
}

// MkBlock_newpage allocates a block and backing page.
func MkBlock_newpage(block int, s string, m Blockmem_i, d Disk_i, cb Block_cb_i) *Bdev_block_t {
	b := MkBlock(block, s, m, d, cb)
	b.New_page()
	return b
}

// MkBlock constructs a block without allocating memory.
func MkBlock(block int, s string, m Blockmem_i, d Disk_i, cb Block_cb_i) *Bdev_block_t {
	return &Bdev_block_t{Block: block, Mem: m, Disk: d, Cb: cb}
}

// Free_page releases the page backing the block.
func (blk *Bdev_block_t) Free_page() {
	blk.Mem.Free(blk.Pa)
}
