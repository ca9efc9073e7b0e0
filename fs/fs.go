package fs

import (
	"sync"

	"corekernel/bpath"
	"corekernel/defs"
	"corekernel/fd"
	"corekernel/stat"
	"corekernel/ustr"
)

// wildcardMinor lets a device registration match any minor number for a
// given major, per spec.md §4.7's device-registry wildcard rule.
const wildcardMinor = -1

// Fs_t is the virtual filesystem: one mount table entry per mounted
// filesystem (the root always occupies "/"), plus a device registry keyed
// by (major, minor) with wildcard-minor matching, per spec.md §4.7's
// "anonymous open bypasses path resolution" note.
//
// Grounded on ufs/ufs.go's Fs_t call sites (Fs_open/Fs_mkdir/Fs_rename/...)
// -- the only place in the retrieved pack that names this contract, since
// the teacher's own fs package never shipped Fs_t itself.
type Fs_t struct {
	sync.Mutex
	mounts  []*mountpoint_t
	inodes  map[int]*Inode_t
	nextIno int
	root    *Inode_t
}

type mountpoint_t struct {
	path ustr.Ustr
	root *Inode_t
}

// StartFS constructs a filesystem with a single empty root directory
// mounted at "/".
func StartFS() *Fs_t {
	fs := &Fs_t{}
	fs.inodes = make(map[int]*Inode_t)
	fs.nextIno = 1
	fs.root = fs.newInode(I_DIR, 0, 0)
	fs.mounts = []*mountpoint_t{{path: ustr.MkUstrRoot(), root: fs.root}}
	return fs
}

// ShutdownFS releases filesystem resources. The in-memory implementation
// has nothing to flush, unlike the teacher's log-structured disk fs.
func (fs *Fs_t) ShutdownFS() {}

func (fs *Fs_t) newInode(t Itype_t, major, minor int) *Inode_t {
	fs.Lock()
	defer fs.Unlock()
	ip := &Inode_t{Ino: fs.nextIno, Itype: t, Nlink: 1, Major: major, Minor: minor}
	fs.inodes[ip.Ino] = ip
	fs.nextIno++
	return ip
}

// RegisterDevInode creates a device-node inode at major/minor, to be
// linked into the namespace by MkDir+Link (or used directly for an
// anonymous open).
func (fs *Fs_t) RegisterDevInode(major, minor int) *Inode_t {
	return fs.newInode(I_DEV, major, minor)
}

// mountFor returns the mount whose path is the longest prefix of p.
func (fs *Fs_t) mountFor(p ustr.Ustr) *mountpoint_t {
	fs.Lock()
	defer fs.Unlock()
	best := fs.mounts[0]
	bestLen := -1
	for _, m := range fs.mounts {
		mc := m.path.Components()
		pc := p.Components()
		if len(mc) > len(pc) {
			continue
		}
		matched := true
		for i, c := range mc {
			if !c.Eq(pc[i]) {
				matched = false
				break
			}
		}
		if matched && len(mc) > bestLen {
			best = m
			bestLen = len(mc)
		}
	}
	return best
}

// DoMount mounts root at path, shadowing whatever was there before.
func (fs *Fs_t) DoMount(path ustr.Ustr, root *Inode_t) {
	fs.Lock()
	defer fs.Unlock()
	fs.mounts = append(fs.mounts, &mountpoint_t{path: bpath.Canonicalize(path), root: root})
}

// DoUmount removes the most recent mount at path.
func (fs *Fs_t) DoUmount(path ustr.Ustr) defs.Err_t {
	fs.Lock()
	defer fs.Unlock()
	cp := bpath.Canonicalize(path)
	for i := len(fs.mounts) - 1; i >= 0; i-- {
		if fs.mounts[i].path.Eq(cp) {
			fs.mounts = append(fs.mounts[:i], fs.mounts[i+1:]...)
			return 0
		}
	}
	return -defs.EINVAL
}

// resolve walks path components from a mount's root, resolving at most
// the first len(comps)-1 (or all, if all) components, per spec.md §4.7's
// "lookup all but the last component" O_CREAT contract.
func (fs *Fs_t) resolve(path ustr.Ustr, stopBeforeLast bool) (*Inode_t, ustr.Ustr, defs.Err_t) {
	cp := bpath.Canonicalize(path)
	m := fs.mountFor(cp)
	comps := cp.Components()
	// drop the mount-path prefix
	mc := m.path.Components()
	comps = comps[len(mc):]

	cur := m.root
	n := len(comps)
	if stopBeforeLast && n > 0 {
		n--
	}
	for i := 0; i < n; i++ {
		ino, err := cur.Lookup(comps[i].String())
		if err != 0 {
			return nil, ustr.MkUstr(), err
		}
		fs.Lock()
		next, ok := fs.inodes[ino]
		fs.Unlock()
		if !ok {
			return nil, ustr.MkUstr(), -defs.ENOENT
		}
		cur = next
	}
	var last ustr.Ustr
	if stopBeforeLast && len(comps) > 0 {
		last = comps[len(comps)-1]
	}
	return cur, last, 0
}

// Fs_namei resolves path to an inode.
func (fs *Fs_t) Fs_namei(path ustr.Ustr) (*Inode_t, defs.Err_t) {
	return fs.namei(path)
}

func (fs *Fs_t) namei(path ustr.Ustr) (*Inode_t, defs.Err_t) {
	ip, _, err := fs.resolve(path, false)
	return ip, err
}

// Fs_open resolves path and returns its backing inode honoring O_CREAT,
// O_EXCL and O_DIRECTORY, per spec.md §4.7.
func (fs *Fs_t) Fs_open(path ustr.Ustr, flags int, mode uint) (*Inode_t, defs.Err_t) {
	parent, last, err := fs.resolve(path, true)
	if err != 0 {
		return nil, err
	}
	if len(last) == 0 {
		// path resolved to the mount root itself
		if flags&defs.O_DIRECTORY != 0 && parent.Itype != I_DIR {
			return nil, -defs.ENOTDIR
		}
		return parent, 0
	}
	ino, lerr := parent.Lookup(last.String())
	if lerr == 0 {
		if flags&defs.O_CREAT != 0 && flags&defs.O_EXCL != 0 {
			return nil, -defs.EEXIST
		}
		fs.Lock()
		ip := fs.inodes[ino]
		fs.Unlock()
		if flags&defs.O_DIRECTORY != 0 && ip.Itype != I_DIR {
			return nil, -defs.ENOTDIR
		}
		return ip, 0
	}
	if flags&defs.O_CREAT == 0 {
		return nil, -defs.ENOENT
	}
	child := fs.newInode(I_FILE, 0, 0)
	if e := parent.Link(last.String(), child.Ino); e != 0 {
		return nil, e
	}
	return child, 0
}

// Fs_mkdir creates a directory at path.
func (fs *Fs_t) Fs_mkdir(path ustr.Ustr, mode uint) defs.Err_t {
	parent, last, err := fs.resolve(path, true)
	if err != 0 {
		return err
	}
	if len(last) == 0 {
		return -defs.EEXIST
	}
	child := fs.newInode(I_DIR, 0, 0)
	if e := parent.Link(last.String(), child.Ino); e != 0 {
		fs.Lock()
		delete(fs.inodes, child.Ino)
		fs.Unlock()
		return e
	}
	return 0
}

// Fs_unlink removes the directory entry at path.
func (fs *Fs_t) Fs_unlink(path ustr.Ustr) defs.Err_t {
	parent, last, err := fs.resolve(path, true)
	if err != 0 {
		return err
	}
	if len(last) == 0 {
		return -defs.EINVAL
	}
	ino, lerr := parent.Lookup(last.String())
	if lerr != 0 {
		return lerr
	}
	fs.Lock()
	ip := fs.inodes[ino]
	fs.Unlock()
	if ip.Itype == I_DIR {
		return -defs.EISDIR
	}
	if e := parent.Unlink(last.String()); e != 0 {
		return e
	}
	ip.Lock()
	ip.Nlink--
	dead := ip.Nlink == 0
	ip.Unlock()
	if dead {
		fs.Lock()
		delete(fs.inodes, ino)
		fs.Unlock()
	}
	return 0
}

// Fs_unlinkdir removes an empty directory at path.
func (fs *Fs_t) Fs_unlinkdir(path ustr.Ustr) defs.Err_t {
	parent, last, err := fs.resolve(path, true)
	if err != 0 {
		return err
	}
	if len(last) == 0 {
		return -defs.EINVAL
	}
	ino, lerr := parent.Lookup(last.String())
	if lerr != 0 {
		return lerr
	}
	fs.Lock()
	ip := fs.inodes[ino]
	fs.Unlock()
	if ip.Itype != I_DIR {
		return -defs.ENOTDIR
	}
	empty := true
	ip.Readdir(func(string, int) bool { empty = false; return true })
	if !empty {
		return -defs.EINVAL
	}
	if e := parent.Unlink(last.String()); e != 0 {
		return e
	}
	fs.Lock()
	delete(fs.inodes, ino)
	fs.Unlock()
	return 0
}

// Fs_rename moves the entry at oldp to newp.
func (fs *Fs_t) Fs_rename(oldp, newp ustr.Ustr) defs.Err_t {
	oldparent, oldlast, err := fs.resolve(oldp, true)
	if err != 0 {
		return err
	}
	ino, lerr := oldparent.Lookup(oldlast.String())
	if lerr != 0 {
		return lerr
	}
	newparent, newlast, err := fs.resolve(newp, true)
	if err != 0 {
		return err
	}
	if e := newparent.Link(newlast.String(), ino); e != 0 {
		return e
	}
	return oldparent.Unlink(oldlast.String())
}

// Fs_stat fills st with path's inode status.
func (fs *Fs_t) Fs_stat(path ustr.Ustr, st *stat.Stat_t) defs.Err_t {
	ip, err := fs.namei(path)
	if err != 0 {
		return err
	}
	return fs.statInode(ip, st)
}

func (fs *Fs_t) statInode(ip *Inode_t, st *stat.Stat_t) defs.Err_t {
	st.Wino(uint(ip.Ino))
	st.Wmode(ip.Mode(defs.S_IRWXU))
	st.Wsize(uint(ip.Size()))
	if ip.Itype == I_DEV {
		st.Wrdev(uint(defs.Mkdev(ip.Major, ip.Minor)))
	}
	return 0
}

// Fs_sync is a no-op for the in-memory filesystem; present to satisfy the
// teacher-shaped StartFS/ShutdownFS/Fs_sync lifecycle call sites.
func (fs *Fs_t) Fs_sync() defs.Err_t { return 0 }

// Fs_statistics reports coarse filesystem usage counters.
func (fs *Fs_t) Fs_statistics() (inodes int) {
	fs.Lock()
	defer fs.Unlock()
	return len(fs.inodes)
}

// MkRootCwd builds a Cwd_t rooted at the filesystem's root directory,
// wrapped as a directory file descriptor.
func (fs *Fs_t) MkRootCwd() *fd.Cwd_t {
	rootFd := &fd.Fd_t{Fops: fs.newFileops(fs.root), Perms: fd.FD_READ}
	return fd.MkRootCwd(rootFd)
}

// newFileops wraps ip in the VFS-default Fdops_i adapter (see fops.go).
func (fs *Fs_t) newFileops(ip *Inode_t) *Fileops_t {
	return &Fileops_t{fs: fs, ino: ip}
}

// OpenFd resolves path per Fs_open and wraps the resulting inode as a file
// descriptor ready for a task's descriptor table, sparing syscall-layer
// callers (package syscallabi) from reaching past the VFS boundary into
// newFileops.
func (fs *Fs_t) OpenFd(path ustr.Ustr, flags int, mode uint, perms int) (*fd.Fd_t, defs.Err_t) {
	ip, err := fs.Fs_open(path, flags, mode)
	if err != 0 {
		return nil, err
	}
	return &fd.Fd_t{Fops: fs.newFileops(ip), Perms: perms}, 0
}

// OpenDev opens a device node directly by (major, minor), bypassing path
// resolution entirely -- spec.md §4.7's "anonymous open" escape hatch,
// exercised by Scenario S1's raw block-device read.
func (fs *Fs_t) OpenDev(major, minor int) (*Inode_t, defs.Err_t) {
	fs.Lock()
	defer fs.Unlock()
	for _, ip := range fs.inodes {
		if ip.Itype == I_DEV && ip.Major == major && (ip.Minor == minor || ip.Minor == wildcardMinor) {
			return ip, 0
		}
	}
	return nil, -defs.ENXIO
}
