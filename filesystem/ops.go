package filesystem

import (
	"context"
	"syscall"

	"github.com/brettbedarf/resultfs/internal/util"
)

// The methods below are the filesystem call surface. Every method returns
// a syscall.Errno; 0 is success.

// Getattr returns the attributes of the node at p
func (fs *FileSystem) Getattr(p string) (attr Attr, errno syscall.Errno) {
	defer func() { fs.metrics.RecordOp("getattr", int(errno)) }()

	n, errno := fs.resolve(p)
	if errno != 0 {
		return Attr{}, errno
	}
	return fs.Attr(n), 0
}

// Create makes an empty file. A name that correlates to a column of the
// active result starts out Created.
// A tombstone of the same name is replaced.
func (fs *FileSystem) Create(p string) (attr Attr, errno syscall.Errno) {
	defer func() { fs.metrics.RecordOp("create", int(errno)) }()
	logger := util.GetLogger("FS.Create")

	dirPath, name := splitPath(p)
	if name == "" {
		return Attr{}, syscall.EEXIST
	}
	parent, errno := fs.resolveDir(dirPath)
	if errno != 0 {
		return Attr{}, errno
	}

	parent.childMu.Lock()
	defer parent.childMu.Unlock()
	if _, ok := parent.Child(name); ok {
		return Attr{}, syscall.EEXIST
	}

	f := newFile(fs.nextIno(), name)
	if fs.isQueryOriginated(name) {
		f.markCreated()
	}
	parent.attachLocked(f)
	logger.Debug().Str("path", p).Stringer("op", f.Operation()).Msg("Created file")
	return fs.Attr(f), 0
}

// Mkdir makes an empty directory without a row association
func (fs *FileSystem) Mkdir(p string) (attr Attr, errno syscall.Errno) {
	defer func() { fs.metrics.RecordOp("mkdir", int(errno)) }()

	dirPath, name := splitPath(p)
	if name == "" {
		return Attr{}, syscall.EEXIST
	}
	parent, errno := fs.resolveDir(dirPath)
	if errno != 0 {
		return Attr{}, errno
	}

	parent.childMu.Lock()
	defer parent.childMu.Unlock()
	if _, ok := parent.Child(name); ok {
		return Attr{}, syscall.EEXIST
	}
	d := newDirectory(fs.nextIno(), name, nil)
	parent.attachLocked(d)
	return fs.Attr(d), 0
}

func (fs *FileSystem) resolveFile(p string) (*File, syscall.Errno) {
	n, errno := fs.resolve(p)
	if errno != 0 {
		return nil, errno
	}
	f, ok := n.(*File)
	if !ok {
		return nil, syscall.EISDIR
	}
	return f, 0
}

// Read fills dest from off. Remote files are fetched first.
func (fs *FileSystem) Read(ctx context.Context, p string, dest []byte, off int64) (n int, errno syscall.Errno) {
	defer func() { fs.metrics.RecordOp("read", int(errno)) }()

	if off < 0 {
		return 0, syscall.EINVAL
	}
	f, errno := fs.resolveFile(p)
	if errno != 0 {
		return 0, errno
	}
	return f.Read(ctx, fs.fetcher, dest, off), 0
}

// Write stores data at off and returns the number of bytes written
func (fs *FileSystem) Write(p string, data []byte, off int64) (n int, errno syscall.Errno) {
	defer func() { fs.metrics.RecordOp("write", int(errno)) }()

	if off < 0 {
		return 0, syscall.EINVAL
	}
	if int64(len(data)) > MaxFileSize || off > MaxFileSize-int64(len(data)) {
		return 0, syscall.EFBIG
	}
	f, errno := fs.resolveFile(p)
	if errno != 0 {
		return 0, errno
	}
	return f.Write(data, off), 0
}

// Truncate shrinks the file at p; growing is a no-op
func (fs *FileSystem) Truncate(p string, size uint64) (errno syscall.Errno) {
	defer func() { fs.metrics.RecordOp("truncate", int(errno)) }()

	f, errno := fs.resolveFile(p)
	if errno != 0 {
		return errno
	}
	f.Truncate(size)
	return 0
}

// Readdir lists the live children of the directory at p, preceded by
// "." and ".."
func (fs *FileSystem) Readdir(p string) (entries []DirEntry, errno syscall.Errno) {
	defer func() { fs.metrics.RecordOp("readdir", int(errno)) }()

	d, errno := fs.resolveDir(p)
	if errno != 0 {
		return nil, errno
	}

	up := d.Ino()
	if parent := d.Parent(); parent != nil {
		up = parent.Ino()
	}
	children := d.Children()
	entries = make([]DirEntry, 0, len(children)+2)
	entries = append(entries,
		DirEntry{Name: ".", Ino: d.Ino(), Mode: DirAttr},
		DirEntry{Name: "..", Ino: up, Mode: DirAttr},
	)
	for _, child := range children {
		mode := FileAttr
		if _, ok := child.(*Directory); ok {
			mode = DirAttr
		}
		entries = append(entries, DirEntry{Name: child.Name(), Ino: child.Ino(), Mode: mode})
	}
	return entries, 0
}

// Unlink tombstones a query-originated file and removes any other file
func (fs *FileSystem) Unlink(p string) (errno syscall.Errno) {
	defer func() { fs.metrics.RecordOp("unlink", int(errno)) }()
	logger := util.GetLogger("FS.Unlink")

	f, errno := fs.resolveFile(p)
	if errno != 0 {
		return errno
	}
	parent := f.Parent()
	if parent == nil {
		return syscall.ENOENT
	}

	parent.childMu.Lock()
	defer parent.childMu.Unlock()
	// lost a race with another unlink or rename
	if cur, ok := parent.Child(f.Name()); !ok || cur != Node(f) {
		return syscall.ENOENT
	}
	if fs.isQueryOriginated(f.Name()) {
		f.markDeleted()
		logger.Debug().Str("path", p).Msg("Tombstoned file")
	} else {
		parent.detachLocked(f)
		logger.Debug().Str("path", p).Msg("Removed file")
	}
	return 0
}

// Rmdir detaches a directory and its whole subtree
func (fs *FileSystem) Rmdir(p string) (errno syscall.Errno) {
	defer func() { fs.metrics.RecordOp("rmdir", int(errno)) }()

	n, errno := fs.resolve(p)
	if errno != 0 {
		return errno
	}
	d, ok := n.(*Directory)
	if !ok {
		return syscall.ENOTDIR
	}
	if d == fs.root {
		return syscall.EBUSY
	}
	if !Detach(d) {
		return syscall.ENOENT
	}
	return 0
}

// Rename moves oldPath to newPath, replacing a live target of the same kind.
// A query-originated file is tombstoned in place and recreated under the
// new name so both ends stay visible to reconciliation.
func (fs *FileSystem) Rename(oldPath, newPath string) (errno syscall.Errno) {
	defer func() { fs.metrics.RecordOp("rename", int(errno)) }()
	logger := util.GetLogger("FS.Rename")

	oldDir, oldName := splitPath(oldPath)
	newDir, newName := splitPath(newPath)
	if oldName == "" || newName == "" {
		return syscall.EBUSY
	}
	src, errno := fs.resolveDir(oldDir)
	if errno != 0 {
		return errno
	}
	dst, errno := fs.resolveDir(newDir)
	if errno != 0 {
		return errno
	}

	unlock := lockPair(src, dst)
	defer unlock()

	node, ok := src.Child(oldName)
	if !ok {
		return syscall.ENOENT
	}
	if src == dst && oldName == newName {
		return 0
	}
	if isAncestor(node, dst) {
		return syscall.EINVAL
	}

	if target, ok := dst.Child(newName); ok {
		_, srcIsDir := node.(*Directory)
		switch t := target.(type) {
		case *Directory:
			if !srcIsDir {
				return syscall.EISDIR
			}
			// the target contains the source
			if isAncestor(t, src) {
				return syscall.ENOTEMPTY
			}
			// t.childMu is not taken; only src and dst are locked, in order
			if t.hasLiveChildren() {
				return syscall.ENOTEMPTY
			}
		case *File:
			if srcIsDir {
				return syscall.ENOTDIR
			}
		}
		dst.detachLocked(target)
	}

	if f, ok := node.(*File); ok && fs.isQueryOriginated(oldName) {
		clone := f.cloneAs(fs.nextIno(), newName)
		if fs.isQueryOriginated(newName) {
			clone.markCreated()
		} else {
			clone.dataMu.Lock()
			clone.op = OpModified
			clone.fromFS = true
			clone.dataMu.Unlock()
		}
		f.markDeleted()
		dst.attachLocked(clone)
		logger.Debug().Str("from", oldPath).Str("to", newPath).Msg("Tombstoned and recreated query file")
		return 0
	}

	src.detachLocked(node)
	Rename(node, newName)
	if f, ok := node.(*File); ok && fs.isQueryOriginated(newName) {
		f.markCreated()
	}
	dst.attachLocked(node)
	return 0
}

// lockPair write-locks the children of both directories in inode order
func lockPair(a, b *Directory) (unlock func()) {
	if a == b {
		a.childMu.Lock()
		return a.childMu.Unlock
	}
	first, second := a, b
	if second.Ino() < first.Ino() {
		first, second = second, first
	}
	first.childMu.Lock()
	second.childMu.Lock()
	return func() {
		second.childMu.Unlock()
		first.childMu.Unlock()
	}
}

// Statfs reports the configured capacity as entirely free. The block
// counts are never zero, since some platforms refuse copies onto a
// volume that reports no space.
func (fs *FileSystem) Statfs() Statfs {
	fs.metrics.RecordOp("statfs", 0)
	capacity := max(fs.cfg.CapacityGB, 1)
	blocks := capacity * 1024 * 1024 * 1024 / BlockSize
	return Statfs{
		Bsize:   BlockSize,
		Frsize:  BlockSize,
		Blocks:  blocks,
		Bfree:   blocks,
		Bavail:  blocks,
		Files:   fs.lastIno.Load(),
		Ffree:   blocks,
		NameMax: NameMax,
	}
}
