package filesystem

import (
	"context"
	"errors"
	"path"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brettbedarf/resultfs"
	"github.com/brettbedarf/resultfs/config"
	"github.com/brettbedarf/resultfs/internal/metrics"
)

// FileSystem is the in-memory tree a query result is projected onto,
// together with the result it currently reflects.
type FileSystem struct {
	cfg     *config.Config
	root    *Directory
	lastIno atomic.Uint64                   // Last Attr.Ino assigned; incremented when new nodes are created
	active  atomic.Pointer[resultfs.Result] // Result the tree was last projected from
	fetcher resultfs.Fetcher
	metrics metrics.FSMetrics
	uid     uint32
	gid     uint32
}

type Option func(*FileSystem)

// WithMetrics records filesystem activity to m
func WithMetrics(m metrics.FSMetrics) Option {
	return func(fs *FileSystem) {
		if m != nil {
			fs.metrics = m
		}
	}
}

// NewFS creates an empty tree. fetcher resolves remote locators on read
// and commit; nil leaves remote files at their placeholder.
func NewFS(cfg *config.Config, fetcher resultfs.Fetcher, opts ...Option) *FileSystem {
	fs := &FileSystem{
		cfg:     cfg,
		root:    newDirectory(RootIno, "", nil),
		metrics: metrics.NewNoopFSMetrics(),
	}
	fs.lastIno.Store(RootIno)
	fs.uid, fs.gid = processOwner()
	for _, opt := range opts {
		opt(fs)
	}
	if fetcher != nil {
		fs.fetcher = &instrumentedFetcher{next: fetcher, metrics: fs.metrics}
	}
	return fs
}

func (fs *FileSystem) Root() *Directory {
	return fs.root
}

// ActiveResult returns the result the tree was last projected from, or nil
func (fs *FileSystem) ActiveResult() *resultfs.Result {
	return fs.active.Load()
}

func (fs *FileSystem) nextIno() uint64 {
	return fs.lastIno.Add(1)
}

// isQueryOriginated reports whether name correlates to a column of the
// active result
func (fs *FileSystem) isQueryOriginated(name string) bool {
	return fs.ActiveResult().ContainsColumn(name)
}

// Attr returns an attribute snapshot of n
func (fs *FileSystem) Attr(n Node) Attr {
	b := n.base()
	attr := Attr{
		Ino:   b.ino,
		Nlink: 1,
		Uid:   fs.uid,
		Gid:   fs.gid,
		Ctime: b.ctime,
		Mtime: b.ctime,
		Atime: b.ctime,
	}
	switch node := n.(type) {
	case *Directory:
		attr.Mode = DirAttr | Perms
		attr.Nlink = 2
	case *File:
		node.dataMu.Lock()
		attr.Mode = FileAttr | Perms
		attr.Size = uint64(len(node.content))
		attr.Mtime = node.mtime
		attr.Atime = node.mtime
		node.dataMu.Unlock()
	}
	return attr
}

// resolve converts resolution failures into errno values
func (fs *FileSystem) resolve(p string) (Node, syscall.Errno) {
	n, err := fs.root.Resolve(p)
	if err != nil {
		return nil, toErrno(err)
	}
	return n, 0
}

func (fs *FileSystem) resolveDir(p string) (*Directory, syscall.Errno) {
	n, errno := fs.resolve(p)
	if errno != 0 {
		return nil, errno
	}
	d, ok := n.(*Directory)
	if !ok {
		return nil, syscall.ENOTDIR
	}
	return d, 0
}

// splitPath returns the parent path and local name. The root has an
// empty name.
func splitPath(p string) (dir, name string) {
	clean := path.Clean("/" + p)
	if clean == "/" {
		return "/", ""
	}
	return path.Split(clean)
}

func toErrno(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EIO
}

type instrumentedFetcher struct {
	next    resultfs.Fetcher
	metrics metrics.FSMetrics
}

func (f *instrumentedFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	start := time.Now()
	data, err := f.next.Fetch(ctx, locator)
	f.metrics.RecordFetch(time.Since(start), len(data), err)
	return data, err
}
