//go:build !windows

package server

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/brettbedarf/resultfs/config"
	"github.com/brettbedarf/resultfs/filesystem"
	"github.com/brettbedarf/resultfs/internal/util"
)

// renameNoReplace is RENAME_NOREPLACE of renameat2
const renameNoReplace = 0x1

// node adapts the path based dispatcher to the go-fuse inode tree. Every
// call resolves the inode's current path against the filesystem, so inodes
// kept by the kernel after a new projection simply stop resolving.
type node struct {
	gofuse.Inode
	fs       *filesystem.FileSystem
	directIO bool
}

var (
	_ gofuse.InodeEmbedder = (*node)(nil)
	_ gofuse.NodeGetattrer = (*node)(nil)
	_ gofuse.NodeSetattrer = (*node)(nil)
	_ gofuse.NodeLookuper  = (*node)(nil)
	_ gofuse.NodeReaddirer = (*node)(nil)
	_ gofuse.NodeCreater   = (*node)(nil)
	_ gofuse.NodeMkdirer   = (*node)(nil)
	_ gofuse.NodeUnlinker  = (*node)(nil)
	_ gofuse.NodeRmdirer   = (*node)(nil)
	_ gofuse.NodeRenamer   = (*node)(nil)
	_ gofuse.NodeOpener    = (*node)(nil)
	_ gofuse.NodeReader    = (*node)(nil)
	_ gofuse.NodeWriter    = (*node)(nil)
	_ gofuse.NodeStatfser  = (*node)(nil)
)

func inodePath(in *gofuse.Inode) string {
	return "/" + in.Path(nil)
}

func (n *node) path() string {
	return inodePath(n.EmbeddedInode())
}

func (n *node) childPath(name string) string {
	p := n.path()
	if p == "/" {
		return p + name
	}
	return p + "/" + name
}

func fillAttr(a filesystem.Attr, out *fuse.Attr) {
	out.Ino = a.Ino
	out.Mode = a.Mode
	out.Size = a.Size
	out.Blocks = a.Blocks()
	out.Nlink = a.Nlink
	out.Owner = fuse.Owner{Uid: a.Uid, Gid: a.Gid}
	out.Blksize = filesystem.BlockSize
	out.SetTimes(&a.Atime, &a.Mtime, &a.Ctime)
}

// newChild creates the inode for a looked up or created entry of n
func (n *node) newChild(ctx context.Context, attr filesystem.Attr, out *fuse.EntryOut) *gofuse.Inode {
	fillAttr(attr, &out.Attr)
	child := &node{fs: n.fs, directIO: n.directIO}
	return n.NewInode(ctx, child, gofuse.StableAttr{
		Mode: attr.Mode & syscall.S_IFMT,
		Ino:  attr.Ino,
	})
}

func (n *node) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, errno := n.fs.Getattr(n.path())
	if errno != 0 {
		return errno
	}
	fillAttr(attr, &out.Attr)
	return 0
}

// Setattr applies size changes; mode, owner and time changes are accepted
// and ignored.
func (n *node) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		if errno := n.fs.Truncate(n.path(), size); errno != 0 {
			return errno
		}
	}
	return n.Getattr(ctx, f, out)
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	attr, errno := n.fs.Getattr(n.childPath(name))
	if errno != 0 {
		return nil, errno
	}
	return n.newChild(ctx, attr, out), 0
}

func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	entries, errno := n.fs.Readdir(n.path())
	if errno != 0 {
		return nil, errno
	}
	list := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		list = append(list, fuse.DirEntry{Name: e.Name, Ino: e.Ino, Mode: e.Mode})
	}
	return gofuse.NewListDirStream(list), 0
}

func (n *node) openFlags() uint32 {
	if n.directIO {
		return fuse.FOPEN_DIRECT_IO
	}
	return 0
}

func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	attr, errno := n.fs.Create(n.childPath(name))
	if errno != 0 {
		return nil, nil, 0, errno
	}
	return n.newChild(ctx, attr, out), nil, n.openFlags(), 0
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	attr, errno := n.fs.Mkdir(n.childPath(name))
	if errno != 0 {
		return nil, errno
	}
	return n.newChild(ctx, attr, out), 0
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	return n.fs.Unlink(n.childPath(name))
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return n.fs.Rmdir(n.childPath(name))
}

// Rename only supports the plain overwriting form; the dispatcher has no
// exchange, and the inode tree would diverge from it
func (n *node) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	if flags&gofuse.RENAME_EXCHANGE != 0 {
		return syscall.EINVAL
	}
	target := inodePath(newParent.EmbeddedInode())
	if target != "/" {
		target += "/"
	}
	target += newName
	if flags&renameNoReplace != 0 {
		if _, errno := n.fs.Getattr(target); errno == 0 {
			return syscall.EEXIST
		}
	}
	return n.fs.Rename(n.childPath(name), target)
}

// Open keeps no per handle state
func (n *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if _, errno := n.fs.Getattr(n.path()); errno != 0 {
		return nil, 0, errno
	}
	return nil, n.openFlags(), 0
}

func (n *node) Read(ctx context.Context, f gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	read, errno := n.fs.Read(ctx, n.path(), dest, off)
	if errno != 0 {
		return nil, errno
	}
	return fuse.ReadResultData(dest[:read]), 0
}

func (n *node) Write(ctx context.Context, f gofuse.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	written, errno := n.fs.Write(n.path(), data, off)
	return uint32(written), errno
}

func (n *node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	st := n.fs.Statfs()
	out.Bsize = st.Bsize
	out.Frsize = st.Frsize
	out.Blocks = st.Blocks
	out.Bfree = st.Bfree
	out.Bavail = st.Bavail
	out.Files = st.Files
	out.Ffree = st.Ffree
	out.NameLen = st.NameMax
	return 0
}

// fuseHost mounts through go-fuse's node API
type fuseHost struct {
	cfg    *config.Config
	fs     *filesystem.FileSystem
	server *fuse.Server
}

func newMounter(cfg *config.Config, fs *filesystem.FileSystem) mounter {
	return &fuseHost{cfg: cfg, fs: fs}
}

func seconds(s float64) *time.Duration {
	d := time.Duration(s * float64(time.Second))
	return &d
}

func (h *fuseHost) options() *gofuse.Options {
	return &gofuse.Options{
		AttrTimeout:  seconds(h.cfg.AttrTimeout),
		EntryTimeout: seconds(h.cfg.EntryTimeout),
		RootStableAttr: &gofuse.StableAttr{
			Ino:  filesystem.RootIno,
			Mode: syscall.S_IFDIR,
		},
		Logger: util.NewLogLogger("NodeFS"),
		MountOptions: fuse.MountOptions{
			Name:   h.cfg.Name,
			FsName: h.cfg.FsName,
			Debug:  h.cfg.Debug || h.cfg.LogLvl == util.TraceLevel,
			Logger: util.NewLogLogger("FuseServer"),
		},
	}
}

func (h *fuseHost) mount(mountPoint string) error {
	logger := util.GetLogger("fuseHost.mount")

	if err := os.MkdirAll(mountPoint, 0o755); err != nil {
		return fmt.Errorf("creating mount point %s: %w", mountPoint, err)
	}

	root := &node{fs: h.fs, directIO: h.cfg.DirectIO}
	opts := h.options()
	raw := gofuse.NewNodeFS(root, opts)
	srv, err := fuse.NewServer(raw, mountPoint, &opts.MountOptions)
	if err != nil {
		return fmt.Errorf("mounting %s: %w", mountPoint, err)
	}
	h.server = srv

	go srv.Serve()
	if err := srv.WaitMount(); err != nil {
		return err
	}
	logger.Debug().Str("mountpoint", mountPoint).Bool("directIO", h.cfg.DirectIO).Msg("FUSE server ready")
	return nil
}

func (h *fuseHost) unmount() error {
	if h.server == nil {
		return nil
	}
	return h.server.Unmount()
}
