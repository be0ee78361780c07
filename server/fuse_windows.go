//go:build windows

package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall"

	"github.com/winfsp/cgofuse/fuse"

	"github.com/brettbedarf/resultfs/config"
	"github.com/brettbedarf/resultfs/filesystem"
	"github.com/brettbedarf/resultfs/internal/util"
)

// cgoBridge exposes the dispatcher through cgofuse's path based API on WinFsp
type cgoBridge struct {
	fuse.FileSystemBase
	fs    *filesystem.FileSystem
	ready chan struct{}
	once  sync.Once
}

func newCgoBridge(fs *filesystem.FileSystem) *cgoBridge {
	return &cgoBridge{fs: fs, ready: make(chan struct{})}
}

// errnoToFuse converts a dispatcher status to the negative code cgofuse expects
func errnoToFuse(errno syscall.Errno) int {
	switch errno {
	case 0:
		return 0
	case syscall.ENOENT:
		return -fuse.ENOENT
	case syscall.EEXIST:
		return -fuse.EEXIST
	case syscall.ENOTDIR:
		return -fuse.ENOTDIR
	case syscall.EISDIR:
		return -fuse.EISDIR
	case syscall.ENOTEMPTY:
		return -fuse.ENOTEMPTY
	case syscall.EINVAL:
		return -fuse.EINVAL
	case syscall.EBUSY:
		return -fuse.EBUSY
	case syscall.EFBIG:
		return -fuse.EFBIG
	default:
		return -fuse.EIO
	}
}

func fillStat(a filesystem.Attr, stat *fuse.Stat_t) {
	stat.Ino = a.Ino
	stat.Mode = a.Mode
	stat.Nlink = a.Nlink
	stat.Uid = a.Uid
	stat.Gid = a.Gid
	stat.Size = int64(a.Size)
	stat.Blksize = filesystem.BlockSize
	stat.Blocks = int64(a.Blocks())
	stat.Atim = fuse.NewTimespec(a.Atime)
	stat.Mtim = fuse.NewTimespec(a.Mtime)
	stat.Ctim = fuse.NewTimespec(a.Ctime)
	stat.Birthtim = fuse.NewTimespec(a.Ctime)
}

func (b *cgoBridge) Init() {
	b.once.Do(func() { close(b.ready) })
}

// Statfs must report capacity on every path, WinFsp derives the volume size
// from it and refuses copies onto a volume without free space.
func (b *cgoBridge) Statfs(path string, stat *fuse.Statfs_t) int {
	st := b.fs.Statfs()
	stat.Bsize = uint64(st.Bsize)
	stat.Frsize = uint64(st.Frsize)
	stat.Blocks = st.Blocks
	stat.Bfree = st.Bfree
	stat.Bavail = st.Bavail
	stat.Files = st.Files
	stat.Ffree = st.Ffree
	stat.Favail = st.Ffree
	stat.Namemax = uint64(st.NameMax)
	return 0
}

func (b *cgoBridge) Getattr(path string, stat *fuse.Stat_t, fh uint64) int {
	attr, errno := b.fs.Getattr(path)
	if errno != 0 {
		return errnoToFuse(errno)
	}
	fillStat(attr, stat)
	return 0
}

func (b *cgoBridge) Mkdir(path string, mode uint32) int {
	_, errno := b.fs.Mkdir(path)
	return errnoToFuse(errno)
}

func (b *cgoBridge) Unlink(path string) int {
	return errnoToFuse(b.fs.Unlink(path))
}

func (b *cgoBridge) Rmdir(path string) int {
	return errnoToFuse(b.fs.Rmdir(path))
}

func (b *cgoBridge) Rename(oldpath string, newpath string) int {
	return errnoToFuse(b.fs.Rename(oldpath, newpath))
}

// Chmod is accepted; every node keeps the fixed permissive mode
func (b *cgoBridge) Chmod(path string, mode uint32) int {
	_, errno := b.fs.Getattr(path)
	return errnoToFuse(errno)
}

func (b *cgoBridge) Utimens(path string, tmsp []fuse.Timespec) int {
	_, errno := b.fs.Getattr(path)
	return errnoToFuse(errno)
}

func (b *cgoBridge) Truncate(path string, size int64, fh uint64) int {
	if size < 0 {
		return -fuse.EINVAL
	}
	return errnoToFuse(b.fs.Truncate(path, uint64(size)))
}

func (b *cgoBridge) Create(path string, flags int, mode uint32) (int, uint64) {
	_, errno := b.fs.Create(path)
	return errnoToFuse(errno), ^uint64(0)
}

func (b *cgoBridge) Open(path string, flags int) (int, uint64) {
	attr, errno := b.fs.Getattr(path)
	if errno != 0 {
		return errnoToFuse(errno), ^uint64(0)
	}
	if attr.IsDir() {
		return -fuse.EISDIR, ^uint64(0)
	}
	return 0, ^uint64(0)
}

func (b *cgoBridge) Opendir(path string) (int, uint64) {
	attr, errno := b.fs.Getattr(path)
	if errno != 0 {
		return errnoToFuse(errno), ^uint64(0)
	}
	if !attr.IsDir() {
		return -fuse.ENOTDIR, ^uint64(0)
	}
	return 0, ^uint64(0)
}

func (b *cgoBridge) Read(path string, buff []byte, ofst int64, fh uint64) int {
	n, errno := b.fs.Read(context.Background(), path, buff, ofst)
	if errno != 0 {
		return errnoToFuse(errno)
	}
	return n
}

func (b *cgoBridge) Write(path string, buff []byte, ofst int64, fh uint64) int {
	n, errno := b.fs.Write(path, buff, ofst)
	if errno != 0 {
		return errnoToFuse(errno)
	}
	return n
}

func (b *cgoBridge) Readdir(path string, fill func(name string, stat *fuse.Stat_t, ofst int64) bool, ofst int64, fh uint64) int {
	entries, errno := b.fs.Readdir(path)
	if errno != 0 {
		return errnoToFuse(errno)
	}
	for _, e := range entries {
		stat := &fuse.Stat_t{Ino: e.Ino, Mode: e.Mode}
		if !fill(e.Name, stat, 0) {
			break
		}
	}
	return 0
}

// winfspHost mounts through cgofuse. Mount blocks for the lifetime of the
// file system, so it runs on its own goroutine.
type winfspHost struct {
	cfg    *config.Config
	bridge *cgoBridge
	host   *fuse.FileSystemHost
	done   chan bool
}

func newMounter(cfg *config.Config, fs *filesystem.FileSystem) mounter {
	return &winfspHost{cfg: cfg, bridge: newCgoBridge(fs)}
}

func (h *winfspHost) options() []string {
	opts := []string{
		"-o", "uid=-1,gid=-1",
		"-o", "fsname=" + h.cfg.FsName,
		"-o", "volname=" + h.cfg.Name,
	}
	if h.cfg.Debug || h.cfg.LogLvl == util.TraceLevel {
		opts = append(opts, "-d")
	}
	return opts
}

func (h *winfspHost) mount(mountPoint string) error {
	logger := util.GetLogger("winfspHost.mount")

	h.host = fuse.NewFileSystemHost(h.bridge)
	h.host.SetCapCaseInsensitive(false)
	h.done = make(chan bool, 1)

	go func() {
		h.done <- h.host.Mount(mountPoint, h.options())
	}()

	select {
	case <-h.bridge.ready:
		logger.Debug().Str("mountpoint", mountPoint).Msg("WinFsp host ready")
		return nil
	case ok := <-h.done:
		if !ok {
			return fmt.Errorf("mounting %s failed", mountPoint)
		}
		return errors.New("file system unmounted during startup")
	}
}

func (h *winfspHost) unmount() error {
	if h.host == nil {
		return nil
	}
	if !h.host.Unmount() {
		return errors.New("unmount failed")
	}
	<-h.done
	return nil
}
