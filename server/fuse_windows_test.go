//go:build windows

package server

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/winfsp/cgofuse/fuse"

	"github.com/brettbedarf/resultfs"
	"github.com/brettbedarf/resultfs/config"
	"github.com/brettbedarf/resultfs/filesystem"
	"github.com/brettbedarf/resultfs/internal/util"
)

func newTestBridge(t *testing.T) *cgoBridge {
	t.Helper()
	fs := filesystem.NewFS(config.NewDefaultConfig(), nil)
	fs.Project(&resultfs.Result{
		Table: "public.people",
		Columns: []resultfs.Column{
			{Name: "id", DataType: "INTEGER", Primary: true},
			{Name: "name", DataType: "VARCHAR"},
		},
		Rows: [][]*string{{util.Pointer("1"), util.Pointer("Ada")}},
	})
	return newCgoBridge(fs)
}

func TestErrnoToFuse(t *testing.T) {
	t.Parallel()

	assert.Zero(t, errnoToFuse(0))
	assert.Equal(t, -fuse.ENOENT, errnoToFuse(syscall.ENOENT))
	assert.Equal(t, -fuse.EEXIST, errnoToFuse(syscall.EEXIST))
	assert.Equal(t, -fuse.ENOTEMPTY, errnoToFuse(syscall.ENOTEMPTY))
	assert.Equal(t, -fuse.EFBIG, errnoToFuse(syscall.EFBIG))
	assert.Equal(t, -fuse.EIO, errnoToFuse(syscall.EPERM))
}

func TestCgoBridge_Ops(t *testing.T) {
	t.Parallel()

	b := newTestBridge(t)

	var stat fuse.Stat_t
	require.Zero(t, b.Getattr("/0/name.txt", &stat, ^uint64(0)))
	assert.Equal(t, int64(3), stat.Size)
	assert.Equal(t, -fuse.ENOENT, b.Getattr("/missing", &stat, ^uint64(0)))

	var names []string
	require.Zero(t, b.Readdir("/0", func(name string, _ *fuse.Stat_t, _ int64) bool {
		names = append(names, name)
		return true
	}, 0, ^uint64(0)))
	assert.Equal(t, []string{".", "..", "id.txt", "name.txt"}, names)

	require.Zero(t, b.Truncate("/0/name.txt", 0, ^uint64(0)))
	assert.Equal(t, 5, b.Write("/0/name.txt", []byte("Grace"), 0, ^uint64(0)))
	buf := make([]byte, 16)
	n := b.Read("/0/name.txt", buf, 0, ^uint64(0))
	assert.Equal(t, "Grace", string(buf[:n]))

	errc, _ := b.Open("/0", 0)
	assert.Equal(t, -fuse.EISDIR, errc)
	errc, _ = b.Opendir("/0/name.txt")
	assert.Equal(t, -fuse.ENOTDIR, errc)

	var st fuse.Statfs_t
	require.Zero(t, b.Statfs("/", &st))
	assert.NotZero(t, st.Bfree)
	assert.Equal(t, uint64(filesystem.BlockSize), st.Frsize)
}
