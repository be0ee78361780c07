package filesystem

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brettbedarf/resultfs"
	"github.com/brettbedarf/resultfs/config"
	"github.com/brettbedarf/resultfs/internal/util"
)

const testPhotoURL = "http://files.test/media/a.png"

func createTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.MountPoint = "/mnt/test"
	return cfg
}

func cell(v string) *string { return util.Pointer(v) }

// createTestResult has columns (id INT primary, name VARCHAR, photo IMAGE)
// and a single row (1, "Ada", testPhotoURL)
func createTestResult() *resultfs.Result {
	return &resultfs.Result{
		Table: "public.people",
		Columns: []resultfs.Column{
			{Name: "id", DataType: "INTEGER", Primary: true},
			{Name: "name", DataType: "VARCHAR"},
			{Name: "photo", DataType: resultfs.DataTypeImage},
		},
		Rows: [][]*string{
			{cell("1"), cell("Ada"), cell(testPhotoURL)},
		},
	}
}

// countingFetcher serves a fixed payload and counts calls
type countingFetcher struct {
	data  []byte
	err   error
	calls atomic.Int32
}

func (f *countingFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte(nil), f.data...), nil
}

// newProjectedFS returns a filesystem holding createTestResult
func newProjectedFS(t *testing.T, fetcher resultfs.Fetcher) (*FileSystem, *resultfs.Result) {
	t.Helper()
	fs := NewFS(createTestConfig(), fetcher)
	res := createTestResult()
	fs.Project(res)
	require.Same(t, res, fs.ActiveResult())
	return fs, res
}

// readAll reads the whole file at p through the dispatcher
func readAll(t *testing.T, fs *FileSystem, p string) string {
	t.Helper()
	buf := make([]byte, 4096)
	n, errno := fs.Read(context.Background(), p, buf, 0)
	require.Zero(t, errno)
	return string(buf[:n])
}

func names(entries []DirEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}
