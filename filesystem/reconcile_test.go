package filesystem

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brettbedarf/resultfs"
	"github.com/brettbedarf/resultfs/internal/mocks"
)

func changeSet(t *testing.T, fs *FileSystem) *resultfs.ChangeSet {
	t.Helper()
	cs, err := fs.ChangeSet(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cs)
	return cs
}

// rowValues returns the single RowChange of cs
func rowValues(t *testing.T, cs *resultfs.ChangeSet) map[string]resultfs.CellChange {
	t.Helper()
	require.Len(t, cs.Updates, 1)
	return cs.Updates[0].Values
}

func TestReconcile_TruncateThenWrite(t *testing.T) {
	t.Parallel()

	fs, _ := newProjectedFS(t, nil)

	require.Zero(t, fs.Truncate("/0/name.txt", 0))
	_, errno := fs.Write("/0/name.txt", []byte("Grace"), 0)
	require.Zero(t, errno)

	cs := changeSet(t, fs)

	assert.Equal(t, "public.people", cs.Table)
	require.Len(t, cs.Updates, 1)
	assert.Equal(t, map[string]*string{"id": cell("1")}, cs.Updates[0].PrimaryKey)
	assert.Equal(t, map[string]resultfs.CellChange{
		"name": resultfs.ValueCell("Grace"),
	}, cs.Updates[0].Values)
}

func TestReconcile_UserFileRenamedOntoColumn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"unwritten", ""},
		{"written", "Grace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fs, _ := newProjectedFS(t, nil)
			_, errno := fs.Create("/0/draft")
			require.Zero(t, errno)
			if tt.content != "" {
				_, errno = fs.Write("/0/draft", []byte(tt.content), 0)
				require.Zero(t, errno)
			}

			require.Zero(t, fs.Rename("/0/draft", "/0/name.txt"))

			assert.Equal(t, tt.content, readAll(t, fs, "/0/name.txt"))
			assert.Equal(t, map[string]resultfs.CellChange{
				"name": resultfs.ValueCell(tt.content),
			}, rowValues(t, changeSet(t, fs)))
		})
	}
}

func TestReconcile_NoEditsNoRows(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{data: []byte("img")}
	fs, _ := newProjectedFS(t, fetcher)
	// reads alone are not edits
	readAll(t, fs, "/0/photo.png")
	readAll(t, fs, "/0/name.txt")

	cs := changeSet(t, fs)

	assert.Equal(t, "public.people", cs.Table)
	assert.Empty(t, cs.Updates)
	assert.NotNil(t, cs.Updates, "updates serialize as an empty list")
}

func TestReconcile_MissingTable(t *testing.T) {
	t.Parallel()

	t.Run("no result", func(t *testing.T) {
		t.Parallel()
		fs := NewFS(createTestConfig(), nil)
		_, err := fs.ChangeSet(context.Background())
		assert.ErrorIs(t, err, resultfs.ErrMissingTable)
	})

	t.Run("result without table", func(t *testing.T) {
		t.Parallel()
		fs := NewFS(createTestConfig(), nil)
		res := createTestResult()
		res.Table = ""
		fs.Project(res)
		_, errno := fs.Write("/0/name.txt", []byte("x"), 0)
		require.Zero(t, errno)

		_, err := fs.ChangeSet(context.Background())
		assert.ErrorIs(t, err, resultfs.ErrMissingTable)
	})
}

func TestReconcile_TombstoneIsNull(t *testing.T) {
	t.Parallel()

	fs, _ := newProjectedFS(t, nil)
	require.Zero(t, fs.Unlink("/0/name.txt"))

	values := rowValues(t, changeSet(t, fs))
	assert.Equal(t, map[string]resultfs.CellChange{"name": resultfs.NullCell()}, values)
}

func TestReconcile_WriteThenUnlinkIsNull(t *testing.T) {
	t.Parallel()

	fs, _ := newProjectedFS(t, nil)
	_, errno := fs.Write("/0/name.txt", []byte("Grace"), 0)
	require.Zero(t, errno)
	require.Zero(t, fs.Unlink("/0/name.txt"))

	values := rowValues(t, changeSet(t, fs))
	assert.Equal(t, resultfs.NullCell(), values["name"])
}

func TestReconcile_TombstoneReusedByName(t *testing.T) {
	t.Parallel()

	fs, _ := newProjectedFS(t, nil)
	require.Zero(t, fs.Unlink("/0/name.txt"))
	_, errno := fs.Create("/0/name.txt")
	require.Zero(t, errno)
	_, errno = fs.Write("/0/name.txt", []byte("Grace"), 0)
	require.Zero(t, errno)

	values := rowValues(t, changeSet(t, fs))
	assert.Equal(t, resultfs.ValueCell("Grace"), values["name"])
}

func TestReconcile_CreateEmptyIsEmptyValue(t *testing.T) {
	t.Parallel()

	fs, _ := newProjectedFS(t, nil)
	require.Zero(t, fs.Unlink("/0/name.txt"))
	_, errno := fs.Create("/0/name.txt")
	require.Zero(t, errno)

	values := rowValues(t, changeSet(t, fs))
	assert.Equal(t, resultfs.ValueCell(""), values["name"])
}

// The reported change follows the last operation, whatever came before.
func TestReconcile_LastOperationWins(t *testing.T) {
	t.Parallel()

	type step func(t *testing.T, fs *FileSystem)
	write := func(v string) step {
		return func(t *testing.T, fs *FileSystem) {
			require.Zero(t, fs.Truncate("/0/name.txt", 0))
			_, errno := fs.Write("/0/name.txt", []byte(v), 0)
			require.Zero(t, errno)
		}
	}
	unlink := func(t *testing.T, fs *FileSystem) {
		require.Zero(t, fs.Unlink("/0/name.txt"))
	}
	create := func(t *testing.T, fs *FileSystem) {
		_, errno := fs.Create("/0/name.txt")
		require.Zero(t, errno)
	}

	tests := []struct {
		name  string
		steps []step
		want  resultfs.CellChange
	}{
		{"write", []step{write("a")}, resultfs.ValueCell("a")},
		{"write twice same", []step{write("a"), write("a")}, resultfs.ValueCell("a")},
		{"write then write", []step{write("a"), write("b")}, resultfs.ValueCell("b")},
		{"write unlink", []step{write("a"), unlink}, resultfs.NullCell()},
		{"unlink create write", []step{unlink, create, write("c")}, resultfs.ValueCell("c")},
		{"unlink create write unlink", []step{unlink, create, write("c"), unlink}, resultfs.NullCell()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fs, _ := newProjectedFS(t, nil)
			for _, s := range tt.steps {
				s(t, fs)
			}
			values := rowValues(t, changeSet(t, fs))
			assert.Equal(t, tt.want, values["name"])
		})
	}
}

func TestReconcile_MediaWrittenIsSetFile(t *testing.T) {
	t.Parallel()

	fs, _ := newProjectedFS(t, nil)
	require.Zero(t, fs.Truncate("/0/photo.png", 0))
	_, errno := fs.Write("/0/photo.png", []byte("new image"), 0)
	require.Zero(t, errno)

	cs := changeSet(t, fs)
	values := rowValues(t, cs)

	change := values["photo"]
	assert.Equal(t, resultfs.SetFile, change.Kind)
	assert.Equal(t, []byte("new image"), change.Data)
	assert.True(t, strings.HasPrefix(change.FileName, attachmentPrefix))

	atts := cs.Attachments()
	require.Len(t, atts, 1)
	assert.Equal(t, change.FileName, atts[0].Name)
}

func TestReconcile_LiveValueBeatsTombstone(t *testing.T) {
	t.Parallel()

	fs, _ := newProjectedFS(t, nil)
	// replace photo.png by photo.jpg
	require.Zero(t, fs.Unlink("/0/photo.png"))
	_, errno := fs.Create("/0/photo.jpg")
	require.Zero(t, errno)
	_, errno = fs.Write("/0/photo.jpg", []byte("jpeg"), 0)
	require.Zero(t, errno)

	values := rowValues(t, changeSet(t, fs))

	require.Contains(t, values, "photo")
	assert.Equal(t, resultfs.SetFile, values["photo"].Kind)
	assert.Equal(t, []byte("jpeg"), values["photo"].Data)
}

func TestReconcile_MovedMediaIsFetched(t *testing.T) {
	t.Parallel()

	fetcher := &mocks.MockFetcher{}
	fetcher.On("Fetch", mock.Anything, testPhotoURL).Return([]byte("remote image"), nil).Once()

	fs, res := newProjectedFS(t, fetcher)
	// second row without a photo
	res.Rows = append(res.Rows, []*string{cell("2"), cell("Grace"), nil})
	fs.Project(res)

	require.Zero(t, fs.Rename("/0/photo.png", "/1/photo.png"))

	cs := changeSet(t, fs)
	require.Len(t, cs.Updates, 2)

	assert.Equal(t, map[string]*string{"id": cell("1")}, cs.Updates[0].PrimaryKey)
	assert.Equal(t, resultfs.NullCell(), cs.Updates[0].Values["photo"])

	assert.Equal(t, map[string]*string{"id": cell("2")}, cs.Updates[1].PrimaryKey)
	moved := cs.Updates[1].Values["photo"]
	assert.Equal(t, resultfs.SetFile, moved.Kind)
	assert.Equal(t, []byte("remote image"), moved.Data)
	fetcher.AssertExpectations(t)
}

func TestReconcile_FetchFailure(t *testing.T) {
	t.Parallel()

	fetcher := &mocks.MockFetcher{}
	fetcher.On("Fetch", mock.Anything, testPhotoURL).Return(nil, errors.New("gone"))

	fs, res := newProjectedFS(t, fetcher)
	res.Rows = append(res.Rows, []*string{cell("2"), cell("Grace"), nil})
	fs.Project(res)
	require.Zero(t, fs.Rename("/0/photo.png", "/1/photo.png"))

	_, err := fs.ChangeSet(context.Background())
	assert.ErrorIs(t, err, resultfs.ErrFetchFailed)

	// the move is kept so the commit can be retried
	f, err := fs.Root().Resolve("/1/photo.png")
	require.NoError(t, err)
	assert.Equal(t, testPhotoURL, f.(*File).Locator())
}

func TestReconcile_IgnoresNonColumnAndForeignFiles(t *testing.T) {
	t.Parallel()

	fs, _ := newProjectedFS(t, nil)
	_, errno := fs.Create("/0/notes.md")
	require.Zero(t, errno)
	_, errno = fs.Write("/0/notes.md", []byte("scratch"), 0)
	require.Zero(t, errno)
	_, errno = fs.Mkdir("/extra")
	require.Zero(t, errno)
	_, errno = fs.Create("/extra/name.txt")
	require.Zero(t, errno)

	cs := changeSet(t, fs)
	assert.Empty(t, cs.Updates)
}

func TestReconcile_RowsInIndexOrder(t *testing.T) {
	t.Parallel()

	fs := NewFS(createTestConfig(), nil)
	res := createTestResult()
	for i := 2; i <= 12; i++ {
		res.Rows = append(res.Rows, []*string{cell(strings.Repeat("9", i)), cell("x"), nil})
	}
	fs.Project(res)
	for _, row := range []string{"11", "2", "0"} {
		_, errno := fs.Write("/"+row+"/name.txt", []byte("!"), 1)
		require.Zero(t, errno)
	}

	cs := changeSet(t, fs)
	require.Len(t, cs.Updates, 3)
	assert.Equal(t, "1", *cs.Updates[0].PrimaryKey["id"])
	assert.Equal(t, strings.Repeat("9", 3), *cs.Updates[1].PrimaryKey["id"])
	assert.Equal(t, strings.Repeat("9", 12), *cs.Updates[2].PrimaryKey["id"])
}
