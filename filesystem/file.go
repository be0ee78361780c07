package filesystem

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/brettbedarf/resultfs"
	"github.com/brettbedarf/resultfs/internal/util"
)

// Operation is the filesystem edit recorded on a file
type Operation int

const (
	OpNone Operation = iota
	OpCreated
	OpModified
	OpDeleted
)

func (o Operation) String() string {
	switch o {
	case OpCreated:
		return "Created"
	case OpModified:
		return "Modified"
	case OpDeleted:
		return "Deleted"
	default:
		return "None"
	}
}

type File struct {
	nodeBase
	dataMu  sync.Mutex // Serializes every access to the fields below
	content []byte
	locator string // Remote locator; content is a placeholder while set
	fromFS  bool   // Content was written through the filesystem
	op      Operation
	mtime   time.Time
}

func newFile(ino uint64, name string) *File {
	f := &File{nodeBase: newNodeBase(ino, name)}
	f.mtime = f.ctime
	return f
}

// newDataFile holds the cell text directly
func newDataFile(ino uint64, name, text string) *File {
	f := newFile(ino, name)
	f.content = []byte(text)
	return f
}

// newRemoteFile resolves its content from locator on every read
func newRemoteFile(ino uint64, name, locator string) *File {
	f := newFile(ino, name)
	f.content = []byte(Placeholder)
	f.locator = locator
	return f
}

// LogicalColumn is the name without its trailing extension
func (f *File) LogicalColumn() string {
	return resultfs.LogicalColumn(f.Name())
}

func (f *File) Operation() Operation {
	f.dataMu.Lock()
	defer f.dataMu.Unlock()
	return f.op
}

// Deleted reports whether the file is a tombstone
func (f *File) Deleted() bool {
	return f.Operation() == OpDeleted
}

func (f *File) FromFilesystem() bool {
	f.dataMu.Lock()
	defer f.dataMu.Unlock()
	return f.fromFS
}

func (f *File) Locator() string {
	f.dataMu.Lock()
	defer f.dataMu.Unlock()
	return f.locator
}

func (f *File) Size() uint64 {
	f.dataMu.Lock()
	defer f.dataMu.Unlock()
	return uint64(len(f.content))
}

// Read copies content starting at off into p. A file with a remote locator
// is fetched first; the lock is not held while fetching. A failed fetch
// leaves the file empty and reads zero bytes.
func (f *File) Read(ctx context.Context, fetcher resultfs.Fetcher, p []byte, off int64) int {
	f.dataMu.Lock()
	loc := f.locator
	f.dataMu.Unlock()

	if loc != "" && fetcher != nil {
		data, err := fetcher.Fetch(ctx, loc)
		f.dataMu.Lock()
		// a write may have replaced the content while fetching
		if f.locator == loc {
			if err != nil {
				logger := util.GetLogger("File.Read")
				logger.Warn().Err(err).Str("locator", loc).Msg("Remote fetch failed; reading empty file")
				f.content = nil
			} else {
				f.content = data
			}
		}
	} else {
		f.dataMu.Lock()
	}
	defer f.dataMu.Unlock()

	if off < 0 || off >= int64(len(f.content)) {
		return 0
	}
	return copy(p, f.content[off:])
}

// Write stores p at off, growing the buffer as needed. Bytes between the
// old end and off are zero.
func (f *File) Write(p []byte, off int64) int {
	f.dataMu.Lock()
	defer f.dataMu.Unlock()

	end := int(off) + len(p)
	if old := len(f.content); end > old {
		f.content = slices.Grow(f.content, end-old)[:end]
		clear(f.content[old:end])
	}
	copy(f.content[off:], p)
	f.markWrittenLocked()
	return len(p)
}

// Truncate only shrinks; a size at or above the current length is a no-op.
func (f *File) Truncate(size uint64) {
	f.dataMu.Lock()
	defer f.dataMu.Unlock()

	if size >= uint64(len(f.content)) {
		return
	}
	f.content = f.content[:size]
	f.markWrittenLocked()
}

// markWrittenLocked records a content edit. Caller must hold dataMu.
func (f *File) markWrittenLocked() {
	f.markModifiedLocked()
	f.fromFS = true
	f.locator = ""
	f.mtime = time.Now()
}

// Created dominates Modified. Caller must hold dataMu.
func (f *File) markModifiedLocked() {
	if f.op != OpCreated {
		f.op = OpModified
	}
}

// markDeleted turns the file into a tombstone. Deleting is a filesystem
// edit, so the tombstone is reported on commit.
func (f *File) markDeleted() {
	f.dataMu.Lock()
	defer f.dataMu.Unlock()
	f.op = OpDeleted
	f.fromFS = true
}

// markCreated flags a file whose name correlates to a result column
func (f *File) markCreated() {
	f.dataMu.Lock()
	defer f.dataMu.Unlock()
	f.op = OpCreated
	f.fromFS = true
}

// cloneAs copies content and locator into a new detached file
func (f *File) cloneAs(ino uint64, name string) *File {
	f.dataMu.Lock()
	defer f.dataMu.Unlock()
	c := newFile(ino, name)
	c.content = slices.Clone(f.content)
	c.locator = f.locator
	return c
}

type fileSnapshot struct {
	content []byte
	locator string
	fromFS  bool
	op      Operation
}

func (f *File) snapshot() fileSnapshot {
	f.dataMu.Lock()
	defer f.dataMu.Unlock()
	return fileSnapshot{
		content: slices.Clone(f.content),
		locator: f.locator,
		fromFS:  f.fromFS,
		op:      f.op,
	}
}
