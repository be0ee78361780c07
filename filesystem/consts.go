package filesystem

import (
	"os"
	"time"
)

// File type bits of Attr.Mode. Same values as S_IFDIR / S_IFREG on every
// supported platform.
const (
	DirAttr  uint32 = 0o040000
	FileAttr uint32 = 0o100000
)

const (
	// RootIno is the inode number of the tree root
	RootIno uint64 = 1
	// Perms is the fixed permissive mode of every node
	Perms uint32 = 0o777
	// BlockSize is the block and fragment size reported by statfs
	BlockSize = 1024
	// NameMax is the longest name reported by statfs
	NameMax = 255
	// MaxFileSize bounds the content of a single file; writes past it fail
	// with EFBIG
	MaxFileSize = 1 << 30
	// Placeholder is the content of a remote locator file until it is read
	Placeholder = "loading"
	// DataExt is appended to column names of non media cells
	DataExt = ".txt"
)

// Attr is a snapshot of the attributes of one node
type Attr struct {
	Ino   uint64
	Mode  uint32
	Size  uint64
	Nlink uint32
	Uid   uint32
	Gid   uint32
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

// IsDir reports whether the attributes describe a directory
func (a Attr) IsDir() bool {
	return a.Mode&DirAttr != 0
}

// Blocks returns the number of 512 byte blocks the content occupies
func (a Attr) Blocks() uint64 {
	return (a.Size + 511) / 512
}

// Statfs describes filesystem capacity
type Statfs struct {
	Bsize   uint32
	Frsize  uint32
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	NameMax uint32
}

// DirEntry is one entry of a directory listing
type DirEntry struct {
	Name string
	Ino  uint64
	Mode uint32
}

// owner ids are fixed for the process; Windows reports -1
func processOwner() (uid, gid uint32) {
	return uint32(max(os.Getuid(), 0)), uint32(max(os.Getgid(), 0))
}
