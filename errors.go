package resultfs

import (
	"errors"
	"syscall"
)

// Filesystem errors are plain errno values so they can be handed to the
// native FUSE layer as status codes.
var (
	ErrNotFound      error = syscall.ENOENT
	ErrAlreadyExists error = syscall.EEXIST
	ErrNotADirectory error = syscall.ENOTDIR
	ErrIsADirectory  error = syscall.EISDIR
)

var (
	// ErrFetchFailed is returned by fetchers when a remote locator could not
	// be resolved. Reads swallow it into an empty file.
	ErrFetchFailed = errors.New("remote fetch failed")

	// ErrMissingTable is returned by commit when the active result has no
	// table name. Nothing is sent upstream.
	ErrMissingTable = errors.New("cannot commit because of missing table name")

	// ErrUploadFailed is returned by commit when the upload call failed or
	// the front end answered with an error. The tree is left unchanged.
	ErrUploadFailed = errors.New("upload failed")
)
