package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// MountOptions holds high-level settings for mounting.
// No FUSE library types are exposed here.
type MountOptions struct {
	Debug  bool   // fuse debug logs
	FsName string // mount's FsName
	Name   string // mount's Name
}

// DefaultMountPoint returns the platform mount point: a drive letter on
// Windows, a directory under the user's home elsewhere.
func DefaultMountPoint() string {
	if runtime.GOOS == "windows" {
		return DefaultWindowsDrive
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".polypheny", "qtf")
}
