// Package server mounts a [filesystem.FileSystem] through the native FUSE
// mechanism of the platform: go-fuse on Linux and macOS, WinFsp through
// cgofuse on Windows.
package server

import (
	"errors"
	"sync"

	"github.com/brettbedarf/resultfs/config"
	"github.com/brettbedarf/resultfs/filesystem"
)

// ErrAlreadyMounted is returned by Serve when the server is mounted
var ErrAlreadyMounted = errors.New("filesystem already mounted")

// mounter is the platform specific mount implementation
type mounter interface {
	mount(mountPoint string) error
	unmount() error
}

// ResultFS serves a filesystem tree through FUSE
type ResultFS struct {
	*filesystem.FileSystem
	cfg *config.Config

	mu   sync.Mutex
	host mounter
}

// New wraps fs for mounting with the FUSE settings of cfg
func New(cfg *config.Config, fs *filesystem.FileSystem) *ResultFS {
	return &ResultFS{FileSystem: fs, cfg: cfg}
}

// Serve mounts the filesystem at mountPoint and returns once the mount is
// ready. Requests are served in the background until Unmount.
func (s *ResultFS) Serve(mountPoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.host != nil {
		return ErrAlreadyMounted
	}
	host := newMounter(s.cfg, s.FileSystem)
	if err := host.mount(mountPoint); err != nil {
		return err
	}
	s.host = host
	return nil
}

func (s *ResultFS) ServeAsync(mountPoint string) <-chan error {
	done := make(chan error, 1)

	go func() {
		done <- s.Serve(mountPoint)
		close(done)
	}()

	return done
}

// Unmount cleanly unmounts the filesystem. It is a no-op when not mounted.
func (s *ResultFS) Unmount() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.host == nil {
		return nil
	}
	if err := s.host.unmount(); err != nil {
		return err
	}
	s.host = nil
	return nil
}
