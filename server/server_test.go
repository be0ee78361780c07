package server

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brettbedarf/resultfs/config"
	"github.com/brettbedarf/resultfs/filesystem"
)

type mockMounter struct {
	mock.Mock
}

func (m *mockMounter) mount(mountPoint string) error {
	return m.Called(mountPoint).Error(0)
}

func (m *mockMounter) unmount() error {
	return m.Called().Error(0)
}

func newTestServer() *ResultFS {
	cfg := config.NewDefaultConfig()
	return New(cfg, filesystem.NewFS(cfg, nil))
}

func TestResultFS_UnmountWhenNotMounted(t *testing.T) {
	t.Parallel()

	assert.NoError(t, newTestServer().Unmount())
}

func TestResultFS_ServeTwice(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	host := &mockMounter{}
	s.host = host

	assert.ErrorIs(t, s.Serve("/mnt/x"), ErrAlreadyMounted)
	host.AssertNotCalled(t, "mount", mock.Anything)
}

func TestResultFS_Unmount(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	host := &mockMounter{}
	host.On("unmount").Return(errors.New("busy")).Once()
	host.On("unmount").Return(nil).Once()
	s.host = host

	require.EqualError(t, s.Unmount(), "busy")
	assert.NotNil(t, s.host, "still mounted after a failed unmount")

	require.NoError(t, s.Unmount())
	assert.Nil(t, s.host)
	assert.NoError(t, s.Unmount())
	host.AssertExpectations(t)
}
