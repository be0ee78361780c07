// Package session ties the filesystem to its upstream collaborators: results
// delivered from the front end are projected onto the tree, commits are
// reconciled into change sets and uploaded.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/brettbedarf/resultfs"
	"github.com/brettbedarf/resultfs/filesystem"
	"github.com/brettbedarf/resultfs/internal/metrics"
	"github.com/brettbedarf/resultfs/internal/util"
)

type Session struct {
	id        string
	fs        *filesystem.FileSystem
	uploader  resultfs.Uploader
	submitter resultfs.QuerySubmitter
	metrics   metrics.FSMetrics
}

type Option func(*Session)

func WithMetrics(m metrics.FSMetrics) Option {
	return func(s *Session) { s.metrics = m }
}

// New creates a session for fs. submitter may be nil when results are
// delivered by other means.
func New(fs *filesystem.FileSystem, uploader resultfs.Uploader, submitter resultfs.QuerySubmitter, opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		fs:        fs,
		uploader:  uploader,
		submitter: submitter,
		metrics:   metrics.NewNoopFSMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) FS() *filesystem.FileSystem { return s.fs }

// DeliverResult replaces the tree with the projection of res
func (s *Session) DeliverResult(res *resultfs.Result) {
	logger := util.GetLogger("Session.DeliverResult")
	if res == nil {
		logger.Debug().Str("session", s.id).Msg("Nil result; clearing tree")
	} else {
		logger.Debug().Str("session", s.id).Str("table", res.Table).Int("rows", len(res.Rows)).Msg("Projecting result")
	}
	s.fs.Project(res)
}

// Commit reconciles the tree and uploads the change set. On failure the
// tree is left as it is so the commit can be retried.
func (s *Session) Commit(ctx context.Context) (resultfs.CommitOutcome, error) {
	logger := util.GetLogger("Session.Commit")

	cs, err := s.fs.ChangeSet(ctx)
	if err != nil {
		s.metrics.RecordCommit(0, err)
		return resultfs.CommitOutcome{}, err
	}

	logger.Info().Str("session", s.id).Str("table", cs.Table).Int("rows", len(cs.Updates)).
		Int("attachments", len(cs.Attachments())).Msg("Committing change set")

	out, err := s.uploader.Upload(ctx, cs)
	if err != nil && !errors.Is(err, resultfs.ErrUploadFailed) {
		err = fmt.Errorf("%w: %w", resultfs.ErrUploadFailed, err)
	}
	s.metrics.RecordCommit(len(cs.Updates), err)
	if err != nil {
		logger.Error().Err(err).Str("session", s.id).Msg("Commit failed")
		return resultfs.CommitOutcome{}, err
	}

	logger.Info().Str("session", s.id).Int("affected", out.AffectedRows).Msg("Commit succeeded")
	return out, nil
}

// SubmitQuery clears the tree and asks for the result of query
func (s *Session) SubmitQuery(ctx context.Context, query string) error {
	if s.submitter == nil {
		return errors.New("no query submitter configured")
	}
	s.fs.Reset()
	return s.submitter.SubmitQuery(ctx, query)
}

// SubmitTable clears the tree and asks for the content of tableID
func (s *Session) SubmitTable(ctx context.Context, tableID string) error {
	if s.submitter == nil {
		return errors.New("no query submitter configured")
	}
	s.fs.Reset()
	return s.submitter.SubmitTable(ctx, tableID)
}
