// Package resultfs contains core domain types and interfaces for projecting
// query results onto a filesystem tree and reconciling edits back into
// change sets.
package resultfs

import (
	"context"
)

// Fetcher resolves a remote locator (a reference to externally hosted
// column content such as an image) into its bytes.
// Implementations must be safe for concurrent use; every call is an
// independent fetch and no caching is expected.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// FetcherFunc adapts a plain function to a [Fetcher]
type FetcherFunc func(ctx context.Context, locator string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, locator string) ([]byte, error) {
	return f(ctx, locator)
}

// Uploader sends a reconciled [ChangeSet] to the database front end.
// Binary SetFile values travel as out-of-band attachments named by their
// generated file name. The call blocks until the front end answered.
type Uploader interface {
	Upload(ctx context.Context, cs *ChangeSet) (CommitOutcome, error)
}

// QuerySubmitter sends query and table requests upstream. Results arrive
// asynchronously through whatever delivers [Result] values.
type QuerySubmitter interface {
	SubmitQuery(ctx context.Context, query string) error
	SubmitTable(ctx context.Context, tableID string) error
}

// CommitOutcome is the answer of the front end to an upload
type CommitOutcome struct {
	AffectedRows int
}
