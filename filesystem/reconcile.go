package filesystem

import (
	"context"
	"fmt"
	"maps"
	"sort"

	"github.com/google/uuid"

	"github.com/brettbedarf/resultfs"
)

// attachmentPrefix starts every generated SetFile name
const attachmentPrefix = "file-"

// ChangeSet reconciles the tree against the active result
func (fs *FileSystem) ChangeSet(ctx context.Context) (*resultfs.ChangeSet, error) {
	return Reconcile(ctx, fs.root, fs.ActiveResult(), fs.fetcher)
}

// Reconcile walks the row directories under root that were projected from
// res and collects one RowChange per row with at least one edited column.
// Only query-originated files written through the filesystem count.
// Media files still pointing at a remote locator are fetched with fetcher.
func Reconcile(ctx context.Context, root *Directory, res *resultfs.Result, fetcher resultfs.Fetcher) (*resultfs.ChangeSet, error) {
	if res == nil || res.Table == "" {
		return nil, resultfs.ErrMissingTable
	}

	root.childMu.RLock()
	var rows []*Directory
	for _, n := range root.childrenLocked(false) {
		if d, ok := n.(*Directory); ok && d.row != nil && d.row.Result == res {
			rows = append(rows, d)
		}
	}
	root.childMu.RUnlock()
	sort.Slice(rows, func(i, j int) bool { return rows[i].row.Index < rows[j].row.Index })

	cs := &resultfs.ChangeSet{Table: res.Table, Updates: []resultfs.RowChange{}}
	for _, d := range rows {
		values, err := reconcileRow(ctx, d, res, fetcher)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			continue
		}
		cs.Updates = append(cs.Updates, resultfs.RowChange{
			PrimaryKey: maps.Clone(d.row.PrimaryKey),
			Values:     values,
		})
	}
	return cs, nil
}

func reconcileRow(ctx context.Context, d *Directory, res *resultfs.Result, fetcher resultfs.Fetcher) (map[string]resultfs.CellChange, error) {
	d.childMu.RLock()
	children := d.childrenLocked(true)
	d.childMu.RUnlock()

	values := make(map[string]resultfs.CellChange)
	for _, n := range children {
		f, ok := n.(*File)
		if !ok {
			continue
		}
		col, ok := res.Column(f.LogicalColumn())
		if !ok {
			continue
		}
		snap := f.snapshot()
		if !snap.fromFS {
			continue
		}

		prev, seen := values[col.Name]
		if snap.op == OpDeleted {
			// a live value for the same column wins over a tombstone
			if !seen {
				values[col.Name] = resultfs.NullCell()
			}
			continue
		}
		if seen && prev.Kind != resultfs.SetNull {
			continue
		}

		change, err := cellChange(ctx, f, col, snap, fetcher)
		if err != nil {
			return nil, err
		}
		values[col.Name] = change
	}
	return values, nil
}

func cellChange(ctx context.Context, f *File, col resultfs.Column, snap fileSnapshot, fetcher resultfs.Fetcher) (resultfs.CellChange, error) {
	if !col.DataType.IsMedia() {
		return resultfs.ValueCell(string(snap.content)), nil
	}
	data := snap.content
	// Unlike a read, a failed fetch here fails the commit: an empty SetFile
	// would overwrite the stored content.
	if snap.locator != "" {
		if fetcher == nil {
			return resultfs.CellChange{}, fmt.Errorf("%w: no fetcher for %s", resultfs.ErrFetchFailed, f.Path())
		}
		var err error
		if data, err = fetcher.Fetch(ctx, snap.locator); err != nil {
			return resultfs.CellChange{}, fmt.Errorf("%w: %s: %w", resultfs.ErrFetchFailed, f.Path(), err)
		}
	}
	return resultfs.FileCell(data, attachmentPrefix+uuid.NewString()), nil
}
