package filesystem

import (
	"net/url"
	"path"
	"strconv"

	"github.com/brettbedarf/resultfs"
	"github.com/brettbedarf/resultfs/internal/util"
)

// Project replaces the tree with one directory per row of res and one file
// per non-null cell. The root lock is held for the whole rebuild, so a
// concurrent listing sees either the old or the new tree.
//
// A nil result or one carrying an error leaves an empty tree and no active
// result.
func (fs *FileSystem) Project(res *resultfs.Result) {
	logger := util.GetLogger("FS.Project")
	root := fs.root

	root.childMu.Lock()
	defer root.childMu.Unlock()

	root.clearLocked()
	if res == nil || res.Error != "" {
		fs.active.Store(nil)
		if res != nil {
			logger.Warn().Str("error", res.Error).Msg("Result carries an error; tree cleared")
		}
		fs.metrics.RecordProjection(0)
		return
	}
	fs.active.Store(res)

	for i, row := range res.Rows {
		pk, _ := res.PrimaryKey(i)
		dir := newDirectory(fs.nextIno(), strconv.Itoa(i), &RowRef{Result: res, Index: i, PrimaryKey: pk})
		for j, col := range res.Columns {
			if j >= len(row) || row[j] == nil {
				continue
			}
			dir.attachLocked(fs.projectCell(col, *row[j]))
		}
		// attach only once fully built
		root.attachLocked(dir)
	}
	fs.metrics.RecordProjection(len(res.Rows))
	logger.Debug().Str("table", res.Table).Int("rows", len(res.Rows)).Msg("Projected result")
}

// Reset empties the tree and forgets the active result
func (fs *FileSystem) Reset() {
	fs.Project(nil)
}

func (fs *FileSystem) projectCell(col resultfs.Column, cell string) *File {
	if col.DataType.IsMedia() {
		loc := fs.locatorFor(cell)
		return newRemoteFile(fs.nextIno(), col.Name+locatorExt(loc), loc)
	}
	return newDataFile(fs.nextIno(), col.Name+DataExt, cell)
}

// locatorFor keeps absolute URLs and resolves anything else against the
// front end's file endpoint
func (fs *FileSystem) locatorFor(cell string) string {
	if u, err := url.Parse(cell); err == nil && u.IsAbs() && u.Host != "" {
		return cell
	}
	return fs.cfg.FileURL(cell)
}

// locatorExt is the extension of the URL path, e.g. ".png"
func locatorExt(loc string) string {
	u, err := url.Parse(loc)
	if err != nil {
		return path.Ext(loc)
	}
	return path.Ext(u.Path)
}
