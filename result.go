package resultfs

import (
	"fmt"
	"strings"
)

// DataType is the column type reported by the query executor
type DataType string

// Media data types are projected as remote locator files rather than
// carrying the cell text directly.
const (
	DataTypeFile  DataType = "FILE"
	DataTypeImage DataType = "IMAGE"
	DataTypeVideo DataType = "VIDEO"
	DataTypeSound DataType = "SOUND"
)

// IsMedia reports whether cells of this type reference external binary content
func (d DataType) IsMedia() bool {
	switch DataType(strings.ToUpper(string(d))) {
	case DataTypeFile, DataTypeImage, DataTypeVideo, DataTypeSound:
		return true
	}
	return false
}

// Column describes one column of a [Result]
type Column struct {
	Name     string   `json:"name"`
	DataType DataType `json:"dataType"`
	Primary  bool     `json:"primary"`
}

// ResultInfo carries execution details some front end versions nest
// under "info"
type ResultInfo struct {
	AffectedRows int `json:"affectedRows"`
}

// Result is a query result as delivered by the query executor.
// Rows are rectangular; a nil cell is SQL NULL.
type Result struct {
	Table          string      `json:"table,omitempty"`
	Columns        []Column    `json:"header,omitempty"`
	Rows           [][]*string `json:"data,omitempty"`
	Error          string      `json:"error,omitempty"`
	AffectedRows   *int        `json:"affectedRows,omitempty"`
	Info           *ResultInfo `json:"info,omitempty"`
	GeneratedQuery string      `json:"generatedQuery,omitempty"`
}

// Affected returns the number of affected rows from whichever field the
// front end filled in
func (r *Result) Affected() int {
	if r.Info != nil {
		return r.Info.AffectedRows
	}
	if r.AffectedRows != nil {
		return *r.AffectedRows
	}
	return 0
}

// Column looks up a column by its exact name
func (r *Result) Column(name string) (Column, bool) {
	if r == nil {
		return Column{}, false
	}
	for _, c := range r.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ContainsColumn reports whether the logical column of fileName (the name
// without its trailing extension) matches a column of this result
func (r *Result) ContainsColumn(fileName string) bool {
	_, ok := r.Column(LogicalColumn(fileName))
	return ok
}

// PrimaryKey returns the primary key column values of the given row
func (r *Result) PrimaryKey(row int) (map[string]*string, error) {
	if row < 0 || row >= len(r.Rows) {
		return nil, fmt.Errorf("row %d does not exist in the result", row)
	}
	pk := make(map[string]*string)
	for j, c := range r.Columns {
		if !c.Primary {
			continue
		}
		var v *string
		if j < len(r.Rows[row]) {
			v = r.Rows[row][j]
		}
		pk[c.Name] = v
	}
	return pk, nil
}

// LogicalColumn strips a trailing extension from a file name so that
// "photo.png" and "photo.jpg" both correlate to column "photo"
func LogicalColumn(fileName string) string {
	if i := strings.LastIndexByte(fileName, '.'); i >= 0 {
		return fileName[:i]
	}
	return fileName
}
