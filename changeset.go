package resultfs

import (
	"encoding/json"
	"sort"
)

// CellChangeKind selects how a column is assigned
type CellChangeKind int

const (
	SetNull CellChangeKind = iota
	SetValue
	SetFile
)

func (k CellChangeKind) String() string {
	switch k {
	case SetValue:
		return "SetValue"
	case SetFile:
		return "SetFile"
	default:
		return "SetNull"
	}
}

// CellChange is the new value of one logical column.
// For SetFile the bytes are not part of the JSON payload; they are sent as
// an attachment named FileName.
type CellChange struct {
	Kind     CellChangeKind
	Value    string
	Data     []byte
	FileName string
}

// NullCell returns a change that sets the column to NULL
func NullCell() CellChange { return CellChange{Kind: SetNull} }

// ValueCell returns a change that sets the column to a textual value
func ValueCell(v string) CellChange { return CellChange{Kind: SetValue, Value: v} }

// FileCell returns a change that sets the column from binary content
func FileCell(data []byte, name string) CellChange {
	return CellChange{Kind: SetFile, Data: data, FileName: name}
}

// cellChangeDTO is the wire form; both fields null means SetNull
type cellChangeDTO struct {
	Value    *string `json:"value"`
	FileName *string `json:"fileName"`
}

func (c CellChange) MarshalJSON() ([]byte, error) {
	var dto cellChangeDTO
	switch c.Kind {
	case SetValue:
		dto.Value = &c.Value
	case SetFile:
		dto.FileName = &c.FileName
	}
	return json.Marshal(dto)
}

// RowChange holds the primary key snapshot taken when the row was projected
// and the new values for every changed column of that row
type RowChange struct {
	PrimaryKey map[string]*string    `json:"oldPkValues"`
	Values     map[string]CellChange `json:"newValues"`
}

// ChangeSet is the reconciled description of all edits to one table
type ChangeSet struct {
	Table   string      `json:"tableId"`
	Updates []RowChange `json:"updates"`
}

// Attachment is the binary content of a SetFile change
type Attachment struct {
	Name string
	Data []byte
}

// Attachments lists the binary payloads referenced by SetFile changes,
// ordered by name
func (cs *ChangeSet) Attachments() []Attachment {
	var out []Attachment
	for _, u := range cs.Updates {
		for _, v := range u.Values {
			if v.Kind == SetFile {
				out = append(out, Attachment{Name: v.FileName, Data: v.Data})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
