package resultfs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func TestDataType_IsMedia(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dt   DataType
		want bool
	}{
		{DataTypeFile, true},
		{DataTypeImage, true},
		{DataTypeVideo, true},
		{DataTypeSound, true},
		{"image", true},
		{"VARCHAR", false},
		{"INTEGER", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.dt.IsMedia(), "%q", tt.dt)
	}
}

func TestLogicalColumn(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"name.txt":    "name",
		"photo.png":   "photo",
		"a.b.txt":     "a.b",
		"noext":       "noext",
		".hidden":     "",
		"archive.tar": "archive",
	}
	for in, want := range tests {
		assert.Equal(t, want, LogicalColumn(in), in)
	}
}

func TestResult_DecodeWire(t *testing.T) {
	t.Parallel()

	raw := `{
		"table": "public.people",
		"header": [
			{"name": "id", "dataType": "INTEGER", "primary": true},
			{"name": "name", "dataType": "VARCHAR"},
			{"name": "photo", "dataType": "IMAGE"}
		],
		"data": [["1", "Ada", null]],
		"info": {"affectedRows": 1}
	}`

	var res Result
	require.NoError(t, json.Unmarshal([]byte(raw), &res))

	assert.Equal(t, "public.people", res.Table)
	require.Len(t, res.Columns, 3)
	assert.True(t, res.Columns[0].Primary)
	assert.Equal(t, DataTypeImage, res.Columns[2].DataType)
	require.Len(t, res.Rows, 1)
	assert.Nil(t, res.Rows[0][2])
	assert.Equal(t, "Ada", *res.Rows[0][1])
	assert.Equal(t, 1, res.Affected())
}

func TestResult_Affected(t *testing.T) {
	t.Parallel()

	n := 4
	assert.Equal(t, 0, (&Result{}).Affected())
	assert.Equal(t, 4, (&Result{AffectedRows: &n}).Affected())
	assert.Equal(t, 2, (&Result{AffectedRows: &n, Info: &ResultInfo{AffectedRows: 2}}).Affected())
}

func TestResult_ContainsColumn(t *testing.T) {
	t.Parallel()

	res := &Result{Columns: []Column{{Name: "name"}, {Name: "photo"}}}

	assert.True(t, res.ContainsColumn("name.txt"))
	assert.True(t, res.ContainsColumn("photo.jpg"))
	assert.True(t, res.ContainsColumn("photo"))
	assert.False(t, res.ContainsColumn("notes.md"))
	assert.False(t, res.ContainsColumn("name"+".txt.bak"))

	var none *Result
	assert.False(t, none.ContainsColumn("name.txt"), "nil result has no columns")
}

func TestResult_PrimaryKey(t *testing.T) {
	t.Parallel()

	res := &Result{
		Columns: []Column{
			{Name: "a", Primary: true},
			{Name: "b"},
			{Name: "c", Primary: true},
		},
		Rows: [][]*string{
			{str("1"), str("x"), nil},
			{str("2")},
		},
	}

	pk, err := res.PrimaryKey(0)
	require.NoError(t, err)
	assert.Equal(t, map[string]*string{"a": str("1"), "c": nil}, pk)

	pk, err = res.PrimaryKey(1)
	require.NoError(t, err)
	assert.Equal(t, map[string]*string{"a": str("2"), "c": nil}, pk, "short rows read as null")

	_, err = res.PrimaryKey(2)
	assert.Error(t, err)
	_, err = res.PrimaryKey(-1)
	assert.Error(t, err)
}
