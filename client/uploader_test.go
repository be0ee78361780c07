package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brettbedarf/resultfs"
)

type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

func str(s string) *string { return &s }

func createTestChangeSet() *resultfs.ChangeSet {
	return &resultfs.ChangeSet{
		Table: "public.people",
		Updates: []resultfs.RowChange{{
			PrimaryKey: map[string]*string{"id": str("1")},
			Values: map[string]resultfs.CellChange{
				"name":  resultfs.ValueCell("Grace"),
				"photo": resultfs.FileCell([]byte("jpeg bytes"), "file-abc"),
			},
		}},
	}
}

func TestHTTPUploader_Upload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/"+BatchUpdateEndpoint, r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		assert.JSONEq(t, `{
			"tableId": "public.people",
			"updates": [{
				"oldPkValues": {"id": "1"},
				"newValues": {
					"name":  {"value": "Grace", "fileName": null},
					"photo": {"value": null, "fileName": "file-abc"}
				}
			}]
		}`, r.FormValue("request"))

		f, hdr, err := r.FormFile("file-abc")
		if assert.NoError(t, err) {
			defer f.Close()
			data, _ := io.ReadAll(f)
			assert.Equal(t, "jpeg bytes", string(data))
			assert.Equal(t, "file-abc", hdr.Filename)
		}

		_, _ = w.Write([]byte(`{"affectedRows": 1}`))
	}))
	defer srv.Close()

	u := NewHTTPUploader(srv.Client(), srv.URL+"/"+BatchUpdateEndpoint)
	out, err := u.Upload(context.Background(), createTestChangeSet())

	require.NoError(t, err)
	assert.Equal(t, resultfs.CommitOutcome{AffectedRows: 1}, out)
}

func TestHTTPUploader_EmptyChangeSet(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.JSONEq(t, `{"tableId":"t","updates":[]}`, r.FormValue("request"))
		assert.Empty(t, r.MultipartForm.File)
		_, _ = w.Write([]byte(`[{"info":{"affectedRows":0}}]`))
	}))
	defer srv.Close()

	u := NewHTTPUploader(srv.Client(), srv.URL)
	out, err := u.Upload(context.Background(), &resultfs.ChangeSet{Table: "t", Updates: []resultfs.RowChange{}})

	require.NoError(t, err)
	assert.Zero(t, out.AffectedRows)
}

func TestHTTPUploader_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "result error", status: http.StatusOK, body: `{"error":"duplicate key"}`, wantMsg: "duplicate key"},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantMsg: "status 500"},
		{name: "undecodable", status: http.StatusOK, body: "<html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			u := NewHTTPUploader(srv.Client(), srv.URL)
			_, err := u.Upload(context.Background(), createTestChangeSet())

			require.ErrorIs(t, err, resultfs.ErrUploadFailed)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestHTTPUploader_TransportError(t *testing.T) {
	t.Parallel()

	client := &MockHTTPClient{}
	client.On("Do", mock.Anything).Return(nil, errors.New("connection refused"))

	u := NewHTTPUploader(client, "http://db.local/batchUpdate")
	_, err := u.Upload(context.Background(), createTestChangeSet())

	assert.ErrorIs(t, err, resultfs.ErrUploadFailed)
	client.AssertExpectations(t)
}
