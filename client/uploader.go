package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/brettbedarf/resultfs"
	"github.com/brettbedarf/resultfs/adapters"
	"github.com/brettbedarf/resultfs/internal/util"
	"github.com/brettbedarf/resultfs/requests"
)

// BatchUpdateEndpoint is the REST endpoint accepting change sets
const BatchUpdateEndpoint = "batchUpdate"

// requestField carries the JSON change set inside the multipart body
const requestField = "request"

// HTTPUploader implements [resultfs.Uploader] against the REST interface of
// the front end
type HTTPUploader struct {
	client adapters.HTTPDoer
	url    string
}

// NewHTTPUploader posts to url using client, or http.DefaultClient when nil
func NewHTTPUploader(client adapters.HTTPDoer, url string) *HTTPUploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPUploader{client: client, url: url}
}

// encodeChangeSet writes the multipart body: one part per attachment named
// by its generated file name, then the change set itself.
func encodeChangeSet(cs *resultfs.ChangeSet) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for _, att := range cs.Attachments() {
		part, err := mw.CreateFormFile(att.Name, att.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(att.Data); err != nil {
			return nil, "", err
		}
	}

	payload, err := json.Marshal(cs)
	if err != nil {
		return nil, "", err
	}
	if err := mw.WriteField(requestField, string(payload)); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &body, mw.FormDataContentType(), nil
}

// Upload sends cs and waits for the answer. Transport errors, non 2xx
// statuses and results carrying an error all wrap [resultfs.ErrUploadFailed].
func (u *HTTPUploader) Upload(ctx context.Context, cs *resultfs.ChangeSet) (resultfs.CommitOutcome, error) {
	logger := util.GetLogger("HTTPUploader.Upload")

	body, contentType, err := encodeChangeSet(cs)
	if err != nil {
		return resultfs.CommitOutcome{}, fmt.Errorf("%w: encoding change set: %w", resultfs.ErrUploadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, body)
	if err != nil {
		return resultfs.CommitOutcome{}, fmt.Errorf("%w: %w", resultfs.ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", contentType)

	logger.Debug().Str("url", u.url).Str("table", cs.Table).Int("rows", len(cs.Updates)).Msg("Uploading change set")
	resp, err := u.client.Do(req)
	if err != nil {
		return resultfs.CommitOutcome{}, fmt.Errorf("%w: %w", resultfs.ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resultfs.CommitOutcome{}, fmt.Errorf("%w: reading response: %w", resultfs.ErrUploadFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resultfs.CommitOutcome{}, fmt.Errorf("%w: status %d", resultfs.ErrUploadFailed, resp.StatusCode)
	}

	res, err := requests.UnmarshalResult(data)
	if err != nil {
		return resultfs.CommitOutcome{}, fmt.Errorf("%w: %w", resultfs.ErrUploadFailed, err)
	}
	if res.Error != "" {
		return resultfs.CommitOutcome{}, fmt.Errorf("%w: %s", resultfs.ErrUploadFailed, res.Error)
	}
	return resultfs.CommitOutcome{AffectedRows: res.Affected()}, nil
}

var _ resultfs.Uploader = (*HTTPUploader)(nil)
