package requests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brettbedarf/resultfs"
)

// ErrEmptyMessage is returned when a message holds no result
var ErrEmptyMessage = errors.New("message contains no result")

// GetRequestType extracts the request type from JSON without full unmarshaling
func GetRequestType(data []byte) (RequestType, error) {
	var meta UIRequestDTO
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", err
	}
	return meta.RequestType, nil
}

// UnmarshalResult decodes a result message. The front end sends either a
// single result object or an array of results; only the first element of
// an array is used.
func UnmarshalResult(data []byte) (*resultfs.Result, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyMessage
	}

	if data[0] == '[' {
		var results []*resultfs.Result
		if err := json.Unmarshal(data, &results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result array: %w", err)
		}
		if len(results) == 0 || results[0] == nil {
			return nil, ErrEmptyMessage
		}
		return results[0], nil
	}

	var res resultfs.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &res, nil
}
