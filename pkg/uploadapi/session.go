package uploadapi

import (
	"encoding/json"
	"fmt"
)

// Session is a short-lived upload grant issued by upload_init. The URL is
// pre-authorized and single-use: it must be consumed by exactly one Upload
// call and never reused, even after a failed transfer.
type Session struct {
	UploadURL string
}

// initResponse is the upload_init payload. Other fields may be present;
// only upload_url is contractual.
type initResponse struct {
	UploadURL string `json:"upload_url"`
}

// parseSession validates an upload_init body and builds the Session. A
// body that is not a JSON object or lacks a usable upload_url is a
// contract violation.
func parseSession(body []byte) (*Session, error) {
	var resp initResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing upload_init response: %w", err)
	}

	if resp.UploadURL == "" {
		return nil, fmt.Errorf("upload_init response has no upload_url field")
	}

	return &Session{UploadURL: resp.UploadURL}, nil
}
