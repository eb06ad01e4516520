package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// RemoteOptions configures a RemoteStore.
type RemoteOptions struct {
	Endpoint   string
	HTTPClient *http.Client
}

// RemoteStore posts the file as multipart field "photo" to an upload endpoint
// answering {"status":"success","fileUrl":...}.
type RemoteStore struct {
	endpoint string
	client   *http.Client
}

type remoteResponse struct {
	Status  string `json:"status"`
	FileURL string `json:"fileUrl"`
}

// NewRemoteStore validates opts and builds the store.
func NewRemoteStore(opts RemoteOptions) (*RemoteStore, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, errors.New("storage: remote upload url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &RemoteStore{endpoint: opts.Endpoint, client: client}, nil
}

func (s *RemoteStore) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename=%q`, fileName(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("storage: build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("storage: build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("storage: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("storage: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage: remote upload: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("storage: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("storage: remote upload status %d", resp.StatusCode)
	}
	var out remoteResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("storage: decode response: %w", err)
	}
	if out.Status != "success" || out.FileURL == "" {
		return "", fmt.Errorf("storage: remote upload rejected (status %q)", out.Status)
	}
	return out.FileURL, nil
}

func fileName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "upload.jpg"
	}
	return name
}

var _ BlobStore = (*RemoteStore)(nil)
