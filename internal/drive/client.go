// Package drive is a small client for the Google Drive REST v3 file API:
// just enough to keep JSON drafts in one folder.
package drive

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
	"net/url"
	"strings"
)

const (
	DefaultBaseURL   = "https://www.googleapis.com/drive/v3"
	DefaultUploadURL = "https://www.googleapis.com/upload/drive/v3"

	FolderMimeType = "application/vnd.google-apps.folder"
	JSONMimeType   = "application/json"

	multipartBoundary = "foo_bar_baz"
	maxErrorBody      = 4 << 10
)

var (
	// ErrNetwork covers transport failures and non-2xx responses.
	ErrNetwork = errors.New("drive request failed")

	// ErrUnauthorized is matched by a 401 response.
	ErrUnauthorized = errors.New("drive rejected credentials")
)

// APIError is a non-2xx response from Drive.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("drive: %s", e.Status)
	}
	return fmt.Sprintf("drive: %s: %s", e.Status, e.Body)
}

// Is reports ErrNetwork for every status and ErrUnauthorized for 401.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return true
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// File is the subset of Drive file metadata the client uses.
type File struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType,omitempty"`
	Parents  []string `json:"parents,omitempty"`
}

type fileList struct {
	Files []File `json:"files"`
}

// Client talks to Drive through an already-authenticated HTTP client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	uploadURL  string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the metadata endpoint root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithUploadURL overrides the upload endpoint root.
func WithUploadURL(u string) Option {
	return func(c *Client) {
		c.uploadURL = strings.TrimRight(u, "/")
	}
}

// New creates a client. httpClient is expected to attach credentials.
func New(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient: httpClient,
		baseURL:    DefaultBaseURL,
		uploadURL:  DefaultUploadURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindFolder returns the first non-trashed folder with the given name, or
// nil when there is none.
func (c *Client) FindFolder(ctx context.Context, name string) (*File, error) {
	q := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", quote(name), FolderMimeType)
	return c.findOne(ctx, q)
}

// CreateFolder creates a folder in the Drive root.
func (c *Client) CreateFolder(ctx context.Context, name string) (*File, error) {
	body, err := json.Marshal(File{Name: name, MimeType: FolderMimeType})
	if err != nil {
		return nil, fmt.Errorf("marshal folder: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", JSONMimeType)

	var f File
	if err := c.do(req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FindFile returns the first non-trashed file with the given name inside
// parentID, or nil when there is none.
func (c *Client) FindFile(ctx context.Context, name, parentID string) (*File, error) {
	q := fmt.Sprintf("name='%s' and '%s' in parents and trashed=false", quote(name), quote(parentID))
	return c.findOne(ctx, q)
}

// CreateFile uploads a new JSON file into parentID as one multipart/related
// request carrying metadata and content.
func (c *Client) CreateFile(ctx context.Context, name, parentID string, content []byte) (*File, error) {
	meta, err := json.Marshal(File{Name: name, MimeType: JSONMimeType, Parents: []string{parentID}})
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.SetBoundary(multipartBoundary); err != nil {
		return nil, fmt.Errorf("set boundary: %w", err)
	}
	for _, part := range [][]byte{meta, content} {
		pw, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {JSONMimeType + "; charset=UTF-8"}})
		if err != nil {
			return nil, fmt.Errorf("create part: %w", err)
		}
		if _, err := pw.Write(part); err != nil {
			return nil, fmt.Errorf("write part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL+"/files?uploadType=multipart", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+multipartBoundary)

	var f File
	if err := c.do(req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// UpdateFile replaces the content of an existing file in place.
func (c *Client) UpdateFile(ctx context.Context, fileID string, content []byte) (*File, error) {
	u := c.uploadURL + "/files/" + url.PathEscape(fileID) + "?uploadType=media"
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", JSONMimeType)

	var f File
	if err := c.do(req, &f); err != nil {
		return nil, err
	}
	if f.ID == "" {
		f.ID = fileID
	}
	return &f, nil
}

// Download returns the raw content of a file.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	u := c.baseURL + "/files/" + url.PathEscape(fileID) + "?alt=media"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}
	return data, nil
}

func (c *Client) findOne(ctx context.Context, q string) (*File, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("fields", "files(id,name,mimeType,parents)")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var list fileList
	if err := c.do(req, &list); err != nil {
		return nil, err
	}
	if len(list.Files) == 0 {
		return nil, nil
	}
	return &list.Files[0], nil
}

// do sends req and decodes a JSON response into out.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode response: %w", ErrNetwork, err)
	}
	return nil
}

// send performs req and turns non-2xx responses into *APIError.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return resp, nil
}

// quote escapes a value for use inside a single-quoted query literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
