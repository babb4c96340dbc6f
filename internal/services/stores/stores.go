package stores

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"siphon/internal/fileutil"
	"siphon/internal/services"
)

const (
	userAgent      = "Siphon-Go/0.1.0"
	defaultTimeout = 60 * time.Second

	streamHeader = "X-Archive-Stream"
)

// FileInfo describes a stored file as reported by a HEAD request. MD5 is
// the hex digest of the stored bytes; Name is the filename the store
// advertises through Content-Disposition, falling back to the file id.
type FileInfo struct {
	Name   string
	Size   int64
	MD5    string
	Stream string
}

// Client talks to the archive data store. Files are addressed by
// ARCHIVE/file_id. The client makes a single attempt per call; retry
// policy belongs to the caller.
type Client struct {
	baseURL string
	client  *http.Client
}

// Option adjusts client construction.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client, primarily for
// tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.client = httpClient
		}
	}
}

// New builds a data-store client for the given base URL.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "stores", "new", "store URL is not configured", nil)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Info reports whether archive/fileID exists in the store and, when it
// does, the stored file's name, size, digest, and stream.
func (c *Client) Info(ctx context.Context, archive, fileID string) (FileInfo, bool, error) {
	req, err := c.newRequest(ctx, http.MethodHead, c.fileURL(archive, fileID), nil)
	if err != nil {
		return FileInfo{}, false, services.Wrap(services.ErrValidation, "stores", "info", "build request", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return FileInfo{}, false, services.Wrap(services.TransportMarker(err), "stores", "info",
			fmt.Sprintf("HEAD %s/%s", archive, fileID), err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return fileInfoFrom(fileID, resp), true, nil
	case http.StatusNotFound:
		return FileInfo{}, false, nil
	default:
		return FileInfo{}, false, c.statusError("info", archive, fileID, resp.StatusCode)
	}
}

// Get downloads the stored bytes of archive/fileID into destDir and
// returns the written path. The local filename comes from
// Content-Disposition when the store sends one, otherwise the file id.
func (c *Client) Get(ctx context.Context, archive, fileID, destDir string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.fileURL(archive, fileID), nil)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "stores", "get", "build request", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.TransportMarker(err), "stores", "get",
			fmt.Sprintf("GET %s/%s", archive, fileID), err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError("get", archive, fileID, resp.StatusCode)
	}

	name := filenameFromDisposition(resp.Header.Get("Content-Disposition"), fileID)
	dest := filepath.Join(destDir, name)
	out, err := os.Create(dest)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "stores", "get",
			fmt.Sprintf("create %s", dest), err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		_ = os.Remove(dest)
		return "", services.Wrap(services.ErrTransient, "stores", "get",
			fmt.Sprintf("download %s/%s", archive, fileID), err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return "", services.Wrap(services.ErrTransient, "stores", "get",
			fmt.Sprintf("write %s", dest), err)
	}
	return dest, nil
}

// Put uploads the file at path as archive/fileID. The request carries the
// hex MD5 of the local bytes so the store can reject corrupt transfers,
// and the stream header when stream is non-empty. The store signals
// success with 201 Created; anything else is a failure.
func (c *Client) Put(ctx context.Context, path, archive, fileID, stream string) error {
	digest, err := fileutil.MD5File(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "stores", "put",
			fmt.Sprintf("digest %s", path), err)
	}
	src, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "stores", "put",
			fmt.Sprintf("open %s", path), err)
	}
	defer src.Close()
	stat, err := src.Stat()
	if err != nil {
		return services.Wrap(services.ErrValidation, "stores", "put",
			fmt.Sprintf("stat %s", path), err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, c.fileURL(archive, fileID), src)
	if err != nil {
		return services.Wrap(services.ErrValidation, "stores", "put", "build request", err)
	}
	req.ContentLength = stat.Size()
	req.Header.Set("Content-MD5", digest)
	if stream = strings.TrimSpace(stream); stream != "" {
		req.Header.Set(streamHeader, stream)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.TransportMarker(err), "stores", "put",
			fmt.Sprintf("PUT %s/%s", archive, fileID), err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusCreated {
		return c.statusError("put", archive, fileID, resp.StatusCode)
	}
	return nil
}

// Delete removes archive/fileID from the store. Deleting a file that is
// already absent returns an ErrNotFound-tagged error.
func (c *Client) Delete(ctx context.Context, archive, fileID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, c.fileURL(archive, fileID), nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "stores", "delete", "build request", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.TransportMarker(err), "stores", "delete",
			fmt.Sprintf("DELETE %s/%s", archive, fileID), err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	default:
		return c.statusError("delete", archive, fileID, resp.StatusCode)
	}
}

func (c *Client) fileURL(archive, fileID string) string {
	return strings.Join([]string{c.baseURL, archive, fileID}, "/")
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

func (c *Client) statusError(operation, archive, fileID string, status int) error {
	return services.Wrap(services.StatusMarker(status), "stores", operation,
		fmt.Sprintf("%s/%s returned %d %s", archive, fileID, status, http.StatusText(status)), nil)
}

func fileInfoFrom(fileID string, resp *http.Response) FileInfo {
	info := FileInfo{
		Name:   filenameFromDisposition(resp.Header.Get("Content-Disposition"), fileID),
		MD5:    strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-MD5"))),
		Stream: strings.TrimSpace(resp.Header.Get(streamHeader)),
	}
	if resp.ContentLength > 0 {
		info.Size = resp.ContentLength
	}
	return info
}

func filenameFromDisposition(disposition, fallback string) string {
	if disposition == "" {
		return fallback
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return fallback
	}
	name := strings.TrimSpace(params["filename"])
	if name == "" {
		return fallback
	}
	// Never let a response header point outside destDir.
	return filepath.Base(name)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
