package depot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"siphon/internal/services"
)

const (
	userAgent      = "Siphon-Go/0.1.0"
	defaultTimeout = 60 * time.Second
)

// Entry is one immediate child of a depot directory. Name is a base name;
// callers join it onto the directory they listed.
type Entry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Dir  bool   `json:"dir"`
}

// Client browses and fetches files from a depot, a remote namespace
// addressed by depot: URIs.
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

// New builds a depot client for the given base URL.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "depot", "new", "depot URL is not configured", nil)
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

// List returns the immediate entries of the depot directory at path.
func (c *Client) List(ctx context.Context, p string) ([]Entry, error) {
	resp, err := c.do(ctx, "list", p)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("list", p, resp.StatusCode)
	}
	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, services.Wrap(services.ErrTransient, "depot", "list",
			fmt.Sprintf("decode listing of %s", p), err)
	}
	return entries, nil
}

// Download fetches the file at path into destDir under its base name and
// returns the written path.
func (c *Client) Download(ctx context.Context, p, destDir string) (string, error) {
	resp, err := c.do(ctx, "fetch", p)
	if err != nil {
		return "", err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError("fetch", p, resp.StatusCode)
	}

	dest := filepath.Join(destDir, baseName(p))
	out, err := os.Create(dest)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "depot", "fetch",
			fmt.Sprintf("create %s", dest), err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		_ = os.Remove(dest)
		return "", services.Wrap(services.ErrTransient, "depot", "fetch",
			fmt.Sprintf("download %s", p), err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return "", services.Wrap(services.ErrTransient, "depot", "fetch",
			fmt.Sprintf("write %s", dest), err)
	}
	return dest, nil
}

func (c *Client) do(ctx context.Context, endpoint, p string) (*http.Response, error) {
	query := url.Values{"path": []string{p}}
	target := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "depot", endpoint, "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.TransportMarker(err), "depot", endpoint,
			fmt.Sprintf("GET %s", p), err)
	}
	return resp, nil
}

func (c *Client) statusError(operation, p string, status int) error {
	return services.Wrap(services.StatusMarker(status), "depot", operation,
		fmt.Sprintf("%s returned %d %s", p, status, http.StatusText(status)), nil)
}

// baseName strips the depot: scheme before taking the final path element,
// so depot:SURVEY/night1/scan.fits lands as scan.fits.
func baseName(p string) string {
	return path.Base(strings.TrimPrefix(p, "depot:"))
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
