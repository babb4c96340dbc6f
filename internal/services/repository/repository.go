package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"siphon/internal/services"
)

const (
	userAgent      = "Siphon-Go/0.1.0"
	defaultTimeout = 60 * time.Second

	defaultRetries     = 4
	defaultBackoffBase = 10 * time.Second
	defaultBackoffMax  = 80 * time.Second
)

// Client talks to the observation repository. Documents are addressed by
// COLLECTION/observation_id and committed through Process, which owns the
// fetch/modify/push transaction.
type Client struct {
	baseURL string
	client  *http.Client

	retries     int
	backoffBase time.Duration
	backoffMax  time.Duration
	sleeper     func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.client = httpClient
		}
	}
}

// WithRetries overrides how many additional attempts follow a transient
// failure.
func WithRetries(retries int) Option {
	return func(c *Client) {
		if retries >= 0 {
			c.retries = retries
		}
	}
}

// WithBackoff overrides the retry backoff delays. The delay doubles from
// base on every retry and never exceeds max.
func WithBackoff(base, max time.Duration) Option {
	return func(c *Client) {
		if base > 0 {
			c.backoffBase = base
		}
		if max > 0 {
			c.backoffMax = max
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// New builds a repository client for the given base URL.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "repository", "new", "repository URL is not configured", nil)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: timeout},
		retries:     defaultRetries,
		backoffBase: defaultBackoffBase,
		backoffMax:  defaultBackoffMax,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Process runs one observation transaction: fetch the current document
// into destDir (a missing observation starts empty), hand the document
// path to fn, then commit with PUT for a new observation or POST for an
// update. When fn fails nothing is pushed; exactly one of commit or
// discard happens per call.
func (c *Client) Process(ctx context.Context, collection, observationID, destDir string, fn func(docPath string) error) error {
	docPath := filepath.Join(destDir, observationID+".xml")
	exists, err := c.fetch(ctx, collection, observationID, docPath)
	if err != nil {
		return err
	}

	if err := fn(docPath); err != nil {
		return err
	}

	doc, err := os.ReadFile(docPath)
	if err != nil {
		if os.IsNotExist(err) {
			return services.Wrap(services.ErrExternalTool, "repository", "process",
				fmt.Sprintf("no document produced for %s/%s", collection, observationID), nil)
		}
		return services.Wrap(services.ErrValidation, "repository", "process",
			fmt.Sprintf("read %s", docPath), err)
	}
	return c.push(ctx, collection, observationID, doc, exists)
}

// fetch downloads the observation document, reporting whether it already
// exists in the repository. A leftover file from an earlier run is removed
// when the repository answers 404 so fn always starts from repository
// state.
func (c *Client) fetch(ctx context.Context, collection, observationID, docPath string) (bool, error) {
	url := c.documentURL(collection, observationID)
	resp, err := c.do(ctx, "get", func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return false, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		out, err := os.Create(docPath)
		if err != nil {
			return false, services.Wrap(services.ErrValidation, "repository", "get",
				fmt.Sprintf("create %s", docPath), err)
		}
		if _, err := io.Copy(out, resp.Body); err != nil {
			out.Close()
			_ = os.Remove(docPath)
			return false, services.Wrap(services.ErrTransient, "repository", "get",
				fmt.Sprintf("download %s/%s", collection, observationID), err)
		}
		if err := out.Close(); err != nil {
			_ = os.Remove(docPath)
			return false, services.Wrap(services.ErrTransient, "repository", "get",
				fmt.Sprintf("write %s", docPath), err)
		}
		return true, nil
	case http.StatusNotFound:
		_ = os.Remove(docPath)
		return false, nil
	default:
		return false, c.statusError("get", collection, observationID, resp.StatusCode)
	}
}

func (c *Client) push(ctx context.Context, collection, observationID string, doc []byte, update bool) error {
	method := http.MethodPut
	operation := "put"
	if update {
		method = http.MethodPost
		operation = "update"
	}
	url := c.documentURL(collection, observationID)
	resp, err := c.do(ctx, operation, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(doc))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/xml")
		return req, nil
	})
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(operation, collection, observationID, resp.StatusCode)
	}
	return nil
}

// do issues one request with the retry policy: transient failures back off
// doubling from backoffBase, stopping after the retry budget or when the
// context ends. build runs per attempt because request bodies are not
// rewindable.
func (c *Client) do(ctx context.Context, operation string, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		req, err := build()
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "repository", operation, "build request", err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.client.Do(req)
		switch {
		case err != nil:
			lastErr = services.Wrap(services.TransportMarker(err), "repository", operation, "request failed", err)
		case retryableStatus(resp.StatusCode):
			drain(resp)
			lastErr = services.Wrap(services.ErrTransient, "repository", operation,
				fmt.Sprintf("returned %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)), nil)
		default:
			return resp, nil
		}

		if attempt >= c.retries || ctx.Err() != nil {
			return nil, lastErr
		}
		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			return nil, err
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := c.backoffBase << attempt
	if c.backoffMax > 0 && delay > c.backoffMax {
		return c.backoffMax
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) documentURL(collection, observationID string) string {
	return strings.Join([]string{c.baseURL, collection, observationID}, "/")
}

func (c *Client) statusError(operation, collection, observationID string, status int) error {
	return services.Wrap(services.StatusMarker(status), "repository", operation,
		fmt.Sprintf("%s/%s returned %d %s", collection, observationID, status, http.StatusText(status)), nil)
}

func retryableStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= 500
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
