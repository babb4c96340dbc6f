package preflight

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"siphon/internal/fileindex"
)

// CheckDirectoryAccess verifies that the directory exists (creating it when
// absent) and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(path, 0o755); mkErr != nil {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: create: %v)", path, mkErr)}
			}
			info, err = os.Stat(path)
		}
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
		}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckToolBinary verifies the external processing tool resolves on PATH.
func CheckToolBinary(binary string) Result {
	const name = "Processing tool"

	cmd := strings.TrimSpace(binary)
	if cmd == "" {
		return Result{Name: name, Detail: "binary not configured"}
	}
	resolved, err := exec.LookPath(cmd)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", cmd)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckFileIndex verifies the archive file index opens and answers a query.
func CheckFileIndex(ctx context.Context, path string) Result {
	const name = "File index"

	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: create directory: %v)", path, err)}
	}
	index, err := fileindex.Open(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer index.Close()

	count, err := index.Count(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d files indexed)", path, count)}
}

// CheckServiceURL verifies an endpoint is an absolute http(s) URL. It does
// not contact the service; runs against an unreachable endpoint fail with
// the retry policy's own diagnostics.
func CheckServiceURL(name, rawURL string) Result {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", rawURL, err)}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: scheme must be http or https)", rawURL)}
	}
	if parsed.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: missing host)", rawURL)}
	}
	return Result{Name: name, Passed: true, Detail: parsed.String()}
}
