package containers

import (
	"context"
	"fmt"
	"os"
	"sort"

	"golang.org/x/sys/unix"

	"siphon/internal/services"
)

// Filter admits file names into a container's listing. A nil Filter admits
// every entry, including non-FITS files.
type Filter func(name string) bool

// Container normalizes the four file-acquisition strategies behind one
// contract: list, materialize, scoped use, release. Implementations validate
// their source and output directory eagerly so a run fails before any file
// is processed.
type Container interface {
	// Name identifies the container in logs and error messages.
	Name() string
	// FileIDs returns the sorted ids admitted by the filter.
	FileIDs() []string
	// Get materializes fileID and returns its local path. An id absent from
	// the listing fails with services.ErrNotFound, filtered-out ids included.
	Get(ctx context.Context, fileID string) (string, error)
	// Use materializes fileID for the duration of fn and releases it when fn
	// returns, on success and on error alike.
	Use(ctx context.Context, fileID string, fn func(path string) error) error
	// Cleanup releases a materialized entry. Releasing an unmaterialized or
	// already-released id is a no-op.
	Cleanup(fileID string) error
	// Close releases the backing resource. Get and Use fail afterwards.
	Close() error
	// Persistent reports whether materialized paths are the original files
	// rather than per-run copies.
	Persistent() bool
}

func scopedUse(ctx context.Context, c Container, fileID string, fn func(path string) error) (err error) {
	path, getErr := c.Get(ctx, fileID)
	if getErr != nil {
		return getErr
	}
	defer func() {
		if cerr := c.Cleanup(fileID); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(path)
}

func sortedIDs[V any](entries map[string]V) []string {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func admits(filter Filter, name string) bool {
	return filter == nil || filter(name)
}

func lookupError(container, fileID string) error {
	return services.Wrap(services.ErrNotFound, "containers", "get",
		fmt.Sprintf("file_id %q is not in container %s", fileID, container), nil)
}

func closedError(container string) error {
	return services.Wrap(services.ErrClosed, "containers", "get", container, nil)
}

func ensureWritableDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "containers", "outdir",
			fmt.Sprintf("output directory %s does not exist", path), err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrValidation, "containers", "outdir",
			fmt.Sprintf("output path %s is not a directory", path), nil)
	}
	if err := unix.Access(path, unix.W_OK|unix.X_OK); err != nil {
		return services.Wrap(services.ErrValidation, "containers", "outdir",
			fmt.Sprintf("output directory %s is not writable", path), err)
	}
	return nil
}
