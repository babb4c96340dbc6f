package containers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"siphon/internal/services"
)

// Directory lists regular files already on local disk. Materialization is
// the identity: paths are the original files and are never removed, so the
// variant is persistent and Cleanup is a no-op.
type Directory struct {
	name   string
	paths  map[string]string
	closed bool
}

// NewDirectory builds a container over the regular files of a local
// directory. The directory must exist and hold at least one admitted file.
func NewDirectory(source string, filter Filter) (*Directory, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "containers", "directory",
			fmt.Sprintf("source %s does not exist", source), err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "containers", "directory",
			fmt.Sprintf("source %s is not a directory", source), nil)
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", source, err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "containers", "directory",
			fmt.Sprintf("read %s", abs), err)
	}

	paths := make(map[string]string)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !admits(filter, entry.Name()) {
			continue
		}
		paths[MakeFileID(entry.Name())] = filepath.Join(abs, entry.Name())
	}
	if len(paths) == 0 {
		return nil, services.Wrap(services.ErrValidation, "containers", "directory",
			fmt.Sprintf("%s contains no admitted files", abs), nil)
	}

	return &Directory{name: filepath.Base(abs), paths: paths}, nil
}

// Name implements Container.
func (c *Directory) Name() string { return c.name }

// FileIDs implements Container.
func (c *Directory) FileIDs() []string { return sortedIDs(c.paths) }

// Get implements Container.
func (c *Directory) Get(_ context.Context, fileID string) (string, error) {
	if c.closed {
		return "", closedError(c.name)
	}
	path, ok := c.paths[fileID]
	if !ok {
		return "", lookupError(c.name, fileID)
	}
	return path, nil
}

// Use implements Container.
func (c *Directory) Use(ctx context.Context, fileID string, fn func(path string) error) error {
	return scopedUse(ctx, c, fileID, fn)
}

// Cleanup implements Container. Directory entries are the caller's own
// files, so nothing is removed.
func (c *Directory) Cleanup(string) error { return nil }

// Close implements Container.
func (c *Directory) Close() error {
	c.closed = true
	return nil
}

// Persistent implements Container.
func (c *Directory) Persistent() bool { return true }
