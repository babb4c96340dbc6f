package containers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"siphon/internal/services"
	"siphon/internal/services/stores"
)

// Fetcher is the subset of the data-store client an Indexlist needs.
type Fetcher interface {
	// Info describes archive/fileID, reporting found=false when absent.
	Info(ctx context.Context, archive, fileID string) (stores.FileInfo, bool, error)
	// Get downloads archive/fileID into destDir and returns the local path.
	Get(ctx context.Context, archive, fileID, destDir string) (string, error)
}

var indexLinePattern = regexp.MustCompile(`^arc:([A-Z][A-Z0-9_-]*)/([A-Za-z0-9][A-Za-z0-9._+-]*)(?:\s+.*)?$`)

// Indexlist lists entries named by a local .idx file, one
// arc:ARCHIVE/file_id line per entry (optionally followed by an
// annotation), fetched on demand from the data store. Blank lines and #
// comments are skipped; any other non-matching line is a construction
// error. Every listed entry is verified against the store eagerly so a
// stale index fails before processing starts.
type Indexlist struct {
	name         string
	outDir       string
	store        Fetcher
	entries      map[string]indexEntry
	materialized map[string]string
	closed       bool
}

type indexEntry struct {
	archive string
	fileID  string
}

// NewIndexlist builds a container over a .idx file. outDir must be an
// existing writable directory; store must be able to resolve every listed
// entry.
func NewIndexlist(ctx context.Context, source, outDir string, store Fetcher, filter Filter) (*Indexlist, error) {
	if !strings.EqualFold(filepath.Ext(source), ".idx") {
		return nil, services.Wrap(services.ErrValidation, "containers", "indexlist",
			fmt.Sprintf("source %s is not an index list", source), nil)
	}
	if store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "containers", "indexlist",
			"data store client not configured", nil)
	}
	if err := ensureWritableDir(outDir); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "containers", "indexlist",
			fmt.Sprintf("source %s cannot be read", source), err)
	}

	entries := make(map[string]indexEntry)
	for i, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		match := indexLinePattern.FindStringSubmatch(trimmed)
		if match == nil {
			return nil, services.Wrap(services.ErrValidation, "containers", "indexlist",
				fmt.Sprintf("%s line %d is not an arc URI: %q", source, i+1, trimmed), nil)
		}
		archive, fileID := match[1], match[2]
		info, found, err := store.Info(ctx, archive, fileID)
		if err != nil {
			return nil, fmt.Errorf("verify %s/%s: %w", archive, fileID, err)
		}
		if !found {
			return nil, services.Wrap(services.ErrValidation, "containers", "indexlist",
				fmt.Sprintf("%s/%s from %s line %d is not in the data store", archive, fileID, source, i+1), nil)
		}
		// The filter judges stored filenames; entries the store reports
		// without one are admitted as-is.
		if info.Name != "" && !admits(filter, info.Name) {
			continue
		}
		entries[fileID] = indexEntry{archive: archive, fileID: fileID}
	}
	if len(entries) == 0 {
		return nil, services.Wrap(services.ErrValidation, "containers", "indexlist",
			fmt.Sprintf("%s contains no admitted entries", source), nil)
	}

	return &Indexlist{
		name:         filepath.Base(source),
		outDir:       outDir,
		store:        store,
		entries:      entries,
		materialized: make(map[string]string),
	}, nil
}

// Name implements Container.
func (c *Indexlist) Name() string { return c.name }

// FileIDs implements Container.
func (c *Indexlist) FileIDs() []string { return sortedIDs(c.entries) }

// Get implements Container.
func (c *Indexlist) Get(ctx context.Context, fileID string) (string, error) {
	if c.closed {
		return "", closedError(c.name)
	}
	entry, ok := c.entries[fileID]
	if !ok {
		return "", lookupError(c.name, fileID)
	}
	path, err := c.store.Get(ctx, entry.archive, entry.fileID, c.outDir)
	if err != nil {
		return "", fmt.Errorf("fetch %s/%s: %w", entry.archive, entry.fileID, err)
	}
	c.materialized[fileID] = path
	return path, nil
}

// Use implements Container.
func (c *Indexlist) Use(ctx context.Context, fileID string, fn func(path string) error) error {
	return scopedUse(ctx, c, fileID, fn)
}

// Cleanup implements Container.
func (c *Indexlist) Cleanup(fileID string) error {
	path, ok := c.materialized[fileID]
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cleanup %s: %w", path, err)
	}
	delete(c.materialized, fileID)
	return nil
}

// Close implements Container.
func (c *Indexlist) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	for fileID := range c.materialized {
		_ = c.Cleanup(fileID)
	}
	return nil
}

// Persistent implements Container.
func (c *Indexlist) Persistent() bool { return false }
