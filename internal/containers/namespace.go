package containers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"siphon/internal/ledger"
	"siphon/internal/services"
	"siphon/internal/services/depot"
)

// DepotLister is the subset of the depot client a Namespace needs.
type DepotLister interface {
	// List returns the immediate entries of a depot directory.
	List(ctx context.Context, path string) ([]depot.Entry, error)
	// Download fetches the file at path into destDir and returns the local
	// path.
	Download(ctx context.Context, path, destDir string) (string, error)
}

const depotScheme = "depot:"

// Namespace lists a browsable remote namespace rooted at a depot: URI,
// recursing into subdirectories with files enumerated before directories,
// each group in name order. Empty remote files are skipped. Two remote
// files folding to the same file_id record a ledger error and the first
// one wins.
type Namespace struct {
	name         string
	root         string
	outDir       string
	client       DepotLister
	paths        map[string]string
	materialized map[string]string
	closed       bool
}

// NewNamespace builds a container over a depot namespace. root must carry
// the depot: scheme and outDir must be an existing writable directory. An
// empty namespace is not an error; it is recorded as a ledger warning.
func NewNamespace(ctx context.Context, root, outDir string, client DepotLister, led *ledger.Ledger, filter Filter) (*Namespace, error) {
	if !strings.HasPrefix(root, depotScheme) {
		return nil, services.Wrap(services.ErrValidation, "containers", "namespace",
			fmt.Sprintf("source %s is not a depot URI", root), nil)
	}
	if client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "containers", "namespace",
			"depot client not configured", nil)
	}
	if err := ensureWritableDir(outDir); err != nil {
		return nil, err
	}

	c := &Namespace{
		name:         strings.NewReplacer(":", "-", "/", "-").Replace(root),
		root:         root,
		outDir:       outDir,
		client:       client,
		paths:        make(map[string]string),
		materialized: make(map[string]string),
	}
	if err := c.walk(ctx, root, led, filter); err != nil {
		return nil, err
	}
	if len(c.paths) == 0 && led != nil {
		led.Warning(root, "namespace contains no admitted files")
	}
	return c, nil
}

func (c *Namespace) walk(ctx context.Context, dir string, led *ledger.Ledger, filter Filter) error {
	entries, err := c.client.List(ctx, dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}

	var files, dirs []depot.Entry
	for _, entry := range entries {
		if entry.Dir {
			dirs = append(dirs, entry)
		} else {
			files = append(files, entry)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })

	for _, entry := range files {
		full := dir + "/" + entry.Name
		if entry.Size == 0 {
			continue
		}
		if !admits(filter, entry.Name) {
			continue
		}
		id := MakeFileID(entry.Name)
		if first, ok := c.paths[id]; ok {
			if led != nil {
				led.Error(full, fmt.Sprintf("duplicate file_id %q already provided by %s", id, first))
			}
			continue
		}
		c.paths[id] = full
	}
	for _, entry := range dirs {
		if err := c.walk(ctx, dir+"/"+entry.Name, led, filter); err != nil {
			return err
		}
	}
	return nil
}

// Name implements Container.
func (c *Namespace) Name() string { return c.name }

// FileIDs implements Container.
func (c *Namespace) FileIDs() []string { return sortedIDs(c.paths) }

// Get implements Container.
func (c *Namespace) Get(ctx context.Context, fileID string) (string, error) {
	if c.closed {
		return "", closedError(c.name)
	}
	remote, ok := c.paths[fileID]
	if !ok {
		return "", lookupError(c.name, fileID)
	}
	path, err := c.client.Download(ctx, remote, c.outDir)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", remote, err)
	}
	c.materialized[fileID] = path
	return path, nil
}

// Use implements Container.
func (c *Namespace) Use(ctx context.Context, fileID string, fn func(path string) error) error {
	return scopedUse(ctx, c, fileID, fn)
}

// Cleanup implements Container.
func (c *Namespace) Cleanup(fileID string) error {
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
func (c *Namespace) Close() error {
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
func (c *Namespace) Persistent() bool { return false }

// URI returns the depot path a file_id was listed from.
func (c *Namespace) URI(fileID string) (string, error) {
	remote, ok := c.paths[fileID]
	if !ok {
		return "", lookupError(c.name, fileID)
	}
	return remote, nil
}
