package containers

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"siphon/internal/services"
)

var tarExtensions = []string{".tar", ".tar.gz", ".tgz", ".tar.bz2"}

// IsTarSource reports whether path names a supported tar archive, plain or
// gzip/bzip2 compressed.
func IsTarSource(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range tarExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Tarfile materializes entries of a tar archive into the output directory.
// Entries may be nested arbitrarily deep inside the archive; they extract
// flat, named by their base name. When several entries share a file_id the
// last one in archive order wins. The archive handle stays open until Close;
// Get rewinds and rescans it, so extraction order never matters.
type Tarfile struct {
	name         string
	path         string
	outDir       string
	file         *os.File
	members      map[string]string
	dests        map[string]string
	materialized map[string]bool
	closed       bool
}

// NewTarfile builds a container over a tar archive. The archive must exist,
// carry a supported extension, and hold at least one admitted regular file;
// outDir must be an existing writable directory.
func NewTarfile(source, outDir string, filter Filter) (*Tarfile, error) {
	if !IsTarSource(source) {
		return nil, services.Wrap(services.ErrValidation, "containers", "tarfile",
			fmt.Sprintf("source %s is not a tar archive", source), nil)
	}
	if err := ensureWritableDir(outDir); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", source, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "containers", "tarfile",
			fmt.Sprintf("source %s cannot be opened", abs), err)
	}

	c := &Tarfile{
		name:         filepath.Base(abs),
		path:         abs,
		outDir:       outDir,
		file:         file,
		members:      make(map[string]string),
		dests:        make(map[string]string),
		materialized: make(map[string]bool),
	}
	if err := c.scan(filter); err != nil {
		file.Close()
		return nil, err
	}
	if len(c.members) == 0 {
		file.Close()
		return nil, services.Wrap(services.ErrValidation, "containers", "tarfile",
			fmt.Sprintf("%s contains no admitted files", abs), nil)
	}
	return c, nil
}

func (c *Tarfile) scan(filter Filter) error {
	reader, err := c.newReader()
	if err != nil {
		return err
	}
	for {
		hdr, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return services.Wrap(services.ErrValidation, "containers", "tarfile",
				fmt.Sprintf("read %s", c.path), err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		base := filepath.Base(hdr.Name)
		if !admits(filter, base) {
			continue
		}
		id := MakeFileID(base)
		c.members[id] = hdr.Name
		c.dests[id] = filepath.Join(c.outDir, base)
	}
}

func (c *Tarfile) newReader() (*tar.Reader, error) {
	if _, err := c.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind %s: %w", c.path, err)
	}
	lower := strings.ToLower(c.path)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gz, err := gzip.NewReader(c.file)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "containers", "tarfile",
				fmt.Sprintf("%s is not gzip compressed", c.path), err)
		}
		return tar.NewReader(gz), nil
	case strings.HasSuffix(lower, ".tar.bz2"):
		return tar.NewReader(bzip2.NewReader(c.file)), nil
	default:
		return tar.NewReader(c.file), nil
	}
}

// Name implements Container.
func (c *Tarfile) Name() string { return c.name }

// FileIDs implements Container.
func (c *Tarfile) FileIDs() []string { return sortedIDs(c.members) }

// Get implements Container. Every entry matching the member name is
// extracted in archive order so the last occurrence wins, mirroring how tar
// itself resolves repeated members.
func (c *Tarfile) Get(_ context.Context, fileID string) (string, error) {
	if c.closed {
		return "", closedError(c.name)
	}
	member, ok := c.members[fileID]
	if !ok {
		return "", lookupError(c.name, fileID)
	}
	reader, err := c.newReader()
	if err != nil {
		return "", err
	}
	dest := c.dests[fileID]
	found := false
	for {
		hdr, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read %s: %w", c.path, err)
		}
		if hdr.Typeflag != tar.TypeReg || hdr.Name != member {
			continue
		}
		if err := extractTo(dest, reader); err != nil {
			return "", err
		}
		found = true
	}
	if !found {
		return "", lookupError(c.name, fileID)
	}
	c.materialized[fileID] = true
	return dest, nil
}

// Use implements Container.
func (c *Tarfile) Use(ctx context.Context, fileID string, fn func(path string) error) error {
	return scopedUse(ctx, c, fileID, fn)
}

// Cleanup implements Container.
func (c *Tarfile) Cleanup(fileID string) error {
	if !c.materialized[fileID] {
		return nil
	}
	dest := c.dests[fileID]
	// Tar entries can extract read-only; force writability before removal.
	_ = os.Chmod(dest, 0o644)
	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cleanup %s: %w", dest, err)
	}
	delete(c.materialized, fileID)
	return nil
}

// Close implements Container. Materialized entries still on disk are
// released along with the archive handle.
func (c *Tarfile) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	for fileID := range c.materialized {
		_ = c.Cleanup(fileID)
	}
	return c.file.Close()
}

// Persistent implements Container.
func (c *Tarfile) Persistent() bool { return false }

func extractTo(dest string, r io.Reader) error {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("extract %s: %w", dest, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", dest, err)
	}
	return out.Close()
}
