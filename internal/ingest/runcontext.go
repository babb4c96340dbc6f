package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"siphon/internal/catalog"
	"siphon/internal/config"
	"siphon/internal/ledger"
)

// Mode selects the run's side effects. The zero value is a check run:
// accumulate and validate, no store pushes, no repository writes.
type Mode struct {
	Store  bool
	Ingest bool
}

// Commit reports whether the run has side effects, which makes merge
// validity fatal instead of reportable.
func (m Mode) Commit() bool {
	return m.Store || m.Ingest
}

func (m Mode) String() string {
	switch {
	case m.Store && m.Ingest:
		return "ingest+store"
	case m.Ingest:
		return "ingest"
	case m.Store:
		return "store"
	default:
		return "check"
	}
}

// RunContext carries one run's accumulated state. It is passed explicitly
// through the pipeline; nothing about a run lives in package state.
type RunContext struct {
	ID      string
	Mode    Mode
	Catalog *catalog.Catalog
	Ledger  *ledger.Ledger

	// Root is the per-run scratch directory. FilesDir receives materialized
	// container entries, OverridesDir the per-plane override files.
	Root         string
	FilesDir     string
	OverridesDir string

	// Stored and Previews are the two side lists of source labels: files
	// with no recorded errors versus preview candidates.
	Stored   []string
	Previews []string
}

// NewRunContext allocates the run's scratch directories under the
// configured work dir and returns an empty catalog and ledger for it.
func NewRunContext(cfg *config.Config, mode Mode) (*RunContext, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	root := filepath.Join(cfg.Paths.WorkDir, "run-"+id)
	rc := &RunContext{
		ID:           id,
		Mode:         mode,
		Catalog:      catalog.New(),
		Ledger:       ledger.New(),
		Root:         root,
		FilesDir:     filepath.Join(root, "files"),
		OverridesDir: filepath.Join(root, "overrides"),
	}
	for _, dir := range []string{rc.FilesDir, rc.OverridesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create run directory %q: %w", dir, err)
		}
	}
	return rc, nil
}

// Cleanup removes the run's scratch space. With retainOverrides only the
// materialized files go; the override files stay for diagnosis.
func (rc *RunContext) Cleanup(retainOverrides bool) error {
	if retainOverrides {
		return os.RemoveAll(rc.FilesDir)
	}
	return os.RemoveAll(rc.Root)
}
