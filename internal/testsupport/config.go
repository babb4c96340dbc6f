package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"siphon/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Archive.Name = "SCOPE"
	cfgVal.Archive.Collection = "SCOPE"
	cfgVal.Archive.FileIndexPath = filepath.Join(base, "fileindex.db")
	cfgVal.Tool.ConfigPath = filepath.Join(base, "plane.config")
	cfgVal.Tool.DefaultPath = filepath.Join(base, "plane.default")
	WriteText(t, cfgVal.Tool.ConfigPath, "# plane.config for tests\n")
	WriteText(t, cfgVal.Tool.DefaultPath, "# plane.default for tests\n")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithArchive sets the archive name and metadata collection on the test config.
func WithArchive(name, collection string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.Name = name
		b.cfg.Archive.Collection = collection
	}
}

// WithServiceURLs points the repository, store, and depot clients at the
// given endpoints. Empty strings leave the corresponding service unset.
func WithServiceURLs(repository, store, depot string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Repository.URL = repository
		b.cfg.Store.URL = store
		b.cfg.Depot.URL = depot
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the external tool binary is
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.Tool.Binary}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
