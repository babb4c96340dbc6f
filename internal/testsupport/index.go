package testsupport

import (
	"testing"

	"siphon/internal/config"
	"siphon/internal/fileindex"
)

// MustOpenIndex opens the configured fileindex for tests and registers cleanup.
func MustOpenIndex(t testing.TB, cfg *config.Config) *fileindex.Index {
	t.Helper()

	index, err := fileindex.Open(cfg.Archive.FileIndexPath)
	if err != nil {
		t.Fatalf("fileindex.Open: %v", err)
	}
	t.Cleanup(func() {
		index.Close()
	})
	return index
}
