package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"siphon/internal/testsupport"
)

// writeCLIConfig writes a minimal config file rooted in a per-test temp
// directory and returns its path plus the base directory.
func writeCLIConfig(t *testing.T) (string, string) {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	contents := fmt.Sprintf(`[paths]
work_dir = %q
log_dir = %q

[archive]
name = "SCOPE"
collection = "SCOPE"
file_index_path = %q
`, filepath.Join(base, "work"), filepath.Join(base, "logs"), filepath.Join(base, "fileindex.db"))
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath, base
}

// writeObservationDir builds a source directory holding FITS files that the
// keyword adapter can place, plus one ancillary text file.
func writeObservationDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	testsupport.WriteFITS(t, filepath.Join(dir, "a.fits"),
		testsupport.HeaderCard{Key: "OBSID", Value: "obs1"},
		testsupport.HeaderCard{Key: "PRODID", Value: "raw"})
	testsupport.WriteFITS(t, filepath.Join(dir, "b.fits"),
		testsupport.HeaderCard{Key: "OBSID", Value: "obs1"},
		testsupport.HeaderCard{Key: "PRODID", Value: "calibrated"})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ancillary"), 0o644); err != nil {
		t.Fatalf("write notes.txt: %v", err)
	}
	return dir
}

// runCLI executes the root command with args and returns its combined
// output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
