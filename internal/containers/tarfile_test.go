package containers_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"siphon/internal/containers"
	"siphon/internal/services"
)

func TestIsTarSource(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"batch.tar", true},
		{"batch.TAR", true},
		{"batch.tar.gz", true},
		{"batch.tgz", true},
		{"batch.tar.bz2", true},
		{"batch.zip", false},
		{"batch.fits", false},
	}
	for _, tc := range cases {
		if got := containers.IsTarSource(tc.path); got != tc.want {
			t.Fatalf("IsTarSource(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestTarfileExtractsNestedEntriesFlat(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "batch.tar")
	writeTarFile(t, archive, []tarEntry{
		{name: "night1/a.fits", data: "alpha bytes"},
		{name: "b.fits", data: "bravo bytes"},
		{name: "night1/notes.txt", data: "skip me"},
	})
	outDir := t.TempDir()

	c, err := containers.NewTarfile(archive, outDir, containers.FITSFilter)
	if err != nil {
		t.Fatalf("NewTarfile: %v", err)
	}
	defer c.Close()

	if got, want := c.FileIDs(), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("FileIDs = %v, want %v", got, want)
	}
	if c.Persistent() {
		t.Fatal("tar containers are not persistent")
	}

	path, err := c.Get(context.Background(), "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if path != filepath.Join(outDir, "a.fits") {
		t.Fatalf("expected flat extraction, got %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(data) != "alpha bytes" {
		t.Fatalf("extracted bytes differ: %q", data)
	}
}

func TestTarfileGzipArchive(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "batch.tar.gz")
	writeTarFile(t, archive, []tarEntry{{name: "a.fits", data: "compressed alpha"}})
	outDir := t.TempDir()

	c, err := containers.NewTarfile(archive, outDir, nil)
	if err != nil {
		t.Fatalf("NewTarfile: %v", err)
	}
	defer c.Close()

	path, err := c.Get(context.Background(), "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(data) != "compressed alpha" {
		t.Fatalf("extracted bytes differ: %q", data)
	}
}

func TestTarfileLastDuplicateWins(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "batch.tar")
	writeTarFile(t, archive, []tarEntry{
		{name: "dup.fits", data: "first"},
		{name: "old/dup.fits", data: "second"},
	})
	outDir := t.TempDir()

	c, err := containers.NewTarfile(archive, outDir, nil)
	if err != nil {
		t.Fatalf("NewTarfile: %v", err)
	}
	defer c.Close()

	if got, want := c.FileIDs(), []string{"dup"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("FileIDs = %v, want %v", got, want)
	}
	path, err := c.Get(context.Background(), "dup")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("expected last entry to win, got %q", data)
	}
}

func TestTarfileUseReleasesOnSuccessAndError(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "batch.tar")
	writeTarFile(t, archive, []tarEntry{{name: "a.fits", data: "alpha"}})
	outDir := t.TempDir()

	c, err := containers.NewTarfile(archive, outDir, nil)
	if err != nil {
		t.Fatalf("NewTarfile: %v", err)
	}
	defer c.Close()

	extracted := filepath.Join(outDir, "a.fits")
	if err := c.Use(context.Background(), "a", func(path string) error {
		mustExist(t, path)
		return nil
	}); err != nil {
		t.Fatalf("Use: %v", err)
	}
	mustNotExist(t, extracted)

	boom := errors.New("boom")
	if err := c.Use(context.Background(), "a", func(string) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	mustNotExist(t, extracted)
}

func TestTarfileCleanupIsIdempotent(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "batch.tar")
	writeTarFile(t, archive, []tarEntry{{name: "a.fits", data: "alpha"}})
	outDir := t.TempDir()

	c, err := containers.NewTarfile(archive, outDir, nil)
	if err != nil {
		t.Fatalf("NewTarfile: %v", err)
	}
	defer c.Close()

	if err := c.Cleanup("a"); err != nil {
		t.Fatalf("Cleanup before Get should be a no-op: %v", err)
	}
	path, err := c.Get(context.Background(), "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := c.Cleanup("a"); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	mustNotExist(t, path)
	if err := c.Cleanup("a"); err != nil {
		t.Fatalf("second Cleanup should be a no-op: %v", err)
	}
}

func TestTarfileCloseReleasesLeftovers(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "batch.tar")
	writeTarFile(t, archive, []tarEntry{{name: "a.fits", data: "alpha"}})
	outDir := t.TempDir()

	c, err := containers.NewTarfile(archive, outDir, nil)
	if err != nil {
		t.Fatalf("NewTarfile: %v", err)
	}
	path, err := c.Get(context.Background(), "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	mustNotExist(t, path)
	if _, err := c.Get(context.Background(), "a"); !errors.Is(err, services.ErrClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close should be a no-op: %v", err)
	}
}

func TestTarfileRejectsBadSources(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()

	zip := filepath.Join(dir, "batch.zip")
	if err := os.WriteFile(zip, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := containers.NewTarfile(zip, outDir, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for extension, got %v", err)
	}

	if _, err := containers.NewTarfile(filepath.Join(dir, "absent.tar"), outDir, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing archive, got %v", err)
	}

	notGzip := filepath.Join(dir, "batch.tar.gz")
	if err := os.WriteFile(notGzip, []byte("plain bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := containers.NewTarfile(notGzip, outDir, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for fake gzip, got %v", err)
	}

	empty := filepath.Join(dir, "empty.tar")
	writeTarFile(t, empty, []tarEntry{{name: "notes.txt", data: "x"}})
	if _, err := containers.NewTarfile(empty, outDir, containers.FITSFilter); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty listing, got %v", err)
	}
}

func TestTarfileRequiresExistingOutDir(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "batch.tar")
	writeTarFile(t, archive, []tarEntry{{name: "a.fits", data: "alpha"}})

	missing := filepath.Join(t.TempDir(), "absent")
	if _, err := containers.NewTarfile(archive, missing, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing out dir, got %v", err)
	}
}
