package containers_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"siphon/internal/services"
	"siphon/internal/services/depot"
	"siphon/internal/services/stores"
)

type tarEntry struct {
	name string
	data string
}

func writeTarFile(t *testing.T, dest string, entries []tarEntry) {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, entry := range entries {
		hdr := &tar.Header{
			Name:     entry.name,
			Mode:     0o644,
			Size:     int64(len(entry.data)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write tar header %s: %v", entry.name, err)
		}
		if _, err := tw.Write([]byte(entry.data)); err != nil {
			t.Fatalf("write tar entry %s: %v", entry.name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %v", err)
	}

	payload := buf.Bytes()
	if strings.HasSuffix(dest, ".tar.gz") || strings.HasSuffix(dest, ".tgz") {
		var gzBuf bytes.Buffer
		gz := gzip.NewWriter(&gzBuf)
		if _, err := gz.Write(payload); err != nil {
			t.Fatalf("gzip tar: %v", err)
		}
		if err := gz.Close(); err != nil {
			t.Fatalf("close gzip writer: %v", err)
		}
		payload = gzBuf.Bytes()
	}
	if err := os.WriteFile(dest, payload, 0o644); err != nil {
		t.Fatalf("write archive %s: %v", dest, err)
	}
}

type fakeStoredFile struct {
	name string
	data string
}

type fakeStore struct {
	files     map[string]fakeStoredFile
	infoErr   error
	infoCalls int
}

func (s *fakeStore) Info(_ context.Context, archive, fileID string) (stores.FileInfo, bool, error) {
	s.infoCalls++
	if s.infoErr != nil {
		return stores.FileInfo{}, false, s.infoErr
	}
	file, ok := s.files[archive+"/"+fileID]
	if !ok {
		return stores.FileInfo{}, false, nil
	}
	return stores.FileInfo{Name: file.name, Size: int64(len(file.data))}, true, nil
}

func (s *fakeStore) Get(_ context.Context, archive, fileID, destDir string) (string, error) {
	file, ok := s.files[archive+"/"+fileID]
	if !ok {
		return "", services.Wrap(services.ErrNotFound, "stores", "get",
			fmt.Sprintf("%s/%s", archive, fileID), nil)
	}
	name := file.name
	if name == "" {
		name = fileID
	}
	dest := filepath.Join(destDir, name)
	if err := os.WriteFile(dest, []byte(file.data), 0o644); err != nil {
		return "", err
	}
	return dest, nil
}

type fakeDepot struct {
	listings map[string][]depot.Entry
	files    map[string]string
}

func (d *fakeDepot) List(_ context.Context, p string) ([]depot.Entry, error) {
	entries, ok := d.listings[p]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "depot", "list", p, nil)
	}
	return entries, nil
}

func (d *fakeDepot) Download(_ context.Context, p, destDir string) (string, error) {
	data, ok := d.files[p]
	if !ok {
		return "", services.Wrap(services.ErrNotFound, "depot", "fetch", p, nil)
	}
	dest := filepath.Join(destDir, path.Base(strings.TrimPrefix(p, "depot:")))
	if err := os.WriteFile(dest, []byte(data), 0o644); err != nil {
		return "", err
	}
	return dest, nil
}

func mustNotExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be removed, stat err=%v", path, err)
	}
}

func mustExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}
