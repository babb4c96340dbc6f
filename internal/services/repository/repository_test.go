package repository_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"siphon/internal/services"
	"siphon/internal/services/repository"
)

type capturedPush struct {
	mu     sync.Mutex
	method string
	path   string
	body   string
	count  int
}

func (cp *capturedPush) record(r *http.Request, t *testing.T) {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("read push body: %v", err)
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.method = r.Method
	cp.path = r.URL.Path
	cp.body = string(body)
	cp.count++
}

func newClient(t *testing.T, url string, opts ...repository.Option) *repository.Client {
	t.Helper()
	client, err := repository.New(url, 5*time.Second, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := repository.New("", time.Second); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestProcessPutsNewObservation(t *testing.T) {
	var push capturedPush
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		default:
			push.record(r, t)
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer server.Close()

	destDir := t.TempDir()
	client := newClient(t, server.URL)
	err := client.Process(context.Background(), "SURVEY", "obs_1", destDir, func(docPath string) error {
		if docPath != filepath.Join(destDir, "obs_1.xml") {
			t.Fatalf("unexpected document path: %s", docPath)
		}
		if _, err := os.Stat(docPath); !os.IsNotExist(err) {
			t.Fatal("new observation must start with no document on disk")
		}
		return os.WriteFile(docPath, []byte("<observation/>"), 0o644)
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if push.method != http.MethodPut {
		t.Fatalf("expected PUT for a new observation, got %s", push.method)
	}
	if push.path != "/SURVEY/obs_1" {
		t.Fatalf("unexpected push path: %s", push.path)
	}
	if push.body != "<observation/>" {
		t.Fatalf("unexpected push body: %q", push.body)
	}
}

func TestProcessPostsExistingObservation(t *testing.T) {
	var push capturedPush
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if _, err := io.WriteString(w, "<observation planes=\"1\"/>"); err != nil {
				t.Fatalf("write document: %v", err)
			}
		default:
			push.record(r, t)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	destDir := t.TempDir()
	client := newClient(t, server.URL)
	err := client.Process(context.Background(), "SURVEY", "obs_2", destDir, func(docPath string) error {
		current, err := os.ReadFile(docPath)
		if err != nil {
			t.Fatalf("read fetched document: %v", err)
		}
		if string(current) != "<observation planes=\"1\"/>" {
			t.Fatalf("unexpected fetched document: %q", current)
		}
		return os.WriteFile(docPath, []byte("<observation planes=\"2\"/>"), 0o644)
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if push.method != http.MethodPost {
		t.Fatalf("expected POST for an existing observation, got %s", push.method)
	}
	if push.body != "<observation planes=\"2\"/>" {
		t.Fatalf("unexpected push body: %q", push.body)
	}
}

func TestProcessDiscardsWhenFnFails(t *testing.T) {
	var push capturedPush
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		default:
			push.record(r, t)
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer server.Close()

	boom := errors.New("boom")
	client := newClient(t, server.URL)
	err := client.Process(context.Background(), "SURVEY", "obs_3", t.TempDir(), func(docPath string) error {
		if err := os.WriteFile(docPath, []byte("<observation/>"), 0o644); err != nil {
			t.Fatalf("write document: %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error to surface, got %v", err)
	}
	if push.count != 0 {
		t.Fatalf("expected no push after fn failure, got %d", push.count)
	}
}

func TestProcessRequiresDocumentAfterFn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	err := client.Process(context.Background(), "SURVEY", "obs_4", t.TempDir(), func(string) error {
		return nil
	})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external-tool error for missing document, got %v", err)
	}
}

func TestProcessRetriesTransientFetchFailures(t *testing.T) {
	var gets int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			gets++
			if gets <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer server.Close()

	var delays []time.Duration
	client := newClient(t, server.URL,
		repository.WithBackoff(10*time.Second, 80*time.Second),
		repository.WithSleeper(func(d time.Duration) { delays = append(delays, d) }),
	)
	err := client.Process(context.Background(), "SURVEY", "obs_5", t.TempDir(), func(docPath string) error {
		return os.WriteFile(docPath, []byte("<observation/>"), 0o644)
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if gets != 3 {
		t.Fatalf("expected 3 fetch attempts, got %d", gets)
	}
	want := []time.Duration{10 * time.Second, 20 * time.Second}
	if !reflect.DeepEqual(delays, want) {
		t.Fatalf("expected doubling delays %v, got %v", want, delays)
	}
}

func TestProcessBackoffSequenceCapsAtMax(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var delays []time.Duration
	client := newClient(t, server.URL,
		repository.WithRetries(5),
		repository.WithBackoff(10*time.Second, 80*time.Second),
		repository.WithSleeper(func(d time.Duration) { delays = append(delays, d) }),
	)
	err := client.Process(context.Background(), "SURVEY", "obs_6", t.TempDir(), func(string) error { return nil })
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient failure, got %v", err)
	}
	if attempts != 6 {
		t.Fatalf("expected 6 attempts, got %d", attempts)
	}
	want := []time.Duration{10 * time.Second, 20 * time.Second, 40 * time.Second, 80 * time.Second, 80 * time.Second}
	if !reflect.DeepEqual(delays, want) {
		t.Fatalf("expected capped sequence %v, got %v", want, delays)
	}
}

func TestProcessDoesNotRetryValidationFailures(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newClient(t, server.URL,
		repository.WithSleeper(func(time.Duration) { t.Fatal("must not sleep for non-retryable status") }),
	)
	err := client.Process(context.Background(), "SURVEY", "obs_7", t.TempDir(), func(string) error { return nil })
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestProcessRetriesPushFailures(t *testing.T) {
	puts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		default:
			puts++
			if puts == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer server.Close()

	client := newClient(t, server.URL,
		repository.WithSleeper(func(time.Duration) {}),
	)
	err := client.Process(context.Background(), "SURVEY", "obs_8", t.TempDir(), func(docPath string) error {
		return os.WriteFile(docPath, []byte("<observation/>"), 0o644)
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if puts != 2 {
		t.Fatalf("expected push retry, got %d attempts", puts)
	}
}
