package fileindex_test

import (
	"context"
	"errors"
	"testing"

	"siphon/internal/fileindex"
	"siphon/internal/services"
	"siphon/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	index := testsupport.MustOpenIndex(t, cfg)

	ctx := context.Background()
	count, err := index.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty index, got %d rows", count)
	}

	if _, found, err := index.Lookup(ctx, "never-recorded"); err != nil {
		t.Fatalf("Lookup failed: %v", err)
	} else if found {
		t.Fatal("expected miss for unrecorded file id")
	}
}

func TestRecordPlaneAndLookup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	index := testsupport.MustOpenIndex(t, cfg)

	ctx := context.Background()
	ref := fileindex.PlaneRef{Collection: "SCOPE", ObservationID: "obs-20260102", ProductID: "raw"}
	if err := index.RecordPlane(ctx, ref, []string{"a20260102_0001", "a20260102_0002", "  "}); err != nil {
		t.Fatalf("RecordPlane failed: %v", err)
	}

	got, found, err := index.Lookup(ctx, "a20260102_0001")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !found {
		t.Fatal("expected hit for recorded file id")
	}
	if got != ref {
		t.Fatalf("unexpected plane ref: %#v", got)
	}
	if got.URI() != "obs:SCOPE/obs-20260102/raw" {
		t.Fatalf("unexpected plane URI: %s", got.URI())
	}

	count, err := index.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected blank file id skipped, got %d rows", count)
	}
}

func TestRecordPlaneMovesOwnership(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	index := testsupport.MustOpenIndex(t, cfg)

	ctx := context.Background()
	first := fileindex.PlaneRef{Collection: "SCOPE", ObservationID: "obs-1", ProductID: "raw"}
	second := fileindex.PlaneRef{Collection: "SCOPE", ObservationID: "obs-1", ProductID: "reduced"}

	if err := index.RecordPlane(ctx, first, []string{"shared_0001"}); err != nil {
		t.Fatalf("RecordPlane failed: %v", err)
	}
	if err := index.RecordPlane(ctx, second, []string{"shared_0001"}); err != nil {
		t.Fatalf("RecordPlane failed: %v", err)
	}

	got, found, err := index.Lookup(ctx, "shared_0001")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !found || got != second {
		t.Fatalf("expected ownership to move to %#v, got %#v (found=%v)", second, got, found)
	}

	count, err := index.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single row after re-record, got %d", count)
	}
}

func TestRecordPlaneValidatesRef(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	index := testsupport.MustOpenIndex(t, cfg)

	ctx := context.Background()
	err := index.RecordPlane(ctx, fileindex.PlaneRef{ObservationID: "obs-1", ProductID: "raw"}, []string{"f1"})
	if err == nil {
		t.Fatal("expected error for missing collection")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	ref := fileindex.PlaneRef{Collection: "SCOPE", ObservationID: "obs-1", ProductID: "raw"}
	if err := index.RecordPlane(ctx, ref, nil); err != nil {
		t.Fatalf("expected empty file id list to be a no-op, got %v", err)
	}
}

func TestReopenKeepsRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	ctx := context.Background()
	ref := fileindex.PlaneRef{Collection: "SCOPE", ObservationID: "obs-1", ProductID: "raw"}

	first, err := fileindex.Open(cfg.Archive.FileIndexPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := first.RecordPlane(ctx, ref, []string{"persist_0001"}); err != nil {
		t.Fatalf("RecordPlane failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := fileindex.Open(cfg.Archive.FileIndexPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	got, found, err := second.Lookup(ctx, "persist_0001")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !found || got != ref {
		t.Fatalf("expected row to survive reopen, got %#v (found=%v)", got, found)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := fileindex.Open("  ")
	if err == nil {
		t.Fatal("expected error for empty index path")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
