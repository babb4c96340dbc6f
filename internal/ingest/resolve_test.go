package ingest_test

import (
	"context"
	"errors"
	"testing"

	"siphon/internal/fileindex"
	"siphon/internal/ingest"
)

type fakeIndex struct {
	refs map[string]fileindex.PlaneRef
	err  error
}

func (ix *fakeIndex) Lookup(ctx context.Context, fileID string) (fileindex.PlaneRef, bool, error) {
	if ix.err != nil {
		return fileindex.PlaneRef{}, false, ix.err
	}
	ref, ok := ix.refs[fileID]
	return ref, ok, nil
}

func addProvenanceRef(t *testing.T, rc *ingest.RunContext, obsID, productID, refFileID string) {
	t.Helper()
	plane := lookupPlane(t, rc, "SCOPE", obsID, productID)
	plane.FileSet.Add(refFileID)
}

func TestResolveProvenancePrefersRunLocalOwners(t *testing.T) {
	rc := newTestRunContext(t, ingest.Mode{})
	mergePlane(t, rc, "obs1", "raw", "file_raw", "")
	mergePlane(t, rc, "obs1", "coadd", "file_coadd", "")
	addProvenanceRef(t, rc, "obs1", "coadd", "file_raw")

	// The index knows a stale owner for the same id; the run-local plane
	// must win.
	index := &fakeIndex{refs: map[string]fileindex.PlaneRef{
		"file_raw": {Collection: "OTHER", ObservationID: "old", ProductID: "old"},
	}}
	if err := ingest.ResolveProvenance(context.Background(), rc, index); err != nil {
		t.Fatalf("ResolveProvenance: %v", err)
	}

	plane := lookupPlane(t, rc, "SCOPE", "obs1", "coadd")
	if !plane.InputSet.Has("obs:SCOPE/obs1/raw") {
		t.Fatalf("input set %v missing run-local plane URI", plane.InputSet.Sorted())
	}
	if plane.InputSet.Has("obs:OTHER/old/old") {
		t.Fatal("stale index owner should not be used for a run-local id")
	}
}

func TestResolveProvenanceFallsBackToIndex(t *testing.T) {
	rc := newTestRunContext(t, ingest.Mode{})
	mergePlane(t, rc, "obs2", "coadd", "file_coadd", "")
	addProvenanceRef(t, rc, "obs2", "coadd", "archived_file")

	index := &fakeIndex{refs: map[string]fileindex.PlaneRef{
		"archived_file": {Collection: "SCOPE", ObservationID: "obs1", ProductID: "raw"},
	}}
	if err := ingest.ResolveProvenance(context.Background(), rc, index); err != nil {
		t.Fatalf("ResolveProvenance: %v", err)
	}

	plane := lookupPlane(t, rc, "SCOPE", "obs2", "coadd")
	if !plane.InputSet.Has("obs:SCOPE/obs1/raw") {
		t.Fatalf("input set %v missing indexed plane URI", plane.InputSet.Sorted())
	}
}

func TestResolveProvenanceWarnsOnUnknownIDs(t *testing.T) {
	rc := newTestRunContext(t, ingest.Mode{})
	mergePlane(t, rc, "obs1", "coadd", "file_coadd", "")
	addProvenanceRef(t, rc, "obs1", "coadd", "nowhere")

	if err := ingest.ResolveProvenance(context.Background(), rc, &fakeIndex{}); err != nil {
		t.Fatalf("ResolveProvenance: %v", err)
	}
	if rc.Ledger.WarningCount() != 1 {
		t.Fatalf("warnings = %d, want 1 for the unresolved id", rc.Ledger.WarningCount())
	}

	plane := lookupPlane(t, rc, "SCOPE", "obs1", "coadd")
	if plane.InputSet.Len() != 0 {
		t.Fatalf("unresolved id must not add inputs, got %v", plane.InputSet.Sorted())
	}
}

func TestResolveProvenanceAbortsOnIndexFailure(t *testing.T) {
	rc := newTestRunContext(t, ingest.Mode{})
	mergePlane(t, rc, "obs1", "coadd", "file_coadd", "")
	addProvenanceRef(t, rc, "obs1", "coadd", "anything")

	index := &fakeIndex{err: errors.New("database locked")}
	if err := ingest.ResolveProvenance(context.Background(), rc, index); err == nil {
		t.Fatal("index failure should abort resolution")
	}
}

func TestResolveProvenanceWithoutIndexWarns(t *testing.T) {
	rc := newTestRunContext(t, ingest.Mode{})
	mergePlane(t, rc, "obs1", "coadd", "file_coadd", "")
	addProvenanceRef(t, rc, "obs1", "coadd", "external_file")

	if err := ingest.ResolveProvenance(context.Background(), rc, nil); err != nil {
		t.Fatalf("ResolveProvenance: %v", err)
	}
	if rc.Ledger.WarningCount() != 1 {
		t.Fatalf("warnings = %d, want 1", rc.Ledger.WarningCount())
	}
}
