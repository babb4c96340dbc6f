package catalog_test

import (
	"errors"
	"testing"

	"siphon/internal/catalog"
	"siphon/internal/services"
)

func record(obsID, productID, uri string) *catalog.Record {
	rec := catalog.NewRecord()
	rec.Collection = "SCOPE"
	rec.ObservationID = obsID
	rec.ProductID = productID
	rec.URI = uri
	return rec
}

func mustPlane(t *testing.T, cat *catalog.Catalog, collection, obsID, productID string) *catalog.Plane {
	t.Helper()
	col, ok := cat.Collections.Get(collection)
	if !ok {
		t.Fatalf("collection %s missing", collection)
	}
	obs, ok := col.Observations.Get(obsID)
	if !ok {
		t.Fatalf("observation %s missing", obsID)
	}
	plane, ok := obs.Planes.Get(productID)
	if !ok {
		t.Fatalf("plane %s missing", productID)
	}
	return plane
}

func mustObservation(t *testing.T, cat *catalog.Catalog, collection, obsID string) *catalog.Observation {
	t.Helper()
	col, ok := cat.Collections.Get(collection)
	if !ok {
		t.Fatalf("collection %s missing", collection)
	}
	obs, ok := col.Observations.Get(obsID)
	if !ok {
		t.Fatalf("observation %s missing", obsID)
	}
	return obs
}

func TestMergePlaneDictLastWriteWins(t *testing.T) {
	cat := catalog.New()

	a := record("obs-1", "P", "arc:SCOPE/a")
	a.PlaneDict.Set("x", "1")
	if err := cat.Merge(a); err != nil {
		t.Fatalf("merge a: %v", err)
	}

	b := record("obs-1", "P", "arc:SCOPE/b")
	b.PlaneDict.Set("x", "2")
	b.PlaneDict.Set("y", "3")
	if err := cat.Merge(b); err != nil {
		t.Fatalf("merge b: %v", err)
	}

	plane := mustPlane(t, cat, "SCOPE", "obs-1", "P")
	if v, _ := plane.PlaneDict.Get("x"); v != "2" {
		t.Fatalf("expected x=2 after overwrite, got %q", v)
	}
	if v, _ := plane.PlaneDict.Get("y"); v != "3" {
		t.Fatalf("expected y=3, got %q", v)
	}
	keys := plane.PlaneDict.Keys()
	if len(keys) != 2 || keys[0] != "x" || keys[1] != "y" {
		t.Fatalf("expected x to keep first position, got %v", keys)
	}
}

func TestMergeURIDictFirstWriteWins(t *testing.T) {
	cat := catalog.New()

	a := record("obs-1", "P", "arc:SCOPE/a")
	a.LocalPath = "/data/a.fits"
	if err := cat.Merge(a); err != nil {
		t.Fatalf("merge a: %v", err)
	}
	repeat := record("obs-1", "P", "arc:SCOPE/a")
	if err := cat.Merge(repeat); err != nil {
		t.Fatalf("merge repeat: %v", err)
	}

	plane := mustPlane(t, cat, "SCOPE", "obs-1", "P")
	if v, ok := plane.URIDict.Get("arc:SCOPE/a"); !ok || v != "/data/a.fits" {
		t.Fatalf("expected first local path kept, got %q ok=%v", v, ok)
	}
	if plane.URIDict.Len() != 1 {
		t.Fatalf("expected single uri entry, got %d", plane.URIDict.Len())
	}
}

func TestMergeSetsArePureUnions(t *testing.T) {
	cat := catalog.New()

	a := record("obs-1", "P", "arc:SCOPE/a")
	a.MemberURIs = []string{"obs:A", "obs:B"}
	a.InputURIs = []string{"plane:in1"}
	a.FileIDs = []string{"raw_1"}
	if err := cat.Merge(a); err != nil {
		t.Fatalf("merge a: %v", err)
	}

	b := record("obs-1", "P", "arc:SCOPE/b")
	b.MemberURIs = []string{"obs:B"}
	b.InputURIs = []string{"plane:in1"}
	b.FileIDs = []string{"raw_1", "raw_2"}
	if err := cat.Merge(b); err != nil {
		t.Fatalf("merge b: %v", err)
	}

	obs := mustObservation(t, cat, "SCOPE", "obs-1")
	plane := mustPlane(t, cat, "SCOPE", "obs-1", "P")
	if obs.MemberSet.Len() != 2 {
		t.Fatalf("expected memberset cardinality 2, got %d", obs.MemberSet.Len())
	}
	if plane.InputSet.Len() != 1 {
		t.Fatalf("expected inputset cardinality 1, got %d", plane.InputSet.Len())
	}
	if plane.FileSet.Len() != 2 {
		t.Fatalf("expected fileset cardinality 2, got %d", plane.FileSet.Len())
	}
}

func TestMergeArtifactOverrides(t *testing.T) {
	cat := catalog.New()

	a := record("obs-1", "P", "arc:SCOPE/a")
	blockA := a.Artifact("arc:SCOPE/a")
	blockA.Overrides.Set("part.name", "0")
	blockA.Custom.Set("shape", "cube")
	if err := cat.Merge(a); err != nil {
		t.Fatalf("merge a: %v", err)
	}

	b := record("obs-1", "P", "arc:SCOPE/a")
	blockB := b.Artifact("arc:SCOPE/a")
	blockB.Overrides.Set("part.name", "1")
	blockB.Overrides.Set("part.type", "science")
	if err := cat.Merge(b); err != nil {
		t.Fatalf("merge b: %v", err)
	}

	plane := mustPlane(t, cat, "SCOPE", "obs-1", "P")
	artifact, ok := plane.Artifacts.Get("arc:SCOPE/a")
	if !ok {
		t.Fatal("expected artifact block present")
	}
	if v, _ := artifact.Overrides.Get("part.name"); v != "1" {
		t.Fatalf("expected later part.name to win, got %q", v)
	}
	if v, _ := artifact.Overrides.Get("part.type"); v != "science" {
		t.Fatalf("expected part.type merged, got %q", v)
	}
	if v, _ := artifact.Custom.Get("shape"); v != "cube" {
		t.Fatalf("expected custom key kept, got %q", v)
	}
}

func TestMergeArtifactSelectorsStayDistinct(t *testing.T) {
	cat := catalog.New()

	rec := record("obs-1", "P", "arc:SCOPE/a")
	rec.Artifact("arc:SCOPE/a").Overrides.Set("part.name", "0")
	rec.Artifact("arc:SCOPE/a#1").Overrides.Set("part.name", "1")
	if err := cat.Merge(rec); err != nil {
		t.Fatalf("merge: %v", err)
	}

	plane := mustPlane(t, cat, "SCOPE", "obs-1", "P")
	if plane.Artifacts.Len() != 2 {
		t.Fatalf("expected 2 artifact blocks, got %d", plane.Artifacts.Len())
	}
	keys := plane.Artifacts.Keys()
	if keys[0] != "arc:SCOPE/a" || keys[1] != "arc:SCOPE/a#1" {
		t.Fatalf("unexpected block order: %v", keys)
	}
}

func TestMergeRejectsIncompleteRecords(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*catalog.Record)
	}{
		{"missing collection", func(r *catalog.Record) { r.Collection = "" }},
		{"missing observation", func(r *catalog.Record) { r.ObservationID = "" }},
		{"missing product", func(r *catalog.Record) { r.ProductID = " " }},
		{"missing uri", func(r *catalog.Record) { r.URI = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cat := catalog.New()
			rec := record("obs-1", "P", "arc:SCOPE/a")
			tc.mutate(rec)
			if err := cat.Merge(rec); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got: %v", err)
			}
			if !cat.Empty() {
				t.Fatal("expected catalog unchanged after rejected merge")
			}
		})
	}
}

func TestMergeKeepsArrivalOrder(t *testing.T) {
	cat := catalog.New()
	if err := cat.Merge(record("obs-2", "Q", "arc:SCOPE/q")); err != nil {
		t.Fatalf("merge obs-2: %v", err)
	}
	if err := cat.Merge(record("obs-1", "P", "arc:SCOPE/p")); err != nil {
		t.Fatalf("merge obs-1: %v", err)
	}

	col, ok := cat.Collections.Get("SCOPE")
	if !ok {
		t.Fatal("collection missing")
	}
	ids := col.Observations.Keys()
	if len(ids) != 2 || ids[0] != "obs-2" || ids[1] != "obs-1" {
		t.Fatalf("expected arrival order preserved, got %v", ids)
	}
}
