package ingest

import (
	"context"
	"strings"

	"siphon/internal/fileindex"
)

// ProvenanceIndex is the slice of the file index resolution needs.
type ProvenanceIndex interface {
	Lookup(ctx context.Context, fileID string) (fileindex.PlaneRef, bool, error)
}

// ResolveProvenance turns each plane's accumulated provenance file ids into
// input plane URIs after every container has drained. Ids owned by a plane
// of this run resolve locally; the rest go through the file index. An id
// found nowhere records a ledger warning, an index failure aborts the run.
func ResolveProvenance(ctx context.Context, rc *RunContext, index ProvenanceIndex) error {
	owners := runOwners(rc)

	for _, colName := range rc.Catalog.Collections.Keys() {
		col, _ := rc.Catalog.Collections.Get(colName)
		for _, obsID := range col.Observations.Keys() {
			obs, _ := col.Observations.Get(obsID)
			for _, planeID := range obs.Planes.Keys() {
				plane, _ := obs.Planes.Get(planeID)
				for _, fileID := range plane.FileSet.Sorted() {
					if uri, ok := owners[fileID]; ok {
						plane.InputSet.Add(uri)
						continue
					}
					if index == nil {
						rc.Ledger.Warning(fileID, "provenance input not found in this run")
						continue
					}
					ref, found, err := index.Lookup(ctx, fileID)
					if err != nil {
						return err
					}
					if !found {
						rc.Ledger.Warning(fileID, "provenance input not found in this run or the file index")
						continue
					}
					plane.InputSet.Add(ref.URI())
				}
			}
		}
	}
	return nil
}

// runOwners maps every file id contributed in this run to the URI of the
// plane that owns it.
func runOwners(rc *RunContext) map[string]string {
	owners := make(map[string]string)
	for _, colName := range rc.Catalog.Collections.Keys() {
		col, _ := rc.Catalog.Collections.Get(colName)
		for _, obsID := range col.Observations.Keys() {
			obs, _ := col.Observations.Get(obsID)
			for _, planeID := range obs.Planes.Keys() {
				plane, _ := obs.Planes.Get(planeID)
				ref := fileindex.PlaneRef{Collection: colName, ObservationID: obsID, ProductID: planeID}
				for _, uri := range plane.URIDict.Keys() {
					if fileID := fileIDFromURI(uri); fileID != "" {
						owners[fileID] = ref.URI()
					}
				}
			}
		}
	}
	return owners
}

// fileIDFromURI extracts the file id from an artifact URI, dropping any
// #extension selector. Malformed URIs yield "".
func fileIDFromURI(uri string) string {
	if i := strings.IndexByte(uri, '#'); i >= 0 {
		uri = uri[:i]
	}
	if i := strings.LastIndexByte(uri, '/'); i >= 0 {
		return uri[i+1:]
	}
	return ""
}
