package ingest

import (
	"regexp"
	"strings"

	"siphon/internal/catalog"
	"siphon/internal/containers"
	"siphon/internal/fits"
)

// FileSource identifies one materialized file during metadata extraction.
// Persistent reports whether Path is the original file rather than a
// per-run copy, which decides whether the tool may read it directly.
type FileSource struct {
	FileID     string
	Path       string
	Persistent bool
}

// Adapter populates a catalog record from one file's primary header.
// Archives with richer header conventions substitute their own
// implementation; the accumulator records a returned error in the ledger
// and skips the merge.
type Adapter interface {
	Populate(rec *catalog.Record, header *fits.Header, src FileSource) error
}

// ArtifactURI builds the store-addressed URI for a file in archive.
func ArtifactURI(archive, fileID string) string {
	return "arc:" + archive + "/" + fileID
}

var (
	memberKeyPattern     = regexp.MustCompile(`^MBR\d+$`)
	inputKeyPattern      = regexp.MustCompile(`^INP\d+$`)
	provenanceKeyPattern = regexp.MustCompile(`^PRV\d+$`)
)

// planeKeywords maps descriptive header cards onto plane keys in a fixed
// order so the override output is stable across files.
var planeKeywords = []struct {
	card string
	key  string
}{
	{"ALGORTHM", "algorithm.name"},
	{"PROVNAME", "provenance.name"},
	{"RELEASE", "release_date"},
	{"TELESCOP", "telescope.name"},
	{"INSTRUME", "instrument.name"},
	{"OBJECT", "target.name"},
}

// KeywordAdapter implements the plain keyword convention: identity from
// COLLECT/OBSID/PRODID, descriptive plane keys, PRODTYPE on the file's own
// artifact block, and numbered MBRn/INPn/PRVn cards for membership and
// provenance. Reference values that already carry a scheme pass through
// verbatim; bare values resolve against the record's collection.
type KeywordAdapter struct {
	archive    string
	collection string
}

// NewKeywordAdapter returns an adapter for archive. collection is the
// fallback when a header carries no COLLECT card.
func NewKeywordAdapter(archive, collection string) *KeywordAdapter {
	return &KeywordAdapter{archive: archive, collection: collection}
}

func (a *KeywordAdapter) Populate(rec *catalog.Record, header *fits.Header, src FileSource) error {
	rec.Collection = a.collection
	if value, ok := header.Get("COLLECT"); ok && value != "" {
		rec.Collection = value
	}
	rec.ObservationID, _ = header.Get("OBSID")
	rec.ProductID, _ = header.Get("PRODID")
	rec.URI = ArtifactURI(a.archive, src.FileID)
	if src.Persistent {
		rec.LocalPath = src.Path
	}

	for _, kw := range planeKeywords {
		if value, ok := header.Get(kw.card); ok && value != "" {
			rec.PlaneDict.Set(kw.key, value)
		}
	}

	base := rec.Artifact(rec.URI)
	if value, ok := header.Get("PRODTYPE"); ok && value != "" {
		base.Overrides.Set("artifact.productType", value)
	}

	for _, key := range header.Keys() {
		value, _ := header.Get(key)
		if value == "" {
			continue
		}
		switch {
		case memberKeyPattern.MatchString(key):
			rec.MemberURIs = append(rec.MemberURIs, a.referenceURI(rec.Collection, value))
		case inputKeyPattern.MatchString(key):
			rec.InputURIs = append(rec.InputURIs, a.referenceURI(rec.Collection, value))
		case provenanceKeyPattern.MatchString(key):
			if id := containers.MakeFileID(value); id != "" {
				rec.FileIDs = append(rec.FileIDs, id)
			}
		}
	}
	return nil
}

func (a *KeywordAdapter) referenceURI(collection, value string) string {
	if strings.Contains(value, ":") {
		return value
	}
	return "obs:" + collection + "/" + value
}
