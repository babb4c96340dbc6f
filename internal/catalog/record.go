package catalog

import (
	"strings"

	"siphon/internal/services"
)

// Record is the transient per-file accumulation. The accumulator builds a
// fresh one for every file; nothing carries over between files.
type Record struct {
	Collection    string
	ObservationID string
	ProductID     string
	// URI is the artifact URI this file contributes; LocalPath backs it
	// when the file came from a persistent container.
	URI       string
	LocalPath string

	MemberURIs []string
	InputURIs  []string
	// FileIDs are provenance references not yet resolved to an input
	// plane; the file index resolves them after all containers drain.
	FileIDs []string

	PlaneDict *Dict[string]
	Artifacts *Dict[*Artifact]
}

// NewRecord returns an empty record with its dictionaries initialized.
func NewRecord() *Record {
	return &Record{
		PlaneDict: NewDict[string](),
		Artifacts: NewDict[*Artifact](),
	}
}

// Artifact returns the override block for uri, creating it on first use.
// The uri may carry an #extension selector and need not equal Record.URI.
func (r *Record) Artifact(uri string) *Artifact {
	if artifact, ok := r.Artifacts.Get(uri); ok {
		return artifact
	}
	artifact := newArtifact(uri)
	r.Artifacts.Set(uri, artifact)
	return artifact
}

// Validate reports whether the record carries everything a merge requires:
// collection, observation id, product id, and the artifact URI.
func (r *Record) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Collection) == "" {
		missing = append(missing, "collection")
	}
	if strings.TrimSpace(r.ObservationID) == "" {
		missing = append(missing, "observation id")
	}
	if strings.TrimSpace(r.ProductID) == "" {
		missing = append(missing, "product id")
	}
	if strings.TrimSpace(r.URI) == "" {
		missing = append(missing, "artifact uri")
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrValidation, "catalog", "merge", "record missing "+strings.Join(missing, ", "), nil)
	}
	return nil
}
