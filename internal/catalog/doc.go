// Package catalog holds the nested observation metadata the accumulator
// builds before any ingestion side effects occur.
//
// The nesting is explicit record types rather than open maps (Catalog,
// Collection, Observation, Plane, Artifact) so the merge rules are methods
// the compiler can see: plane keys overwrite in place, artifact URIs keep
// their first local/remote decision, membership and provenance sets only
// grow. Insertion order is preserved at every level because the override
// description serialized from a plane must be byte-stable run over run.
package catalog
