// Package fileindex persists the mapping from archive file ids to the
// planes that ingested them. Provenance cards often name files that the
// current run never reads; the index resolves those ids to the owning
// plane's URI so they can join the plane's input set. Successful
// ingestions record their file ids back into the index for future runs.
package fileindex
