// Package ingest drives the batch pipeline: containers drain into the
// catalog through the metadata accumulator, confirmed files are pushed to
// the store, and the driver converts each accumulated plane into the
// observation repository through the external tool.
package ingest
