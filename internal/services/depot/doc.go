// Package depot browses a remote namespace of observation files. The
// depot exposes two endpoints: list, returning the immediate children of
// a directory, and fetch, streaming one file's bytes.
package depot
