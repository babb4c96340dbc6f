// Package ledger records per-file errors and warnings without interrupting a
// run. Ingestion examines many files per invocation; the ledger lets every
// file be checked and reported in one pass, with the run exiting non-zero
// only after the full report is written.
package ledger
