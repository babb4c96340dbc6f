// Package fits reads the primary headers the ingestion adapters map into
// catalog records. It is a deliberately small seam over the FITS parser:
// ordered keyword access with every value rendered as text, which is the
// only form the override serialization ever needs.
package fits
