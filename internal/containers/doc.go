// Package containers normalizes the four file-acquisition strategies behind
// one contract: local directories, tar archives, index lists resolved
// against the data store, and browsable depot namespaces. Every variant
// enumerates file_ids, materializes entries on demand, and guarantees
// release of materialized paths through scoped use, explicit cleanup, or
// close.
package containers
