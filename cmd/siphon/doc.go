// Command siphon ingests batches of science data files into the
// observation repository. Sources are classified by shape (directory, tar
// archive, index list, depot namespace), drained into a per-run metadata
// catalog, and driven plane by plane through the external processing tool.
package main
