// Package preflight provides readiness checks for the paths, binaries,
// and service endpoints a run depends on.
//
// The CLI "siphon preflight" command runs RunAll and renders the results;
// commit runs use the same checks to fail before any file is touched.
// Checks for unconfigured services are skipped rather than failed.
package preflight
