// Package services defines shared utilities consumed by the ingestion
// pipeline and the external service clients.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, container names, and observation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so failures carry a
//     classifiable sentinel alongside component/operation context.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform across the run.
package services
