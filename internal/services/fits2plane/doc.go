// Package fits2plane mediates access to the fits2plane CLI that turns
// accumulated plane metadata into repository observation documents.
//
// It builds the tool's argument list from a Request, forwards tool output
// line by line to the run log, and reruns a failed conversion once with
// --debug so the log captures the diagnostics needed to explain the failure.
// The rerun exists for the log's benefit: a conversion whose first attempt
// exits nonzero fails regardless of how the rerun exits.
package fits2plane
