package preflight

import (
	"context"

	"siphon/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Service endpoint checks only run when the service is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckToolBinary(cfg.Tool.Binary))
	results = append(results, CheckFileIndex(ctx, cfg.Archive.FileIndexPath))

	if cfg.Repository.URL != "" {
		results = append(results, CheckServiceURL("Repository service", cfg.Repository.URL))
	}
	if cfg.Store.URL != "" {
		results = append(results, CheckServiceURL("Data store", cfg.Store.URL))
	}
	if cfg.Depot.URL != "" {
		results = append(results, CheckServiceURL("Depot service", cfg.Depot.URL))
	}

	return results
}

// Failed counts checks that did not pass.
func Failed(results []Result) int {
	n := 0
	for _, result := range results {
		if !result.Passed {
			n++
		}
	}
	return n
}
