package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"siphon/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check paths, binaries, and service endpoints before a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			out := cmd.OutOrStdout()

			if shouldRenderTables(out) {
				rows := make([][]string, 0, len(results))
				for _, result := range results {
					rows = append(rows, []string{result.Name, passFail(result.Passed), result.Detail})
				}
				fmt.Fprintln(out, renderTable([]string{"CHECK", "STATUS", "DETAIL"}, rows, nil))
			} else {
				for _, result := range results {
					fmt.Fprintf(out, "%s: %s (%s)\n", result.Name, passFail(result.Passed), result.Detail)
				}
			}

			if failed := preflight.Failed(results); failed > 0 {
				return fmt.Errorf("%d of %d preflight checks failed", failed, len(results))
			}
			fmt.Fprintln(out, "All preflight checks passed")
			return nil
		},
	}
}

func passFail(passed bool) string {
	if passed {
		return "pass"
	}
	return "fail"
}
