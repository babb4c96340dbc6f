package main

import (
	"github.com/spf13/cobra"

	"siphon/internal/ingest"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <source>...",
		Short: "Accumulate and validate sources without remote side effects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), ctx, args,
				runOptions{mode: ingest.Mode{}}, cmd.OutOrStdout())
		},
	}
}

func newStoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "store <source>...",
		Short: "Validate sources and push confirmed files to the data store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), ctx, args,
				runOptions{mode: ingest.Mode{Store: true}}, cmd.OutOrStdout())
		},
	}
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var storeFiles bool
	var retainOverrides bool

	cmd := &cobra.Command{
		Use:   "ingest <source>...",
		Short: "Run the full pipeline: accumulate, then ingest plane by plane",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), ctx, args, runOptions{
				mode:            ingest.Mode{Store: storeFiles, Ingest: true},
				retainOverrides: retainOverrides,
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&storeFiles, "store", false, "Also push confirmed files to the data store")
	cmd.Flags().BoolVar(&retainOverrides, "retain-overrides", false, "Keep override files after successful planes")
	return cmd
}
