package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var flags globalFlags

	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "siphon",
		Short:         "Batch observation ingestion for a science data archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log format override (console or json)")
	rootCmd.PersistentFlags().StringVar(&flags.filter, "filter", "fits", "Listing filter (fits or none)")
	rootCmd.PersistentFlags().StringVar(&flags.archive, "archive", "", "Archive name override")
	rootCmd.PersistentFlags().StringVar(&flags.collection, "collection", "", "Metadata collection override")

	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newStoreCommand(ctx))
	rootCmd.AddCommand(newIngestCommand(ctx))
	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newPreflightCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
