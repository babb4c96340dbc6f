package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"siphon/internal/containers"
	"siphon/internal/ingest"
	"siphon/internal/ledger"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <source>",
		Short: "List a container's file ids without processing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			filter, err := ctx.listingFilter()
			if err != nil {
				return err
			}
			rc, err := ingest.NewRunContext(cfg, ingest.Mode{})
			if err != nil {
				return err
			}
			defer rc.Cleanup(false)

			clients, err := buildClients(cfg, ingest.Mode{})
			if err != nil {
				return err
			}
			deps := containers.Deps{Ledger: ledger.New()}
			if clients.store != nil {
				deps.Store = clients.store
			}
			if clients.depot != nil {
				deps.Depot = clients.depot
			}

			container, err := containers.Open(cmd.Context(), args[0], rc.FilesDir, deps, filter)
			if err != nil {
				return err
			}
			defer container.Close()

			out := cmd.OutOrStdout()
			ids := container.FileIDs()
			if shouldRenderTables(out) {
				rows := make([][]string, 0, len(ids))
				for _, id := range ids {
					rows = append(rows, []string{id})
				}
				fmt.Fprintln(out, renderTable([]string{"FILE ID"}, rows, nil))
			} else {
				for _, id := range ids {
					fmt.Fprintln(out, id)
				}
			}
			fmt.Fprintf(out, "%d entries in %s\n", len(ids), container.Name())
			return nil
		},
	}
}
