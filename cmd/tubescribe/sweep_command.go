package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tubescribe/internal/sweeper"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove orphaned work directories from the temp root",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			removed, err := sweeper.New(cfg, nil).SweepOnce(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}

			out := cmd.OutOrStdout()
			if removed == 0 {
				fmt.Fprintln(out, "Nothing to sweep.")
				return nil
			}
			fmt.Fprintf(out, "Removed %d orphaned work directories.\n", removed)
			return nil
		},
	}
}
