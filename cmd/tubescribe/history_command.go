package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent transcription batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			batches, err := client.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, map[string]any{"batches": batches})
			}

			out := cmd.OutOrStdout()
			if len(batches) == 0 {
				fmt.Fprintln(out, "No recorded batches.")
				return nil
			}

			rows := make([][]string, 0, len(batches))
			for _, b := range batches {
				duration := ""
				if !b.FinishedAt.IsZero() {
					duration = b.FinishedAt.Sub(b.CreatedAt).Round(time.Second).String()
				}
				rows = append(rows, []string{
					b.ID,
					b.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					strconv.Itoa(b.ItemCount),
					strconv.Itoa(b.Succeeded),
					strconv.Itoa(b.Failed),
					duration,
					b.Message,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]tableColumn{
					{title: "ID"},
					{title: "Started"},
					{title: "Videos", numeric: true},
					{title: "OK", numeric: true},
					{title: "Failed", numeric: true},
					{title: "Duration", numeric: true},
					{title: "Message", maxWidth: 48},
				},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of batches to list")
	return cmd
}
