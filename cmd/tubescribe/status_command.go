package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Tubescribe Status", colorize) {
				fmt.Fprintln(out, line)
			}

			runningKind := statusError
			runningMsg := "stopped"
			if status.Running {
				runningKind = statusOK
				runningMsg = fmt.Sprintf("pid %d, up %s", status.PID, (time.Duration(status.UptimeSeconds) * time.Second).String())
			}
			fmt.Fprintln(out, renderStatusLine("Daemon", runningKind, runningMsg, colorize))

			sessionKind := statusError
			sessionMsg := status.Session.State
			if status.Session.Ready {
				sessionKind = statusOK
				if !status.Session.LastRefresh.IsZero() {
					sessionMsg = fmt.Sprintf("%s, cookies refreshed %s ago",
						status.Session.State,
						time.Since(status.Session.LastRefresh).Round(time.Second))
				}
			} else if status.Session.Detail != "" {
				sessionMsg = fmt.Sprintf("%s (%s)", status.Session.State, status.Session.Detail)
			}
			fmt.Fprintln(out, renderStatusLine("Session", sessionKind, sessionMsg, colorize))

			fmt.Fprintln(out, renderStatusLine("Transcriber", statusInfo, status.Transcriber, colorize))
			fmt.Fprintln(out, renderStatusLine("Batch limit", statusInfo,
				fmt.Sprintf("%d videos, %d workers", status.BatchLimit, status.Workers), colorize))
			if status.HistoryPath != "" {
				fmt.Fprintln(out, renderStatusLine("History", statusInfo, status.HistoryPath, colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}
