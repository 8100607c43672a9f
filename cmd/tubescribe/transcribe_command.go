package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tubescribe/internal/api"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var full bool

	cmd := &cobra.Command{
		Use:   "transcribe <url>...",
		Short: "Transcribe one or more YouTube videos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := api.TranscriptionRequest{VideoURLs: args}
			if err := request.Validate(); err != nil {
				return err
			}

			client, err := ctx.client()
			if err != nil {
				return err
			}

			resp, err := client.Transcribe(cmd.Context(), args)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.Message)
			for i, item := range resp.Data {
				fmt.Fprintf(out, "\n[%d] %s (%d chars)\n", i+1, item.Title, item.CharCount)
				transcript := item.Transcript
				if !full {
					transcript = truncateTranscript(transcript, 400)
				}
				if transcript != "" {
					fmt.Fprintln(out, transcript)
				}
			}
			if !resp.Success {
				return fmt.Errorf("no videos could be transcribed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	cmd.Flags().BoolVar(&full, "full", false, "Print full transcripts instead of a preview")
	return cmd
}

func truncateTranscript(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "…"
}
