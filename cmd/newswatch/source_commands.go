package main

import (
	"github.com/spf13/cobra"

	"newswatch/internal/ipc"
)

func newSourceCommand(ctx *commandContext) *cobra.Command {
	sourceCmd := &cobra.Command{
		Use:   "source",
		Short: "News source availability",
	}

	sourceCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show cached source availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				printSourceStatus(cmd, status.SourceAvailable, status.SourceMessage)
				return nil
			})
		},
	})

	sourceCmd.AddCommand(&cobra.Command{
		Use:   "recheck",
		Short: "Force a fresh availability probe",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SourceRecheck()
				if err != nil {
					return err
				}
				printSourceStatus(cmd, resp.Available, resp.Message)
				return nil
			})
		},
	})

	return sourceCmd
}

func printSourceStatus(cmd *cobra.Command, available bool, message string) {
	stdout := cmd.OutOrStdout()
	kind := statusError
	if available {
		kind = statusOK
	}
	writeStatusSection(stdout, "News Source", []statusLine{
		{label: "Terminal", kind: kind, detail: message},
	}, shouldColorize(stdout))
}
