package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"newswatch/internal/ipc"
)

func newCollectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Trigger an immediate collection pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				stdout := cmd.OutOrStdout()
				fmt.Fprintln(stdout, "Collecting...")

				resp, err := client.Collect()
				if err != nil {
					return err
				}

				run := resp.Run
				rows := [][]string{
					{"Collected", strconv.Itoa(run.Collected)},
					{"Queries succeeded", strconv.Itoa(run.QueriesSucceeded)},
					{"Queries failed", strconv.Itoa(run.QueriesFailed)},
					{"API calls", strconv.Itoa(run.APICalls)},
					{"Errors", strconv.Itoa(run.ErrorCount)},
					{"Duration", formatDuration(run.FinishedAt.Sub(run.StartedAt))},
				}
				fmt.Fprintln(stdout, renderTable([]tableColumn{textColumn("Result"), numColumn("Value")}, rows))
				return nil
			})
		},
	}
}
