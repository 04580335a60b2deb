package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"newswatch/internal/ipc"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent collection runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Runs(limit)
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				if len(resp.Runs) == 0 {
					fmt.Fprintln(stdout, "No collection runs recorded")
					return nil
				}

				rows := make([][]string, 0, len(resp.Runs))
				for _, run := range resp.Runs {
					rows = append(rows, []string{
						strconv.FormatInt(run.ID, 10),
						formatTime(run.StartedAt),
						run.Trigger,
						run.Mode,
						strconv.Itoa(run.Collected),
						strconv.Itoa(run.QueriesSucceeded),
						strconv.Itoa(run.QueriesFailed),
						strconv.Itoa(run.ErrorCount),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]tableColumn{
						numColumn("ID"), textColumn("Started"), textColumn("Trigger"), textColumn("Mode"),
						numColumn("Collected"), numColumn("OK"), numColumn("Failed"), numColumn("Errors"),
					},
					rows,
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list")
	return cmd
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var hours int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregated collection statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RunStats(hours)
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Collection statistics for the last %dh\n", hours)
				rows := [][]string{
					{"Runs", strconv.Itoa(resp.Stats.Runs)},
					{"Collected", strconv.Itoa(resp.Stats.Collected)},
					{"Queries succeeded", strconv.Itoa(resp.Stats.QueriesSucceeded)},
					{"Queries failed", strconv.Itoa(resp.Stats.QueriesFailed)},
					{"API calls", strconv.Itoa(resp.Stats.APICalls)},
					{"Errors", strconv.Itoa(resp.Stats.ErrorCount)},
				}
				fmt.Fprintln(stdout, counterTable("Value", rows))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 24, "Statistics window in hours")
	return cmd
}
