package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"newswatch/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, source, and collection status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				runningLine := statusLine{label: "Running", kind: statusError, detail: "stopped"}
				if status.Running {
					runningLine.kind = statusOK
					runningLine.detail = fmt.Sprintf("pid %d, up %s", status.PID, formatDuration(time.Since(status.StartedAt)))
				}
				modeDetail := status.Mode
				if status.ModeReason != "" {
					modeDetail += " (" + status.ModeReason + ")"
				}
				writeStatusSection(stdout, "Daemon", []statusLine{
					runningLine,
					{label: "Mode", kind: modeKind(status.Mode), detail: modeDetail},
					{label: "Database", kind: statusInfo, detail: status.DatabasePath},
				}, colorize)
				fmt.Fprintln(stdout)

				sourceKind := statusError
				if status.SourceAvailable {
					sourceKind = statusOK
				}
				sourceLines := []statusLine{
					{label: "Terminal", kind: sourceKind, detail: status.SourceMessage},
				}
				if !status.SourceCheckedAt.IsZero() {
					sourceLines = append(sourceLines, statusLine{
						label: "Last check", kind: statusInfo, detail: formatTime(status.SourceCheckedAt),
					})
				}
				writeStatusSection(stdout, "News Source", sourceLines, colorize)
				fmt.Fprintln(stdout)

				fmt.Fprintln(stdout, "== Collection (24h) ==")
				fmt.Fprintln(stdout, counterTable("Value", [][]string{
					{"Stored articles", strconv.Itoa(status.Articles)},
					{"Runs", strconv.Itoa(status.Runs24h.Runs)},
					{"Collected", strconv.Itoa(status.Runs24h.Collected)},
					{"Queries succeeded", strconv.Itoa(status.Runs24h.QueriesSucceeded)},
					{"Queries failed", strconv.Itoa(status.Runs24h.QueriesFailed)},
					{"API calls", strconv.Itoa(status.Runs24h.APICalls)},
					{"Errors", strconv.Itoa(status.Runs24h.ErrorCount)},
				}))

				fmt.Fprintln(stdout, "== Analysis ==")
				fmt.Fprintln(stdout, counterTable("Value", [][]string{
					{"Analyzed", strconv.Itoa(status.Analyzed)},
					{"Skipped", strconv.Itoa(status.AnalysisSkipped)},
					{"Failed", strconv.Itoa(status.AnalysisFailed)},
					{"Model calls", strconv.Itoa(status.ModelCalls)},
					{"Spend (USD)", fmt.Sprintf("%.4f", status.SpentUSD)},
				}))
				return nil
			})
		},
	}
}

func modeKind(mode string) statusKind {
	switch mode {
	case "active":
		return statusOK
	case "passive":
		return statusWarn
	default:
		return statusInfo
	}
}
