package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"newswatch/internal/store"
)

func newDedupeCommand(ctx *commandContext) *cobra.Command {
	var apply bool
	var keepOldest bool

	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Find and remove duplicate articles sharing a title and source",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(db *store.Store) error {
				stdout := cmd.OutOrStdout()

				groups, err := db.FindTitleSourceDuplicates(cmd.Context())
				if err != nil {
					return err
				}
				if len(groups) == 0 {
					fmt.Fprintln(stdout, "No duplicates found")
					return nil
				}

				rows := make([][]string, 0, len(groups))
				for _, group := range groups {
					rows = append(rows, []string{
						truncate(group.Title, 60),
						group.Source,
						strconv.Itoa(group.Count),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]tableColumn{textColumn("Title"), textColumn("Source"), numColumn("Copies")},
					rows,
				))

				if !apply {
					fmt.Fprintln(stdout, "Run again with --apply to remove the extra copies")
					return nil
				}

				removed, err := db.RemoveTitleSourceDuplicates(cmd.Context(), !keepOldest)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Removed %d duplicate articles\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Remove duplicates instead of only listing them")
	cmd.Flags().BoolVar(&keepOldest, "keep-oldest", false, "Keep the earliest copy instead of the latest")
	return cmd
}
