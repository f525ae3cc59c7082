package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reelkey/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded harvest and download runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						run.Kind,
						string(run.Status),
						humanize.Time(run.StartedAt),
						formatDuration(run.Duration()),
						strconv.Itoa(run.Total),
						strconv.Itoa(run.Succeeded),
						strconv.Itoa(run.Missing + run.Skipped),
						strconv.Itoa(run.Failed),
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{title: "Run"}, {title: "Kind"}, {title: "Status"}, {title: "Started"},
					{title: "Took", numeric: true}, {title: "Total", numeric: true}, {title: "OK", numeric: true},
					{title: "Missing", numeric: true}, {title: "Failed", numeric: true},
				}, rows))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show per-episode outcomes for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				items, err := store.ListItems(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %s (%s, %s)\n", run.ID, run.Kind, run.Status)
				fmt.Fprintf(out, "Started %s, took %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"), formatDuration(run.Duration()))
				if len(items) == 0 {
					fmt.Fprintln(out, "No episodes recorded")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{item.Episode, item.Key, item.Status, formatDuration(item.Duration), formatSize(item.Bytes), item.ErrorKind})
				}
				columns := append(append([]column(nil), episodeColumns...),
					column{title: "Status"}, column{title: "Time", numeric: true},
					column{title: "Size", numeric: true}, column{title: "Error"})
				fmt.Fprintln(out, renderTable(columns, rows))
				return nil
			})
		},
	}
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.New("run history is disabled (history.enabled = false)")
	}
	store, err := history.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
