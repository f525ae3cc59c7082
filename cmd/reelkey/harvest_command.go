package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelkey/internal/harvest"
)

func newHarvestCommand(ctx *commandContext) *cobra.Command {
	var start, end, workers int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Scrape player keys and write the key file and download script",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("start") {
				cfg.Harvest.Start = start
			}
			if cmd.Flags().Changed("end") {
				cfg.Harvest.End = end
			}
			if cmd.Flags().Changed("workers") {
				cfg.Harvest.Workers = workers
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			session, err := ctx.startRun(cmd.Context(), "harvest")
			if err != nil {
				return err
			}
			defer session.close()

			h, err := harvest.New(cfg, session.logger)
			if err != nil {
				return err
			}
			report, runErr := h.Run(session.ctx)
			session.finish(report.Results)

			out := cmd.OutOrStdout()
			renderResults(out, report.Results, verbose, false)
			renderSummaryLine(out, "Harvest "+cfg.SeriesTitle(), report.Results, report.Elapsed)
			if runErr != nil {
				return runErr
			}
			fmt.Fprintf(out, "Key file: %s\n", cfg.Paths.KeyFile)
			fmt.Fprintf(out, "Script:   %s\n", cfg.Paths.ScriptFile)
			fmt.Fprintf(out, "Run ID:   %s\n", session.runID())
			return nil
		},
	}

	cmd.Flags().IntVar(&start, "start", 0, "First episode number (overrides harvest.start)")
	cmd.Flags().IntVar(&end, "end", 0, "Last episode number (overrides harvest.end)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent page fetches (overrides harvest.workers)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List every episode, not only misses and failures")
	return cmd
}
