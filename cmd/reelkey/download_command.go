package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelkey/internal/browser"
	"reelkey/internal/downloader"
	"reelkey/internal/preflight"
	"reelkey/internal/services/abyssdl"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var concurrency int
	var includeMissing bool
	var skipPreflight bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download every episode listed in the key file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Download.Concurrency = concurrency
			}
			if includeMissing {
				cfg.Download.SkipMissingKeys = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if !skipPreflight {
				var missing []string
				for _, status := range preflight.CheckSystemDeps(cfg) {
					if !status.Available && !status.Optional {
						missing = append(missing, fmt.Sprintf("%s: %s", status.Name, status.Detail))
					}
				}
				if len(missing) > 0 {
					return fmt.Errorf("missing required programs (run `reelkey check`): %s", strings.Join(missing, "; "))
				}
			}

			session, err := ctx.startRun(cmd.Context(), "download")
			if err != nil {
				return err
			}
			defer session.close()

			chrome, err := browser.Launch(session.ctx, cfg, session.logger)
			if err != nil {
				return err
			}
			defer chrome.Close()

			client, err := abyssdl.New(cfg.Download.Command, cfg.Download.Quality, abyssdl.WithLogger(session.logger))
			if err != nil {
				return err
			}
			d, err := downloader.New(cfg, chrome, client, session.logger)
			if err != nil {
				return err
			}

			report, err := d.RunFile(session.ctx)
			if err != nil {
				session.finish(nil)
				return err
			}
			session.finish(report.Results)

			out := cmd.OutOrStdout()
			for _, skipped := range report.Skipped {
				fmt.Fprintf(out, "Ignored key file line %d (%s): %q\n", skipped.Line, skipped.Reason, skipped.Text)
			}
			renderResults(out, report.Results, verbose, true)
			renderSummaryLine(out, "Download "+cfg.SeriesTitle(), report.Results, report.Elapsed)
			fmt.Fprintf(out, "Output:   %s\n", cfg.Paths.OutputDir)
			fmt.Fprintf(out, "Run ID:   %s\n", session.runID())
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Episodes in flight at once (overrides download.concurrency)")
	cmd.Flags().BoolVar(&includeMissing, "include-missing", false, "Also dispatch episodes whose key is NULL")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Do not check for the downloader and Chromium before starting")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List every episode, not only failures and skips")
	return cmd
}
