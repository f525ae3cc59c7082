package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelkey/internal/episodes"
)

func newKeysCommand(ctx *commandContext) *cobra.Command {
	var missingOnly bool

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Show the harvested key file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			kf, err := episodes.ReadKeyFile(cfg.Paths.KeyFile)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(kf.Records))
			for _, rec := range kf.Records {
				if missingOnly && rec.HasKey() {
					continue
				}
				rows = append(rows, []string{rec.Index, rec.Key, yesNo(rec.HasKey())})
			}
			out := cmd.OutOrStdout()
			if len(rows) > 0 {
				columns := append(append([]column(nil), episodeColumns...), column{title: "Downloadable"})
				fmt.Fprintln(out, renderTable(columns, rows))
			}
			for _, skipped := range kf.Skipped {
				fmt.Fprintf(out, "Ignored line %d (%s): %q\n", skipped.Line, skipped.Reason, skipped.Text)
			}
			missing := episodes.CountMissing(kf.Records)
			fmt.Fprintf(out, "%d episodes, %d with keys, %d missing\n", len(kf.Records), len(kf.Records)-missing, missing)
			return nil
		},
	}

	cmd.Flags().BoolVar(&missingOnly, "missing", false, "Only list episodes without a key")
	return cmd
}
