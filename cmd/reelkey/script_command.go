package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelkey/internal/episodes"
)

func newScriptCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "script",
		Short: "Regenerate the download script from the existing key file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			kf, err := episodes.ReadKeyFile(cfg.Paths.KeyFile)
			if err != nil {
				return err
			}
			target := cfg.Paths.ScriptFile
			if outputPath != "" {
				if target, err = expandFlagPath(outputPath); err != nil {
					return err
				}
			}
			opts := episodes.ScriptOptions{
				OutputDir: cfg.Paths.OutputDir,
				Command:   cfg.Download.Command,
				Quality:   cfg.Download.Quality,
			}
			if err := episodes.WriteScript(target, kf.Records, opts); err != nil {
				return fmt.Errorf("write script: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d episodes, %d without keys)\n",
				target, len(kf.Records), episodes.CountMissing(kf.Records))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the script here instead of paths.script_file")
	return cmd
}
