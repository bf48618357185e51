package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	settingsPath string
	dbPath       string
	verbose      bool
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "alttext",
		Short: "Generate image ALT text with Azure Computer Vision",
		Long: `alttext finds images in a media library that have no ALT text and
describes them using Azure Computer Vision (or Google Gemini), optionally
translating the description with Azure Translator.

Batches are processed one image at a time with a fixed delay so that a
free-tier vision quota of 20 requests per minute is never exceeded.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.settingsPath, "settings", "settings.yaml", "Path to the settings file")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "alttext.db", "Path to the SQLite media library")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newScanCmd(opts))
	cmd.AddCommand(newBatchCmd(opts))
	cmd.AddCommand(newGenerateCmd(opts))
	cmd.AddCommand(newTestConnectionCmd(opts))
	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newExportCmd(opts))

	return cmd
}
