package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/alttext/internal/batch"
	"github.com/lehigh-university-libraries/alttext/internal/library"
	"github.com/lehigh-university-libraries/alttext/internal/report"
	"github.com/spf13/cobra"
)

func newBatchCmd(opts *rootOptions) *cobra.Command {
	var all bool
	var reportDir string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate ALT text for many images",
		Long: `Processes images one at a time, waiting three seconds between requests
to stay within the free-tier vision quota. A YAML report of the run is
written to the report directory. Interrupting the command stops the batch
after the current image and still writes the report.`,
		Example: `  # Describe every image missing ALT text
  alttext batch

  # Regenerate ALT text for every image
  alttext batch --all --report-dir reports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			var ids []string
			if all {
				images, err := library.ScanAll(ctx, a.store)
				if err != nil {
					return err
				}
				ids = library.IDs(images)
			} else {
				result, err := library.ScanMissing(ctx, a.store)
				if err != nil {
					return err
				}
				ids = library.IDs(result.Images)
			}

			collector := report.NewCollector()
			driver := batch.NewDriver(a.service, batch.Multi{batch.LogPresenter{}, collector}, batch.DefaultOptions())

			if _, err := driver.Start(ids); err != nil {
				return err
			}
			runErr := driver.Run(ctx)
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}

			r := collector.Report()
			path, err := report.Save(reportDir, r)
			if err != nil {
				return err
			}

			fmt.Printf("\nProcessed %d of %d images (%d succeeded, %d failed)\n", r.Completed, r.Total, r.Succeeded, r.Failed)
			if r.Cancelled {
				fmt.Println("Batch was cancelled before finishing")
			}
			fmt.Printf("Report saved to: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Process every image, replacing existing ALT text")
	cmd.Flags().StringVar(&reportDir, "report-dir", "reports", "Directory for batch reports")

	return cmd
}
