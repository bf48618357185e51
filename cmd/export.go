package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/alttext/internal/library"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.parquet>",
		Short: "Write the media library to a Parquet snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := library.ExportParquet(cmd.Context(), a.store, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Exported %d images to %s\n", n, args[0])
			return nil
		},
	}
}
