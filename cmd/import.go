package cmd

import (
	"context"
	"fmt"

	"github.com/lehigh-university-libraries/alttext/internal/library"
	"github.com/lehigh-university-libraries/alttext/internal/storage"
	"github.com/spf13/cobra"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load images into the media library from a Parquet or JSONL file",
		Example: `  alttext import library.jsonl
  alttext import snapshot.parquet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := library.LoadFile(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			var saved int
			err = storage.RunInTransaction(cmd.Context(), a.store.DB(), func(ctx context.Context) error {
				n, err := library.Import(ctx, a.store, records)
				saved = n
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to import %s: %w", args[0], err)
			}

			fmt.Printf("Imported %d of %d records from %s\n", saved, len(records), args[0])
			return nil
		},
	}
}
