package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/alttext/internal/library"
	"github.com/lehigh-university-libraries/alttext/internal/models"
	"github.com/spf13/cobra"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	var all bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List images missing ALT text",
		Example: `  # Count images with and without ALT text
  alttext scan

  # List every image as JSON
  alttext scan --all --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			var result *models.ScanResult
			if all {
				images, err := library.ScanAll(cmd.Context(), a.store)
				if err != nil {
					return err
				}
				result = &models.ScanResult{Total: len(images), Images: images}
				for _, img := range images {
					if img.HasAltText() {
						result.WithAlt++
					} else {
						result.WithoutAlt++
					}
				}
			} else {
				result, err = library.ScanMissing(cmd.Context(), a.store)
				if err != nil {
					return err
				}
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Printf("Total images: %d\n", result.Total)
			fmt.Printf("With ALT text: %d\n", result.WithAlt)
			fmt.Printf("Without ALT text: %d\n", result.WithoutAlt)
			if len(result.Images) > 0 {
				fmt.Println()
			}
			for _, img := range result.Images {
				alt := img.AltText
				if alt == "" {
					alt = "(missing)"
				}
				fmt.Printf("  %-8s %-30s %s\n", img.ID, truncate(img.Title, 30), alt)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "List every image, not only those missing ALT text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
