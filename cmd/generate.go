package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "generate <image-id>",
		Short: "Generate ALT text for a single image",
		Example: `  # Describe image 42 in the configured language
  alttext generate 42

  # Describe image 42 in Finnish
  alttext generate 42 --language fi`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			altText, err := a.service.Generate(cmd.Context(), args[0], language)
			if err != nil {
				return err
			}

			fmt.Println(altText)
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "Language for this image, overriding the settings")

	return cmd
}
