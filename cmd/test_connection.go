package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTestConnectionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Check the vision and translator credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			markers, err := a.client.TestConnection(cmd.Context())
			for _, m := range markers {
				fmt.Printf("✅ %s\n", m)
			}
			return err
		},
	}
}
