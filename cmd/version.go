package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X github.com/JakeFAU/lighthouse-dashboard/cmd.version=...".
var (
	version = "dev"
	commit  = "none"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the build version",
		// Printing the version needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		PersistentPostRun: func(*cobra.Command, []string) {},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "dashboard %s (%s)\n", version, commit)
			return err
		},
	}
}
