package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/inboxmailer/internal/build"
)

// NewVersionCmd returns the "version" subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "inboxmailer "+build.String())
		},
	}
}
