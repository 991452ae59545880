package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/inboxmailer/internal/config"
)

// NewRootCmd builds the command tree around cfg.
func NewRootCmd(cfg *config.AppConfig) *cobra.Command {
	root := &cobra.Command{
		Use:   "inboxmailer",
		Short: "Email inbox notifications from collaboration webhooks",
		Long: `inboxmailer receives signed webhook events from the collaboration
platform, fetches the referenced inbox notification and emails the user.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		NewServeCmd(cfg),
		NewSignCmd(cfg),
		NewDeliveriesCmd(cfg),
		NewUpdateCmd(),
		NewVersionCmd(),
	)
	return root
}

// Execute loads configuration and runs the root command.
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := NewRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
