package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/shaharia-lab/inboxmailer/internal/config"
	"github.com/shaharia-lab/inboxmailer/internal/service"
	"github.com/shaharia-lab/inboxmailer/internal/storage"
)

var (
	statusStyles = map[storage.DeliveryStatus]lipgloss.Style{
		storage.StatusSent:             lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		storage.StatusFailed:           lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		storage.StatusIgnored:          lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		storage.StatusSkippedDuplicate: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
	headerStyle = lipgloss.NewStyle().Bold(true)
)

// NewDeliveriesCmd returns the "deliveries" subcommand that prints the
// delivery log.
func NewDeliveriesCmd(cfg *config.AppConfig) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "deliveries",
		Short: "Show recent webhook deliveries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := storage.NewSQLiteDB(cfg.DBPath())
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close() //nolint:errcheck

			svc := service.NewDeliveryService(storage.NewSQLiteDeliveryStore(db))
			records, err := svc.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			printDeliveries(out, records)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func printDeliveries(w io.Writer, records []storage.DeliveryRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No deliveries recorded.")
		return
	}
	const row = "%-20s  %-18s  %-28s  %-14s  %s"
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf(row, "TIME", "STATUS", "WEBHOOK ID", "USER", "DETAIL")))
	for _, r := range records {
		status := fmt.Sprintf("%-18s", r.Status)
		if st, ok := statusStyles[r.Status]; ok {
			status = st.Render(status)
		}
		detail := r.Recipient
		if r.ErrorMsg != "" {
			detail = r.ErrorMsg
		}
		fmt.Fprintf(w, "%-20s  %s  %-28s  %-14s  %s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			status, truncate(r.WebhookID, 28), truncate(r.UserID, 14), detail)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
