package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	bannerLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(10)
	bannerBox   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2)
)

// printBanner writes the startup banner to stdout. It is the only output
// visible in the terminal during normal operation; all structured logs go
// to the log file instead.
func printBanner(version, serverURL, logFile, provider string) {
	row := func(label, value string) string {
		return bannerLabel.Render(label) + value
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		bannerTitle.Render("inboxmailer "+version),
		"",
		row("Webhook", serverURL+"/api/webhooks/liveblocks"),
		row("Metrics", serverURL+"/metrics"),
		row("Mail", provider),
		row("Logs", logFile),
	)
	fmt.Println(bannerBox.Render(body))
}
