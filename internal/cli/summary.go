package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/KevinLopezPastor/qmc-agent/pkg/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F44336")).Bold(true)
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

func styleFor(status models.Status) lipgloss.Style {
	switch status {
	case models.StatusSuccess:
		return successStyle
	case models.StatusFailed, models.StatusError:
		return failedStyle
	case models.StatusRunning:
		return runningStyle
	case models.StatusPending:
		return pendingStyle
	default:
		return dimStyle
	}
}

// printSummary renders the run outcome to the console.
func printSummary(state *models.RunState) {
	fmt.Fprintln(os.Stdout, titleStyle.Render("Monitoring Run Summary"))

	if state.Combined != nil {
		combined := state.Combined
		fmt.Fprintf(os.Stdout, "Overall: %s\n", styleFor(combined.OverallStatus).Render(string(combined.OverallStatus)))
		fmt.Fprintf(os.Stdout, "%s\n\n", combined.Summary)
		printSource("QMC", combined.QMC)
		printSource("NPrinting", combined.NPrinting)
	}

	if state.ReportImagePath != "" {
		fmt.Fprintf(os.Stdout, "Report image: %s\n", state.ReportImagePath)
	}
	if state.Error != "" {
		fmt.Fprintf(os.Stdout, "%s %s\n", failedStyle.Render("Run error:"), state.Error)
	}
}

func printSource(name string, summary models.SourceSummary) {
	if summary.TotalProcesses == 0 {
		fmt.Fprintf(os.Stdout, "%s: %s\n", name, dimStyle.Render("no groups monitored"))
		return
	}
	fmt.Fprintf(os.Stdout, "%s (%d groups):\n", name, summary.TotalProcesses)

	names := make([]string, 0, len(summary.Processes))
	for group := range summary.Processes {
		names = append(names, group)
	}
	sort.Strings(names)
	for _, group := range names {
		report := summary.Processes[group]
		fmt.Fprintf(os.Stdout, "  - %s: %s (%d tasks)\n",
			group, styleFor(report.Status).Render(string(report.Status)), report.TaskCount)
		if report.Status == models.StatusFailed && len(report.FailedTasks) > 0 {
			for _, task := range report.FailedTasks {
				fmt.Fprintf(os.Stdout, "      %s\n", failedStyle.Render("✗ "+task))
			}
		}
	}
	fmt.Fprintln(os.Stdout)
}
