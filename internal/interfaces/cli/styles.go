package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"kilometers.ai/libbundle/internal/core/domain"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	selectStyle  = lipgloss.NewStyle().Background(lipgloss.Color("237"))
)

var statusStyles = map[domain.EdgeStatus]lipgloss.Style{
	domain.EdgeBundled:    okStyle,
	domain.EdgeExcluded:   mutedStyle,
	domain.EdgeSystem:     mutedStyle,
	domain.EdgeUnresolved: warningStyle,
	domain.EdgeFailed:     errorStyle,
}

func styleStatus(status domain.EdgeStatus) string {
	style, ok := statusStyles[status]
	if !ok {
		return string(status)
	}
	return style.Render(string(status))
}

// renderReport renders the summary printed after bundling one root
func renderReport(report *domain.BundleReport) string {
	var b strings.Builder

	title := "Bundled " + filepath.Base(report.Root)
	if report.DryRun {
		title += " (dry run)"
	}
	b.WriteString(titleStyle.Render(title) + "\n")

	row := func(label string, value interface{}) {
		b.WriteString(fmt.Sprintf("  %s %v\n", labelStyle.Render(fmt.Sprintf("%-14s", label)), value))
	}
	row("Architectures", report.Architectures)
	row("Visited", len(report.Visited))
	row("Copied", len(report.Copied))
	row("Reused", len(report.Reused))
	row("Rewrites", len(report.Rewrites))
	row("Skipped", len(report.Skipped()))
	row("Duration", report.Duration().Round(time.Millisecond))

	for _, name := range report.Copied {
		b.WriteString("  " + okStyle.Render("+ ") + name + "\n")
	}

	if report.HasWarnings() {
		b.WriteString(warningStyle.Render(fmt.Sprintf("\n%d unresolved dependencies:", len(report.Warnings))) + "\n")
		for _, w := range report.Warnings {
			b.WriteString("  " + warningStyle.Render("! ") + w.Error() + "\n")
		}
	}
	if len(report.Failures) > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("\n%d failed operations:", len(report.Failures))) + "\n")
		for _, f := range report.Failures {
			b.WriteString(fmt.Sprintf("  %s%s %s: %v\n", errorStyle.Render("x "), f.Action, f.Target, f.Err))
		}
	}

	return b.String()
}
