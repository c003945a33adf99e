// ABOUTME: Compact metric block widget for dashboard displays
// ABOUTME: Combines icon, value, an optional bar, and a subtitle in a bordered panel

package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/tui/icons"
)

// MetricBlockConfig holds configuration for a metric block
type MetricBlockConfig struct {
	Width       int
	BorderColor lipgloss.Color
	TitleColor  lipgloss.Color
	ValueColor  lipgloss.Color
}

// DefaultMetricBlockConfig returns sensible defaults
func DefaultMetricBlockConfig() MetricBlockConfig {
	return MetricBlockConfig{
		Width:       24,
		BorderColor: lipgloss.Color("#6B7280"), // Muted gray
		TitleColor:  lipgloss.Color("#0EA5E9"), // Sky
		ValueColor:  lipgloss.Color("#F9FAFB"), // Light
	}
}

// MetricBlock renders a compact metric display block
func MetricBlock(icon icons.Icon, title, value, subtitle string, config MetricBlockConfig) string {
	if config.Width <= 0 {
		config.Width = 24
	}
	innerWidth := config.Width - 4

	valueStyle := lipgloss.NewStyle().Foreground(config.ValueColor).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	return renderBlock(icon, title, config, innerWidth,
		valueStyle.Render(truncate(value, innerWidth)),
		subtitleStyle.Render(truncate(subtitle, innerWidth)),
	)
}

// MetricBlockWithBar renders a metric block with a usage bar. Higher
// percentages are worse: amber from 80%, red from 95%.
func MetricBlockWithBar(icon icons.Icon, title string, percent float64, details string, config MetricBlockConfig) string {
	if config.Width <= 0 {
		config.Width = 24
	}
	innerWidth := config.Width - 4
	barWidth := innerWidth - 6 // Leave room for percentage

	var statusColor lipgloss.Color
	var statusIcon string
	switch {
	case percent >= 95:
		statusColor = BadgeCritBg
		statusIcon = "✗"
	case percent >= 80:
		statusColor = BadgeWarnBg
		statusIcon = "⚠"
	default:
		statusColor = BadgeOKBg
		statusIcon = "✓"
	}

	valueStyle := lipgloss.NewStyle().Bold(true).Foreground(statusColor)
	valueLine := fmt.Sprintf("%s %s",
		valueStyle.Render(fmt.Sprintf("%3.0f%%", percent)),
		lipgloss.NewStyle().Foreground(statusColor).Render(statusIcon))

	detailStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	return renderBlock(icon, title, config, innerWidth,
		valueLine,
		CompactProgressBar(percent, barWidth, statusColor),
		detailStyle.Render(truncate(details, innerWidth)),
	)
}

// renderBlock draws the title-in-border box around pre-styled lines
func renderBlock(icon icons.Icon, title string, config MetricBlockConfig, innerWidth int, lines ...string) string {
	titleStr := fmt.Sprintf("%s %s", icon.String(), title)
	titleStyle := lipgloss.NewStyle().Foreground(config.TitleColor)
	borderStyle := lipgloss.NewStyle().Foreground(config.BorderColor)

	// "┌─ " + title + " " + fill + "┐" spans the full block width
	fill := max(0, config.Width-5-lipgloss.Width(titleStr))
	out := []string{borderStyle.Render("┌─ ") + titleStyle.Render(titleStr) + borderStyle.Render(" "+strings.Repeat("─", fill)+"┐")}

	for _, line := range lines {
		pad := max(0, innerWidth-lipgloss.Width(line))
		out = append(out, borderStyle.Render("│  ")+line+strings.Repeat(" ", pad)+borderStyle.Render("│"))
	}

	out = append(out, borderStyle.Render("└"+strings.Repeat("─", config.Width-2)+"┘"))
	return strings.Join(out, "\n")
}

// truncate shortens a string to maxLen runes with ellipsis if needed
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
