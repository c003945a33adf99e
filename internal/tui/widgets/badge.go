// ABOUTME: Status badge widgets for quick visual status indication
// ABOUTME: Provides colored inline badges for session phase and expiry

package widgets

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/session"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/tui/icons"
)

// StatusLevel represents the severity of a status
type StatusLevel int

const (
	StatusOK StatusLevel = iota
	StatusWarning
	StatusCritical
	StatusInfo
	StatusNeutral
)

// Badge colors
var (
	BadgeOKBg      = lipgloss.Color("#10B981")
	BadgeOKFg      = lipgloss.Color("#FFFFFF")
	BadgeWarnBg    = lipgloss.Color("#F59E0B")
	BadgeWarnFg    = lipgloss.Color("#000000")
	BadgeCritBg    = lipgloss.Color("#EF4444")
	BadgeCritFg    = lipgloss.Color("#FFFFFF")
	BadgeInfoBg    = lipgloss.Color("#3B82F6")
	BadgeInfoFg    = lipgloss.Color("#FFFFFF")
	BadgeNeutralBg = lipgloss.Color("#6B7280")
	BadgeNeutralFg = lipgloss.Color("#FFFFFF")
)

// expiringWindow is how close to expiry a credential turns amber
const expiringWindow = 5 * time.Minute

// Badge renders a colored status badge
func Badge(text string, level StatusLevel) string {
	bg, fg := levelColors(level)

	style := lipgloss.NewStyle().
		Background(bg).
		Foreground(fg).
		Padding(0, 1).
		Bold(true)

	return style.Render(text)
}

func levelColors(level StatusLevel) (bg, fg lipgloss.Color) {
	switch level {
	case StatusOK:
		return BadgeOKBg, BadgeOKFg
	case StatusWarning:
		return BadgeWarnBg, BadgeWarnFg
	case StatusCritical:
		return BadgeCritBg, BadgeCritFg
	case StatusInfo:
		return BadgeInfoBg, BadgeInfoFg
	default:
		return BadgeNeutralBg, BadgeNeutralFg
	}
}

// PhaseLevel maps a session phase to a status level
func PhaseLevel(p session.Phase) StatusLevel {
	switch p {
	case session.PhaseAuthenticated:
		return StatusOK
	case session.PhaseRefreshing:
		return StatusInfo
	case session.PhaseUnauthenticated:
		return StatusCritical
	default:
		return StatusNeutral
	}
}

// PhaseBadge renders the session phase as a badge
func PhaseBadge(p session.Phase) string {
	var label string
	switch p {
	case session.PhaseAuthenticated:
		label = "SIGNED IN"
	case session.PhaseRefreshing:
		label = "REFRESHING"
	case session.PhaseUnauthenticated:
		label = "SIGNED OUT"
	default:
		label = "CHECKING"
	}
	return Badge(label, PhaseLevel(p))
}

// ExpiryLevel returns the status level for the remaining credential lifetime
func ExpiryLevel(remaining time.Duration) StatusLevel {
	if remaining <= 0 {
		return StatusCritical
	}
	if remaining <= expiringWindow {
		return StatusWarning
	}
	return StatusOK
}

// StatusIcon returns the appropriate icon for a status level
func StatusIcon(level StatusLevel) string {
	bg, _ := levelColors(level)
	style := lipgloss.NewStyle().Foreground(bg)

	switch level {
	case StatusOK:
		return style.Render(icons.CheckOK.String())
	case StatusWarning:
		return style.Render(icons.Warning.String())
	case StatusCritical:
		return style.Render(icons.Critical.String())
	case StatusInfo:
		return style.Render(icons.Info.String())
	default:
		return style.Render("•")
	}
}

// StatusText returns styled status text with icon
func StatusText(text string, level StatusLevel) string {
	bg, _ := levelColors(level)
	textStyle := lipgloss.NewStyle().Foreground(bg)
	return fmt.Sprintf("%s %s", StatusIcon(level), textStyle.Render(text))
}
