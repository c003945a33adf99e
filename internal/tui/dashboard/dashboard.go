// ABOUTME: Dashboard component displaying the signed-in profile
// ABOUTME: Shows balance, salary, payday and how long the session has left

package dashboard

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/money"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/session"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/tui/icons"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/tui/styles"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/tui/widgets"
)

// blockWidth is the width of one metric block
const blockWidth = 24

// Dashboard displays the session snapshot
type Dashboard struct {
	snap   session.Snapshot
	width  int
	height int
	now    func() time.Time
}

// New creates a new dashboard for a snapshot
func New(snap session.Snapshot, width, height int) *Dashboard {
	return &Dashboard{
		snap:   snap,
		width:  width,
		height: height,
		now:    time.Now,
	}
}

// Update replaces the snapshot being shown
func (d *Dashboard) Update(snap session.Snapshot) {
	d.snap = snap
}

// SetSize updates the dashboard dimensions
func (d *Dashboard) SetSize(width, height int) {
	d.width = width
	d.height = height
}

// View renders the dashboard
func (d *Dashboard) View() string {
	u := d.snap.User
	if u == nil {
		return styles.Panel.Width(d.width).Render("Loading profile...")
	}

	var sb strings.Builder

	sb.WriteString(styles.Title.Render("Welcome back, " + u.DisplayName()))
	sb.WriteString("\n")
	if u.Email != "" {
		sb.WriteString(styles.Subtitle.Render(u.Email))
		sb.WriteString("\n")
	}
	sb.WriteString(widgets.PhaseBadge(d.snap.Phase))
	if remaining, ok := d.remaining(); ok {
		sb.WriteString("  ")
		sb.WriteString(widgets.StatusText(describeRemaining(remaining), widgets.ExpiryLevel(remaining)))
	}
	sb.WriteString("\n\n")

	sb.WriteString(d.renderBlocks())

	return lipgloss.NewStyle().
		Width(d.width).
		Height(d.height).
		Render(sb.String())
}

// renderBlocks lays the metric blocks out in as many columns as fit
func (d *Dashboard) renderBlocks() string {
	u := d.snap.User
	cfg := widgets.DefaultMetricBlockConfig()
	cfg.Width = blockWidth

	balanceCfg := cfg
	if u.Balance != nil && u.Balance.IsNegative() {
		balanceCfg.ValueColor = styles.Danger
	}

	currency := u.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}

	payday := "-"
	paydayNote := "not set"
	if u.PaymentDay > 0 {
		payday = fmt.Sprintf("Day %d", u.PaymentDay)
		paydayNote = nextPayday(d.now(), u.PaymentDay)
	}

	blocks := []string{
		widgets.MetricBlock(icons.Wallet, "Balance", money.FormatPtr(u.Balance, u.Currency, u.CurrencySymbol, "-"), currency, balanceCfg),
		widgets.MetricBlock(icons.Salary, "Salary", money.FormatPtr(u.Salary, u.Currency, u.CurrencySymbol, "-"), "monthly", cfg),
		widgets.MetricBlock(icons.Calendar, "Payday", payday, paydayNote, cfg),
	}
	if remaining, ok := d.remaining(); ok {
		blocks = append(blocks, widgets.MetricBlockWithBar(icons.Clock, "Session", lifetimeUsed(remaining), describeRemaining(remaining), cfg))
	}

	perRow := max(1, d.width/(blockWidth+1))
	var rows []string
	for i := 0; i < len(blocks); i += perRow {
		end := min(i+perRow, len(blocks))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, joinWithGap(blocks[i:end])...))
	}
	return strings.Join(rows, "\n")
}

func (d *Dashboard) remaining() (time.Duration, bool) {
	if d.snap.ExpiresAt.IsZero() {
		return 0, false
	}
	return d.snap.ExpiresAt.Sub(d.now()), true
}

// lifetimeUsed is the share of the credential lifetime already spent
func lifetimeUsed(remaining time.Duration) float64 {
	used := 100 * (1 - float64(remaining)/float64(session.DefaultCredentialLifetime))
	return min(100, max(0, used))
}

func describeRemaining(d time.Duration) string {
	switch {
	case d <= 0:
		return "expired"
	case d < time.Minute:
		return "expires in <1m"
	case d < time.Hour:
		return fmt.Sprintf("expires in %dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("expires in %dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// nextPayday describes how many days remain until the payment day
func nextPayday(now time.Time, day int) string {
	y, m, today := now.Date()
	if today > day {
		m++
	}
	next := time.Date(y, m, day, 0, 0, 0, 0, now.Location())
	// Months shorter than day roll over; clamp to the last day instead
	if next.Day() != day {
		next = time.Date(next.Year(), next.Month(), 0, 0, 0, 0, 0, now.Location())
	}
	midnight := time.Date(y, now.Month(), today, 0, 0, 0, 0, now.Location())
	days := int(math.Round(next.Sub(midnight).Hours() / 24))
	switch days {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}

func joinWithGap(blocks []string) []string {
	out := make([]string, 0, len(blocks)*2)
	for i, b := range blocks {
		if i > 0 {
			out = append(out, " ")
		}
		out = append(out, b)
	}
	return out
}
