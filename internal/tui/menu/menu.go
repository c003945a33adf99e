// ABOUTME: Sign-in method menu shown when there is no session
// ABOUTME: Lets the user choose between email and password or Google

package menu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/tui/icons"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/tui/styles"
)

// Method is a way of signing in
type Method int

const (
	MethodPassword Method = iota
	MethodGoogle
)

// SelectedMsg is sent when the user picks a sign-in method
type SelectedMsg struct {
	Method Method
}

// CancelledMsg is sent when the user leaves the menu
type CancelledMsg struct{}

type option struct {
	label   string
	icon    icons.Icon
	value   Method
	enabled bool
}

// Menu is the sign-in method selection menu
type Menu struct {
	options []option
	cursor  int
	notice  string
}

// New creates the menu. Google sign-in needs a callback address.
func New(googleEnabled bool) *Menu {
	return &Menu{
		options: []option{
			{label: "Email and password", icon: icons.Lock, value: MethodPassword, enabled: true},
			{label: "Sign in with Google", icon: icons.Google, value: MethodGoogle, enabled: googleEnabled},
		},
	}
}

// SetNotice shows a one-line message above the options, e.g. why the
// previous session ended
func (m *Menu) SetNotice(s string) {
	m.notice = s
}

// Init implements tea.Model
func (m *Menu) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "enter":
		opt := m.options[m.cursor]
		if !opt.enabled {
			m.notice = fmt.Sprintf("%s is not configured", opt.label)
			return m, nil
		}
		return m, func() tea.Msg { return SelectedMsg{Method: opt.value} }
	case "q", "esc":
		return m, func() tea.Msg { return CancelledMsg{} }
	}
	return m, nil
}

// View implements tea.Model
func (m *Menu) View() string {
	var sb strings.Builder

	sb.WriteString(styles.Title.Render("Sign in to Cashly"))
	sb.WriteString("\n")
	if m.notice != "" {
		sb.WriteString(styles.StatusWarning.Render(m.notice))
		sb.WriteString("\n\n")
	}

	selected := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	normal := lipgloss.NewStyle().Foreground(styles.Text)
	disabled := lipgloss.NewStyle().Foreground(styles.Muted)

	for i, opt := range m.options {
		cursor := "  "
		style := normal
		if i == m.cursor {
			cursor = "> "
			style = selected
		}
		label := opt.icon.String() + " " + opt.label
		if !opt.enabled {
			label += " (not configured)"
			style = disabled
		}
		sb.WriteString(style.Render(cursor + label))
		sb.WriteString("\n")
	}

	return sb.String()
}

// Selected returns the method under the cursor
func (m *Menu) Selected() Method {
	return m.options[m.cursor].value
}

// String returns the string representation of a Method
func (mt Method) String() string {
	switch mt {
	case MethodPassword:
		return "password"
	case MethodGoogle:
		return "google"
	default:
		return "unknown"
	}
}
