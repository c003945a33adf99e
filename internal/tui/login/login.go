// ABOUTME: Email and password sign-in form as a bubbletea model
// ABOUTME: Wraps a huh form and reports submitted credentials to the app

package login

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/client"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/session"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/tui/icons"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/tui/styles"
)

// SubmitMsg is sent when the form is completed
type SubmitMsg struct {
	Credentials session.Credentials
}

// CancelledMsg is sent when the form is cancelled
type CancelledMsg struct{}

// Form manages the sign-in form as a bubbletea model
type Form struct {
	form  *huh.Form
	width int
	err   string

	// Form field values
	email      string
	password   string
	rememberMe bool
}

// New creates a sign-in form, pre-filling email when known
func New(email string) *Form {
	f := &Form{email: email}
	f.form = f.createForm()
	return f
}

func (f *Form) createForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&f.email).
				Validate(session.ValidateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&f.password).
				Validate(validatePassword),
			huh.NewConfirm().
				Title("Remember me?").
				Affirmative("Yes").
				Negative("No").
				Value(&f.rememberMe),
		).Title("Sign in").
			Description("Use the email and password of your Cashly account"),
	).WithTheme(styles.FormTheme()).
		WithShowHelp(false)
}

// Init implements tea.Model
func (f *Form) Init() tea.Cmd {
	return f.form.Init()
}

// Update implements tea.Model
func (f *Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		f.width = msg.Width
		form, cmd := f.form.Update(msg)
		if hf, ok := form.(*huh.Form); ok {
			f.form = hf
		}
		return f, cmd

	case tea.KeyMsg:
		if msg.String() == "esc" {
			return f, func() tea.Msg { return CancelledMsg{} }
		}
	}

	form, cmd := f.form.Update(msg)
	if hf, ok := form.(*huh.Form); ok {
		f.form = hf
	}

	if f.form.State == huh.StateCompleted {
		creds := f.Credentials()
		return f, func() tea.Msg { return SubmitMsg{Credentials: creds} }
	}

	return f, cmd
}

// Credentials returns what has been typed so far
func (f *Form) Credentials() session.Credentials {
	return session.Credentials{
		Email:      strings.TrimSpace(f.email),
		Password:   f.password,
		RememberMe: f.rememberMe,
	}
}

// SetError shows a failed attempt and resets the form for another try.
// The email is kept; the password is cleared.
func (f *Form) SetError(err error) tea.Cmd {
	f.err = describeError(err)
	f.password = ""
	f.form = f.createForm()
	return f.form.Init()
}

// SetWidth sets the form width for proper rendering
func (f *Form) SetWidth(width int) {
	f.width = width
}

// View implements tea.Model
func (f *Form) View() string {
	var sb strings.Builder

	sb.WriteString(f.renderStatus())
	sb.WriteString("\n\n")
	sb.WriteString(f.form.View())

	return sb.String()
}

// renderStatus renders the bordered panel above the form
func (f *Form) renderStatus() string {
	width := f.width - 1
	if width < 60 {
		width = 60
	}

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	titleStyle := lipgloss.NewStyle().Foreground(styles.Primary)

	line := lipgloss.NewStyle().Foreground(styles.Muted).Render(icons.Info.String() + " Enter submits, Esc goes back")
	if f.err != "" {
		line = styles.StatusCritical.Render(icons.Critical.String() + " " + f.err)
	}

	// Top border: "┌─ " + title + " " + fill + "┐"
	title := "Cashly"
	topFillWidth := max(0, width-5-lipgloss.Width(title))
	topBorder := "┌─ " + titleStyle.Render(title) + " " + strings.Repeat("─", topFillWidth) + "┐"

	// Content line: "│ " + content + padding + " │"
	padding := max(0, width-4-lipgloss.Width(line))
	content := "│ " + line + strings.Repeat(" ", padding) + " │"

	bottomBorder := "└" + strings.Repeat("─", width-2) + "┘"

	return borderStyle.Render(strings.Join([]string{topBorder, content, bottomBorder}, "\n"))
}

func validatePassword(s string) error {
	if s == "" {
		return errors.New("password is required")
	}
	return nil
}

// describeError turns a login failure into one line for the status panel
func describeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrValidation):
		return err.Error()
	case client.IsAuthRejected(err):
		return "Invalid email or password"
	default:
		return "Sign in failed: " + err.Error()
	}
}
