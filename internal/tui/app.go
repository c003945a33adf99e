// ABOUTME: Root bubbletea model for the TUI application
// ABOUTME: Manages screen state from session changes and routes keyboard input to child components

package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/callback"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/client"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/session"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/tui/dashboard"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/tui/icons"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/tui/login"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/tui/menu"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/tui/styles"
)

// Screen represents the current TUI screen
type Screen int

const (
	ScreenLoading Screen = iota
	ScreenMenu
	ScreenLogin
	ScreenGoogle
	ScreenDashboard
)

// Layout constants
const (
	minTerminalWidth = 80 // Minimum width before using single-column layout
	panelPadding     = 4  // Total horizontal padding from panel borders (2 each side)
)

// bootstrapDoneMsg is sent when the saved session has been checked
type bootstrapDoneMsg struct {
	err error
}

// loginDoneMsg is sent when a password sign-in finishes
type loginDoneMsg struct {
	err error
}

// refreshDoneMsg is sent when an on-demand refresh finishes
type refreshDoneMsg struct {
	err error
}

// logoutDoneMsg is sent when sign-out finishes
type logoutDoneMsg struct {
	err error
}

// callbackMsg is sent when the browser returns from Google
type callbackMsg struct {
	url string
	err error
}

// App is the root model for the TUI
type App struct {
	ctx          context.Context
	session      *session.Manager
	client       *client.Client
	router       *Router
	callbackAddr string

	changed     chan struct{}
	unsubscribe func()

	screen     Screen
	width      int
	height     int
	snap       session.Snapshot
	notice     string
	busy       string
	lastUpdate time.Time
	lastEmail  string

	// Child models
	spinner   spinner.Model
	menu      *menu.Menu
	loginForm *login.Form
	dashboard *dashboard.Dashboard

	// Google sign-in in progress
	listener     *callback.Listener
	googleURL    string
	googleCancel context.CancelFunc
}

// New creates a new TUI application. router may be nil when the manager
// was built without a navigator. An empty callbackAddr disables Google
// sign-in.
func New(ctx context.Context, m *session.Manager, apiClient *client.Client, router *Router, callbackAddr string) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	a := &App{
		ctx:          ctx,
		session:      m,
		client:       apiClient,
		router:       router,
		callbackAddr: callbackAddr,
		changed:      make(chan struct{}, 1),
		screen:       ScreenLoading,
		snap:         m.Snapshot(),
		spinner:      sp,
		menu:         menu.New(callbackAddr != ""),
	}
	if a.snap.User != nil {
		a.lastEmail = a.snap.User.Email
	}

	a.unsubscribe = m.Subscribe(func(session.Snapshot) {
		select {
		case a.changed <- struct{}{}:
		default:
		}
	})
	return a
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		a.bootstrap(),
		waitForChange(a.ctx, a.changed),
		waitForRoute(a.ctx, a.router),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// One column short so the frame never wraps
		a.width = msg.Width - 1
		a.height = msg.Height
		if a.dashboard != nil {
			a.dashboard.SetSize(a.dashboardWidth(), a.contentHeight())
		}
		if a.loginForm != nil {
			a.loginForm.SetWidth(a.width - 1)
			return a.updateLogin(msg)
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		// Handle global quit
		if msg.String() == "ctrl+c" {
			return a, a.quit()
		}

		// Route to current screen
		switch a.screen {
		case ScreenLoading:
			if msg.String() == "q" {
				return a, a.quit()
			}
		case ScreenMenu:
			return a.updateMenu(msg)
		case ScreenLogin:
			return a.updateLogin(msg)
		case ScreenGoogle:
			return a.updateGoogle(msg)
		case ScreenDashboard:
			return a.updateDashboard(msg)
		}
		return a, nil

	case sessionChangedMsg:
		a.syncSnapshot()
		return a, waitForChange(a.ctx, a.changed)

	case routeMsg:
		return a.handleRoute(msg)

	case bootstrapDoneMsg:
		return a.handleBootstrap(msg)

	case menu.SelectedMsg:
		return a.handleMethodSelected(msg)

	case menu.CancelledMsg:
		return a, a.quit()

	case login.SubmitMsg:
		a.lastEmail = msg.Credentials.Email
		a.busy = "Signing in"
		return a, a.login(msg.Credentials)

	case login.CancelledMsg:
		a.showMenu("")
		return a, nil

	case loginDoneMsg:
		a.busy = ""
		if msg.err != nil {
			if a.loginForm == nil {
				a.loginForm = login.New(a.lastEmail)
			}
			a.screen = ScreenLogin
			return a, a.loginForm.SetError(msg.err)
		}
		a.showDashboard()
		return a, nil

	case callbackMsg:
		return a.handleCallback(msg)

	case refreshDoneMsg:
		a.busy = ""
		a.syncSnapshot()
		switch {
		case msg.err == nil:
			a.notice = ""
		case errors.Is(msg.err, session.ErrAuthRejected):
			a.showMenu("Your session expired. Please sign in again.")
		case errors.Is(msg.err, session.ErrSuperseded), errors.Is(msg.err, session.ErrNotAuthenticated):
		default:
			a.notice = "Refresh failed: " + msg.err.Error()
		}
		return a, nil

	case logoutDoneMsg:
		a.busy = ""
		notice := "Signed out"
		if msg.err != nil {
			notice = "Signed out, but the saved session could not be removed: " + msg.err.Error()
		}
		a.showMenu(notice)
		return a, nil

	default:
		// Forward unknown messages to the login form (needed for huh form internals)
		if a.screen == ScreenLogin && a.loginForm != nil {
			return a.updateLogin(msg)
		}
	}

	return a, nil
}

func (a *App) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "q" {
		return a, a.quit()
	}
	model, cmd := a.menu.Update(msg)
	a.menu = model.(*menu.Menu)
	return a, cmd
}

func (a *App) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.loginForm == nil || a.busy != "" {
		return a, nil
	}
	model, cmd := a.loginForm.Update(msg)
	a.loginForm = model.(*login.Form)
	return a, cmd
}

func (a *App) updateGoogle(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "b":
		a.stopGoogle()
		a.showMenu("")
	case "q":
		return a, a.quit()
	}
	return a, nil
}

func (a *App) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.busy != "" {
		if msg.String() == "q" {
			return a, a.quit()
		}
		return a, nil
	}

	switch msg.String() {
	case "q":
		return a, a.quit()
	case "r":
		a.busy = "Refreshing"
		return a, a.refresh()
	case "l":
		a.busy = "Signing out"
		return a, a.logout()
	}
	return a, nil
}

func (a *App) handleBootstrap(msg bootstrapDoneMsg) (tea.Model, tea.Cmd) {
	a.syncSnapshot()

	switch {
	case errors.Is(msg.err, session.ErrAuthRejected):
		a.showMenu("Your session expired. Please sign in again.")
		return a, nil
	case errors.Is(msg.err, session.ErrTransient):
		a.notice = "Offline: showing your saved profile"
	case msg.err != nil:
		slog.Warn("Session check failed", "error", msg.err)
	}

	if a.snap.IsAuthenticated {
		a.showDashboard()
	} else {
		a.showMenu("")
	}
	return a, nil
}

func (a *App) handleRoute(msg routeMsg) (tea.Model, tea.Cmd) {
	switch msg.route {
	case session.RouteDashboard:
		a.syncSnapshot()
		if a.snap.IsAuthenticated {
			a.showDashboard()
		}
	case session.RouteLanding:
		if a.screen == ScreenDashboard || a.screen == ScreenLoading {
			a.showMenu(a.notice)
		}
	}
	return a, waitForRoute(a.ctx, a.router)
}

func (a *App) handleMethodSelected(msg menu.SelectedMsg) (tea.Model, tea.Cmd) {
	switch msg.Method {
	case menu.MethodGoogle:
		return a, a.startGoogle()
	default:
		a.loginForm = login.New(a.lastEmail)
		a.loginForm.SetWidth(a.width - 1)
		a.screen = ScreenLogin
		return a, a.loginForm.Init()
	}
}

func (a *App) handleCallback(msg callbackMsg) (tea.Model, tea.Cmd) {
	a.stopGoogle()
	if msg.err != nil {
		if !errors.Is(msg.err, context.Canceled) && !errors.Is(msg.err, callback.ErrClosed) {
			a.showMenu("Google sign-in failed: " + msg.err.Error())
		}
		return a, nil
	}

	_, adopted, err := a.session.HandleCallback(msg.url)
	switch {
	case err != nil:
		a.showMenu("Google sign-in returned an unreadable response")
	case adopted:
		a.showDashboard()
	default:
		a.syncSnapshot()
		if a.snap.IsAuthenticated {
			a.showDashboard()
		} else {
			a.showMenu("Google sign-in returned no identity")
		}
	}
	return a, nil
}

// syncSnapshot reads the latest session state and leaves the dashboard
// when the session ended
func (a *App) syncSnapshot() {
	a.snap = a.session.Snapshot()
	a.lastUpdate = time.Now()
	if a.dashboard != nil {
		a.dashboard.Update(a.snap)
	}
	if a.screen == ScreenDashboard && !a.snap.IsAuthenticated && !a.snap.IsLoading {
		a.showMenu(a.notice)
	}
}

func (a *App) showDashboard() {
	a.snap = a.session.Snapshot()
	if a.snap.User != nil {
		a.lastEmail = a.snap.User.Email
	}
	if a.dashboard == nil {
		a.dashboard = dashboard.New(a.snap, a.dashboardWidth(), a.contentHeight())
	} else {
		a.dashboard.Update(a.snap)
	}
	a.loginForm = nil
	a.lastUpdate = time.Now()
	a.screen = ScreenDashboard
}

func (a *App) showMenu(notice string) {
	a.dashboard = nil
	a.loginForm = nil
	a.notice = ""
	a.menu.SetNotice(notice)
	a.screen = ScreenMenu
}

// View implements tea.Model
func (a *App) View() string {
	var content string

	switch a.screen {
	case ScreenLoading:
		content = a.viewLoading()
	case ScreenMenu:
		content = a.menu.View()
	case ScreenLogin:
		content = a.viewLogin()
	case ScreenGoogle:
		content = a.viewGoogle()
	case ScreenDashboard:
		content = a.viewDashboard()
	}

	return a.wrapWithFrame(content)
}

func (a *App) viewLoading() string {
	msg := "Checking your session..."
	if a.snap.User != nil {
		msg = "Welcome back, " + a.snap.User.DisplayName() + ". Checking your session..."
	}
	return a.spinner.View() + " " + msg
}

func (a *App) viewLogin() string {
	if a.loginForm == nil {
		return ""
	}
	if a.busy != "" {
		return a.spinner.View() + " " + a.busy + "..."
	}
	return a.loginForm.View()
}

func (a *App) viewGoogle() string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render(icons.Google.String() + " Sign in with Google"))
	sb.WriteString("\n")
	sb.WriteString("Open this URL in your browser:\n\n")
	sb.WriteString(styles.ValueStyle.Render(a.googleURL))
	sb.WriteString("\n\n")
	sb.WriteString(a.spinner.View() + " Waiting for the browser...")
	return sb.String()
}

// viewDashboard renders the dashboard with actions pane
func (a *App) viewDashboard() string {
	leftPane := ""
	if a.dashboard != nil {
		leftPane = styles.ActivePanel.Width(a.dashboardWidth()).Render(a.dashboard.View())
	} else {
		leftPane = styles.Panel.Width(a.dashboardWidth()).Render("Loading...")
	}

	// Actions pane on the right - shows available actions
	rightContent := styles.Title.Render(icons.Settings.String()+" Actions") + "\n\n"
	rightContent += icons.Refresh.String() + " Refresh session\n"
	rightContent += icons.Logout.String() + " Sign out\n"
	rightContent += icons.Quit.String() + " Quit application\n"
	if a.busy != "" {
		rightContent += "\n" + a.spinner.View() + " " + a.busy + "..."
	}
	if a.notice != "" {
		rightContent += "\n" + styles.StatusWarning.Render(a.notice)
	}
	rightPane := styles.Panel.Width(a.actionsWidth()).Render(rightContent)

	if a.width < minTerminalWidth {
		return lipgloss.JoinVertical(lipgloss.Left, leftPane, rightPane)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)
}

// dashboardWidth calculates the width for the dashboard pane
func (a *App) dashboardWidth() int {
	if a.width < minTerminalWidth {
		return max(0, a.width-panelPadding)
	}
	return (a.width - panelPadding) * 2 / 3
}

// actionsWidth calculates the width for the actions pane
func (a *App) actionsWidth() int {
	if a.width < minTerminalWidth {
		return a.dashboardWidth()
	}
	return a.width - a.dashboardWidth() - 4
}

// contentHeight calculates the height available for dashboard content
func (a *App) contentHeight() int {
	// Header, blank line, panel border and padding, blank line, footer
	return max(0, a.height-8)
}

// headerContext is shown on the right of the header
func (a *App) headerContext() string {
	if a.snap.IsAuthenticated && a.snap.User != nil && a.screen == ScreenDashboard {
		return icons.User.String() + " " + a.snap.User.DisplayName()
	}
	if a.client != nil {
		if u, err := url.Parse(a.client.BaseURL()); err == nil && u.Host != "" {
			return u.Host
		}
	}
	return ""
}

// renderHeader creates the header bar with app branding and context
func (a *App) renderHeader() string {
	// Guard against zero/small width before WindowSizeMsg is received
	width := a.width
	if width < minTerminalWidth {
		width = minTerminalWidth
	}

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	titleStyle := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	contextStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	leftText := fmt.Sprintf(" %s %s ", icons.App.String(), titleStyle.Render("Cashly"))

	rightText := ""
	if ctx := a.headerContext(); ctx != "" {
		rightText = " " + contextStyle.Render(ctx) + " "
	}

	leftWidth := lipgloss.Width(leftText)
	rightWidth := lipgloss.Width(rightText)
	fillWidth := max(0, width-4-leftWidth-rightWidth) // -4 for ╭─ and ─╮

	header := "╭─" + leftText + strings.Repeat("─", fillWidth) + rightText + "─╮"

	return borderStyle.Render(header)
}

// renderFooter creates the footer with keyboard shortcuts and status
func (a *App) renderFooter() string {
	// Guard against zero/small width before WindowSizeMsg is received
	width := a.width
	if width < minTerminalWidth {
		width = minTerminalWidth
	}

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	keyStyle := styles.KeyStyle
	labelStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	statusStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	// Build keyboard shortcuts based on current screen
	var shortcuts []string
	switch a.screen {
	case ScreenLoading:
		shortcuts = []string{"q Quit"}
	case ScreenMenu:
		shortcuts = []string{"↑↓ Navigate", "Enter Select", "q Quit"}
	case ScreenLogin:
		shortcuts = []string{"Tab Next", "Enter Submit", "Esc Back"}
	case ScreenGoogle:
		shortcuts = []string{"Esc Cancel", "q Quit"}
	case ScreenDashboard:
		shortcuts = []string{"r Refresh", "l Logout", "q Quit"}
	}

	// Build styled shortcuts
	var styledShortcuts []string
	for _, s := range shortcuts {
		parts := strings.SplitN(s, " ", 2)
		if len(parts) == 2 {
			styledShortcuts = append(styledShortcuts, keyStyle.Render(parts[0])+" "+labelStyle.Render(parts[1]))
		} else {
			styledShortcuts = append(styledShortcuts, s)
		}
	}

	leftText := " " + strings.Join(styledShortcuts, "  ") + " "
	leftPlainText := " " + strings.Join(shortcuts, "  ") + " "

	// Right side status (last session change)
	rightText := ""
	rightPlainText := ""
	if !a.lastUpdate.IsZero() && a.screen == ScreenDashboard {
		elapsed := a.formatTimeSince(a.lastUpdate)
		rightText = " " + statusStyle.Render("Synced "+elapsed) + " "
		rightPlainText = " Synced " + elapsed + " "
	}

	leftWidth := lipgloss.Width(leftPlainText)
	rightWidth := lipgloss.Width(rightPlainText)
	fillWidth := max(0, width-4-leftWidth-rightWidth) // -4 for ╰─ and ─╯

	footer := "╰─" + leftText + strings.Repeat("─", fillWidth) + rightText + "─╯"

	return borderStyle.Render(footer)
}

// formatTimeSince formats a duration since the given time in human-readable form
func (a *App) formatTimeSince(t time.Time) string {
	d := time.Since(t)

	if d < time.Minute {
		secs := int(d.Seconds())
		if secs < 5 {
			return "just now"
		}
		return fmt.Sprintf("%ds ago", secs)
	}

	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	}

	hours := int(d.Hours())
	if hours == 1 {
		return "1h ago"
	}
	return fmt.Sprintf("%dh ago", hours)
}

// wrapWithFrame wraps content with header and footer
func (a *App) wrapWithFrame(content string) string {
	var sb strings.Builder

	sb.WriteString(a.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(content)
	sb.WriteString("\n")
	sb.WriteString(a.renderFooter())

	return sb.String()
}

// bootstrap checks the saved session with the backend
func (a *App) bootstrap() tea.Cmd {
	return func() tea.Msg {
		return bootstrapDoneMsg{err: a.session.Bootstrap(a.ctx)}
	}
}

func (a *App) login(creds session.Credentials) tea.Cmd {
	return func() tea.Msg {
		return loginDoneMsg{err: a.session.Login(a.ctx, creds)}
	}
}

func (a *App) refresh() tea.Cmd {
	return func() tea.Msg {
		_, err := a.session.RefreshToken(a.ctx)
		return refreshDoneMsg{err: err}
	}
}

func (a *App) logout() tea.Cmd {
	return func() tea.Msg {
		return logoutDoneMsg{err: a.session.Logout(a.ctx)}
	}
}

// startGoogle opens the loopback listener and waits for the browser
func (a *App) startGoogle() tea.Cmd {
	if a.client == nil {
		a.menu.SetNotice("Google sign-in is not available")
		return nil
	}

	l, err := callback.Listen(a.callbackAddr)
	if err != nil {
		a.menu.SetNotice(err.Error())
		return nil
	}

	ctx, cancel := context.WithCancel(a.ctx)
	a.listener = l
	a.googleCancel = cancel
	a.googleURL = a.client.GoogleAuthURL(l.RedirectURL())
	a.screen = ScreenGoogle
	slog.Info("Waiting for Google sign-in", "redirect", l.RedirectURL())

	return func() tea.Msg {
		raw, err := l.Wait(ctx)
		return callbackMsg{url: raw, err: err}
	}
}

// stopGoogle releases the listener. Safe to call when none is running.
func (a *App) stopGoogle() {
	if a.googleCancel != nil {
		a.googleCancel()
		a.googleCancel = nil
	}
	if a.listener != nil {
		if err := a.listener.Close(context.Background()); err != nil {
			slog.Debug("Callback listener close failed", "error", err)
		}
		a.listener = nil
	}
	a.googleURL = ""
}

func (a *App) quit() tea.Cmd {
	a.Close()
	return tea.Quit
}

// Close stops listening for session changes and releases the listener
func (a *App) Close() {
	a.stopGoogle()
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

// Run starts the TUI. The periodic refresh runs while it is open.
func Run(ctx context.Context, m *session.Manager, apiClient *client.Client, router *Router, callbackAddr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app := New(ctx, m, apiClient, router, callbackAddr)
	defer app.Close()

	m.StartRefresh(ctx)
	defer m.StopRefresh()

	p := tea.NewProgram(
		app,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
