// ABOUTME: Test to verify dashboard screen renders with visible header/footer
// ABOUTME: Ensures content doesn't push header/footer off screen

package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func TestDashboardRendersWithHeader(t *testing.T) {
	m, c := newSignedInManager(t)
	app := New(context.Background(), m, c, nil, "")
	defer app.Close()

	model, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	app = model.(*App)
	model, _ = app.Update(bootstrapDoneMsg{})
	app = model.(*App)

	if app.screen != ScreenDashboard {
		t.Fatalf("expected ScreenDashboard, got %d", app.screen)
	}

	view := app.View()
	lines := strings.Split(view, "\n")

	if !strings.HasPrefix(lines[0], "╭") {
		t.Errorf("first line should be header, got %q", lines[0])
	}
	if !strings.Contains(lines[0], "Cashly") {
		t.Error("header should contain the application name")
	}
	if !strings.Contains(lines[0], "Ada") {
		t.Error("header should show the signed-in user")
	}

	last := lines[len(lines)-1]
	if !strings.Contains(last, "╰─") || !strings.Contains(last, "Refresh") {
		t.Errorf("last line should be footer with dashboard shortcuts, got %q", last)
	}

	if !strings.Contains(view, "Welcome back, Ada") {
		t.Error("dashboard should greet the user")
	}
	if !strings.Contains(view, "Actions") {
		t.Error("dashboard should show the actions pane")
	}

	if got := lipgloss.Height(view); got > 40 {
		t.Errorf("view height %d exceeds terminal height 40", got)
	}
}

func TestDashboardNarrowTerminalStacksPanes(t *testing.T) {
	m, c := newSignedInManager(t)
	app := New(context.Background(), m, c, nil, "")
	defer app.Close()

	model, _ := app.Update(tea.WindowSizeMsg{Width: 70, Height: 60})
	app = model.(*App)
	app.Update(bootstrapDoneMsg{})

	if app.actionsWidth() != app.dashboardWidth() {
		t.Errorf("narrow layout should use equal widths, got %d and %d", app.dashboardWidth(), app.actionsWidth())
	}
	if !strings.Contains(app.View(), "Actions") {
		t.Error("actions pane should still render")
	}
}
