// ABOUTME: Bridges session navigation and change notifications into bubbletea
// ABOUTME: Each event is delivered as a message by a command that waits for the next one

package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// routeBuffer bounds how many navigations can queue before the UI reads them
const routeBuffer = 8

// Router receives session navigation requests. Pass Navigate to
// session.WithNavigator.
type Router struct {
	routes chan string
}

// NewRouter creates a router
func NewRouter() *Router {
	return &Router{routes: make(chan string, routeBuffer)}
}

// Navigate queues a route. It never blocks; when the queue is full the
// route is dropped and the next session change resynchronizes the screen.
func (r *Router) Navigate(route string) {
	select {
	case r.routes <- route:
	default:
	}
}

// routeMsg is sent when the session asks to navigate
type routeMsg struct {
	route string
}

// sessionChangedMsg is sent when the session state changed
type sessionChangedMsg struct{}

// waitForRoute delivers the next navigation as a message
func waitForRoute(ctx context.Context, r *Router) tea.Cmd {
	if r == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case route := <-r.routes:
			return routeMsg{route: route}
		case <-ctx.Done():
			return nil
		}
	}
}

// waitForChange delivers the next change signal as a message. Signals are
// coalesced; the receiver reads the latest snapshot itself.
func waitForChange(ctx context.Context, changed <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-changed:
			return sessionChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}
