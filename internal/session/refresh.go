// ABOUTME: Periodic silent refresh owned by the session manager
// ABOUTME: Armed only while authenticated and cancelled as soon as the session ends

package session

import (
	"context"
	"errors"
	"time"
)

// StartRefresh enables the periodic refresh task until ctx ends or
// StopRefresh is called. The task only runs while a session is active.
func (m *Manager) StartRefresh(ctx context.Context) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.refreshBase = ctx
	m.mu.Unlock()
	m.syncRefresh()
}

// StopRefresh disables the periodic refresh task
func (m *Manager) StopRefresh() {
	m.mu.Lock()
	m.refreshBase = nil
	m.mu.Unlock()
	m.syncRefresh()
}

// RefreshArmed reports whether the refresh task is running
func (m *Manager) RefreshArmed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCancel != nil
}

// syncRefresh arms or disarms the refresh task to match the current state.
// Disarming only cancels; it never waits for the task, which may itself be
// the caller.
func (m *Manager) syncRefresh() {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A restored session waits for Bootstrap before it is refreshed
	want := m.refreshBase != nil && m.refreshBase.Err() == nil && m.authenticated && !m.loading && !m.closed
	switch {
	case want && m.refreshCancel == nil:
		ctx, cancel := context.WithCancel(m.refreshBase)
		m.refreshCancel = cancel
		go m.refreshLoop(ctx)
		m.logger.Debug("Refresh task armed", "interval", m.interval)
	case !want && m.refreshCancel != nil:
		m.refreshCancel()
		m.refreshCancel = nil
		m.logger.Debug("Refresh task stopped")
	}
}

func (m *Manager) refreshLoop(ctx context.Context) {
	again := false
	for {
		m.mu.Lock()
		delay := refreshDelay(m.now(), m.expiresAt, m.interval, again)
		m.mu.Unlock()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := m.RefreshToken(ctx); err != nil {
			if errors.Is(err, ErrAuthRejected) || errors.Is(err, ErrClosed) {
				return
			}
			m.logger.Debug("Scheduled refresh did not succeed", "error", err)
		}
		again = true
	}
}
