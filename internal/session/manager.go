// ABOUTME: Session manager holding the current identity and its lifecycle
// ABOUTME: Reconciles persisted state with the backend, refreshes silently, and adopts callbacks

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/callback"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/client"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/store"
)

// Routes passed to the navigator
const (
	RouteDashboard = "/dashboard"
	RouteLanding   = "/"
)

// Backend is the subset of the API client the manager needs.
// *client.Client satisfies it.
type Backend interface {
	Profile(ctx context.Context) (*client.Profile, error)
	Login(ctx context.Context, req *client.LoginRequest) (*client.Profile, error)
	RefreshToken(ctx context.Context) (*client.Profile, error)
	Logout(ctx context.Context) error
	Credential() client.Credential
	SetCredential(cred client.Credential)
	ClearCredential()
}

// Navigator is told where the application should go after an identity change
type Navigator func(route string)

// Option configures a Manager
type Option func(*Manager)

// WithNavigator sets the navigation callback
func WithNavigator(nav Navigator) Option {
	return func(m *Manager) {
		if nav != nil {
			m.navigate = nav
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithRefreshInterval overrides the periodic refresh interval
func WithRefreshInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager owns the session state. All methods are safe for concurrent use.
type Manager struct {
	backend  Backend
	store    store.Store
	logger   *slog.Logger
	navigate Navigator
	interval time.Duration
	now      func() time.Time

	mu            sync.Mutex
	user          *client.Profile
	authenticated bool
	loading       bool
	phase         Phase
	expiresAt     time.Time
	gen           uint64
	seq           uint64
	closed        bool

	// persistMu orders store writes so the last one always reflects the latest state
	persistMu sync.Mutex

	subsMu  sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int

	// dispatchMu serializes delivery; delivered is the last seq sent out
	dispatchMu sync.Mutex
	delivered  uint64

	bootOnce sync.Once
	bootErr  error

	sf singleflight.Group

	refreshBase   context.Context
	refreshCancel context.CancelFunc
}

// New creates a manager and synchronously restores the persisted session so
// the caller can render optimistically before Bootstrap completes
func New(backend Backend, st store.Store, opts ...Option) *Manager {
	m := &Manager{
		backend:  backend,
		store:    st,
		logger:   slog.Default(),
		navigate: func(string) {},
		interval: DefaultRefreshInterval,
		now:      time.Now,
		phase:    PhaseUnauthenticated,
		subs:     make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(m)
	}

	rec, err := st.Load(context.Background())
	switch {
	case errors.Is(err, store.ErrCorrupt):
		m.logger.Warn("Ignoring corrupt persisted session", "error", err)
	case err != nil:
		m.logger.Warn("Failed to read persisted session", "error", err)
	case rec.Authenticated():
		m.user = rec.User
		m.authenticated = true
		m.loading = true
		m.phase = PhaseBootstrapping
		m.expiresAt = rec.Credential.ExpiresAt
		backend.SetCredential(rec.Credential)
		m.logger.Debug("Restored persisted session", "user", rec.User.ID)
	}
	return m
}

// Snapshot returns the current state
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{
		IsAuthenticated: m.authenticated,
		IsLoading:       m.loading,
		Phase:           m.phase,
		ExpiresAt:       m.expiresAt,
	}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

// stampLocked snapshots the state for notify, numbering it so an older
// snapshot can never be delivered after a newer one. Callers hold m.mu.
func (m *Manager) stampLocked() (Snapshot, uint64) {
	m.seq++
	return m.snapshotLocked(), m.seq
}

// Subscribe registers fn for every state change. Subscribers are called one
// at a time, in order, and must not block or call back into the Manager's
// mutating methods. The returned func unsubscribes and may be called more
// than once.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subsMu.Lock()
			delete(m.subs, id)
			m.subsMu.Unlock()
		})
	}
}

// notify delivers s unless a later snapshot already went out
func (m *Manager) notify(s Snapshot, seq uint64) {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()
	if seq <= m.delivered {
		return
	}
	m.delivered = seq

	m.subsMu.Lock()
	fns := make([]func(Snapshot), 0, len(m.subs))
	for id := 0; id < m.nextSub; id++ {
		if fn, ok := m.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	m.subsMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Bootstrap reconciles the persisted session with the backend. It runs at
// most once; later calls return the first result without network I/O.
func (m *Manager) Bootstrap(ctx context.Context) error {
	m.bootOnce.Do(func() {
		m.bootErr = m.bootstrap(ctx)
	})
	return m.bootErr
}

func (m *Manager) bootstrap(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if !m.loading || m.phase != PhaseBootstrapping {
		m.mu.Unlock()
		m.syncRefresh()
		return nil
	}
	gen := m.gen
	m.mu.Unlock()

	profile, err := m.backend.Profile(ctx)

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		m.logger.Debug("Discarding stale bootstrap result")
		return nil
	}

	switch {
	case err == nil:
		m.user = profile
		m.authenticated = true
		m.loading = false
		m.phase = PhaseAuthenticated
		snap, seq := m.stampLocked()
		m.mu.Unlock()

		m.flush()
		if !m.current(gen) {
			m.logger.Debug("Session ended while the verified state was saved")
			return nil
		}
		m.notify(snap, seq)
		m.syncRefresh()
		m.logger.Info("Session verified", "user", profile.ID)
		return nil

	case client.IsAuthRejected(err):
		m.gen++
		m.clearLocked()
		snap, seq := m.stampLocked()
		m.mu.Unlock()

		m.backend.ClearCredential()
		m.flush()
		m.notify(snap, seq)
		m.syncRefresh()
		m.logger.Info("Persisted session rejected by backend", "status", client.StatusCode(err))
		return fmt.Errorf("%w: %w", ErrAuthRejected, err)

	default:
		// Keep the cached identity; the backend could not give an answer
		m.loading = false
		m.phase = PhaseAuthenticated
		snap, seq := m.stampLocked()
		m.mu.Unlock()

		m.notify(snap, seq)
		m.syncRefresh()
		if client.IsTransient(err) {
			m.logger.Warn("Could not verify session, keeping cached state", "error", err)
		} else {
			m.logger.Error("Unexpected answer verifying session, keeping cached state", "error", err)
		}
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
}

// Login validates creds, authenticates against the backend and persists the
// session. Backend errors are returned unchanged.
func (m *Manager) Login(ctx context.Context, creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.gen++
	gen := m.gen
	m.loading = true
	snap, seq := m.stampLocked()
	m.mu.Unlock()
	m.notify(snap, seq)

	prevToken := m.backend.Credential().Token
	profile, err := m.backend.Login(ctx, &client.LoginRequest{
		Email:      strings.TrimSpace(creds.Email),
		Password:   creds.Password,
		RememberMe: creds.RememberMe,
	})

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		m.loading = false
		m.settlePhaseLocked()
		snap, seq := m.stampLocked()
		m.mu.Unlock()
		m.notify(snap, seq)
		return err
	}

	m.user = profile
	m.authenticated = true
	m.loading = false
	m.phase = PhaseAuthenticated
	m.expiresAt = m.renewedExpiry(prevToken)
	cred := m.backend.Credential()
	cred.ExpiresAt = m.expiresAt
	m.backend.SetCredential(cred)
	snap, seq = m.stampLocked()
	m.mu.Unlock()

	m.flush()
	if !m.current(gen) {
		return ErrSuperseded
	}
	m.notify(snap, seq)
	m.syncRefresh()
	m.logger.Info("Logged in", "user", profile.ID)
	m.navigate(RouteDashboard)
	return nil
}

// Logout notifies the backend, then clears the session no matter what the
// backend said. Any refresh in flight is discarded.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.gen++
	m.clearLocked()
	snap, seq := m.stampLocked()
	m.mu.Unlock()

	m.syncRefresh()
	m.notify(snap, seq)

	if err := m.backend.Logout(ctx); err != nil {
		m.logger.Warn("Backend logout failed", "error", err)
	}

	// Anything that completed while the backend was answering loses
	m.mu.Lock()
	m.gen++
	m.clearLocked()
	m.mu.Unlock()

	m.backend.ClearCredential()
	err := m.flush()
	m.syncRefresh()
	m.logger.Info("Logged out")
	m.navigate(RouteLanding)
	if err != nil {
		return fmt.Errorf("failed to clear persisted session: %w", err)
	}
	return nil
}

// RefreshToken renews the credential. It reports whether the session is
// still authenticated with fresh data. Concurrent calls share one request.
func (m *Manager) RefreshToken(ctx context.Context) (bool, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false, ErrClosed
	}
	if !m.authenticated {
		m.mu.Unlock()
		return false, ErrNotAuthenticated
	}
	m.mu.Unlock()

	v, err, _ := m.sf.Do("refresh", func() (any, error) {
		return m.refresh(ctx)
	})
	ok, _ := v.(bool)
	return ok, err
}

func (m *Manager) refresh(ctx context.Context) (bool, error) {
	m.mu.Lock()
	if !m.authenticated {
		m.mu.Unlock()
		return false, ErrNotAuthenticated
	}
	gen := m.gen
	m.phase = PhaseRefreshing
	snap, seq := m.stampLocked()
	m.mu.Unlock()
	m.notify(snap, seq)

	prevToken := m.backend.Credential().Token
	profile, err := m.backend.RefreshToken(ctx)

	m.mu.Lock()
	if m.gen != gen || !m.authenticated {
		m.mu.Unlock()
		m.logger.Debug("Discarding stale refresh result")
		return false, ErrSuperseded
	}

	if err != nil {
		if client.IsAuthRejected(err) {
			m.mu.Unlock()
			m.logger.Info("Refresh rejected, logging out", "status", client.StatusCode(err))
			if lerr := m.Logout(context.WithoutCancel(ctx)); lerr != nil {
				m.logger.Warn("Logout after rejected refresh failed", "error", lerr)
			}
			return false, fmt.Errorf("%w: %w", ErrAuthRejected, err)
		}

		m.phase = PhaseAuthenticated
		snap, seq := m.stampLocked()
		m.mu.Unlock()
		m.notify(snap, seq)
		if client.IsTransient(err) {
			m.logger.Warn("Refresh failed, keeping session", "error", err)
		} else {
			m.logger.Error("Unexpected answer to refresh, keeping session", "error", err)
		}
		return false, fmt.Errorf("%w: %w", ErrTransient, err)
	}

	if profile != nil && m.user != nil {
		merged := m.user.Merge(profile)
		m.user = &merged
	} else if profile != nil {
		m.user = profile
	}
	m.phase = PhaseAuthenticated
	m.expiresAt = m.renewedExpiry(prevToken)
	cred := m.backend.Credential()
	cred.ExpiresAt = m.expiresAt
	m.backend.SetCredential(cred)
	snap, seq = m.stampLocked()
	m.mu.Unlock()

	m.flush()
	if !m.current(gen) {
		m.logger.Debug("Session ended while the refreshed state was saved")
		return false, ErrSuperseded
	}
	m.notify(snap, seq)
	m.logger.Debug("Session refreshed", "expires_at", snap.ExpiresAt)
	return true, nil
}

// UpdateUser replaces the profile locally without contacting the backend.
// Last write wins.
func (m *Manager) UpdateUser(profile client.Profile) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.user = &profile
	authenticated := m.authenticated
	snap, seq := m.stampLocked()
	m.mu.Unlock()

	var err error
	if authenticated {
		err = m.flush()
	}
	m.notify(snap, seq)
	return err
}

// HandleCallback adopts the identity carried by an external-provider
// redirect. It returns the URL with the payload stripped and whether a
// session was adopted. A payload that arrives while a session is active is
// ignored. A malformed payload is logged and leaves state untouched; the
// returned error only informs the caller.
func (m *Manager) HandleCallback(rawURL string) (string, bool, error) {
	raw, ok := callback.FromURL(rawURL)
	if !ok {
		return rawURL, false, nil
	}
	stripped := callback.StripParam(rawURL, callback.ParamUser)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return stripped, false, ErrClosed
	}
	active := m.authenticated
	m.mu.Unlock()
	if active {
		m.logger.Debug("Ignoring callback payload, session already active")
		return stripped, false, nil
	}

	payload, err := callback.ParsePayload(raw)
	if err != nil {
		m.logger.Error("Ignoring malformed callback payload", "error", err)
		return stripped, false, err
	}

	if !m.adopt(payload) {
		return stripped, false, nil
	}
	m.navigate(RouteDashboard)
	return stripped, true, nil
}

// adopt installs a callback identity unless a session became active meanwhile
func (m *Manager) adopt(p *callback.Payload) bool {
	expiresAt, ok := tokenExpiry(p.Token)
	if !ok {
		expiresAt = m.now().Add(DefaultCredentialLifetime)
	}

	m.mu.Lock()
	if m.authenticated || m.closed {
		m.mu.Unlock()
		return false
	}
	m.gen++
	gen := m.gen
	m.user = p.User
	m.authenticated = true
	m.loading = false
	m.phase = PhaseAuthenticated
	m.expiresAt = expiresAt
	cred := m.backend.Credential()
	cred.Token = p.Token
	cred.ExpiresAt = expiresAt
	m.backend.SetCredential(cred)
	snap, seq := m.stampLocked()
	m.mu.Unlock()

	m.flush()
	if !m.current(gen) {
		return false
	}
	m.notify(snap, seq)
	m.syncRefresh()
	m.logger.Info("Adopted external identity", "user", p.User.ID)
	return true
}

// Close stops the refresh task. Later operations return ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.refreshBase = nil
	m.mu.Unlock()
	m.syncRefresh()
	return nil
}

// clearLocked drops the identity. Callers hold m.mu.
func (m *Manager) clearLocked() {
	m.user = nil
	m.authenticated = false
	m.loading = false
	m.phase = PhaseUnauthenticated
	m.expiresAt = time.Time{}
}

// settlePhaseLocked derives a resting phase from the authentication flag.
// Callers hold m.mu.
func (m *Manager) settlePhaseLocked() {
	if m.authenticated {
		m.phase = PhaseAuthenticated
	} else {
		m.phase = PhaseUnauthenticated
	}
}

// current reports whether the session started at gen is still the live one
func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen && m.authenticated
}

// renewedExpiry is the expiry assumed after the backend accepted the session.
// The exp claim only counts when the backend issued a token other than
// prevToken; a confirmation alone earns the default lifetime.
// Callers hold m.mu.
func (m *Manager) renewedExpiry(prevToken string) time.Time {
	token := m.backend.Credential().Token
	if exp, ok := tokenExpiry(token); ok && token != prevToken && exp.After(m.now()) {
		return exp
	}
	return m.now().Add(DefaultCredentialLifetime)
}

// flush writes the current state to the store, or clears it when there is no
// session. Store errors are logged and returned.
func (m *Manager) flush() error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	var rec *store.Record
	if m.authenticated && m.user != nil {
		u := *m.user
		rec = &store.Record{User: &u, AuthStatus: true}
	}
	m.mu.Unlock()

	ctx := context.Background()
	if rec == nil {
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Error("Failed to clear persisted session", "error", err)
			return err
		}
		return nil
	}

	rec.Credential = m.backend.Credential()
	if err := m.store.Save(ctx, rec); err != nil {
		m.logger.Error("Failed to persist session", "error", err)
		return err
	}
	return nil
}
