// ABOUTME: Tests for the session manager lifecycle
// ABOUTME: Drives a real API client against httptest backends with an in-memory store

package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/client"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/store"
)

// backend is an httptest server with per-path handlers and call counters
type backend struct {
	*httptest.Server
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  map[string]*atomic.Int32
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{
		routes: make(map[string]http.HandlerFunc),
		calls:  make(map[string]*atomic.Int32),
	}
	for _, p := range []string{"/user/profile", "/auth/login", "/auth/refresh-token", "/auth/logout"} {
		b.calls[p] = &atomic.Int32{}
	}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := b.calls[r.URL.Path]; ok {
			c.Add(1)
		}
		b.mu.Lock()
		h, ok := b.routes[r.URL.Path]
		b.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h(w, r)
	}))
	t.Cleanup(b.Close)
	return b
}

func (b *backend) handle(path string, h http.HandlerFunc) {
	b.mu.Lock()
	b.routes[path] = h
	b.mu.Unlock()
}

func (b *backend) respond(path string, status int, body string) {
	b.handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	})
}

func (b *backend) count(path string) int {
	return int(b.calls[path].Load())
}

// withLogin installs a login endpoint that issues a session cookie
func (b *backend) withLogin(body string) {
	b.handle("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "cookie-1", Path: "/"})
		io.WriteString(w, body)
	})
	b.respond("/auth/logout", http.StatusOK, `{"message":"bye"}`)
}

type navRecorder struct {
	mu     sync.Mutex
	routes []string
}

func (n *navRecorder) navigate(route string) {
	n.mu.Lock()
	n.routes = append(n.routes, route)
	n.mu.Unlock()
}

func (n *navRecorder) list() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManager(t *testing.T, baseURL string, st store.Store, opts ...Option) (*Manager, *client.Client, *navRecorder) {
	t.Helper()
	c := client.New(baseURL, client.WithTimeout(5*time.Second))
	nav := &navRecorder{}
	all := append([]Option{WithLogger(quietLogger()), WithNavigator(nav.navigate)}, opts...)
	m := New(c, st, all...)
	t.Cleanup(func() { m.Close() })
	return m, c, nav
}

// hookStore counts saves and runs onSave before each one
type hookStore struct {
	*store.MemoryStore
	saves  atomic.Int32
	onSave func()
}

func newHookStore() *hookStore {
	return &hookStore{MemoryStore: store.NewMemoryStore(0)}
}

func (s *hookStore) Save(ctx context.Context, rec *store.Record) error {
	s.saves.Add(1)
	if s.onSave != nil {
		s.onSave()
	}
	return s.MemoryStore.Save(ctx, rec)
}

func persisted(t *testing.T, rec *store.Record) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore(0)
	require.NoError(t, st.Save(context.Background(), rec))
	return st
}

func loggedIn(t *testing.T, b *backend, opts ...Option) (*Manager, *client.Client, *navRecorder, *store.MemoryStore) {
	t.Helper()
	b.withLogin(`{"user":{"id":"1","name":"A","currency":"USD"}}`)
	st := store.NewMemoryStore(0)
	m, c, nav := newManager(t, b.URL, st, opts...)
	require.NoError(t, m.Login(context.Background(), Credentials{Email: "a@example.com", Password: "secret"}))
	return m, c, nav, st
}

func TestNew_RestoresPersistedSession(t *testing.T) {
	b := newBackend(t)
	st := persisted(t, &store.Record{
		User:       &client.Profile{ID: "1"},
		AuthStatus: true,
		Credential: client.Credential{Token: "jwt", Cookies: []client.Cookie{{Name: "token", Value: "c"}}},
	})

	m, c, _ := newManager(t, b.URL, st)
	snap := m.Snapshot()

	assert.True(t, snap.IsAuthenticated)
	assert.True(t, snap.IsLoading)
	assert.Equal(t, PhaseBootstrapping, snap.Phase)
	assert.Equal(t, "jwt", c.Token())
	assert.Zero(t, b.count("/user/profile"), "construction must not touch the network")
}

func TestNew_NothingPersisted(t *testing.T) {
	b := newBackend(t)
	m, _, _ := newManager(t, b.URL, store.NewMemoryStore(0))

	snap := m.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.False(t, snap.IsLoading)
	assert.Equal(t, PhaseUnauthenticated, snap.Phase)

	require.NoError(t, m.Bootstrap(context.Background()))
	assert.Zero(t, b.count("/user/profile"))
}

func TestNew_CorruptRecordTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	fs := store.NewFileStore(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, store.FileName), []byte("{oops"), 0600))

	b := newBackend(t)
	m, _, _ := newManager(t, b.URL, fs)
	assert.False(t, m.Snapshot().IsAuthenticated)
}

func TestBootstrap_ReplacesUserFromServer(t *testing.T) {
	b := newBackend(t)
	b.respond("/user/profile", http.StatusOK, `{"user":{"id":"1","name":"A"}}`)
	st := persisted(t, &store.Record{User: &client.Profile{ID: "1"}, AuthStatus: true})

	m, _, _ := newManager(t, b.URL, st)
	require.NoError(t, m.Bootstrap(context.Background()))

	snap := m.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.False(t, snap.IsLoading)
	assert.Equal(t, PhaseAuthenticated, snap.Phase)
	assert.Equal(t, "A", snap.User.Name)

	rec, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", rec.User.Name)
}

func TestBootstrap_AuthRejectedClearsSession(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			b := newBackend(t)
			b.respond("/user/profile", status, `{"message":"expired"}`)
			st := persisted(t, &store.Record{
				User:       &client.Profile{ID: "1"},
				AuthStatus: true,
				Credential: client.Credential{Token: "jwt"},
			})

			m, c, _ := newManager(t, b.URL, st)
			err := m.Bootstrap(context.Background())
			assert.True(t, errors.Is(err, ErrAuthRejected), "got %v", err)

			snap := m.Snapshot()
			assert.False(t, snap.IsAuthenticated)
			assert.False(t, snap.IsLoading)
			assert.Nil(t, snap.User)
			assert.Empty(t, c.Token())

			rec, err := st.Load(context.Background())
			require.NoError(t, err)
			assert.Nil(t, rec, "persisted record must be erased")
		})
	}
}

func TestBootstrap_NetworkErrorKeepsSession(t *testing.T) {
	st := persisted(t, &store.Record{User: &client.Profile{ID: "1", Name: "cached"}, AuthStatus: true})

	m, _, _ := newManager(t, "http://127.0.0.1:1", st)
	err := m.Bootstrap(context.Background())
	assert.True(t, errors.Is(err, ErrTransient), "got %v", err)

	snap := m.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.False(t, snap.IsLoading)
	assert.Equal(t, "cached", snap.User.Name)

	rec, _ := st.Load(context.Background())
	assert.NotNil(t, rec)
}

func TestBootstrap_ServerErrorKeepsSession(t *testing.T) {
	b := newBackend(t)
	b.respond("/user/profile", http.StatusServiceUnavailable, ``)
	st := persisted(t, &store.Record{User: &client.Profile{ID: "1"}, AuthStatus: true})

	m, _, _ := newManager(t, b.URL, st)
	err := m.Bootstrap(context.Background())
	assert.True(t, errors.Is(err, ErrTransient))
	assert.True(t, m.Snapshot().IsAuthenticated)
}

func TestBootstrap_RunsOnce(t *testing.T) {
	b := newBackend(t)
	b.respond("/user/profile", http.StatusOK, `{"user":{"id":"1"}}`)
	st := persisted(t, &store.Record{User: &client.Profile{ID: "1"}, AuthStatus: true})

	m, _, _ := newManager(t, b.URL, st)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Bootstrap(context.Background())
		}()
	}
	wg.Wait()
	m.Bootstrap(context.Background())

	assert.Equal(t, 1, b.count("/user/profile"))
}

func TestLogin_Success(t *testing.T) {
	b := newBackend(t)
	b.withLogin(`{"user":{"id":"1","name":"A"}}`)
	st := store.NewMemoryStore(0)
	m, _, nav := newManager(t, b.URL, st)

	var mu sync.Mutex
	var seen []Snapshot
	m.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	err := m.Login(context.Background(), Credentials{Email: "a@example.com", Password: "secret", RememberMe: true})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(seen), 2)
	assert.True(t, seen[0].IsLoading)
	assert.False(t, seen[0].IsAuthenticated)
	last := seen[len(seen)-1]
	assert.False(t, last.IsLoading)
	assert.True(t, last.IsAuthenticated)

	assert.Equal(t, []string{RouteDashboard}, nav.list())

	rec, err := st.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.AuthStatus)
	assert.Equal(t, "A", rec.User.Name)
	assert.Equal(t, []client.Cookie{{Name: "token", Value: "cookie-1"}}, rec.Credential.Cookies)
	assert.False(t, rec.Credential.ExpiresAt.IsZero())
}

func TestLogin_ValidationError(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{"empty email", Credentials{Password: "x"}},
		{"empty password", Credentials{Email: "a@example.com"}},
		{"bad email", Credentials{Email: "not-an-email", Password: "x"}},
		{"display name form", Credentials{Email: "A <a@example.com>", Password: "x"}},
	}

	b := newBackend(t)
	m, _, _ := newManager(t, b.URL, store.NewMemoryStore(0))

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := m.Login(context.Background(), tc.creds)
			assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
		})
	}
	assert.Zero(t, b.count("/auth/login"))
}

func TestLogin_FailureReturnedUnchanged(t *testing.T) {
	b := newBackend(t)
	b.respond("/auth/login", http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
	st := newHookStore()
	m, _, nav := newManager(t, b.URL, st)

	err := m.Login(context.Background(), Credentials{Email: "a@example.com", Password: "wrong"})
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid credentials", apiErr.Message)

	snap := m.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.False(t, snap.IsLoading)
	assert.Empty(t, nav.list())

	assert.Zero(t, st.saves.Load())
}

func TestRefresh_SuccessMergesProfile(t *testing.T) {
	b := newBackend(t)
	m, _, _, st := loggedIn(t, b)

	b.respond("/auth/refresh-token", http.StatusOK, `{"user":{"id":"1","balance":100}}`)
	ok, err := m.RefreshToken(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	b.respond("/auth/refresh-token", http.StatusOK, `{"user":{"id":"1","balance":250}}`)
	ok, err = m.RefreshToken(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	snap := m.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, PhaseAuthenticated, snap.Phase)
	assert.Equal(t, "A", snap.User.Name, "fields missing from the refresh keep their value")
	assert.Equal(t, "250", snap.User.Balance.String())

	rec, _ := st.Load(context.Background())
	assert.Equal(t, "250", rec.User.Balance.String())
}

func TestRefresh_ConfirmationOnlyKeepsUser(t *testing.T) {
	b := newBackend(t)
	m, _, _, _ := loggedIn(t, b)
	b.respond("/auth/refresh-token", http.StatusOK, `{"message":"ok"}`)

	ok, err := m.RefreshToken(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "A", m.Snapshot().User.Name)
}

func TestRefresh_AuthRejectedLogsOut(t *testing.T) {
	b := newBackend(t)
	m, _, nav, st := loggedIn(t, b)
	b.respond("/auth/refresh-token", http.StatusUnauthorized, `{"message":"expired"}`)

	ok, err := m.RefreshToken(context.Background())
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrAuthRejected), "got %v", err)

	assert.False(t, m.Snapshot().IsAuthenticated)
	rec, _ := st.Load(context.Background())
	assert.Nil(t, rec)
	assert.Equal(t, []string{RouteDashboard, RouteLanding}, nav.list())
	assert.Equal(t, 1, b.count("/auth/logout"))
}

func TestRefresh_TransientFailureKeepsSession(t *testing.T) {
	b := newBackend(t)
	m, _, _, st := loggedIn(t, b)
	b.respond("/auth/refresh-token", http.StatusBadGateway, ``)

	ok, err := m.RefreshToken(context.Background())
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrTransient), "got %v", err)

	snap := m.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, PhaseAuthenticated, snap.Phase)
	rec, _ := st.Load(context.Background())
	assert.NotNil(t, rec)
	assert.Equal(t, 1, b.count("/auth/refresh-token"), "no automatic retry")
}

func TestRefresh_NotAuthenticated(t *testing.T) {
	b := newBackend(t)
	m, _, _ := newManager(t, b.URL, store.NewMemoryStore(0))

	ok, err := m.RefreshToken(context.Background())
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
	assert.Zero(t, b.count("/auth/refresh-token"))
}

func TestRefresh_ResolvingAfterLogoutIsDiscarded(t *testing.T) {
	b := newBackend(t)
	m, _, _, st := loggedIn(t, b)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	b.handle("/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(entered) })
		<-release
		io.WriteString(w, `{"user":{"id":"1","name":"resurrected"}}`)
	})

	type result struct {
		ok  bool
		err error
	}
	done := make(chan result, 1)
	go func() {
		ok, err := m.RefreshToken(context.Background())
		done <- result{ok, err}
	}()

	<-entered
	require.NoError(t, m.Logout(context.Background()))
	close(release)

	res := <-done
	assert.False(t, res.ok)
	assert.True(t, errors.Is(res.err, ErrSuperseded), "got %v", res.err)

	snap := m.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Nil(t, snap.User)
	rec, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRefresh_ConcurrentCallsShareOneRequest(t *testing.T) {
	b := newBackend(t)
	m, _, _, _ := loggedIn(t, b)

	release := make(chan struct{})
	b.handle("/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		<-release
		io.WriteString(w, `{"user":{"id":"1"}}`)
	})

	var wg sync.WaitGroup
	results := make([]bool, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = m.RefreshToken(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return b.count("/auth/refresh-token") == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, b.count("/auth/refresh-token"))
	for _, ok := range results {
		assert.True(t, ok)
	}
}

func TestLogout_BackendFailureStillClears(t *testing.T) {
	b := newBackend(t)
	m, c, nav, st := loggedIn(t, b)
	b.respond("/auth/logout", http.StatusInternalServerError, ``)

	require.NoError(t, m.Logout(context.Background()))

	snap := m.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Nil(t, snap.User)
	assert.True(t, c.Credential().IsZero())
	rec, _ := st.Load(context.Background())
	assert.Nil(t, rec)
	assert.Equal(t, []string{RouteDashboard, RouteLanding}, nav.list())
}

func TestUpdateUser_LocalOnly(t *testing.T) {
	b := newBackend(t)
	m, _, _, st := loggedIn(t, b)
	before := b.count("/user/profile") + b.count("/auth/refresh-token")

	require.NoError(t, m.UpdateUser(client.Profile{ID: "1", Name: "B", Currency: "EUR"}))
	require.NoError(t, m.UpdateUser(client.Profile{ID: "1", Name: "C", Currency: "EUR"}))

	assert.Equal(t, "C", m.Snapshot().User.Name)
	assert.Equal(t, before, b.count("/user/profile")+b.count("/auth/refresh-token"))

	rec, _ := st.Load(context.Background())
	assert.Equal(t, "C", rec.User.Name)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestHandleCallback_AdoptsOnce(t *testing.T) {
	b := newBackend(t)
	var gotAuth atomic.Value
	b.handle("/user/profile", func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		io.WriteString(w, `{"user":{"id":"g1"}}`)
	})
	st := store.NewMemoryStore(0)
	m, _, nav := newManager(t, b.URL, st)

	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	token := signedToken(t, exp)
	payload := `{"user":{"_id":"g1","name":"Google User","email":"g@example.com"},"token":"` + token + `"}`
	rawURL := "http://127.0.0.1:7777/auth/callback?user=" + url.QueryEscape(payload)

	stripped, adopted, err := m.HandleCallback(rawURL)
	require.NoError(t, err)
	assert.True(t, adopted)
	assert.Equal(t, "http://127.0.0.1:7777/auth/callback", stripped)

	snap := m.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, "Google User", snap.User.Name)
	assert.True(t, snap.ExpiresAt.Equal(exp), "expected expiry from token, got %s", snap.ExpiresAt)

	rec, _ := st.Load(context.Background())
	require.NotNil(t, rec)
	assert.Equal(t, token, rec.Credential.Token)

	// Same URL delivered again: no second adoption, no second navigation
	_, adopted, err = m.HandleCallback(rawURL)
	require.NoError(t, err)
	assert.False(t, adopted)
	assert.Equal(t, []string{RouteDashboard}, nav.list())

	// The adopted token is used for later requests
	_, err = m.backend.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+token, gotAuth.Load())
}

func TestHandleCallback_TokenWithoutExpiry(t *testing.T) {
	b := newBackend(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m, _, _ := newManager(t, b.URL, store.NewMemoryStore(0), WithClock(func() time.Time { return now }))

	payload := url.QueryEscape(`{"user":{"id":"g1"},"token":"opaque"}`)
	_, adopted, err := m.HandleCallback("http://h/auth/callback?user=" + payload)
	require.NoError(t, err)
	require.True(t, adopted)
	assert.Equal(t, now.Add(DefaultCredentialLifetime), m.Snapshot().ExpiresAt)
}

func TestHandleCallback_MalformedIsIgnored(t *testing.T) {
	b := newBackend(t)
	st := newHookStore()
	m, _, nav := newManager(t, b.URL, st)

	stripped, adopted, err := m.HandleCallback("http://h/auth/callback?user=%7Bbroken&next=1")
	assert.True(t, errors.Is(err, ErrMalformedCallback), "got %v", err)
	assert.False(t, adopted)
	assert.Equal(t, "http://h/auth/callback?next=1", stripped)

	assert.False(t, m.Snapshot().IsAuthenticated)
	assert.Empty(t, nav.list())
	assert.Zero(t, st.saves.Load())
}

func TestHandleCallback_IgnoredWhileSessionActive(t *testing.T) {
	b := newBackend(t)
	m, _, nav, _ := loggedIn(t, b)

	payload := url.QueryEscape(`{"user":{"id":"other"},"token":"t"}`)
	_, adopted, err := m.HandleCallback("http://h/auth/callback?user=" + payload)
	require.NoError(t, err)
	assert.False(t, adopted)
	assert.Equal(t, "1", m.Snapshot().User.ID)
	assert.Equal(t, []string{RouteDashboard}, nav.list())
}

func TestHandleCallback_NoPayload(t *testing.T) {
	b := newBackend(t)
	m, _, _ := newManager(t, b.URL, store.NewMemoryStore(0))

	stripped, adopted, err := m.HandleCallback("http://h/dashboard?tab=1")
	require.NoError(t, err)
	assert.False(t, adopted)
	assert.Equal(t, "http://h/dashboard?tab=1", stripped)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	b := newBackend(t)
	m, _, _ := newManager(t, b.URL, store.NewMemoryStore(0))

	var n atomic.Int32
	unsub := m.Subscribe(func(Snapshot) { n.Add(1) })
	m.UpdateUser(client.Profile{ID: "1"})
	unsub()
	unsub()
	m.UpdateUser(client.Profile{ID: "2"})

	assert.Equal(t, int32(1), n.Load())
}

func TestRefreshTask_ArmedOnlyWhileAuthenticated(t *testing.T) {
	b := newBackend(t)
	b.withLogin(`{"user":{"id":"1"}}`)
	m, _, _ := newManager(t, b.URL, store.NewMemoryStore(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartRefresh(ctx)
	assert.False(t, m.RefreshArmed())

	require.NoError(t, m.Login(ctx, Credentials{Email: "a@example.com", Password: "secret"}))
	assert.True(t, m.RefreshArmed())

	require.NoError(t, m.Logout(ctx))
	assert.False(t, m.RefreshArmed())

	require.NoError(t, m.Login(ctx, Credentials{Email: "a@example.com", Password: "secret"}))
	assert.True(t, m.RefreshArmed())
	m.StopRefresh()
	assert.False(t, m.RefreshArmed())
}

func TestRefreshTask_Fires(t *testing.T) {
	b := newBackend(t)
	b.respond("/auth/refresh-token", http.StatusOK, `{"user":{"id":"1","name":"fresh"}}`)
	m, _, _, _ := loggedIn(t, b, WithRefreshInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartRefresh(ctx)

	require.Eventually(t, func() bool {
		return b.count("/auth/refresh-token") >= 1
	}, 3*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return m.Snapshot().User.Name == "fresh"
	}, time.Second, 10*time.Millisecond)
}

func TestRefreshTask_StopsAfterRejection(t *testing.T) {
	b := newBackend(t)
	b.respond("/auth/refresh-token", http.StatusUnauthorized, ``)
	m, _, _, _ := loggedIn(t, b, WithRefreshInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartRefresh(ctx)

	require.Eventually(t, func() bool {
		return !m.Snapshot().IsAuthenticated
	}, 3*time.Second, 10*time.Millisecond)
	assert.False(t, m.RefreshArmed())
}

func TestClose(t *testing.T) {
	b := newBackend(t)
	m, _, _, _ := loggedIn(t, b)
	m.StartRefresh(context.Background())
	require.True(t, m.RefreshArmed())

	require.NoError(t, m.Close())
	assert.False(t, m.RefreshArmed())

	_, err := m.RefreshToken(context.Background())
	assert.True(t, errors.Is(err, ErrClosed))
	assert.True(t, errors.Is(m.Logout(context.Background()), ErrClosed))
	assert.True(t, errors.Is(m.Login(context.Background(), Credentials{Email: "a@example.com", Password: "x"}), ErrClosed))
	assert.True(t, errors.Is(m.UpdateUser(client.Profile{}), ErrClosed))
}

func TestRefresh_InstallsRenewedToken(t *testing.T) {
	b := newBackend(t)
	m, c, _, st := loggedIn(t, b)

	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	token := signedToken(t, exp)
	b.respond("/auth/refresh-token", http.StatusOK, `{"token":"`+token+`"}`)

	ok, err := m.RefreshToken(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, token, c.Token())
	assert.True(t, m.Snapshot().ExpiresAt.Equal(exp), "expected expiry from the new token, got %s", m.Snapshot().ExpiresAt)
	rec, _ := st.Load(context.Background())
	require.NotNil(t, rec)
	assert.Equal(t, token, rec.Credential.Token)
}

func TestRefresh_ConfirmationExtendsPastOldToken(t *testing.T) {
	b := newBackend(t)
	b.respond("/auth/refresh-token", http.StatusOK, `{"message":"ok"}`)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m, _, _ := newManager(t, b.URL, store.NewMemoryStore(0), WithClock(func() time.Time { return now }))

	token := signedToken(t, now.Add(62*time.Second))
	payload := url.QueryEscape(`{"user":{"id":"g1"},"token":"` + token + `"}`)
	_, adopted, err := m.HandleCallback("http://h/auth/callback?user=" + payload)
	require.NoError(t, err)
	require.True(t, adopted)

	ok, err := m.RefreshToken(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, now.Add(DefaultCredentialLifetime), m.Snapshot().ExpiresAt,
		"an unchanged token must not pin the expiry to its old exp claim")
}

func TestRefreshTask_NearExpiryTokenRefreshesOnce(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"confirmed", http.StatusOK, `{"message":"ok"}`},
		{"backend failing", http.StatusBadGateway, ``},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := newBackend(t)
			b.respond("/auth/refresh-token", tc.status, tc.body)

			// The clock runs 59s ahead, so the adopted token is already inside
			// the refresh lead and the first refresh fires after one second
			clock := func() time.Time { return time.Now().Add(59 * time.Second) }
			m, _, _ := newManager(t, b.URL, store.NewMemoryStore(0), WithClock(clock))

			token := signedToken(t, time.Now().Add(62*time.Second))
			payload := url.QueryEscape(`{"user":{"id":"g1"},"token":"` + token + `"}`)
			_, adopted, err := m.HandleCallback("http://h/auth/callback?user=" + payload)
			require.NoError(t, err)
			require.True(t, adopted)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			m.StartRefresh(ctx)

			require.Eventually(t, func() bool {
				return b.count("/auth/refresh-token") >= 1
			}, 3*time.Second, 10*time.Millisecond)
			time.Sleep(2500 * time.Millisecond)

			assert.Equal(t, 1, b.count("/auth/refresh-token"), "the next refresh must wait for the floor")
			assert.True(t, m.Snapshot().IsAuthenticated)
			if tc.status == http.StatusOK {
				assert.True(t, m.Snapshot().ExpiresAt.After(clock().Add(50*time.Minute)))
			}
		})
	}
}

func TestRefresh_LogoutWhileSavingWins(t *testing.T) {
	b := newBackend(t)
	b.withLogin(`{"user":{"id":"1","name":"A"}}`)
	b.respond("/auth/refresh-token", http.StatusOK, `{"user":{"id":"1","name":"B"}}`)
	st := newHookStore()
	m, _, _ := newManager(t, b.URL, st)
	require.NoError(t, m.Login(context.Background(), Credentials{Email: "a@example.com", Password: "secret"}))

	var mu sync.Mutex
	var last Snapshot
	loggedOut := make(chan struct{})
	var closeOnce sync.Once
	m.Subscribe(func(s Snapshot) {
		mu.Lock()
		last = s
		mu.Unlock()
		if !s.IsAuthenticated {
			closeOnce.Do(func() { close(loggedOut) })
		}
	})

	// The logout lands between the refresh saving its result and announcing it
	logoutErr := make(chan error, 1)
	var hookOnce sync.Once
	st.onSave = func() {
		hookOnce.Do(func() {
			go func() { logoutErr <- m.Logout(context.Background()) }()
			<-loggedOut
		})
	}

	ok, err := m.RefreshToken(context.Background())
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrSuperseded), "got %v", err)
	require.NoError(t, <-logoutErr)

	mu.Lock()
	assert.False(t, last.IsAuthenticated, "the last delivered snapshot must be the logged out one")
	assert.Nil(t, last.User)
	mu.Unlock()

	assert.False(t, m.Snapshot().IsAuthenticated)
	rec, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestNotify_DropsOlderSnapshot(t *testing.T) {
	b := newBackend(t)
	m, _, _ := newManager(t, b.URL, store.NewMemoryStore(0))

	var got []string
	m.Subscribe(func(s Snapshot) { got = append(got, s.User.ID) })

	m.mu.Lock()
	m.user = &client.Profile{ID: "older"}
	older, olderSeq := m.stampLocked()
	m.user = &client.Profile{ID: "newer"}
	newer, newerSeq := m.stampLocked()
	m.mu.Unlock()

	m.notify(newer, newerSeq)
	m.notify(older, olderSeq)
	assert.Equal(t, []string{"newer"}, got)
}

func TestRefreshTask_WaitsForBootstrap(t *testing.T) {
	b := newBackend(t)
	b.respond("/user/profile", http.StatusOK, `{"user":{"id":"1"}}`)
	b.respond("/auth/refresh-token", http.StatusOK, `{"message":"ok"}`)
	st := persisted(t, &store.Record{
		User:       &client.Profile{ID: "1"},
		AuthStatus: true,
		Credential: client.Credential{Token: "t", ExpiresAt: time.Now().Add(-time.Hour)},
	})
	m, _, _ := newManager(t, b.URL, st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartRefresh(ctx)
	assert.False(t, m.RefreshArmed(), "a restored session is not refreshed before it is verified")

	require.NoError(t, m.Bootstrap(ctx))
	assert.True(t, m.RefreshArmed())
	assert.Equal(t, 1, b.count("/user/profile"))
}
