// ABOUTME: Shared fixtures for TUI tests
// ABOUTME: Builds session managers backed by an httptest server and memory store

package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/client"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/session"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/store"
)

const testProfileJSON = `{"user":{"id":"1","name":"Ada","email":"ada@example.com","currency":"USD","currencySymbol":"$","balance":1250.5,"salary":4000,"paymentDay":25}}`

// newTestServer answers every auth endpoint as a healthy backend would
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/logout":
			w.Write([]byte(`{"message":"ok"}`))
		default:
			w.Write([]byte(testProfileJSON))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newTestManager returns a manager with nothing saved
func newTestManager(t *testing.T, baseURL string) (*session.Manager, *client.Client) {
	t.Helper()
	c := client.New(baseURL)
	m := session.New(c, store.NewMemoryStore(0))
	t.Cleanup(func() { m.Close() })
	return m, c
}

// newSignedInManager returns a manager that has completed a password login
func newSignedInManager(t *testing.T) (*session.Manager, *client.Client) {
	t.Helper()
	srv := newTestServer(t)
	m, c := newTestManager(t, srv.URL)
	err := m.Login(context.Background(), session.Credentials{Email: "ada@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return m, c
}
