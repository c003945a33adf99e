// ABOUTME: Shared fixtures for command tests
// ABOUTME: Provides a fake Cashly backend and isolates config, flags and prompts per test

package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/client"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/session"
)

var errPromptDisabled = errors.New("prompt disabled in tests")

const (
	testEmail    = "ada@example.com"
	testPassword = "secret"
	testToken    = "tok-1"
)

// fakeBackend mimics the cookie-based Cashly API
type fakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	reject   bool
	settings client.SettingsRequest
	calls    map[string]int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{calls: map[string]int{}}
	fb.Server = httptest.NewServer(http.HandlerFunc(fb.handle))
	t.Cleanup(fb.Close)
	return fb
}

// rejectAll makes every authenticated endpoint answer 401
func (fb *fakeBackend) rejectAll() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.reject = true
}

func (fb *fakeBackend) count(path string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.calls[path]
}

func (fb *fakeBackend) authorized(r *http.Request) bool {
	if fb.reject {
		return false
	}
	ck, err := r.Cookie("token")
	return err == nil && ck.Value == testToken
}

func (fb *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.calls[r.URL.Path]++

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/auth/login":
		var req client.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Email != testEmail || req.Password != testPassword {
			writeStatus(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "token", Value: testToken, Path: "/"})
		writeUser(w, fb.profile())

	case "/auth/register":
		var req client.RegisterRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Email == testEmail {
			writeStatus(w, http.StatusConflict, "User already exists")
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeUser(w, map[string]any{"id": "2", "email": req.Email, "firstName": req.FirstName})

	case "/auth/logout":
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "", Path: "/", MaxAge: -1})
		w.Write([]byte(`{"message":"Logged out"}`))

	case "/auth/refresh-token":
		if !fb.authorized(r) {
			writeStatus(w, http.StatusUnauthorized, "jwt expired")
			return
		}
		w.Write([]byte(`{"message":"Token refreshed"}`))

	case "/user/profile":
		if !fb.authorized(r) {
			writeStatus(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		writeUser(w, fb.profile())

	case "/user/settings":
		if !fb.authorized(r) {
			writeStatus(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		json.NewDecoder(r.Body).Decode(&fb.settings)
		writeUser(w, fb.profile())

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// profile reflects the last saved settings, if any
func (fb *fakeBackend) profile() map[string]any {
	p := map[string]any{
		"id":             "1",
		"name":           "Ada",
		"email":          testEmail,
		"currency":       "USD",
		"currencySymbol": "$",
		"balance":        1250.5,
		"salary":         4000,
		"paymentDay":     25,
	}
	s := fb.settings
	if s.Currency != "" {
		p["currency"] = s.Currency
		p["currencySymbol"] = s.CurrencySymbol
	}
	if s.Salary != nil {
		p["salary"] = s.Salary.InexactFloat64()
	}
	if s.Balance != nil {
		p["balance"] = s.Balance.InexactFloat64()
	}
	if s.PaymentDay != 0 {
		p["paymentDay"] = s.PaymentDay
	}
	return p
}

func writeUser(w http.ResponseWriter, user map[string]any) {
	json.NewEncoder(w).Encode(map[string]any{"user": user})
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// setupCmdEnv points every command at apiURL with a fresh config directory
// and resets flag state
func setupCmdEnv(t *testing.T, apiURLValue string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CASHLY_API_URL", apiURLValue)
	t.Setenv("CASHLY_CONFIG_DIR", dir)
	t.Setenv("CASHLY_STORE", "file")
	t.Setenv("CASHLY_HTTP_TIMEOUT", "5s")
	t.Setenv("LOG_LEVEL", "error")
	resetFlags(t)
	return dir
}

func resetFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		apiURL, jsonOutput, configDir, storeKind = "", false, "", ""
		loginEmail, loginPassword, loginRememberMe, loginGoogle = "", "", false, false
		signupReq = client.RegisterRequest{}
		settingsCurrency, settingsCurrencySymbol = "", ""
		settingsFirstName, settingsLastName = "", ""
		settingsPaymentDay = 0
		settingsSalary, settingsBalance = "", ""
	}
	reset()

	prevCreds, prevSignup := promptCredentials, promptSignup
	promptCredentials = func(*session.Credentials) error {
		t.Error("unexpected credentials prompt")
		return errPromptDisabled
	}
	promptSignup = func(*client.RegisterRequest) error {
		t.Error("unexpected signup prompt")
		return errPromptDisabled
	}
	t.Cleanup(func() {
		reset()
		promptCredentials, promptSignup = prevCreds, prevSignup
	})
}

// loginForTest signs in against fb through the login command
func loginForTest(t *testing.T) {
	t.Helper()
	loginEmail, loginPassword = testEmail, testPassword
	defer func() { loginEmail, loginPassword = "", "" }()

	var out bytes.Buffer
	if code := runLogin(t.Context(), &out); code != 0 {
		t.Fatalf("login failed with %d: %s", code, out.String())
	}
}
