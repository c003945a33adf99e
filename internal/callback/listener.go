// ABOUTME: Loopback HTTP listener for the identity-provider redirect
// ABOUTME: Delivers the first valid callback for this sign-in attempt and redirects the browser away from it

package callback

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CallbackPath is where the backend sends the browser back to
const CallbackPath = "/auth/callback"

// DefaultAddr binds the listener to loopback only
const DefaultAddr = "127.0.0.1:7777"

// ErrClosed is returned by Wait after Close
var ErrClosed = errors.New("callback listener closed")

const donePage = `<!doctype html><html><body><p>Signed in to Cashly. You can close this window.</p></body></html>`

const failedPage = `<!doctype html><html><body><p>Sign-in failed. Return to Cashly and try again.</p></body></html>`

// Listener receives a single callback redirect. Only requests to the
// per-attempt path from RedirectURL are accepted.
type Listener struct {
	ln    net.Listener
	srv   *http.Server
	state string
	urls  chan string
	done  chan struct{}

	deliver   sync.Once
	closeOnce sync.Once
}

// Listen starts serving on addr. Use port 0 to pick a free port.
func Listen(addr string) (*Listener, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}

	l := &Listener{
		ln:    ln,
		state: uuid.NewString(),
		urls:  make(chan string, 1),
		done:  make(chan struct{}),
	}
	l.srv = &http.Server{
		Handler:           l.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("Callback listener stopped", "error", err)
		}
	}()
	slog.Debug("Callback listener started", "addr", ln.Addr().String())
	return l, nil
}

func (l *Listener) routes() http.Handler {
	r := chi.NewRouter()
	r.Get(CallbackPath+"/{state}", l.handleCallback)
	return r
}

// RedirectURL is the URL the backend should return the browser to. It
// carries a random state unique to this listener.
func (l *Listener) RedirectURL() string {
	return "http://" + l.ln.Addr().String() + CallbackPath + "/" + l.state
}

func (l *Listener) handleCallback(w http.ResponseWriter, r *http.Request) {
	if subtle.ConstantTimeCompare([]byte(chi.URLParam(r, "state")), []byte(l.state)) != 1 {
		slog.Warn("Rejected callback for another sign-in attempt", "remote", r.RemoteAddr)
		http.Error(w, "unknown sign-in attempt", http.StatusForbidden)
		return
	}
	if !r.URL.Query().Has(ParamUser) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(donePage))
		return
	}

	if _, err := ParsePayload(r.URL.Query().Get(ParamUser)); err != nil {
		// Keep waiting; a later redirect may still carry a usable payload
		slog.Warn("Rejected malformed callback", "error", err)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(failedPage))
		return
	}

	full := "http://" + r.Host + r.URL.RequestURI()
	l.deliver.Do(func() {
		l.urls <- full
	})

	// Never leave the payload in the browser history
	http.Redirect(w, r, StripParam(r.URL.RequestURI(), ParamUser), http.StatusSeeOther)
}

// Wait blocks until a callback arrives, ctx ends, or the listener closes
func (l *Listener) Wait(ctx context.Context) (string, error) {
	select {
	case u := <-l.urls:
		return u, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-l.done:
		return "", ErrClosed
	}
}

// Close shuts the server down
func (l *Listener) Close(ctx context.Context) error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		err = l.srv.Shutdown(ctx)
	})
	return err
}
