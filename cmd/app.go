// ABOUTME: Wiring shared by the session commands
// ABOUTME: Builds the logger, API client, session store and session manager from configuration

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/client"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/config"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/logger"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/session"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/store"
)

// app holds everything a command needs to talk to the backend as the current user
type app struct {
	cfg     *config.Config
	client  *client.Client
	store   store.Store
	session *session.Manager
	closers []io.Closer
}

// newApp loads configuration and builds the session stack. Logs go to
// stderr unless logOut is given.
func newApp(logOut io.Writer, opts ...session.Option) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if logOut == nil {
		logOut = os.Stderr
	}
	log := logger.Init(logOut, cfg.LogLevel, cfg.LogFormat)

	a := &app{
		cfg:    cfg,
		client: client.New(cfg.APIURL, client.WithTimeout(cfg.HTTPTimeout)),
	}

	a.store, err = a.openStore()
	if err != nil {
		return nil, err
	}

	opts = append([]session.Option{
		session.WithLogger(log),
		session.WithRefreshInterval(cfg.RefreshInterval),
	}, opts...)
	a.session = session.New(a.client, a.store, opts...)

	slog.Debug("Session stack ready", "api", cfg.APIURL, "store", cfg.Store)
	return a, nil
}

func (a *app) openStore() (store.Store, error) {
	switch a.cfg.Store {
	case config.StoreRedis:
		rs, err := store.NewRedisStoreFromURL(a.cfg.RedisURL, a.cfg.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis store: %w", err)
		}
		a.closers = append(a.closers, rs)
		return rs, nil
	case config.StoreMemory:
		// Lives as long as the process
		return store.NewMemoryStore(0), nil
	default:
		return store.NewFileStore(a.cfg.ConfigDir), nil
	}
}

// Close stops the session manager and releases the store
func (a *app) Close() error {
	errs := []error{a.session.Close()}
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// authExitCode maps a session error to an exit code and prints it
func authExitCode(w io.Writer, err error) int {
	switch {
	case errors.Is(err, session.ErrValidation):
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	case errors.Is(err, session.ErrNotAuthenticated):
		fmt.Fprintln(w, "Not logged in. Run `cashly login` first.")
		return 1
	case errors.Is(err, session.ErrAuthRejected), client.IsAuthRejected(err):
		fmt.Fprintf(w, "Error: %v\n", err)
		return 1
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
}
