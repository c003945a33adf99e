// ABOUTME: Error taxonomy for the session manager
// ABOUTME: Sentinels are wrapped with the underlying cause and tested with errors.Is

package session

import (
	"errors"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/callback"
)

var (
	// ErrAuthRejected means the backend refused the credential. The session has been cleared.
	ErrAuthRejected = errors.New("authentication rejected")

	// ErrTransient means the backend could not be reached or failed. The session is unchanged.
	ErrTransient = errors.New("transient backend failure")

	// ErrMalformedCallback means a callback payload could not be adopted
	ErrMalformedCallback = callback.ErrMalformedPayload

	// ErrValidation means caller-supplied input was rejected before any request
	ErrValidation = errors.New("invalid credentials")

	// ErrNotAuthenticated is returned by operations that need an active session
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSuperseded means a newer identity change made this result stale
	ErrSuperseded = errors.New("superseded by a newer session change")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("session manager closed")
)
