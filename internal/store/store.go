// ABOUTME: Durable session record shared by the file and Redis backends
// ABOUTME: Mirrors the user, authStatus and credential keys written together

package store

import (
	"context"
	"errors"
	"time"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/client"
)

// Keys of the persisted record. They are always written and cleared together.
const (
	KeyUser       = "user"
	KeyAuthStatus = "authStatus"
	KeyCredential = "credential"
)

// ErrCorrupt is returned when a persisted record cannot be decoded
var ErrCorrupt = errors.New("persisted session is corrupt")

// Record is what survives a restart
type Record struct {
	User       *client.Profile   `json:"user,omitempty"`
	AuthStatus bool              `json:"authStatus"`
	Credential client.Credential `json:"credential"`
	SavedAt    time.Time         `json:"savedAt,omitzero"`
}

// Authenticated reports whether the record describes a usable session
func (r *Record) Authenticated() bool {
	return r != nil && r.AuthStatus && r.User != nil
}

// Store persists a single session record. Last writer wins.
type Store interface {
	// Load returns nil, nil when nothing has been persisted
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Clear(ctx context.Context) error
}
