// Package settings manages the admin-owned runtime settings document and
// per-user entitlements.
//
// Settings are a single document, read as a snapshot: the controller takes
// one snapshot when a turn is submitted and uses it for the whole turn, so
// a mid-turn settings save never changes an in-flight turn's behavior.
package settings

import (
	"context"
	"errors"
)

// ErrNotFound indicates a requested entitlement document does not exist.
var ErrNotFound = errors.New("entitlement not found")

// Freemium holds the quota parameters for non-premium users.
type Freemium struct {
	Enabled      bool `json:"enabled"`
	MessageLimit int  `json:"message_limit"`
}

// Snapshot is the runtime settings document. The zero value disables
// everything; callers seed defaults from static config at startup.
type Snapshot struct {
	WebSearchEnabled bool     `json:"web_search_enabled"`
	Freemium         Freemium `json:"freemium"`
}

// Entitlement is a user's paid-tier state. Premium users are exempt from
// the freemium quota. Usage within a session is derived from the
// conversation log, not stored here (it cannot drift that way).
type Entitlement struct {
	UserID  string `json:"user_id"`
	Premium bool   `json:"premium"`
}

// Store is the persistence seam for settings and entitlements. Implemented
// by PostgresStore and MemoryStore.
type Store interface {
	// Snapshot returns the current settings document, or the seeded
	// defaults when none has been saved yet.
	Snapshot(ctx context.Context) (Snapshot, error)

	// Save replaces the settings document.
	Save(ctx context.Context, s Snapshot) error

	// Entitlement returns a user's entitlement. Unknown users get the
	// zero entitlement (non-premium), not an error.
	Entitlement(ctx context.Context, userID string) (Entitlement, error)

	// SetPremium upserts a user's premium flag.
	SetPremium(ctx context.Context, userID string, premium bool) error
}
