// Package session owns the durable, cross-attempt state of the SDK: the
// current user's credentials, the per-platform connection records, and the
// biometric-gated PIN at rest.
//
// Store has three implementations mirroring the deployment targets:
// in-memory (tests and fully offline demo mode), SQLite (on-device
// durability), and Redis (server-side hosts that embed the SDK).
package session

import (
	"context"
	"errors"
	"time"

	"github.com/onairos/onairos-go/pkg/api"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("session: not found")

// Credentials are the session credentials persisted beyond a single
// onboarding attempt.
type Credentials struct {
	Username    string
	Email       string
	BearerToken string

	// TokenExpiry is when BearerToken stops being valid. The zero value
	// means the expiry is unknown and the token is not expiry-tracked.
	TokenExpiry time.Time
}

// HasToken reports whether a bearer token is present.
func (c Credentials) HasToken() bool { return c.BearerToken != "" }

// ExpiredAt reports whether the token is past its expiry at the given time.
// Tokens without a tracked expiry never report expired.
func (c Credentials) ExpiredAt(now time.Time) bool {
	return !c.TokenExpiry.IsZero() && !now.Before(c.TokenExpiry)
}

// Store is the process-wide session store. Implementations must keep the
// connected-platform set and the per-platform credentials in one place so
// that membership and credential existence cannot diverge.
type Store interface {
	// Credentials returns the stored session credentials.
	// ok is false when no session has been saved.
	Credentials(ctx context.Context) (creds Credentials, ok bool, err error)

	// SaveCredentials overwrites the stored session credentials.
	SaveCredentials(ctx context.Context, creds Credentials) error

	// ClearCredentials removes the stored session credentials, leaving
	// platform connections intact.
	ClearCredentials(ctx context.Context) error

	// Connections lists every stored platform connection.
	Connections(ctx context.Context) ([]api.PlatformConnection, error)

	// Connect stores conn, replacing any previous record for the same
	// platform. The write is atomic: after it returns, the platform is
	// a member if and only if its credential is stored.
	Connect(ctx context.Context, conn api.PlatformConnection) error

	// Disconnect removes the connection record for the platform.
	// Removing an absent platform is not an error.
	Disconnect(ctx context.Context, platform api.Platform) error

	// StorePIN persists the user's PIN at rest. Callers are responsible
	// for gating this behind biometric proof.
	StorePIN(ctx context.Context, pin string) error

	// LoadPIN returns the stored PIN. ok is false when none is stored.
	LoadPIN(ctx context.Context) (pin string, ok bool, err error)

	// Clear wipes everything: credentials, connections, and the PIN.
	Clear(ctx context.Context) error
}

// ActiveBearer returns credentials holding a usable bearer token.
//
// A missing token yields api.ErrInvalidCredentials. A stale token is
// cleared proactively from the store and yields api.ErrTokenExpired, so an
// expired bearer is never handed to a caller about to issue a request.
func ActiveBearer(ctx context.Context, s Store, now time.Time) (Credentials, error) {
	creds, ok, err := s.Credentials(ctx)
	if err != nil {
		return Credentials{}, err
	}
	if !ok || !creds.HasToken() {
		return Credentials{}, api.ErrInvalidCredentials
	}
	if creds.ExpiredAt(now) {
		if err := s.ClearCredentials(ctx); err != nil {
			return Credentials{}, err
		}
		return Credentials{}, api.ErrTokenExpired
	}
	return creds, nil
}
