// Package session resolves the current principal's profile and derived
// capabilities, and tracks the session lifecycle:
//
//	unauthenticated -> loading -> authenticated(profile) -> authenticated(none)
//
// Resolution is fail-closed: a missing profile or a lookup error yields
// the zero capability set, never a default role. The resolver reads the
// profile store; it never writes to it.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
)

type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
)

// ProfileStore is the single read the resolver performs. A missing
// profile is reported as core.ErrProfileNotFound.
type ProfileStore interface {
	GetProfile(ctx context.Context, principalID string) (core.Profile, error)
}

// Snapshot is the resolved view of a session at a point in time.
type Snapshot struct {
	State        State
	PrincipalID  string
	Profile      *core.Profile
	Capabilities core.Capabilities
	// Provisioned is false when the principal authenticated but has no
	// profile yet; privileged actions must be denied.
	Provisioned bool
	// Err holds a transient lookup failure. The resolver does not retry;
	// the consumer prompts a manual refresh.
	Err error
}

// Resolve performs the single profile lookup for an authenticated
// principal and derives its capabilities. It is the one code path that
// turns a role into permissions; every consumer goes through it (or
// through core.CapabilitiesFor directly) rather than comparing role
// strings.
func Resolve(ctx context.Context, store ProfileStore, principalID string) Snapshot {
	snap := Snapshot{
		State:       StateAuthenticated,
		PrincipalID: principalID,
	}

	profile, err := store.GetProfile(ctx, principalID)
	if err != nil {
		if errors.Is(err, core.ErrProfileNotFound) {
			// Authenticated but not provisioned: read-only unauthorized
			// state, zero capabilities.
			return snap
		}
		// Transient failure: fail closed, keep the error for the caller.
		snap.Err = err
		return snap
	}

	snap.Profile = &profile
	snap.Provisioned = true
	snap.Capabilities = core.CapabilitiesFor(profile.Role)
	return snap
}

// Resolver tracks one session across authentication state changes.
type Resolver struct {
	store ProfileStore

	mu   sync.Mutex
	snap Snapshot
}

func NewResolver(store ProfileStore) *Resolver {
	return &Resolver{
		store: store,
		snap:  Snapshot{State: StateUnauthenticated},
	}
}

// Establish records a new authenticated principal and performs the one
// profile lookup for this session transition. The pending interval is
// observable as StateLoading, which carries no capabilities.
func (r *Resolver) Establish(ctx context.Context, principalID string) Snapshot {
	r.mu.Lock()
	r.snap = Snapshot{State: StateLoading, PrincipalID: principalID}
	r.mu.Unlock()

	snap := Resolve(ctx, r.store, principalID)

	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()
	return snap
}

// Clear drops the session on sign-out or expiry. Any profile and
// capabilities from the previous session are gone immediately; a check
// before the next Establish sees the most restrictive state.
func (r *Resolver) Clear() {
	r.mu.Lock()
	r.snap = Snapshot{State: StateUnauthenticated}
	r.mu.Unlock()
}

// Snapshot returns the current resolved state.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}
