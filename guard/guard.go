// Package guard gates HTTP routes on authentication state and declared
// permission criteria. It drives the per-navigation state machine:
// Unauthenticated, AuthenticatedNoPermissions, AuthenticatedWithPermissions,
// and AccessDenied.
package guard

import (
	"context"
	"net/http"

	"github.com/guardteam/authgate/authmethod"
	"github.com/guardteam/authgate/credstore"
	"github.com/guardteam/authgate/permission"
)

// State is the gate's view of the current navigation attempt.
type State uint8

const (
	// Unauthenticated means no credential is present.
	Unauthenticated State = iota
	// AuthenticatedNoPermissions means a credential is present but the
	// authorization profile has not settled (or failed to load).
	AuthenticatedNoPermissions
	// AuthenticatedWithPermissions means the profile is loaded and the
	// route's criteria evaluate true.
	AuthenticatedWithPermissions
	// AccessDenied means the profile is loaded and the route's criteria
	// evaluate false.
	AccessDenied
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "Unauthenticated"
	case AuthenticatedNoPermissions:
		return "AuthenticatedNoPermissions"
	case AuthenticatedWithPermissions:
		return "AuthenticatedWithPermissions"
	case AccessDenied:
		return "AccessDenied"
	default:
		return "Unknown"
	}
}

// Session is the per-request credential session the gate evaluates.
// *client.Client satisfies it.
type Session interface {
	ActiveMethod() authmethod.Method
	IsAuthenticated() bool
	EvictStaleToken(ctx context.Context) bool
	PermissionSet() permission.Set
	FetchUserInfo(ctx context.Context) (*permission.UserInfo, error)
	Store() credstore.Store
}

// Sessions opens the Session for a request. A cookie-backed deployment
// returns a fresh session per request; an in-memory one can return a
// shared session.
type Sessions func(w http.ResponseWriter, r *http.Request) Session

// Guard evaluates sessions against route criteria and redirects denied
// navigation.
type Guard struct {
	sessions     Sessions
	loginPath    string
	selectorPath string
	deniedPath   string
}

// Option configures a Guard.
type Option func(*Guard)

// WithLoginPath overrides the local-login redirect target.
func WithLoginPath(path string) Option {
	return func(g *Guard) {
		g.loginPath = path
	}
}

// WithSelectorPath overrides the auth-method-selector redirect target.
func WithSelectorPath(path string) Option {
	return func(g *Guard) {
		g.selectorPath = path
	}
}

// WithDeniedPath overrides the access-denied redirect target.
func WithDeniedPath(path string) Option {
	return func(g *Guard) {
		g.deniedPath = path
	}
}

// New returns a Guard that opens sessions with sessions.
func New(sessions Sessions, opts ...Option) *Guard {
	g := &Guard{
		sessions:     sessions,
		loginPath:    "/login",
		selectorPath: "/auth-selector",
		deniedPath:   "/acceso-denegado",
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// State settles the session against criteria and reports the resulting
// navigation state. Settling may fetch the authorization profile; a fetch
// failure leaves the session authenticated without permissions.
func (g *Guard) State(ctx context.Context, sess Session, criteria permission.Criteria) State {
	sess.EvictStaleToken(ctx)

	if !sess.IsAuthenticated() {
		return Unauthenticated
	}

	// Routes without declared criteria need no profile fetch.
	if criteria.Empty() {
		return AuthenticatedWithPermissions
	}

	// A code-only set (decoded from the local token) cannot answer module
	// or action criteria; those force a full snapshot fetch too.
	needCatalog := criteria.Module != "" || criteria.Action != ""

	set := sess.PermissionSet()
	if !set.Loaded() || (needCatalog && !set.Detailed()) {
		if _, err := sess.FetchUserInfo(ctx); err != nil {
			if !sess.IsAuthenticated() {
				// reactive logout on 401/403
				return Unauthenticated
			}

			return AuthenticatedNoPermissions
		}
		set = sess.PermissionSet()
	}

	if !set.Evaluate(criteria) {
		return AccessDenied
	}

	return AuthenticatedWithPermissions
}
