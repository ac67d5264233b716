package guard

import (
	"net/http"
	"net/url"

	"github.com/cccteam/logger"
	"github.com/guardteam/authgate/authmethod"
	"github.com/guardteam/authgate/credstore"
	"github.com/guardteam/authgate/permission"
)

// RequireAuth redirects unauthenticated requests to the sign-in surface for
// the active method: the local login form (with a returnUrl), or the method
// selector when no method is resolved or Azure sign-in must be initiated.
func (g *Guard) RequireAuth() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := g.sessions(w, r)
			sess.EvictStaleToken(r.Context())

			if sess.IsAuthenticated() {
				next.ServeHTTP(w, r)

				return
			}

			logger.Req(r).Infof("unauthenticated request to %s", r.URL.Path)
			g.redirectToSignIn(w, r, sess)
		})
	}
}

func (g *Guard) redirectToSignIn(w http.ResponseWriter, r *http.Request, sess Session) {
	switch sess.ActiveMethod() {
	case authmethod.MethodLocal:
		http.Redirect(w, r, g.loginPath+"?returnUrl="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
	case authmethod.MethodAzure, authmethod.MethodNone:
		http.Redirect(w, r, g.selectorPath, http.StatusFound)
	}
}

// RequirePermissions gates a route on criteria. Permissions are settled
// before evaluation; on denial the attempted URL is recorded for the
// return-after-recheck affordance and the request is redirected to the
// access-denied page.
func (g *Guard) RequirePermissions(criteria permission.Criteria) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := g.sessions(w, r)

			switch state := g.State(r.Context(), sess, criteria); state {
			case AuthenticatedWithPermissions:
				next.ServeHTTP(w, r)
			case Unauthenticated:
				logger.Req(r).Infof("unauthenticated request to %s", r.URL.Path)
				g.redirectToSignIn(w, r, sess)
			case AuthenticatedNoPermissions, AccessDenied:
				logger.Req(r).Infof("access denied to %s (state %s)", r.URL.Path, state)
				attempted := r.URL.RequestURI()
				sess.Store().Set(credstore.KeyAttemptedURL, []byte(attempted))
				http.Redirect(w, r, g.deniedPath+"?returnUrl="+url.QueryEscape(attempted), http.StatusFound)
			}
		})
	}
}

// AttemptedURL returns and clears the URL recorded by the last denial.
func AttemptedURL(store credstore.Store) (string, bool) {
	raw, ok := store.Get(credstore.KeyAttemptedURL)
	if !ok || len(raw) == 0 {
		return "", false
	}
	store.Delete(credstore.KeyAttemptedURL)

	return string(raw), true
}
