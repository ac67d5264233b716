package client

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
	"github.com/guardteam/authgate/authmethod"
	"github.com/guardteam/authgate/credstore"
	"github.com/guardteam/authgate/internal/jwtlocal"
	"go.opentelemetry.io/otel"
)

// LoginResponse is the local login payload.
type LoginResponse struct {
	Token   string `json:"token"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// LocalUser is the identity decoded from a local token.
type LocalUser struct {
	Email       string   `json:"email"`
	Name        string   `json:"nombre"`
	Profile     string   `json:"perfil"`
	Permissions []string `json:"permisos"`
}

// Login authenticates against the local credential service with HTTP Basic
// credentials. On success the bearer token and the decoded user claims are
// persisted; on rejection the store is left untouched.
func (c *Client) Login(ctx context.Context, email, password string) (*LocalUser, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.Login()")
	defer span.End()

	basic := "Basic " + base64.StdEncoding.EncodeToString([]byte(email+":"+password))

	loginResp := &LoginResponse{}
	status, err := c.post(ctx, "/auth/login", basic, struct{}{}, loginResp)
	if err != nil {
		return nil, newError(KindLogin, msgCannotConnect, err)
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, newError(KindLogin, msgInvalidCredentials, nil)
	case status != http.StatusOK:
		return nil, newError(KindLogin, msgCannotConnect, errors.Newf("login returned status %d", status))
	}
	if loginResp.Token == "" {
		return nil, newError(KindLogin, msgCannotConnect, errors.New("no token in login response"))
	}

	claims, err := jwtlocal.Decode(loginResp.Token)
	if err != nil {
		return nil, newError(KindLogin, msgCannotConnect, errors.Wrap(err, "jwtlocal.Decode()"))
	}

	user := &LocalUser{
		Email:       claims.Subject,
		Name:        claims.Name,
		Profile:     claims.Profile,
		Permissions: claims.PermissionCodes(),
	}

	c.store.Set(credstore.KeyToken, []byte(loginResp.Token))
	if err := credstore.SetJSON(c.store, credstore.KeyClaims, user); err != nil {
		return nil, newError(KindLogin, msgCannotConnect, errors.Wrap(err, "credstore.SetJSON()"))
	}

	return user, nil
}

// Token returns the stored bearer token, if any.
func (c *Client) Token() (string, bool) {
	token, ok := c.store.Get(credstore.KeyToken)
	if !ok || len(token) == 0 {
		return "", false
	}

	return string(token), true
}

// IsAuthenticated reports whether a bearer token is present.
func (c *Client) IsAuthenticated() bool {
	_, ok := c.Token()

	return ok
}

// CurrentUser returns the locally decoded user claims, if present.
func (c *Client) CurrentUser() (*LocalUser, bool) {
	user := &LocalUser{}
	ok, err := credstore.GetJSON(c.store, credstore.KeyClaims, user)
	if err != nil || !ok {
		return nil, false
	}

	return user, true
}

// Logout clears every cached credential entity and returns the client to
// the unauthenticated state.
func (c *Client) Logout() {
	c.store.Clear()
}

// EvictStaleToken drops a stored local token whose issue time exceeds the
// configured age bound, along with the rest of the cached credentials. An
// undecodable token is also dropped. Returns true when an eviction happened.
// The age bound applies to locally issued tokens only; credentials from
// other methods expire by their own exp claim.
func (c *Client) EvictStaleToken(ctx context.Context) bool {
	if c.tokenMaxAge <= 0 {
		return false
	}
	if c.ActiveMethod() != authmethod.MethodLocal {
		return false
	}
	token, ok := c.Token()
	if !ok {
		return false
	}

	claims, err := jwtlocal.Decode(token)
	if err != nil {
		logger.Ctx(ctx).Infof("dropping undecodable stored token: %v", err)
		c.Logout()

		return true
	}
	if claims.IssuedAt == nil {
		return false
	}

	if age := time.Since(claims.IssuedAt.Time); age > c.tokenMaxAge {
		logger.Ctx(ctx).Infof("dropping stale local token issued %s ago", age.Truncate(time.Second))
		c.Logout()

		return true
	}

	return false
}
