// Package jwtlocal issues and verifies the signed bearer tokens used by
// the local username/password authentication method.
package jwtlocal

import (
	"strings"
	"time"

	"github.com/go-playground/errors/v5"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "authgate"

	// TokenPrefix is prepended to issued tokens; the client stores and
	// replays the full prefixed string.
	TokenPrefix = "Bearer "

	defaultTTL = 30 * time.Minute
)

// ErrInvalidToken indicates the token failed signature or claim
// validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the claims carried by a local token.
type Claims struct {
	Name        string   `json:"nombre,omitempty"`
	Profile     string   `json:"perfil,omitempty"`
	Authorities []string `json:"authorities,omitempty"`
	jwt.RegisteredClaims
}

// PermissionCodes returns the permission codes granted by the token.
func (c *Claims) PermissionCodes() []string {
	return c.Authorities
}

// Issuer creates and validates local tokens with an HMAC-SHA512 secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithTTL sets the token lifetime. (default: 30m)
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		i.ttl = ttl
	}
}

// NewIssuer returns an Issuer signing with secret.
func NewIssuer(secret []byte, options ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is not configured")
	}

	i := &Issuer{secret: secret, ttl: defaultTTL}
	for _, opt := range options {
		opt(i)
	}

	return i, nil
}

// Issue signs a token for email carrying the display name, profile, and
// permission codes. The returned string includes the Bearer prefix.
func (i *Issuer) Issue(email, name, profile string, codes []string) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", errors.Wrap(err, "uuid.NewV4()")
	}

	now := time.Now()
	claims := Claims{
		Name:        name,
		Profile:     profile,
		Authorities: codes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        id.String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(i.secret)
	if err != nil {
		return "", errors.Wrap(err, "jwt.Token.SignedString()")
	}

	return TokenPrefix + signed, nil
}

// Verify validates the token signature, issuer, and expiry and returns
// its claims. The token may carry the Bearer prefix.
func (i *Issuer) Verify(token string) (*Claims, error) {
	token = Strip(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS512 {
			return nil, ErrInvalidToken
		}

		return i.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Decode extracts the claims without verifying the signature. This is the
// client-side decode of a token the backend already vouched for; it must
// never be used to authenticate a request.
func Decode(token string) (*Claims, error) {
	token = Strip(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}

	return claims, nil
}

// Strip removes the Bearer prefix and surrounding whitespace.
func Strip(token string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), TokenPrefix))
}
