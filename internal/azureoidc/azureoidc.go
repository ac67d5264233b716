//go:build !skipAuth

// Package azureoidc validates bearer tokens issued by Azure AD / Entra ID.
// The interactive sign-in flow runs in the browser against Microsoft's
// endpoints; this package only verifies the ID tokens those flows produce
// when they arrive at the API.
package azureoidc

import (
	"context"
	"strings"

	"github.com/go-playground/errors/v5"
)

var _ Verifier = &Azure{}

// Claims are the identity claims extracted from a verified Entra ID token.
type Claims struct {
	Email  string   `json:"preferred_username"`
	Name   string   `json:"name"`
	Groups []string `json:"groups"`
}

// Azure implements the Verifier interface against a tenant's OIDC metadata.
type Azure struct {
	loader loader
}

// New returns an Azure Verifier for the tenant at issuerURL, accepting
// tokens minted for clientID. Provider discovery is deferred to the first
// verification.
func New(issuerURL, clientID string) *Azure {
	return &Azure{
		loader: loader{issuerURL: issuerURL, clientID: clientID},
	}
}

// Verify validates rawToken and returns its identity claims. A "Bearer "
// prefix on the token is accepted and stripped.
func (a *Azure) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	rawToken = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rawToken), "Bearer"))

	verifier, err := a.loader.verifier(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loader.verifier()")
	}

	idToken, err := verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, errors.Wrap(err, "oidc.IDTokenVerifier.Verify()")
	}

	claims := &Claims{}
	if err := idToken.Claims(claims); err != nil {
		return nil, errors.Wrap(err, "oidc.IDToken.Claims()")
	}

	return claims, nil
}
