//go:build skipAuth

// Package azureoidc validates bearer tokens issued by Azure AD / Entra ID.
// With the skipAuth build tag, verification is skipped for development and
// the identity is simulated from environment variables.
package azureoidc

import (
	"context"
	"os"
	"strings"
)

var _ Verifier = &Azure{}

// Claims are the identity claims extracted from a verified Entra ID token.
type Claims struct {
	Email  string   `json:"preferred_username"`
	Name   string   `json:"name"`
	Groups []string `json:"groups"`
}

// Azure simulates token verification using the APP_USERNAME, APP_NAME, and
// APP_GROUPS environment variables.
type Azure struct{}

// New returns an Azure Verifier. The issuer and client ID are ignored.
func New(_, _ string) *Azure {
	return &Azure{}
}

// Verify returns claims built from the environment. The token is never
// inspected.
func (a *Azure) Verify(_ context.Context, _ string) (*Claims, error) {
	claims := &Claims{
		Email: os.Getenv("APP_USERNAME"),
		Name:  os.Getenv("APP_NAME"),
	}
	if groups := os.Getenv("APP_GROUPS"); groups != "" {
		claims.Groups = strings.Split(groups, ",")
	}

	return claims, nil
}
