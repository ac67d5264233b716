package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cccteam/httpio"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-playground/errors/v5"
	"github.com/gofrs/uuid"
	"github.com/gorilla/securecookie"
	"golang.org/x/oauth2"
)

type stKey string

const (
	stCookieName = "OIDC"
	// Keys used in Secure Token Cookie
	stState        stKey = "state"
	stPkceVerifier stKey = "pkceVerifier"
	stReturnURL    stKey = "returnURL"

	oidcCookieExpiration = 10 * time.Minute
)

// AzureAuth runs the Entra ID authorization-code flow for browser logins.
type AzureAuth struct {
	provider *oidc.Provider
	config   oauth2.Config
	s        *securecookie.SecureCookie
}

// NewAzureAuth discovers the Entra ID issuer and returns the flow handler.
func NewAzureAuth(ctx context.Context, s *securecookie.SecureCookie, issuerURL, clientID, clientSecret, redirectURL string) (*AzureAuth, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "oidc.NewProvider()")
	}

	return &AzureAuth{
		provider: provider,
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		s: s,
	}, nil
}

// AuthCodeURL returns the URL to redirect to in order to start the flow.
func (a *AzureAuth) AuthCodeURL(w http.ResponseWriter, returnURL string) (string, error) {
	// PKCE protects against authorization code interception
	pkceVerifier := oauth2.GenerateVerifier()

	// Random state protects against CSRF
	state, err := uuid.NewV4()
	if err != nil {
		return "", errors.Wrap(err, "uuid.NewV4()")
	}

	cval := map[stKey]string{
		stState:        state.String(),
		stPkceVerifier: pkceVerifier,
		stReturnURL:    returnURL,
	}
	if err := a.writeOidcCookie(w, cval); err != nil {
		return "", errors.Wrap(err, "AzureAuth.writeOidcCookie()")
	}

	return a.config.AuthCodeURL(state.String(), oauth2.S256ChallengeOption(pkceVerifier)), nil
}

// Callback verifies the authorization-code callback and returns the raw
// verified ID token plus the URL to continue to.
func (a *AzureAuth) Callback(ctx context.Context, w http.ResponseWriter, r *http.Request) (returnURL, rawIDToken string, err error) {
	cval, ok := a.readOidcCookie(r)
	if !ok {
		return "", "", httpio.NewForbiddenMessage("No OIDC cookie")
	}
	a.deleteOidcCookie(w)

	returnURL = cval[stReturnURL]
	if strings.TrimSpace(returnURL) == "" {
		returnURL = "/"
	}

	if r.URL.Query().Get("state") != cval[stState] {
		return "", "", httpio.NewForbiddenMessage("Invalid 'state' parameter value")
	}

	oauth2Token, err := a.config.Exchange(ctx, r.URL.Query().Get("code"), oauth2.VerifierOption(cval[stPkceVerifier]))
	if err != nil {
		return "", "", httpio.NewInternalServerErrorMessageWithError(err, "Failed to exchange token")
	}

	rawIDToken, ok = oauth2Token.Extra("id_token").(string)
	if !ok {
		return "", "", httpio.NewInternalServerErrorMessage("No id_token in token response")
	}

	verifier := a.provider.Verifier(&oidc.Config{ClientID: a.config.ClientID})
	if _, err := verifier.Verify(ctx, rawIDToken); err != nil {
		return "", "", httpio.NewInternalServerErrorMessageWithError(err, "Failed to verify ID token")
	}

	return returnURL, rawIDToken, nil
}

func (a *AzureAuth) writeOidcCookie(w http.ResponseWriter, cval map[stKey]string) error {
	encoded, err := a.s.Encode(stCookieName, cval)
	if err != nil {
		return errors.Wrap(err, "securecookie.Encode()")
	}

	http.SetCookie(w, &http.Cookie{
		Name:    stCookieName,
		Expires: time.Now().Add(oidcCookieExpiration),
		Value:   encoded,
		Path:    "/",
		Secure:  true,
	})

	return nil
}

func (a *AzureAuth) readOidcCookie(r *http.Request) (map[stKey]string, bool) {
	c, err := r.Cookie(stCookieName)
	if err != nil {
		return nil, false
	}

	cval := make(map[stKey]string)
	if err := a.s.Decode(stCookieName, c.Value, &cval); err != nil {
		return nil, false
	}

	return cval, true
}

func (a *AzureAuth) deleteOidcCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:    stCookieName,
		Expires: time.Unix(0, 0),
		Path:    "/",
		Secure:  true,
	})
}
