// Package authmethod resolves which authentication method is active from
// the remotely managed configuration flags.
package authmethod

import (
	"time"
)

// Method is the active authentication method.
type Method string

const (
	// MethodAzure authenticates through the Azure AD / Entra ID code flow.
	MethodAzure Method = "azure"

	// MethodLocal authenticates with username/password against the local
	// credential service, which issues a signed bearer token.
	MethodLocal Method = "local"

	// MethodNone means no method is available; all protected access is
	// denied until configuration is fetched successfully.
	MethodNone Method = "none"
)

// Config is the auth-method configuration snapshot fetched from the
// backend. Exactly one flag should be true; both or neither is a
// misconfiguration that callers must surface.
type Config struct {
	AzureADEnabled  bool  `json:"azureAdHabilitado"`
	LocalJWTEnabled bool  `json:"jwtLocalHabilitado"`
	FetchedAt       int64 `json:"timestamp"`
}

// FetchedTime returns FetchedAt as a time.Time. FetchedAt is epoch
// milliseconds on the wire.
func (c Config) FetchedTime() time.Time {
	return time.UnixMilli(c.FetchedAt)
}

// Misconfigured reports whether both or neither method is enabled. The
// resolver still picks deterministically; the condition must be reported,
// not silently resolved.
func (c Config) Misconfigured() bool {
	return c.AzureADEnabled == c.LocalJWTEnabled
}

// Resolve returns the active method for config. Azure takes precedence
// when both flags are set.
func Resolve(c Config) Method {
	switch {
	case c.AzureADEnabled:
		return MethodAzure
	case c.LocalJWTEnabled:
		return MethodLocal
	default:
		return MethodNone
	}
}
