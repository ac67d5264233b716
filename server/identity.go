package server

import (
	"context"

	"github.com/guardteam/authgate/authmethod"
)

type ctxKey string

const ctxIdentity ctxKey = "identity"

// Identity is the authenticated caller extracted by the Authenticate
// middleware.
type Identity struct {
	Email  string
	Name   string
	Method authmethod.Method

	// Groups are the directory groups carried by an Azure token.
	Groups []string

	// Codes are the permission codes carried by a local token.
	Codes []string

	// Profile is the profile name carried by a local token.
	Profile string
}

func newIdentityCtx(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

// IdentityFromCtx returns the authenticated identity, or nil outside the
// Authenticate middleware.
func IdentityFromCtx(ctx context.Context) *Identity {
	id, ok := ctx.Value(ctxIdentity).(*Identity)
	if !ok {
		return nil
	}

	return id
}
