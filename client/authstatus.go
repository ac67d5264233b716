package client

import (
	"context"

	"github.com/guardteam/authgate/authmethod"
	"go.opentelemetry.io/otel"
)

// ResolveMethod fetches the auth-status snapshot (once) and resolves the
// active method. A fetch failure yields MethodNone with a classified error;
// no retry is automatic.
func (c *Client) ResolveMethod(ctx context.Context) (authmethod.Method, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.ResolveMethod()")
	defer span.End()

	cfg, err := c.methods.Load(ctx)
	if err != nil {
		return authmethod.MethodNone, newError(KindConfigFetch, msgCannotConnect, err)
	}

	return authmethod.Resolve(cfg), nil
}

// RefreshMethod refetches the auth-status snapshot, overwriting the cached
// one.
func (c *Client) RefreshMethod(ctx context.Context) (authmethod.Method, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.RefreshMethod()")
	defer span.End()

	cfg, err := c.methods.Refresh(ctx)
	if err != nil {
		return authmethod.MethodNone, newError(KindConfigFetch, msgCannotConnect, err)
	}

	return authmethod.Resolve(cfg), nil
}

// MethodConfig fetches the auth-status snapshot (once) and returns it
// whole, for callers that present both methods instead of resolving one.
func (c *Client) MethodConfig(ctx context.Context) (authmethod.Config, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.MethodConfig()")
	defer span.End()

	cfg, err := c.methods.Load(ctx)
	if err != nil {
		return authmethod.Config{}, newError(KindConfigFetch, msgCannotConnect, err)
	}

	return cfg, nil
}

// ActiveMethod resolves from the cached snapshot only. Absent a snapshot it
// returns MethodNone; it never fetches.
func (c *Client) ActiveMethod() authmethod.Method {
	return c.methods.Active()
}
