package client

import (
	"context"
	"net/http"

	"github.com/go-playground/errors/v5"
	"github.com/guardteam/authgate/authmethod"
	"github.com/guardteam/authgate/credstore"
	"github.com/guardteam/authgate/permission"
	"go.opentelemetry.io/otel"
)

// FetchUserInfo retrieves the authenticated user's authorization profile
// and caches it. Concurrent calls collapse into a single request. A 401 or
// 403 while the local method is active clears every cached credential; any
// other failure leaves the cached state untouched.
func (c *Client) FetchUserInfo(ctx context.Context) (*permission.UserInfo, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.FetchUserInfo()")
	defer span.End()

	info, err, _ := c.group.Do("informacion-usuario", func() (any, error) {
		return c.fetchUserInfo(ctx)
	})
	if err != nil {
		return nil, err
	}

	userInfo, ok := info.(*permission.UserInfo)
	if !ok {
		return nil, errors.Newf("unexpected singleflight result type %T", info)
	}

	return userInfo, nil
}

func (c *Client) fetchUserInfo(ctx context.Context) (*permission.UserInfo, error) {
	token, ok := c.Token()
	if !ok {
		return nil, newError(KindPermissionFetch, msgPermissionFetch, errors.New("no bearer token"))
	}

	userInfo := &permission.UserInfo{}
	status, err := c.get(ctx, "/autorizacion/informacion-usuario", token, userInfo)
	if err != nil {
		return nil, newError(KindPermissionFetch, msgPermissionFetch, err)
	}
	if err := c.checkAuthzStatus(status); err != nil {
		return nil, err
	}
	userInfo.SyncCodes()

	if err := credstore.SetJSON(c.store, credstore.KeyUserInfo, userInfo); err != nil {
		return nil, newError(KindPermissionFetch, msgPermissionFetch, errors.Wrap(err, "credstore.SetJSON()"))
	}
	if err := credstore.SetJSON(c.store, credstore.KeyPermissionCodes, userInfo.PermissionCodes); err != nil {
		return nil, newError(KindPermissionFetch, msgPermissionFetch, errors.Wrap(err, "credstore.SetJSON()"))
	}

	return userInfo, nil
}

// CachedUserInfo returns the cached authorization profile, if present.
func (c *Client) CachedUserInfo() (*permission.UserInfo, bool) {
	userInfo := &permission.UserInfo{}
	ok, err := credstore.GetJSON(c.store, credstore.KeyUserInfo, userInfo)
	if err != nil || !ok {
		return nil, false
	}

	return userInfo, true
}

// PermissionSet builds the evaluable permission set from the cached state.
// With no cached profile it falls back to the cached code list (local
// tokens carry codes but no module/action detail); with nothing cached the
// set is unloaded and denies every non-vacuous query.
func (c *Client) PermissionSet() permission.Set {
	if userInfo, ok := c.CachedUserInfo(); ok {
		return userInfo.Set()
	}

	var codes []string
	if ok, err := credstore.GetJSON(c.store, credstore.KeyPermissionCodes, &codes); err == nil && ok {
		return permission.NewCodeSet(codes)
	}
	if user, ok := c.CurrentUser(); ok {
		return permission.NewCodeSet(user.Permissions)
	}

	return permission.Set{}
}

// Permissions fetches the user's full permission list from the backend.
func (c *Client) Permissions(ctx context.Context) ([]permission.Permission, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.Permissions()")
	defer span.End()

	var perms []permission.Permission
	if err := c.authzGet(ctx, "/autorizacion/permisos", &perms); err != nil {
		return nil, err
	}

	return perms, nil
}

// PermissionCodes fetches only the user's permission codes.
func (c *Client) PermissionCodes(ctx context.Context) ([]string, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.PermissionCodes()")
	defer span.End()

	var codes []string
	if err := c.authzGet(ctx, "/autorizacion/codigos-permisos", &codes); err != nil {
		return nil, err
	}

	return codes, nil
}

// HasPermission checks a single permission code on the backend.
func (c *Client) HasPermission(ctx context.Context, code string) (bool, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.HasPermission()")
	defer span.End()

	resp := struct {
		Granted bool `json:"tienePermiso"`
	}{}
	if err := c.authzGet(ctx, "/autorizacion/tiene-permiso/"+code, &resp); err != nil {
		return false, err
	}

	return resp.Granted, nil
}

// HasModulePermission checks on the backend whether the user holds any
// permission in the given module.
func (c *Client) HasModulePermission(ctx context.Context, module string) (bool, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.HasModulePermission()")
	defer span.End()

	resp := struct {
		Granted bool `json:"tienePermiso"`
	}{}
	if err := c.authzGet(ctx, "/autorizacion/tiene-permiso-modulo/"+module, &resp); err != nil {
		return false, err
	}

	return resp.Granted, nil
}

// VerifyPermissions checks multiple permission codes on the backend in one
// round trip.
func (c *Client) VerifyPermissions(ctx context.Context, codes []string) (map[string]bool, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.VerifyPermissions()")
	defer span.End()

	token, ok := c.Token()
	if !ok {
		return nil, newError(KindPermissionFetch, msgPermissionFetch, errors.New("no bearer token"))
	}

	results := map[string]bool{}
	status, err := c.post(ctx, "/autorizacion/verificar-permisos", token, codes, &results)
	if err != nil {
		return nil, newError(KindPermissionFetch, msgPermissionFetch, err)
	}
	if err := c.checkAuthzStatus(status); err != nil {
		return nil, err
	}

	return results, nil
}

func (c *Client) authzGet(ctx context.Context, path string, out any) error {
	token, ok := c.Token()
	if !ok {
		return newError(KindPermissionFetch, msgPermissionFetch, errors.New("no bearer token"))
	}

	status, err := c.get(ctx, path, token, out)
	if err != nil {
		return newError(KindPermissionFetch, msgPermissionFetch, err)
	}

	return c.checkAuthzStatus(status)
}

func (c *Client) checkAuthzStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if c.ActiveMethod() == authmethod.MethodLocal {
			c.store.Clear()

			return newError(KindTokenExpired, msgSessionExpired, nil)
		}

		return newError(KindPermissionFetch, msgPermissionFetch, errors.Newf("authorization returned status %d", status))
	case status != http.StatusOK:
		return newError(KindPermissionFetch, msgPermissionFetch, errors.Newf("authorization returned status %d", status))
	}

	return nil
}
