package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cccteam/httpio"
	"github.com/go-playground/errors/v5"
	"github.com/guardteam/authgate/authmethod"
	"github.com/guardteam/authgate/permission"
	"go.opentelemetry.io/otel"
)

const (
	// RouterPermissionCode matches the permission code in the router path.
	RouterPermissionCode = "codigo"
	// RouterModule matches the module name in the router path.
	RouterModule = "modulo"
)

// UserInfo returns the caller's complete authorization profile.
func (s *Server) UserInfo() http.HandlerFunc {
	return s.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Server.UserInfo()")
		defer span.End()

		info, err := s.resolveUserInfo(ctx)
		if err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, err)
		}

		return httpio.NewEncoder(w).Ok(info)
	})
}

// Permissions returns the caller's full permission list.
func (s *Server) Permissions() http.HandlerFunc {
	return s.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Server.Permissions()")
		defer span.End()

		info, err := s.resolveUserInfo(ctx)
		if err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, err)
		}

		return httpio.NewEncoder(w).Ok(info.Permissions)
	})
}

// PermissionCodes returns only the caller's permission codes.
func (s *Server) PermissionCodes() http.HandlerFunc {
	return s.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Server.PermissionCodes()")
		defer span.End()

		info, err := s.resolveUserInfo(ctx)
		if err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, err)
		}

		return httpio.NewEncoder(w).Ok(info.PermissionCodes)
	})
}

// HasPermission checks a single permission code for the caller.
func (s *Server) HasPermission() http.HandlerFunc {
	type response struct {
		Granted bool `json:"tienePermiso"`
	}

	return s.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Server.HasPermission()")
		defer span.End()

		code := httpio.Param[string](r, RouterPermissionCode)

		info, err := s.resolveUserInfo(ctx)
		if err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, err)
		}

		return httpio.NewEncoder(w).Ok(response{
			Granted: info.Set().Evaluate(permission.Criteria{Codes: []string{code}}),
		})
	})
}

// HasModulePermission checks whether the caller holds any permission in a
// module.
func (s *Server) HasModulePermission() http.HandlerFunc {
	type response struct {
		Granted bool `json:"tienePermiso"`
	}

	return s.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Server.HasModulePermission()")
		defer span.End()

		module := httpio.Param[string](r, RouterModule)

		info, err := s.resolveUserInfo(ctx)
		if err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, err)
		}

		return httpio.NewEncoder(w).Ok(response{
			Granted: info.Set().Evaluate(permission.Criteria{Module: module}),
		})
	})
}

// VerifyPermissions checks multiple permission codes in one round trip.
func (s *Server) VerifyPermissions() http.HandlerFunc {
	return s.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Server.VerifyPermissions()")
		defer span.End()

		var codes []string
		if err := json.NewDecoder(r.Body).Decode(&codes); err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewBadRequestMessageWithError(errors.Wrap(err, "json.Decoder.Decode()"), "Invalid request body"))
		}

		info, err := s.resolveUserInfo(ctx)
		if err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, err)
		}

		set := info.Set()
		results := make(map[string]bool, len(codes))
		for _, code := range codes {
			results[code] = set.HasCode(code)
		}

		return httpio.NewEncoder(w).Ok(results)
	})
}

// resolveUserInfo builds the authorization profile for the authenticated
// identity. Azure identities resolve through their directory groups; local
// identities resolve through the permission codes carried by their token.
func (s *Server) resolveUserInfo(ctx context.Context) (*permission.UserInfo, error) {
	id := IdentityFromCtx(ctx)
	if id == nil {
		return nil, httpio.NewUnauthorizedMessage("Missing identity")
	}

	info := &permission.UserInfo{
		Email:  id.Email,
		Name:   id.Name,
		Groups: id.Groups,
	}

	switch id.Method {
	case authmethod.MethodLocal:
		perms, err := s.store.PermissionsByCodes(ctx, id.Codes)
		if err != nil {
			return nil, errors.Wrap(err, "store.PermissionStore.PermissionsByCodes()")
		}
		info.Permissions = perms
	case authmethod.MethodAzure, authmethod.MethodNone:
		profiles, err := s.store.ProfilesByGroups(ctx, id.Groups)
		if err != nil {
			return nil, errors.Wrap(err, "store.PermissionStore.ProfilesByGroups()")
		}
		ids := make([]int64, 0, len(profiles))
		for _, p := range profiles {
			ids = append(ids, p.ID)
		}
		perms, err := s.store.PermissionsByProfiles(ctx, ids)
		if err != nil {
			return nil, errors.Wrap(err, "store.PermissionStore.PermissionsByProfiles()")
		}
		info.Profiles = profiles
		info.Permissions = perms
	}
	info.SyncCodes()

	return info, nil
}
