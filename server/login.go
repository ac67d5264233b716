package server

import (
	"context"
	"net/http"

	"github.com/cccteam/httpio"
	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
	"github.com/guardteam/authgate/permission"
	"github.com/guardteam/authgate/store"
	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"
)

// Login authenticates HTTP Basic credentials against the local user store
// and returns a signed bearer token carrying the user's permission codes.
func (s *Server) Login() http.HandlerFunc {
	type response struct {
		Token   string `json:"token"`
		Type    string `json:"type"`
		Message string `json:"message"`
	}

	return s.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Server.Login()")
		defer span.End()

		flags, err := s.store.AuthFlags(ctx)
		if err != nil {
			return httpio.NewEncoder(w).InternalServerErrorWithError(ctx, err)
		}
		if !flags.LocalJWTEnabled {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewForbiddenMessage("Autenticación JWT local deshabilitada"))
		}

		email, password, ok := r.BasicAuth()
		if !ok {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewUnauthorizedMessage("Credenciales inválidas"))
		}

		token, err := s.loginAPI(ctx, email, password)
		if err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, err)
		}

		logger.Req(r).AddRequestAttribute("Username", email)

		return httpio.NewEncoder(w).Ok(response{
			Token:   token,
			Type:    "Bearer",
			Message: "Login exitoso",
		})
	})
}

func (s *Server) loginAPI(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return "", httpio.NewUnauthorizedMessageWithError(err, "Credenciales inválidas")
	}
	if !user.Active {
		return "", httpio.NewUnauthorizedMessage("Usuario inactivo")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", httpio.NewUnauthorizedMessageWithError(err, "Credenciales inválidas")
	}

	profile, perms, err := s.localGrants(ctx)
	if err != nil {
		return "", errors.Wrap(err, "Server.localGrants()")
	}

	codes := make([]string, 0, len(perms))
	for _, p := range perms {
		codes = append(codes, p.Code)
	}

	token, err := s.issuer.Issue(user.Email, user.Name, profile, codes)
	if err != nil {
		return "", errors.Wrap(err, "jwtlocal.Issuer.Issue()")
	}

	return token, nil
}

// localGrants resolves the default profile and its permissions, granted to
// every local-credential account.
func (s *Server) localGrants(ctx context.Context) (string, []permission.Permission, error) {
	profiles, err := s.store.ProfilesByGroups(ctx, []string{store.DefaultGroupID})
	if err != nil {
		return "", nil, errors.Wrap(err, "store.PermissionStore.ProfilesByGroups()")
	}
	if len(profiles) == 0 {
		return "", nil, nil
	}

	ids := make([]int64, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	perms, err := s.store.PermissionsByProfiles(ctx, ids)
	if err != nil {
		return "", nil, errors.Wrap(err, "store.PermissionStore.PermissionsByProfiles()")
	}

	return profiles[0].Name, perms, nil
}
