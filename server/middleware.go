package server

import (
	"net/http"
	"strings"

	"github.com/cccteam/httpio"
	"github.com/guardteam/authgate/authmethod"
	"github.com/guardteam/authgate/internal/jwtlocal"
	"go.opentelemetry.io/otel"
)

// Authenticate resolves the bearer token against the enabled auth methods:
// local JWT verification first when local auth is enabled, then Entra ID
// verification when Azure auth is enabled. The resulting identity is stored
// in the request context.
func (s *Server) Authenticate(next http.Handler) http.Handler {
	return s.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Server.Authenticate()")
		defer span.End()

		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		if raw == "" {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewUnauthorizedMessage("Missing bearer token"))
		}

		flags, err := s.store.AuthFlags(ctx)
		if err != nil {
			return httpio.NewEncoder(w).InternalServerErrorWithError(ctx, err)
		}

		if flags.LocalJWTEnabled {
			if claims, err := s.issuer.Verify(raw); err == nil {
				id := &Identity{
					Email:   claims.Subject,
					Name:    claims.Name,
					Method:  authmethod.MethodLocal,
					Codes:   claims.PermissionCodes(),
					Profile: claims.Profile,
				}
				next.ServeHTTP(w, r.WithContext(newIdentityCtx(ctx, id)))

				return nil
			} else if !flags.AzureADEnabled {
				return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewUnauthorizedMessageWithError(err, "Invalid or expired token"))
			}
		}

		if flags.AzureADEnabled && s.azure != nil {
			claims, err := s.azure.Verify(ctx, jwtlocal.Strip(raw))
			if err != nil {
				return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewUnauthorizedMessageWithError(err, "Invalid or expired token"))
			}
			id := &Identity{
				Email:  claims.Email,
				Name:   claims.Name,
				Method: authmethod.MethodAzure,
				Groups: claims.Groups,
			}
			next.ServeHTTP(w, r.WithContext(newIdentityCtx(ctx, id)))

			return nil
		}

		return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewUnauthorizedMessage("No authentication method enabled"))
	})
}
