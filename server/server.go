// Package server implements the authgate REST API: auth-method status and
// administration, local login, authorization queries, password recovery,
// and the protected demo data endpoints.
package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/cccteam/httpio"
	"github.com/cccteam/logger"
	"github.com/go-chi/chi/v5"
	"github.com/guardteam/authgate/internal/azureoidc"
	"github.com/guardteam/authgate/internal/jwtlocal"
	"github.com/guardteam/authgate/store"
)

const name = "github.com/guardteam/authgate/server"

const (
	defaultResetTokenTTL = time.Hour
	defaultResetRateMax  = 3
)

// Server carries the API dependencies and configuration.
type Server struct {
	store         store.Store
	issuer        *jwtlocal.Issuer
	azure         azureoidc.Verifier
	mailer        Mailer
	adminToken    string
	resetTokenTTL time.Duration
	resetRateMax  int64
}

// Option configures a Server.
type Option func(*Server)

// WithAzureVerifier enables Entra ID bearer verification.
func WithAzureVerifier(v azureoidc.Verifier) Option {
	return func(s *Server) {
		s.azure = v
	}
}

// WithAdminToken guards the auth-config admin endpoint. Without it the
// endpoint rejects every request.
func WithAdminToken(token string) Option {
	return func(s *Server) {
		s.adminToken = token
	}
}

// WithMailer overrides the password-recovery mail delivery.
func WithMailer(m Mailer) Option {
	return func(s *Server) {
		s.mailer = m
	}
}

// WithResetTokenTTL overrides the recovery-token lifetime.
func WithResetTokenTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.resetTokenTTL = ttl
	}
}

// WithResetRateLimit overrides the per-user recovery requests allowed per
// hour.
func WithResetRateLimit(max int64) Option {
	return func(s *Server) {
		s.resetRateMax = max
	}
}

// New returns a Server over st, issuing local tokens with issuer.
func New(st store.Store, issuer *jwtlocal.Issuer, opts ...Option) *Server {
	s := &Server{
		store:         st,
		issuer:        issuer,
		mailer:        &LogMailer{},
		resetTokenTTL: defaultResetTokenTTL,
		resetRateMax:  defaultResetRateMax,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Routes mounts the API under /api and returns the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/config/auth/status", s.AuthStatus())
		r.Post("/config/auth/config/admin", s.UpdateAuthConfig())

		r.Post("/auth/login", s.Login())
		r.Route("/auth/local", func(r chi.Router) {
			r.Post("/forgot-password", s.ForgotPassword())
			r.Post("/reset-password", s.ResetPassword())
			r.Post("/validate-reset-token", s.ValidateResetToken())
		})

		r.Group(func(r chi.Router) {
			r.Use(s.Authenticate)

			r.Route("/autorizacion", func(r chi.Router) {
				r.Get("/informacion-usuario", s.UserInfo())
				r.Get("/permisos", s.Permissions())
				r.Get("/codigos-permisos", s.PermissionCodes())
				r.Get("/tiene-permiso/{codigo}", s.HasPermission())
				r.Get("/tiene-permiso-modulo/{modulo}", s.HasModulePermission())
				r.Post("/verificar-permisos", s.VerifyPermissions())
			})

			r.Get("/data", s.Data())
			r.Get("/data/dashboard", s.Dashboard())
		})
	})

	return r
}

// handle returns a handler that logs any error coming from our custom handlers
func (s *Server) handle(handler func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := handler(w, r); err != nil {
			if httpio.CauseIsError(err) {
				logger.Req(r).Error(err)
			} else {
				logger.Req(r).Infof("['%s']", strings.Join(httpio.Messages(err), "', '"))
			}
		}
	}
}
