package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cccteam/httpio"
	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
	"github.com/guardteam/authgate/store"
	"go.opentelemetry.io/otel"
)

// AuthStatus reports which authentication methods are enabled. It is the
// only endpoint clients may call before resolving their auth method, so it
// requires no credentials.
func (s *Server) AuthStatus() http.HandlerFunc {
	type response struct {
		AzureADEnabled  bool  `json:"azureAdHabilitado"`
		LocalJWTEnabled bool  `json:"jwtLocalHabilitado"`
		Timestamp       int64 `json:"timestamp"`
	}

	return s.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Server.AuthStatus()")
		defer span.End()

		flags, err := s.store.AuthFlags(ctx)
		if err != nil {
			return httpio.NewEncoder(w).InternalServerErrorWithError(ctx, err)
		}
		if flags.AzureADEnabled == flags.LocalJWTEnabled {
			logger.Req(r).Infof("auth method misconfiguration: azure=%t local=%t", flags.AzureADEnabled, flags.LocalJWTEnabled)
		}

		return httpio.NewEncoder(w).Ok(response{
			AzureADEnabled:  flags.AzureADEnabled,
			LocalJWTEnabled: flags.LocalJWTEnabled,
			Timestamp:       time.Now().UnixMilli(),
		})
	})
}

// UpdateAuthConfig flips the auth method switches. It is guarded by the
// X-Admin-Token header and rejects configurations that disable both
// methods.
func (s *Server) UpdateAuthConfig() http.HandlerFunc {
	type request struct {
		AzureADEnabled  *bool `json:"azureAdHabilitado"`
		LocalJWTEnabled *bool `json:"jwtLocalHabilitado"`
	}

	return s.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Server.UpdateAuthConfig()")
		defer span.End()

		if s.adminToken == "" || r.Header.Get("X-Admin-Token") != s.adminToken {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewForbiddenMessage("Invalid admin token"))
		}

		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewBadRequestMessageWithError(errors.Wrap(err, "json.Decoder.Decode()"), "Invalid request body"))
		}

		flags, err := s.store.AuthFlags(ctx)
		if err != nil {
			return httpio.NewEncoder(w).InternalServerErrorWithError(ctx, err)
		}
		if req.AzureADEnabled != nil {
			flags.AzureADEnabled = *req.AzureADEnabled
		}
		if req.LocalJWTEnabled != nil {
			flags.LocalJWTEnabled = *req.LocalJWTEnabled
		}
		if !flags.AzureADEnabled && !flags.LocalJWTEnabled {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewBadRequestMessage("At least one authentication method must remain enabled"))
		}

		if err := s.store.SetAuthFlags(ctx, flags); err != nil {
			return httpio.NewEncoder(w).InternalServerErrorWithError(ctx, err)
		}
		logger.Req(r).Infof("auth config updated: azure=%t local=%t", flags.AzureADEnabled, flags.LocalJWTEnabled)

		return httpio.NewEncoder(w).Ok(store.AuthFlags{
			AzureADEnabled:  flags.AzureADEnabled,
			LocalJWTEnabled: flags.LocalJWTEnabled,
		})
	})
}
