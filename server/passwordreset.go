package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cccteam/httpio"
	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
	"github.com/guardteam/authgate/store"
	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"
)

// recoveryMessage is returned for every forgot-password request so the
// endpoint never reveals whether an account exists.
const recoveryMessage = "Si el email existe, recibirás instrucciones de recuperación"

const minPasswordLength = 6

// Mailer delivers password-recovery notifications.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, name, token string) error
}

// LogMailer logs recovery tokens instead of sending mail. It is the
// default for development deployments without SMTP configuration.
type LogMailer struct{}

// SendPasswordReset implements Mailer.
func (LogMailer) SendPasswordReset(ctx context.Context, email, _, token string) error {
	logger.Ctx(ctx).Infof("password reset requested for %s, token %s", email, token)

	return nil
}

// ForgotPassword creates a recovery token for the account. The response is
// identical whether or not the account exists, has a local password, or is
// rate limited.
func (s *Server) ForgotPassword() http.HandlerFunc {
	type request struct {
		Email string `json:"email"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return s.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Server.ForgotPassword()")
		defer span.End()

		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewBadRequestMessageWithError(errors.Wrap(err, "json.Decoder.Decode()"), "Invalid request body"))
		}

		if err := s.createResetToken(ctx, req.Email); err != nil {
			// deliberately not surfaced to the caller
			logger.Req(r).Error(errors.Wrap(err, "Server.createResetToken()"))
		}

		return httpio.NewEncoder(w).Ok(response{Message: recoveryMessage})
	})
}

func (s *Server) createResetToken(ctx context.Context, email string) error {
	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if httpio.HasNotFound(err) {
			return nil
		}

		return errors.Wrap(err, "store.UserStore.UserByEmail()")
	}
	if user.PasswordHash == "" {
		// directory-only account, nothing to reset
		return nil
	}

	count, err := s.store.RecentResetRequests(ctx, user.ID, time.Now().Add(-time.Hour))
	if err != nil {
		return errors.Wrap(err, "store.ResetTokenStore.RecentResetRequests()")
	}
	if count >= s.resetRateMax {
		logger.Ctx(ctx).Infof("reset rate limit reached for %s (%d requests in the last hour)", email, count)

		return nil
	}

	token, err := secureToken()
	if err != nil {
		return err
	}

	if err := s.store.InsertResetToken(ctx, &store.ResetToken{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.resetTokenTTL),
		CreatedAt: time.Now(),
	}); err != nil {
		return errors.Wrap(err, "store.ResetTokenStore.InsertResetToken()")
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, token); err != nil {
		return errors.Wrap(err, "Mailer.SendPasswordReset()")
	}

	return nil
}

// ResetPassword consumes a recovery token and sets the new password.
func (s *Server) ResetPassword() http.HandlerFunc {
	type request struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return s.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Server.ResetPassword()")
		defer span.End()

		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewBadRequestMessageWithError(errors.Wrap(err, "json.Decoder.Decode()"), "Invalid request body"))
		}

		if err := s.resetPasswordAPI(ctx, req.Token, req.NewPassword); err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, err)
		}

		return httpio.NewEncoder(w).Ok(response{Message: "Contraseña actualizada exitosamente"})
	})
}

func (s *Server) resetPasswordAPI(ctx context.Context, token, newPassword string) error {
	rejected := "No se pudo actualizar la contraseña. Verifica que el token sea válido."

	stored, err := s.store.ResetToken(ctx, token)
	if err != nil {
		return httpio.NewBadRequestMessageWithError(err, rejected)
	}
	if !stored.Valid() {
		return httpio.NewBadRequestMessage(rejected)
	}
	if len(newPassword) < minPasswordLength {
		return httpio.NewBadRequestMessage("La contraseña debe tener al menos 6 caracteres")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "bcrypt.GenerateFromPassword()")
	}
	if err := s.store.UpdatePassword(ctx, stored.UserID, string(hash)); err != nil {
		return errors.Wrap(err, "store.UserStore.UpdatePassword()")
	}
	if err := s.store.ConsumeResetToken(ctx, token); err != nil {
		return errors.Wrap(err, "store.ResetTokenStore.ConsumeResetToken()")
	}

	return nil
}

// ValidateResetToken reports whether a recovery token is still usable,
// without consuming it.
func (s *Server) ValidateResetToken() http.HandlerFunc {
	type request struct {
		Token string `json:"token"`
	}
	type response struct {
		Valid bool `json:"valid"`
	}

	return s.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Server.ValidateResetToken()")
		defer span.End()

		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewBadRequestMessageWithError(errors.Wrap(err, "json.Decoder.Decode()"), "Invalid request body"))
		}

		stored, err := s.store.ResetToken(ctx, req.Token)
		if err != nil {
			return httpio.NewEncoder(w).Ok(response{Valid: false})
		}

		return httpio.NewEncoder(w).Ok(response{Valid: stored.Valid()})
	})
}

func secureToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "rand.Read()")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
