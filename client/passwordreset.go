package client

import (
	"context"
	"net/http"

	"github.com/go-playground/errors/v5"
	"go.opentelemetry.io/otel"
)

// ForgotPassword requests a password-recovery email. The returned message
// is intentionally the same whether or not the account exists.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.ForgotPassword()")
	defer span.End()

	resp := struct {
		Message string `json:"message"`
	}{}
	status, err := c.post(ctx, "/auth/local/forgot-password", "", map[string]string{"email": email}, &resp)
	if err != nil {
		return "", newError(KindLogin, msgCannotConnect, err)
	}
	if status != http.StatusOK {
		return "", newError(KindLogin, msgCannotConnect, errors.Newf("forgot-password returned status %d", status))
	}

	return resp.Message, nil
}

// ResetPassword consumes a recovery token to set a new password.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.ResetPassword()")
	defer span.End()

	body := map[string]string{"token": token, "newPassword": newPassword}
	resp := struct {
		Message string `json:"message"`
	}{}
	status, err := c.post(ctx, "/auth/local/reset-password", "", body, &resp)
	if err != nil {
		return newError(KindLogin, msgCannotConnect, err)
	}
	if status != http.StatusOK {
		return newError(KindLogin, msgResetRejected, errors.Newf("reset-password returned status %d", status))
	}

	return nil
}

// ValidateResetToken reports whether a recovery token is still usable.
func (c *Client) ValidateResetToken(ctx context.Context, token string) (bool, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.ValidateResetToken()")
	defer span.End()

	resp := struct {
		Valid bool `json:"valid"`
	}{}
	status, err := c.post(ctx, "/auth/local/validate-reset-token", "", map[string]string{"token": token}, &resp)
	if err != nil {
		return false, newError(KindLogin, msgCannotConnect, err)
	}
	if status != http.StatusOK {
		return false, newError(KindLogin, msgCannotConnect, errors.Newf("validate-reset-token returned status %d", status))
	}

	return resp.Valid, nil
}
