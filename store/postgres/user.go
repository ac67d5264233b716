package postgres

import (
	"context"

	"github.com/cccteam/httpio"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/go-playground/errors/v5"
	"github.com/gofrs/uuid"
	"github.com/guardteam/authgate/store"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
)

// UserByEmail returns the local account for a given email.
func (d *Driver) UserByEmail(ctx context.Context, email string) (*store.User, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Driver.UserByEmail()")
	defer span.End()

	query := `
		SELECT
			"Id", "Email", "Nombre", "PasswordHash", "Activo", "CreatedAt"
		FROM "Users"
		WHERE LOWER("Email") = LOWER($1)
	`

	u := &store.User{}
	if err := pgxscan.Get(ctx, d.conn, u, query, email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpio.NewNotFoundMessagef("user %s not found", email)
		}

		return nil, errors.Wrapf(err, "failed to scan row for user %s", email)
	}

	return u, nil
}

// UpdatePassword replaces the password hash for userID.
func (d *Driver) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	ctx, span := otel.Tracer(name).Start(ctx, "Driver.UpdatePassword()")
	defer span.End()

	query := `
		UPDATE "Users" SET "PasswordHash" = $1
		WHERE "Id" = $2`

	res, err := d.conn.Exec(ctx, query, passwordHash, userID)
	if err != nil {
		return errors.Wrapf(err, "failed to update Users table for ID: %s", userID)
	}

	if cnt := res.RowsAffected(); cnt != 1 {
		return errors.Newf("failed to find User %s", userID)
	}

	return nil
}
