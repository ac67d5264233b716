package postgres

import (
	"context"
	"time"

	"github.com/cccteam/httpio"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/go-playground/errors/v5"
	"github.com/gofrs/uuid"
	"github.com/guardteam/authgate/store"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
)

// InsertResetToken stores a new recovery token, invalidating the user's
// previous unused tokens in the same transaction.
func (d *Driver) InsertResetToken(ctx context.Context, token *store.ResetToken) error {
	ctx, span := otel.Tracer(name).Start(ctx, "Driver.InsertResetToken()")
	defer span.End()

	tx, err := d.conn.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "pgx.Tx.Begin()")
	}
	defer tx.Rollback(ctx)

	invalidate := `
		UPDATE "ResetTokens" SET "Used" = TRUE
		WHERE "UserId" = $1 AND "Used" = FALSE`

	if _, err := tx.Exec(ctx, invalidate, token.UserID); err != nil {
		return errors.Wrapf(err, "failed to invalidate ResetTokens for user %s", token.UserID)
	}

	insert := `
		INSERT INTO "ResetTokens"
			("Token", "UserId", "ExpiresAt", "Used", "CreatedAt")
		VALUES
			($1, $2, $3, $4, $5)
		`

	if _, err := tx.Exec(ctx, insert, token.Token, token.UserID, token.ExpiresAt, token.Used, token.CreatedAt); err != nil {
		return errors.Wrap(err, "failed to insert into table ResetTokens")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "pgx.Tx.Commit()")
	}

	return nil
}

// ResetToken returns the stored token record.
func (d *Driver) ResetToken(ctx context.Context, token string) (*store.ResetToken, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Driver.ResetToken()")
	defer span.End()

	query := `
		SELECT
			"Token", "UserId", "ExpiresAt", "Used", "CreatedAt"
		FROM "ResetTokens"
		WHERE "Token" = $1
	`

	t := &store.ResetToken{}
	if err := pgxscan.Get(ctx, d.conn, t, query, token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpio.NewNotFoundMessage("reset token not found")
		}

		return nil, errors.Wrap(err, "failed to scan row from ResetTokens table")
	}

	return t, nil
}

// ConsumeResetToken marks the token used.
func (d *Driver) ConsumeResetToken(ctx context.Context, token string) error {
	ctx, span := otel.Tracer(name).Start(ctx, "Driver.ConsumeResetToken()")
	defer span.End()

	query := `
		UPDATE "ResetTokens" SET "Used" = TRUE
		WHERE "Token" = $1`

	res, err := d.conn.Exec(ctx, query, token)
	if err != nil {
		return errors.Wrap(err, "failed to update ResetTokens table")
	}

	if cnt := res.RowsAffected(); cnt != 1 {
		return errors.New("failed to find reset token")
	}

	return nil
}

// RecentResetRequests counts tokens created for userID since the given
// time.
func (d *Driver) RecentResetRequests(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Driver.RecentResetRequests()")
	defer span.End()

	query := `
		SELECT COUNT(*)
		FROM "ResetTokens"
		WHERE "UserId" = $1 AND "CreatedAt" > $2
	`

	var count int64
	if err := d.conn.QueryRow(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count rows in ResetTokens table")
	}

	return count, nil
}
