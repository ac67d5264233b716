package postgres

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/go-playground/errors/v5"
	"github.com/guardteam/authgate/store"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
)

// AuthFlags returns the current authentication method switches. An empty
// configuration table reads as both methods disabled.
func (d *Driver) AuthFlags(ctx context.Context) (store.AuthFlags, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Driver.AuthFlags()")
	defer span.End()

	query := `
		SELECT
			"AzureAdHabilitado", "JwtLocalHabilitado"
		FROM "SystemConfig"
		WHERE "Id" = 1
	`

	flags := store.AuthFlags{}
	if err := pgxscan.Get(ctx, d.conn, &flags, query); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.AuthFlags{}, nil
		}

		return store.AuthFlags{}, errors.Wrap(err, "failed to scan row from SystemConfig table")
	}

	return flags, nil
}

// SetAuthFlags persists the authentication method switches.
func (d *Driver) SetAuthFlags(ctx context.Context, flags store.AuthFlags) error {
	ctx, span := otel.Tracer(name).Start(ctx, "Driver.SetAuthFlags()")
	defer span.End()

	query := `
		INSERT INTO "SystemConfig"
			("Id", "AzureAdHabilitado", "JwtLocalHabilitado")
		VALUES
			(1, $1, $2)
		ON CONFLICT ("Id") DO UPDATE SET
			"AzureAdHabilitado" = EXCLUDED."AzureAdHabilitado",
			"JwtLocalHabilitado" = EXCLUDED."JwtLocalHabilitado"
		`

	if _, err := d.conn.Exec(ctx, query, flags.AzureADEnabled, flags.LocalJWTEnabled); err != nil {
		return errors.Wrap(err, "failed to upsert into table SystemConfig")
	}

	return nil
}
