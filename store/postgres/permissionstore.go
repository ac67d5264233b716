package postgres

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/go-playground/errors/v5"
	"github.com/guardteam/authgate/permission"
	"github.com/guardteam/authgate/store"
	"go.opentelemetry.io/otel"
)

type profileRow struct {
	ID          int64  `db:"Id"`
	Name        string `db:"Nombre"`
	Description string `db:"Descripcion"`
	GroupID     string `db:"AzureGroupId"`
	GroupName   string `db:"AzureGroupName"`
}

type permissionRow struct {
	Code        string `db:"Codigo"`
	Name        string `db:"Nombre"`
	Module      string `db:"Modulo"`
	Action      string `db:"Accion"`
	Description string `db:"Descripcion"`
}

// ProfilesByGroups returns the profiles mapped to the given Azure group
// IDs, falling back to the default profile when none match.
func (d *Driver) ProfilesByGroups(ctx context.Context, groupIDs []string) ([]permission.Profile, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Driver.ProfilesByGroups()")
	defer span.End()

	profiles, err := d.profilesByGroups(ctx, groupIDs)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		profiles, err = d.profilesByGroups(ctx, []string{store.DefaultGroupID})
		if err != nil {
			return nil, err
		}
	}

	return profiles, nil
}

func (d *Driver) profilesByGroups(ctx context.Context, groupIDs []string) ([]permission.Profile, error) {
	query := `
		SELECT
			"Id", "Nombre", "Descripcion", "AzureGroupId", "AzureGroupName"
		FROM "Profiles"
		WHERE "AzureGroupId" = ANY($1)
		ORDER BY "Id"
	`

	var rows []profileRow
	if err := pgxscan.Select(ctx, d.conn, &rows, query, groupIDs); err != nil {
		return nil, errors.Wrap(err, "failed to scan rows from Profiles table")
	}

	profiles := make([]permission.Profile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, permission.Profile{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			GroupID:     row.GroupID,
			GroupName:   row.GroupName,
		})
	}

	return profiles, nil
}

// PermissionsByProfiles returns the deduplicated permissions granted
// through the given profiles.
func (d *Driver) PermissionsByProfiles(ctx context.Context, profileIDs []int64) ([]permission.Permission, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Driver.PermissionsByProfiles()")
	defer span.End()

	query := `
		SELECT DISTINCT
			p."Codigo", p."Nombre", p."Modulo", p."Accion", p."Descripcion"
		FROM "Permissions" p
		JOIN "ProfilePermissions" pp ON pp."PermissionCode" = p."Codigo"
		WHERE pp."ProfileId" = ANY($1)
		ORDER BY p."Codigo"
	`

	var rows []permissionRow
	if err := pgxscan.Select(ctx, d.conn, &rows, query, profileIDs); err != nil {
		return nil, errors.Wrap(err, "failed to scan rows from Permissions table")
	}

	return toPermissions(rows), nil
}

// PermissionsByCodes returns the full permission records for codes.
func (d *Driver) PermissionsByCodes(ctx context.Context, codes []string) ([]permission.Permission, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Driver.PermissionsByCodes()")
	defer span.End()

	query := `
		SELECT
			"Codigo", "Nombre", "Modulo", "Accion", "Descripcion"
		FROM "Permissions"
		WHERE "Codigo" = ANY($1)
		ORDER BY array_position($1, "Codigo")
	`

	var rows []permissionRow
	if err := pgxscan.Select(ctx, d.conn, &rows, query, codes); err != nil {
		return nil, errors.Wrap(err, "failed to scan rows from Permissions table")
	}

	return toPermissions(rows), nil
}

func toPermissions(rows []permissionRow) []permission.Permission {
	perms := make([]permission.Permission, 0, len(rows))
	for _, row := range rows {
		perms = append(perms, permission.Permission{
			Code:        row.Code,
			Name:        row.Name,
			Module:      row.Module,
			Action:      row.Action,
			Description: row.Description,
		})
	}

	return perms
}
