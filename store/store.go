// Package store defines the backend persistence contracts: users,
// profiles, permissions, system configuration flags, and password reset
// tokens.
package store

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"github.com/guardteam/authgate/permission"
)

// User is a local-credential account. Azure users have no password hash.
type User struct {
	ID           uuid.UUID `db:"Id"           json:"id"`
	Email        string    `db:"Email"        json:"email"`
	Name         string    `db:"Nombre"       json:"nombre"`
	PasswordHash string    `db:"PasswordHash" json:"-"`
	Active       bool      `db:"Activo"       json:"activo"`
	CreatedAt    time.Time `db:"CreatedAt"    json:"fechaCreacion"`
}

// ResetToken is a single-use password-recovery token.
type ResetToken struct {
	Token     string    `db:"Token"     json:"-"`
	UserID    uuid.UUID `db:"UserId"    json:"-"`
	ExpiresAt time.Time `db:"ExpiresAt" json:"expiresAt"`
	Used      bool      `db:"Used"      json:"used"`
	CreatedAt time.Time `db:"CreatedAt" json:"createdAt"`
}

// Valid reports whether the token can still be consumed.
func (t *ResetToken) Valid() bool {
	return !t.Used && time.Now().Before(t.ExpiresAt)
}

// AuthFlags are the runtime-togglable authentication method switches.
type AuthFlags struct {
	AzureADEnabled  bool `db:"AzureAdHabilitado"  json:"azureAdHabilitado"`
	LocalJWTEnabled bool `db:"JwtLocalHabilitado" json:"jwtLocalHabilitado"`
}

// UserStore persists local-credential accounts.
type UserStore interface {
	// UserByEmail returns the account for email.
	UserByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword replaces the password hash for userID.
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

// PermissionStore resolves authorization profiles.
type PermissionStore interface {
	// ProfilesByGroups returns the profiles mapped to the given Azure group
	// IDs. An empty or unmatched group list resolves to the default
	// profile.
	ProfilesByGroups(ctx context.Context, groupIDs []string) ([]permission.Profile, error)

	// PermissionsByProfiles returns the deduplicated permissions granted
	// through the given profiles.
	PermissionsByProfiles(ctx context.Context, profileIDs []int64) ([]permission.Permission, error)

	// PermissionsByCodes returns the full permission records for codes,
	// preserving code order and skipping unknown codes.
	PermissionsByCodes(ctx context.Context, codes []string) ([]permission.Permission, error)
}

// ConfigStore persists the system configuration flags.
type ConfigStore interface {
	AuthFlags(ctx context.Context) (AuthFlags, error)
	SetAuthFlags(ctx context.Context, flags AuthFlags) error
}

// ResetTokenStore persists password-recovery tokens.
type ResetTokenStore interface {
	// InsertResetToken stores a new token, invalidating the user's
	// previous unused tokens.
	InsertResetToken(ctx context.Context, token *ResetToken) error

	// ResetToken returns the stored token record.
	ResetToken(ctx context.Context, token string) (*ResetToken, error)

	// ConsumeResetToken marks the token used.
	ConsumeResetToken(ctx context.Context, token string) error

	// RecentResetRequests counts tokens created for userID since the given
	// time, used and unused alike.
	RecentResetRequests(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
}

// Store is the complete backend persistence surface.
type Store interface {
	UserStore
	PermissionStore
	ConfigStore
	ResetTokenStore
}
