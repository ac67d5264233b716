package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cccteam/httpio"
	"github.com/go-playground/errors/v5"
	"github.com/gofrs/uuid"
	"github.com/guardteam/authgate/permission"
	"golang.org/x/crypto/bcrypt"
)

// DefaultGroupID is the pseudo-group resolved for users whose directory
// groups map to no profile.
const DefaultGroupID = "default-user"

var _ Store = &Memory{}

// Memory is the in-memory Store used by tests and the demo deployment.
type Memory struct {
	mu            sync.RWMutex
	users         map[string]*User // keyed by lowercased email
	profiles      map[int64]permission.Profile
	groupProfiles map[string][]int64
	profilePerms  map[int64][]string
	permsByCode   map[string]permission.Permission
	permOrder     []string
	flags         AuthFlags
	tokens        map[string]*ResetToken
}

// NewMemory returns an empty in-memory store with both auth methods
// disabled.
func NewMemory() *Memory {
	return &Memory{
		users:         make(map[string]*User),
		profiles:      make(map[int64]permission.Profile),
		groupProfiles: make(map[string][]int64),
		profilePerms:  make(map[int64][]string),
		permsByCode:   make(map[string]permission.Permission),
		tokens:        make(map[string]*ResetToken),
	}
}

// AddPermission registers a permission in the catalog.
func (m *Memory) AddPermission(p permission.Permission) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.permsByCode[p.Code]; !ok {
		m.permOrder = append(m.permOrder, p.Code)
	}
	m.permsByCode[p.Code] = p
}

// AddProfile registers a profile, its directory-group mapping, and the
// permission codes it grants.
func (m *Memory) AddProfile(p permission.Profile, codes ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[p.ID] = p
	if p.GroupID != "" {
		m.groupProfiles[p.GroupID] = append(m.groupProfiles[p.GroupID], p.ID)
	}
	m.profilePerms[p.ID] = append(m.profilePerms[p.ID], codes...)
}

// AddUser registers a local account with a bcrypt-hashed password.
func (m *Memory) AddUser(email, name, password string) (*User, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, errors.Wrap(err, "uuid.NewV4()")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "bcrypt.GenerateFromPassword()")
	}

	user := &User{
		ID:           id,
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Active:       true,
		CreatedAt:    time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[strings.ToLower(email)] = user

	return user, nil
}

// UserByEmail implements UserStore.
func (m *Memory) UserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[strings.ToLower(email)]
	if !ok {
		return nil, httpio.NewNotFoundMessagef("user %s not found", email)
	}
	u := *user

	return &u, nil
}

// UpdatePassword implements UserStore.
func (m *Memory) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.ID == userID {
			user.PasswordHash = passwordHash

			return nil
		}
	}

	return httpio.NewNotFoundMessagef("user %s not found", userID)
}

// ProfilesByGroups implements PermissionStore. Unmatched or empty group
// lists fall back to the default profile.
func (m *Memory) ProfilesByGroups(_ context.Context, groupIDs []string) ([]permission.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profiles := m.profilesLocked(groupIDs)
	if len(profiles) == 0 {
		profiles = m.profilesLocked([]string{DefaultGroupID})
	}

	return profiles, nil
}

func (m *Memory) profilesLocked(groupIDs []string) []permission.Profile {
	seen := make(map[int64]struct{})
	var profiles []permission.Profile
	for _, groupID := range groupIDs {
		for _, profileID := range m.groupProfiles[groupID] {
			if _, ok := seen[profileID]; ok {
				continue
			}
			seen[profileID] = struct{}{}
			profiles = append(profiles, m.profiles[profileID])
		}
	}

	return profiles
}

// PermissionsByProfiles implements PermissionStore.
func (m *Memory) PermissionsByProfiles(_ context.Context, profileIDs []int64) ([]permission.Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	var perms []permission.Permission
	for _, profileID := range profileIDs {
		for _, code := range m.profilePerms[profileID] {
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			if p, ok := m.permsByCode[code]; ok {
				perms = append(perms, p)
			}
		}
	}

	return perms, nil
}

// PermissionsByCodes implements PermissionStore.
func (m *Memory) PermissionsByCodes(_ context.Context, codes []string) ([]permission.Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	perms := make([]permission.Permission, 0, len(codes))
	for _, code := range codes {
		if p, ok := m.permsByCode[code]; ok {
			perms = append(perms, p)
		}
	}

	return perms, nil
}

// AuthFlags implements ConfigStore.
func (m *Memory) AuthFlags(_ context.Context) (AuthFlags, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.flags, nil
}

// SetAuthFlags implements ConfigStore.
func (m *Memory) SetAuthFlags(_ context.Context, flags AuthFlags) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags = flags

	return nil
}

// InsertResetToken implements ResetTokenStore.
func (m *Memory) InsertResetToken(_ context.Context, token *ResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.tokens {
		if existing.UserID == token.UserID && !existing.Used {
			existing.Used = true
		}
	}
	t := *token
	m.tokens[token.Token] = &t

	return nil
}

// ResetToken implements ResetTokenStore.
func (m *Memory) ResetToken(_ context.Context, token string) (*ResetToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.tokens[token]
	if !ok {
		return nil, httpio.NewNotFoundMessage("reset token not found")
	}
	t := *stored

	return &t, nil
}

// ConsumeResetToken implements ResetTokenStore.
func (m *Memory) ConsumeResetToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.tokens[token]
	if !ok {
		return httpio.NewNotFoundMessage("reset token not found")
	}
	stored.Used = true

	return nil
}

// RecentResetRequests implements ResetTokenStore.
func (m *Memory) RecentResetRequests(_ context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, token := range m.tokens {
		if token.UserID == userID && token.CreatedAt.After(since) {
			count++
		}
	}

	return count, nil
}
