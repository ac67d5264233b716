// Package permission models the permission catalog and implements the
// permission gate used to authorize routes and UI fragments.
package permission

// Permission is a single grantable capability. Wire names follow the
// backend API contract.
type Permission struct {
	Code        string `json:"codigo"`
	Name        string `json:"nombre"`
	Module      string `json:"modulo"`
	Action      string `json:"accion"`
	Description string `json:"descripcion"`
}

// Profile groups permissions and maps them to an external directory group.
type Profile struct {
	ID          int64  `json:"id"`
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
	GroupID     string `json:"azureGroupId"`
	GroupName   string `json:"azureGroupName"`
}

// UserInfo is the authorization snapshot for a user as returned by the
// backend. PermissionCodes is a denormalized projection of
// Permissions[].Code and is recomputed on every write.
type UserInfo struct {
	Email           string       `json:"email"`
	Name            string       `json:"nombre"`
	Groups          []string     `json:"grupos"`
	Profiles        []Profile    `json:"perfiles"`
	Permissions     []Permission `json:"permisos"`
	PermissionCodes []string     `json:"codigosPermisos"`
}

// SyncCodes recomputes PermissionCodes from Permissions, preserving
// first-seen order and dropping duplicates.
func (u *UserInfo) SyncCodes() {
	seen := make(map[string]struct{}, len(u.Permissions))
	codes := make([]string, 0, len(u.Permissions))
	for _, p := range u.Permissions {
		if _, ok := seen[p.Code]; ok {
			continue
		}
		seen[p.Code] = struct{}{}
		codes = append(codes, p.Code)
	}
	u.PermissionCodes = codes
}

// Set returns the permission set granted by this snapshot.
func (u *UserInfo) Set() Set {
	if u == nil {
		return Set{}
	}

	return NewSet(u.Permissions)
}
