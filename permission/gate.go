package permission

// Criteria describes the permission requirements for a route or UI
// fragment. All supplied fields must be satisfied for access to be
// granted. An empty Criteria grants access unconditionally; callers must
// not rely on that default for sensitive content.
type Criteria struct {
	// Codes is satisfied when any one of the codes is granted, or all of
	// them when RequireAll is set.
	Codes      []string
	RequireAll bool

	// Module is satisfied when any granted permission belongs to it.
	Module string

	// Action is satisfied when any granted permission carries it. When
	// both Module and Action are set, a single granted permission must
	// match both.
	Action string
}

// Empty reports whether the criteria places no restriction.
func (c Criteria) Empty() bool {
	return len(c.Codes) == 0 && c.Module == "" && c.Action == ""
}

// Set is an immutable snapshot of granted permissions. The zero value is
// the unloaded set, which denies every non-empty Criteria. Evaluate is
// pure and safe to call at any frequency.
type Set struct {
	loaded   bool
	detailed bool
	codes    map[string]struct{}
	perms    []Permission
}

// NewSet builds a loaded permission set from granted permissions.
func NewSet(perms []Permission) Set {
	codes := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		codes[p.Code] = struct{}{}
	}

	return Set{loaded: true, detailed: true, codes: codes, perms: perms}
}

// NewCodeSet builds a loaded permission set from bare codes, as decoded
// from a local token. Module and action queries always fail against a
// code-only set since the catalog fields are unknown.
func NewCodeSet(codes []string) Set {
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}

	return Set{loaded: true, codes: m}
}

// Loaded reports whether a permission snapshot has been loaded. An
// unloaded set is "no access", not "unknown access".
func (s Set) Loaded() bool {
	return s.loaded
}

// Detailed reports whether the set carries the full permission catalog.
// Code-only sets can answer code queries but never module or action ones,
// so callers holding module criteria should settle a detailed snapshot
// first.
func (s Set) Detailed() bool {
	return s.detailed
}

// HasCode reports whether code is granted.
func (s Set) HasCode(code string) bool {
	_, ok := s.codes[code]

	return ok
}

// HasAnyCode reports whether at least one of codes is granted.
func (s Set) HasAnyCode(codes ...string) bool {
	for _, c := range codes {
		if s.HasCode(c) {
			return true
		}
	}

	return false
}

// HasAllCodes reports whether every one of codes is granted.
func (s Set) HasAllCodes(codes ...string) bool {
	for _, c := range codes {
		if !s.HasCode(c) {
			return false
		}
	}

	return true
}

// HasModule reports whether any granted permission belongs to module.
func (s Set) HasModule(module string) bool {
	for _, p := range s.perms {
		if p.Module == module {
			return true
		}
	}

	return false
}

// HasAction reports whether any granted permission carries action.
func (s Set) HasAction(action string) bool {
	for _, p := range s.perms {
		if p.Action == action {
			return true
		}
	}

	return false
}

// HasModuleAction reports whether a single granted permission matches both
// module and action. This is stricter than HasModule && HasAction.
func (s Set) HasModuleAction(module, action string) bool {
	for _, p := range s.perms {
		if p.Module == module && p.Action == action {
			return true
		}
	}

	return false
}

// Evaluate decides the criteria against the granted set. Empty criteria
// evaluates true even on an unloaded set; any restriction evaluates false
// until a snapshot has been loaded.
func (s Set) Evaluate(c Criteria) bool {
	if c.Empty() {
		return true
	}
	if !s.loaded {
		return false
	}

	if len(c.Codes) > 0 {
		if c.RequireAll {
			if !s.HasAllCodes(c.Codes...) {
				return false
			}
		} else if !s.HasAnyCode(c.Codes...) {
			return false
		}
	}

	if c.Module != "" && !s.HasModule(c.Module) {
		return false
	}
	if c.Action != "" && !s.HasAction(c.Action) {
		return false
	}
	if c.Module != "" && c.Action != "" && !s.HasModuleAction(c.Module, c.Action) {
		return false
	}

	return true
}

// Codes returns the granted codes in permission order.
func (s Set) Codes() []string {
	codes := make([]string, 0, len(s.perms))
	seen := make(map[string]struct{}, len(s.perms))
	for _, p := range s.perms {
		if _, ok := seen[p.Code]; ok {
			continue
		}
		seen[p.Code] = struct{}{}
		codes = append(codes, p.Code)
	}

	return codes
}

// ByModule returns the granted permissions grouped by module.
func (s Set) ByModule() map[string][]Permission {
	grouped := make(map[string][]Permission)
	for _, p := range s.perms {
		grouped[p.Module] = append(grouped[p.Module], p)
	}

	return grouped
}
