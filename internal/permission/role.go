package permission

import "fmt"

// Role tags an account with a permission preset, or with Custom when its
// permissions were edited away from every preset.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleHRManager Role = "hr_manager"
	RoleHRStaff   Role = "hr_staff"
	RoleViewer    Role = "viewer"
	RoleCustom    Role = "custom"
)

// PresetRoles are the roles with a canonical permission set, most privileged first.
var PresetRoles = []Role{RoleAdmin, RoleHRManager, RoleHRStaff, RoleViewer}

var presets = map[Role]Set{
	RoleAdmin: {
		ViewEmployees:      true,
		AddEmployees:       true,
		EditEmployees:      true,
		DeleteEmployees:    true,
		ManageUsers:        true,
		ViewAllDepartments: true,
		ExportData:         true,
		ViewReports:        true,
		ManageSettings:     true,
	},
	RoleHRManager: {
		ViewEmployees:      true,
		AddEmployees:       true,
		EditEmployees:      true,
		DeleteEmployees:    true,
		ViewAllDepartments: true,
		ExportData:         true,
		ViewReports:        true,
	},
	RoleHRStaff: {
		ViewEmployees: true,
		AddEmployees:  true,
	},
	RoleViewer: {
		ViewEmployees: true,
	},
}

// ParseRole validates a role tag, including custom.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if r == RoleCustom {
		return r, nil
	}
	if _, ok := presets[r]; ok {
		return r, nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

// IsPreset reports whether r has a canonical permission set.
func (r Role) IsPreset() bool {
	_, ok := presets[r]
	return ok
}

func (r Role) String() string {
	return string(r)
}

// Resolve returns the canonical permission set of role. Custom and unknown
// roles get the viewer set so that a bad tag never widens access.
func Resolve(role Role) Set {
	if s, ok := presets[role]; ok {
		return s
	}
	return presets[RoleViewer]
}

// IsCustom reports whether current differs from the preset of role in any flag.
func IsCustom(current Set, role Role) bool {
	return current != Resolve(role)
}

// Normalize derives the (role, permissions) pair to persist for a request
// that names a role and optionally carries an explicit set. A concrete role
// whose explicit set drifted from its preset becomes custom; custom with no
// explicit set falls back to the viewer preset. Custom with a set equal to
// some preset takes that preset's role.
func Normalize(role Role, explicit *Set) (Role, Set) {
	if explicit == nil {
		if role.IsPreset() {
			return role, Resolve(role)
		}
		return RoleViewer, Resolve(RoleViewer)
	}
	if role.IsPreset() {
		if !IsCustom(*explicit, role) {
			return role, *explicit
		}
		return RoleCustom, *explicit
	}
	if preset, ok := MatchPreset(*explicit); ok {
		return preset, *explicit
	}
	return RoleCustom, *explicit
}

// MatchPreset returns the preset role whose canonical set equals s.
func MatchPreset(s Set) (Role, bool) {
	for _, r := range PresetRoles {
		if !IsCustom(s, r) {
			return r, true
		}
	}
	return "", false
}
