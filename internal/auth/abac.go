package auth

import (
	"github.com/frahmantamala/hrm-access/internal/permission"
)

// DepartmentPolicy decides department visibility from the session's
// department_access attribute and its view_all_departments capability.
type DepartmentPolicy struct{}

func (p *DepartmentPolicy) Allow(session *permission.Session, department string) bool {
	if session == nil {
		return false
	}
	if session.Unrestricted() {
		return true
	}
	return *session.DepartmentAccess == department
}

// Visible filters departments down to those the session may see.
func (p *DepartmentPolicy) Visible(session *permission.Session, departments []string) []string {
	visible := make([]string, 0, len(departments))
	for _, d := range departments {
		if p.Allow(session, d) {
			visible = append(visible, d)
		}
	}
	return visible
}
