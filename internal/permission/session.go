package permission

// Session is the authenticated caller together with the permission snapshot
// taken at login. It is not refreshed when the account changes afterwards.
type Session struct {
	UserID           int64   `json:"user_id"`
	Username         string  `json:"username"`
	FullName         string  `json:"full_name"`
	Role             Role    `json:"role"`
	DepartmentAccess *string `json:"department_access,omitempty"`
	Permissions      Set     `json:"permissions"`
}

// Authorize reports whether session holds the named capability. A nil
// session or an unrecognized name is denied.
func Authorize(session *Session, capability string) bool {
	c, ok := ParseCapability(capability)
	if !ok {
		return false
	}
	return AuthorizeCapability(session, c)
}

// AuthorizeCapability is Authorize for an already typed capability.
func AuthorizeCapability(session *Session, c Capability) bool {
	if session == nil {
		return false
	}
	return session.Permissions.Has(c)
}

// Unrestricted reports whether the session may see every department.
func (s *Session) Unrestricted() bool {
	if s == nil {
		return false
	}
	return s.DepartmentAccess == nil || s.Permissions.ViewAllDepartments
}
