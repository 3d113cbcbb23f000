package permission

import (
	"errors"
	"fmt"
)

var (
	// ErrSelfLockout is returned when an edit would remove the editor's own
	// ability to manage users or deactivate the editor's own account.
	ErrSelfLockout = errors.New("cannot revoke manage_users from or deactivate your own account")
	// ErrNotPreset is returned when custom is selected as if it were a preset.
	ErrNotPreset = errors.New("custom is not a selectable role")
	// ErrUnknownCapability is returned for a capability name outside the nine flags.
	ErrUnknownCapability = errors.New("unknown capability")
)

// Editor holds the in-progress (role, permissions) pair of one account edit.
//
// The editor is in Preset(base) while its set equals Resolve(base) and in
// Custom otherwise; base is the last concrete role chosen. Toggles never
// change base, only SelectRole does.
type Editor struct {
	base   Role
	perms  Set
	active bool
	self   bool
}

// NewEditor starts an edit for a new account in Preset(viewer).
func NewEditor() *Editor {
	return &Editor{
		base:   RoleViewer,
		perms:  Resolve(RoleViewer),
		active: true,
	}
}

// EditorFor starts an edit of an existing account with the given stored
// role, permissions and activity flag. self marks the account as the one the
// current session belongs to.
func EditorFor(role Role, perms Set, active, self bool) *Editor {
	base := role
	if !base.IsPreset() {
		base = RoleViewer
	}
	return &Editor{
		base:   base,
		perms:  perms,
		active: active,
		self:   self,
	}
}

// Role is RoleCustom when the set drifted from the base preset, the base otherwise.
func (e *Editor) Role() Role {
	if IsCustom(e.perms, e.base) {
		return RoleCustom
	}
	return e.base
}

// Base returns the last concrete role selected.
func (e *Editor) Base() Role {
	return e.base
}

func (e *Editor) Permissions() Set {
	return e.perms
}

func (e *Editor) Active() bool {
	return e.active
}

// SelectRole switches to Preset(r), discarding any custom flags.
func (e *Editor) SelectRole(r Role) error {
	if r == RoleCustom {
		return ErrNotPreset
	}
	if !r.IsPreset() {
		return fmt.Errorf("invalid role %q", r)
	}
	next := Resolve(r)
	if e.self && !next.ManageUsers {
		return ErrSelfLockout
	}
	e.base = r
	e.perms = next
	return nil
}

// Toggle sets one flag and re-labels the edit against the base preset.
func (e *Editor) Toggle(c Capability, value bool) error {
	if _, ok := ParseCapability(string(c)); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCapability, c)
	}
	if e.Disabled(c) && !value {
		return ErrSelfLockout
	}
	e.perms, _ = e.perms.With(c, value)
	return nil
}

// Flip inverts one flag.
func (e *Editor) Flip(c Capability) error {
	return e.Toggle(c, !e.perms.Has(c))
}

// SetActive changes the activity flag of the edited account.
func (e *Editor) SetActive(active bool) error {
	if !active && e.ActiveLocked() {
		return ErrSelfLockout
	}
	e.active = active
	return nil
}

// Disabled reports whether the control for c must not be switched off.
func (e *Editor) Disabled(c Capability) bool {
	return e.self && c == ManageUsers
}

// ActiveLocked reports whether the activity control must not be switched off.
func (e *Editor) ActiveLocked() bool {
	return e.self
}

// Snapshot returns the pair handed to persistence on submit.
func (e *Editor) Snapshot() (Role, Set) {
	return e.Role(), e.perms
}
