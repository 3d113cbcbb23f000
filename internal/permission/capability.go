package permission

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSet is returned when a permission set is not exactly the nine flags.
var ErrInvalidSet = errors.New("invalid permission set")

const jsonKeyPrefix = "can_"

// Capability names one boolean flag of a Set.
type Capability string

const (
	ViewEmployees      Capability = "view_employees"
	AddEmployees       Capability = "add_employees"
	EditEmployees      Capability = "edit_employees"
	DeleteEmployees    Capability = "delete_employees"
	ManageUsers        Capability = "manage_users"
	ViewAllDepartments Capability = "view_all_departments"
	ExportData         Capability = "export_data"
	ViewReports        Capability = "view_reports"
	ManageSettings     Capability = "manage_settings"
)

// Capabilities lists every capability in display order.
var Capabilities = []Capability{
	ViewEmployees,
	AddEmployees,
	EditEmployees,
	DeleteEmployees,
	ManageUsers,
	ViewAllDepartments,
	ExportData,
	ViewReports,
	ManageSettings,
}

// ParseCapability returns the capability with the given name.
func ParseCapability(name string) (Capability, bool) {
	for _, c := range Capabilities {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

func (c Capability) String() string {
	return string(c)
}

// Set is the complete nine-flag permission record of an account.
type Set struct {
	ViewEmployees      bool `json:"can_view_employees"`
	AddEmployees       bool `json:"can_add_employees"`
	EditEmployees      bool `json:"can_edit_employees"`
	DeleteEmployees    bool `json:"can_delete_employees"`
	ManageUsers        bool `json:"can_manage_users"`
	ViewAllDepartments bool `json:"can_view_all_departments"`
	ExportData         bool `json:"can_export_data"`
	ViewReports        bool `json:"can_view_reports"`
	ManageSettings     bool `json:"can_manage_settings"`
}

// field maps a capability onto the flag that stores it.
func (s *Set) field(c Capability) (*bool, error) {
	switch c {
	case ViewEmployees:
		return &s.ViewEmployees, nil
	case AddEmployees:
		return &s.AddEmployees, nil
	case EditEmployees:
		return &s.EditEmployees, nil
	case DeleteEmployees:
		return &s.DeleteEmployees, nil
	case ManageUsers:
		return &s.ManageUsers, nil
	case ViewAllDepartments:
		return &s.ViewAllDepartments, nil
	case ExportData:
		return &s.ExportData, nil
	case ViewReports:
		return &s.ViewReports, nil
	case ManageSettings:
		return &s.ManageSettings, nil
	}
	return nil, fmt.Errorf("unknown capability %q", c)
}

// Has reports whether the flag for c is set. Unknown capabilities are never set.
func (s Set) Has(c Capability) bool {
	f, err := s.field(c)
	if err != nil {
		return false
	}
	return *f
}

// With returns a copy of s with the flag for c set to value.
func (s Set) With(c Capability, value bool) (Set, error) {
	f, err := s.field(c)
	if err != nil {
		return s, err
	}
	*f = value
	return s, nil
}

// Granted lists the capabilities set in s, in display order.
func (s Set) Granted() []Capability {
	var out []Capability
	for _, c := range Capabilities {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Diff lists the capabilities whose flags differ between s and other.
func (s Set) Diff(other Set) []Capability {
	var out []Capability
	for _, c := range Capabilities {
		if s.Has(c) != other.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Map returns the flags keyed by capability name.
func (s Set) Map() map[string]bool {
	m := make(map[string]bool, len(Capabilities))
	for _, c := range Capabilities {
		m[string(c)] = s.Has(c)
	}
	return m
}

// FromMap builds a Set from a complete capability-name map. A missing or
// unknown key is an error: partial sets are not valid.
func FromMap(m map[string]bool) (Set, error) {
	var s Set
	for name, v := range m {
		c, ok := ParseCapability(name)
		if !ok {
			return Set{}, fmt.Errorf("%w: unknown capability %q", ErrInvalidSet, name)
		}
		s, _ = s.With(c, v)
	}
	if len(m) != len(Capabilities) {
		return Set{}, fmt.Errorf("%w: must have %d flags, got %d", ErrInvalidSet, len(Capabilities), len(m))
	}
	return s, nil
}

// UnmarshalJSON accepts only a complete set keyed by the can_ field names.
func (s *Set) UnmarshalJSON(data []byte) error {
	var raw map[string]bool
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSet, err)
	}
	m := make(map[string]bool, len(raw))
	for key, v := range raw {
		name, ok := strings.CutPrefix(key, jsonKeyPrefix)
		if !ok {
			return fmt.Errorf("%w: unknown key %q", ErrInvalidSet, key)
		}
		m[name] = v
	}
	set, err := FromMap(m)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
