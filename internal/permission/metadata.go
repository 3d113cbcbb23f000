package permission

import (
	"fmt"
	"strings"
)

// Category groups capabilities for display.
type Category string

const (
	CategoryEmployees Category = "employees"
	CategoryAccess    Category = "access"
	CategoryData      Category = "data"
	CategorySystem    Category = "system"
)

// Categories in display order.
var Categories = []Category{CategoryEmployees, CategoryAccess, CategoryData, CategorySystem}

var categoryLabels = map[Category]string{
	CategoryEmployees: "Employee Records",
	CategoryAccess:    "Access Control",
	CategoryData:      "Data & Reports",
	CategorySystem:    "System",
}

// Metadata describes a capability to people.
type Metadata struct {
	Capability  Capability `json:"capability"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
}

var metadata = map[Capability]Metadata{
	ViewEmployees: {
		Label:       "View Employees",
		Description: "Browse and search employee records",
		Category:    CategoryEmployees,
	},
	AddEmployees: {
		Label:       "Add Employees",
		Description: "Register new employees",
		Category:    CategoryEmployees,
	},
	EditEmployees: {
		Label:       "Edit Employees",
		Description: "Change existing employee records",
		Category:    CategoryEmployees,
	},
	DeleteEmployees: {
		Label:       "Delete Employees",
		Description: "Remove employee records permanently",
		Category:    CategoryEmployees,
	},
	ManageUsers: {
		Label:       "Manage Users",
		Description: "Create, edit and deactivate user accounts",
		Category:    CategoryAccess,
	},
	ViewAllDepartments: {
		Label:       "View All Departments",
		Description: "See employees outside the assigned department",
		Category:    CategoryAccess,
	},
	ExportData: {
		Label:       "Export Data",
		Description: "Download records as spreadsheets",
		Category:    CategoryData,
	},
	ViewReports: {
		Label:       "View Reports",
		Description: "Open dashboards, reports and the audit trail",
		Category:    CategoryData,
	},
	ManageSettings: {
		Label:       "Manage Settings",
		Description: "Change application settings and run database backups",
		Category:    CategorySystem,
	},
}

func init() {
	if err := validateMetadata(); err != nil {
		panic(err)
	}
}

func validateMetadata() error {
	var missing []string
	for _, c := range Capabilities {
		m, ok := metadata[c]
		if !ok || m.Label == "" {
			missing = append(missing, string(c))
			continue
		}
		if _, ok := categoryLabels[m.Category]; !ok {
			return fmt.Errorf("permission metadata: capability %s has unknown category %q", c, m.Category)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("permission metadata: missing entries for %s", strings.Join(missing, ", "))
	}
	if len(metadata) != len(Capabilities) {
		return fmt.Errorf("permission metadata: %d entries for %d capabilities", len(metadata), len(Capabilities))
	}
	return nil
}

// Describe returns the metadata of c.
func Describe(c Capability) (Metadata, bool) {
	m, ok := metadata[c]
	if !ok {
		return Metadata{}, false
	}
	m.Capability = c
	return m, true
}

// Group is one display section of capabilities.
type Group struct {
	Category     Category   `json:"category"`
	Label        string     `json:"label"`
	Capabilities []Metadata `json:"capabilities"`
}

// Groups returns every capability grouped by category, both in display order.
func Groups() []Group {
	groups := make([]Group, 0, len(Categories))
	for _, cat := range Categories {
		g := Group{Category: cat, Label: categoryLabels[cat]}
		for _, c := range Capabilities {
			if m, _ := Describe(c); m.Category == cat {
				g.Capabilities = append(g.Capabilities, m)
			}
		}
		groups = append(groups, g)
	}
	return groups
}

// RolePreset pairs a preset role with its canonical set.
type RolePreset struct {
	Role        Role `json:"role"`
	Permissions Set  `json:"permissions"`
}

// CatalogView is what a client needs to render a permission editor.
type CatalogView struct {
	Roles  []RolePreset `json:"roles"`
	Groups []Group      `json:"groups"`
}

func Catalog() CatalogView {
	roles := make([]RolePreset, 0, len(PresetRoles))
	for _, r := range PresetRoles {
		roles = append(roles, RolePreset{Role: r, Permissions: Resolve(r)})
	}
	return CatalogView{Roles: roles, Groups: Groups()}
}
