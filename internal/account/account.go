package account

import (
	"encoding/json"
	"errors"
	"time"

	userDatamodel "github.com/frahmantamala/hrm-access/internal/core/datamodel/user"
	"github.com/frahmantamala/hrm-access/internal/permission"
)

// ErrUsernameConflict is returned by repositories on a unique violation of username.
var ErrUsernameConflict = errors.New("username already exists")

type Account struct {
	ID               int64           `json:"id"`
	Username         string          `json:"username"`
	PasswordHash     string          `json:"-"`
	FullName         string          `json:"full_name"`
	Role             permission.Role `json:"role"`
	DepartmentAccess *string         `json:"department_access"`
	Permissions      permission.Set  `json:"permissions"`
	IsActive         bool            `json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	LastLogin        *time.Time      `json:"last_login"`
}

// Session builds the login snapshot for this account.
func (a *Account) Session() *permission.Session {
	return &permission.Session{
		UserID:           a.ID,
		Username:         a.Username,
		FullName:         a.FullName,
		Role:             a.Role,
		DepartmentAccess: a.DepartmentAccess,
		Permissions:      a.Permissions,
	}
}

func (a *Account) IsCustom() bool {
	return a.Role == permission.RoleCustom
}

// snapshot renders the audited view of the account.
func (a *Account) snapshot() string {
	b, err := json.Marshal(a)
	if err != nil {
		return ""
	}
	return string(b)
}

func ToDataModel(a *Account) *userDatamodel.User {
	p := a.Permissions
	return &userDatamodel.User{
		ID:                    a.ID,
		Username:              a.Username,
		PasswordHash:          a.PasswordHash,
		FullName:              a.FullName,
		Role:                  string(a.Role),
		DepartmentAccess:      a.DepartmentAccess,
		CanViewEmployees:      p.ViewEmployees,
		CanAddEmployees:       p.AddEmployees,
		CanEditEmployees:      p.EditEmployees,
		CanDeleteEmployees:    p.DeleteEmployees,
		CanManageUsers:        p.ManageUsers,
		CanViewAllDepartments: p.ViewAllDepartments,
		CanExportData:         p.ExportData,
		CanViewReports:        p.ViewReports,
		CanManageSettings:     p.ManageSettings,
		IsActive:              a.IsActive,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
		LastLogin:             a.LastLogin,
	}
}

func FromDataModel(u *userDatamodel.User) *Account {
	return &Account{
		ID:               u.ID,
		Username:         u.Username,
		PasswordHash:     u.PasswordHash,
		FullName:         u.FullName,
		Role:             permission.Role(u.Role),
		DepartmentAccess: u.DepartmentAccess,
		Permissions: permission.Set{
			ViewEmployees:      u.CanViewEmployees,
			AddEmployees:       u.CanAddEmployees,
			EditEmployees:      u.CanEditEmployees,
			DeleteEmployees:    u.CanDeleteEmployees,
			ManageUsers:        u.CanManageUsers,
			ViewAllDepartments: u.CanViewAllDepartments,
			ExportData:         u.CanExportData,
			ViewReports:        u.CanViewReports,
			ManageSettings:     u.CanManageSettings,
		},
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		LastLogin: u.LastLogin,
	}
}
