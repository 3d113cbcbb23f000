package account

import (
	"github.com/frahmantamala/hrm-access/internal"
	"github.com/frahmantamala/hrm-access/internal/core/common/validation"
	"github.com/frahmantamala/hrm-access/internal/permission"
)

type CreateAccountDTO struct {
	Username         string          `json:"username"`
	Password         string          `json:"password"`
	FullName         string          `json:"full_name"`
	Role             string          `json:"role"`
	Permissions      *permission.Set `json:"permissions,omitempty"`
	DepartmentAccess *string         `json:"department_access,omitempty"`
	IsActive         *bool           `json:"is_active,omitempty"`
}

func (d *CreateAccountDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	validation.Username(v, d.Username)
	validation.Password(v, "password", d.Password)
	validation.FullName(v, d.FullName)
	v.Field("role", d.Role).Custom(validRole)
	return v.Validate()
}

type UpdateAccountDTO struct {
	ID               int64           `json:"-"`
	FullName         string          `json:"full_name"`
	Role             string          `json:"role"`
	Permissions      *permission.Set `json:"permissions,omitempty"`
	DepartmentAccess *string         `json:"department_access,omitempty"`
	IsActive         *bool           `json:"is_active,omitempty"`
}

func (d *UpdateAccountDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	validation.FullName(v, d.FullName)
	v.Field("role", d.Role).Custom(validRole)
	return v.Validate()
}

type ResetPasswordDTO struct {
	NewPassword string `json:"new_password"`
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type AccountsResponse struct {
	Accounts []*Account `json:"accounts"`
}

// EditState is the server view of an account edit: the stored values plus
// which controls the editing session must keep disabled.
type EditState struct {
	Account          *Account `json:"account"`
	IsCustom         bool     `json:"is_custom"`
	DisabledControls []string `json:"disabled_controls"`
	ActiveLocked     bool     `json:"active_locked"`
}

func validRole(value interface{}) *internal.AppError {
	s, _ := value.(string)
	if _, err := permission.ParseRole(s); err != nil {
		return internal.NewValidationFieldError("role", err.Error(), internal.ErrCodeInvalidRole)
	}
	return nil
}
