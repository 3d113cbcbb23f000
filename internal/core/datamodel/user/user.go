package user

import "time"

// User is the persisted account row. The nine can_* columns hold the
// permission set; role carries the label including custom.
type User struct {
	ID                    int64      `gorm:"primaryKey"`
	Username              string     `gorm:"column:username;uniqueIndex;not null"`
	PasswordHash          string     `gorm:"column:password_hash;not null"`
	FullName              string     `gorm:"column:full_name;not null"`
	Role                  string     `gorm:"column:role;not null"`
	DepartmentAccess      *string    `gorm:"column:department_access"`
	CanViewEmployees      bool       `gorm:"column:can_view_employees"`
	CanAddEmployees       bool       `gorm:"column:can_add_employees"`
	CanEditEmployees      bool       `gorm:"column:can_edit_employees"`
	CanDeleteEmployees    bool       `gorm:"column:can_delete_employees"`
	CanManageUsers        bool       `gorm:"column:can_manage_users"`
	CanViewAllDepartments bool       `gorm:"column:can_view_all_departments"`
	CanExportData         bool       `gorm:"column:can_export_data"`
	CanViewReports        bool       `gorm:"column:can_view_reports"`
	CanManageSettings     bool       `gorm:"column:can_manage_settings"`
	IsActive              bool       `gorm:"column:is_active"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	LastLogin             *time.Time `gorm:"column:last_login"`
}

func (User) TableName() string {
	return "users"
}
