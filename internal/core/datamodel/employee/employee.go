package employee

import "time"

// Employee is the minimal employee row the department directory and the
// seeder rely on. Employee CRUD lives outside this service.
type Employee struct {
	ID         int64     `gorm:"primaryKey"`
	EmployeeID string    `gorm:"column:employee_id;uniqueIndex;not null"`
	FullName   string    `gorm:"column:full_name;not null"`
	Department string    `gorm:"column:department"`
	Position   string    `gorm:"column:position"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Employee) TableName() string {
	return "employees"
}
