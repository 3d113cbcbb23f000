package audit

import "time"

type Log struct {
	ID         int64     `gorm:"primaryKey" db:"id"`
	UserID     *int64    `gorm:"column:user_id" db:"user_id"`
	Username   string    `gorm:"column:username;not null" db:"username"`
	Action     string    `gorm:"column:action;not null" db:"action"`
	EntityType string    `gorm:"column:entity_type;not null" db:"entity_type"`
	EntityID   *string   `gorm:"column:entity_id" db:"entity_id"`
	OldValue   *string   `gorm:"column:old_value" db:"old_value"`
	NewValue   *string   `gorm:"column:new_value" db:"new_value"`
	Details    *string   `gorm:"column:details" db:"details"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" db:"created_at"`
}

func (Log) TableName() string {
	return "audit_logs"
}
