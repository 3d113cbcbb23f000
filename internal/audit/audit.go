package audit

import (
	"time"

	auditDatamodel "github.com/frahmantamala/hrm-access/internal/core/datamodel/audit"
)

const (
	ActionCreate      = "CREATE"
	ActionUpdate      = "UPDATE"
	ActionDelete      = "DELETE"
	ActionLogin       = "LOGIN"
	ActionLoginFailed = "LOGIN_FAILED"
	ActionLogout      = "LOGOUT"
	ActionBackup      = "BACKUP"

	EntityUser     = "USER"
	EntityDatabase = "DATABASE"
	EntitySystem   = "SYSTEM"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

type Entry struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"user_id"`
	Username   string    `json:"username"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   *string   `json:"entity_id"`
	OldValue   *string   `json:"old_value"`
	NewValue   *string   `json:"new_value"`
	Details    *string   `json:"details"`
	CreatedAt  time.Time `json:"created_at"`
}

// Filter narrows a listing. Zero values mean no constraint; From and To are
// whole days, both inclusive.
type Filter struct {
	Username   string
	Action     string
	EntityType string
	From       *time.Time
	To         *time.Time
	Limit      uint64
	Offset     uint64
}

type Result struct {
	Logs       []*Entry `json:"logs"`
	TotalCount int64    `json:"total_count"`
}

type ActionCount struct {
	Action string `json:"action" db:"action"`
	Count  int64  `json:"count" db:"count"`
}

type UserCount struct {
	Username string `json:"username" db:"username"`
	Count    int64  `json:"count" db:"count"`
}

type Summary struct {
	TotalLogs       int64         `json:"total_logs"`
	TodayLogs       int64         `json:"today_logs"`
	WeekLogs        int64         `json:"week_logs"`
	ActionBreakdown []ActionCount `json:"action_breakdown"`
	ActiveUsers     []UserCount   `json:"active_users"`
}

func ToDataModel(e *Entry) *auditDatamodel.Log {
	return &auditDatamodel.Log{
		ID:         e.ID,
		UserID:     e.UserID,
		Username:   e.Username,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		OldValue:   e.OldValue,
		NewValue:   e.NewValue,
		Details:    e.Details,
		CreatedAt:  e.CreatedAt,
	}
}

func FromDataModel(l *auditDatamodel.Log) *Entry {
	return &Entry{
		ID:         l.ID,
		UserID:     l.UserID,
		Username:   l.Username,
		Action:     l.Action,
		EntityType: l.EntityType,
		EntityID:   l.EntityID,
		OldValue:   l.OldValue,
		NewValue:   l.NewValue,
		Details:    l.Details,
		CreatedAt:  l.CreatedAt,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
