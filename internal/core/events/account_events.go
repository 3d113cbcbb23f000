package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeAccountCreated       = "account.created"
	EventTypeAccountUpdated       = "account.updated"
	EventTypeAccountDeleted       = "account.deleted"
	EventTypeAccountPasswordReset = "account.password_reset"
	EventTypePasswordChanged      = "auth.password_changed"
	EventTypeLoginSucceeded       = "auth.login_succeeded"
	EventTypeLoginFailed          = "auth.login_failed"
	EventTypeLoggedOut            = "auth.logged_out"
	EventTypeBackupCreated        = "backup.created"
)

// AuditableEvent is implemented by every event the audit trail records.
type AuditableEvent interface {
	Event
	Actor() (userID *int64, username string)
	Subject() (entityType string, entityID string)
}

// ActivityEvent is the single concrete event type for account, auth and
// backup activity. OldValue and NewValue hold JSON snapshots when relevant.
type ActivityEvent struct {
	BaseEvent
	ActorID       *int64 `json:"actor_id,omitempty"`
	ActorUsername string `json:"actor_username"`
	EntityType    string `json:"entity_type"`
	EntityID      string `json:"entity_id,omitempty"`
	OldValue      string `json:"old_value,omitempty"`
	NewValue      string `json:"new_value,omitempty"`
	Details       string `json:"details,omitempty"`
}

func (e *ActivityEvent) Actor() (*int64, string) {
	return e.ActorID, e.ActorUsername
}

func (e *ActivityEvent) Subject() (string, string) {
	return e.EntityType, e.EntityID
}

func NewActivityEvent(eventType string, actorID *int64, actorUsername, entityType, entityID string) *ActivityEvent {
	return &ActivityEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"actor_username": actorUsername,
				"entity_type":    entityType,
				"entity_id":      entityID,
			},
		},
		ActorID:       actorID,
		ActorUsername: actorUsername,
		EntityType:    entityType,
		EntityID:      entityID,
	}
}

// WithValues attaches before/after snapshots.
func (e *ActivityEvent) WithValues(oldValue, newValue string) *ActivityEvent {
	e.OldValue = oldValue
	e.NewValue = newValue
	return e
}

func (e *ActivityEvent) WithDetails(details string) *ActivityEvent {
	e.Details = details
	e.Data["details"] = details
	return e
}

// AuditedEventTypes lists the event types the audit subscriber listens to.
var AuditedEventTypes = []string{
	EventTypeAccountCreated,
	EventTypeAccountUpdated,
	EventTypeAccountDeleted,
	EventTypeAccountPasswordReset,
	EventTypePasswordChanged,
	EventTypeLoginSucceeded,
	EventTypeLoginFailed,
	EventTypeLoggedOut,
	EventTypeBackupCreated,
}
