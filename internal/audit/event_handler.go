package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/hrm-access/internal/core/events"
)

type recorder interface {
	Record(ctx context.Context, entry *Entry) error
}

type EventHandler struct {
	service recorder
	logger  *slog.Logger
}

func NewEventHandler(service recorder, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		logger:  logger,
	}
}

var actions = map[string]struct{ action, entity string }{
	events.EventTypeAccountCreated:       {ActionCreate, EntityUser},
	events.EventTypeAccountUpdated:       {ActionUpdate, EntityUser},
	events.EventTypeAccountDeleted:       {ActionDelete, EntityUser},
	events.EventTypeAccountPasswordReset: {ActionUpdate, EntityUser},
	events.EventTypePasswordChanged:      {ActionUpdate, EntityUser},
	events.EventTypeLoginSucceeded:       {ActionLogin, EntitySystem},
	events.EventTypeLoginFailed:          {ActionLoginFailed, EntitySystem},
	events.EventTypeLoggedOut:            {ActionLogout, EntitySystem},
	events.EventTypeBackupCreated:        {ActionBackup, EntityDatabase},
}

// EntryFor translates an activity event into an audit entry.
func EntryFor(event events.AuditableEvent) (*Entry, error) {
	mapped, ok := actions[event.EventType()]
	if !ok {
		return nil, fmt.Errorf("no audit action for event type %s", event.EventType())
	}

	userID, username := event.Actor()
	if username == "" {
		username = "system"
	}
	_, entityID := event.Subject()

	entry := &Entry{
		UserID:     userID,
		Username:   username,
		Action:     mapped.action,
		EntityType: mapped.entity,
		EntityID:   optional(entityID),
		CreatedAt:  event.OccurredAt(),
	}
	if activity, ok := event.(*events.ActivityEvent); ok {
		entry.OldValue = optional(activity.OldValue)
		entry.NewValue = optional(activity.NewValue)
		entry.Details = optional(activity.Details)
	}
	return entry, nil
}

func (h *EventHandler) HandleActivity(ctx context.Context, event events.Event) error {
	auditable, ok := event.(events.AuditableEvent)
	if !ok {
		h.logger.Error("invalid event type for audit handler", "event_type", event.EventType())
		return fmt.Errorf("expected AuditableEvent, got %T", event)
	}

	entry, err := EntryFor(auditable)
	if err != nil {
		return err
	}

	if err := h.service.Record(ctx, entry); err != nil {
		h.logger.Error("failed to record audit entry",
			"error", err,
			"event_type", event.EventType(),
			"event_id", event.EventID())
		return fmt.Errorf("audit record failed for event %s: %w", event.EventID(), err)
	}

	h.logger.Debug("audit entry recorded",
		"action", entry.Action,
		"username", entry.Username,
		"event_id", event.EventID())
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.SubscribeAll(events.AuditedEventTypes, h.HandleActivity)

	h.logger.Info("audit event handlers registered", "handlers", events.AuditedEventTypes)
}
