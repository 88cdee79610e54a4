package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/rbac-engine/internal/core/events"
)

type Writer interface {
	Insert(ctx context.Context, rec Record) error
}

// EventHandler writes every RBAC audit event it receives to a Writer.
type EventHandler struct {
	writer Writer
	logger *slog.Logger
}

func NewEventHandler(writer Writer, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		writer: writer,
		logger: logger,
	}
}

func (h *EventHandler) HandleAuditEvent(ctx context.Context, event events.Event) error {
	auditEvent, ok := event.(*events.AuditEvent)
	if !ok {
		h.logger.Error("invalid event type for audit handler", "event_type", event.EventType())
		return fmt.Errorf("expected AuditEvent, got %T", event)
	}

	if err := h.writer.Insert(ctx, RecordFromEvent(auditEvent)); err != nil {
		h.logger.Error("failed to persist audit event",
			"error", err,
			"event_id", auditEvent.EventID(),
			"event_type", auditEvent.EventType(),
			"target_id", auditEvent.TargetID)
		return err
	}

	h.logger.Debug("audit event persisted",
		"event_id", auditEvent.EventID(),
		"event_type", auditEvent.EventType(),
		"actor_id", auditEvent.ActorID)
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	for _, eventType := range events.AuditEventTypes {
		eventBus.Subscribe(eventType, h.HandleAuditEvent)
	}

	h.logger.Info("audit event handlers registered", "handlers", events.AuditEventTypes)
}
