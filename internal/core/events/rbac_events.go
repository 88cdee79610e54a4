package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeRoleCreated      = "role.created"
	EventTypeRoleUpdated      = "role.updated"
	EventTypeRoleDeleted      = "role.deleted"
	EventTypeRoleActivated    = "role.activated"
	EventTypeRoleDeactivated  = "role.deactivated"
	EventTypeUserRoleAssigned = "user_role.assigned"
	EventTypeUserRoleRevoked  = "user_role.revoked"
)

const (
	TargetRole     = "role"
	TargetUserRole = "user_role"
)

// AuditEventTypes lists every event the RBAC service emits.
var AuditEventTypes = []string{
	EventTypeRoleCreated,
	EventTypeRoleUpdated,
	EventTypeRoleDeleted,
	EventTypeRoleActivated,
	EventTypeRoleDeactivated,
	EventTypeUserRoleAssigned,
	EventTypeUserRoleRevoked,
}

// AuditEvent records who changed which role or assignment, and why.
type AuditEvent struct {
	BaseEvent
	ActorID    string            `json:"actor_id"`
	TenantID   string            `json:"tenant_id,omitempty"`
	TargetType string            `json:"target_type"`
	TargetID   string            `json:"target_id"`
	Reason     string            `json:"reason,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func NewAuditEvent(action, actorID, tenantID, targetType, targetID, reason string, metadata map[string]string, at time.Time) *AuditEvent {
	if metadata == nil {
		metadata = map[string]string{}
	}
	return &AuditEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      action,
			Timestamp: at,
			Data: map[string]interface{}{
				"actor_id":    actorID,
				"tenant_id":   tenantID,
				"target_type": targetType,
				"target_id":   targetID,
				"reason":      reason,
				"metadata":    metadata,
			},
		},
		ActorID:    actorID,
		TenantID:   tenantID,
		TargetType: targetType,
		TargetID:   targetID,
		Reason:     reason,
		Metadata:   metadata,
	}
}
