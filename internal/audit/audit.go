// Package audit persists the RBAC audit trail published on the event bus.
package audit

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/frahmantamala/rbac-engine/internal/core/events"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

type Record struct {
	ID         string    `db:"id" json:"id"`
	Action     string    `db:"action" json:"action"`
	ActorID    string    `db:"actor_id" json:"actor_id"`
	TenantID   string    `db:"tenant_id" json:"tenant_id,omitempty"`
	TargetType string    `db:"target_type" json:"target_type"`
	TargetID   string    `db:"target_id" json:"target_id"`
	Reason     string    `db:"reason" json:"reason,omitempty"`
	Metadata   Metadata  `db:"metadata" json:"metadata,omitempty"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	TenantID   string
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Since      time.Time
	Limit      int
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}

// Metadata is stored as a JSON object (JSONB on postgres, TEXT elsewhere).
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *Metadata) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("audit: cannot scan %T into metadata", src)
	}
	out := Metadata{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("audit: decode metadata: %w", err)
		}
	}
	*m = out
	return nil
}

func RecordFromEvent(e *events.AuditEvent) Record {
	return Record{
		ID:         e.EventID(),
		Action:     e.EventType(),
		ActorID:    e.ActorID,
		TenantID:   e.TenantID,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		Reason:     e.Reason,
		Metadata:   Metadata(e.Metadata),
		OccurredAt: e.OccurredAt().UTC(),
	}
}
