package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

const insertRecordQuery = `
INSERT INTO audit_events (id, action, actor_id, tenant_id, target_type, target_id, reason, metadata, occurred_at)
VALUES (:id, :action, :actor_id, :tenant_id, :target_type, :target_id, :reason, :metadata, :occurred_at)`

// Insert ignores a record whose id is already stored, so redelivered events are harmless.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	query := insertRecordQuery + ` ON CONFLICT (id) DO NOTHING`
	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, f Filter) ([]Record, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		conds = append(conds, cond)
		args = append(args, arg)
	}
	if f.TenantID != "" {
		add("tenant_id = ?", f.TenantID)
	}
	if f.ActorID != "" {
		add("actor_id = ?", f.ActorID)
	}
	if f.Action != "" {
		add("action = ?", f.Action)
	}
	if f.TargetType != "" {
		add("target_type = ?", f.TargetType)
	}
	if f.TargetID != "" {
		add("target_id = ?", f.TargetID)
	}
	if !f.Since.IsZero() {
		add("occurred_at >= ?", f.Since.UTC())
	}

	var b strings.Builder
	b.WriteString("SELECT id, action, actor_id, tenant_id, target_type, target_id, reason, metadata, occurred_at FROM audit_events")
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY occurred_at DESC, id ASC LIMIT ?")
	args = append(args, f.limit())

	records := []Record{}
	if err := s.db.SelectContext(ctx, &records, s.db.Rebind(b.String()), args...); err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	return records, nil
}
