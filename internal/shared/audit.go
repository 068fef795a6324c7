package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog is one row in the audit trail. ActorID may be empty for actions
// taken by the system itself.
type AuditLog struct {
	ActorID  string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger appends to the audit_logs table.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger constructs an AuditLogger over pool.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists one audit entry. Action, Entity and EntityID are
// mandatory; At defaults to the database clock.
func (l *AuditLogger) Record(ctx context.Context, entry AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return errors.New("audit log requires action, entity and entity id")
	}

	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	var occurredAt any
	if !entry.At.IsZero() {
		occurredAt = entry.At.UTC()
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
		VALUES (NULLIF($1, ''), $2, $3, $4, $5, COALESCE($6, NOW()))`,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID, meta, occurredAt)
	return err
}
