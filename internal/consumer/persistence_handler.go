package consumer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditHandler appends consumed ledger events to ledger_event_log.
// Redelivered records are ignored on (topic, partition, offset).
type AuditHandler struct {
	pool *pgxpool.Pool
}

// NewAuditHandler constructs a handler backed by pool.
func NewAuditHandler(pool *pgxpool.Pool) *AuditHandler {
	return &AuditHandler{pool: pool}
}

// Handle stores msg.
func (h *AuditHandler) Handle(ctx context.Context, msg Message) error {
	const stmt = `INSERT INTO ledger_event_log (event_type, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (topic, partition, record_offset) DO NOTHING`

	if _, err := h.pool.Exec(ctx, stmt,
		msg.EventType, msg.SchemaID, msg.SchemaSubject,
		msg.Topic, msg.Partition, msg.Offset,
		msg.Payload, msg.Timestamp,
	); err != nil {
		return fmt.Errorf("audit %s at %s/%d/%d: %w", msg.EventType, msg.Topic, msg.Partition, msg.Offset, err)
	}
	return nil
}
