//go:build integration

package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/altitude/internal/events"
	"example.com/altitude/internal/testsupport"
)

func TestAuditHandlerStoresEventOnce(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	handler := NewAuditHandler(pool)

	payload := json.RawMessage(`{"day":"2025-10-27","cumulative_height":12,"occurred_at":"2025-10-27T06:00:00Z"}`)
	msg := Message{
		EventType:     events.TypeDayOpened,
		SchemaID:      42,
		SchemaSubject: testTopic + "-day_opened",
		Topic:         testTopic,
		Partition:     0,
		Offset:        5,
		Day:           "2025-10-27",
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
	}

	require.NoError(t, handler.Handle(ctx, msg))
	require.NoError(t, handler.Handle(ctx, msg), "redelivery must be a no-op")

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_event_log`).Scan(&count))
	require.Equal(t, 1, count)

	var stored []byte
	require.NoError(t, pool.QueryRow(ctx, `SELECT payload FROM ledger_event_log LIMIT 1`).Scan(&stored))
	require.JSONEq(t, string(payload), string(stored))
}
