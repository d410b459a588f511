//go:build integration

package consumer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/altitude/internal/domain"
	"example.com/altitude/internal/events"
	"example.com/altitude/internal/outbox"
	"example.com/altitude/internal/persistence/postgres"
	"example.com/altitude/internal/testsupport"
)

func TestLedgerEventsReachAuditLog(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	pool := testsupport.StartPostgres(ctx, t)
	broker := testsupport.StartKafka(ctx, t)

	conn, err := kafka.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{
		Topic:             testTopic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))

	registry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.schemaregistry.v1+json")
		_, _ = w.Write([]byte(`{"id":11}`))
	}))
	defer registry.Close()

	cfg := domain.DefaultLedgerConfig()
	partitioner, err := domain.NewPartitioner(domain.DefaultDayBoundary, time.UTC)
	require.NoError(t, err)
	now := time.Date(2025, time.October, 27, 9, 0, 0, 0, time.UTC)
	service := domain.NewService(
		postgres.NewRepository(pool, cfg, postgres.WithOutbox(testTopic)),
		partitioner, cfg,
		domain.WithClock(func() time.Time { return now }),
	)

	_, err = service.LogActivity(ctx, domain.LogActivityInput{Kind: "work", Delta: 3, Slot: "8:30"})
	require.NoError(t, err)
	bonus, err := service.ApplyBonus(ctx, domain.ApplyBonusInput{Amount: 10, Goals: map[string]bool{"screen_time": true}})
	require.NoError(t, err)
	require.True(t, bonus.Applied)

	producer := outbox.NewKafkaProducer([]string{broker})
	defer producer.Close()

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()

	dispatcher := outbox.NewDispatcher(pool, producer, outbox.NewSchemaRegistryClient(registry.URL), 50*time.Millisecond, 10, nil)
	go dispatcher.Start(runCtx)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{broker},
		GroupID:     "altitude-audit-integration",
		Topic:       testTopic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	defer reader.Close()

	proc := NewProcessor(reader, NewAuditHandler(pool))
	go func() {
		_ = proc.Run(runCtx)
	}()

	// day_opened, entry_appended (work), bonus_granted, entry_appended (bonus),
	// entry_appended (bonus_screen_time)
	require.Eventually(t, func() bool {
		var count int
		if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_event_log`).Scan(&count); err != nil {
			return false
		}
		return count == 5
	}, 90*time.Second, 500*time.Millisecond)

	stopRun()
	dispatcher.Wait()

	counts := map[string]int{}
	rows, err := pool.Query(ctx, `SELECT event_type, schema_id, schema_subject FROM ledger_event_log`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var (
			eventType, subject string
			schemaID           int
		)
		require.NoError(t, rows.Scan(&eventType, &schemaID, &subject))
		require.Equal(t, 11, schemaID)
		require.Contains(t, subject, testTopic+"-")
		counts[eventType]++
	}
	require.NoError(t, rows.Err())
	require.Equal(t, map[string]int{
		events.TypeDayOpened:     1,
		events.TypeEntryAppended: 3,
		events.TypeBonusGranted:  1,
	}, counts)

	var unpublished int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&unpublished))
	require.Zero(t, unpublished)
}
