package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/altitude/internal/domain"
	"example.com/altitude/internal/events"
	"example.com/altitude/internal/observability"
)

const rowColumns = `day, sleep_eat_count, work_count, thinking_count, study_count, exercise_count, game_count,
        cumulative_height, height_change, bonus_given, created_at, updated_at`

const entryColumns = `id, day, COALESCE(slot, ''), kind, delta, created_at`

var counterColumns = map[domain.Category]string{
	domain.SleepEat: "sleep_eat_count",
	domain.Work:     "work_count",
	domain.Thinking: "thinking_count",
	domain.Study:    "study_count",
	domain.Exercise: "exercise_count",
	domain.Game:     "game_count",
}

// Repository provides Postgres-backed persistence for the ledger and journal.
type Repository struct {
	pool  *pgxpool.Pool
	cfg   domain.LedgerConfig
	topic string
}

// Option configures the Repository.
type Option func(*Repository)

// WithOutbox records ledger events for topic in the outbox table inside each
// write transaction.
func WithOutbox(topic string) Option {
	return func(r *Repository) { r.topic = topic }
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, cfg domain.LedgerConfig, opts ...Option) *Repository {
	r := &Repository{pool: pool, cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithinTx runs fn inside a single database transaction.
func (r *Repository) WithinTx(ctx context.Context, fn func(domain.LedgerTx) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = fn(&ledgerTx{tx: tx, cfg: r.cfg, topic: r.topic}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	observability.RecordLedgerCommit(time.Now())
	return nil
}

type ledgerTx struct {
	tx    pgx.Tx
	cfg   domain.LedgerConfig
	topic string
}

// EnsureRow relies on the primary key of ledger_days: a racing insert for the
// same day waits for the winner and then does nothing. The seed row is read
// FOR SHARE so an in-flight write to the previous day is included.
func (t *ledgerTx) EnsureRow(ctx context.Context, day domain.Day) (bool, error) {
	const stmt = `INSERT INTO ledger_days (day, cumulative_height)
        VALUES ($1, COALESCE((SELECT cumulative_height FROM ledger_days WHERE day < $1 ORDER BY day DESC LIMIT 1 FOR SHARE), $2))
        ON CONFLICT (day) DO NOTHING
        RETURNING cumulative_height`

	var seeded int
	err := t.tx.QueryRow(ctx, stmt, string(day), t.cfg.InitialHeight).Scan(&seeded)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ensure ledger row %s: %w", day, err)
	}

	if err := t.insertOutbox(ctx, events.TypeDayOpened, string(day), string(day), events.DayOpened{
		Day:              string(day),
		CumulativeHeight: seeded,
		OccurredAt:       time.Now().UTC(),
	}); err != nil {
		return false, err
	}
	return true, nil
}

func (t *ledgerTx) RecordActivity(ctx context.Context, day domain.Day, category domain.Category, delta int) (domain.LedgerRow, error) {
	set := "height_change = height_change + $1, cumulative_height = GREATEST(cumulative_height + $1, $2), updated_at = NOW()"
	if col, ok := counterColumns[category]; ok {
		set = col + " = " + col + " + 1, " + set
	}
	query := "UPDATE ledger_days SET " + set + " WHERE day = $3 RETURNING " + rowColumns

	row, err := scanRow(t.tx.QueryRow(ctx, query, delta, t.cfg.MinHeight, string(day)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LedgerRow{}, domain.ErrDayNotOpened
	}
	if err != nil {
		return domain.LedgerRow{}, fmt.Errorf("record activity on %s: %w", day, err)
	}
	return row, nil
}

// GrantBonusIfAbsent is a single conditional update; a concurrent grant for
// the same day blocks on the row lock and then matches zero rows.
func (t *ledgerTx) GrantBonusIfAbsent(ctx context.Context, day domain.Day, amount int) (bool, error) {
	const stmt = `UPDATE ledger_days
           SET bonus_given = TRUE,
               height_change = height_change + $1,
               cumulative_height = GREATEST(cumulative_height + $1, $2),
               updated_at = NOW()
         WHERE day = $3 AND NOT bonus_given`

	tag, err := t.tx.Exec(ctx, stmt, amount, t.cfg.MinHeight, string(day))
	if err != nil {
		return false, fmt.Errorf("grant bonus on %s: %w", day, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ledger_days WHERE day = $1)`, string(day)).Scan(&exists); err != nil {
			return false, fmt.Errorf("grant bonus on %s: %w", day, err)
		}
		if !exists {
			return false, domain.ErrDayNotOpened
		}
		return false, nil
	}

	if err := t.insertOutbox(ctx, events.TypeBonusGranted, string(day), string(day), events.BonusGranted{
		Day:        string(day),
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		return false, err
	}
	return true, nil
}

func (t *ledgerTx) Append(ctx context.Context, entry domain.JournalEntry) (int64, error) {
	const stmt = `INSERT INTO journal (day, slot, kind, delta) VALUES ($1, NULLIF($2, ''), $3, $4)
        RETURNING id, created_at`

	var (
		id        int64
		createdAt time.Time
	)
	if err := t.tx.QueryRow(ctx, stmt, string(entry.Day), entry.Slot, entry.Kind, entry.Delta).Scan(&id, &createdAt); err != nil {
		return 0, fmt.Errorf("append journal entry: %w", err)
	}

	if err := t.insertOutbox(ctx, events.TypeEntryAppended, fmt.Sprintf("%d", id), string(entry.Day), events.EntryAppended{
		EntryID:    id,
		Day:        string(entry.Day),
		Slot:       entry.Slot,
		Kind:       entry.Kind,
		Delta:      entry.Delta,
		OccurredAt: createdAt,
	}); err != nil {
		return 0, err
	}
	return id, nil
}

func (t *ledgerTx) Row(ctx context.Context, day domain.Day) (domain.LedgerRow, error) {
	row, err := scanRow(t.tx.QueryRow(ctx, `SELECT `+rowColumns+` FROM ledger_days WHERE day = $1`, string(day)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LedgerRow{}, domain.ErrDayNotOpened
	}
	if err != nil {
		return domain.LedgerRow{}, fmt.Errorf("read ledger row %s: %w", day, err)
	}
	return row, nil
}

func (t *ledgerTx) insertOutbox(ctx context.Context, eventType, aggregateID, day string, payload interface{}) error {
	if t.topic == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = t.tx.Exec(ctx, stmt,
		meta.AggregateType,
		aggregateID,
		eventType,
		t.topic,
		t.topic+"-"+meta.SubjectSuffix,
		day,
		body,
		fmt.Sprintf("%s:%s", eventType, aggregateID),
	)
	if err != nil {
		return fmt.Errorf("insert outbox %s: %w", eventType, err)
	}
	return nil
}

// GetRow retrieves the ledger row for day, or nil when it does not exist.
func (r *Repository) GetRow(ctx context.Context, day domain.Day) (*domain.LedgerRow, error) {
	row, err := scanRow(r.pool.QueryRow(ctx, `SELECT `+rowColumns+` FROM ledger_days WHERE day = $1`, string(day)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListRows returns rows after the given day in ascending order.
func (r *Repository) ListRows(ctx context.Context, after domain.Day, limit int) ([]domain.LedgerRow, error) {
	args := []interface{}{string(after)}
	query := `SELECT ` + rowColumns + ` FROM ledger_days WHERE day > $1 ORDER BY day ASC`
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.queryRows(ctx, query, args...)
}

// RecentRows returns the newest n rows, oldest first.
func (r *Repository) RecentRows(ctx context.Context, n int) ([]domain.LedgerRow, error) {
	query := `SELECT * FROM (SELECT ` + rowColumns + ` FROM ledger_days ORDER BY day DESC LIMIT $1) recent ORDER BY day ASC`
	return r.queryRows(ctx, query, n)
}

func (r *Repository) queryRows(ctx context.Context, query string, args ...interface{}) ([]domain.LedgerRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.LedgerRow, 0)
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// SlotsAnswered returns the distinct non-null slots journaled on day.
func (r *Repository) SlotsAnswered(ctx context.Context, day domain.Day) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT slot FROM journal WHERE day = $1 AND slot IS NOT NULL ORDER BY slot`, string(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]string, 0)
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// EntriesForDay returns the journal of day in insertion order.
func (r *Repository) EntriesForDay(ctx context.Context, day domain.Day) ([]domain.JournalEntry, error) {
	return r.queryEntries(ctx, `SELECT `+entryColumns+` FROM journal WHERE day = $1 ORDER BY id`, string(day))
}

// EntriesSince returns journal entries on or after day in insertion order.
func (r *Repository) EntriesSince(ctx context.Context, day domain.Day) ([]domain.JournalEntry, error) {
	return r.queryEntries(ctx, `SELECT `+entryColumns+` FROM journal WHERE day >= $1 ORDER BY id`, string(day))
}

func (r *Repository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]domain.JournalEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.JournalEntry, 0)
	for rows.Next() {
		var (
			entry domain.JournalEntry
			day   string
		)
		if err := rows.Scan(&entry.ID, &day, &entry.Slot, &entry.Kind, &entry.Delta, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Day = domain.Day(day)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CountTaggedDays counts distinct days per kind since the given day.
func (r *Repository) CountTaggedDays(ctx context.Context, kinds []string, since domain.Day) (map[string]int, error) {
	out := make(map[string]int, len(kinds))
	if len(kinds) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT kind, COUNT(DISTINCT day) FROM journal WHERE day >= $1 AND kind = ANY($2) GROUP BY kind`,
		string(since), kinds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		out[kind] = count
	}
	return out, rows.Err()
}

func scanRow(row pgx.Row) (domain.LedgerRow, error) {
	var (
		out domain.LedgerRow
		day string
	)
	err := row.Scan(&day,
		&out.Counts.SleepEat, &out.Counts.Work, &out.Counts.Thinking,
		&out.Counts.Study, &out.Counts.Exercise, &out.Counts.Game,
		&out.CumulativeHeight, &out.HeightChange, &out.BonusGiven,
		&out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return domain.LedgerRow{}, err
	}
	out.Day = domain.Day(day)
	return out, nil
}

// EventMetadata describes how to route an outbox event. The schema subject
// is the topic name joined with SubjectSuffix.
type EventMetadata struct {
	AggregateType string
	SubjectSuffix string
}

var eventCatalog = map[string]EventMetadata{
	events.TypeDayOpened:     {AggregateType: "ledger_day", SubjectSuffix: "day_opened"},
	events.TypeEntryAppended: {AggregateType: "journal_entry", SubjectSuffix: "entry_appended"},
	events.TypeBonusGranted:  {AggregateType: "ledger_day", SubjectSuffix: "bonus_granted"},
}
