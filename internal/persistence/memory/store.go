// Package memory provides an in-process ledger store for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/altitude/internal/domain"
	"example.com/altitude/internal/observability"
)

type state struct {
	rows    map[domain.Day]domain.LedgerRow
	journal []domain.JournalEntry
	nextID  int64
}

func (s state) clone() state {
	rows := make(map[domain.Day]domain.LedgerRow, len(s.rows))
	for day, row := range s.rows {
		rows[day] = row
	}
	journal := make([]domain.JournalEntry, len(s.journal))
	copy(journal, s.journal)
	return state{rows: rows, journal: journal, nextID: s.nextID}
}

// Store keeps the ledger in memory. Transactions are serialised by a single
// lock and work on a copy that replaces the live state only on success.
type Store struct {
	mu    sync.RWMutex
	cfg   domain.LedgerConfig
	state state
	now   func() time.Time
}

// NewStore constructs an empty Store.
func NewStore(cfg domain.LedgerConfig) *Store {
	return &Store{
		cfg:   cfg,
		state: state{rows: make(map[domain.Day]domain.LedgerRow), nextID: 1},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithinTx implements domain.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(domain.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&tx{cfg: s.cfg, st: &work, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	observability.RecordLedgerCommit(s.now())
	return nil
}

type tx struct {
	cfg domain.LedgerConfig
	st  *state
	now func() time.Time
}

func (t *tx) EnsureRow(ctx context.Context, day domain.Day) (bool, error) {
	if _, ok := t.st.rows[day]; ok {
		return false, nil
	}

	seed := t.cfg.InitialHeight
	var latest domain.Day
	for d, row := range t.st.rows {
		if d < day && d > latest {
			latest = d
			seed = row.CumulativeHeight
		}
	}

	now := t.now()
	t.st.rows[day] = domain.LedgerRow{Day: day, CumulativeHeight: seed, CreatedAt: now, UpdatedAt: now}
	return true, nil
}

func (t *tx) RecordActivity(ctx context.Context, day domain.Day, category domain.Category, delta int) (domain.LedgerRow, error) {
	row, ok := t.st.rows[day]
	if !ok {
		return domain.LedgerRow{}, domain.ErrDayNotOpened
	}
	row.Counts.Inc(category)
	row.HeightChange += delta
	row.CumulativeHeight = t.cfg.Clamp(row.CumulativeHeight + delta)
	row.UpdatedAt = t.now()
	t.st.rows[day] = row
	return row, nil
}

func (t *tx) GrantBonusIfAbsent(ctx context.Context, day domain.Day, amount int) (bool, error) {
	row, ok := t.st.rows[day]
	if !ok {
		return false, domain.ErrDayNotOpened
	}
	if row.BonusGiven {
		return false, nil
	}
	row.BonusGiven = true
	if amount != 0 {
		row.HeightChange += amount
		row.CumulativeHeight = t.cfg.Clamp(row.CumulativeHeight + amount)
	}
	row.UpdatedAt = t.now()
	t.st.rows[day] = row
	return true, nil
}

func (t *tx) Append(ctx context.Context, entry domain.JournalEntry) (int64, error) {
	entry.ID = t.st.nextID
	entry.CreatedAt = t.now()
	t.st.nextID++
	t.st.journal = append(t.st.journal, entry)
	return entry.ID, nil
}

func (t *tx) Row(ctx context.Context, day domain.Day) (domain.LedgerRow, error) {
	row, ok := t.st.rows[day]
	if !ok {
		return domain.LedgerRow{}, domain.ErrDayNotOpened
	}
	return row, nil
}

// GetRow implements domain.Reader.
func (s *Store) GetRow(ctx context.Context, day domain.Day) (*domain.LedgerRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.state.rows[day]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *Store) sortedRows() []domain.LedgerRow {
	rows := make([]domain.LedgerRow, 0, len(s.state.rows))
	for _, row := range s.state.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Day < rows[j].Day })
	return rows
}

// ListRows implements domain.Reader.
func (s *Store) ListRows(ctx context.Context, after domain.Day, limit int) ([]domain.LedgerRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.LedgerRow, 0)
	for _, row := range s.sortedRows() {
		if row.Day <= after {
			continue
		}
		out = append(out, row)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// RecentRows implements domain.Reader.
func (s *Store) RecentRows(ctx context.Context, n int) ([]domain.LedgerRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.sortedRows()
	if n < len(rows) {
		rows = rows[len(rows)-n:]
	}
	return rows, nil
}

// SlotsAnswered implements domain.Reader.
func (s *Store) SlotsAnswered(ctx context.Context, day domain.Day) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, entry := range s.state.journal {
		if entry.Day != day || entry.Slot == "" {
			continue
		}
		if _, dup := seen[entry.Slot]; dup {
			continue
		}
		seen[entry.Slot] = struct{}{}
		out = append(out, entry.Slot)
	}
	sort.Strings(out)
	return out, nil
}

// EntriesForDay implements domain.Reader.
func (s *Store) EntriesForDay(ctx context.Context, day domain.Day) ([]domain.JournalEntry, error) {
	return s.filterJournal(func(e domain.JournalEntry) bool { return e.Day == day }), nil
}

// EntriesSince implements domain.Reader.
func (s *Store) EntriesSince(ctx context.Context, day domain.Day) ([]domain.JournalEntry, error) {
	return s.filterJournal(func(e domain.JournalEntry) bool { return e.Day >= day }), nil
}

func (s *Store) filterJournal(keep func(domain.JournalEntry) bool) []domain.JournalEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.JournalEntry, 0)
	for _, entry := range s.state.journal {
		if keep(entry) {
			out = append(out, entry)
		}
	}
	return out
}

// CountTaggedDays implements domain.Reader.
func (s *Store) CountTaggedDays(ctx context.Context, kinds []string, since domain.Day) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]map[domain.Day]struct{}, len(kinds))
	for _, kind := range kinds {
		wanted[kind] = make(map[domain.Day]struct{})
	}
	for _, entry := range s.state.journal {
		days, ok := wanted[entry.Kind]
		if !ok || entry.Day < since {
			continue
		}
		days[entry.Day] = struct{}{}
	}

	out := make(map[string]int, len(kinds))
	for kind, days := range wanted {
		out[kind] = len(days)
	}
	return out, nil
}
