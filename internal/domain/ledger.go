package domain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrDayNotOpened is returned when a ledger mutation targets a day whose row
// was never created with EnsureRow.
var ErrDayNotOpened = errors.New("ledger row for day does not exist")

// MaxDelta bounds the magnitude of a single activity delta or bonus amount.
const MaxDelta = 1_000_000

var goalNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// LedgerConfig carries the scoring constants. It is immutable once handed to
// a store or service.
type LedgerConfig struct {
	InitialHeight   int
	MinHeight       int
	BonusGoals      []string
	StatsWindowDays int
}

// DefaultLedgerConfig mirrors the values the tracker has always shipped with.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		InitialHeight:   0,
		MinHeight:       0,
		BonusGoals:      []string{"screen_time", "sleep_schedule"},
		StatsWindowDays: 7,
	}
}

// Validate rejects configurations that would break the floor invariant.
func (c LedgerConfig) Validate() error {
	if c.InitialHeight < c.MinHeight {
		return fmt.Errorf("initial height %d is below min height %d", c.InitialHeight, c.MinHeight)
	}
	if c.StatsWindowDays <= 0 {
		return fmt.Errorf("stats window must be positive, got %d", c.StatsWindowDays)
	}
	seen := make(map[string]struct{}, len(c.BonusGoals))
	for _, goal := range c.BonusGoals {
		if !goalNamePattern.MatchString(goal) {
			return fmt.Errorf("invalid bonus goal name %q", goal)
		}
		if _, dup := seen[goal]; dup {
			return fmt.Errorf("duplicate bonus goal %q", goal)
		}
		seen[goal] = struct{}{}
	}
	return nil
}

// Clamp applies the altitude floor.
func (c LedgerConfig) Clamp(height int) int {
	if height < c.MinHeight {
		return c.MinHeight
	}
	return height
}

// HasGoal reports whether goal is configured.
func (c LedgerConfig) HasGoal(goal string) bool {
	for _, g := range c.BonusGoals {
		if g == goal {
			return true
		}
	}
	return false
}

// LedgerRow is the per-day aggregate.
type LedgerRow struct {
	Day              Day            `json:"day"`
	Counts           CategoryCounts `json:"counts"`
	CumulativeHeight int            `json:"cumulative_height"`
	HeightChange     int            `json:"height_change"`
	BonusGiven       bool           `json:"bonus_given"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// JournalEntry is one immutable activity, bonus or goal event. An empty Slot
// means the entry was not tied to a slot.
type JournalEntry struct {
	ID        int64     `json:"id"`
	Day       Day       `json:"day"`
	Slot      string    `json:"slot,omitempty"`
	Kind      string    `json:"kind"`
	Delta     int       `json:"delta"`
	CreatedAt time.Time `json:"created_at"`
}

// LedgerTx is the set of mutations available inside one atomic unit of work.
type LedgerTx interface {
	// EnsureRow creates the row for day if it is missing, seeding its
	// cumulative height from the latest earlier day or InitialHeight. Two
	// concurrent callers produce exactly one row.
	EnsureRow(ctx context.Context, day Day) (created bool, err error)
	// RecordActivity bumps the category counter (if known) and applies delta
	// to both heights, clamping the cumulative one.
	RecordActivity(ctx context.Context, day Day, category Category, delta int) (LedgerRow, error)
	// GrantBonusIfAbsent flips bonus_given and applies amount only if the
	// flag was false. It reports whether this call won.
	GrantBonusIfAbsent(ctx context.Context, day Day, amount int) (applied bool, err error)
	// Append inserts a journal entry and returns its id.
	Append(ctx context.Context, entry JournalEntry) (int64, error)
	// Row reads the row for day as seen by the transaction.
	Row(ctx context.Context, day Day) (LedgerRow, error)
}

// Reader exposes the read side of the ledger and journal.
type Reader interface {
	GetRow(ctx context.Context, day Day) (*LedgerRow, error)
	// ListRows returns rows with day > after in ascending order. A zero after
	// starts at the beginning; limit <= 0 means no limit.
	ListRows(ctx context.Context, after Day, limit int) ([]LedgerRow, error)
	// RecentRows returns the last n rows in ascending order.
	RecentRows(ctx context.Context, n int) ([]LedgerRow, error)
	SlotsAnswered(ctx context.Context, day Day) ([]string, error)
	EntriesForDay(ctx context.Context, day Day) ([]JournalEntry, error)
	EntriesSince(ctx context.Context, day Day) ([]JournalEntry, error)
	// CountTaggedDays counts, per kind, the distinct days on or after since
	// having at least one entry of that kind.
	CountTaggedDays(ctx context.Context, kinds []string, since Day) (map[string]int, error)
}

// Store is a ledger backend.
type Store interface {
	Reader
	// WithinTx runs fn atomically: every write made through the LedgerTx
	// commits together or none does.
	WithinTx(ctx context.Context, fn func(LedgerTx) error) error
}

// SummaryCache is an optional read-through cache for projections.
type SummaryCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context, keys ...string) error
}

// noopCache is used when no cache is configured.
type noopCache struct{}

func (noopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (noopCache) Set(context.Context, string, any) error { return nil }
func (noopCache) Invalidate(context.Context, ...string) error { return nil }
