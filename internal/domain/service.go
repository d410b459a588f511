// Package domain defines the business logic for the altitude ledger.
package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"example.com/altitude/internal/observability"
)

const maxSlotLength = 32

// Service orchestrates ledger workflows.
type Service struct {
	store       Store
	partitioner Partitioner
	cfg         LedgerConfig
	cache       SummaryCache
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithClock overrides the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCache enables a read-through cache for summary projections.
func WithCache(cache SummaryCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService constructs a Service. cfg must already be validated.
func NewService(store Store, partitioner Partitioner, cfg LedgerConfig, opts ...Option) *Service {
	s := &Service{
		store:       store,
		partitioner: partitioner,
		cfg:         cfg,
		cache:       noopCache{},
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = noopCache{}
	}
	return s
}

// Config returns the ledger configuration.
func (s *Service) Config() LedgerConfig { return s.cfg }

// Today returns the current logical day.
func (s *Service) Today() Day { return s.partitioner.DayOf(s.now()) }

// LogActivityInput captures one answered slot or free-standing activity.
type LogActivityInput struct {
	Kind  string
	Delta int
	Slot  string
}

// LogActivityResult describes the committed write.
type LogActivityResult struct {
	Entry    JournalEntry
	Category Category
	Row      LedgerRow
}

// LogActivity journals the activity and applies it to today's ledger row in
// a single transaction.
func (s *Service) LogActivity(ctx context.Context, input LogActivityInput) (*LogActivityResult, error) {
	kind := strings.TrimSpace(input.Kind)
	if kind == "" {
		return nil, invalid("activity", "is required")
	}
	if err := CheckDelta("delta", input.Delta); err != nil {
		return nil, err
	}
	slot := strings.TrimSpace(input.Slot)
	if len(slot) > maxSlotLength {
		return nil, invalid("slot", fmt.Sprintf("must be at most %d characters", maxSlotLength))
	}

	category := ParseCategory(kind)
	if category.Known() {
		kind = category.Key()
	}

	var (
		day   Day
		entry JournalEntry
		row   LedgerRow
	)

	// The day is read once the transaction has started so a request that
	// waited across the boundary lands on the new day.
	err := s.store.WithinTx(ctx, func(tx LedgerTx) error {
		day = s.Today()
		entry = JournalEntry{Day: day, Slot: slot, Kind: kind, Delta: input.Delta}
		if _, err := tx.EnsureRow(ctx, day); err != nil {
			return err
		}
		id, err := tx.Append(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		row, err = tx.RecordActivity(ctx, day, category, input.Delta)
		return err
	})
	if err != nil {
		observability.RecordLedgerFailure("log_activity")
		return nil, fmt.Errorf("log activity: %w", err)
	}

	observability.RecordActivityLogged(category.String(), row.CumulativeHeight)
	s.invalidate(ctx, day)
	return &LogActivityResult{Entry: entry, Category: category, Row: row}, nil
}

// ApplyBonusInput carries the bonus amount and which side-goals were met.
type ApplyBonusInput struct {
	Amount int
	Goals  map[string]bool
}

// ApplyBonusResult reports whether this call granted the day's bonus.
type ApplyBonusResult struct {
	Applied bool
	Row     LedgerRow
}

// ApplyBonus grants today's bonus at most once. Goal outcomes are journaled
// only by the call that wins the grant.
func (s *Service) ApplyBonus(ctx context.Context, input ApplyBonusInput) (*ApplyBonusResult, error) {
	if err := CheckDelta("bonus_amount", input.Amount); err != nil {
		return nil, err
	}
	for goal := range input.Goals {
		if !s.cfg.HasGoal(goal) {
			return nil, invalid("goals", fmt.Sprintf("unknown goal %q", goal))
		}
	}

	var (
		day     Day
		applied bool
		row     LedgerRow
	)

	err := s.store.WithinTx(ctx, func(tx LedgerTx) error {
		day = s.Today()
		if _, err := tx.EnsureRow(ctx, day); err != nil {
			return err
		}
		var err error
		applied, err = tx.GrantBonusIfAbsent(ctx, day, input.Amount)
		if err != nil {
			return err
		}
		if applied {
			if _, err := tx.Append(ctx, JournalEntry{Day: day, Kind: BonusKind, Delta: input.Amount}); err != nil {
				return err
			}
			for _, outcome := range goalOutcomes(input.Goals) {
				if _, err := tx.Append(ctx, JournalEntry{Day: day, Kind: outcome.Kind()}); err != nil {
					return err
				}
			}
		}
		row, err = tx.Row(ctx, day)
		return err
	})
	if err != nil {
		observability.RecordLedgerFailure("apply_bonus")
		return nil, fmt.Errorf("apply bonus: %w", err)
	}

	observability.RecordBonus(applied, row.CumulativeHeight)
	if applied {
		s.invalidate(ctx, day)
	} else {
		s.logger.InfoContext(ctx, "bonus already granted", "day", day)
	}
	return &ApplyBonusResult{Applied: applied, Row: row}, nil
}

// CurrentAltitude returns today's cumulative height, opening today's row
// (and carrying yesterday's height over) if needed.
func (s *Service) CurrentAltitude(ctx context.Context) (int, error) {
	var (
		day     Day
		row     LedgerRow
		created bool
	)
	err := s.store.WithinTx(ctx, func(tx LedgerTx) error {
		day = s.Today()
		var err error
		if created, err = tx.EnsureRow(ctx, day); err != nil {
			return err
		}
		row, err = tx.Row(ctx, day)
		return err
	})
	if err != nil {
		observability.RecordLedgerFailure("current_altitude")
		return 0, fmt.Errorf("current altitude: %w", err)
	}
	if created {
		s.invalidate(ctx, day)
	}
	observability.RecordAltitude(row.CumulativeHeight)
	return row.CumulativeHeight, nil
}

func (s *Service) invalidate(ctx context.Context, day Day) {
	if err := s.cache.Invalidate(ctx, dayCacheKey(day), statsCacheKey(day)); err != nil {
		s.logger.WarnContext(ctx, "cache invalidation failed", "day", day, "err", err)
	}
}
