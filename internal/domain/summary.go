package domain

import (
	"context"
	"fmt"
	"sort"
)

func dayCacheKey(day Day) string   { return "day:" + string(day) }
func statsCacheKey(day Day) string { return "stats:" + string(day) }

// TodaySummary returns today's row, or a zero-valued row for today when
// nothing has been recorded yet. The bool reports whether the row exists.
func (s *Service) TodaySummary(ctx context.Context) (LedgerRow, bool, error) {
	day := s.Today()
	key := dayCacheKey(day)
	var cached LedgerRow
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}

	row, err := s.store.GetRow(ctx, day)
	if err != nil {
		return LedgerRow{}, false, fmt.Errorf("today summary: %w", err)
	}
	if row == nil {
		return LedgerRow{Day: day}, false, nil
	}
	if err := s.cache.Set(ctx, key, row); err != nil {
		s.logger.WarnContext(ctx, "cache store failed", "key", key, "err", err)
	}
	return *row, true, nil
}

// AllSummary returns every ledger row in ascending day order.
func (s *Service) AllSummary(ctx context.Context) ([]LedgerRow, error) {
	rows, err := s.store.ListRows(ctx, "", 0)
	if err != nil {
		return nil, fmt.Errorf("all summary: %w", err)
	}
	return rows, nil
}

// AllSummaryPage returns up to limit rows after the given day and the day to
// resume from, which is empty on the last page.
func (s *Service) AllSummaryPage(ctx context.Context, after Day, limit int) ([]LedgerRow, Day, error) {
	rows, err := s.store.ListRows(ctx, after, limit)
	if err != nil {
		return nil, "", fmt.Errorf("all summary: %w", err)
	}
	var next Day
	if limit > 0 && len(rows) == limit {
		next = rows[len(rows)-1].Day
	}
	return rows, next, nil
}

// RecentSummary returns the last n rows, oldest first.
func (s *Service) RecentSummary(ctx context.Context, n int) ([]LedgerRow, error) {
	if n <= 0 {
		return nil, invalid("days", "must be positive")
	}
	rows, err := s.store.RecentRows(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("recent summary: %w", err)
	}
	return rows, nil
}

// AnsweredSlots returns the distinct slots journaled on day.
func (s *Service) AnsweredSlots(ctx context.Context, day Day) ([]string, error) {
	slots, err := s.store.SlotsAnswered(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("answered slots: %w", err)
	}
	sort.Strings(slots)
	return slots, nil
}

// Journal returns every entry recorded on day in insertion order.
func (s *Service) Journal(ctx context.Context, day Day) ([]JournalEntry, error) {
	entries, err := s.store.EntriesForDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return entries, nil
}

// Slots returns today's slot grid as of now.
func (s *Service) Slots(ctx context.Context) (SlotGrid, error) {
	now := s.now()
	day := s.partitioner.DayOf(now)
	answered, err := s.store.SlotsAnswered(ctx, day)
	if err != nil {
		return SlotGrid{}, fmt.Errorf("slots: %w", err)
	}
	set := make(map[string]struct{}, len(answered))
	for _, slot := range answered {
		set[slot] = struct{}{}
	}
	return buildSlotGrid(s.partitioner, day, now, set), nil
}

// BonusSuccessRate returns the rounded percentage of the trailing windowDays
// logical days (today included) on which goal was met.
func (s *Service) BonusSuccessRate(ctx context.Context, goal string, windowDays int) (int, error) {
	if windowDays <= 0 {
		return 0, invalid("window", "must be positive")
	}
	since := s.Today().AddDays(-(windowDays - 1))
	kind := GoalSuccessKind(goal)
	counts, err := s.store.CountTaggedDays(ctx, []string{kind}, since)
	if err != nil {
		return 0, fmt.Errorf("bonus success rate: %w", err)
	}
	return SuccessRate(counts[kind], windowDays), nil
}

// BonusStats returns per-goal success counts over the configured window.
func (s *Service) BonusStats(ctx context.Context) ([]BonusStat, error) {
	day := s.Today()
	key := statsCacheKey(day)
	var cached []BonusStat
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	window := s.cfg.StatsWindowDays
	since := day.AddDays(-(window - 1))
	kinds := make([]string, 0, len(s.cfg.BonusGoals))
	for _, goal := range s.cfg.BonusGoals {
		kinds = append(kinds, GoalSuccessKind(goal))
	}

	counts, err := s.store.CountTaggedDays(ctx, kinds, since)
	if err != nil {
		return nil, fmt.Errorf("bonus stats: %w", err)
	}

	stats := make([]BonusStat, 0, len(s.cfg.BonusGoals))
	for _, goal := range s.cfg.BonusGoals {
		success := counts[GoalSuccessKind(goal)]
		stats = append(stats, BonusStat{
			Goal:    goal,
			Success: success,
			Total:   window,
			Rate:    SuccessRate(success, window),
		})
	}

	if err := s.cache.Set(ctx, key, stats); err != nil {
		s.logger.WarnContext(ctx, "cache store failed", "key", key, "err", err)
	}
	return stats, nil
}
