package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/altitude/internal/domain"
)

func TestEnsureRowIsIdempotentAndSeeds(t *testing.T) {
	cfg := domain.DefaultLedgerConfig()
	cfg.InitialHeight = 3
	store := NewStore(cfg)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		created, err := tx.EnsureRow(ctx, "2025-01-01")
		require.NoError(t, err)
		require.True(t, created)

		created, err = tx.EnsureRow(ctx, "2025-01-01")
		require.NoError(t, err)
		require.False(t, created)

		_, err = tx.RecordActivity(ctx, "2025-01-01", domain.Work, 9)
		return err
	})
	require.NoError(t, err)

	err = store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		_, err := tx.EnsureRow(ctx, "2025-01-05")
		require.NoError(t, err)
		row, err := tx.Row(ctx, "2025-01-05")
		require.NoError(t, err)
		require.Equal(t, 12, row.CumulativeHeight)
		require.Zero(t, row.HeightChange)
		return nil
	})
	require.NoError(t, err)

	first, err := store.GetRow(ctx, "2025-01-01")
	require.NoError(t, err)
	require.Equal(t, 12, first.CumulativeHeight)
	require.Equal(t, 1, first.Counts.Work)
}

func TestMutationsRequireOpenedDay(t *testing.T) {
	store := NewStore(domain.DefaultLedgerConfig())
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		_, err := tx.RecordActivity(ctx, "2025-01-01", domain.Work, 1)
		return err
	})
	require.ErrorIs(t, err, domain.ErrDayNotOpened)

	err = store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		_, err := tx.GrantBonusIfAbsent(ctx, "2025-01-01", 1)
		return err
	})
	require.ErrorIs(t, err, domain.ErrDayNotOpened)
}

func TestGrantBonusClampsAndFlipsOnce(t *testing.T) {
	cfg := domain.DefaultLedgerConfig()
	cfg.MinHeight, cfg.InitialHeight = 2, 2
	store := NewStore(cfg)
	ctx := context.Background()

	var applied []bool
	for i := 0; i < 2; i++ {
		require.NoError(t, store.WithinTx(ctx, func(tx domain.LedgerTx) error {
			if _, err := tx.EnsureRow(ctx, "2025-01-01"); err != nil {
				return err
			}
			ok, err := tx.GrantBonusIfAbsent(ctx, "2025-01-01", -10)
			applied = append(applied, ok)
			return err
		}))
	}
	require.Equal(t, []bool{true, false}, applied)

	row, err := store.GetRow(ctx, "2025-01-01")
	require.NoError(t, err)
	require.Equal(t, 2, row.CumulativeHeight)
	require.Equal(t, -10, row.HeightChange)
	require.True(t, row.BonusGiven)
}

func TestRollbackDiscardsAllWrites(t *testing.T) {
	store := NewStore(domain.DefaultLedgerConfig())
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		if _, err := tx.EnsureRow(ctx, "2025-01-01"); err != nil {
			return err
		}
		if _, err := tx.Append(ctx, domain.JournalEntry{Day: "2025-01-01", Kind: "work", Slot: "6:00"}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	row, err := store.GetRow(ctx, "2025-01-01")
	require.NoError(t, err)
	require.Nil(t, row)

	slots, err := store.SlotsAnswered(ctx, "2025-01-01")
	require.NoError(t, err)
	require.Empty(t, slots)

	// Ids are not consumed by rolled back transactions.
	require.NoError(t, store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		id, err := tx.Append(ctx, domain.JournalEntry{Day: "2025-01-01", Kind: "work"})
		require.Equal(t, int64(1), id)
		return err
	}))
}

func TestCancelledContextDoesNotCommit(t *testing.T) {
	store := NewStore(domain.DefaultLedgerConfig())
	ctx, cancel := context.WithCancel(context.Background())

	err := store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		_, err := tx.EnsureRow(ctx, "2025-01-01")
		cancel()
		return err
	})
	require.ErrorIs(t, err, context.Canceled)

	row, err := store.GetRow(context.Background(), "2025-01-01")
	require.NoError(t, err)
	require.Nil(t, row)
}

func TestJournalQueries(t *testing.T) {
	store := NewStore(domain.DefaultLedgerConfig())
	ctx := context.Background()

	entries := []domain.JournalEntry{
		{Day: "2025-01-01", Slot: "6:00", Kind: "work"},
		{Day: "2025-01-01", Slot: "6:00", Kind: "study"},
		{Day: "2025-01-02", Kind: "bonus_screen_time"},
		{Day: "2025-01-02", Kind: "bonus_screen_time"},
		{Day: "2025-01-03", Slot: "7:30", Kind: "bonus_screen_time"},
		{Day: "2025-01-03", Kind: "bonus_sleep_schedule_failed"},
	}
	require.NoError(t, store.WithinTx(ctx, func(tx domain.LedgerTx) error {
		for _, e := range entries {
			if _, err := tx.Append(ctx, e); err != nil {
				return err
			}
		}
		return nil
	}))

	slots, err := store.SlotsAnswered(ctx, "2025-01-01")
	require.NoError(t, err)
	require.Equal(t, []string{"6:00"}, slots)

	day, err := store.EntriesForDay(ctx, "2025-01-01")
	require.NoError(t, err)
	require.Len(t, day, 2)
	require.Less(t, day[0].ID, day[1].ID)

	since, err := store.EntriesSince(ctx, "2025-01-02")
	require.NoError(t, err)
	require.Len(t, since, 4)

	counts, err := store.CountTaggedDays(ctx, []string{"bonus_screen_time", "bonus_sleep_schedule"}, "2025-01-02")
	require.NoError(t, err)
	require.Equal(t, map[string]int{"bonus_screen_time": 2, "bonus_sleep_schedule": 0}, counts)

	counts, err = store.CountTaggedDays(ctx, []string{"bonus_screen_time"}, "2025-01-03")
	require.NoError(t, err)
	require.Equal(t, 1, counts["bonus_screen_time"])
}

func TestListAndRecentRows(t *testing.T) {
	store := NewStore(domain.DefaultLedgerConfig())
	ctx := context.Background()

	for _, d := range []domain.Day{"2025-01-03", "2025-01-01", "2025-01-02"} {
		require.NoError(t, store.WithinTx(ctx, func(tx domain.LedgerTx) error {
			_, err := tx.EnsureRow(ctx, d)
			return err
		}))
	}

	rows, err := store.ListRows(ctx, "", 0)
	require.NoError(t, err)
	require.Equal(t, []domain.Day{"2025-01-01", "2025-01-02", "2025-01-03"}, days(rows))

	rows, err = store.ListRows(ctx, "2025-01-01", 1)
	require.NoError(t, err)
	require.Equal(t, []domain.Day{"2025-01-02"}, days(rows))

	rows, err = store.RecentRows(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []domain.Day{"2025-01-02", "2025-01-03"}, days(rows))
}

func days(rows []domain.LedgerRow) []domain.Day {
	out := make([]domain.Day, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Day)
	}
	return out
}
