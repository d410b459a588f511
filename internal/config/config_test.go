package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":10000", cfg.HTTPAddress)
	require.Equal(t, 6, cfg.DayBoundaryHour)
	require.Equal(t, []string{"screen_time", "sleep_schedule"}, cfg.BonusGoals)

	ledger, err := cfg.Ledger()
	require.NoError(t, err)
	require.Equal(t, 7, ledger.StatsWindowDays)

	p, err := cfg.Partitioner()
	require.NoError(t, err)
	require.Equal(t, time.UTC, p.Location)
}

func TestLoadLayersYAMLThenEnv(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "altitude.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_address: ":8080"
day_boundary_hour: 5
utc_offset: 9h
initial_height: 10
bonus_goals: [screen_time, reading]
log:
  level: debug
`), 0o600))

	t.Setenv("HTTP_ADDRESS", ":9090")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092 ,")
	t.Setenv("OUTBOX_ENABLED", "true")
	t.Setenv("CACHE_TTL", "1m")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress)
	require.Equal(t, 5, cfg.DayBoundaryHour)
	require.Equal(t, 10, cfg.InitialHeight)
	require.Equal(t, []string{"screen_time", "reading"}, cfg.BonusGoals)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	require.True(t, cfg.OutboxEnabled)
	require.Equal(t, time.Minute, cfg.CacheTTL)
	require.Equal(t, "debug", cfg.Log.Level)

	p, err := cfg.Partitioner()
	require.NoError(t, err)
	// 20:30 UTC is 05:30 at +09:00, after a 05:00 boundary.
	require.Equal(t, "2025-01-02", p.DayOf(time.Date(2025, time.January, 1, 20, 30, 0, 0, time.UTC)).String())
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LEDGER_TOPIC=ledger_from_dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("LEDGER_TOPIC") })

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "ledger_from_dotenv", cfg.LedgerTopic)
}

func TestLoadRejectsInvalidLedger(t *testing.T) {
	chdirTemp(t)

	t.Setenv("MIN_HEIGHT", "5")
	_, err := Load("")
	require.ErrorContains(t, err, "initial height")
}

func TestLoadRejectsBadBoundaryAndZone(t *testing.T) {
	chdirTemp(t)

	t.Setenv("DAY_BOUNDARY_HOUR", "24")
	_, err := Load("")
	require.Error(t, err)

	t.Setenv("DAY_BOUNDARY_HOUR", "6")
	t.Setenv("TIMEZONE", "Mars/Olympus_Mons")
	_, err = Load("")
	require.ErrorContains(t, err, "timezone")
}

func TestLoadMissingFile(t *testing.T) {
	chdirTemp(t)
	_, err := Load("does-not-exist.yaml")
	require.Error(t, err)
}
