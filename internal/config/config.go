// Package config centralises configuration parsing for the altitude service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"example.com/altitude/internal/domain"
)

// Config captures runtime configuration values for the altitude service.
type Config struct {
	HTTPAddress        string        `yaml:"http_address"`
	MetricsAddress     string        `yaml:"metrics_address"`
	PostgresURL        string        `yaml:"postgres_url"`
	RedisURL           string        `yaml:"redis_url"`
	CacheTTL           time.Duration `yaml:"cache_ttl"`
	KafkaBrokers       []string      `yaml:"kafka_brokers"`
	LedgerTopic        string        `yaml:"ledger_topic"`
	ConsumerGroupID    string        `yaml:"consumer_group_id"`
	SchemaRegistryURL  string        `yaml:"schema_registry_url"`
	OutboxEnabled      bool          `yaml:"outbox_enabled"`
	OutboxPollInterval time.Duration `yaml:"outbox_poll_interval"`
	OutboxBatchSize    int           `yaml:"outbox_batch_size"`
	DayBoundaryHour    int           `yaml:"day_boundary_hour"`
	Timezone           string        `yaml:"timezone"`   // IANA name, wins over UTCOffset.
	UTCOffset          time.Duration `yaml:"utc_offset"` // e.g. 9h for JST.
	InitialHeight      int           `yaml:"initial_height"`
	MinHeight          int           `yaml:"min_height"`
	BonusGoals         []string      `yaml:"bonus_goals"`
	StatsWindowDays    int           `yaml:"stats_window_days"`
	Log                LogConfig     `yaml:"log"`
}

// LogConfig controls the slog handler and file rotation.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Defaults returns the configuration used for local development.
func Defaults() Config {
	ledger := domain.DefaultLedgerConfig()
	return Config{
		HTTPAddress:        ":10000",
		MetricsAddress:     ":9195",
		CacheTTL:           30 * time.Second,
		KafkaBrokers:       []string{"kafka:9092"},
		LedgerTopic:        "altitude_ledger",
		ConsumerGroupID:    "altitude-ledger-audit",
		SchemaRegistryURL:  "http://schema-registry:8081",
		OutboxPollInterval: 2 * time.Second,
		OutboxBatchSize:    25,
		DayBoundaryHour:    domain.DefaultDayBoundary,
		InitialHeight:      ledger.InitialHeight,
		MinHeight:          ledger.MinHeight,
		BonusGoals:         ledger.BonusGoals,
		StatsWindowDays:    ledger.StatsWindowDays,
		Log:                LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
	}
}

// Load layers defaults, an optional YAML file, an optional .env file and the
// process environment, in that order.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg.HTTPAddress = getEnv("HTTP_ADDRESS", cfg.HTTPAddress)
	cfg.MetricsAddress = getEnv("METRICS_ADDRESS", cfg.MetricsAddress)
	cfg.PostgresURL = getEnv("POSTGRES_URL", cfg.PostgresURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.CacheTTL = getDurationEnv("CACHE_TTL", cfg.CacheTTL)
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	cfg.LedgerTopic = getEnv("LEDGER_TOPIC", cfg.LedgerTopic)
	cfg.ConsumerGroupID = getEnv("CONSUMER_GROUP_ID", cfg.ConsumerGroupID)
	cfg.SchemaRegistryURL = getEnv("SCHEMA_REGISTRY_URL", cfg.SchemaRegistryURL)
	cfg.OutboxEnabled = getBoolEnv("OUTBOX_ENABLED", cfg.OutboxEnabled)
	cfg.OutboxPollInterval = getDurationEnv("OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = getIntEnv("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.DayBoundaryHour = getIntEnv("DAY_BOUNDARY_HOUR", cfg.DayBoundaryHour)
	cfg.Timezone = getEnv("TIMEZONE", cfg.Timezone)
	cfg.UTCOffset = getDurationEnv("UTC_OFFSET", cfg.UTCOffset)
	cfg.InitialHeight = getIntEnv("INITIAL_HEIGHT", cfg.InitialHeight)
	cfg.MinHeight = getIntEnv("MIN_HEIGHT", cfg.MinHeight)
	if goals := getEnv("BONUS_GOALS", ""); goals != "" {
		cfg.BonusGoals = splitAndTrim(goals)
	}
	cfg.StatsWindowDays = getIntEnv("STATS_WINDOW_DAYS", cfg.StatsWindowDays)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.Console = getBoolEnv("LOG_CONSOLE", cfg.Log.Console)

	if _, err := cfg.Ledger(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Partitioner(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Ledger builds the validated ledger constants.
func (c Config) Ledger() (domain.LedgerConfig, error) {
	goals := make([]string, len(c.BonusGoals))
	copy(goals, c.BonusGoals)
	ledger := domain.LedgerConfig{
		InitialHeight:   c.InitialHeight,
		MinHeight:       c.MinHeight,
		BonusGoals:      goals,
		StatsWindowDays: c.StatsWindowDays,
	}
	if err := ledger.Validate(); err != nil {
		return domain.LedgerConfig{}, fmt.Errorf("ledger config: %w", err)
	}
	return ledger, nil
}

// Partitioner builds the day partitioner for the configured zone.
func (c Config) Partitioner() (domain.Partitioner, error) {
	loc := time.UTC
	switch {
	case c.Timezone != "":
		l, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return domain.Partitioner{}, fmt.Errorf("timezone %q: %w", c.Timezone, err)
		}
		loc = l
	case c.UTCOffset != 0:
		loc = time.FixedZone(fmt.Sprintf("UTC%+g", c.UTCOffset.Hours()), int(c.UTCOffset.Seconds()))
	}
	return domain.NewPartitioner(c.DayBoundaryHour, loc)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
