package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"example.com/altitude/internal/config"
	"example.com/altitude/internal/consumer"
	"example.com/altitude/internal/logger"
	httptransport "example.com/altitude/internal/transport/http"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.Log)

	if err := run(cfg, log); err != nil {
		log.Error("ledger audit consumer stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	if cfg.PostgresURL == "" {
		return errors.New("POSTGRES_URL is required for the audit consumer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	metricsSrv := httptransport.NewServer(httptransport.ServerConfig{Address: cfg.MetricsAddress}, promhttp.Handler())
	go func() {
		if err := httptransport.Serve(ctx, metricsSrv, 5*time.Second, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "err", err)
		}
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.ConsumerGroupID,
		Topic:           cfg.LedgerTopic,
		MinBytes:        1,
		MaxBytes:        10e6,
		MaxWait:         time.Second,
		CommitInterval:  0,
		ReadLagInterval: -1,
	})
	defer reader.Close()

	log.Info("ledger audit consumer started", "topic", cfg.LedgerTopic, "group", cfg.ConsumerGroupID)
	proc := consumer.NewProcessor(reader, consumer.NewAuditHandler(pool), consumer.WithLogger(log))
	if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("ledger audit consumer shutdown complete")
	return nil
}
