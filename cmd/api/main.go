package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/altitude/internal/api"
	"example.com/altitude/internal/cache"
	"example.com/altitude/internal/config"
	"example.com/altitude/internal/domain"
	"example.com/altitude/internal/logger"
	"example.com/altitude/internal/outbox"
	"example.com/altitude/internal/persistence/memory"
	"example.com/altitude/internal/persistence/postgres"
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
		log.Error("altitude api stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledger, err := cfg.Ledger()
	if err != nil {
		return err
	}
	partitioner, err := cfg.Partitioner()
	if err != nil {
		return err
	}

	var (
		store      domain.Store
		dispatcher *outbox.Dispatcher
	)
	if cfg.PostgresURL == "" {
		log.Warn("POSTGRES_URL not set, using in-memory ledger")
		store = memory.NewStore(ledger)
	} else {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return err
		}

		var opts []postgres.Option
		if cfg.OutboxEnabled {
			opts = append(opts, postgres.WithOutbox(cfg.LedgerTopic))

			producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
			defer producer.Close()
			registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
			dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize, log)
			go dispatcher.Start(ctx)
		}
		store = postgres.NewRepository(pool, ledger, opts...)
	}

	serviceOpts := []domain.Option{domain.WithLogger(log)}
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, summaries will not be cached", "err", err)
		} else {
			serviceOpts = append(serviceOpts, domain.WithCache(cache.NewRedisCache(client, "altitude", cfg.CacheTTL)))
		}
	}
	service := domain.NewService(store, partitioner, ledger, serviceOpts...)

	mux := http.NewServeMux()
	api.NewHandler(service, log).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, logger.Middleware(log, mux))

	log.Info("altitude api starting",
		"day", service.Today(),
		"boundary_hour", partitioner.Boundary,
		"zone", partitioner.Location.String(),
		"outbox", dispatcher != nil,
	)
	err = httptransport.Serve(ctx, server, 15*time.Second, log)
	stop()
	if dispatcher != nil {
		dispatcher.Wait()
	}
	return err
}
