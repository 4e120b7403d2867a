package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/philippgille/chromem-go"
	"golang.org/x/sync/errgroup"

	"memgate/internal/detect"
	"memgate/internal/gateway"
	"memgate/internal/memory"
	"memgate/internal/notify"
	"memgate/internal/platform/config"
	"memgate/internal/platform/httpserver"
	"memgate/internal/platform/logger"
	platformredis "memgate/internal/platform/redis"
	"memgate/internal/quarantine"
	"memgate/internal/registry/cache"
	registryhandler "memgate/internal/registry/handler"
	registrymetrics "memgate/internal/registry/metrics"
	"memgate/internal/registry/service"
	"memgate/internal/registry/store"
	"memgate/internal/sessionlog"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "memgate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.New()
	cfg := config.FromEnv()

	regStore, sessStore, closeDB, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := store.SeedKnownClients(ctx, regStore, time.Now()); err != nil {
		return fmt.Errorf("seeding known clients: %w", err)
	}

	opts := []service.Option{
		service.WithMetrics(registrymetrics.New()),
		service.WithSessionCounter(sessStore),
	}
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	if redisClient != nil {
		opts = append(opts, service.WithStatusCache(cache.New(redisClient, config.StatusCacheTTL)))
	}
	registry := service.New(regStore, log, opts...)

	var sink notify.Sink = &notify.LogSink{Logger: log}
	var kafkaSink *notify.KafkaSink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err = notify.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.NotifyTopic, log)
		if err != nil {
			return fmt.Errorf("connecting to kafka: %w", err)
		}
		sink = kafkaSink
	}
	publisher := notify.NewPublisher(sink, log, cfg.NotifyBuffer)

	recorder := sessionlog.NewRecorder(sessStore, log, cfg.SessionLogBuffer)

	writer, err := buildWriter(cfg)
	if err != nil {
		return err
	}

	workflow := quarantine.New(registry, publisher, log, cfg.BlockedPolicy)

	admin := registryhandler.New(registry, sessStore, log, []byte(cfg.JWTSigningKey), cfg.AdminKeyHash)
	gw := gateway.NewHandler(detect.DefaultConfig(), workflow, writer, recorder, gateway.NewMetrics(), log)
	srv := httpserver.New(cfg.Addr, gateway.NewRouter(gw, admin.Routes()))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "blocked_policy", string(cfg.BlockedPolicy))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// Drain async workers before closing their downstream connections.
	recorder.Close()
	publisher.Close()
	if kafkaSink != nil {
		kafkaSink.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	return err
}

func buildStores(ctx context.Context, cfg config.Server) (service.Store, sessionlog.Store, func(), error) {
	if cfg.PostgresDSN == "" {
		return store.NewInMemory(), sessionlog.NewInMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("pinging postgres: %w", err)
	}

	regStore := store.NewPostgres(db)
	if err := regStore.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	sessStore := sessionlog.NewPostgresStore(db)
	if err := sessStore.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	return regStore, sessStore, func() { db.Close() }, nil
}

func buildWriter(cfg config.Server) (memory.Writer, error) {
	if cfg.ChromemPath == "" {
		return memory.NewInMemoryWriter(), nil
	}
	db, err := chromem.NewPersistentDB(cfg.ChromemPath, false)
	if err != nil {
		return nil, fmt.Errorf("opening chromem store: %w", err)
	}
	return memory.NewChromemWriter(db, "memories", nil)
}
