package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"stayquote/internal/app/bootstrap"
	"stayquote/internal/app/schedule"
	"stayquote/internal/infra/broker/kafka"
	redisCache "stayquote/internal/infra/cache/redis"
	"stayquote/internal/infra/config"
	mongodb "stayquote/internal/infra/db/mongo"
	"stayquote/internal/infra/fixtures"
	ginserver "stayquote/internal/infra/http/gin"
	"stayquote/internal/infra/icalfetch"
	"stayquote/internal/infra/inbox"
	"stayquote/internal/infra/obs"
	infraoutbox "stayquote/internal/infra/outbox"
	"stayquote/internal/infra/storage/memory"
	"stayquote/internal/infra/storage/s3"
)

const consumerName = "stayquote-reservations"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("prod").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	rt, err := buildAdapters(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer rt.close(logger)

	app := bootstrap.Build(rt.ports, bootstrap.Settings{
		RefreshInterval: cfg.ICalRefreshInterval,
		ExportDomain:    cfg.ICalDomain,
		CalendarMaxDays: cfg.CalendarMaxDays,
		RefreshOnQuote:  true,
		Logger:          logger,
	})
	logger.Debug("buses ready", "commands", app.CommandKeys, "queries", app.QueryKeys)

	if cfg.StorageMode == config.StorageMemory {
		if err := seedFixtures(ctx, cfg.FixturesPath, rt.memoryStore, logger); err != nil {
			logger.Warn("fixtures load failed", "error", err, "path", cfg.FixturesPath)
		}
	}

	var background sync.WaitGroup
	runBackground := func(name string, fn func(context.Context) error) {
		background.Add(1)
		go func() {
			defer background.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background task stopped", "task", name, "error", err)
			}
		}()
	}

	worker := &infraoutbox.Worker{
		Queue:       rt.queue,
		Producer:    rt.producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	runBackground("outbox", worker.Run)

	if len(cfg.KafkaBrokers) > 0 {
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, kafka.ReservationFeed{Commands: app.Commands}, logger)
		if err != nil {
			logger.Error("kafka consumer init failed", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()
		runBackground("reservation-feed", func(ctx context.Context) error {
			return consumer.Run(ctx, []string{cfg.KafkaReservationTopic})
		})
	}

	scheduler := &schedule.Periodic{Logger: logger}
	scheduler.Every("ical-refresh", cfg.ICalRefreshInterval, app.Refresher.RefreshAll)
	runBackground("scheduler", func(ctx context.Context) error {
		scheduler.Run(ctx)
		return nil
	})

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: rt.checks}, ginserver.Handlers{
		Quote:            ginserver.QuoteHandler{Queries: app.Queries, Logger: logger},
		Calendar:         ginserver.CalendarHandler{Queries: app.Queries, Logger: logger},
		Frames:           ginserver.FrameHandler{Commands: app.Commands, Logger: logger},
		Blockings:        ginserver.BlockingHandler{Commands: app.Commands, Logger: logger},
		ExternalCalendar: ginserver.ExternalCalendarHandler{Commands: app.Commands, Logger: logger},
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
		background.Wait()
		os.Exit(1)
	}
	background.Wait()
	logger.Info("HTTP server stopped")
}

// adapters are the storage, cache and broker implementations chosen by configuration.
type adapters struct {
	ports       bootstrap.Ports
	queue       infraoutbox.Queue
	producer    infraoutbox.Producer
	memoryStore *memory.Store
	checks      []obs.Check
	closers     []func(context.Context) error
}

func buildAdapters(ctx context.Context, cfg config.Config, logger *slog.Logger) (*adapters, error) {
	rt := &adapters{}
	switch cfg.StorageMode {
	case config.StorageMongo:
		if err := rt.useMongo(ctx, cfg); err != nil {
			return nil, err
		}
	default:
		rt.memoryStore = memory.NewStore()
		box := memory.NewOutbox()
		rt.ports.UoWFactory = memory.Factory{Store: rt.memoryStore}
		rt.ports.Outbox = box
		rt.queue = box
		rt.ports.Idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
		rt.ports.Inbox = memory.NewInbox()
	}

	rt.ports.Fetcher = icalfetch.New(cfg.ICalFetchTimeout, logger)

	if cfg.S3Bucket != "" {
		archive, err := s3.NewArchive(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, logger)
		if err != nil {
			return nil, err
		}
		rt.ports.Archive = archive
	} else {
		rt.ports.Archive = memory.NewRawBodyStore()
	}

	if cfg.RedisAddr != "" {
		client, err := redisCache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		rt.ports.ExportCache = redisCache.NewExportCache(client, "stayquote:")
		rt.checks = append(rt.checks, obs.Check{Name: "redis", Ping: func(ctx context.Context) error { return client.Ping(ctx).Err() }})
		rt.closers = append(rt.closers, func(context.Context) error { return client.Close() })
	} else {
		rt.ports.ExportCache = memory.NewExportCache()
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		rt.producer = producer
		rt.closers = append(rt.closers, func(context.Context) error { return producer.Close() })
	} else {
		logger.Info("kafka brokers not configured, domain events are logged only")
		rt.producer = infraoutbox.LogProducer{Logger: logger}
	}
	return rt, nil
}

func (rt *adapters) useMongo(ctx context.Context, cfg config.Config) error {
	client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	rt.closers = append(rt.closers, client.Close)
	rt.checks = append(rt.checks, obs.Check{Name: "mongo", Ping: client.Ping})
	if err := mongodb.EnsureIndexes(ctx, client.DB); err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}
	box, err := infraoutbox.NewStore(ctx, client.DB)
	if err != nil {
		return err
	}
	idStore, err := mongodb.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		return err
	}
	inboxStore, err := inbox.NewStore(ctx, client.DB, consumerName, cfg.IdempotencyTTL)
	if err != nil {
		return err
	}
	rt.ports.UoWFactory = mongodb.Factory{DB: client.DB, Repos: mongodb.NewRepositories(client.DB)}
	rt.ports.Outbox = box
	rt.queue = box
	rt.ports.Idempotency = idStore
	rt.ports.Inbox = inboxStore
	return nil
}

func (rt *adapters) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}

func seedFixtures(ctx context.Context, path string, store *memory.Store, logger *slog.Logger) error {
	file, err := fixtures.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		if errors.Is(err, fixtures.ErrEmpty) {
			logger.Warn("fixtures file empty", "path", path)
			return nil
		}
		return err
	}
	if err := fixtures.Seed(ctx, memory.Factory{Store: store}, file, time.Now()); err != nil {
		return err
	}
	logger.Info("fixtures imported", "path", path, "properties", len(file.Properties))
	return nil
}
