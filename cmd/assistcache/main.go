// assistcache serves an approximate-match answer cache in front of an
// upstream generation endpoint, with write-behind conversation persistence.
//
// Usage:
//
//	assistcache                        # defaults
//	assistcache -config config.yaml    # with a config file
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/motorline/assistcache/api"
	"github.com/motorline/assistcache/api/handlers"
	"github.com/motorline/assistcache/cache"
	"github.com/motorline/assistcache/config"
	"github.com/motorline/assistcache/internal/metrics"
	"github.com/motorline/assistcache/internal/server"
	"github.com/motorline/assistcache/llm"
	"github.com/motorline/assistcache/normalize"
	"github.com/motorline/assistcache/persistence"
	"github.com/motorline/assistcache/router"
	"github.com/motorline/assistcache/service"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("fatal", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	durable, err := openDurableStore(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open durable store: %w", err)
	}
	defer durable.Close()

	store := cache.NewFuzzyStore(cache.StoreConfig{
		Threshold: cfg.Cache.SimilarityThreshold,
		TTL:       cfg.Cache.TTL.Std(),
	}, logger)

	// The collector reads the queue depth through a closure because the
	// queue itself reports into the collector.
	var queue *persistence.Queue
	collector := metrics.NewCollector("assistcache", store.Size, func() int {
		if queue == nil {
			return 0
		}
		return queue.Depth()
	})
	queue = persistence.NewQueue(durable, persistence.Config{
		PollTimeout:     cfg.Persistence.PollTimeout.Std(),
		RetryBackoff:    cfg.Persistence.RetryBackoff.Std(),
		ShutdownTimeout: cfg.Persistence.ShutdownTimeout.Std(),
		BufferSize:      cfg.Persistence.BufferSize,
	}, collector, logger)

	checks := []handlers.Check{
		{Name: "database", Ping: durable.Ping},
	}

	var exact *cache.ExactCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		exact = cache.NewExactCache(rdb, cfg.Cache.TTL.Std(), logger)
		checks = append(checks, handlers.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	assistants := make([]router.Assistant, 0, len(cfg.Assistants))
	for _, a := range cfg.Assistants {
		assistants = append(assistants, router.Assistant{
			NamespaceID:     a.NamespaceID,
			TriggerKeywords: a.TriggerKeywords,
		})
	}

	svc := service.New(service.Deps{
		Normalizer: normalize.New(cfg.Vocabulary(), cfg.Normalizer.CorrectionThreshold),
		Router:     router.New(assistants, logger),
		Store:      store,
		Guard:      cache.NewGuard(cfg.BrandKeywords(), logger),
		Exact:      exact,
		Generator:  llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.Timeout.Std(), logger),
		Queue:      queue,
		Metrics:    collector,
		Logger:     logger,
	}, service.Config{CrossNamespaceFallback: cfg.Cache.CrossNamespaceFallback})
	svc.Init()

	mux := api.NewMux(
		handlers.NewAskHandler(svc, logger),
		handlers.NewFeedbackHandler(logger),
		handlers.NewHealthHandler(logger, checks...),
		promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}),
	)

	srv := server.NewManager(mux, server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.Port),
		ReadTimeout:     cfg.Server.ReadTimeout.Std(),
		IdleTimeout:     server.DefaultConfig().IdleTimeout,
		MaxHeaderBytes:  server.DefaultConfig().MaxHeaderBytes,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Std(),
	}, logger)

	if err := srv.Start(); err != nil {
		return err
	}
	srv.WaitForShutdown()

	// The HTTP server is drained; flush what the writer can still commit.
	if err := svc.Shutdown(context.Background()); err != nil {
		logger.Warn("persistence writer did not drain cleanly", zap.Error(err))
	}
	return nil
}

// openDurableStore opens the configured backend behind the append contract.
func openDurableStore(cfg config.DatabaseConfig, logger *zap.Logger) (persistence.DurableStore, error) {
	if cfg.Driver == "memory" {
		return persistence.NewMemoryStore(), nil
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	return persistence.NewGormStore(db, logger)
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapConfig zap.Config
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.TimeKey = "timestamp"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
