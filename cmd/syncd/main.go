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

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/bianchenglequ/OneClick/internal/api"
	"github.com/bianchenglequ/OneClick/internal/config"
	"github.com/bianchenglequ/OneClick/internal/platform"
	"github.com/bianchenglequ/OneClick/internal/platform/cnblogs"
	"github.com/bianchenglequ/OneClick/internal/platform/csdn"
	"github.com/bianchenglequ/OneClick/internal/platform/toutiao"
	"github.com/bianchenglequ/OneClick/internal/platform/zhihu"
	"github.com/bianchenglequ/OneClick/internal/publisher"
	"github.com/bianchenglequ/OneClick/internal/service"
	"github.com/bianchenglequ/OneClick/internal/storage/postgres"
)

// cookieSeedURLs maps each platform to the origin its exported session
// cookie belongs to.
var cookieSeedURLs = map[string]string{
	"csdn":    "https://www.csdn.net/",
	"cnblogs": "https://www.cnblogs.com/",
	"zhihu":   "https://www.zhihu.com/",
	"toutiao": "https://mp.toutiao.com/",
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	client, err := platform.NewClient(cfg.Sync.DispatchTimeout, logger)
	if err != nil {
		logger.Error("failed to create http client", "error", err)
		os.Exit(1)
	}
	for id, pc := range cfg.Platforms {
		if pc.Cookie == "" {
			continue
		}
		seedURL, ok := cookieSeedURLs[id]
		if !ok {
			logger.Warn("cookie configured for unknown platform", "platform", id)
			continue
		}
		if err := client.SeedCookies(seedURL, pc.Cookie); err != nil {
			logger.Error("failed to seed cookies", "platform", id, "error", err)
			os.Exit(1)
		}
		logger.Info("seeded session cookies", "platform", id)
	}

	adapters := map[platform.ID]service.Adapter{
		platform.CSDN:    csdn.New(client, logger),
		platform.CNBlogs: cnblogs.New(client, logger),
		platform.Zhihu:   zhihu.New(client, logger),
		platform.Toutiao: toutiao.New(client, logger),
	}

	// Run history is optional, the service works fine without a database.
	var store service.RunStore
	if cfg.Database.Enabled() {
		db, err := sqlx.Connect("postgres", cfg.Database.DSN())
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		logger.Info("connected to database")
		store = postgres.NewRunStore(db)
	}

	// Same for the event broker.
	var resultPublisher service.Publisher
	if cfg.RabbitMQ.Enabled() {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		resultPublisher = rabbitMQ
	}

	queue := service.NewQueue(logger)
	defer queue.Close()

	syncService := service.NewSyncService(
		adapters,
		queue,
		client,
		store,
		resultPublisher,
		logger,
		cfg.Sync.DispatchTimeout,
	)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewServer(syncService, logger),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting sync service",
		"addr", cfg.ListenAddr,
		"platforms", len(adapters),
		"history", cfg.Database.Enabled(),
		"events", cfg.RabbitMQ.Enabled(),
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
}
