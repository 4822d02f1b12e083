package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"portal-server/services/portal-api/internal/config"
	"portal-server/services/portal-api/internal/domain/chat"
	"portal-server/services/portal-api/internal/domain/notification"
	"portal-server/services/portal-api/internal/infrastructure/auth"
	"portal-server/services/portal-api/internal/infrastructure/bus"
	"portal-server/services/portal-api/internal/infrastructure/database"
	"portal-server/services/portal-api/internal/infrastructure/docstore"
	"portal-server/services/portal-api/internal/infrastructure/intake"
	"portal-server/services/portal-api/internal/infrastructure/logger"
	"portal-server/services/portal-api/internal/infrastructure/observability"
	chatrepo "portal-server/services/portal-api/internal/infrastructure/repository/chat"
	"portal-server/services/portal-api/internal/infrastructure/sources"
	"portal-server/services/portal-api/internal/interfaces/httpserver"
	"portal-server/services/portal-api/internal/worker"
)

// Application bundles the running parts of the portal service.
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

// NewApplication wires the HTTP server into the application shell.
func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

// Start runs the HTTP server until the context is cancelled.
func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	store, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize document store")
	}
	defer closeStore()

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}

	conversationRepository := chatrepo.NewConversationRepository(store)
	messageRepository := chatrepo.NewMessageRepository(store)
	ledger := chat.NewLedger(conversationRepository, messageRepository, log)
	chatService := chat.NewEngine(conversationRepository, messageRepository, ledger, cfg.StreamBufferSize, log)

	conversationSource := sources.NewConversationSource(store)
	aggregator := notification.NewAggregator(log,
		conversationSource,
		sources.NewOrderSource(store),
		sources.NewSurveySource(store),
		sources.NewFormSource(store),
	)
	watchers := []notification.Watcher{conversationSource}

	intakeClient := intake.NewClient(cfg.IntakeAPIURL, cfg.IntakeTimeout)

	// Background reconciliation heals unread counter drift left behind
	// by partially failed sends.
	reconcilePool := worker.NewPool(
		conversationRepository,
		ledger,
		worker.Config{
			WorkerCount: cfg.ReconcileWorkerCount,
			Interval:    cfg.ReconcileInterval,
		},
		log,
	)
	reconcilePool.Start(ctx)
	defer reconcilePool.Stop()

	httpServer := httpserver.New(cfg, log, chatService, aggregator, watchers, intakeClient, authValidator)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// buildStore connects the configured document store. With Postgres it
// also runs migrations and, when NATS_URL is set, bridges change events
// across instances so live subscriptions see writes made elsewhere.
func buildStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (docstore.Store, func(), error) {
	if cfg.StoreDriver == "memory" {
		mem := docstore.NewMemStore()
		return mem, mem.Close, nil
	}

	if err := database.Migrate(cfg.DatabaseURL, log); err != nil {
		return nil, nil, err
	}

	store, err := docstore.Connect(docstore.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	closeFuncs := []func(){store.Close}
	if cfg.NATSURL != "" {
		bridge, err := bus.NewChangeBridge(ctx, cfg.NATSURL, cfg.NATSStreamName, log)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		store.SetRemotePublisher(bridge)
		if err := bridge.Start(ctx, store.ApplyRemote); err != nil {
			bridge.Close()
			store.Close()
			return nil, nil, err
		}
		closeFuncs = append([]func(){bridge.Close}, closeFuncs...)
	}

	return store, func() {
		for _, f := range closeFuncs {
			f()
		}
	}, nil
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
