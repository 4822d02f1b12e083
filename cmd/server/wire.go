//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"portal-server/services/portal-api/internal/config"
	"portal-server/services/portal-api/internal/domain/chat"
	"portal-server/services/portal-api/internal/domain/notification"
	"portal-server/services/portal-api/internal/infrastructure/auth"
	"portal-server/services/portal-api/internal/infrastructure/database"
	"portal-server/services/portal-api/internal/infrastructure/docstore"
	"portal-server/services/portal-api/internal/infrastructure/intake"
	"portal-server/services/portal-api/internal/infrastructure/logger"
	chatrepo "portal-server/services/portal-api/internal/infrastructure/repository/chat"
	"portal-server/services/portal-api/internal/infrastructure/sources"
	"portal-server/services/portal-api/internal/interfaces/httpserver"
)

var portalSet = wire.NewSet(
	chatrepo.NewConversationRepository,
	wire.Bind(new(chat.ConversationRepository), new(*chatrepo.ConversationRepository)),
	chatrepo.NewMessageRepository,
	wire.Bind(new(chat.MessageRepository), new(*chatrepo.MessageRepository)),
	chat.NewLedger,
	newChatService,
	wire.Bind(new(chat.Service), new(*chat.Engine)),
	newAggregator,
	wire.Bind(new(notification.Service), new(*notification.Aggregator)),
	newWatchers,
	newIntakeClient,
	wire.Bind(new(intake.StatusUpdater), new(*intake.Client)),
)

// BuildApplication demonstrates how to assemble the portal service with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newDocumentStore,
		newAuthValidator,
		portalSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newDocumentStore(cfg *config.Config, log zerolog.Logger) (docstore.Store, error) {
	if cfg.StoreDriver == "memory" {
		return docstore.NewMemStore(), nil
	}
	if err := database.Migrate(cfg.DatabaseURL, log); err != nil {
		return nil, err
	}
	return docstore.Connect(docstore.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}, log)
}

func newAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}

func newChatService(
	conversations chat.ConversationRepository,
	messages chat.MessageRepository,
	ledger *chat.Ledger,
	cfg *config.Config,
	log zerolog.Logger,
) *chat.Engine {
	return chat.NewEngine(conversations, messages, ledger, cfg.StreamBufferSize, log)
}

func newAggregator(store docstore.Store, log zerolog.Logger) *notification.Aggregator {
	return notification.NewAggregator(log,
		sources.NewConversationSource(store),
		sources.NewOrderSource(store),
		sources.NewSurveySource(store),
		sources.NewFormSource(store),
	)
}

func newWatchers(store docstore.Store) []notification.Watcher {
	return []notification.Watcher{sources.NewConversationSource(store)}
}

func newIntakeClient(cfg *config.Config) *intake.Client {
	return intake.NewClient(cfg.IntakeAPIURL, cfg.IntakeTimeout)
}
