package main

import (
	"context"
	"dm-lab/api"
	"dm-lab/auth"
	"dm-lab/catalog"
	"dm-lab/internal"
	"dm-lab/moderation"
	"dm-lab/observability"
	"dm-lab/recommendation"
	"dm-lab/repositories"
	"dm-lab/services"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and owns the server lifecycle. Errors are returned so the deferred closes
// always run before the process exits.
func run() error {
	// 1. Configuration & Logger
	config, err := loadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB), accounts always live here
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	userRepository, err := repositories.NewUserRepository(db)
	if err != nil {
		return err
	}
	defer func() { _ = userRepository.Release() }()

	messageRepository, closeStore, err := openMessageStore(config, db, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// 3. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	// 4. Services
	opts := []services.Option{services.WithRecorder(metrics)}
	if config.CheckParticipants {
		opts = append(opts, services.WithDirectory(userRepository))
	}
	if config.ModerationEnabled {
		filter, err := newModerationFilter(config, log)
		if err != nil {
			return err
		}
		opts = append(opts, services.WithCensor(filter))
	}
	conversations := services.NewConversationService(log, messageRepository, config.MaxContentLength, opts...)
	tokens := auth.NewTokenIssuer(config.AuthSecret, config.AuthTokenDuration)
	accounts := services.NewAuthService(userRepository, tokens)
	engine := recommendation.NewEngine(catalog.Load(config.CatalogFilepath, log))

	// 5. HTTP server
	router := api.NewRouter(api.Dependencies{
		Log:                 log,
		Conversations:       conversations,
		Accounts:            accounts,
		Recommender:         engine,
		Tokens:              tokens,
		Metrics:             metrics,
		Gatherer:            registry,
		RecommendationLimit: config.RecommendationLimit,
		AllowedOrigins:      config.Origins(),
	})
	server := &http.Server{
		Addr:              config.Address(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", server.Addr, "store", config.MessageStore, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}

// openMessageStore returns the configured message store and its close function.
func openMessageStore(config internal.Config, db *badger.DB, log *slog.Logger) (repositories.IMessageRepository, func(), error) {
	if config.MessageStore != internal.StoreSQLite {
		return repositories.NewMessageRepository(db, log, config.LimitMessages), func() {}, nil
	}
	gormDB, err := repositories.OpenSQLite(config.SQLiteDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite opening failed: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		log.Info("Closing SQLite...")
		_ = sqlDB.Close()
	}
	return repositories.NewGormMessageRepository(gormDB, log, config.LimitMessages), closeStore, nil
}

func newModerationFilter(config internal.Config, log *slog.Logger) (*moderation.Filter, error) {
	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}
	lists, err := moderation.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("moderation words: %w", err)
	}
	filter, err := moderation.NewFilter(lists.Words, replacement)
	if err != nil {
		return nil, err
	}
	log.Info("Moderation enabled", "words", len(lists.Words), "languages", lists.Languages)
	return filter, nil
}
