package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookstore/internal/config"
	"bookstore/internal/db"
	"bookstore/internal/logger"
	"bookstore/internal/repository"
	"bookstore/internal/router"

	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	log := logger.InitLogger(cfg.LogLevel)
	log.Info().Msg("Bookstore API starting")
	for _, w := range cfg.Warnings {
		log.Warn().Msg(w)
	}

	store, err := openStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.SetupRouter(cfg, store, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Msgf("Server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Server stopped")
}

// openStore connects to MySQL when DB_URL is set and falls back to the
// in-memory store otherwise. Both start with the default catalog.
func openStore(cfg config.Config, log zerolog.Logger) (*repository.Store, error) {
	if cfg.DBUrl == "" {
		log.Warn().Msg("DB_URL is empty, using in-memory store")
		return repository.NewMemoryStore(db.DefaultCatalog), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := db.InitDB(ctx, cfg.DBUrl)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx, database); err != nil {
		database.Close()
		return nil, err
	}
	seeded, err := db.SeedBooks(ctx, database, db.DefaultCatalog)
	if err != nil {
		database.Close()
		return nil, err
	}
	log.Info().Int("books", seeded).Msg("Database ready")

	return repository.NewMySQLStore(database), nil
}
