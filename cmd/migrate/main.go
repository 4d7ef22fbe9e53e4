// migrate applies the embedded SQL migrations to the configured database and exits.
//
// Usage: go run ./cmd/migrate
package main

import (
	"context"
	"time"

	"github.com/SafetyDady/smart-erp-backend/internal/infrastructure/postgres"
	"github.com/SafetyDady/smart-erp-backend/pkg/config"
	"github.com/SafetyDady/smart-erp-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load configuration: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "migrate"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, log); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}
	log.Info().Msg("database is up to date")
}
