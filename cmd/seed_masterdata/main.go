// seed_masterdata loads cost centers, cost elements and work orders from a CSV file into
// PostgreSQL (see package masterdata for the format).
//
// Usage: go run ./cmd/seed_masterdata [-latin1] masterdata.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/SafetyDady/smart-erp-backend/internal/application/masterdata"
	"github.com/SafetyDady/smart-erp-backend/internal/infrastructure/postgres"
	"github.com/SafetyDady/smart-erp-backend/pkg/config"
	"github.com/SafetyDady/smart-erp-backend/pkg/logger"
)

func main() {
	latin1 := flag.Bool("latin1", false, "decode the file as ISO-8859-1")
	flag.Parse()
	path := "masterdata.csv"
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed_masterdata"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to PostgreSQL")
	}
	defer pool.Close()

	sum, err := masterdata.LoadFile(ctx, postgres.NewMasterDataRepository(pool), path, *latin1)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("load master data")
	}
	log.Info().
		Str("file", path).
		Int("cost_centers", sum.CostCenters).
		Int("cost_elements", sum.CostElements).
		Int("work_orders", sum.WorkOrders).
		Msg("master data loaded")
}
