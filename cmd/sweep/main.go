package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	cfg "github.com/dancycodes/chopwallet/config"
	"github.com/dancycodes/chopwallet/internal/clients"
	"github.com/dancycodes/chopwallet/internal/core/ports"
	"github.com/dancycodes/chopwallet/internal/usecases"
	"github.com/dancycodes/chopwallet/internal/usecases/repository"
	"github.com/dancycodes/chopwallet/pkg/database"
)

const sweepTimeout = 5 * time.Minute

// Scheduled entry point: runs a single clearance sweep and exits. Intended to
// back a cron job alongside the long-running server's own sweeper.
func main() {
	time.Local = time.UTC

	config, err := cfg.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.Log.Level,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	pg, err := database.New(ctx, config.DB.DatabaseURL,
		database.MaxPoolSize(config.DB.PoolMax),
		database.ConnTimeout(config.DB.ConnectTimeout),
		database.HealthCheckPeriod(config.DB.HealthCheckPeriod),
	)
	if err != nil {
		logger.Error("postgres connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pg.Close()

	var notifier ports.Notifier
	if redisClient, redisErr := clients.NewRedisClient(ctx, config.Redis.URL); redisErr != nil {
		logger.Warn("Redis unavailable, notifications go to the log", "error", redisErr)
		notifier = clients.NewLogNotifier(logger)
	} else {
		defer redisClient.Close()
		notifier = clients.NewRedisNotifier(logger, redisClient)
	}

	audit := clients.NewSlogAuditLogger(logger)

	walletsRepository := repository.NewWalletsRepository(logger, pg)
	transactionsRepository := repository.NewTransactionsRepository(logger, pg)
	clearancesRepository := repository.NewClearancesRepository(logger, pg)

	ledgerService := usecases.NewLedgerService(logger, pg.Transactor, walletsRepository, transactionsRepository)
	sweepService := usecases.NewSweepService(logger, pg.Transactor, clearancesRepository, walletsRepository, ledgerService, notifier, audit)

	processed, err := sweepService.SweepEligible(ctx)
	if err != nil {
		logger.Error("Sweep failed", "error", err, "processed", processed)
		os.Exit(1)
	}

	if processed > 0 {
		fmt.Printf("processed %d clearances\n", processed)
	} else {
		fmt.Println("no eligible clearances")
	}
}
