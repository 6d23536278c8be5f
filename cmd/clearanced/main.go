package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	cfg "github.com/dancycodes/chopwallet/config"
	"github.com/dancycodes/chopwallet/internal/clients"
	"github.com/dancycodes/chopwallet/internal/core/ports"
	"github.com/dancycodes/chopwallet/internal/handlers"
	"github.com/dancycodes/chopwallet/internal/usecases"
	"github.com/dancycodes/chopwallet/internal/usecases/repository"
	"github.com/dancycodes/chopwallet/internal/workers"
	"github.com/dancycodes/chopwallet/pkg/database"
)

// Server timeout constants.
const (
	readTimeoutSeconds     = 15
	writeTimeoutSeconds    = 15
	idleTimeoutSeconds     = 60
	shutdownTimeoutSeconds = 5
)

func main() {
	time.Local = time.UTC

	// Parse configuration
	config, err := cfg.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	// Setup logging
	opts := &slog.HandlerOptions{
		Level: config.Log.Level,
	}

	if config.App.Debug {
		opts.Level = slog.LevelDebug
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	logger.Info("Starting application with configuration",
		"debug", config.App.Debug,
		"environment", config.App.Environment,
		"server_port", config.HTTP.Port,
		"sweep_interval", config.Workers.SweepInterval.String())

	// Connect to Database
	pg, err := database.New(ctx, config.DB.DatabaseURL,
		database.MaxPoolSize(config.DB.PoolMax),
		database.ConnTimeout(config.DB.ConnectTimeout),
		database.HealthCheckPeriod(config.DB.HealthCheckPeriod),
	)
	if err != nil {
		logger.Error("postgres connection failed", slog.String("error", err.Error()))
		return
	}
	defer pg.Close()

	// Run database migrations
	migrationsPath := findMigrationsPath()
	logger.Info("Running database migrations", "path", migrationsPath)
	if err = database.RunMigrations(logger, config.DB.DatabaseURL, migrationsPath); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
		log.Fatal(err)
	}
	logger.Info("Database migrations completed successfully")

	// External collaborators
	var notifier ports.Notifier
	if redisClient, redisErr := clients.NewRedisClient(ctx, config.Redis.URL); redisErr != nil {
		logger.Warn("Redis unavailable, notifications go to the log", "error", redisErr)
		notifier = clients.NewLogNotifier(logger)
	} else {
		defer redisClient.Close()
		notifier = clients.NewRedisNotifier(logger, redisClient)
	}

	gateway := clients.NewMomoGateway(logger, config.Gateway.APIKey, config.Gateway.APIURL)
	audit := clients.NewSlogAuditLogger(logger)

	// Create repositories
	walletsRepository := repository.NewWalletsRepository(logger, pg)
	transactionsRepository := repository.NewTransactionsRepository(logger, pg)
	clearancesRepository := repository.NewClearancesRepository(logger, pg)
	ordersRepository := repository.NewOrdersRepository(logger, pg)
	complaintsRepository := repository.NewComplaintsRepository(logger, pg)
	settingsRepository := repository.NewSettingsRepository(logger, pg)

	// Create usecases
	ledgerService := usecases.NewLedgerService(logger, pg.Transactor, walletsRepository, transactionsRepository)
	commissionService := usecases.NewCommissionService(logger, pg.Transactor, ordersRepository, clearancesRepository, ledgerService, settingsRepository, audit)
	clearanceService := usecases.NewClearanceService(logger, pg.Transactor, clearancesRepository, complaintsRepository, ledgerService, walletsRepository, notifier, audit)
	sweepService := usecases.NewSweepService(logger, pg.Transactor, clearancesRepository, walletsRepository, ledgerService, notifier, audit)
	withdrawalService := usecases.NewWithdrawalService(logger, pg.Transactor, walletsRepository, ledgerService, gateway, notifier, audit)

	// Start the background sweeper
	sweeper := workers.NewClearanceSweeper(logger, sweepService, config.Workers.SweepInterval)
	go sweeper.Start(ctx)

	// Create handlers and router
	httpHandler := handlers.NewHTTPHandler(logger, commissionService, clearanceService, ledgerService, withdrawalService, sweepService)

	router := mux.NewRouter()
	httpHandler.RegisterRoutes(router)

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         ":" + config.HTTP.Port,
		Handler:      c.Handler(router),
		ReadTimeout:  readTimeoutSeconds * time.Second,
		WriteTimeout: writeTimeoutSeconds * time.Second,
		IdleTimeout:  idleTimeoutSeconds * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "address", server.Addr)
		if err = server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			log.Fatal(err)
		}
	}()

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Stop the sweeper and give current requests time to complete
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeoutSeconds*time.Second)
	defer shutdownCancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return
	}

	logger.Info("Server exited properly")
}

func findMigrationsPath() string {
	migrationsPath := "./migrations"
	if workDir, err := os.Getwd(); err == nil {
		if _, err := os.Stat(filepath.Join(workDir, "migrations")); !os.IsNotExist(err) {
			migrationsPath = filepath.Join(workDir, "migrations")
		} else if _, err := os.Stat(filepath.Join(workDir, "..", "migrations")); !os.IsNotExist(err) {
			migrationsPath = filepath.Join(workDir, "..", "migrations")
		}
	}
	return migrationsPath
}
