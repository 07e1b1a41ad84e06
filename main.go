package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger-service/internal/config"
	"ledger-service/internal/database"
	"ledger-service/internal/handlers"
	"ledger-service/internal/logger"
	"ledger-service/internal/notify"
	"ledger-service/internal/repository"
	"ledger-service/internal/service"
)

func main() {
	// Configuration comes first so LOG_LEVEL and LOG_FILE may live in .env
	cfg, err := config.Load()
	if err != nil {
		logger.Open("ERROR", "").Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	log := logger.Open(cfg.LogLevel, cfg.LogFile)
	defer log.Sync()
	log.Info("Starting ledger service")
	log.Info("Configuration loaded - server_address: %s", cfg.ServerAddress)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.DatabaseURL, database.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Database connection established")

	var publisher notify.Publisher = notify.Nop{}
	if cfg.RedisURL != "" {
		client, err := notify.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("Failed to connect to redis: %v", err)
			os.Exit(1)
		}
		defer client.Close()

		dispatcher := notify.NewDispatcher(
			notify.NewRedisPublisher(client, cfg.NotifyChannelPrefix, log),
			cfg.NotifyBuffer,
			log,
			notify.WithDeliverTimeout(cfg.NotifyDeliverTimeout),
		)
		defer dispatcher.Close()
		publisher = dispatcher
		log.Info("Change notifications enabled - channel_prefix: %s", cfg.NotifyChannelPrefix)
	} else {
		log.Warn("REDIS_URL not set, change notifications disabled")
	}

	repos := repository.NewRepositories(db, log)
	uow := repository.NewUnitOfWork(db, log)

	userService := service.NewUserService(repos.Users, uow, cfg.InitialBalance, log)
	accountService := service.NewAccountService(repos.Accounts, log)
	transferService := service.NewTransferService(repos.Transactions, userService, uow, publisher, log)

	accountHandler := handlers.NewAccountHandler(accountService, userService)
	transactionHandler := handlers.NewTransactionHandler(transferService)
	auth := handlers.NewAuthenticator(cfg.JWTSecret, log)

	router := handlers.SetupRoutes(accountHandler, transactionHandler, auth, log)

	server := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Starting HTTP server - address: %s", cfg.ServerAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Received shutdown signal, shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error: %v", err)
		os.Exit(1)
	}

	log.Info("Server shutdown completed")
}
