package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mehmetcc/medgate/internal/config"
	"github.com/mehmetcc/medgate/internal/database"
	"github.com/mehmetcc/medgate/internal/person"
	"github.com/mehmetcc/medgate/internal/records"
	"github.com/mehmetcc/medgate/internal/server"
	"go.uber.org/zap"
)

func main() {
	// init logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	config.LoadDotenv(logger)

	// refuse to start on a broken configuration
	cfg, err := config.LoadConfig(logger)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// load database
	db, err := database.Init(ctx, cfg.DbConfig)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	// run migrations
	database.SetMigrationLogger(logger)
	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	api := server.New(server.Deps{
		Config:  cfg,
		People:  person.NewPersonRepo(db, logger),
		Records: records.NewRecordsRepo(db, logger),
		Logger:  logger,
	})

	if sec := cfg.SecurityConfig; sec.AdminUsername != "" {
		if err := api.AuthService.EnsureAdmin(ctx, sec.AdminUsername, sec.AdminPassword); err != nil {
			logger.Fatal("failed to seed admin account", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:         net.JoinHostPort("", cfg.AppConfig.Port),
		Handler:      api.Router,
		ReadTimeout:  cfg.AppConfig.ReadTimeout,
		WriteTimeout: cfg.AppConfig.WriteTimeout,
		IdleTimeout:  cfg.AppConfig.IdleTimeout,
	}

	go func() {
		logger.Info("api server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("api server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
