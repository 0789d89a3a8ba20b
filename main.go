// Package main is the entry point for the employee reimbursement service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/ersapp/ers-service/internal/config"
	"gitlab.com/ersapp/ers-service/internal/database"
	"gitlab.com/ersapp/ers-service/internal/errs"
	"gitlab.com/ersapp/ers-service/internal/httpserver"
	"gitlab.com/ersapp/ers-service/internal/logger"
	"gitlab.com/ersapp/ers-service/internal/models"
	"gitlab.com/ersapp/ers-service/internal/repository"
	"gitlab.com/ersapp/ers-service/internal/service"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("ers-service %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.SetLevel(cfg.LogLevel)

	pool, err := database.Connect(ctx, cfg.DatabaseURL(), cfg.DBPoolSize)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	if err := database.SeedLookups(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to seed lookup tables")
	}

	logger.Log.Info().Msg("Database initialized successfully")

	reimbRepo := repository.NewReimbursementRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	reimbService := service.NewReimbursementService(reimbRepo, userRepo)
	userService := service.NewUserService(userRepo)

	if err := bootstrapAdmin(ctx, cfg, userService); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to bootstrap admin user")
	}

	srv := httpserver.New(cfg.HTTPAddr, reimbService, userService, userService)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Log.Info().Msg("Shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error().Err(err).Msg("Shutdown failed")
		}
		cancel()
	}()

	logger.Log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
	if err := srv.Start(); err != nil {
		logger.Log.Fatal().Err(err).Msg("HTTP server failed")
	}
}

// bootstrapAdmin creates the configured admin account on first start so a
// fresh deployment has a resolver-capable login.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, users *service.UserService) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := users.GetByUsername(ctx, cfg.AdminUsername)
	if err == nil {
		return nil
	}
	if !errs.IsKind(err, errs.KindNotFound) {
		return err
	}

	email := cfg.AdminEmail
	if email == "" {
		email = cfg.AdminUsername + "@localhost"
	}

	_, err = users.Register(ctx, &models.User{
		Username:  cfg.AdminUsername,
		FirstName: "System",
		LastName:  "Admin",
		Email:     email,
		Role:      models.RoleAdmin,
	}, cfg.AdminPassword)
	if err != nil {
		return err
	}

	logger.Log.Info().Str("username", cfg.AdminUsername).Msg("Bootstrap admin created")
	return nil
}
