package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/services"

	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
)

func main() {
	generateSecret := flag.Bool("generate-secret", false, "print a random JWT_SECRET and exit")
	flag.Parse()

	if *generateSecret {
		secret, err := auth.GenerateSecret(32)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(secret)
		return
	}

	cfg, logger := cli.Bootstrap(applog.ComponentApp, (*config.Config).Validate)
	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	secret := cfg.JWTSecret
	if secret == "" {
		// Only reachable in development; tokens do not survive a restart.
		generated, err := auth.GenerateSecret(32)
		if err != nil {
			return err
		}
		secret = generated
		logger.Warn("JWT_SECRET not set, using an ephemeral secret")
	}
	issuer, err := auth.NewIssuer(secret, cfg.AccessTokenTTL)
	if err != nil {
		return err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	be, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	var events services.EventPublisher
	if be.Events != nil {
		events = be.Events
	}

	principals := cache.NewLRUCache[core.User](1000, 30*time.Second)
	caches := cache.NewManager()
	caches.Register(principals)
	caches.StartCleanup(5 * time.Minute)
	defer caches.Stop()

	srv := apphttp.NewServer(apphttp.Services{
		Users:        services.NewUserService(be.Store, issuer).WithPrincipalCache(principals),
		Accounts:     services.NewAccountService(be.Store),
		Categories:   services.NewCategoryService(be.Store),
		Transactions: services.NewTransactionService(be.Store, events),
		Dashboard:    services.NewDashboardService(be.Store, events),
		Reports:      services.NewReportService(be.Store),
	}, apphttp.Options{
		Addr:               ":" + cfg.Port,
		CORSOrigins:        cfg.CORSAllowedOrigins,
		AllowAnyOrigin:     cfg.IsDevelopment(),
		LoginRatePerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		Ready:              be.Store,
	})
	srv.MaxHeaderBytes = 1 << 16

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events_enabled", be.Events != nil,
			"env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
