package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcclellann/bankLoan/pkg/auth"
	"github.com/mcclellann/bankLoan/pkg/config"
	"github.com/mcclellann/bankLoan/pkg/ledger"
	"github.com/mcclellann/bankLoan/pkg/logger"
	"github.com/mcclellann/bankLoan/pkg/store"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zlog, err := logger.New(loggerConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer zlog.Sync()

	storage, err := openStore(cfg.Database)
	if err != nil {
		return err
	}
	defer storage.Close()
	storage.DB().SetMaxOpenConns(cfg.Database.MaxOpenConns)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := auth.Bootstrap(ctx, storage, cfg.Bootstrap, zlog); err != nil {
		return fmt.Errorf("failed to bootstrap: %w", err)
	}

	l := ledger.NewLedger(storage, zlog.Named("ledger"), ledger.Options{
		StrictPaymentOrder:      cfg.Loans.StrictPaymentOrder,
		InstallmentIntervalDays: cfg.Loans.InstallmentIntervalDays,
	})
	tokens := auth.NewTokenManager(cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.Secret, cfg.JWT.AccessTTL)
	server := NewServer(l, auth.NewService(storage, tokens, zlog.Named("auth")), zlog.Named("http"))

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		zlog.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env),
			zap.String("driver", cfg.Database.Driver))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loggerConfig starts from the environment's defaults and applies any log.*
// settings on top.
func loggerConfig(cfg *config.Config) logger.Config {
	lc := logger.DefaultConfig()
	if cfg.IsProduction() {
		lc = logger.ProductionConfig()
	}
	if cfg.Log.Level != "" {
		lc.Level = cfg.Log.Level
	}
	if cfg.Log.Format != "" {
		lc.Format = cfg.Log.Format
	}
	if cfg.Log.Output != "" {
		lc.Output = cfg.Log.Output
	}
	return lc
}

func openStore(cfg config.DatabaseConfig) (*store.SQLStore, error) {
	var (
		s   *store.SQLStore
		err error
	)
	switch cfg.Driver {
	case store.DriverPostgres:
		s, err = store.NewPostgresStore(cfg.DSN)
	default:
		s, err = store.NewSQLiteStore(cfg.DSN)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s store: %w", cfg.Driver, err)
	}
	return s, nil
}
