// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/payflowd/payflow/internal/api"
	"github.com/payflowd/payflow/internal/config"
	"github.com/payflowd/payflow/internal/directory"
	"github.com/payflowd/payflow/internal/draft"
	"github.com/payflowd/payflow/internal/extract"
	"github.com/payflowd/payflow/internal/health"
	"github.com/payflowd/payflow/internal/ledger"
	pflog "github.com/payflowd/payflow/internal/log"
	"github.com/payflowd/payflow/internal/sched"
	"github.com/payflowd/payflow/internal/store"
	"github.com/payflowd/payflow/internal/submit"
	"github.com/payflowd/payflow/internal/workflow"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg := config.FromEnv()
	if *configPath != "" {
		if err := config.LoadFile(*configPath, &cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	pflog.Configure(pflog.Config{
		Level:   cfg.LogLevel,
		Service: "payflow",
		Version: version,
	})
	logger := pflog.WithComponent("daemon")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Str("event", "config.invalid").Msg("configuration rejected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := store.OpenStores(cfg.StoreBackend, cfg.DataDir, cfg.RedisAddr)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "store.open_failed").Msg("failed to open stores")
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Error().Err(err).Msg("store close error")
		}
	}()

	// Outbound adapters. Unconfigured endpoints fall back to local doubles
	// so the daemon can run end-to-end in development.
	extractor := extract.FromConfig(cfg.Extractor)

	var dir directory.Directory
	if cfg.Directory.BaseURL != "" {
		dir = directory.NewClient(cfg.Directory)
	} else {
		logger.Warn().Msg("no directory endpoint configured, using empty in-memory directory")
		dir = directory.NewMemory()
	}

	var lg ledger.Ledger
	if cfg.Ledger.BaseURL != "" {
		lg = ledger.NewClient(cfg.Ledger)
	} else {
		logger.Warn().Msg("no ledger endpoint configured, payments go to an in-memory mock")
		lg = ledger.NewMock()
	}

	builder := draft.NewBuilder(dir, cfg.HomeCurrency)
	submitter := submit.New(lg, stores.Idem, stores.Schedule, cfg.Ledger.AccountID,
		submit.WithMaxRetries(cfg.SubmitMaxRetries))
	engine := workflow.New(extractor, builder, submitter, stores.Sessions)

	healthMgr := health.NewManager(version)
	healthMgr.RegisterChecker(health.NewSessionStoreChecker(stores.Sessions))
	healthMgr.RegisterChecker(health.NewScheduleStoreChecker(stores.Schedule))
	if cfg.Directory.BaseURL != "" {
		healthMgr.RegisterChecker(health.NewPingChecker("directory", func(ctx context.Context) error {
			_, err := dir.FundingMethods(ctx)
			return err
		}))
	}

	server := api.New(engine, stores.Schedule, healthMgr, api.Config{
		APIToken:  cfg.APIToken,
		RateLimit: cfg.RateLimit,
		Version:   version,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	runner := sched.New(stores.Schedule, submitter, cfg.SchedulePollInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("listen", cfg.ListenAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := runner.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("daemon exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("daemon stopped")
}
