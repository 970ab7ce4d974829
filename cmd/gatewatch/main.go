// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

// Package main is the entry point for the Gatewatch engine.
//
// Gatewatch ingests killmails from the zKillboard killstream, keeps a
// bounded Badger-backed history with hourly rollups, and answers per-system
// gatecamp queries with confidence-scored detections, attacker clustering,
// and watchlist matching.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layered load (defaults -> YAML -> env)
//  2. Ship-class table: YAML hull classification, invalid table is fatal
//  3. Store: BadgerDB at STORE_PATH, open failure is fatal
//  4. Detection, watchlist, and query services
//  5. Supervision tree: pruner, feed poller, HTTP server
//
// A degraded or unreachable feed is NOT fatal: the engine starts, serves
// stored history, flags realtime_healthy=false, and keeps reconnecting.
//
// # Configuration
//
// See config.example.yaml. Every key can be overridden by environment
// variables (FEED_URL, STORE_PATH, LOG_LEVEL, ...); CONFIG_PATH points at
// an explicit config file.
//
// # Signal handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains,
// the poller disconnects, and the store closes cleanly.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/gatewatch/internal/api"
	"github.com/tomtom215/gatewatch/internal/config"
	"github.com/tomtom215/gatewatch/internal/feed"
	"github.com/tomtom215/gatewatch/internal/intel"
	"github.com/tomtom215/gatewatch/internal/killmail"
	"github.com/tomtom215/gatewatch/internal/logging"
	"github.com/tomtom215/gatewatch/internal/query"
	"github.com/tomtom215/gatewatch/internal/store"
	"github.com/tomtom215/gatewatch/internal/supervisor"
	"github.com/tomtom215/gatewatch/internal/watchlist"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("version", version).Msg("Gatewatch starting")

	ships, err := config.LoadShipClassTable(cfg.Detection.ShipClassPath)
	if err != nil {
		// Detection without hull classes would silently misclassify
		// every camp, so refuse to start.
		logging.Fatal().Err(err).Str("path", cfg.Detection.ShipClassPath).Msg("Failed to load ship-class table")
	}

	st, err := store.Open(cfg.Store.Path, ships)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("Failed to open killmail store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Err(err).Msg("Failed to close store")
		}
	}()

	matcher := watchlist.New(cfg.Watchlist.Entries)
	detector := intel.NewDetector(cfg.Detection, ships)
	health := feed.NewHealth(cfg.Feed.FailureThreshold, cfg.Feed.StalenessThreshold)
	querySvc := query.New(st, detector, ships, matcher, health, cfg.Detection.RecentKillsLimit)

	poller := feed.NewPoller(cfg.Feed, killmail.NewNormalizer(), st, health)
	pruner := store.NewPruner(st, cfg.Store.PruneInterval, cfg.Store.DetailRetention, cfg.Store.RollupRetention)
	server := api.NewServer(cfg.Server, api.NewRouter(querySvc, health).Routes())

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	tree.AddDataService(pruner)
	tree.AddIngestService(poller)
	tree.AddAPIService(server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().
		Int("watchlist_entries", len(cfg.Watchlist.Entries)).
		Str("feed_url", cfg.Feed.URL).
		Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("Gatewatch stopped")
}
