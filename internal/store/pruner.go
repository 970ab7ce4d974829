// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

package store

import (
	"context"
	"time"

	"github.com/tomtom215/gatewatch/internal/logging"
)

// Pruner enforces the retention policy on a fixed interval. It is the only
// writer that deletes rows, and runs as a supervised service.
type Pruner struct {
	store           *Store
	interval        time.Duration
	detailRetention time.Duration
	rollupRetention time.Duration
}

// NewPruner creates a retention pruner.
//
//   - interval: how often to run (e.g. 5m)
//   - detailRetention: how long full killmail rows are kept (e.g. 1h)
//   - rollupRetention: how long hourly rollups are kept (e.g. 72h)
func NewPruner(s *Store, interval, detailRetention, rollupRetention time.Duration) *Pruner {
	return &Pruner{
		store:           s,
		interval:        interval,
		detailRetention: detailRetention,
		rollupRetention: rollupRetention,
	}
}

// Serve implements suture.Service. It prunes on the configured interval
// until the context is canceled.
func (p *Pruner) Serve(ctx context.Context) error {
	logging.Info().
		Str("interval", p.interval.String()).
		Str("detail_retention", p.detailRetention.String()).
		Str("rollup_retention", p.rollupRetention.String()).
		Msg("retention pruner started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("retention pruner stopped")
			return ctx.Err()
		case <-ticker.C:
			p.runOnce(time.Now())
		}
	}
}

// runOnce performs a single prune pass as of now.
func (p *Pruner) runOnce(now time.Time) {
	removed, err := p.store.Prune(now.Add(-p.detailRetention))
	if err != nil {
		logging.Error().Err(err).Msg("detail prune failed")
		return
	}

	rollupsRemoved, err := p.store.PruneRollups(now.Add(-p.rollupRetention))
	if err != nil {
		logging.Error().Err(err).Msg("rollup prune failed")
		return
	}

	if removed > 0 || rollupsRemoved > 0 {
		logging.Info().
			Int("killmails", removed).
			Int("rollups", rollupsRemoved).
			Msg("retention prune completed")
	}
}

// String implements fmt.Stringer for suture log messages.
func (p *Pruner) String() string {
	return "retention-pruner"
}
