// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

// Package config loads layered configuration (defaults -> YAML file -> env)
// via Koanf v2 and validates it before the engine starts. Invalid thresholds
// or a broken ship-class table prevent startup; operational tuning never
// requires a rebuild.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the engine.
type Config struct {
	Feed      FeedConfig      `koanf:"feed"`
	Store     StoreConfig     `koanf:"store"`
	Detection DetectionConfig `koanf:"detection"`
	Watchlist WatchlistConfig `koanf:"watchlist"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// FeedConfig configures the live killmail feed poller.
type FeedConfig struct {
	// URL is the websocket endpoint of the killmail stream.
	URL string `koanf:"url"`

	// Channel is the stream channel to subscribe to.
	Channel string `koanf:"channel"`

	// PollTimeout bounds each individual poll/read attempt.
	PollTimeout time.Duration `koanf:"poll_timeout"`

	// StalenessThreshold marks the feed degraded when no successful poll
	// happened for this long.
	StalenessThreshold time.Duration `koanf:"staleness_threshold"`

	// FailureThreshold is the number of consecutive failures before the
	// feed is marked degraded.
	FailureThreshold int `koanf:"failure_threshold"`

	// ReconnectInitial is the first reconnect backoff interval.
	ReconnectInitial time.Duration `koanf:"reconnect_initial"`

	// ReconnectMax caps the exponential reconnect backoff.
	ReconnectMax time.Duration `koanf:"reconnect_max"`

	// BufferSize is the capacity of the raw message channel between the
	// websocket reader and the ingest loop.
	BufferSize int `koanf:"buffer_size"`
}

// StoreConfig configures the durable killmail store and retention.
type StoreConfig struct {
	// Path is the Badger data directory.
	Path string `koanf:"path"`

	// PruneInterval is how often the retention pruner runs.
	PruneInterval time.Duration `koanf:"prune_interval"`

	// DetailRetention is how long full killmail rows are kept.
	DetailRetention time.Duration `koanf:"detail_retention"`

	// RollupRetention is how long hourly rollups are kept for fallback display.
	RollupRetention time.Duration `koanf:"rollup_retention"`
}

// DetectionConfig holds the camp-detection heuristics. Thresholds are data,
// not code: the confidence ladder and classification rules are tunable here
// and in the ship-class table without rebuilding.
type DetectionConfig struct {
	// HighMinKills is the minimum 10-minute kill count for HIGH confidence.
	HighMinKills int `koanf:"high_min_kills"`

	// HighMinAsymmetry is the force asymmetry that must be strictly
	// exceeded for HIGH confidence.
	HighMinAsymmetry float64 `koanf:"high_min_asymmetry"`

	// HighDominance is the minimum share of window kills the dominant
	// attacker cluster must account for to reach HIGH confidence.
	HighDominance float64 `koanf:"high_dominance"`

	// MediumMinKills is the minimum 10-minute kill count for MEDIUM confidence.
	MediumMinKills int `koanf:"medium_min_kills"`

	// MediumDominance is the minimum dominant-cluster share for MEDIUM confidence.
	MediumDominance float64 `koanf:"medium_dominance"`

	// SmartbombMinPodKills is the minimum pod kills in the window for a
	// SMARTBOMB classification.
	SmartbombMinPodKills int `koanf:"smartbomb_min_pod_kills"`

	// TackleMaxAvgAttackers is the maximum mean attackers per kill for a
	// TACKLE classification.
	TackleMaxAvgAttackers float64 `koanf:"tackle_max_avg_attackers"`

	// BlopsQuietPeriod is how long the system must have been quiet before
	// the 10-minute window for a BLOPS (abrupt covert drop) classification.
	BlopsQuietPeriod time.Duration `koanf:"blops_quiet_period"`

	// ShipClassPath is the YAML file mapping ship type IDs to hull classes.
	ShipClassPath string `koanf:"ship_class_path"`

	// RecentKillsLimit caps recent_kills in activity responses.
	RecentKillsLimit int `koanf:"recent_kills_limit"`
}

// WatchlistEntry is one operator-configured watched entity.
type WatchlistEntry struct {
	EntityID   int64  `koanf:"entity_id" json:"entity_id"`
	EntityType string `koanf:"entity_type" json:"entity_type"` // corporation, alliance, character
	Label      string `koanf:"label" json:"label"`
}

// WatchlistConfig configures entity watchlist matching.
type WatchlistConfig struct {
	Entries []WatchlistEntry `koanf:"entries"`
}

// ServerConfig configures the read-only HTTP surface.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all sensible default values.
// Defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Feed: FeedConfig{
			URL:                "wss://zkillboard.com/websocket/",
			Channel:            "killstream",
			PollTimeout:        10 * time.Second,
			StalenessThreshold: 2 * time.Minute,
			FailureThreshold:   3,
			ReconnectInitial:   1 * time.Second,
			ReconnectMax:       30 * time.Second,
			BufferSize:         256,
		},
		Store: StoreConfig{
			Path:            "/data/gatewatch",
			PruneInterval:   5 * time.Minute,
			DetailRetention: 1 * time.Hour,
			RollupRetention: 72 * time.Hour,
		},
		Detection: DetectionConfig{
			HighMinKills:          3,
			HighMinAsymmetry:      5.0,
			HighDominance:         0.6,
			MediumMinKills:        2,
			MediumDominance:       0.5,
			SmartbombMinPodKills:  2,
			TackleMaxAvgAttackers: 3.0,
			BlopsQuietPeriod:      50 * time.Minute,
			ShipClassPath:         "ship_classes.yaml",
			RecentKillsLimit:      10,
		},
		Watchlist: WatchlistConfig{
			Entries: []WatchlistEntry{},
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    3858,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration for values that would make the engine
// misbehave. It is called at startup before the poller starts; any error
// here prevents startup entirely.
func (c *Config) Validate() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("feed.url must not be empty")
	}
	if c.Feed.PollTimeout <= 0 {
		return fmt.Errorf("feed.poll_timeout must be positive, got %v", c.Feed.PollTimeout)
	}
	if c.Feed.FailureThreshold < 1 {
		return fmt.Errorf("feed.failure_threshold must be at least 1, got %d", c.Feed.FailureThreshold)
	}
	if c.Feed.StalenessThreshold <= 0 {
		return fmt.Errorf("feed.staleness_threshold must be positive, got %v", c.Feed.StalenessThreshold)
	}
	if c.Feed.ReconnectInitial <= 0 || c.Feed.ReconnectMax < c.Feed.ReconnectInitial {
		return fmt.Errorf("feed reconnect backoff misconfigured: initial=%v max=%v",
			c.Feed.ReconnectInitial, c.Feed.ReconnectMax)
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if c.Store.PruneInterval <= 0 {
		return fmt.Errorf("store.prune_interval must be positive, got %v", c.Store.PruneInterval)
	}
	if c.Store.DetailRetention <= 0 {
		return fmt.Errorf("store.detail_retention must be positive, got %v", c.Store.DetailRetention)
	}
	if c.Store.RollupRetention < c.Store.DetailRetention {
		return fmt.Errorf("store.rollup_retention (%v) must not be shorter than detail retention (%v)",
			c.Store.RollupRetention, c.Store.DetailRetention)
	}

	d := c.Detection
	if d.HighMinKills < 2 {
		// A single kill can never establish the consistent-attackers signal.
		return fmt.Errorf("detection.high_min_kills must be at least 2, got %d", d.HighMinKills)
	}
	if d.MediumMinKills < 1 || d.MediumMinKills > d.HighMinKills {
		return fmt.Errorf("detection.medium_min_kills must be in [1, high_min_kills], got %d", d.MediumMinKills)
	}
	if d.HighMinAsymmetry <= 0 {
		return fmt.Errorf("detection.high_min_asymmetry must be positive, got %v", d.HighMinAsymmetry)
	}
	if d.HighDominance <= 0 || d.HighDominance > 1 {
		return fmt.Errorf("detection.high_dominance must be in (0, 1], got %v", d.HighDominance)
	}
	if d.MediumDominance <= 0 || d.MediumDominance > d.HighDominance {
		return fmt.Errorf("detection.medium_dominance must be in (0, high_dominance], got %v", d.MediumDominance)
	}
	if d.SmartbombMinPodKills < 1 {
		return fmt.Errorf("detection.smartbomb_min_pod_kills must be at least 1, got %d", d.SmartbombMinPodKills)
	}
	if d.TackleMaxAvgAttackers <= 0 {
		return fmt.Errorf("detection.tackle_max_avg_attackers must be positive, got %v", d.TackleMaxAvgAttackers)
	}
	if d.BlopsQuietPeriod <= 0 {
		return fmt.Errorf("detection.blops_quiet_period must be positive, got %v", d.BlopsQuietPeriod)
	}
	if d.RecentKillsLimit < 1 {
		return fmt.Errorf("detection.recent_kills_limit must be at least 1, got %d", d.RecentKillsLimit)
	}

	for i, e := range c.Watchlist.Entries {
		switch e.EntityType {
		case "corporation", "alliance", "character":
		default:
			return fmt.Errorf("watchlist.entries[%d]: unknown entity_type %q", i, e.EntityType)
		}
		if e.EntityID <= 0 {
			return fmt.Errorf("watchlist.entries[%d]: entity_id must be positive, got %d", i, e.EntityID)
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}

	return nil
}
