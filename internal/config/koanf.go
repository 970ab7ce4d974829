// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in priority
// order. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/gatewatch/config.yaml",
	"/etc/gatewatch/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load loads configuration using Koanf v2 with layered sources:
//
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
//
// Precedence is ENV > file > defaults. The result is validated before
// being returned; a validation error here prevents startup.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// FEED_URL -> feed.url, STORE_DETAIL_RETENTION -> store.detail_retention
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the first file found, or empty string if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps environment variable names to config paths. Only listed
// variables are honored; everything else in the process environment is
// ignored rather than guessed at.
var envMappings = map[string]string{
	"feed_url":                 "feed.url",
	"feed_channel":             "feed.channel",
	"feed_poll_timeout":        "feed.poll_timeout",
	"feed_staleness_threshold": "feed.staleness_threshold",
	"feed_failure_threshold":   "feed.failure_threshold",
	"feed_reconnect_initial":   "feed.reconnect_initial",
	"feed_reconnect_max":       "feed.reconnect_max",
	"feed_buffer_size":         "feed.buffer_size",

	"store_path":             "store.path",
	"store_prune_interval":   "store.prune_interval",
	"store_detail_retention": "store.detail_retention",
	"store_rollup_retention": "store.rollup_retention",

	"detection_high_min_kills":           "detection.high_min_kills",
	"detection_high_min_asymmetry":       "detection.high_min_asymmetry",
	"detection_high_dominance":           "detection.high_dominance",
	"detection_medium_min_kills":         "detection.medium_min_kills",
	"detection_medium_dominance":         "detection.medium_dominance",
	"detection_smartbomb_min_pod_kills":  "detection.smartbomb_min_pod_kills",
	"detection_tackle_max_avg_attackers": "detection.tackle_max_avg_attackers",
	"detection_blops_quiet_period":       "detection.blops_quiet_period",
	"detection_recent_kills_limit":       "detection.recent_kills_limit",
	"ship_class_path":                    "detection.ship_class_path",

	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unknown variables map to "" and are dropped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
