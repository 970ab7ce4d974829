// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

// Package intel computes time-windowed activity aggregates and gatecamp
// detections from stored killmails.
//
// Detection architecture:
//
//	Ingestion Store -> Window Aggregator -> Camp Detector -> Query Service
//
// Both stages are pure functions of (now, killmails, configuration): there
// is no cached "camp active" flag that can desynchronize from its inputs,
// and identical inputs always produce identical outputs. Detection is
// explicitly heuristic; confidence expresses how strong the pattern is,
// not a probability.
//
// Camp-type classification is deterministic rule application against the
// configured ship-class table, not a statistical model.
package intel
